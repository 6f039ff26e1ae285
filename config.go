package goCred

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/internal/secret"
)

// Config holds every tunable of the Engine. Struct tags drive LoadConfig;
// zero values are never used directly, start from DefaultConfig.
type Config struct {
	PasswordReset     PasswordResetConfig     `envPrefix:"RESET_"`
	EmailVerification EmailVerificationConfig `envPrefix:"VERIFICATION_"`
	Tokens            TokenConfig             `envPrefix:"TOKEN_"`
	Secrets           SecretConfig            `envPrefix:"SECRET_"`
	Storage           StorageConfig           `envPrefix:"STORAGE_"`
	Delivery          DeliveryConfig          `envPrefix:"DELIVERY_"`
	Audit             AuditConfig             `envPrefix:"AUDIT_"`
	Metrics           MetricsConfig           `envPrefix:"METRICS_"`
}

/*
====================================
ISSUANCE LIMIT CONFIG
====================================
*/

// LimitConfig is the issuance budget for one credential type. Within Window
// at most MaxAttempts credentials are issued per subject; once the budget is
// spent, issuance resumes Cooldown after the most recent one. MaxAttempts 0
// disables limiting.
type LimitConfig struct {
	MaxAttempts int           `env:"MAX_ATTEMPTS"`
	Window      time.Duration `env:"WINDOW"`
	Cooldown    time.Duration `env:"COOLDOWN"`
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

type PasswordResetConfig struct {
	CodeLength int           `env:"CODE_LENGTH"`
	TTL        time.Duration `env:"TTL"`
	Limit      LimitConfig   `envPrefix:"LIMIT_"`
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

// EmailVerificationConfig limits issuance per user and address pair.
type EmailVerificationConfig struct {
	CodeLength int           `env:"CODE_LENGTH"`
	TTL        time.Duration `env:"TTL"`
	Limit      LimitConfig   `envPrefix:"LIMIT_"`
}

/*
====================================
LONG-LIVED TOKEN CONFIG
====================================
*/

// TokenConfig governs long-lived API tokens. MaxExpiry 0 allows tokens that
// never expire; a positive MaxExpiry requires every token to carry an expiry
// no further away than MaxExpiry.
type TokenConfig struct {
	Length    int           `env:"LENGTH"`
	MaxExpiry time.Duration `env:"MAX_EXPIRY"`
	Limit     LimitConfig   `envPrefix:"LIMIT_"`
}

/*
====================================
SECRET CONFIG
====================================
*/

type SecretConfig struct {
	// HashAlgorithm is "sha256" (default) or "blake2b". Changing it
	// invalidates every outstanding credential.
	HashAlgorithm string `env:"HASH_ALGORITHM"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where credential records live.
type StorageBackend string

const (
	// StorageAuto picks the first client handed to the Builder, in the order
	// Redis, PostgreSQL, MongoDB, then memory.
	StorageAuto     StorageBackend = ""
	StorageMemory   StorageBackend = "memory"
	StorageRedis    StorageBackend = "redis"
	StoragePostgres StorageBackend = "postgres"
	StorageMongo    StorageBackend = "mongo"
)

type StorageConfig struct {
	Backend         StorageBackend `env:"BACKEND"`
	RedisPrefix     string         `env:"REDIS_PREFIX"`
	MongoCollection string         `env:"MONGO_COLLECTION"`

	// RedisLimiter counts issuances in Redis sorted sets when a Redis client
	// is configured, regardless of the record backend. Otherwise issuance
	// history is read from the record store.
	RedisLimiter  bool   `env:"REDIS_LIMITER"`
	LimiterPrefix string `env:"LIMITER_PREFIX"`
}

/*
====================================
DELIVERY CONFIG
====================================
*/

// DeliveryConfig controls the emails sent for reset codes and verification
// challenges. Reset emails are sent in the background; verification emails
// are sent before RequestEmailVerification returns.
type DeliveryConfig struct {
	// ResetBaseURL is the application origin reset links point at, e.g.
	// https://app.example.com. Required when a mailer is configured.
	ResetBaseURL string        `env:"RESET_BASE_URL"`
	Timeout      time.Duration `env:"TIMEOUT"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		PasswordReset: PasswordResetConfig{
			CodeLength: secret.DefaultCodeLength,
			TTL:        30 * time.Minute,
			Limit: LimitConfig{
				MaxAttempts: 5,
				Window:      30 * time.Minute,
				Cooldown:    2 * time.Hour,
			},
		},
		EmailVerification: EmailVerificationConfig{
			CodeLength: secret.DefaultCodeLength,
			TTL:        24 * time.Hour,
			Limit: LimitConfig{
				MaxAttempts: 5,
				Window:      24 * time.Hour,
				Cooldown:    30 * time.Minute,
			},
		},
		Tokens: TokenConfig{
			Length:    secret.DefaultTokenLength,
			MaxExpiry: 0,
		},
		Secrets: SecretConfig{
			HashAlgorithm: secret.AlgorithmSHA256,
		},
		Storage: StorageConfig{
			Backend:         StorageAuto,
			RedisPrefix:     "gocred",
			MongoCollection: "credentials",
			RedisLimiter:    true,
			LimiterPrefix:   "gocred:rl",
		},
		Delivery: DeliveryConfig{
			Timeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Secrets.HashAlgorithm = strings.ToLower(strings.TrimSpace(cfg.Secrets.HashAlgorithm))
	out.Delivery.ResetBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Delivery.ResetBaseURL), "/")
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Password reset
	if err := validateCodeLength("PasswordReset", c.PasswordReset.CodeLength); err != nil {
		return err
	}
	if c.PasswordReset.TTL <= 0 {
		return errors.New("PasswordReset TTL must be > 0")
	}
	if err := c.PasswordReset.Limit.validate("PasswordReset"); err != nil {
		return err
	}

	// Email verification
	if err := validateCodeLength("EmailVerification", c.EmailVerification.CodeLength); err != nil {
		return err
	}
	if c.EmailVerification.TTL <= 0 {
		return errors.New("EmailVerification TTL must be > 0")
	}
	if err := c.EmailVerification.Limit.validate("EmailVerification"); err != nil {
		return err
	}

	// Tokens
	if c.Tokens.Length < secret.MinTokenLength || c.Tokens.Length > secret.MaxTokenLength {
		return fmt.Errorf("Tokens Length must be between %d and %d", secret.MinTokenLength, secret.MaxTokenLength)
	}
	if c.Tokens.MaxExpiry < 0 {
		return errors.New("Tokens MaxExpiry must be >= 0")
	}
	if err := c.Tokens.Limit.validate("Tokens"); err != nil {
		return err
	}

	// Secrets
	if _, err := secret.NewHasher(c.Secrets.HashAlgorithm); err != nil {
		return fmt.Errorf("Secrets HashAlgorithm: %w", err)
	}

	// Storage
	switch c.Storage.Backend {
	case StorageAuto, StorageMemory, StorageRedis, StoragePostgres, StorageMongo:
		// valid
	default:
		return fmt.Errorf("Storage Backend %q is invalid", c.Storage.Backend)
	}
	if c.Storage.RedisPrefix == "" {
		return errors.New("Storage RedisPrefix must not be empty")
	}
	if c.Storage.LimiterPrefix == "" {
		return errors.New("Storage LimiterPrefix must not be empty")
	}
	if c.Storage.LimiterPrefix == c.Storage.RedisPrefix {
		return errors.New("Storage LimiterPrefix must differ from RedisPrefix")
	}
	if c.Storage.MongoCollection == "" {
		return errors.New("Storage MongoCollection must not be empty")
	}

	// Delivery
	if c.Delivery.Timeout <= 0 {
		return errors.New("Delivery Timeout must be > 0")
	}
	if c.Delivery.ResetBaseURL != "" {
		u, err := url.Parse(c.Delivery.ResetBaseURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return errors.New("Delivery ResetBaseURL must be an absolute http(s) URL")
		}
		if u.RawQuery != "" || u.Fragment != "" {
			return errors.New("Delivery ResetBaseURL must not carry a query or fragment")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Enabled is true")
	}

	return nil
}

func validateCodeLength(section string, n int) error {
	if n < secret.MinCodeLength || n > secret.MaxCodeLength {
		return fmt.Errorf("%s CodeLength must be between %d and %d", section, secret.MinCodeLength, secret.MaxCodeLength)
	}
	return nil
}

func (l LimitConfig) validate(section string) error {
	if l.MaxAttempts < 0 {
		return fmt.Errorf("%s Limit MaxAttempts must be >= 0", section)
	}
	if l.MaxAttempts == 0 {
		return nil
	}
	if l.Window <= 0 {
		return fmt.Errorf("%s Limit Window must be > 0 when MaxAttempts is set", section)
	}
	if l.Cooldown < 0 {
		return fmt.Errorf("%s Limit Cooldown must be >= 0", section)
	}
	return nil
}
