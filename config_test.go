package goCred

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "reset code too short",
			mutate:    func(c *Config) { c.PasswordReset.CodeLength = 4 },
			wantValid: false,
		},
		{
			name:      "reset ttl zero",
			mutate:    func(c *Config) { c.PasswordReset.TTL = 0 },
			wantValid: false,
		},
		{
			name:      "reset limit without window",
			mutate:    func(c *Config) { c.PasswordReset.Limit.Window = 0 },
			wantValid: false,
		},
		{
			name: "limit disabled ignores window",
			mutate: func(c *Config) {
				c.PasswordReset.Limit = LimitConfig{}
			},
			wantValid: true,
		},
		{
			name:      "negative max attempts",
			mutate:    func(c *Config) { c.EmailVerification.Limit.MaxAttempts = -1 },
			wantValid: false,
		},
		{
			name:      "verification code too long",
			mutate:    func(c *Config) { c.EmailVerification.CodeLength = 64 },
			wantValid: false,
		},
		{
			name:      "token too short",
			mutate:    func(c *Config) { c.Tokens.Length = 16 },
			wantValid: false,
		},
		{
			name:      "token negative max expiry",
			mutate:    func(c *Config) { c.Tokens.MaxExpiry = -time.Hour },
			wantValid: false,
		},
		{
			name:      "blake2b",
			mutate:    func(c *Config) { c.Secrets.HashAlgorithm = "blake2b" },
			wantValid: true,
		},
		{
			name:      "unknown hash",
			mutate:    func(c *Config) { c.Secrets.HashAlgorithm = "md5" },
			wantValid: false,
		},
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Storage.Backend = "etcd" },
			wantValid: false,
		},
		{
			name:      "limiter prefix clash",
			mutate:    func(c *Config) { c.Storage.LimiterPrefix = c.Storage.RedisPrefix },
			wantValid: false,
		},
		{
			name:      "relative reset base url",
			mutate:    func(c *Config) { c.Delivery.ResetBaseURL = "app.example.com" },
			wantValid: false,
		},
		{
			name:      "reset base url with query",
			mutate:    func(c *Config) { c.Delivery.ResetBaseURL = "https://app.example.com/?x=1" },
			wantValid: false,
		},
		{
			name:      "delivery timeout zero",
			mutate:    func(c *Config) { c.Delivery.Timeout = 0 },
			wantValid: false,
		},
		{
			name: "audit buffer required when enabled",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCloneConfigNormalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secrets.HashAlgorithm = " BLAKE2b "
	cfg.Delivery.ResetBaseURL = " https://app.example.com/ "

	out := cloneConfig(cfg)
	assert.Equal(t, "blake2b", out.Secrets.HashAlgorithm)
	assert.Equal(t, "https://app.example.com", out.Delivery.ResetBaseURL)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GOCRED_RESET_TTL", "45m")
	t.Setenv("GOCRED_RESET_LIMIT_MAX_ATTEMPTS", "3")
	t.Setenv("GOCRED_VERIFICATION_CODE_LENGTH", "10")
	t.Setenv("GOCRED_TOKEN_MAX_EXPIRY", "2160h")
	t.Setenv("GOCRED_SECRET_HASH_ALGORITHM", "blake2b")
	t.Setenv("GOCRED_STORAGE_BACKEND", "redis")
	t.Setenv("GOCRED_DELIVERY_RESET_BASE_URL", "https://app.example.com/")
	t.Setenv("GOCRED_AUDIT_ENABLED", "true")
	t.Setenv("GOCRED_METRICS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.PasswordReset.TTL)
	assert.Equal(t, 3, cfg.PasswordReset.Limit.MaxAttempts)
	assert.Equal(t, 2*time.Hour, cfg.PasswordReset.Limit.Cooldown, "unset values keep defaults")
	assert.Equal(t, 10, cfg.EmailVerification.CodeLength)
	assert.Equal(t, 90*24*time.Hour, cfg.Tokens.MaxExpiry)
	assert.Equal(t, "blake2b", cfg.Secrets.HashAlgorithm)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.Equal(t, "https://app.example.com", cfg.Delivery.ResetBaseURL)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("GOCRED_RESET_TTL", "soon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParsingConfig)
}

func TestLoadConfigValidates(t *testing.T) {
	t.Setenv("GOCRED_TOKEN_LENGTH", "8")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrParsingConfig)
}

func TestLoadConfigFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOCRED_RESET_CODE_LENGTH=12\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("GOCRED_RESET_CODE_LENGTH") })

	cfg, err := LoadConfigFiles(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.PasswordReset.CodeLength)

	_, err = LoadConfigFiles(filepath.Join(dir, "missing.env"))
	assert.ErrorIs(t, err, ErrParsingConfig)
}
