package goCred

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/MrEthical07/goCred/email"
	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/expiry"
	internalflows "github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/internal/limiters"
	"github.com/MrEthical07/goCred/internal/logging"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
	"github.com/MrEthical07/goCred/internal/secret"
	"github.com/MrEthical07/goCred/internal/stores"
)

const (
	resetIDPrefix        = "rc_"
	verificationIDPrefix = "vc_"
	tokenIDPrefix        = "llt_"
)

// Builder assembles an Engine. It is configured during initialization and
// used once.
type Builder struct {
	config Config

	redis    redis.UniversalClient
	postgres *pgxpool.Pool
	mongo    *mongo.Database

	userProvider UserProvider
	auditSink    AuditSink
	mailer       email.Sender
	logger       *slog.Logger
	now          func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies a Redis client for the record store, the issuance
// limiter, or both.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPostgres supplies a pool for the PostgreSQL record store. Call
// Engine.Migrate before first use.
func (b *Builder) WithPostgres(pool *pgxpool.Pool) *Builder {
	b.postgres = pool
	return b
}

// WithMongo supplies a database for the MongoDB record store. Call
// Engine.Migrate to create its indexes.
func (b *Builder) WithMongo(db *mongo.Database) *Builder {
	b.mongo = db
	return b
}

// WithMemoryStore keeps records in process memory. Records do not survive a
// restart.
func (b *Builder) WithMemoryStore() *Builder {
	b.config.Storage.Backend = StorageMemory
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMailer enables email delivery of reset links and verification codes.
// Delivery.ResetBaseURL must be set as well.
func (b *Builder) WithMailer(sender email.Sender) *Builder {
	b.mailer = sender
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every timestamp the Engine writes or
// compares against.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.mailer != nil && cfg.Delivery.ResetBaseURL == "" {
		return nil, errors.New("Delivery ResetBaseURL is required when a mailer is configured")
	}

	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With(logging.Component("gocred"))

	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- CREDENTIAL STORE --------
	backend, err := b.resolveBackend(cfg.Storage.Backend)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		backend:      backend,
		userProvider: b.userProvider,
		mailer:       b.mailer,
		logger:       logger,
		now:          now,
		postgres:     b.postgres,
	}

	switch backend {
	case StorageRedis:
		engine.store = stores.NewRedisStore(b.redis, cfg.Storage.RedisPrefix)
	case StoragePostgres:
		engine.store = stores.NewPostgresStore(b.postgres)
	case StorageMongo:
		ms := stores.NewMongoStore(b.mongo, cfg.Storage.MongoCollection)
		engine.mongoStore = ms
		engine.store = ms
	default:
		engine.store = stores.NewMemoryStore()
	}

	// -------- ISSUANCE LIMITER --------
	// nil falls back to counting issuances in the record store.
	var limiter limiters.Limiter
	if b.redis != nil && cfg.Storage.RedisLimiter {
		limiter = limiters.NewRedisLimiter(b.redis, cfg.Storage.LimiterPrefix)
		engine.redisLimiter = true
	}

	// -------- SECRETS --------
	hasher, err := secret.NewHasher(cfg.Secrets.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	deps := internalflows.Deps{
		Store:      engine.store,
		Limiter:    limiter,
		Generator:  secret.NewGenerator(),
		Hasher:     hasher,
		Now:        now,
		LookupUser: engine.lookupUser,
		Logger:     logger,
		Observe:    engine.observe,
	}

	// -------- LIFECYCLES --------
	if engine.resets, err = internalflows.NewLifecycle(resetProfile(cfg), deps); err != nil {
		return nil, err
	}
	if engine.verifications, err = internalflows.NewLifecycle(verificationProfile(cfg), deps); err != nil {
		return nil, err
	}
	if engine.tokens, err = internalflows.NewLifecycle(tokenProfile(cfg), deps); err != nil {
		return nil, err
	}

	// -------- AUDIT & METRICS --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Metrics.Enabled,
		EnableLatencyHistograms: cfg.Metrics.EnableLatencyHistograms,
	})

	b.built = true

	logger.Info("engine ready",
		"backend", string(backend),
		"redis_limiter", limiter != nil,
		"hash_algorithm", hasher.Algorithm(),
		"mailer", b.mailer != nil,
	)

	return engine, nil
}

func (b *Builder) resolveBackend(requested StorageBackend) (StorageBackend, error) {
	switch requested {
	case StorageMemory:
		return StorageMemory, nil
	case StorageRedis:
		if b.redis == nil {
			return "", errors.New("Storage Backend redis requires a redis client")
		}
		return StorageRedis, nil
	case StoragePostgres:
		if b.postgres == nil {
			return "", errors.New("Storage Backend postgres requires a postgres pool")
		}
		return StoragePostgres, nil
	case StorageMongo:
		if b.mongo == nil {
			return "", errors.New("Storage Backend mongo requires a mongo database")
		}
		return StorageMongo, nil
	case StorageAuto:
		switch {
		case b.redis != nil:
			return StorageRedis, nil
		case b.postgres != nil:
			return StoragePostgres, nil
		case b.mongo != nil:
			return StorageMongo, nil
		default:
			return StorageMemory, nil
		}
	default:
		return "", fmt.Errorf("Storage Backend %q is invalid", requested)
	}
}

func limitPolicy(l LimitConfig) limiters.Policy {
	return limiters.Policy{
		MaxAttempts: l.MaxAttempts,
		Window:      l.Window,
		Cooldown:    l.Cooldown,
	}
}

func resetProfile(cfg Config) internalflows.Profile[ResetMetadata] {
	return internalflows.Profile[ResetMetadata]{
		Type:         TypeResetCode,
		IDPrefix:     resetIDPrefix,
		Secret:       internalflows.SecretCode,
		SecretLength: cfg.PasswordReset.CodeLength,
		Retirement:   internalflows.SingleUse,
		Limit:        limitPolicy(cfg.PasswordReset.Limit),
		Lifetime:     expiry.Fixed{Duration: cfg.PasswordReset.TTL},
	}
}

// Verification budgets and lookups are per address, compared without case.
func verificationProfile(cfg Config) internalflows.Profile[VerificationMetadata] {
	return internalflows.Profile[VerificationMetadata]{
		Type:         TypeVerificationChallenge,
		IDPrefix:     verificationIDPrefix,
		Secret:       internalflows.SecretCode,
		SecretLength: cfg.EmailVerification.CodeLength,
		Retirement:   internalflows.SingleUse,
		Limit:        limitPolicy(cfg.EmailVerification.Limit),
		Lifetime:     expiry.Fixed{Duration: cfg.EmailVerification.TTL},
		Scope: func(m VerificationMetadata) string {
			return strings.ToLower(m.Email)
		},
		MatchEmail: func(m VerificationMetadata, addr string) bool {
			return strings.EqualFold(m.Email, strings.TrimSpace(addr))
		},
	}
}

func tokenProfile(cfg Config) internalflows.Profile[TokenMetadata] {
	return internalflows.Profile[TokenMetadata]{
		Type:         TypeLongLivedToken,
		IDPrefix:     tokenIDPrefix,
		Secret:       internalflows.SecretToken,
		SecretLength: cfg.Tokens.Length,
		Retirement:   internalflows.Revocable,
		Limit:        limitPolicy(cfg.Tokens.Limit),
		MaxExpiry:    expiry.Ceiling{Max: cfg.Tokens.MaxExpiry},
		Touch: func(m *TokenMetadata, at time.Time) {
			used := at.UTC()
			m.LastUsedAt = &used
		},
	}
}
