package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goCred "github.com/MrEthical07/goCred"
	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var errNoConnection = errors.New("no store configured: set GOCRED_REDIS_URL, GOCRED_POSTGRES_URL, or GOCRED_MONGO_URL")

type connectionConfig struct {
	RedisURL       string        `env:"REDIS_URL"`
	PostgresURL    string        `env:"POSTGRES_URL"`
	MongoURL       string        `env:"MONGO_URL"`
	MongoDatabase  string        `env:"MONGO_DATABASE" envDefault:"gocred"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
}

type connections struct {
	redis    *redis.Client
	postgres *pgxpool.Pool
	mongo    *mongo.Client
	database *mongo.Database
}

// connect opens every store named in the environment. The builder picks
// among them following its storage backend setting.
func connect(ctx context.Context, logger *slog.Logger) (*connections, error) {
	cfg, err := env.ParseAsWithOptions[connectionConfig](env.Options{Prefix: goCred.EnvPrefix})
	if err != nil {
		return nil, errors.Join(goCred.ErrParsingConfig, err)
	}
	if cfg.RedisURL == "" && cfg.PostgresURL == "" && cfg.MongoURL == "" {
		return nil, errNoConnection
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	c := &connections{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		c.redis = redis.NewClient(opts)
		if err := c.redis.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.DebugContext(ctx, "redis connected", slog.String("addr", opts.Addr))
	}
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		c.postgres = pool
		if err := pool.Ping(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.DebugContext(ctx, "postgres connected")
	}
	if cfg.MongoURL != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open mongo: %w", err)
		}
		c.mongo = client
		if err := client.Ping(ctx, nil); err != nil {
			c.Close()
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		c.database = client.Database(cfg.MongoDatabase)
		logger.DebugContext(ctx, "mongo connected", slog.String("database", cfg.MongoDatabase))
	}
	return c, nil
}

func (c *connections) apply(b *goCred.Builder) *goCred.Builder {
	if c.redis != nil {
		b = b.WithRedis(c.redis)
	}
	if c.postgres != nil {
		b = b.WithPostgres(c.postgres)
	}
	if c.database != nil {
		b = b.WithMongo(c.database)
	}
	return b
}

func (c *connections) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.postgres != nil {
		c.postgres.Close()
	}
	if c.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.mongo.Disconnect(ctx)
	}
}
