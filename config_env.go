package goCred

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every variable LoadConfig reads, e.g.
// GOCRED_RESET_TTL or GOCRED_TOKEN_MAX_EXPIRY.
const EnvPrefix = "GOCRED_"

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into Config.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	defaultEnvLoaded sync.Once
)

// LoadConfig reads Config from the environment on top of DefaultConfig and
// validates it. A .env file in the working directory is loaded once, without
// overriding variables that are already set.
func LoadConfig() (Config, error) {
	defaultEnvLoaded.Do(func() {
		// The .env file is optional.
		_ = godotenv.Load()
	})
	return parseConfig(env.Options{Prefix: EnvPrefix})
}

// LoadConfigFiles is LoadConfig with explicit .env files. Earlier files take
// precedence over later ones; the process environment wins over both.
func LoadConfigFiles(paths ...string) (Config, error) {
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			return Config{}, errors.Join(ErrParsingConfig, err)
		}
	}
	return parseConfig(env.Options{Prefix: EnvPrefix})
}

func parseConfig(opts env.Options) (Config, error) {
	cfg := defaultConfig()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	cfg = cloneConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
