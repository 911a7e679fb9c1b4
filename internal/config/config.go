package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"reelhouse.org/internal/auth"
	"reelhouse.org/internal/ratelimit"
)

// Config carries everything the API binary needs at startup. All values come
// from REELHOUSE_* environment variables; signing material has no default.
type Config struct {
	Addr  string
	PGDSN string

	JWT auth.Config

	RateEnabled bool
	Rate        ratelimit.Config

	MigrationsDir string
	SeedsDir      string
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Addr:  envOr("REELHOUSE_ADDR", ":8080"),
		PGDSN: os.Getenv("REELHOUSE_PG_DSN"),
		JWT: auth.Config{
			Key:      os.Getenv("REELHOUSE_JWT_KEY"),
			Issuer:   os.Getenv("REELHOUSE_JWT_ISSUER"),
			Audience: os.Getenv("REELHOUSE_JWT_AUDIENCE"),
		},
		RateEnabled:   true,
		MigrationsDir: envOr("REELHOUSE_MIGRATIONS_DIR", "ops/migrations/sql"),
		SeedsDir:      envOr("REELHOUSE_SEEDS_DIR", "ops/migrations/seeds"),
	}

	if cfg.JWT.Key == "" {
		return Config{}, fmt.Errorf("REELHOUSE_JWT_KEY is required")
	}
	if cfg.JWT.Issuer == "" {
		return Config{}, fmt.Errorf("REELHOUSE_JWT_ISSUER is required")
	}
	if cfg.JWT.Audience == "" {
		return Config{}, fmt.Errorf("REELHOUSE_JWT_AUDIENCE is required")
	}

	var err error
	if cfg.JWT.TTL, err = envDuration("REELHOUSE_JWT_TTL", auth.DefaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateEnabled, err = envBool("REELHOUSE_RATE_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.Rate.Rps, err = envInt("REELHOUSE_RATE_RPS", ratelimit.DefaultRps); err != nil {
		return Config{}, err
	}
	if cfg.Rate.Burst, err = envInt("REELHOUSE_RATE_BURST", ratelimit.DefaultBurst); err != nil {
		return Config{}, err
	}
	windowSeconds, err := envInt("REELHOUSE_RATE_WINDOW_SECONDS", int(ratelimit.DefaultWindow/time.Second))
	if err != nil {
		return Config{}, err
	}
	cfg.Rate.Window = time.Duration(windowSeconds) * time.Second
	cfg.Rate.Strategy = envOr("REELHOUSE_RATE_STRATEGY", ratelimit.StrategyFixedWindow)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
