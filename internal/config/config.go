package config

import (
	"flag"
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr             string   `env:"RUN_ADDRESS" env-default:"localhost:8080"`
	DatabaseURL      string   `env:"DATABASE_URI"`
	PrivateKey       string   `env:"PRIVATE_KEY" env-default:"privatekey"`
	AdminEmail       string   `env:"ADMIN_EMAIL" env-default:"gagansidhu@flash.co"`
	InrPerUsd        int64    `env:"INR_PER_USD" env-default:"80"`
	TxMaxRetries     int      `env:"TX_MAX_RETRIES" env-default:"5"`
	AuthDisabledURLs []string `env:"AUTH_DISABLED_URLS" env-default:"/api/login,/api/register,/api/catalog" env-separator:","`
}

func Load() (*Config, error) {
	// Missing .env is fine, variables may come from the environment.
	_ = godotenv.Load()

	cfg := &Config{}

	flag.StringVar(&cfg.Addr, "a", "localhost:8080", "HTTP server address")
	flag.StringVar(&cfg.DatabaseURL, "d", "", "database URL (empty runs the in-memory store)")
	flag.Int64Var(&cfg.InrPerUsd, "r", 80, "INR per USD conversion rate")

	flag.Parse()

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't read environment variables: %w", err)
	}

	return cfg, nil
}
