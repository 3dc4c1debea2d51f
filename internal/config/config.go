package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	// PolicyBuiltin selects the signing policy compiled into the binary.
	PolicyBuiltin = "builtin"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":5000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StoreBackend   string `env:"STORE_BACKEND" envDefault:"file"`
	DataDir        string `env:"DATA_DIR" envDefault:"."`
	ChainFile      string `env:"CHAIN_FILE" envDefault:"blockchain.json"`
	SignaturesFile string `env:"SIGNATURES_FILE" envDefault:"signatures.json"`
	PostgresDSN    string `env:"POSTGRES_DSN"`

	CanonicalEncoding string `env:"CANONICAL_ENCODING" envDefault:"length-prefixed"`
	SignatureBinding  string `env:"SIGNATURE_BINDING" envDefault:"index"`
	SigningPolicy     string `env:"SIGNING_POLICY"`

	RateLimitRequests      int  `env:"RATE_LIMIT_REQUESTS" envDefault:"0"`
	RateLimitWindowSeconds int  `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	RateLimitFailClosed    bool `env:"RATE_LIMIT_FAIL_CLOSED" envDefault:"false"`
	RateLimitMaxKeys       int  `env:"RATE_LIMIT_MAX_KEYS" envDefault:"10000"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreBackend {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_BACKEND=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.CanonicalEncoding {
	case "length-prefixed", "legacy":
	default:
		return fmt.Errorf("unsupported CANONICAL_ENCODING %q", c.CanonicalEncoding)
	}
	switch c.SignatureBinding {
	case "index", "identity":
	default:
		return fmt.Errorf("unsupported SIGNATURE_BINDING %q", c.SignatureBinding)
	}
	if c.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	if c.RateLimitRequests > 0 && c.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	return nil
}

func (c Config) ChainPath() string {
	return filepath.Join(c.DataDir, c.ChainFile)
}

func (c Config) SignaturesPath() string {
	return filepath.Join(c.DataDir, c.SignaturesFile)
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
