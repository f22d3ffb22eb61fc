package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo      MongoConfig
	Redis      RedisConfig
	Ledger     LedgerConfig
	Reconciler ReconcilerConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=tracking_system"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type LedgerConfig struct {
	// Owner is the controlling principal of the ledger program. Required.
	Owner string `env:"LEDGER_OWNER"`
	// FeeAmount is the initial creation fee in the smallest currency unit.
	FeeAmount uint64 `env:"LEDGER_FEE_AMOUNT, default=0"`
	// FeeRequired enables fee collection on creation at startup.
	FeeRequired bool `env:"LEDGER_FEE_REQUIRED, default=false"`
	// WhitelistRequired enables the creation whitelist at startup.
	WhitelistRequired bool `env:"LEDGER_WHITELIST_REQUIRED, default=false"`
}

type ReconcilerConfig struct {
	Workers            int `env:"RECONCILER_WORKERS,              default=8"`
	RetryMaxAttempts   int `env:"RECONCILER_RETRY_MAX_ATTEMPTS,   default=5"`
	RetryBaseBackoffMS int `env:"RECONCILER_RETRY_BASE_BACKOFF_MS, default=500"`
	RetryMaxBackoffMS  int `env:"RECONCILER_RETRY_MAX_BACKOFF_MS,  default=30000"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
