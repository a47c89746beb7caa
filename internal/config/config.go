// Package config loads process configuration from the environment. Values
// are read once at startup and never mutated afterwards.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvRPCEndpoint        = "SWEEPWATCH_RPC_ENDPOINT"
	EnvWSEndpoint         = "SWEEPWATCH_WS_ENDPOINT"
	EnvWatchAddress       = "SWEEPWATCH_WATCH_ADDRESS"
	EnvDestinationAddress = "SWEEPWATCH_DESTINATION_ADDRESS"
	EnvAccountPassphrase  = "SWEEPWATCH_ACCOUNT_PASSPHRASE"
	EnvPostgresDSN        = "SWEEPWATCH_POSTGRES_DSN"
	EnvClickhouseDSN      = "SWEEPWATCH_CLICKHOUSE_DSN"
	EnvMetricsAddr        = "SWEEPWATCH_METRICS_ADDR"
	EnvQueueCapacity      = "SWEEPWATCH_QUEUE_CAPACITY"
)

// DefaultQueueCapacity bounds the ingest queue.
const DefaultQueueCapacity = 100

// Config is the full process configuration.
type Config struct {
	// Node endpoints
	RPCEndpoint string
	WSEndpoint  string

	// Accounts
	WatchAddress       string
	DestinationAddress string
	AccountPassphrase  string // unlocks the watched account on the node

	// Optional persistence
	PostgresDSN   string
	ClickhouseDSN string

	// Observability
	MetricsAddr string

	// Pipeline
	QueueCapacity int
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored if present. The result is not yet validated; callers
// may override fields from flags before calling Validate.
func Load() (*Config, error) {
	// Best-effort: absence of a .env file is fine
	_ = godotenv.Load()

	cfg := &Config{
		RPCEndpoint:        os.Getenv(EnvRPCEndpoint),
		WSEndpoint:         os.Getenv(EnvWSEndpoint),
		WatchAddress:       os.Getenv(EnvWatchAddress),
		DestinationAddress: os.Getenv(EnvDestinationAddress),
		AccountPassphrase:  os.Getenv(EnvAccountPassphrase),
		PostgresDSN:        os.Getenv(EnvPostgresDSN),
		ClickhouseDSN:      os.Getenv(EnvClickhouseDSN),
		MetricsAddr:        getDefault(EnvMetricsAddr, ":9090"),
		QueueCapacity:      DefaultQueueCapacity,
	}

	if raw := os.Getenv(EnvQueueCapacity); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvQueueCapacity, err)
		}
		cfg.QueueCapacity = n
	}

	return cfg, nil
}

// Validate reports missing or invalid required settings. It must pass before
// any queue or worker is created.
func (c *Config) Validate() error {
	var missing []string
	for _, item := range []struct {
		name  string
		value string
	}{
		{EnvRPCEndpoint, c.RPCEndpoint},
		{EnvWSEndpoint, c.WSEndpoint},
		{EnvWatchAddress, c.WatchAddress},
		{EnvDestinationAddress, c.DestinationAddress},
		{EnvAccountPassphrase, c.AccountPassphrase},
	} {
		if item.value == "" {
			missing = append(missing, item.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive, got %d", c.QueueCapacity)
	}

	return nil
}

func getDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
