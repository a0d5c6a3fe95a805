// Package container wires the invoicing system together and owns the
// lifecycle of its long-lived components.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/storage"
)

// Config holds all configuration for the Container
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Tokens   TokensConfig
	Invoice  InvoiceConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StorageConfig selects the document storage backend
type StorageConfig struct {
	// Driver is "local" or "s3"
	Driver string

	// BaseDir is the root of the local driver
	BaseDir string

	S3 storage.S3Config
}

// TokensConfig selects the action token store
type TokensConfig struct {
	// Driver is "memory" or "redis"
	Driver string

	TTL           time.Duration
	SweepInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// InvoiceConfig holds invoice generation settings
type InvoiceConfig struct {
	// NodeID distinguishes id generators of concurrently running instances
	NodeID int64

	// Timezone decides the calendar day of issue, due and payment dates
	Timezone string
}

// MetricsConfig controls the Prometheus counters
type MetricsConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/invoicing.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver:  "local",
			BaseDir: "data/documents",
		},
		Tokens: TokensConfig{
			Driver:        "memory",
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
			RedisPrefix:   "invoicing:token:",
		},
		Invoice: InvoiceConfig{
			NodeID:   1,
			Timezone: "UTC",
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			ServiceName: "invoicing",
		},
	}
}

// Validate checks that required configuration values are present
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Storage.Driver {
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Tokens.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown token driver %q", c.Tokens.Driver)
	}

	if _, err := time.LoadLocation(c.Invoice.Timezone); err != nil {
		return fmt.Errorf("invalid invoice timezone: %w", err)
	}
	return nil
}
