package config

import (
	"github.com/garyjia/timesheet-invoicing/internal/container"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/storage"
)

// ToContainerConfig converts the loaded configuration into the container's
// configuration structure
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Storage: container.StorageConfig{
			Driver:  c.Storage.Driver,
			BaseDir: c.Storage.BaseDir,
			S3: storage.S3Config{
				Bucket:    c.Storage.S3.Bucket,
				Prefix:    c.Storage.S3.Prefix,
				Region:    c.Storage.S3.Region,
				Endpoint:  c.Storage.S3.Endpoint,
				AccessKey: c.Storage.S3.AccessKey,
				SecretKey: c.Storage.S3.SecretKey,
			},
		},
		Tokens: container.TokensConfig{
			Driver:        c.Tokens.Driver,
			TTL:           c.Tokens.TTL,
			SweepInterval: c.Tokens.SweepInterval,
			RedisAddr:     c.Tokens.Redis.Addr,
			RedisPassword: c.Tokens.Redis.Password,
			RedisDB:       c.Tokens.Redis.DB,
			RedisPrefix:   c.Tokens.Redis.Prefix,
		},
		Invoice: container.InvoiceConfig{
			NodeID:   c.Invoice.NodeID,
			Timezone: c.Invoice.Timezone,
		},
		Metrics: container.MetricsConfig{
			Enabled:     c.Metrics.Enabled,
			ServiceName: c.Metrics.ServiceName,
			Environment: c.Metrics.Environment,
		},
	}
}
