package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Tokens.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Tokens.TTL)
	assert.Equal(t, "UTC", cfg.Invoice.Timezone)
	assert.Equal(t, "invoicing:token:", cfg.Tokens.Redis.Prefix)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  driver: s3
  s3:
    bucket: invoices
    region: eu-central-1
tokens:
  driver: redis
  ttl: 10m
invoice:
  timezone: Europe/Berlin
`)
	t.Setenv("INVOICE_TOKENS_REDIS_ADDR", "redis:6379")
	t.Setenv("INVOICE_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "invoices", cfg.Storage.S3.Bucket)
	assert.Equal(t, "redis:6379", cfg.Tokens.Redis.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Tokens.TTL)
	assert.Equal(t, "Europe/Berlin", cfg.Invoice.Timezone)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "s3", cc.Storage.Driver)
	assert.Equal(t, "invoices", cc.Storage.S3.Bucket)
	assert.Equal(t, "redis:6379", cc.Tokens.RedisAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "ftp" }, "storage.driver"},
		{"s3 without bucket", func(c *Config) { c.Storage.Driver = "s3" }, "storage.s3.bucket"},
		{"unknown tokens", func(c *Config) { c.Tokens.Driver = "file" }, "tokens.driver"},
		{"zero ttl", func(c *Config) { c.Tokens.TTL = 0 }, "tokens.ttl"},
		{"node out of range", func(c *Config) { c.Invoice.NodeID = 1024 }, "invoice.node_id"},
		{"bad timezone", func(c *Config) { c.Invoice.Timezone = "Mars/Olympus" }, "invoice.timezone"},
		{"negative rate", func(c *Config) { c.RateLimit.Burst = -1 }, "ratelimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
