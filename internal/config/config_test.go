package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "catalog.db", cfg.Database.DSN())
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Seed.OnStartup)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "catalog.product_events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "catalog.product_events.audit", cfg.RabbitMQ.Queue)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_QUERY_TIMEOUT", "250ms")
	t.Setenv("SEED_ON_STARTUP", "false")
	t.Setenv("RABBITMQ_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.QueryTimeout)
	assert.False(t, cfg.Seed.OnStartup)
	assert.True(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t,
		"host=db port=5432 user=postgres password=secret dbname=catalog sslmode=disable",
		cfg.Database.DSN())
}

func TestDSNOverride(t *testing.T) {
	d := DatabaseConfig{Driver: "postgres", DSNOverride: "postgres://u:p@h/db", Host: "ignored"}
	assert.Equal(t, "postgres://u:p@h/db", d.DSN())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "development",
			Server:      ServerConfig{Port: ":8080"},
			Database:    DatabaseConfig{Driver: "sqlite", Name: "catalog"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "APP_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unsupported DB_DRIVER"},
		{"production postgres without password", func(c *Config) {
			c.Environment = "production"
			c.Database.Driver = "postgres"
		}, "password is required"},
		{"negative timeout", func(c *Config) { c.Database.QueryTimeout = -time.Second }, "DB_QUERY_TIMEOUT"},
		{"rabbitmq without queue", func(c *Config) {
			c.RabbitMQ = RabbitMQConfig{Enabled: true, URL: "amqp://localhost", Exchange: "catalog"}
		}, "RABBITMQ_QUEUE"},
		{"rabbitmq without exchange", func(c *Config) {
			c.RabbitMQ = RabbitMQConfig{Enabled: true, URL: "amqp://localhost", Queue: "audit"}
		}, "RABBITMQ_EXCHANGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
