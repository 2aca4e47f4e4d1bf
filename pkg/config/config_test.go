package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  name: storefront-test
  port: 8080
mongodb:
  uri: mongodb://mongo:27017
  database: shop
auth:
  jwt_secret: s3cret
orders:
  require_payment_before_delivery: true
notify:
  base_delay: 250ms
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "storefront-test", cfg.Server.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "mongodb://mongo:27017", cfg.MongoDB.URI)
	assert.Equal(t, "orders", cfg.MongoDB.OrdersCollection)
	assert.True(t, cfg.Orders.RequirePaymentBeforeDelivery)
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.BaseDelay)
	assert.Equal(t, 30*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "redis", cfg.Events.Driver)
	assert.Equal(t, "USD", cfg.PayPal.Currency)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("STOREFRONT_SERVER_PORT", "9090")
	t.Setenv("STOREFRONT_MONGODB_DATABASE", "from-env")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.MongoDB.Database)
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv("STOREFRONT_AUTH_JWT_SECRET", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Notify.MaxDelay)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "server:\n  port: 1\n"},
		{"unknown driver", "auth:\n  jwt_secret: x\nevents:\n  driver: kafka\n"},
		{"sqs without queue", "auth:\n  jwt_secret: x\nevents:\n  driver: sqs\n"},
		{"max delay below base", "auth:\n  jwt_secret: x\nnotify:\n  base_delay: 10s\n  max_delay: 1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMySQLDSN(t *testing.T) {
	c := MySQLConfig{Host: "db", Port: 3306, Username: "u", Password: "p", Database: "shop"}
	assert.Equal(t, "u:p@tcp(db:3306)/shop?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "storefront", cfg.Server.Name)
	assert.Equal(t, "redis", cfg.Events.Driver)
	assert.Equal(t, []string{"localhost:2379"}, cfg.Etcd.Endpoints)
	assert.False(t, cfg.Orders.RequirePaymentBeforeDelivery)
}
