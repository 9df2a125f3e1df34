package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("PAYMENT_ASYNC_METHODS", "razorpay, paypal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Store.LowStockThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Store.OrderPaymentTTL)
	assert.Equal(t, RefundKeepUsed, cfg.Store.RefundCodePolicy)
	assert.True(t, cfg.IsAsyncPaymentMethod("razorpay"))
	assert.True(t, cfg.IsAsyncPaymentMethod("PayPal"))
	assert.False(t, cfg.IsAsyncPaymentMethod("cod"))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Host: "db", Name: "n", User: "u"},
			Redis:    RedisConfig{Host: "redis"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Store: StoreConfig{
				OrderPaymentTTL:  time.Minute,
				RefundCodePolicy: RefundMarkError,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }},
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"negative threshold", func(c *Config) { c.Store.LowStockThreshold = -1 }},
		{"zero payment ttl", func(c *Config) { c.Store.OrderPaymentTTL = 0 }},
		{"unknown refund policy", func(c *Config) { c.Store.RefundCodePolicy = "resell" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
