package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := FromMap(context.Background(), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.Identity.Timeout)
	assert.Equal(t, "Bearer ", cfg.Identity.StripPrefix)
	assert.Equal(t, time.Hour, cfg.Verification.StaleAfter)
	assert.Equal(t, 20, cfg.Verification.MinCredentialLength)
	assert.Equal(t, 5, cfg.Verification.SubmitLimit)
	assert.Equal(t, time.Minute, cfg.Verification.SubmitWindow)
	assert.Equal(t, 100, cfg.Store.Window)
	assert.Equal(t, TransportMemory, cfg.Chat.Transport)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := FromMap(context.Background(), map[string]string{
		"VERIFY_STALE_AFTER":    "30m",
		"STORE_WINDOW":          "50",
		"CHAT_TRANSPORT":        "redis",
		"REDIS_URL":             "redis://localhost:6379/0",
		"KAFKA_BROKERS":         "k1:9092,k2:9092",
		"IDENTITY_ENDPOINT":     "https://identity.test/v1/me",
		"HTTP_ADMIN_TOKEN":      "s3cret",
		"HTTP_SERVICE_TOKEN":    "svc-token",
		"CHAT_GUILD_NAME":       "Makers",
		"VERIGATE_ENV":          "prod",
		"IDENTITY_TIMEOUT":      "2s",
		"CHAT_AUDIT_CHANNEL_ID": "audit",
	})
	require.NoError(t, err)

	assert.False(t, cfg.IsDev())
	assert.Equal(t, 30*time.Minute, cfg.Verification.StaleAfter)
	assert.Equal(t, 50, cfg.Store.Window)
	assert.Equal(t, TransportRedis, cfg.Chat.Transport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://identity.test/v1/me", cfg.Identity.Endpoint)
	assert.Equal(t, "s3cret", cfg.HTTP.AdminToken)
	assert.Equal(t, "svc-token", cfg.HTTP.ServiceToken)
	assert.Equal(t, "audit", cfg.Chat.AuditChannelID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"discord without token", map[string]string{"CHAT_TRANSPORT": "discord"}},
		{"redis without url", map[string]string{"CHAT_TRANSPORT": "redis"}},
		{"unknown transport", map[string]string{"CHAT_TRANSPORT": "carrier-pigeon"}},
		{"window above platform page size", map[string]string{"STORE_WINDOW": "500"}},
		{"zero staleness", map[string]string{"VERIFY_STALE_AFTER": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(context.Background(), tt.env)
			assert.Error(t, err)
		})
	}
}
