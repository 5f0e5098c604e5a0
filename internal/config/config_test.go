package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RATE_LIMIT_COOLDOWN", "7s")
	t.Setenv("QUOTA_TIME_ZONE", "Asia/Tokyo")
	t.Setenv("AUTH_PROJECT_ID", "copyink-prod")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Generator.APIKey)
	assert.Equal(t, 7*time.Second, cfg.RateLimit.Cooldown)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.TTL)
	assert.Equal(t, "Asia/Tokyo", cfg.Quota.TimeZone)
	assert.Equal(t, "copyink-prod", cfg.Auth.ProjectID)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Quota.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.Model)
	assert.Equal(t, 3, cfg.Generator.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Generator.BaseDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.Generator.RetryDelay)
	assert.Equal(t, "copy-usage-events", cfg.Kafka.Topics.UsageEvents)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, []string{"*"}, cfg.Security.CORS.AllowedOrigins)
}
