package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reach")
	t.Setenv("ENV", "")
	t.Setenv("PUSH_ACCESS_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.SocialAPITimeout)
	assert.Equal(t, 6*time.Hour, cfg.SocialCacheTTL)
	assert.Equal(t, "@every 6h", cfg.TierRecomputeSchedule)
	assert.Equal(t, 8, cfg.TierRecomputeWorkers)
	assert.True(t, cfg.SchedulerEnabled)
	assert.False(t, cfg.PushEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reach")
	t.Setenv("ENV", "production")
	t.Setenv("SOCIAL_API_TIMEOUT_SEC", "3")
	t.Setenv("SOCIAL_API_RPS", "0.5")
	t.Setenv("TIER_RECOMPUTE_WORKERS", "0")
	t.Setenv("ALLOWED_ORIGINS", "https://app.reach.dev, https://admin.reach.dev,")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("PUSH_ACCESS_TOKEN", "expo-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Second, cfg.SocialAPITimeout)
	assert.Equal(t, 0.5, cfg.SocialAPIRPS)
	assert.Equal(t, 1, cfg.TierRecomputeWorkers)
	assert.Equal(t, []string{"https://app.reach.dev", "https://admin.reach.dev"}, cfg.AllowedOrigins)
	assert.False(t, cfg.SchedulerEnabled)
	assert.True(t, cfg.PushEnabled())
}

func TestGetEnvHelpers_IgnoreMalformed(t *testing.T) {
	t.Setenv("REACH_INT", "twelve")
	t.Setenv("REACH_BOOL", "maybe")
	assert.Equal(t, 12, getEnvInt("REACH_INT", 12))
	assert.True(t, getEnvBool("REACH_BOOL", true))
}
