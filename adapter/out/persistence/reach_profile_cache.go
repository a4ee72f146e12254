package persistence

import (
	"context"
	"strings"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/out"
	"reach_server/pkg/cache"
)

// DefaultProfileTTL bounds how stale a cached profile may be.
const DefaultProfileTTL = 6 * time.Hour

// ProfileCacheAdapter implements out.ProfileCache on Redis.
// Keys are social:{platform}:{username}.
type ProfileCacheAdapter struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewProfileCacheAdapter creates a new profile cache.
func NewProfileCacheAdapter(c *cache.RedisCache, ttl time.Duration) *ProfileCacheAdapter {
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileCacheAdapter{cache: c, ttl: ttl}
}

var _ out.ProfileCache = (*ProfileCacheAdapter)(nil)

func profileKey(platform domain.Platform, username string) string {
	return "social:" + string(platform) + ":" + strings.ToLower(username)
}

// GetProfile returns a cached profile, if any.
func (a *ProfileCacheAdapter) GetProfile(ctx context.Context, platform domain.Platform, username string) (*domain.SocialAnalytics, bool, error) {
	var profile domain.SocialAnalytics
	ok, err := a.cache.GetJSON(ctx, profileKey(platform, username), &profile)
	if err != nil || !ok {
		return nil, false, err
	}
	return &profile, true, nil
}

// SetProfile stores a profile under the username it was requested by.
func (a *ProfileCacheAdapter) SetProfile(ctx context.Context, username string, profile *domain.SocialAnalytics) error {
	return a.cache.SetJSON(ctx, profileKey(profile.Platform, username), profile, a.ttl)
}
