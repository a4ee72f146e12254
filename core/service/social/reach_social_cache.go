package social

import (
	"context"
	"strings"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/out"
	"reach_server/pkg/logger"
	"reach_server/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

// CachedNormalizer serves normalized profiles from cache and collapses
// concurrent identical lookups into one outbound candidate loop.
type CachedNormalizer struct {
	normalizer *Normalizer
	cache      out.ProfileCache
	flight     singleflight.Group
}

func NewCachedNormalizer(normalizer *Normalizer, cache out.ProfileCache) *CachedNormalizer {
	return &CachedNormalizer{normalizer: normalizer, cache: cache}
}

func (c *CachedNormalizer) FetchProfile(ctx context.Context, identifier string, platform domain.Platform) (*domain.SocialAnalytics, error) {
	username := strings.ToLower(ExtractUsername(identifier))
	if c.cache == nil || username == "" {
		return c.normalizer.FetchProfile(ctx, identifier, platform)
	}

	if cached, ok, err := c.cache.GetProfile(ctx, platform, username); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("profile cache read failed for %s/%s", platform, username)
	} else if ok {
		metrics.SocialCache("hit")
		return cached, nil
	}
	metrics.SocialCache("miss")

	// The shared lookup outlives any one caller: a cancelled request stops
	// waiting but does not fail the others joined on the same key.
	timeout := time.Duration(max(1, len(Candidates(platform, username)))) * c.normalizer.timeout
	ch := c.flight.DoChan(string(platform)+":"+username, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		profile, err := c.normalizer.FetchProfile(lookupCtx, identifier, platform)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SetProfile(lookupCtx, username, profile); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("profile cache write failed for %s/%s", platform, username)
		}
		return profile, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	// copy so callers never share the flight result
	profile := *res.Val.(*domain.SocialAnalytics)
	return &profile, nil
}
