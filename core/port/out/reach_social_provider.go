package out

import (
	"context"
	"errors"

	"reach_server/core/domain"
)

// ErrCandidateNotFound is returned by SocialAnalyticsProvider when the
// analytics API answers 404 for one identifier candidate.
var ErrCandidateNotFound = errors.New("candidate not found")

// SocialAnalyticsProvider - third-party analytics API (raw transport only)
type SocialAnalyticsProvider interface {
	// Configured reports whether credentials are present.
	Configured() bool

	// LookupCommunity queries the community endpoint for one candidate.
	// cid is the platform code ("INST", "TW").
	LookupCommunity(ctx context.Context, platform domain.Platform, cid, candidate string) ([]byte, error)

	// LookupTikTokUser queries the TikTok user-info endpoint.
	LookupTikTokUser(ctx context.Context, username string) ([]byte, error)
}

// ProfileCache - normalized profile cache
type ProfileCache interface {
	GetProfile(ctx context.Context, platform domain.Platform, username string) (*domain.SocialAnalytics, bool, error)
	SetProfile(ctx context.Context, username string, profile *domain.SocialAnalytics) error
}
