package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreatorSocialAccount - stored per-platform snapshot for one creator
type CreatorSocialAccount struct {
	CreatorID      uuid.UUID `json:"creator_id"`
	Platform       Platform  `json:"platform"`
	Handle         string    `json:"handle"`
	Followers      int64     `json:"followers"`
	Following      *int64    `json:"following,omitempty"`
	Posts          *int64    `json:"posts,omitempty"`
	EngagementRate *float64  `json:"engagement_rate,omitempty"`
	QualityScore   *float64  `json:"quality_score,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// NewCreatorSocialAccount snapshots a normalized profile for storage.
func NewCreatorSocialAccount(creatorID uuid.UUID, a *SocialAnalytics) *CreatorSocialAccount {
	m := a.Metrics()
	quality := a.QualityScore
	return &CreatorSocialAccount{
		CreatorID:      creatorID,
		Platform:       a.Platform,
		Handle:         a.Username,
		Followers:      a.Followers,
		Following:      m.Following,
		Posts:          m.PostsOrTweets,
		EngagementRate: m.EngagementRate,
		QualityScore:   &quality,
		FetchedAt:      a.FetchedAt,
	}
}

func (a *CreatorSocialAccount) Metrics() PlatformMetrics {
	return PlatformMetrics{
		Platform:       a.Platform,
		Followers:      a.Followers,
		Following:      a.Following,
		PostsOrTweets:  a.Posts,
		EngagementRate: a.EngagementRate,
	}
}

// MetricsFromAccounts composes stored accounts into one SocialMetrics set.
// When a platform appears twice the most recently fetched snapshot wins.
func MetricsFromAccounts(accounts []*CreatorSocialAccount) SocialMetrics {
	metrics := make(SocialMetrics, len(accounts))
	latest := make(map[Platform]time.Time, len(accounts))
	for _, a := range accounts {
		if a == nil {
			continue
		}
		if seen, ok := latest[a.Platform]; ok && !a.FetchedAt.After(seen) {
			continue
		}
		latest[a.Platform] = a.FetchedAt
		metrics[a.Platform] = a.Metrics()
	}
	return metrics
}

// AccountRef identifies one account a creator asks to verify.
type AccountRef struct {
	Platform   Platform `json:"platform"`
	Identifier string   `json:"identifier"` // username or profile URL
}

// AccountFailure reports an account that could not be normalized.
type AccountFailure struct {
	Platform   Platform `json:"platform"`
	Identifier string   `json:"identifier"`
	Code       string   `json:"code"`
	Message    string   `json:"message"`
}

// VerificationOutcome is returned by the verification workflow.
type VerificationOutcome struct {
	CreatorID   uuid.UUID          `json:"creator_id"`
	Result      TierResult         `json:"result"`
	Previous    *TierResult        `json:"previous,omitempty"`
	TierChanged bool               `json:"tier_changed"`
	Verified    []*SocialAnalytics `json:"verified"`
	Failures    []AccountFailure   `json:"failures,omitempty"`
}

// CreatorRepository - creator social snapshot and tier storage
type CreatorRepository interface {
	UpsertSocialAccount(ctx context.Context, account *CreatorSocialAccount) error
	ListSocialAccounts(ctx context.Context, creatorID uuid.UUID) ([]*CreatorSocialAccount, error)
	ListAllSocialAccounts(ctx context.Context) (map[uuid.UUID][]*CreatorSocialAccount, error)
	GetTier(ctx context.Context, creatorID uuid.UUID) (*CreatorTier, error)
	SaveTier(ctx context.Context, tier *CreatorTier) error
}
