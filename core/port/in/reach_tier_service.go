package in

import (
	"context"

	"reach_server/core/domain"

	"github.com/google/uuid"
)

type TierService interface {
	// Preview classifies posted metrics without persisting anything.
	Preview(metrics domain.SocialMetrics) domain.TierResult

	GetCreatorTier(ctx context.Context, creatorID uuid.UUID) (*domain.CreatorTier, error)
	Verify(ctx context.Context, creatorID uuid.UUID, accounts []domain.AccountRef) (*domain.VerificationOutcome, error)
}

type SocialService interface {
	FetchProfile(ctx context.Context, identifier string, platform domain.Platform) (*domain.SocialAnalytics, error)
}

type TierRecomputer interface {
	RecomputeAll(ctx context.Context) (*RecomputeSummary, error)
}

// RecomputeSummary reports one batch recomputation run.
type RecomputeSummary struct {
	Creators int `json:"creators"`
	Changed  int `json:"changed"`
	Failed   int `json:"failed"`
}

type VerifyRequest struct {
	Accounts []domain.AccountRef `json:"accounts"`
}
