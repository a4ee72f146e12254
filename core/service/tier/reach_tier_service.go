package tier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/core/service/social"
	"reach_server/pkg/logger"
	"reach_server/pkg/metrics"
	"reach_server/pkg/resilience"

	"github.com/failsafe-go/failsafe-go"
	"github.com/google/uuid"
)

var ErrNoAccounts = errors.New("at least one social account is required")

// Notifier delivers a notification to one user.
type Notifier interface {
	Send(ctx context.Context, notification *domain.Notification, recipientRole domain.Role) error
}

// Service runs the verification workflow and serves stored tiers.
type Service struct {
	repo     domain.CreatorRepository
	social   in.SocialService
	notifier Notifier
	retry    failsafe.Executor[any] // optional, wraps tier writes
	now      func() time.Time
}

func NewService(repo domain.CreatorRepository, social in.SocialService, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		social:   social,
		notifier: notifier,
		now:      time.Now,
	}
}

var _ in.TierService = (*Service)(nil)

// WithRetry retries tier writes through executor.
func (s *Service) WithRetry(executor failsafe.Executor[any]) *Service {
	s.retry = executor
	return s
}

// Preview classifies metrics without touching storage.
func (s *Service) Preview(metrics domain.SocialMetrics) domain.TierResult {
	return Calculate(metrics)
}

func (s *Service) GetCreatorTier(ctx context.Context, creatorID uuid.UUID) (*domain.CreatorTier, error) {
	return s.repo.GetTier(ctx, creatorID)
}

// Verify normalizes each account in turn, stores the snapshots, and
// reclassifies the creator over every stored platform. Accounts that fail
// to normalize are reported in the outcome; the tier is still computed from
// whatever is stored.
func (s *Service) Verify(ctx context.Context, creatorID uuid.UUID, accounts []domain.AccountRef) (*domain.VerificationOutcome, error) {
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	log := logger.WithContext(ctx).WithField("creator_id", creatorID)

	previous, err := s.repo.GetTier(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("load current tier: %w", err)
	}

	outcome := &domain.VerificationOutcome{CreatorID: creatorID}
	for _, acc := range accounts {
		profile, err := s.social.FetchProfile(ctx, acc.Identifier, acc.Platform)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			appErr := social.ToAppError(err)
			log.WithError(err).Warn("verification of %s account %q failed", acc.Platform, acc.Identifier)
			outcome.Failures = append(outcome.Failures, domain.AccountFailure{
				Platform:   acc.Platform,
				Identifier: acc.Identifier,
				Code:       appErr.Code,
				Message:    appErr.Message,
			})
			continue
		}

		if err := s.repo.UpsertSocialAccount(ctx, domain.NewCreatorSocialAccount(creatorID, profile)); err != nil {
			return nil, fmt.Errorf("store %s snapshot: %w", acc.Platform, err)
		}
		outcome.Verified = append(outcome.Verified, profile)
	}

	stored, err := s.repo.ListSocialAccounts(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	result, changed, err := s.reclassify(ctx, creatorID, stored, previous)
	if err != nil {
		return nil, err
	}
	outcome.Result = result
	outcome.TierChanged = changed
	if previous != nil {
		prev := previous.Result
		outcome.Previous = &prev
	}

	log.Info("creator verified: %s (rule %s, %d ok, %d failed)",
		result.TierName, result.Trace.Rule, len(outcome.Verified), len(outcome.Failures))
	return outcome, nil
}

// reclassify stores a fresh tier for one creator and announces a change.
func (s *Service) reclassify(ctx context.Context, creatorID uuid.UUID, accounts []*domain.CreatorSocialAccount, previous *domain.CreatorTier) (domain.TierResult, bool, error) {
	result := Calculate(domain.MetricsFromAccounts(accounts))
	metrics.TierCalculated(domain.TierLabel(result.Tier), result.Trace.Rule)

	record := &domain.CreatorTier{
		CreatorID:    creatorID,
		Result:       result,
		CalculatedAt: s.now().UTC(),
	}
	if err := s.withRetry(ctx, func() error { return s.repo.SaveTier(ctx, record) }); err != nil {
		return result, false, fmt.Errorf("save tier: %w", err)
	}

	changed := tierChanged(previous, &result)
	if changed {
		s.announce(ctx, creatorID, previous, &result)
	}
	return result, changed, nil
}

func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	if s.retry == nil {
		return fn()
	}
	return resilience.Run(ctx, s.retry, fn)
}

func tierChanged(previous *domain.CreatorTier, result *domain.TierResult) bool {
	if previous == nil {
		return result.Tier != nil
	}
	return !previous.Result.SameTier(result)
}

// announce never fails the workflow; the tier is already stored.
func (s *Service) announce(ctx context.Context, creatorID uuid.UUID, previous *domain.CreatorTier, result *domain.TierResult) {
	if s.notifier == nil {
		return
	}
	n := TierNotification(creatorID, previous, result)
	if err := s.notifier.Send(ctx, n, domain.RoleCreator); err != nil {
		logger.WithContext(ctx).WithError(err).WithField("creator_id", creatorID).Warn("tier notification failed")
	}
}

// TierNotification builds the tier_updated notification for a creator.
func TierNotification(creatorID uuid.UUID, previous *domain.CreatorTier, result *domain.TierResult) *domain.Notification {
	data := map[string]any{
		"creator_id":      creatorID.String(),
		"tier":            result.Tier,
		"tier_name":       result.TierName,
		"commission_rate": result.CommissionRate,
	}
	from := domain.NotQualifiedName
	if previous != nil {
		from = previous.Result.TierName
		data["previous_tier"] = previous.Result.Tier
	}

	body := fmt.Sprintf("Your creator tier changed from %s to %s.", from, result.TierName)
	if result.Tier != nil {
		body += fmt.Sprintf(" Your commission rate is now %s%%.", formatFloat(round2(result.CommissionRate*100)))
	} else if result.Reason != "" {
		body += " " + result.Reason
	}

	return &domain.Notification{
		UserID: creatorID,
		Type:   domain.NotificationTierUpdated,
		Title:  "Creator tier updated",
		Body:   body,
		Data:   data,
	}
}
