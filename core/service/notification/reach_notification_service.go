package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/in"
	"reach_server/core/port/out"
	"reach_server/pkg/logger"
	"reach_server/pkg/metrics"

	"github.com/google/uuid"
)

var ErrEmptyPushToken = errors.New("push token is required")

// Service handles notification operations.
type Service struct {
	notificationRepo domain.NotificationRepository
	tokenRepo        domain.PushTokenRepository
	push             out.PushSender
	now              func() time.Time
}

// NewService creates a new notification service. push may be a disabled
// sender, in which case notifications are only stored.
func NewService(notificationRepo domain.NotificationRepository, tokenRepo domain.PushTokenRepository, push out.PushSender) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		tokenRepo:        tokenRepo,
		push:             push,
		now:              time.Now,
	}
}

var _ in.NotificationService = (*Service)(nil)

// Send persists a notification and pushes it to the recipient's devices.
// Push failures are logged; the stored notification is the source of truth.
func (s *Service) Send(ctx context.Context, notification *domain.Notification, recipientRole domain.Role) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now().UTC()
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}

	if s.push == nil || !s.push.Enabled() || s.tokenRepo == nil {
		return nil
	}
	if err := s.pushToDevices(ctx, notification, recipientRole); err != nil {
		metrics.PushDelivered("failed")
		logger.WithContext(ctx).WithError(err).
			WithField("notification_id", notification.ID).
			Warn("push delivery failed")
	}
	return nil
}

func (s *Service) pushToDevices(ctx context.Context, n *domain.Notification, role domain.Role) error {
	tokens, err := s.tokenRepo.ListByUser(ctx, n.UserID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		metrics.PushDelivered("no_devices")
		return nil
	}

	to := make([]string, 0, len(tokens))
	for _, t := range tokens {
		to = append(to, t.Token)
	}

	data := map[string]any{
		"notification_id": n.ID.String(),
		"type":            n.Type,
	}
	if d := ResolveRoute(n.Type, n.Data, role); d.Navigates() {
		data["route"] = *d.Route
	}

	err = s.push.Send(ctx, &out.PushMessage{
		To:    to,
		Title: n.Title,
		Body:  n.Body,
		Data:  data,
	})
	var invalid *out.InvalidTokensError
	if errors.As(err, &invalid) {
		s.pruneTokens(ctx, n.UserID, invalid.Tokens)
		err = nil
	}
	if err != nil {
		return err
	}
	metrics.PushDelivered("sent")
	return nil
}

func (s *Service) pruneTokens(ctx context.Context, userID uuid.UUID, tokens []string) {
	for _, t := range tokens {
		if err := s.tokenRepo.Delete(ctx, userID, t); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("failed to prune push token")
			continue
		}
		metrics.PushDelivered("pruned")
	}
}

// List returns notifications decorated with the route for the viewer.
func (s *Service) List(ctx context.Context, filter *domain.NotificationFilter, role domain.Role) ([]*domain.NotificationView, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.notificationRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*domain.NotificationView, 0, len(items))
	for _, n := range items {
		d := ResolveRoute(n.Type, n.Data, role)
		views = append(views, &domain.NotificationView{
			Notification: n,
			Route:        d.Route,
			ActionLabel:  d.ActionLabel,
		})
	}
	return views, total, nil
}

// Route resolves the navigation target for one stored notification.
func (s *Service) Route(ctx context.Context, userID, id uuid.UUID, role domain.Role) (domain.RouteDecision, error) {
	n, err := s.notificationRepo.GetByID(ctx, userID, id)
	if err != nil {
		return domain.NoRoute, err
	}
	return ResolveRoute(n.Type, n.Data, role), nil
}

// GetUnreadCount returns the unread notification count.
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkAsRead marks notifications as read.
func (s *Service) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.notificationRepo.MarkAsRead(ctx, userID, ids)
}

// MarkAllAsRead marks all notifications as read.
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}

// Delete deletes a notification.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.notificationRepo.Delete(ctx, userID, id)
}

// DeleteAll deletes all notifications for a user.
func (s *Service) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return s.notificationRepo.DeleteByUserID(ctx, userID)
}

// RegisterPushToken stores a device token for later pushes.
func (s *Service) RegisterPushToken(ctx context.Context, token *domain.PushToken) error {
	token.Token = strings.TrimSpace(token.Token)
	if token.Token == "" {
		return ErrEmptyPushToken
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = s.now().UTC()
	}
	return s.tokenRepo.Save(ctx, token)
}

// UnregisterPushToken removes a device token, e.g. on sign-out.
func (s *Service) UnregisterPushToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyPushToken
	}
	return s.tokenRepo.Delete(ctx, userID, token)
}
