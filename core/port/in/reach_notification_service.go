package in

import (
	"context"

	"reach_server/core/domain"

	"github.com/google/uuid"
)

type NotificationService interface {
	Send(ctx context.Context, notification *domain.Notification, recipientRole domain.Role) error
	List(ctx context.Context, filter *domain.NotificationFilter, role domain.Role) ([]*domain.NotificationView, int, error)
	Route(ctx context.Context, userID, id uuid.UUID, role domain.Role) (domain.RouteDecision, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) error
	RegisterPushToken(ctx context.Context, token *domain.PushToken) error
	UnregisterPushToken(ctx context.Context, userID uuid.UUID, token string) error
}

type MarkReadRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type RegisterPushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform,omitempty"`
}
