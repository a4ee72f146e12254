package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Role - viewer role used for routing and authorization
// =============================================================================

type Role string

const (
	RoleCreator   Role = "creator"
	RoleDeveloper Role = "developer"
	RoleBuyer     Role = "buyer"
	RoleAdmin     Role = "admin"
	RoleAnonymous Role = "anonymous"
)

// ParseRole maps any unknown or empty value to RoleAnonymous.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleCreator, RoleDeveloper, RoleBuyer, RoleAdmin:
		return Role(s)
	default:
		return RoleAnonymous
	}
}

// =============================================================================
// Notification - 사용자 알림 (DB 저장용)
// =============================================================================

type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	IsRead    bool           `json:"is_read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notification types emitted by this service. Other types are created by the
// wider platform and still routed by the resolver.
const (
	NotificationTierUpdated         = "tier_updated"
	NotificationVerificationFailed  = "verification_failed"
	NotificationVerificationSuccess = "verification_complete"
)

// NotificationFilter - 알림 조회 필터
type NotificationFilter struct {
	UserID uuid.UUID
	Type   *string
	IsRead *bool
	Limit  int
	Offset int
}

// NotificationRepository - 알림 저장소 인터페이스
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, filter *NotificationFilter) ([]*Notification, int, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

// =============================================================================
// RouteDecision - derived navigation target for one notification
// =============================================================================

// RouteDecision is nil/nil when the notification should only be marked read.
type RouteDecision struct {
	Route       *string `json:"route"`
	ActionLabel *string `json:"action_label"`
}

// NoRoute is the "mark as read, do not navigate" outcome.
var NoRoute = RouteDecision{}

func (d RouteDecision) Navigates() bool {
	return d.Route != nil
}

// NotificationView is a notification decorated for one viewer.
type NotificationView struct {
	*Notification
	Route       *string `json:"route"`
	ActionLabel *string `json:"action_label"`
}

// =============================================================================
// PushToken - device registration for push delivery
// =============================================================================

type PushToken struct {
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform,omitempty"` // ios, android, web
	CreatedAt time.Time `json:"created_at"`
}

type PushTokenRepository interface {
	Save(ctx context.Context, token *PushToken) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*PushToken, error)
	Delete(ctx context.Context, userID uuid.UUID, token string) error
}
