package persistence

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"reach_server/core/domain"
	"reach_server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NotificationAdapter implements domain.NotificationRepository using PostgreSQL.
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new notification adapter.
func NewNotificationAdapter(db *sqlx.DB) *NotificationAdapter {
	return &NotificationAdapter{db: db}
}

const notificationColumns = `id, user_id, type, title, body, data, is_read, read_at, created_at`

// notificationRow represents the database row.
type notificationRow struct {
	ID        uuid.UUID      `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	Type      string         `db:"type"`
	Title     string         `db:"title"`
	Body      sql.NullString `db:"body"`
	Data      []byte         `db:"data"`
	IsRead    bool           `db:"is_read"`
	ReadAt    sql.NullTime   `db:"read_at"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r *notificationRow) toDomain() *domain.Notification {
	n := &domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Type:      r.Type,
		Title:     r.Title,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}

	if r.Body.Valid {
		n.Body = r.Body.String
	}
	if r.ReadAt.Valid {
		n.ReadAt = &r.ReadAt.Time
	}
	if len(r.Data) > 0 {
		// Unreadable metadata only costs the route; the notification still lists.
		if err := json.Unmarshal(r.Data, &n.Data); err != nil {
			logger.WithField("notification_id", r.ID).WithError(err).Warn("unreadable notification data")
		}
	}

	return n
}

// Create creates a new notification.
func (a *NotificationAdapter) Create(ctx context.Context, notification *domain.Notification) error {
	var data any
	if len(notification.Data) > 0 {
		b, err := json.Marshal(notification.Data)
		if err != nil {
			return err
		}
		data = string(b)
	}

	var body sql.NullString
	if notification.Body != "" {
		body = sql.NullString{String: notification.Body, Valid: true}
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, body, data, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := a.db.ExecContext(ctx, query,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		body,
		data,
		notification.IsRead,
		notification.CreatedAt,
	)
	return dbError("notification", "create notification", err)
}

// GetByID retrieves one of the user's notifications.
func (a *NotificationAdapter) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND user_id = $2`

	var row notificationRow
	if err := a.db.GetContext(ctx, &row, query, id, userID); err != nil {
		return nil, dbError("notification", "get notification", err)
	}

	return row.toDomain(), nil
}

// List lists notifications with filter, newest first.
func (a *NotificationAdapter) List(ctx context.Context, filter *domain.NotificationFilter) ([]*domain.Notification, int, error) {
	baseQuery := ` FROM notifications WHERE user_id = $1`
	args := []any{filter.UserID}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		baseQuery += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		baseQuery += ` AND is_read = $` + strconv.Itoa(len(args))
	}

	// Count total
	var total int
	if err := a.db.GetContext(ctx, &total, `SELECT COUNT(*)`+baseQuery, args...); err != nil {
		return nil, 0, dbError("notification", "count notifications", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	selectQuery := `SELECT ` + notificationColumns + baseQuery +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	var rows []notificationRow
	if err := a.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, 0, dbError("notification", "list notifications", err)
	}

	notifications := make([]*domain.Notification, len(rows))
	for i := range rows {
		notifications[i] = rows[i].toDomain()
	}

	return notifications, total, nil
}

// MarkAsRead marks the given notifications as read and returns how many changed.
func (a *NotificationAdapter) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	res, err := a.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = true, read_at = NOW()
		WHERE user_id = $1 AND id = ANY($2::uuid[]) AND is_read = false
	`, userID, pq.Array(strIDs))
	if err != nil {
		return 0, dbError("notification", "mark notifications read", err)
	}
	return res.RowsAffected()
}

// MarkAllAsRead marks all notifications as read for a user.
func (a *NotificationAdapter) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx, `UPDATE notifications SET is_read = true, read_at = NOW() WHERE user_id = $1 AND is_read = false`, userID)
	return dbError("notification", "mark all notifications read", err)
}

// Delete deletes one of the user's notifications.
func (a *NotificationAdapter) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := a.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err == nil {
		err = requireAffected(res)
	}
	return dbError("notification", "delete notification", err)
}

// DeleteByUserID deletes all notifications for a user.
func (a *NotificationAdapter) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	return dbError("notification", "delete notifications", err)
}

// CountUnread returns the count of unread notifications.
func (a *NotificationAdapter) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := a.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID)
	return count, dbError("notification", "count unread notifications", err)
}

// Ensure interface compliance
var _ domain.NotificationRepository = (*NotificationAdapter)(nil)
