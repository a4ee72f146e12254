package persistence

import (
	"context"
	"database/sql"
	"time"

	"reach_server/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PushTokenAdapter implements domain.PushTokenRepository using PostgreSQL.
type PushTokenAdapter struct {
	db *sqlx.DB
}

// NewPushTokenAdapter creates a new push token adapter.
func NewPushTokenAdapter(db *sqlx.DB) *PushTokenAdapter {
	return &PushTokenAdapter{db: db}
}

type pushTokenRow struct {
	UserID    uuid.UUID      `db:"user_id"`
	Token     string         `db:"token"`
	Platform  sql.NullString `db:"platform"`
	CreatedAt time.Time      `db:"created_at"`
}

// Save registers token for the user. A token moves to the most recent user
// that registered it.
func (a *PushTokenAdapter) Save(ctx context.Context, token *domain.PushToken) error {
	var platform sql.NullString
	if token.Platform != "" {
		platform = sql.NullString{String: token.Platform, Valid: true}
	}
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO push_tokens (user_id, token, platform, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`, token.UserID, token.Token, platform, token.CreatedAt)
	return dbError("push token", "save push token", err)
}

// ListByUser returns the user's registered tokens.
func (a *PushTokenAdapter) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.PushToken, error) {
	var rows []pushTokenRow
	if err := a.db.SelectContext(ctx, &rows,
		`SELECT user_id, token, platform, created_at FROM push_tokens WHERE user_id = $1 ORDER BY created_at`, userID); err != nil {
		return nil, dbError("push token", "list push tokens", err)
	}

	tokens := make([]*domain.PushToken, len(rows))
	for i, r := range rows {
		tokens[i] = &domain.PushToken{
			UserID:    r.UserID,
			Token:     r.Token,
			Platform:  r.Platform.String,
			CreatedAt: r.CreatedAt,
		}
	}
	return tokens, nil
}

// Delete removes one of the user's tokens.
func (a *PushTokenAdapter) Delete(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	return dbError("push token", "delete push token", err)
}

var _ domain.PushTokenRepository = (*PushTokenAdapter)(nil)
