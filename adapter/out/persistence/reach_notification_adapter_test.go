package persistence

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"reach_server/core/domain"
	"reach_server/pkg/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

var notificationCols = []string{"id", "user_id", "type", "title", "body", "data", "is_read", "read_at", "created_at"}

func TestNotificationAdapter_Create(t *testing.T) {
	db, mock := newMockDB(t)
	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Type:      "new_lead",
		Title:     "New lead",
		Data:      map[string]any{"promotion_id": "p1"},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(n.ID, n.UserID, "new_lead", "New lead", nil, `{"promotion_id":"p1"}`, false, n.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewNotificationAdapter(db).Create(context.Background(), n))
}

func TestNotificationAdapter_CreateWithoutData(t *testing.T) {
	db, mock := newMockDB(t)
	n := &domain.Notification{ID: uuid.New(), UserID: uuid.New(), Type: "welcome", Title: "Hi", Body: "Welcome"}

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(n.ID, n.UserID, "welcome", "Hi", "Welcome", nil, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewNotificationAdapter(db).Create(context.Background(), n))
}

func TestNotificationAdapter_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	user, id := uuid.New(), uuid.New()

	mock.ExpectQuery("FROM notifications WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(id, user).
		WillReturnError(sql.ErrNoRows)

	_, err := NewNotificationAdapter(db).GetByID(context.Background(), user, id)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperr.GetHTTPStatus(err))
}

func TestNotificationAdapter_ListWithFilter(t *testing.T) {
	db, mock := newMockDB(t)
	user := uuid.New()
	unread := false
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1 AND is_read = \\$2").
		WithArgs(user, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("ORDER BY created_at DESC LIMIT \\$3 OFFSET \\$4").
		WithArgs(user, false, 20, 40).
		WillReturnRows(sqlmock.NewRows(notificationCols).
			AddRow(id.String(), user.String(), "property_verified", "Verified", nil, []byte(`{"property_id":"x"}`), false, nil, created))

	items, total, err := NewNotificationAdapter(db).List(context.Background(), &domain.NotificationFilter{
		UserID: user,
		IsRead: &unread,
		Limit:  20,
		Offset: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "x", items[0].Data["property_id"])
	assert.Empty(t, items[0].Body)
	assert.Nil(t, items[0].ReadAt)
}

func TestNotificationAdapter_MarkAsRead(t *testing.T) {
	db, mock := newMockDB(t)
	user := uuid.New()

	mock.ExpectExec("UPDATE notifications SET is_read = true").
		WithArgs(user, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewNotificationAdapter(db).MarkAsRead(context.Background(), user, []uuid.UUID{uuid.New(), uuid.New(), uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestNotificationAdapter_MarkAsReadEmpty(t *testing.T) {
	db, _ := newMockDB(t)
	n, err := NewNotificationAdapter(db).MarkAsRead(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationAdapter_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	user, id := uuid.New(), uuid.New()

	mock.ExpectExec("DELETE FROM notifications WHERE id = \\$1 AND user_id = \\$2").
		WithArgs(id, user).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewNotificationAdapter(db).Delete(context.Background(), user, id)
	assert.Equal(t, http.StatusNotFound, apperr.GetHTTPStatus(err))
}

func TestNotificationAdapter_CountUnread(t *testing.T) {
	db, mock := newMockDB(t)
	user := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications WHERE user_id = \\$1 AND is_read = false").
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := NewNotificationAdapter(db).CountUnread(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPushTokenAdapter_SaveAndList(t *testing.T) {
	db, mock := newMockDB(t)
	user := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	adapter := NewPushTokenAdapter(db)

	mock.ExpectExec("INSERT INTO push_tokens").
		WithArgs(user, "ExponentPushToken[a]", "ios", created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM push_tokens WHERE user_id = \\$1").
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "token", "platform", "created_at"}).
			AddRow(user.String(), "ExponentPushToken[a]", "ios", created).
			AddRow(user.String(), "ExponentPushToken[b]", nil, created))

	require.NoError(t, adapter.Save(context.Background(), &domain.PushToken{UserID: user, Token: "ExponentPushToken[a]", Platform: "ios", CreatedAt: created}))

	tokens, err := adapter.ListByUser(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "ios", tokens[0].Platform)
	assert.Empty(t, tokens[1].Platform)
}
