package notification

import (
	"context"
	"errors"
	"testing"

	"reach_server/core/domain"
	"reach_server/core/port/out"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryNotifications struct {
	items     []*domain.Notification
	createErr error
}

func (m *memoryNotifications) Create(_ context.Context, n *domain.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, n)
	return nil
}

func (m *memoryNotifications) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	for _, n := range m.items {
		if n.ID == id && n.UserID == userID {
			return n, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memoryNotifications) List(_ context.Context, f *domain.NotificationFilter) ([]*domain.Notification, int, error) {
	var out []*domain.Notification
	for _, n := range m.items {
		if n.UserID == f.UserID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *memoryNotifications) MarkAsRead(context.Context, uuid.UUID, []uuid.UUID) (int64, error) {
	return 0, nil
}
func (m *memoryNotifications) MarkAllAsRead(context.Context, uuid.UUID) error    { return nil }
func (m *memoryNotifications) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (m *memoryNotifications) DeleteByUserID(context.Context, uuid.UUID) error    { return nil }
func (m *memoryNotifications) CountUnread(context.Context, uuid.UUID) (int64, error) {
	return int64(len(m.items)), nil
}

type memoryTokens struct {
	tokens []*domain.PushToken
}

func (m *memoryTokens) Save(_ context.Context, t *domain.PushToken) error {
	m.tokens = append(m.tokens, t)
	return nil
}

func (m *memoryTokens) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.PushToken, error) {
	var out []*domain.PushToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTokens) Delete(_ context.Context, userID uuid.UUID, token string) error {
	kept := m.tokens[:0]
	for _, t := range m.tokens {
		if t.UserID != userID || t.Token != token {
			kept = append(kept, t)
		}
	}
	m.tokens = kept
	return nil
}

type capturePush struct {
	enabled bool
	sent    []*out.PushMessage
	err     error
}

func (c *capturePush) Enabled() bool { return c.enabled }

func (c *capturePush) Send(_ context.Context, msg *out.PushMessage) error {
	c.sent = append(c.sent, msg)
	return c.err
}

func TestSend_PersistsAndPushesWithRoute(t *testing.T) {
	repo := &memoryNotifications{}
	tokens := &memoryTokens{}
	push := &capturePush{enabled: true}
	svc := NewService(repo, tokens, push)

	user := uuid.New()
	require.NoError(t, svc.RegisterPushToken(context.Background(), &domain.PushToken{UserID: user, Token: " ExponentPushToken[abc] "}))

	n := &domain.Notification{UserID: user, Type: "new_lead", Title: "New lead", Data: map[string]any{"promotion_id": "p1"}}
	require.NoError(t, svc.Send(context.Background(), n, domain.RoleCreator))

	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.False(t, n.CreatedAt.IsZero())
	require.Len(t, repo.items, 1)

	require.Len(t, push.sent, 1)
	msg := push.sent[0]
	assert.Equal(t, []string{"ExponentPushToken[abc]"}, msg.To)
	assert.Equal(t, "/dashboard/creator/my-promotions/p1", msg.Data["route"])
	assert.Equal(t, n.ID.String(), msg.Data["notification_id"])
}

func TestSend_DisabledPushOnlyStores(t *testing.T) {
	repo := &memoryNotifications{}
	push := &capturePush{enabled: false}
	svc := NewService(repo, &memoryTokens{}, push)

	require.NoError(t, svc.Send(context.Background(), &domain.Notification{UserID: uuid.New(), Type: "welcome"}, domain.RoleBuyer))
	assert.Len(t, repo.items, 1)
	assert.Empty(t, push.sent)
}

func TestSend_PushFailureIsNotAnError(t *testing.T) {
	user := uuid.New()
	tokens := &memoryTokens{tokens: []*domain.PushToken{{UserID: user, Token: "t"}}}
	push := &capturePush{enabled: true, err: errors.New("expo down")}
	svc := NewService(&memoryNotifications{}, tokens, push)

	assert.NoError(t, svc.Send(context.Background(), &domain.Notification{UserID: user, Type: "welcome"}, domain.RoleBuyer))
	assert.Len(t, push.sent, 1)
}

func TestSend_PrunesUnregisteredTokens(t *testing.T) {
	user := uuid.New()
	tokens := &memoryTokens{tokens: []*domain.PushToken{{UserID: user, Token: "live"}, {UserID: user, Token: "stale"}}}
	push := &capturePush{enabled: true, err: &out.InvalidTokensError{Tokens: []string{"stale"}}}
	svc := NewService(&memoryNotifications{}, tokens, push)

	require.NoError(t, svc.Send(context.Background(), &domain.Notification{UserID: user, Type: "welcome"}, domain.RoleBuyer))
	require.Len(t, tokens.tokens, 1)
	assert.Equal(t, "live", tokens.tokens[0].Token)
}

func TestUnregisterPushToken(t *testing.T) {
	user := uuid.New()
	tokens := &memoryTokens{tokens: []*domain.PushToken{{UserID: user, Token: "a"}}}
	svc := NewService(&memoryNotifications{}, tokens, nil)

	require.NoError(t, svc.UnregisterPushToken(context.Background(), user, " a "))
	assert.Empty(t, tokens.tokens)
}

func TestSend_StoreFailureIsReturned(t *testing.T) {
	svc := NewService(&memoryNotifications{createErr: errors.New("db down")}, nil, &capturePush{enabled: true})
	assert.Error(t, svc.Send(context.Background(), &domain.Notification{UserID: uuid.New()}, domain.RoleBuyer))
}

func TestList_DecoratesWithViewerRoute(t *testing.T) {
	repo := &memoryNotifications{}
	svc := NewService(repo, nil, nil)
	user := uuid.New()
	ctx := context.Background()

	require.NoError(t, svc.Send(ctx, &domain.Notification{UserID: user, Type: "property_verified", Data: map[string]any{"property_id": "x"}}, domain.RoleBuyer))
	require.NoError(t, svc.Send(ctx, &domain.Notification{UserID: user, Type: "welcome"}, domain.RoleBuyer))

	filter := &domain.NotificationFilter{UserID: user}
	views, total, err := svc.List(ctx, filter, domain.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 50, filter.Limit)
	require.Len(t, views, 2)
	require.NotNil(t, views[0].Route)
	assert.Equal(t, "/property/x", *views[0].Route)
	assert.Nil(t, views[1].Route)

	creatorViews, _, err := svc.List(ctx, filter, domain.RoleCreator)
	require.NoError(t, err)
	assert.Nil(t, creatorViews[0].Route)

	d, err := svc.Route(ctx, user, views[0].ID, domain.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, "/property/x", *d.Route)
}

func TestRegisterPushToken_Empty(t *testing.T) {
	svc := NewService(&memoryNotifications{}, &memoryTokens{}, nil)
	err := svc.RegisterPushToken(context.Background(), &domain.PushToken{UserID: uuid.New(), Token: "   "})
	assert.ErrorIs(t, err, ErrEmptyPushToken)
}
