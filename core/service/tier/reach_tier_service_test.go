package tier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"reach_server/core/domain"
	"reach_server/core/service/social"
	"reach_server/pkg/resilience"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]map[domain.Platform]*domain.CreatorSocialAccount
	tiers     map[uuid.UUID]*domain.CreatorTier
	saveFails int // SaveTier fails this many times before succeeding
	saves     int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: make(map[uuid.UUID]map[domain.Platform]*domain.CreatorSocialAccount),
		tiers:    make(map[uuid.UUID]*domain.CreatorTier),
	}
}

func (m *memoryRepo) UpsertSocialAccount(_ context.Context, a *domain.CreatorSocialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts[a.CreatorID] == nil {
		m.accounts[a.CreatorID] = make(map[domain.Platform]*domain.CreatorSocialAccount)
	}
	m.accounts[a.CreatorID][a.Platform] = a
	return nil
}

func (m *memoryRepo) ListSocialAccounts(_ context.Context, creatorID uuid.UUID) ([]*domain.CreatorSocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CreatorSocialAccount
	for _, a := range m.accounts[creatorID] {
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryRepo) ListAllSocialAccounts(_ context.Context) (map[uuid.UUID][]*domain.CreatorSocialAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID][]*domain.CreatorSocialAccount, len(m.accounts))
	for id, byPlatform := range m.accounts {
		for _, a := range byPlatform {
			out[id] = append(out[id], a)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetTier(_ context.Context, creatorID uuid.UUID) (*domain.CreatorTier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tiers[creatorID], nil
}

func (m *memoryRepo) SaveTier(_ context.Context, t *domain.CreatorTier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveFails > 0 {
		m.saveFails--
		return errors.New("connection reset")
	}
	m.tiers[t.CreatorID] = t
	return nil
}

type stubSocial struct {
	profiles map[string]*domain.SocialAnalytics
	err      map[string]error
}

func (s *stubSocial) FetchProfile(_ context.Context, identifier string, platform domain.Platform) (*domain.SocialAnalytics, error) {
	key := string(platform) + "/" + identifier
	if err, ok := s.err[key]; ok {
		return nil, err
	}
	if p, ok := s.profiles[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", social.ErrNotFound, identifier)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*domain.Notification
}

func (r *recordingNotifier) Send(_ context.Context, n *domain.Notification, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role != domain.RoleCreator {
		return fmt.Errorf("unexpected role %s", role)
	}
	r.sent = append(r.sent, n)
	return nil
}

func profile(platform domain.Platform, followers int64, engagement float64) *domain.SocialAnalytics {
	return &domain.SocialAnalytics{
		Platform:        platform,
		Username:        "jane",
		Followers:       followers,
		EngagementRate:  engagement,
		EngagementKnown: true,
		QualityScore:    80,
		FetchedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestVerify_ComputesStoresAndNotifies(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	soc := &stubSocial{profiles: map[string]*domain.SocialAnalytics{
		"instagram/jane": profile(domain.PlatformInstagram, 150_000, 3.5),
	}}
	svc := NewService(repo, soc, notifier)
	creator := uuid.New()

	out, err := svc.Verify(context.Background(), creator, []domain.AccountRef{
		{Platform: domain.PlatformInstagram, Identifier: "jane"},
		{Platform: domain.PlatformTwitter, Identifier: "ghost"},
	})
	require.NoError(t, err)

	require.NotNil(t, out.Result.Tier)
	assert.Equal(t, domain.Tier1, *out.Result.Tier)
	assert.True(t, out.TierChanged)
	assert.Nil(t, out.Previous)
	assert.Len(t, out.Verified, 1)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "NOT_FOUND", out.Failures[0].Code)
	assert.Equal(t, domain.PlatformTwitter, out.Failures[0].Platform)

	stored, err := repo.GetTier(context.Background(), creator)
	require.NoError(t, err)
	assert.Equal(t, out.Result, stored.Result)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, domain.NotificationTierUpdated, n.Type)
	assert.Equal(t, creator, n.UserID)
	assert.Contains(t, n.Body, "Platinum")
	assert.Contains(t, n.Body, "5%")
}

func TestVerify_UnchangedTierDoesNotNotify(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	soc := &stubSocial{profiles: map[string]*domain.SocialAnalytics{
		"twitter/jane": profile(domain.PlatformTwitter, 60_000, 1.0),
	}}
	svc := NewService(repo, soc, notifier)
	creator := uuid.New()
	accounts := []domain.AccountRef{{Platform: domain.PlatformTwitter, Identifier: "jane"}}

	_, err := svc.Verify(context.Background(), creator, accounts)
	require.NoError(t, err)
	out, err := svc.Verify(context.Background(), creator, accounts)
	require.NoError(t, err)

	assert.False(t, out.TierChanged)
	require.NotNil(t, out.Previous)
	assert.Equal(t, domain.Tier3, *out.Previous.Tier)
	assert.Len(t, notifier.sent, 1)
}

func TestVerify_FirstDisqualificationIsNotAChange(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	svc := NewService(repo, &stubSocial{}, notifier)

	out, err := svc.Verify(context.Background(), uuid.New(), []domain.AccountRef{
		{Platform: domain.PlatformFacebook, Identifier: "jane"},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Result.Tier)
	assert.False(t, out.TierChanged)
	assert.Empty(t, notifier.sent)
}

func TestVerify_MissingEngagementIsEstimated(t *testing.T) {
	repo := newMemoryRepo()
	p := profile(domain.PlatformInstagram, 12_000, 0)
	p.EngagementKnown = false
	p.Posts = 600
	svc := NewService(repo, &stubSocial{profiles: map[string]*domain.SocialAnalytics{"instagram/jane": p}}, nil)
	creator := uuid.New()

	out, err := svc.Verify(context.Background(), creator, []domain.AccountRef{{Platform: domain.PlatformInstagram, Identifier: "jane"}})
	require.NoError(t, err)

	stored, err := repo.ListSocialAccounts(context.Background(), creator)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].EngagementRate)

	require.NotNil(t, out.Result.Tier)
	assert.Equal(t, domain.Tier3, *out.Result.Tier)
	assert.Equal(t, Rule10KQualified, out.Result.Trace.Rule)
	require.Len(t, out.Result.Trace.Platforms, 1)
	assert.Equal(t, domain.SourceEstimated, out.Result.Trace.Platforms[0].EngagementSource)
	assert.Equal(t, 5.0, out.Result.Trace.Platforms[0].EngagementRate)
}

func TestVerify_NoAccounts(t *testing.T) {
	svc := NewService(newMemoryRepo(), &stubSocial{}, nil)
	_, err := svc.Verify(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrNoAccounts)
}

func TestVerify_RetriesTierWrite(t *testing.T) {
	repo := newMemoryRepo()
	repo.saveFails = 2
	soc := &stubSocial{profiles: map[string]*domain.SocialAnalytics{
		"tiktok/jane": profile(domain.PlatformTikTok, 20_000, 2),
	}}
	svc := NewService(repo, soc, nil).WithRetry(resilience.NewRetryExecutor(resilience.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}))

	_, err := svc.Verify(context.Background(), uuid.New(), []domain.AccountRef{{Platform: domain.PlatformTikTok, Identifier: "jane"}})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.saves)
}

func TestRecomputer_RecomputeAll(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &recordingNotifier{}
	ctx := context.Background()

	upgraded, steady := uuid.New(), uuid.New()
	for _, a := range []*domain.CreatorSocialAccount{
		domain.NewCreatorSocialAccount(upgraded, profile(domain.PlatformInstagram, 150_000, 3.5)),
		domain.NewCreatorSocialAccount(steady, profile(domain.PlatformTwitter, 60_000, 1.0)),
	} {
		require.NoError(t, repo.UpsertSocialAccount(ctx, a))
	}
	t3, t2 := domain.Tier3, domain.Tier2
	repo.tiers[upgraded] = &domain.CreatorTier{CreatorID: upgraded, Result: domain.TierResult{Tier: &t2, TierName: "Gold"}}
	repo.tiers[steady] = &domain.CreatorTier{CreatorID: steady, Result: domain.TierResult{Tier: &t3, TierName: "Silver"}}

	r := NewRecomputer(NewService(repo, &stubSocial{}, notifier), 4, zerolog.Nop())
	summary, err := r.RecomputeAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Creators)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, domain.Tier1, *repo.tiers[upgraded].Result.Tier)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, upgraded, notifier.sent[0].UserID)
	assert.Contains(t, notifier.sent[0].Body, "from Gold to Platinum")
}

func TestRecomputer_CountsFailures(t *testing.T) {
	repo := newMemoryRepo()
	repo.saveFails = 1
	ctx := context.Background()
	require.NoError(t, repo.UpsertSocialAccount(ctx, domain.NewCreatorSocialAccount(uuid.New(), profile(domain.PlatformTwitter, 60_000, 1.0))))

	summary, err := NewRecomputer(NewService(repo, &stubSocial{}, nil), 2, zerolog.Nop()).RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

type blockingRepo struct {
	*memoryRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRepo) ListAllSocialAccounts(ctx context.Context) (map[uuid.UUID][]*domain.CreatorSocialAccount, error) {
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return b.memoryRepo.ListAllSocialAccounts(ctx)
}

func TestRecomputer_RejectsOverlappingRuns(t *testing.T) {
	repo := &blockingRepo{memoryRepo: newMemoryRepo(), entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRecomputer(NewService(repo, &stubSocial{}, nil), 2, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := r.RecomputeAll(context.Background())
		done <- err
	}()
	<-repo.entered

	_, err := r.RecomputeAll(context.Background())
	assert.ErrorIs(t, err, ErrRecomputeRunning)

	close(repo.release)
	require.NoError(t, <-done)

	_, err = r.RecomputeAll(context.Background())
	assert.NoError(t, err)
}
