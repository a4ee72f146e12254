package social

import (
	"context"
	"sync"
	"testing"
	"time"

	"reach_server/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	mu       sync.Mutex
	profiles map[string]*domain.SocialAnalytics
}

func (m *memoryCache) GetProfile(_ context.Context, platform domain.Platform, username string) (*domain.SocialAnalytics, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[string(platform)+"/"+username]
	return p, ok, nil
}

func (m *memoryCache) SetProfile(_ context.Context, username string, profile *domain.SocialAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]*domain.SocialAnalytics)
	}
	m.profiles[string(profile.Platform)+"/"+username] = profile
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.profiles[key]
	return ok
}

// slowProvider holds community lookups until released.
type slowProvider struct {
	*fakeProvider
	started chan struct{}
	release chan struct{}
}

func (s *slowProvider) LookupCommunity(ctx context.Context, platform domain.Platform, cid, candidate string) ([]byte, error) {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.fakeProvider.LookupCommunity(ctx, platform, cid, candidate)
}

func TestCachedNormalizer_CancelledCallerDoesNotAbortSharedLookup(t *testing.T) {
	p := &slowProvider{
		fakeProvider: &fakeProvider{configured: true, responses: map[string][]byte{
			"jane": []byte(`{"type":"INST","followers":42000}`),
		}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := &memoryCache{}
	cn := NewCachedNormalizer(NewNormalizer(p), cache)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cn.FetchProfile(ctx, "jane", domain.PlatformInstagram)
		done <- err
	}()

	<-p.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(p.release)
	assert.Eventually(t, func() bool { return cache.has("instagram/jane") }, 2*time.Second, 10*time.Millisecond)

	profile, err := cn.FetchProfile(context.Background(), "jane", domain.PlatformInstagram)
	require.NoError(t, err)
	assert.Equal(t, int64(42000), profile.Followers)
}

func TestCachedNormalizer_ServesSecondLookupFromCache(t *testing.T) {
	p := &fakeProvider{configured: true, responses: map[string][]byte{
		"jane": []byte(`{"type":"INST","followers":42000}`),
	}}
	cache := &memoryCache{}
	cn := NewCachedNormalizer(newTestNormalizer(p), cache)

	first, err := cn.FetchProfile(context.Background(), "https://instagram.com/Jane", domain.PlatformInstagram)
	require.Error(t, err, "candidate keeps the original case")
	assert.Nil(t, first)

	first, err = cn.FetchProfile(context.Background(), "jane", domain.PlatformInstagram)
	require.NoError(t, err)
	second, err := cn.FetchProfile(context.Background(), "@JANE", domain.PlatformInstagram)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Contains(t, cache.profiles, "instagram/jane")
}

func TestCachedNormalizer_ErrorsAreNotCached(t *testing.T) {
	p := &fakeProvider{configured: true}
	cache := &memoryCache{}
	cn := NewCachedNormalizer(newTestNormalizer(p), cache)

	_, err := cn.FetchProfile(context.Background(), "ghost", domain.PlatformTwitter)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, cache.profiles)
}
