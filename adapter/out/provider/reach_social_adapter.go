// Package provider implements third-party API adapters.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/out"
	"reach_server/pkg/apperr"
	"reach_server/pkg/httputil"
	"reach_server/pkg/metrics"
	"reach_server/pkg/resilience"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	maxResponseBytes = 2 << 20
	errorBodySnippet = 256
)

// SocialAPIConfig holds analytics API configuration.
type SocialAPIConfig struct {
	BaseURL string
	APIKey  string
	APIHost string
	Timeout time.Duration
	RPS     float64 // outbound quota; <= 0 disables limiting
	Burst   int
}

// StatusError is a non-200, non-404 analytics API answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analytics API HTTP %d: %s", e.StatusCode, e.Body)
}

// =============================================================================
// Social Analytics Adapter
// =============================================================================

// SocialAnalyticsAdapter implements out.SocialAnalyticsProvider over the
// RapidAPI-hosted statistics API.
type SocialAnalyticsAdapter struct {
	cfg     SocialAPIConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewSocialAnalyticsAdapter creates a new analytics adapter.
func NewSocialAnalyticsAdapter(cfg SocialAPIConfig, log zerolog.Logger) *SocialAnalyticsAdapter {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	breakerCfg := resilience.DefaultBreakerConfig("social-analytics")
	// A 404 is an answer about one candidate, not an unhealthy API.
	breakerCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, out.ErrCandidateNotFound)
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &SocialAnalyticsAdapter{
		cfg:     cfg,
		client:  httputil.NewOptimizedClient(httputil.SocialAPIClientConfig(cfg.Timeout)),
		breaker: resilience.NewBreaker(breakerCfg, log),
		limiter: limiter,
	}
}

var _ out.SocialAnalyticsProvider = (*SocialAnalyticsAdapter)(nil)

// Configured reports whether an API key is present.
func (a *SocialAnalyticsAdapter) Configured() bool {
	return a.cfg.APIKey != ""
}

// LookupCommunity queries the community endpoint for one candidate.
func (a *SocialAnalyticsAdapter) LookupCommunity(ctx context.Context, platform domain.Platform, cid, candidate string) ([]byte, error) {
	q := url.Values{}
	q.Set("url", candidate)
	q.Set("cid", cid)
	return a.get(ctx, platform, "/community", q)
}

// LookupTikTokUser queries the TikTok user-info endpoint.
func (a *SocialAnalyticsAdapter) LookupTikTokUser(ctx context.Context, username string) ([]byte, error) {
	q := url.Values{}
	q.Set("username", username)
	return a.get(ctx, domain.PlatformTikTok, "/tiktok/user", q)
}

func (a *SocialAnalyticsAdapter) get(ctx context.Context, platform domain.Platform, path string, q url.Values) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.do(ctx, platform, path, q)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (a *SocialAnalyticsAdapter) do(ctx context.Context, platform domain.Platform, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", a.cfg.APIKey)
	req.Header.Set("X-RapidAPI-Host", a.cfg.APIHost)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		metrics.SocialCandidate(string(platform), "error")
		return nil, fmt.Errorf("analytics request failed: %w", err)
	}
	defer resp.Body.Close()

	metrics.SocialCandidate(string(platform), statusClass(resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read analytics response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, out.ErrCandidateNotFound
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("analytics API quota exhausted: %w", apperr.ErrRateLimited)
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
}

func statusClass(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "404"
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > errorBodySnippet {
		s = s[:errorBodySnippet] + "..."
	}
	return s
}
