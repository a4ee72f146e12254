package social

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"reach_server/core/domain"
	"reach_server/core/port/out"
	"reach_server/pkg/logger"
	"reach_server/pkg/metrics"
)

const DefaultCandidateTimeout = 10 * time.Second

// Normalizer fetches a public profile from the analytics API and normalizes
// it into domain.SocialAnalytics.
type Normalizer struct {
	provider out.SocialAnalyticsProvider
	paths    FieldPaths
	timeout  time.Duration
	now      func() time.Time
}

type Option func(*Normalizer)

// WithFieldPaths overrides DefaultFieldPaths.
func WithFieldPaths(paths FieldPaths) Option {
	return func(n *Normalizer) { n.paths = paths }
}

// WithCandidateTimeout bounds each candidate request.
func WithCandidateTimeout(d time.Duration) Option {
	return func(n *Normalizer) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func NewNormalizer(provider out.SocialAnalyticsProvider, opts ...Option) *Normalizer {
	n := &Normalizer{
		provider: provider,
		paths:    DefaultFieldPaths,
		timeout:  DefaultCandidateTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// FetchProfile resolves identifier (username or profile URL) on platform.
// Candidates are tried one at a time; the first recognizable match wins.
func (n *Normalizer) FetchProfile(ctx context.Context, identifier string, platform domain.Platform) (*domain.SocialAnalytics, error) {
	start := time.Now()
	profile, err := n.fetch(ctx, identifier, platform)
	metrics.SocialLookup(string(platform), lookupOutcome(err), time.Since(start))
	return profile, err
}

func (n *Normalizer) fetch(ctx context.Context, identifier string, platform domain.Platform) (*domain.SocialAnalytics, error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrPlatformNotSupported, platform)
	}
	if platform == domain.PlatformFacebook {
		return nil, fmt.Errorf("%w: facebook accounts are verified manually", ErrPlatformNotSupported)
	}
	if n.provider == nil || !n.provider.Configured() {
		return nil, fmt.Errorf("%w: set SOCIAL_API_KEY", ErrConfiguration)
	}

	username := ExtractUsername(identifier)
	if username == "" {
		return nil, fmt.Errorf("%w: could not extract a username from %q", ErrNotFound, identifier)
	}

	log := logger.WithContext(ctx).WithFields(map[string]any{
		"platform": platform,
		"username": username,
	})

	if platform == domain.PlatformTikTok {
		body, err := n.call(ctx, func(ctx context.Context) ([]byte, error) {
			return n.provider.LookupTikTokUser(ctx, username)
		})
		if errors.Is(err, out.ErrCandidateNotFound) {
			return nil, notFoundError(platform, username, 0, 1)
		}
		if err != nil {
			return nil, err
		}
		profile, matched, err := n.normalize(body, platform, username)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, fmt.Errorf("%w: tiktok lookup for %q returned another platform", ErrProviderMismatch, username)
		}
		profile.MatchedBy = username
		return profile, nil
	}

	cid := platformCodes[platform]
	candidates := Candidates(platform, username)
	mismatched := 0
	for _, candidate := range candidates {
		body, err := n.call(ctx, func(ctx context.Context) ([]byte, error) {
			return n.provider.LookupCommunity(ctx, platform, cid, candidate)
		})
		if errors.Is(err, out.ErrCandidateNotFound) {
			log.Debug("candidate %q not found", candidate)
			continue
		}
		if err != nil {
			// quota, auth and network failures will not improve with another format
			return nil, err
		}

		profile, matched, err := n.normalize(body, platform, username)
		if err != nil {
			return nil, err
		}
		if !matched {
			mismatched++
			log.Debug("candidate %q returned another platform", candidate)
			continue
		}
		profile.MatchedBy = candidate
		log.Debug("resolved via candidate %q", candidate)
		return profile, nil
	}

	if mismatched == len(candidates) {
		return nil, fmt.Errorf("%w: every identifier format for %s %q resolved to another platform; check the username or pick the right platform",
			ErrProviderMismatch, platform, username)
	}
	return nil, notFoundError(platform, username, mismatched, len(candidates))
}

func (n *Normalizer) call(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return fn(ctx)
}

func notFoundError(platform domain.Platform, username string, mismatched, tried int) error {
	msg := fmt.Sprintf("%s account %q was not found after %d attempt(s); verify the username and check that the account is public",
		platform, username, tried)
	if mismatched > 0 {
		msg += fmt.Sprintf(" (%d attempt(s) returned another platform's profile)", mismatched)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// normalize converts one 200 payload. matched is false when the payload
// describes a different platform.
func (n *Normalizer) normalize(body []byte, platform domain.Platform, username string) (*domain.SocialAnalytics, bool, error) {
	doc, ok := parseDocument(body, n.paths.Root)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s payload is not a JSON object", ErrMalformedResponse, platform)
	}

	if got, ok := doc.SocialType(n.paths.SocialType); ok && got != platform {
		return nil, false, nil
	}

	followers, ok := doc.Count(n.paths.Followers)
	if !ok {
		return nil, true, fmt.Errorf("%w: no follower count in %s payload (keys: %s)",
			ErrMalformedResponse, platform, strings.Join(doc.TopLevelKeys(), ", "))
	}

	following, _ := doc.Count(n.paths.Following)
	posts, _ := doc.Count(n.paths.Posts)
	avgLikes, likesOK := doc.Number(n.paths.AvgLikes)
	avgComments, commentsOK := doc.Number(n.paths.AvgComments)
	fake, _ := doc.Number(n.paths.FakeFollowers)

	engagement, engagementKnown := doc.Number(n.paths.EngagementRate)
	if engagementKnown {
		engagement = math.Max(0, round2(engagement))
	} else {
		engagement = EngagementFromAverages(avgLikes, avgComments, followers)
		engagementKnown = likesOK || commentsOK
	}

	quality, ok := doc.Number(n.paths.QualityScore)
	if ok {
		quality = clamp(round2(quality), 0, 100)
	} else {
		quality = QualityFromFollowers(followers, fake)
	}

	name := doc.String(n.paths.Username)
	if name == "" {
		name = username
	}

	return &domain.SocialAnalytics{
		Platform:        platform,
		Username:        strings.TrimPrefix(name, "@"),
		DisplayName:     doc.String(n.paths.DisplayName),
		Followers:       followers,
		Following:       following,
		Posts:           posts,
		AvgLikes:        avgLikes,
		AvgComments:     avgComments,
		EngagementRate:  engagement,
		EngagementKnown: engagementKnown,
		QualityScore:    quality,
		FakeFollowerPct: fake,
		Verified:        doc.Bool(n.paths.Verified),
		Audience: domain.AudienceDemographics{
			TopCountries: doc.Distribution(n.paths.Countries),
			Gender:       doc.Distribution(n.paths.Genders),
			AgeGroups:    doc.Distribution(n.paths.Ages),
		},
		FetchedAt: n.now().UTC(),
	}, true, nil
}

// EngagementFromAverages derives an engagement percentage from average
// interactions per post.
func EngagementFromAverages(avgLikes, avgComments float64, followers int64) float64 {
	if followers <= 0 {
		return 0
	}
	rate := (avgLikes + avgComments) / float64(followers) * 100
	return math.Max(0, round2(rate))
}

// QualityFromFollowers derives a 0..100 score: a log10 follower term capped
// at 50 plus half of the authenticity term (100 - 2*fakePercent).
func QualityFromFollowers(followers int64, fakePercent float64) float64 {
	var size float64
	if followers > 0 {
		size = math.Min(50, math.Log10(float64(followers))*10)
	}
	authenticity := clamp(100-fakePercent*2, 0, 100)
	return clamp(round2(size+authenticity/2), 0, 100)
}

func lookupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProviderMismatch):
		return "mismatch"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrConfiguration):
		return "config"
	case errors.Is(err, ErrPlatformNotSupported):
		return "unsupported"
	default:
		return "error"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
