package domain

import (
	"sort"
	"strings"
	"time"
)

// =============================================================================
// Platform
// =============================================================================

type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
)

// AllPlatforms lists supported platforms in a stable order.
var AllPlatforms = []Platform{PlatformInstagram, PlatformTikTok, PlatformTwitter, PlatformFacebook}

// ParsePlatform accepts the canonical names plus the common aliases used by
// clients ("x", "ig", "fb").
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "twitter", "x":
		return PlatformTwitter, true
	case "instagram", "ig":
		return PlatformInstagram, true
	case "facebook", "fb":
		return PlatformFacebook, true
	case "tiktok":
		return PlatformTikTok, true
	default:
		return "", false
	}
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformInstagram, PlatformFacebook, PlatformTikTok:
		return true
	}
	return false
}

// =============================================================================
// SocialMetrics - per-creator, per-platform snapshot consumed by the tier calculator
// =============================================================================

type PlatformMetrics struct {
	Platform       Platform `json:"platform"`
	Followers      int64    `json:"followers"`
	Following      *int64   `json:"following,omitempty"`
	PostsOrTweets  *int64   `json:"posts_or_tweets,omitempty"`
	EngagementRate *float64 `json:"engagement_rate,omitempty"`
}

// SocialMetrics is one creator's full metrics set, keyed by platform.
type SocialMetrics map[Platform]PlatformMetrics

// Platforms returns the keys in a deterministic order so that aggregation
// never depends on map iteration order.
func (m SocialMetrics) Platforms() []Platform {
	out := make([]Platform, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TotalFollowers sums followers across platforms, ignoring negative values.
func (m SocialMetrics) TotalFollowers() int64 {
	var total int64
	for _, pm := range m {
		if pm.Followers > 0 {
			total += pm.Followers
		}
	}
	return total
}

// =============================================================================
// SocialAnalytics - normalized third-party profile
// =============================================================================

type AudienceDemographics struct {
	TopCountries map[string]float64 `json:"top_countries,omitempty"`
	Gender       map[string]float64 `json:"gender,omitempty"`
	AgeGroups    map[string]float64 `json:"age_groups,omitempty"`
}

type SocialAnalytics struct {
	Platform        Platform             `json:"platform"`
	Username        string               `json:"username"`
	DisplayName     string               `json:"display_name,omitempty"`
	Followers       int64                `json:"followers"`
	Following       int64                `json:"following"`
	Posts           int64                `json:"posts"`
	AvgLikes        float64              `json:"avg_likes"`
	AvgComments     float64              `json:"avg_comments"`
	EngagementRate  float64              `json:"engagement_rate"`
	EngagementKnown bool                 `json:"engagement_known"` // false when the payload had no engagement or averages
	QualityScore    float64              `json:"quality_score"`
	FakeFollowerPct float64              `json:"fake_follower_pct"`
	Verified        bool                 `json:"verified"`
	Audience        AudienceDemographics `json:"audience"`
	MatchedBy       string               `json:"matched_by,omitempty"` // identifier candidate that resolved
	FetchedAt       time.Time            `json:"fetched_at"`
}

// Metrics converts a normalized profile into the calculator's input shape.
// Providers report absent counts as zero, so zero following/posts are left nil.
// Engagement is left nil unless the payload carried it, so the calculator
// estimates it instead of treating a missing figure as 0%.
func (a *SocialAnalytics) Metrics() PlatformMetrics {
	m := PlatformMetrics{
		Platform:  a.Platform,
		Followers: a.Followers,
	}
	if a.EngagementKnown {
		engagement := a.EngagementRate
		m.EngagementRate = &engagement
	}
	if a.Following > 0 {
		following := a.Following
		m.Following = &following
	}
	if a.Posts > 0 {
		posts := a.Posts
		m.PostsOrTweets = &posts
	}
	return m
}
