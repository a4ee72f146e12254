// Package tier classifies creators into commission tiers from their
// aggregated social metrics.
package tier

import (
	"fmt"
	"math"
	"strconv"

	"reach_server/core/domain"
)

const (
	defaultEngagement = 3.0 // no platforms at all
	minEngagement     = 1.0
	defaultQuality    = 70.0 // no platform with data

	// estimated engagement never exceeds this, whatever the post ratio says
	maxEstimatedEngagement = 10.0
	highPostCount          = 1000
)

// sizeStep is one row of a follower-size table; rows are ordered by
// descending MinFollowers and the first row whose floor is met applies.
type sizeStep struct {
	MinFollowers int64
	Value        float64
}

// engagementFloors are per-platform default engagement percentages. Larger
// accounts get higher floors since post/follower ratios collapse at scale.
var engagementFloors = map[domain.Platform][]sizeStep{
	domain.PlatformInstagram: {{10_000_000, 2.5}, {1_000_000, 2.0}, {100_000, 1.5}, {10_000, 1.2}, {0, 1.0}},
	domain.PlatformTikTok:    {{10_000_000, 3.0}, {1_000_000, 2.5}, {100_000, 2.0}, {10_000, 1.5}, {0, 1.2}},
	domain.PlatformTwitter:   {{10_000_000, 2.0}, {1_000_000, 1.5}, {100_000, 1.0}, {10_000, 0.8}, {0, 0.5}},
	domain.PlatformFacebook:  {{10_000_000, 1.5}, {1_000_000, 1.2}, {100_000, 1.0}, {10_000, 0.8}, {0, 0.5}},
}

var qualityBase = []sizeStep{
	{10_000_000, 85},
	{1_000_000, 80},
	{100_000, 75},
	{10_000, 65},
	{0, 55},
}

func lookupStep(steps []sizeStep, followers int64) float64 {
	for _, s := range steps {
		if followers >= s.MinFollowers {
			return s.Value
		}
	}
	return 0
}

// Calculate derives a TierResult from a creator's metrics. It is pure: the
// same input always yields an identical result.
func Calculate(metrics domain.SocialMetrics) domain.TierResult {
	total := metrics.TotalFollowers()
	platforms := metrics.Platforms()

	traces := make([]domain.PlatformTrace, 0, len(platforms))
	var engagementSum, qualitySum float64
	var qualityCount int
	for _, p := range platforms {
		pm := metrics[p]
		followers := max(pm.Followers, 0)

		engagement, source := platformEngagement(p, pm, followers)
		engagementSum += engagement

		trace := domain.PlatformTrace{
			Platform:         p,
			Followers:        followers,
			EngagementRate:   engagement,
			EngagementSource: source,
		}
		if q, ok := platformQuality(pm, followers); ok {
			qualitySum += q
			qualityCount++
			trace.QualityScore = &q
		}
		traces = append(traces, trace)
	}

	engagement := defaultEngagement
	if len(platforms) > 0 {
		engagement = round2(engagementSum / float64(len(platforms)))
	}
	if engagement < minEngagement {
		engagement = minEngagement
	}

	quality := defaultQuality
	if qualityCount > 0 {
		quality = round2(qualitySum / float64(qualityCount))
	}

	c := ClassifyTier(total, engagement, quality)
	return domain.TierResult{
		Tier:              c.Tier,
		TierName:          domain.TierName(c.Tier),
		TotalFollowers:    total,
		EngagementRate:    engagement,
		QualityScore:      quality,
		MeetsRequirements: c.Tier != nil,
		Reason:            c.Reason,
		CommissionRate:    domain.CommissionRate(c.Tier),
		Trace: domain.DecisionTrace{
			Rule:      c.Rule,
			Platforms: traces,
		},
	}
}

// platformEngagement returns the supplied figure when present, otherwise the
// post/follower ratio floored by the platform's size default.
func platformEngagement(p domain.Platform, pm domain.PlatformMetrics, followers int64) (float64, string) {
	if pm.EngagementRate != nil && isFinite(*pm.EngagementRate) {
		return math.Max(0, *pm.EngagementRate), domain.SourceSupplied
	}

	floors, ok := engagementFloors[p]
	if !ok {
		floors = engagementFloors[domain.PlatformFacebook]
	}
	floor := lookupStep(floors, followers)

	if pm.PostsOrTweets == nil || followers == 0 {
		return floor, domain.SourceDefault
	}
	ratio := float64(*pm.PostsOrTweets) / float64(followers) * 100
	estimate := math.Min(math.Max(ratio, floor), maxEstimatedEngagement)
	return round2(estimate), domain.SourceEstimated
}

// platformQuality scores one platform; ok is false when it carries no data.
func platformQuality(pm domain.PlatformMetrics, followers int64) (float64, bool) {
	if followers == 0 {
		return 0, false
	}
	score := lookupStep(qualityBase, followers)

	if pm.Following != nil {
		following := *pm.Following
		switch {
		case following <= 0 || followers > 2*following:
			score += 10
		case followers > following:
			score += 5
		}
	}
	if pm.PostsOrTweets != nil && *pm.PostsOrTweets >= highPostCount {
		score += 5
	}
	return math.Min(score, 100), true
}

// Classification is the outcome of the tier cascade alone.
type Classification struct {
	Tier   *domain.Tier
	Rule   string
	Reason string
}

// Rule ids recorded in DecisionTrace.Rule.
const (
	RuleBelowMinimum        = "below_minimum"
	RuleMegaAccount         = "mega_account"
	RuleTenMillionRelaxed   = "ten_million_relaxed"
	RuleStandard            = "standard"
	RuleMidRelaxed          = "mid_relaxed"
	RuleLargeAccountRelaxed = "large_account_relaxed"
	RuleFollowersOnly       = "followers_only"
	Rule50KQualified        = "band_50k_qualified"
	Rule50KFallback         = "band_50k_fallback"
	Rule10KQualified        = "band_10k_qualified"
	Rule10KFallback         = "band_10k_fallback"
	Rule5KQualified         = "band_5k_qualified"
	Rule5KDisqualified      = "band_5k_disqualified"
)

// ClassifyTier applies the tier cascade to aggregated figures. Rules are
// evaluated top-down and the first match wins; bands overlap at 100K and 1M,
// so the order below is load-bearing.
func ClassifyTier(totalFollowers int64, engagement, quality float64) Classification {
	f := totalFollowers
	switch {
	case f < domain.MinimumFollowers:
		return Classification{Rule: RuleBelowMinimum, Reason: fmt.Sprintf(
			"Total followers (%s) are below the minimum of %s required to qualify",
			formatCount(f), formatCount(domain.MinimumFollowers))}

	case f >= 100_000_000:
		return classified(domain.Tier1, RuleMegaAccount, "")
	case f >= 10_000_000 && (engagement >= 2 || quality >= 70):
		return classified(domain.Tier1, RuleTenMillionRelaxed, "")
	case f >= 100_000 && engagement >= 3 && quality >= 85:
		return classified(domain.Tier1, RuleStandard, "")
	case f >= 100_000 && f <= 999_999 && (engagement >= 2.5 || quality >= 75):
		return classified(domain.Tier1, RuleMidRelaxed, "")
	case f >= 1_000_000 && (engagement >= 2 || quality >= 70):
		return classified(domain.Tier1, RuleLargeAccountRelaxed, "")
	case f >= 100_000:
		return classified(domain.Tier2, RuleFollowersOnly, tier1Shortfall(f, engagement, quality))

	case f >= 50_000:
		if engagement >= 2 && quality >= 70 {
			return classified(domain.Tier2, Rule50KQualified, "")
		}
		return classified(domain.Tier3, Rule50KFallback, shortfall("Tier 2", engagement, 2, quality, 70))

	case f >= 10_000:
		if engagement >= 1.5 && quality >= 60 {
			return classified(domain.Tier3, Rule10KQualified, "")
		}
		return classified(domain.Tier4, Rule10KFallback, shortfall("Tier 3", engagement, 1.5, quality, 60))

	default:
		if engagement >= 1 && quality >= 50 {
			return classified(domain.Tier4, Rule5KQualified, "")
		}
		return Classification{
			Rule: Rule5KDisqualified,
			Reason: "Insufficient engagement or quality despite meeting the follower minimum: " +
				shortfall("Tier 4", engagement, 1, quality, 50),
		}
	}
}

func classified(t domain.Tier, rule, reason string) Classification {
	return Classification{Tier: &t, Rule: rule, Reason: reason}
}

func tier1Shortfall(f int64, engagement, quality float64) string {
	minEng, minQuality := 2.0, 70.0
	if f < 1_000_000 {
		minEng, minQuality = 2.5, 75.0
	}
	return fmt.Sprintf("Tier 1 needs engagement of at least %s%% or quality of at least %s at %s followers (current: %s%% engagement, %s quality)",
		formatFloat(minEng), formatFloat(minQuality), formatCount(f), formatFloat(engagement), formatFloat(quality))
}

func shortfall(target string, engagement, minEng, quality, minQuality float64) string {
	return fmt.Sprintf("%s needs engagement of at least %s%% and quality of at least %s (current: %s%% engagement, %s quality)",
		target, formatFloat(minEng), formatFloat(minQuality), formatFloat(engagement), formatFloat(quality))
}

// formatCount renders 1234567 as "1,234,567".
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
