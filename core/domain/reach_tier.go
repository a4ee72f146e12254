package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Tier - creator commission tier (1 is best)
// =============================================================================

type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
	Tier4 Tier = 4
)

// MinimumFollowers is the hard floor below which a creator never qualifies.
const MinimumFollowers int64 = 5000

type tierInfo struct {
	Name           string
	CommissionRate float64 // fraction of the sale price
}

var tierTable = map[Tier]tierInfo{
	Tier1: {Name: "Platinum", CommissionRate: 0.05},
	Tier2: {Name: "Gold", CommissionRate: 0.04},
	Tier3: {Name: "Silver", CommissionRate: 0.03},
	Tier4: {Name: "Bronze", CommissionRate: 0.02},
}

// NotQualifiedName is the display name for a disqualified creator.
const NotQualifiedName = "Not Qualified"

func (t Tier) String() string {
	return "tier" + strconv.Itoa(int(t))
}

// TierName returns the display name for tier, or NotQualifiedName for nil.
func TierName(t *Tier) string {
	if t == nil {
		return NotQualifiedName
	}
	if info, ok := tierTable[*t]; ok {
		return info.Name
	}
	return NotQualifiedName
}

// CommissionRate returns the commission fraction for tier; zero when disqualified.
func CommissionRate(t *Tier) float64 {
	if t == nil {
		return 0
	}
	return tierTable[*t].CommissionRate
}

// TierLabel is used for metrics and logs.
func TierLabel(t *Tier) string {
	if t == nil {
		return "none"
	}
	return t.String()
}

// =============================================================================
// TierResult - immutable classification output
// =============================================================================

type TierResult struct {
	Tier              *Tier         `json:"tier"`
	TierName          string        `json:"tier_name"`
	TotalFollowers    int64         `json:"total_followers"`
	EngagementRate    float64       `json:"engagement_rate"`
	QualityScore      float64       `json:"quality_score"`
	MeetsRequirements bool          `json:"meets_requirements"`
	Reason            string        `json:"reason,omitempty"`
	CommissionRate    float64       `json:"commission_rate"`
	Trace             DecisionTrace `json:"trace"`
}

// SameTier reports whether two results classify to the same tier.
func (r *TierResult) SameTier(other *TierResult) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.Tier == nil || other.Tier == nil {
		return r.Tier == nil && other.Tier == nil
	}
	return *r.Tier == *other.Tier
}

// DecisionTrace records how a TierResult was derived.
type DecisionTrace struct {
	Rule      string          `json:"rule"`
	Platforms []PlatformTrace `json:"platforms,omitempty"`
}

// Figure sources recorded in PlatformTrace.
const (
	SourceSupplied  = "supplied"
	SourceEstimated = "estimated"
	SourceDefault   = "default"
)

type PlatformTrace struct {
	Platform         Platform `json:"platform"`
	Followers        int64    `json:"followers"`
	EngagementRate   float64  `json:"engagement_rate"`
	EngagementSource string   `json:"engagement_source"`
	QualityScore     *float64 `json:"quality_score,omitempty"`
}

// =============================================================================
// CreatorTier - persisted TierResult
// =============================================================================

type CreatorTier struct {
	CreatorID    uuid.UUID  `json:"creator_id"`
	Result       TierResult `json:"result"`
	CalculatedAt time.Time  `json:"calculated_at"`
}
