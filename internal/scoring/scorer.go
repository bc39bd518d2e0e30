// Package scoring turns a cluster draft and its members' signal profiles into
// a project-level confidence tier.
package scoring

import (
	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/types"
)

// Tier thresholds
const (
	HighThreshold   = 0.75
	MediumThreshold = 0.50

	// MinCorroboratingMembers is the member count below which a draft is
	// always low confidence
	MinCorroboratingMembers = 2
)

// Score is the scorer output for one draft
type Score struct {
	Tier  types.ConfidenceTier
	Value float64
}

// ScoreDraft computes the cohesion-weighted mean of member composite scores.
// Profiles are keyed by document ID; members missing a profile contribute a
// zero score. When every member has zero cohesion the mean is unweighted.
func ScoreDraft(draft clustering.Draft, profiles map[string]types.SignalProfile) Score {
	if len(draft.Members) == 0 {
		return Score{Tier: types.TierLow}
	}

	var weighted, totalWeight, plain float64
	for _, id := range draft.Members {
		s := profiles[id].Score
		w := draft.MemberCohesion[id]
		weighted += w * s
		totalWeight += w
		plain += s
	}

	var value float64
	if totalWeight > 0 {
		value = weighted / totalWeight
	} else {
		value = plain / float64(len(draft.Members))
	}
	value = clamp01(value)

	return Score{Tier: TierFor(value, len(draft.Members)), Value: value}
}

// TierFor maps a numeric score and member count to a tier
func TierFor(value float64, members int) types.ConfidenceTier {
	if members < MinCorroboratingMembers {
		return types.TierLow
	}
	switch {
	case value >= HighThreshold:
		return types.TierHigh
	case value >= MediumThreshold:
		return types.TierMedium
	default:
		return types.TierLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
