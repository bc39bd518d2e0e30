package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/types"
)

func TestScoreDraftWeightedMean(t *testing.T) {
	draft := clustering.Draft{
		Members:        []string{"a", "b"},
		MemberCohesion: map[string]float64{"a": 0.9, "b": 0.3},
	}
	profiles := map[string]types.SignalProfile{
		"a": {Score: 1.0},
		"b": {Score: 0.2},
	}

	got := ScoreDraft(draft, profiles)

	// (0.9*1.0 + 0.3*0.2) / 1.2 = 0.8
	assert.InDelta(t, 0.8, got.Value, 1e-9)
	assert.Equal(t, types.TierHigh, got.Tier)
}

func TestScoreDraftSingleMemberAlwaysLow(t *testing.T) {
	draft := clustering.Draft{
		Members:        []string{"only"},
		MemberCohesion: map[string]float64{"only": 1},
	}
	got := ScoreDraft(draft, map[string]types.SignalProfile{"only": {Score: 1}})

	assert.Equal(t, 1.0, got.Value)
	assert.Equal(t, types.TierLow, got.Tier)
}

func TestScoreDraftZeroCohesionUsesPlainMean(t *testing.T) {
	draft := clustering.Draft{Members: []string{"a", "b"}}
	got := ScoreDraft(draft, map[string]types.SignalProfile{"a": {Score: 0.6}, "b": {Score: 0.4}})
	assert.InDelta(t, 0.5, got.Value, 1e-9)
	assert.Equal(t, types.TierMedium, got.Tier)
}

func TestScoreDraftMissingProfileCountsAsZero(t *testing.T) {
	draft := clustering.Draft{
		Members:        []string{"a", "b"},
		MemberCohesion: map[string]float64{"a": 1, "b": 1},
	}
	got := ScoreDraft(draft, map[string]types.SignalProfile{"a": {Score: 0.8}})
	assert.InDelta(t, 0.4, got.Value, 1e-9)
	assert.Equal(t, types.TierLow, got.Tier)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		value   float64
		members int
		want    types.ConfidenceTier
	}{
		{0.75, 2, types.TierHigh},
		{0.749, 2, types.TierMedium},
		{0.5, 3, types.TierMedium},
		{0.49, 3, types.TierLow},
		{0.99, 1, types.TierLow},
		{0.99, 0, types.TierLow},
	}
	for _, tt := range tests {
		if got := TierFor(tt.value, tt.members); got != tt.want {
			t.Errorf("TierFor(%.3f, %d) = %s, want %s", tt.value, tt.members, got, tt.want)
		}
	}
}
