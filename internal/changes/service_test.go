package changes

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/entities"
	"github.com/steveyegge/rdscout/internal/planning"
	"github.com/steveyegge/rdscout/internal/signals"
	"github.com/steveyegge/rdscout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func analysis(id, text string, offset time.Duration) planning.Analysis {
	doc := &types.Document{ID: id, ScopeID: "s1", Text: text, CreatedAt: base.Add(offset)}
	ex := entities.NewExtractor(nil).Extract(context.Background(), text)
	return planning.Analyze(signals.Default(), doc, ex.Entities, nil)
}

func newService() *Service {
	planner := planning.New(clustering.New(clustering.DefaultConfig()), 0)
	return New(planner, 0, nil, nil)
}

func beaconCandidate(status types.CandidateStatus, claim string) *types.ProjectCandidate {
	c := &types.ProjectCandidate{
		ID:      "cand-beacon",
		ScopeID: "s1",
		Name:    "BEACON",
		Status:  status,
		Tier:    types.TierMedium,
		Profile: types.CandidateProfile{NameKey: "BEACON", Aliases: []string{"BEACON"}},
	}
	c.Evidence.Append(types.SlotUncertainty, types.EvidenceRef{DocumentID: "old-1", Offset: 0, Length: 5, Excerpt: claim})
	return c
}

func TestDetect_NarrativeImpact(t *testing.T) {
	existing := []*types.ProjectCandidate{
		beaconCandidate(types.CandidateApproved, "We designed a novel architecture for streaming ingestion."),
	}
	batch := []planning.Analysis{
		analysis("new-1", "Project BEACON update: the ingestion layer was adapted from existing open-source implementation of a log broker.", 0),
	}

	det := newService().Detect("s1", batch, existing)
	assert.Equal(t, types.OutcomeNarrativeImpact, det.Outcomes["new-1"])
	require.Len(t, det.Links, 1)
	l := det.Links[0]
	assert.Equal(t, "cand-beacon", l.CandidateID)
	assert.Equal(t, BasisToken, l.Basis)
	require.NotNil(t, l.Contradiction)
	assert.Equal(t, "novelty", l.Contradiction.Rule)
	assert.Contains(t, l.Reason(), "novel")
	assert.Empty(t, det.Plan.Candidates)
}

func TestDetect_SafeAddition(t *testing.T) {
	existing := []*types.ProjectCandidate{
		beaconCandidate(types.CandidateDiscovered, "We designed a novel architecture for streaming ingestion."),
	}
	batch := []planning.Analysis{
		analysis("new-1", "BEACON-14: benchmarked the new partitioning scheme, throughput improved by 20%.", 0),
	}

	det := newService().Detect("s1", batch, existing)
	assert.Equal(t, types.OutcomeSafeAddition, det.Outcomes["new-1"])
	require.Len(t, det.Links, 1)
	assert.Nil(t, det.Links[0].Contradiction)
	assert.InDelta(t, 1.0, det.Links[0].Similarity, 1e-9)
}

func TestDetect_NegatedConflictIsSafe(t *testing.T) {
	existing := []*types.ProjectCandidate{
		beaconCandidate(types.CandidateApproved, "We designed a novel architecture for streaming ingestion."),
	}
	batch := []planning.Analysis{
		analysis("new-1", "Project BEACON review: the broker was not adapted from any existing design, it was written by the team.", 0),
	}
	det := newService().Detect("s1", batch, existing)
	assert.Equal(t, types.OutcomeSafeAddition, det.Outcomes["new-1"])
}

func TestDetect_RejectedCandidatesIgnored(t *testing.T) {
	existing := []*types.ProjectCandidate{
		beaconCandidate(types.CandidateRejected, "A novel approach."),
	}
	batch := []planning.Analysis{
		analysis("new-1", "Project BEACON: we hypothesized a hybrid approach and the first attempt failed.", 0),
		analysis("new-2", "BEACON-3: second approach succeeded with a 40% improvement.", time.Hour),
	}
	det := newService().Detect("s1", batch, existing)

	assert.True(t, det.Skipped)
	assert.Empty(t, det.Links)
	require.Len(t, det.Plan.Candidates, 1)
	assert.Equal(t, types.OutcomeNewCandidate, det.Outcomes["new-1"])
	assert.Equal(t, types.OutcomeNewCandidate, det.Outcomes["new-2"])
}

func TestDetect_EveryDocumentReachesTerminalOutcome(t *testing.T) {
	existing := []*types.ProjectCandidate{
		beaconCandidate(types.CandidateApproved, "Outcome unclear at the start."),
	}
	batch := []planning.Analysis{
		analysis("a", "BEACON-1: measurements taken, nothing unusual.", 0),
		analysis("b", "Project FALCON: we hypothesized the cache was the bottleneck; experiment confirmed it.", time.Hour),
		analysis("c", "Project FALCON: second experiment tested an alternative hypothesis and failed.", 2*time.Hour),
		analysis("d", "Reminder that the office is closed on Friday afternoon.", 3*time.Hour),
	}
	det := newService().Detect("s1", batch, existing)

	require.Len(t, det.Outcomes, 4)
	for id, o := range det.Outcomes {
		assert.True(t, o.IsTerminal(), "document %s left %s", id, o)
	}
	assert.Equal(t, types.OutcomeSafeAddition, det.Outcomes["a"])
	assert.Equal(t, types.OutcomeNewCandidate, det.Outcomes["b"])
	assert.Equal(t, types.OutcomeNewCandidate, det.Outcomes["c"])
	assert.Equal(t, types.OutcomeUnassigned, det.Outcomes["d"])
}

func TestDetect_EmptyExistingMatchesFullPlan(t *testing.T) {
	batch := []planning.Analysis{
		analysis("a", "Project BEACON: we hypothesized a hybrid approach; first attempt failed due to memory limits.", 0),
		analysis("b", "BEACON-2: second approach succeeded with a 40% improvement.", time.Hour),
		analysis("c", "Project FALCON: it was unclear whether the sensor fusion could run on device.", 2*time.Hour),
		analysis("d", "Reminder that the office is closed on Friday afternoon.", 3*time.Hour),
	}
	planner := planning.New(clustering.New(clustering.DefaultConfig()), 0)

	full := planner.Plan("s1", batch)
	det := New(planner, 0, nil, nil).Detect("s1", batch, nil)

	assert.True(t, det.Skipped)
	assert.Equal(t, full, det.Plan)
}

func TestSimilarity_Bases(t *testing.T) {
	svc := newService()
	c := &types.ProjectCandidate{
		ID: "c1", ScopeID: "s1", Status: types.CandidateApproved,
		Profile: types.CandidateProfile{
			NameKey:  "ORCA",
			Aliases:  []string{"ORCA"},
			Terms:    []string{"alice wong", "cuda", "tensorrt", "acme"},
			Centroid: []float32{1, 0, 0},
		},
	}

	a := planning.Analysis{
		Document: &types.Document{ID: "d1"},
		Entities: types.EntitySet{People: []string{"Alice Wong"}, TechnicalTerms: []string{"CUDA", "TensorRT"}},
	}
	sim, basis := svc.Similarity(&a, c)
	assert.Equal(t, BasisEntities, basis)
	assert.InDelta(t, 1.0, sim, 1e-9)

	a = planning.Analysis{
		Document:  &types.Document{ID: "d2"},
		Entities:  types.EntitySet{TechnicalTerms: []string{"CUDA"}},
		Embedding: []float32{0.9, 0.1, 0},
	}
	sim, basis = svc.Similarity(&a, c)
	assert.Equal(t, BasisCentroid, basis)
	assert.Greater(t, sim, 0.9)

	a = planning.Analysis{Document: &types.Document{ID: "d3"}, Entities: types.EntitySet{ProjectNames: []string{"ORCA-9"}}}
	sim, basis = svc.Similarity(&a, c)
	assert.Equal(t, BasisToken, basis)
	assert.Equal(t, 1.0, sim)
}

func TestSimilarity_TitleKeyIsNotAToken(t *testing.T) {
	svc := newService()
	c := &types.ProjectCandidate{
		ID: "c1", ScopeID: "s1", Status: types.CandidateDiscovered,
		Profile: types.CandidateProfile{NameKey: "WEEKLYSTATUS"},
	}
	a := planning.Analysis{
		Document: &types.Document{ID: "d1"},
		Entities: types.EntitySet{ProjectNames: []string{"Weekly Status"}},
	}
	sim, basis := svc.Similarity(&a, c)
	assert.Zero(t, sim)
	assert.Empty(t, basis)
}

func TestClassify_UsesConfiguredRules(t *testing.T) {
	rules := []Rule{{
		Name:          "budget",
		Claim:         regexp.MustCompile(`(?i)\bunder budget\b`),
		Contradiction: regexp.MustCompile(`(?i)\bover budget\b`),
	}}
	planner := planning.New(clustering.New(clustering.DefaultConfig()), 0)
	svc := New(planner, 0, rules, nil)
	c := beaconCandidate(types.CandidateApproved, "Delivered under budget.")

	a := analysis("n1", "BEACON-20 wrap-up: the project ran over budget.", 0)
	l := svc.Classify(&a, c)
	assert.Equal(t, types.OutcomeNarrativeImpact, l.Outcome)
	require.NotNil(t, l.Contradiction)
	assert.Equal(t, "budget", l.Contradiction.Rule)
	assert.Equal(t, 1.0, l.Similarity)

	a = analysis("n2", "BEACON-21: adapted from existing open-source code.", 0)
	l = svc.Classify(&a, c)
	assert.Equal(t, types.OutcomeSafeAddition, l.Outcome, "default rules are not consulted")
}

func TestFindContradiction_Rules(t *testing.T) {
	tests := []struct {
		name  string
		claim string
		text  string
		want  string
	}{
		{"novelty", "This is a novel approach to sharding.", "We reused the existing library from the vendor.", "novelty"},
		{"uncertainty", "It was unclear whether the model would converge.", "Turned out to be a well-known technique in the literature.", "uncertainty"},
		{"outcome", "The migration succeeded with a 3x speedup.", "The change was rolled back after a week.", "outcome"},
		{"in house", "Built on our own implementation of the codec.", "The codec was vendor-supplied.", "in_house"},
		{"negated claim", "This is not novel in any way.", "Adapted from existing open-source code.", ""},
		{"no conflict", "A novel approach.", "We extended the test suite.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ev types.NarrativeEvidence
			ev.Append(types.SlotOutcome, types.EvidenceRef{DocumentID: "x", Excerpt: tt.claim})
			got := FindContradiction(DefaultRules, &ev, tt.text)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Rule)
		})
	}
}
