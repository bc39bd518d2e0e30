package planning

import (
	"context"
	"testing"
	"time"

	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/entities"
	"github.com/steveyegge/rdscout/internal/signals"
	"github.com/steveyegge/rdscout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func analyze(t *testing.T, id, text string, offset time.Duration) Analysis {
	t.Helper()
	doc := &types.Document{ID: id, ScopeID: "s1", Text: text, CreatedAt: base.Add(offset)}
	ex := entities.NewExtractor(nil).Extract(context.Background(), text)
	return Analyze(signals.Default(), doc, ex.Entities, nil)
}

func TestPlan_FallbackSharedToken(t *testing.T) {
	docs := []Analysis{
		analyze(t, "doc-1", "Project BEACON: we hypothesized a hybrid cache layout. The first attempt failed due to memory limits.", 0),
		analyze(t, "doc-2", "BEACON-7 follow-up: the second approach succeeded with a 40% improvement in latency.", time.Hour),
	}
	p := New(clustering.New(clustering.DefaultConfig()), 0)

	plan := p.Plan("s1", docs)
	require.Len(t, plan.Candidates, 1)
	c := plan.Candidates[0]
	assert.Equal(t, "BEACON", c.Candidate.Name)
	assert.Equal(t, []string{"doc-1", "doc-2"}, c.Members)
	assert.Equal(t, types.CandidateDiscovered, c.Candidate.Status)
	assert.Equal(t, "s1", c.Candidate.ScopeID)
	assert.Empty(t, c.Candidate.ID)
	assert.Empty(t, plan.Unassigned)
	assert.Equal(t, clustering.StrategyNameToken, plan.Strategy)
	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, plan.FallbackDocs)
	require.NoError(t, c.Candidate.Validate())
}

func TestPlan_EvidenceFilledFromMembers(t *testing.T) {
	text := "Project BEACON: we hypothesized a hybrid approach; first attempt failed due to memory limits; second approach succeeded with a 40% improvement."
	docs := []Analysis{
		analyze(t, "doc-1", text, 0),
		analyze(t, "doc-2", "Project BEACON notes: it was unclear whether the index would fit in memory.", time.Hour),
	}
	plan := New(clustering.New(clustering.DefaultConfig()), 0).Plan("s1", docs)
	require.Len(t, plan.Candidates, 1)

	ev := plan.Candidates[0].Candidate.Evidence
	require.NotEmpty(t, ev.Investigation)
	require.NotEmpty(t, ev.Outcome)
	for _, ref := range append(append([]types.EvidenceRef{}, ev.Investigation...), ev.Outcome...) {
		require.NoError(t, ref.Validate())
		assert.NotEmpty(t, ref.Excerpt)
		assert.LessOrEqual(t, len(ref.Excerpt), 240)
	}
	assert.Equal(t, "doc-1", ev.Investigation[0].DocumentID)

	sig := plan.Candidates[0].Candidate.Signals
	assert.GreaterOrEqual(t, sig.Systematic, 2)
	assert.GreaterOrEqual(t, sig.Setback, 1)
}

func TestPlan_FloorLeavesMembersUnassigned(t *testing.T) {
	docs := []Analysis{
		analyze(t, "doc-1", "Project ROUTINE: performed routine maintenance using standard vendor documentation.", 0),
		analyze(t, "doc-2", "Project ROUTINE: normal operating procedure followed for the quarterly patching.", time.Hour),
		analyze(t, "doc-3", "Lunch menu for the offsite next week, nothing technical here at all.", 2*time.Hour),
	}
	plan := New(clustering.New(clustering.DefaultConfig()), 0.5).Plan("s1", docs)

	assert.Empty(t, plan.Candidates)
	assert.Equal(t, 1, plan.BelowFloor)
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, plan.Unassigned)
}

func TestPlan_SingleMemberIsLowTier(t *testing.T) {
	docs := []Analysis{
		analyze(t, "doc-1", "Project LONELY: we hypothesized a new approach and the experiment succeeded after the first attempt failed.", 0),
	}
	plan := New(clustering.New(clustering.DefaultConfig()), 0).Plan("s1", docs)
	require.Len(t, plan.Candidates, 1)
	assert.Equal(t, types.TierLow, plan.Candidates[0].Candidate.Tier)
}

func TestAnalysisTermsAndKeys(t *testing.T) {
	a := Analysis{
		Document: &types.Document{ID: "d"},
		Entities: types.EntitySet{
			People:         []string{"Alice Wong"},
			Organizations:  []string{"Acme", "ACME"},
			TechnicalTerms: []string{"CUDA"},
			ProjectNames:   []string{"Project Beacon", "BEACON-12"},
		},
	}
	assert.Equal(t, []string{"alice wong", "acme", "cuda"}, a.Terms())
	assert.Contains(t, a.TokenKeys(), "BEACON")
}

func TestSortByCreation(t *testing.T) {
	docs := []Analysis{
		{Document: &types.Document{ID: "b", CreatedAt: base}},
		{Document: &types.Document{ID: "c", CreatedAt: base.Add(-time.Hour)}},
		{Document: &types.Document{ID: "a", CreatedAt: base}},
	}
	SortByCreation(docs)
	assert.Equal(t, "c", docs[0].Document.ID)
	assert.Equal(t, "a", docs[1].Document.ID)
	assert.Equal(t, "b", docs[2].Document.ID)
}
