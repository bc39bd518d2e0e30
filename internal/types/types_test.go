package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateStatusTransitions(t *testing.T) {
	tests := []struct {
		from  CandidateStatus
		to    CandidateStatus
		valid bool
	}{
		{CandidateDiscovered, CandidateApproved, true},
		{CandidateDiscovered, CandidateRejected, true},
		{CandidateApproved, CandidateRejected, false},
		{CandidateApproved, CandidateDiscovered, false},
		{CandidateRejected, CandidateApproved, false},
		{CandidateRejected, CandidateDiscovered, false},
		{CandidateDiscovered, CandidateDiscovered, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.valid {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestCandidateStatusIsActive(t *testing.T) {
	assert.True(t, CandidateDiscovered.IsActive())
	assert.True(t, CandidateApproved.IsActive())
	assert.False(t, CandidateRejected.IsActive())
}

func TestCandidateProfileTokenKeyed(t *testing.T) {
	assert.True(t, (&CandidateProfile{NameKey: "BEACON", Aliases: []string{"FALCON", "BEACON"}}).TokenKeyed())
	assert.False(t, (&CandidateProfile{NameKey: "WEEKLYSTATUS", Aliases: []string{"BEACON"}}).TokenKeyed())
	assert.False(t, (&CandidateProfile{}).TokenKeyed())
}

func TestProjectCandidateValidate(t *testing.T) {
	valid := func() *ProjectCandidate {
		return &ProjectCandidate{
			ScopeID:  "acme",
			Name:     "Project Beacon",
			Status:   CandidateDiscovered,
			Tier:     TierHigh,
			Score:    0.8,
			Cohesion: 0.9,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *ProjectCandidate)
		wantErr bool
	}{
		{"valid", func(c *ProjectCandidate) {}, false},
		{"missing scope", func(c *ProjectCandidate) { c.ScopeID = "" }, true},
		{"blank name", func(c *ProjectCandidate) { c.Name = "   " }, true},
		{"bad status", func(c *ProjectCandidate) { c.Status = "pending" }, true},
		{"bad tier", func(c *ProjectCandidate) { c.Tier = "extreme" }, true},
		{"score above one", func(c *ProjectCandidate) { c.Score = 1.2 }, true},
		{"negative cohesion", func(c *ProjectCandidate) { c.Cohesion = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNarrativeEvidenceAppendDedupes(t *testing.T) {
	var n NarrativeEvidence
	ref := EvidenceRef{DocumentID: "d1", Offset: 10, Length: 5}

	n.Append(SlotUncertainty, ref)
	n.Append(SlotUncertainty, ref)
	n.Append(SlotOutcome, ref)
	n.Append("bogus", ref)

	assert.Len(t, n.Uncertainty, 1)
	assert.Len(t, n.Outcome, 1)
	assert.Empty(t, n.Investigation)
	assert.Equal(t, 2, n.Len())
	assert.Equal(t, n.Outcome, n.Slot(SlotOutcome))
}

func TestSlotForCategory(t *testing.T) {
	cases := map[SignalCategory]EvidenceSlot{
		CategoryUncertainty: SlotUncertainty,
		CategorySystematic:  SlotInvestigation,
		CategorySetback:     SlotOutcome,
		CategoryAdvancement: SlotOutcome,
	}
	for cat, want := range cases {
		got, ok := SlotForCategory(cat)
		require.True(t, ok, "category %s", cat)
		assert.Equal(t, want, got)
	}

	_, ok := SlotForCategory(CategoryDisqualifier)
	assert.False(t, ok, "disqualifiers feed no narrative slot")
}

func TestSignalCountsAdd(t *testing.T) {
	var c SignalCounts
	c.Add(&SignalProfile{Uncertainty: CategorySignal{Count: 2}, Setback: CategorySignal{Count: 1}})
	c.Add(&SignalProfile{Uncertainty: CategorySignal{Count: 1}, Disqualifier: CategorySignal{Count: 3}})
	c.Add(nil)

	assert.Equal(t, SignalCounts{Uncertainty: 3, Setback: 1, Disqualifier: 3}, c)
}

func TestDocumentLabel(t *testing.T) {
	doc := &Document{ID: "d1", ScopeID: "s", Text: "\n\n  Weekly status: latency work\nbody"}
	assert.Equal(t, "Weekly status: latency work", doc.Label())

	doc.Title = "Subject line"
	assert.Equal(t, "Subject line", doc.Label())

	long := &Document{Title: "This is a deliberately long subject line that keeps going well beyond sixty characters"}
	label := long.Label()
	assert.LessOrEqual(t, len([]rune(label)), 63)
	assert.Contains(t, label, "...")
}

func TestDocumentValidate(t *testing.T) {
	assert.Error(t, (&Document{ScopeID: "s"}).Validate())
	assert.Error(t, (&Document{ID: "d"}).Validate())
	assert.NoError(t, (&Document{ID: "d", ScopeID: "s"}).Validate())
}

func TestTagActiveAndValidate(t *testing.T) {
	now := time.Now()
	tag := DocumentProjectTag{DocumentID: "d1", ProjectID: "p1", Provenance: ProvenanceSystem, Confidence: 0.7}
	require.NoError(t, tag.Validate())
	assert.True(t, tag.IsActive())

	tag.RemovedAt = &now
	assert.False(t, tag.IsActive())

	bad := DocumentProjectTag{DocumentID: "d1", ProjectID: "p1", Provenance: "robot"}
	assert.Error(t, bad.Validate())
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &InputError{DocumentID: "d1", Reason: "empty text"}
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrConsistencyViolation))

	upstream := errors.New("connection refused")
	err = fmt.Errorf("embedding: %w", &CollaboratorError{Collaborator: "embedder", Err: upstream})
	assert.True(t, errors.Is(err, ErrCollaboratorUnavailable))
	assert.True(t, errors.Is(err, upstream))

	err = &ConsistencyError{ScopeID: "a", DocumentID: "d9", Reason: "document belongs to scope b"}
	assert.True(t, errors.Is(err, ErrConsistencyViolation))
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "d9", ce.DocumentID)
}

func TestRunValidate(t *testing.T) {
	r := &DiscoveryRun{ScopeID: "s", Mode: RunFull, Status: RunRunning}
	assert.NoError(t, r.Validate())
	r.Mode = "partial"
	assert.Error(t, r.Validate())
}
