package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitionEventRoundTrip(t *testing.T) {
	event, err := NewStatusTransitionEvent("acme", "proj-1", "alice", StatusTransitionData{
		From:    "discovered",
		To:      "approved",
		Trigger: "human_review",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventTypeCandidateStatusChanged, event.Type)
	assert.Equal(t, "alice", event.Actor)
	assert.Equal(t, "proj-1", event.ProjectID)
	assert.Contains(t, event.Message, "discovered → approved")

	data, err := event.GetStatusTransitionData()
	require.NoError(t, err)
	assert.Equal(t, "approved", data.To)
	assert.Equal(t, "human_review", data.Trigger)
}

func TestDegradationEvent(t *testing.T) {
	event, err := NewDegradationEvent("acme", "run-1", DegradationData{
		Collaborator: "embedder",
		Documents:    []string{"d1", "d2"},
		Error:        "timeout",
	})
	require.NoError(t, err)

	assert.Equal(t, SeverityWarning, event.Severity)
	assert.Equal(t, "run-1", event.RunID)
	assert.Contains(t, event.Message, "2 documents")

	data, err := event.GetDegradationData()
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, data.Documents)
}

func TestRunCompletedEvent(t *testing.T) {
	event, err := NewRunCompletedEvent("acme", "run-2", RunCompletedData{
		Mode:              "full",
		Documents:         12,
		CandidatesCreated: 3,
		Proposals:         0,
	})
	require.NoError(t, err)

	data, err := event.GetRunCompletedData()
	require.NoError(t, err)
	assert.Equal(t, 12, data.Documents)
	assert.Equal(t, "full", data.Mode)
	assert.Equal(t, ActorSystem, event.Actor)
}

func TestNewEventDefaults(t *testing.T) {
	a := New(EventTypeTagAdded, "s", SeverityInfo, "tagged")
	b := New(EventTypeTagAdded, "s", SeverityInfo, "tagged")
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotNil(t, a.Data)
	assert.False(t, a.Timestamp.IsZero())
}
