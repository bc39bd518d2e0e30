package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorSystem is the actor recorded for pipeline-originated changes
const ActorSystem = "system"

// New creates an event with a fresh ID and timestamp.
func New(eventType EventType, scopeID string, severity EventSeverity, message string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		ScopeID:   scopeID,
		Actor:     ActorSystem,
		Severity:  severity,
		Message:   message,
		Data:      map[string]interface{}{},
	}
}

// NewStatusTransitionEvent creates an event for a candidate status change with type-safe data.
func NewStatusTransitionEvent(scopeID, projectID, actor string, data StatusTransitionData) (*Event, error) {
	event := New(EventTypeCandidateStatusChanged, scopeID, SeverityInfo,
		fmt.Sprintf("Candidate status: %s → %s (trigger: %s)", data.From, data.To, data.Trigger))
	event.ProjectID = projectID
	event.Actor = actor
	if err := event.SetStatusTransitionData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewRunCompletedEvent creates an event for a committed run with type-safe data.
func NewRunCompletedEvent(scopeID, runID string, data RunCompletedData) (*Event, error) {
	event := New(EventTypeRunCompleted, scopeID, SeverityInfo,
		fmt.Sprintf("Discovery run completed: %d documents, %d new candidates, %d proposals",
			data.Documents, data.CandidatesCreated, data.Proposals))
	event.RunID = runID
	if err := event.SetRunCompletedData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewDegradationEvent creates a warning event for an unavailable collaborator.
func NewDegradationEvent(scopeID, runID string, data DegradationData) (*Event, error) {
	event := New(EventTypeCollaboratorDegraded, scopeID, SeverityWarning,
		fmt.Sprintf("%s unavailable for %d documents, used fallback", data.Collaborator, len(data.Documents)))
	event.RunID = runID
	if err := event.SetDegradationData(data); err != nil {
		return nil, err
	}
	return event, nil
}
