package events

import (
	"context"
	"time"
)

// EventType represents the type of audit event recorded by discovery.
type EventType string

const (
	// EventTypeRunStarted indicates a discovery run was created
	EventTypeRunStarted EventType = "run_started"
	// EventTypeRunCompleted indicates a discovery run committed its results
	EventTypeRunCompleted EventType = "run_completed"
	// EventTypeRunAbandoned indicates a discovery run failed and left nothing visible
	EventTypeRunAbandoned EventType = "run_abandoned"
	// EventTypeDocumentSkipped indicates a document was skipped as invalid input
	EventTypeDocumentSkipped EventType = "document_skipped"
	// EventTypeCollaboratorDegraded indicates an embedding or NER collaborator was unavailable
	EventTypeCollaboratorDegraded EventType = "collaborator_degraded"

	// EventTypeCandidateCreated indicates a new project candidate was proposed
	EventTypeCandidateCreated EventType = "candidate_created"
	// EventTypeCandidateUpdated indicates a discovered candidate was rescored by a full run
	EventTypeCandidateUpdated EventType = "candidate_updated"
	// EventTypeCandidateRevived indicates a rejected candidate was re-proposed as a new candidate
	EventTypeCandidateRevived EventType = "candidate_revived"
	// EventTypeCandidateStatusChanged indicates a human approved or rejected a candidate
	EventTypeCandidateStatusChanged EventType = "candidate_status_changed"

	// EventTypeTagAdded indicates a document was tagged to a project
	EventTypeTagAdded EventType = "tag_added"
	// EventTypeTagSuperseded indicates a newer tag record replaced an older one
	EventTypeTagSuperseded EventType = "tag_superseded"
	// EventTypeTagRemoved indicates a user removed a tag
	EventTypeTagRemoved EventType = "tag_removed"
	// EventTypeTagSuppressed indicates a system tag was not re-applied because a user removed it
	EventTypeTagSuppressed EventType = "tag_suppressed"

	// EventTypeNarrativeImpact indicates new evidence contradicts a stored narrative
	EventTypeNarrativeImpact EventType = "narrative_impact_flagged"
	// EventTypeProposalResolved indicates a pending proposal was accepted or dismissed
	EventTypeProposalResolved EventType = "proposal_resolved"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates degraded but complete outcomes
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates failed operations
	SeverityError EventSeverity = "error"
)

// Event is one audit record. Events are append-only and joined to runs,
// projects and documents through their IDs.
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// ScopeID is the claim scope the event belongs to
	ScopeID string `json:"scope_id"`
	// RunID is the discovery run that produced the event, if any
	RunID string `json:"run_id,omitempty"`
	// ProjectID is the candidate the event concerns, if any
	ProjectID string `json:"project_id,omitempty"`
	// DocumentID is the document the event concerns, if any
	DocumentID string `json:"document_id,omitempty"`
	// Actor is who initiated the change ("system" or a user name)
	Actor string `json:"actor"`
	// Severity is the severity level of this event
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data"`
}

// StatusTransitionData describes a candidate status change.
type StatusTransitionData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Trigger string `json:"trigger"`
}

// RunCompletedData summarizes a committed discovery run.
type RunCompletedData struct {
	Mode              string `json:"mode"`
	Documents         int    `json:"documents"`
	Skipped           int    `json:"skipped"`
	CandidatesCreated int    `json:"candidates_created"`
	CandidatesUpdated int    `json:"candidates_updated"`
	TagsApplied       int    `json:"tags_applied"`
	Proposals         int    `json:"proposals"`
	FallbackDocuments int    `json:"fallback_documents"`
	Strategy          string `json:"strategy"`
	DurationMs        int64  `json:"duration_ms"`
}

// DegradationData describes a collaborator outage absorbed by a run.
type DegradationData struct {
	Collaborator string   `json:"collaborator"`
	Documents    []string `json:"documents"`
	Error        string   `json:"error,omitempty"`
}

// EventStore defines the interface for storing and retrieving audit events.
type EventStore interface {
	// StoreEvent stores a new event
	StoreEvent(ctx context.Context, event *Event) error

	// GetEvents retrieves events matching the given filter, most recent first
	GetEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
}

// EventFilter defines criteria for filtering events.
type EventFilter struct {
	// ScopeID filters events by claim scope
	ScopeID string
	// RunID filters events by discovery run
	RunID string
	// ProjectID filters events by candidate
	ProjectID string
	// DocumentID filters events by document
	DocumentID string
	// Type filters events by event type
	Type EventType
	// Severity filters events by severity level
	Severity EventSeverity
	// AfterTime filters events that occurred after this time
	AfterTime time.Time
	// Limit limits the number of events returned
	Limit int
}
