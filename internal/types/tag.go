package types

import (
	"fmt"
	"time"
)

// Provenance records whether a tag came from the pipeline or from a person
type Provenance string

const (
	ProvenanceSystem Provenance = "system"
	ProvenanceUser   Provenance = "user"
)

// IsValid checks if the provenance value is valid
func (p Provenance) IsValid() bool {
	switch p {
	case ProvenanceSystem, ProvenanceUser:
		return true
	}
	return false
}

// DocumentProjectTag links a document to a project candidate. Rows are never
// updated in place: a newer tag for the same (document, project, provenance)
// supersedes the older row, and removal stamps RemovedAt.
type DocumentProjectTag struct {
	ID           int64      `json:"id"`
	DocumentID   string     `json:"document_id"`
	ProjectID    string     `json:"project_id"`
	ScopeID      string     `json:"scope_id"`
	Provenance   Provenance `json:"provenance"`
	Confidence   float64    `json:"confidence"`
	RunID        string     `json:"run_id,omitempty"` // creation batch
	CreatedAt    time.Time  `json:"created_at"`
	SupersededBy *int64     `json:"superseded_by,omitempty"`
	RemovedAt    *time.Time `json:"removed_at,omitempty"`
	RemovedBy    string     `json:"removed_by,omitempty"`
}

// IsActive reports whether the tag is current (neither superseded nor removed)
func (t *DocumentProjectTag) IsActive() bool {
	return t.SupersededBy == nil && t.RemovedAt == nil
}

// Validate checks if the tag has valid field values
func (t *DocumentProjectTag) Validate() error {
	if t.DocumentID == "" {
		return fmt.Errorf("document_id is required")
	}
	if t.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if !t.Provenance.IsValid() {
		return fmt.Errorf("invalid provenance: %s", t.Provenance)
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1 (got %.2f)", t.Confidence)
	}
	return nil
}

// TagAction is the kind of change applied to a tag
type TagAction string

const (
	TagAdd        TagAction = "add"
	TagRemove     TagAction = "remove"
	TagSupersede  TagAction = "supersede"  // same pair re-tagged with a newer record
	TagSuppressed TagAction = "suppressed" // system re-proposal of a pair the user removed
	TagProposed   TagAction = "proposed"   // returned for confirmation, not applied
)

// IsValid checks if the action value is valid
func (a TagAction) IsValid() bool {
	switch a {
	case TagAdd, TagRemove, TagSupersede, TagSuppressed, TagProposed:
		return true
	}
	return false
}

// TagChange describes one change (applied or proposed) to the tag relation
type TagChange struct {
	DocumentID string     `json:"document_id"`
	ProjectID  string     `json:"project_id"`
	Action     TagAction  `json:"action"`
	Provenance Provenance `json:"provenance"`
	Confidence float64    `json:"confidence"`
	Applied    bool       `json:"applied"`
}
