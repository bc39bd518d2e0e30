package types

import (
	"errors"
	"fmt"
)

// Error taxonomy. Only consistency violations abort a discovery run; input
// errors skip the offending document and collaborator errors degrade to the
// fallback path.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrConsistencyViolation    = errors.New("consistency violation")
	ErrNotFound                = errors.New("not found")
	ErrInvalidTransition       = errors.New("invalid status transition")
)

// InputError reports a malformed or empty document reference
type InputError struct {
	DocumentID string
	Reason     string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("document %q: %s", e.DocumentID, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// CollaboratorError reports that an external collaborator (embedding, NER,
// narrative) could not serve a request
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() []error { return []error{ErrCollaboratorUnavailable, e.Err} }

// ConsistencyError reports an attempt to cross tenant scope boundaries
type ConsistencyError struct {
	ScopeID    string
	DocumentID string
	ProjectID  string
	Reason     string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation in scope %q (document=%q project=%q): %s",
		e.ScopeID, e.DocumentID, e.ProjectID, e.Reason)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistencyViolation }
