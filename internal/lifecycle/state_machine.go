// Package lifecycle drives project candidate review status.
//
// State flow:
//   - discovered → approved   (a reviewer confirms the project)
//   - discovered → rejected   (a reviewer dismisses it)
//
// approved and rejected are terminal. A rejected project only comes back as a
// new candidate from a later discovery run.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/types"
)

// Trigger types for status transitions
const (
	// TriggerManualReview indicates a reviewer set the status directly
	TriggerManualReview = "manual_review"
	// TriggerProposalAccepted indicates the status followed an accepted proposal
	TriggerProposalAccepted = "proposal_accepted"
)

// Storage is the subset of storage.Storage the state machine needs
type Storage interface {
	GetCandidate(ctx context.Context, id string) (*types.ProjectCandidate, error)
	UpdateCandidateStatus(ctx context.Context, id string, from, to types.CandidateStatus, actor string) error
	StoreEvent(ctx context.Context, event *events.Event) error
}

// SetCandidateStatus moves a candidate to approved or rejected and logs the
// transition. Setting the status a candidate already has is a no-op.
//
// Returns the updated candidate. types.ErrInvalidTransition is returned for
// any transition out of a terminal status.
func SetCandidateStatus(ctx context.Context, store Storage, projectID string, to types.CandidateStatus, trigger, actor string) (*types.ProjectCandidate, error) {
	if to != types.CandidateApproved && to != types.CandidateRejected {
		return nil, fmt.Errorf("cannot set candidate status to %q: %w", to, types.ErrInvalidTransition)
	}

	candidate, err := store.GetCandidate(ctx, projectID)
	if err != nil {
		return nil, err
	}
	from := candidate.Status
	if from == to {
		return candidate, nil
	}
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("candidate %s is %s and cannot become %s: %w", projectID, from, to, types.ErrInvalidTransition)
	}

	if err := store.UpdateCandidateStatus(ctx, projectID, from, to, actor); err != nil {
		return nil, fmt.Errorf("failed to set status of %s: %w", projectID, err)
	}
	candidate.Status = to

	event, err := events.NewStatusTransitionEvent(candidate.ScopeID, projectID, actor, events.StatusTransitionData{
		From:    string(from),
		To:      string(to),
		Trigger: trigger,
	})
	if err == nil {
		err = store.StoreEvent(ctx, event)
	}
	if err != nil {
		// The transition itself succeeded
		return candidate, &EventLogError{Err: err}
	}
	return candidate, nil
}

// EventLogError reports a transition that was applied but not audited
type EventLogError struct {
	Err error
}

func (e *EventLogError) Error() string {
	return fmt.Sprintf("warning: status transition succeeded but failed to log event: %v", e.Err)
}

func (e *EventLogError) Unwrap() error { return e.Err }

// IsEventLogOnly reports whether err only failed the audit log
func IsEventLogOnly(err error) bool {
	var logErr *EventLogError
	return errors.As(err, &logErr)
}
