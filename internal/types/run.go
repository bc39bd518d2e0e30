package types

import (
	"fmt"
	"time"
)

// RunMode distinguishes full from incremental discovery
type RunMode string

const (
	RunFull        RunMode = "full"
	RunIncremental RunMode = "incremental"
)

// IsValid checks if the mode value is valid
func (m RunMode) IsValid() bool {
	switch m {
	case RunFull, RunIncremental:
		return true
	}
	return false
}

// RunStatus tracks a discovery run's lifecycle
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed" // immutable from here on
	RunAbandoned RunStatus = "abandoned" // failed partway; nothing from it is visible
)

// IsValid checks if the status value is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunRunning, RunCompleted, RunAbandoned:
		return true
	}
	return false
}

// DiscoveryRun is one execution of the pipeline over a document batch.
// Number is sequential within a scope.
type DiscoveryRun struct {
	ID          string     `json:"id"`
	ScopeID     string     `json:"scope_id"`
	Number      int        `json:"number"`
	Mode        RunMode    `json:"mode"`
	Status      RunStatus  `json:"status"`
	DocumentIDs []string   `json:"document_ids"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Validate checks if the run has valid field values
func (r *DiscoveryRun) Validate() error {
	if r.ScopeID == "" {
		return fmt.Errorf("scope_id is required")
	}
	if !r.Mode.IsValid() {
		return fmt.Errorf("invalid run mode: %s", r.Mode)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("invalid run status: %s", r.Status)
	}
	return nil
}
