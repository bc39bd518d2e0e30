package types

import "time"

// ChangeOutcome classifies one new document during change detection
type ChangeOutcome string

const (
	OutcomePending         ChangeOutcome = "pending_analysis"
	OutcomeSafeAddition    ChangeOutcome = "safe_addition"
	OutcomeNarrativeImpact ChangeOutcome = "narrative_impact"
	OutcomeNewCandidate    ChangeOutcome = "new_candidate"
	OutcomeUnassigned      ChangeOutcome = "unassigned"
)

// IsValid checks if the outcome value is valid
func (o ChangeOutcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeSafeAddition, OutcomeNarrativeImpact, OutcomeNewCandidate, OutcomeUnassigned:
		return true
	}
	return false
}

// IsTerminal reports whether analysis has classified the document
func (o ChangeOutcome) IsTerminal() bool {
	return o != OutcomePending && o.IsValid()
}

// ProposalResolution records what a reviewer did with a proposal
type ProposalResolution string

const (
	ResolutionAccepted  ProposalResolution = "accepted"
	ResolutionDismissed ProposalResolution = "dismissed"
	ResolutionApplied   ProposalResolution = "auto_applied"
)

// Proposal is a change-detection outcome awaiting (or past) human confirmation.
// For safe_addition and narrative_impact CandidateID names the matched
// existing candidate. A new_candidate proposal carries the proposed candidate
// and its member documents; nothing is persisted for it until accepted.
type Proposal struct {
	ID          int64              `json:"id"`
	RunID       string             `json:"run_id"`
	ScopeID     string             `json:"scope_id"`
	DocumentID  string             `json:"document_id"`
	Outcome     ChangeOutcome      `json:"outcome"`
	CandidateID string             `json:"candidate_id,omitempty"`
	Similarity  float64            `json:"similarity"`
	Reason      string             `json:"reason,omitempty"`
	Candidate   *ProjectCandidate  `json:"candidate,omitempty"`
	Members     []string           `json:"members,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	Resolution  ProposalResolution `json:"resolution,omitempty"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy  string             `json:"resolved_by,omitempty"`
}

// IsOpen reports whether the proposal still awaits review
func (p *Proposal) IsOpen() bool {
	return p.ResolvedAt == nil
}

// ProposalAcceptance is what accepting a proposal applied
type ProposalAcceptance struct {
	Proposal   *Proposal
	Candidate  *ProjectCandidate // linked or newly created candidate
	TagChanges []TagChange
}
