package types

import (
	"fmt"
	"strings"
	"time"
)

// CandidateStatus is the review state of a project candidate
type CandidateStatus string

const (
	CandidateDiscovered CandidateStatus = "discovered" // Proposed by the pipeline, awaiting review
	CandidateApproved   CandidateStatus = "approved"   // Confirmed by a human
	CandidateRejected   CandidateStatus = "rejected"   // Dismissed by a human
)

// IsValid checks if the status value is valid
func (s CandidateStatus) IsValid() bool {
	switch s {
	case CandidateDiscovered, CandidateApproved, CandidateRejected:
		return true
	}
	return false
}

// ValidTransitions defines the candidate status state machine.
//
//	discovered → approved
//	discovered → rejected
//
// approved and rejected are terminal. A rejected candidate comes back only as a
// new candidate produced by a fresh discovery run, never by mutation.
func (s CandidateStatus) ValidTransitions() []CandidateStatus {
	switch s {
	case CandidateDiscovered:
		return []CandidateStatus{CandidateApproved, CandidateRejected}
	default:
		return []CandidateStatus{}
	}
}

// CanTransitionTo checks if a transition from this status to the target is valid
func (s CandidateStatus) CanTransitionTo(target CandidateStatus) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the candidate participates in change detection
func (s CandidateStatus) IsActive() bool {
	return s == CandidateDiscovered || s == CandidateApproved
}

// ConfidenceTier is the coarse eligibility confidence of a candidate
type ConfidenceTier string

const (
	TierHigh   ConfidenceTier = "high"
	TierMedium ConfidenceTier = "medium"
	TierLow    ConfidenceTier = "low"
)

// IsValid checks if the tier value is valid
func (t ConfidenceTier) IsValid() bool {
	switch t {
	case TierHigh, TierMedium, TierLow:
		return true
	}
	return false
}

// EvidenceSlot names one narrative section
type EvidenceSlot string

const (
	SlotUncertainty   EvidenceSlot = "uncertainty"
	SlotInvestigation EvidenceSlot = "investigation"
	SlotOutcome       EvidenceSlot = "outcome"
)

// AllEvidenceSlots lists slots in narrative order
var AllEvidenceSlots = []EvidenceSlot{SlotUncertainty, SlotInvestigation, SlotOutcome}

// IsValid checks if the slot value is valid
func (s EvidenceSlot) IsValid() bool {
	switch s {
	case SlotUncertainty, SlotInvestigation, SlotOutcome:
		return true
	}
	return false
}

// SlotForCategory maps a signal category to the narrative slot it supports.
// Disqualifier signals do not feed any slot.
func SlotForCategory(c SignalCategory) (EvidenceSlot, bool) {
	switch c {
	case CategoryUncertainty:
		return SlotUncertainty, true
	case CategorySystematic:
		return SlotInvestigation, true
	case CategorySetback, CategoryAdvancement:
		return SlotOutcome, true
	}
	return "", false
}

// EvidenceRef points at a span of a document. Excerpt is a snapshot of the
// sentence around the span, kept so contradiction checks don't need the source.
type EvidenceRef struct {
	DocumentID string `json:"document_id"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
	Excerpt    string `json:"excerpt,omitempty"`
}

// Validate checks the reference is well formed
func (r EvidenceRef) Validate() error {
	if r.DocumentID == "" {
		return fmt.Errorf("evidence document_id is required")
	}
	if r.Offset < 0 || r.Length < 0 {
		return fmt.Errorf("evidence offset/length cannot be negative (got %d/%d)", r.Offset, r.Length)
	}
	return nil
}

// NarrativeEvidence is the fixed set of narrative slots of a candidate
type NarrativeEvidence struct {
	Uncertainty   []EvidenceRef `json:"uncertainty,omitempty"`
	Investigation []EvidenceRef `json:"investigation,omitempty"`
	Outcome       []EvidenceRef `json:"outcome,omitempty"`
}

// Slot returns the references held in a slot
func (n *NarrativeEvidence) Slot(s EvidenceSlot) []EvidenceRef {
	switch s {
	case SlotUncertainty:
		return n.Uncertainty
	case SlotInvestigation:
		return n.Investigation
	case SlotOutcome:
		return n.Outcome
	}
	return nil
}

// Append adds a reference to a slot, skipping exact duplicates
func (n *NarrativeEvidence) Append(s EvidenceSlot, ref EvidenceRef) {
	target := n.slotPtr(s)
	if target == nil {
		return
	}
	for _, existing := range *target {
		if existing.DocumentID == ref.DocumentID && existing.Offset == ref.Offset && existing.Length == ref.Length {
			return
		}
	}
	*target = append(*target, ref)
}

// Len returns the total number of references across slots
func (n *NarrativeEvidence) Len() int {
	return len(n.Uncertainty) + len(n.Investigation) + len(n.Outcome)
}

func (n *NarrativeEvidence) slotPtr(s EvidenceSlot) *[]EvidenceRef {
	switch s {
	case SlotUncertainty:
		return &n.Uncertainty
	case SlotInvestigation:
		return &n.Investigation
	case SlotOutcome:
		return &n.Outcome
	}
	return nil
}

// CandidateProfile summarizes what a candidate "looks like" for matching new documents
type CandidateProfile struct {
	NameKey  string    `json:"name_key"`
	Aliases  []string  `json:"aliases,omitempty"` // normalized project tokens seen among members
	Terms    []string  `json:"terms,omitempty"`   // lowercased people/org/technical terms
	Centroid []float32 `json:"centroid,omitempty"`
}

// TokenKeyed reports whether NameKey is one of the project tokens seen among
// members. A key synthesized from a document title is not an identity.
func (p *CandidateProfile) TokenKeyed() bool {
	if p.NameKey == "" {
		return false
	}
	for _, a := range p.Aliases {
		if a == p.NameKey {
			return true
		}
	}
	return false
}

// ProjectCandidate is a system-proposed grouping of documents hypothesized to
// represent one coherent effort.
type ProjectCandidate struct {
	ID             string            `json:"id"`
	ScopeID        string            `json:"scope_id"`
	Name           string            `json:"name"`
	Status         CandidateStatus   `json:"status"`
	Tier           ConfidenceTier    `json:"confidence_tier"`
	Score          float64           `json:"confidence_score"`
	Cohesion       float64           `json:"cohesion"`
	Signals        SignalCounts      `json:"signal_counts"`
	Evidence       NarrativeEvidence `json:"narrative_evidence"`
	Profile        CandidateProfile  `json:"profile"`
	RevivedFrom    string            `json:"revived_from,omitempty"` // rejected candidate this one re-proposes
	CreatedByRunID string            `json:"created_by_run_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Validate checks if the candidate has valid field values
func (c *ProjectCandidate) Validate() error {
	if strings.TrimSpace(c.ScopeID) == "" {
		return fmt.Errorf("scope_id is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(c.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(c.Name))
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if !c.Tier.IsValid() {
		return fmt.Errorf("invalid confidence tier: %s", c.Tier)
	}
	if c.Score < 0 || c.Score > 1 {
		return fmt.Errorf("confidence score must be between 0 and 1 (got %.2f)", c.Score)
	}
	if c.Cohesion < 0 || c.Cohesion > 1 {
		return fmt.Errorf("cohesion must be between 0 and 1 (got %.2f)", c.Cohesion)
	}
	return nil
}

// CandidateFilter narrows candidate listings
type CandidateFilter struct {
	ScopeID  string
	Statuses []CandidateStatus // empty = all
	NameKey  string
	Limit    int
}
