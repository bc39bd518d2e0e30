package types

import "fmt"

// TagRequest is an upsertTags call: tag DocumentIDs to ProjectID
type TagRequest struct {
	ScopeID     string
	ProjectID   string
	DocumentIDs []string
	Provenance  Provenance
	Confidence  float64
	RunID       string // creation batch, empty for manual edits
	Actor       string
}

// Validate checks the request
func (r *TagRequest) Validate() error {
	if r.ScopeID == "" {
		return fmt.Errorf("scope_id is required")
	}
	if r.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if !r.Provenance.IsValid() {
		return fmt.Errorf("invalid provenance: %s", r.Provenance)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1 (got %.2f)", r.Confidence)
	}
	return nil
}

// TagWrite is one system tag written by a run commit
type TagWrite struct {
	DocumentID string
	ProjectID  string
	Confidence float64
}

// RunBatch is everything a discovery run makes visible, committed together
type RunBatch struct {
	NewCandidates     []*ProjectCandidate // inserted in discovered state
	UpdatedCandidates []*ProjectCandidate // rescored by a full run; applied only while still discovered
	Tags              []TagWrite
	Proposals         []*Proposal
}

// ProjectIDs returns the distinct project IDs the batch touches
func (b *RunBatch) ProjectIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, c := range b.NewCandidates {
		add(c.ID)
	}
	for _, c := range b.UpdatedCandidates {
		add(c.ID)
	}
	for _, t := range b.Tags {
		add(t.ProjectID)
	}
	return ids
}

// ProposalFilter narrows proposal listings
type ProposalFilter struct {
	ScopeID  string
	RunID    string
	OpenOnly bool
	Limit    int
}
