package discovery

import (
	"fmt"
	"time"

	"github.com/steveyegge/rdscout/internal/types"
)

// SkippedDocument is a requested document the run could not analyze
type SkippedDocument struct {
	DocumentID string
	Reason     string
}

// RunResult is what a discovery run returns to its caller
type RunResult struct {
	Run *types.DiscoveryRun

	// Candidates are the candidates this run created or rescored (full runs)
	// or proposes (incremental runs, IDs unset until accepted)
	Candidates []*types.ProjectCandidate

	// TagChanges are applied changes, plus proposed ones awaiting confirmation
	TagChanges []types.TagChange

	// Proposals are the per-document change-detection outcomes (incremental runs
	// and full-run additions to approved candidates)
	Proposals []*types.Proposal

	Unassigned   []string
	Skipped      []SkippedDocument
	Degradations []string // human-readable notes on degraded processing
	Strategy     string   // clustering strategy used
	FallbackDocs int      // documents clustered without an embedding
	Duration     time.Duration
}

// Analyzed returns the number of documents that were analyzed
func (r *RunResult) Analyzed() int {
	return len(r.Run.DocumentIDs) - len(r.Skipped)
}

// AppliedTagCount returns the number of tag changes actually written
func (r *RunResult) AppliedTagCount() int {
	n := 0
	for _, c := range r.TagChanges {
		if c.Applied {
			n++
		}
	}
	return n
}

// OpenProposals returns proposals still awaiting a decision
func (r *RunResult) OpenProposals() []*types.Proposal {
	var out []*types.Proposal
	for _, p := range r.Proposals {
		if p.IsOpen() && p.Outcome != types.OutcomeUnassigned {
			out = append(out, p)
		}
	}
	return out
}

// Summary is a one-line description for logs and CLI output
func (r *RunResult) Summary() string {
	return fmt.Sprintf("run #%d (%s): %d analyzed, %d skipped, %d candidates, %d tags applied, %d open proposals, %d unassigned",
		r.Run.Number, r.Run.Mode, r.Analyzed(), len(r.Skipped), len(r.Candidates),
		r.AppliedTagCount(), len(r.OpenProposals()), len(r.Unassigned))
}

// AcceptResult describes what accepting a proposal applied
type AcceptResult = types.ProposalAcceptance
