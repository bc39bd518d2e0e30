// Package changes classifies a batch of new documents against the project
// candidates that already exist in a scope.
//
// Every document starts pending_analysis and ends in exactly one of:
//
//	safe_addition     matches an existing candidate and fits its narrative
//	narrative_impact  matches an existing candidate but contradicts a stored claim
//	new_candidate     clusters with other new documents into a new candidate
//	unassigned        none of the above
//
// Detection never writes anything. Callers decide what to apply; approved
// candidates only ever receive additive or flagged proposals.
package changes

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/planning"
	"github.com/steveyegge/rdscout/internal/types"
)

// DefaultMatchThreshold is the profile similarity needed to attach a
// document to an existing candidate
const DefaultMatchThreshold = 0.60

// minOverlapTerms is the smaller term set size below which entity overlap
// is too noisy to count
const minOverlapTerms = 3

// Match basis names
const (
	BasisToken    = "project_token"
	BasisEntities = "entity_overlap"
	BasisCentroid = "embedding_centroid"
)

// Link attaches a document to an existing candidate
type Link struct {
	DocumentID    string
	CandidateID   string
	Similarity    float64
	Basis         string
	Outcome       types.ChangeOutcome // safe_addition or narrative_impact
	Contradiction *Contradiction
}

// Reason describes the link for reviewers
func (l Link) Reason() string {
	if l.Contradiction != nil {
		return fmt.Sprintf("%s claim %q contradicted by %q", l.Contradiction.Rule, l.Contradiction.Claim, l.Contradiction.Conflict)
	}
	return fmt.Sprintf("matched on %s (%.2f)", l.Basis, l.Similarity)
}

// Detection is the classification of one batch
type Detection struct {
	Outcomes map[string]types.ChangeOutcome
	Links    []Link        // sorted by document then candidate
	Plan     planning.Plan // candidates proposed from unmatched documents
	Skipped  bool          // no existing candidates, matching skipped
}

// Service classifies new documents
type Service struct {
	threshold float64
	rules     []Rule
	planner   *planning.Planner
	logger    *slog.Logger
}

// New creates a service. threshold <= 0 uses DefaultMatchThreshold and nil
// rules use DefaultRules.
func New(planner *planning.Planner, threshold float64, rules []Rule, logger *slog.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	if rules == nil {
		rules = DefaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{threshold: threshold, rules: rules, planner: planner, logger: logger}
}

// Detect classifies batch against existing. Only discovered and approved
// candidates are matched.
func (s *Service) Detect(scopeID string, batch []planning.Analysis, existing []*types.ProjectCandidate) Detection {
	det := Detection{Outcomes: make(map[string]types.ChangeOutcome, len(batch))}
	for _, a := range batch {
		det.Outcomes[a.Document.ID] = types.OutcomePending
	}

	var active []*types.ProjectCandidate
	for _, c := range existing {
		if c.Status.IsActive() && c.ScopeID == scopeID {
			active = append(active, c)
		}
	}
	det.Skipped = len(active) == 0

	var remaining []planning.Analysis
	for i := range batch {
		a := &batch[i]
		links := s.linkDocument(a, active)
		if len(links) == 0 {
			remaining = append(remaining, *a)
			continue
		}
		outcome := types.OutcomeSafeAddition
		for _, l := range links {
			if l.Outcome == types.OutcomeNarrativeImpact {
				outcome = types.OutcomeNarrativeImpact
			}
		}
		det.Outcomes[a.Document.ID] = outcome
		det.Links = append(det.Links, links...)
	}

	sort.SliceStable(det.Links, func(i, j int) bool {
		if det.Links[i].DocumentID != det.Links[j].DocumentID {
			return det.Links[i].DocumentID < det.Links[j].DocumentID
		}
		return det.Links[i].CandidateID < det.Links[j].CandidateID
	})

	det.Plan = s.planner.Plan(scopeID, remaining)
	for _, p := range det.Plan.Candidates {
		for _, id := range p.Members {
			det.Outcomes[id] = types.OutcomeNewCandidate
		}
	}
	for _, id := range det.Plan.Unassigned {
		det.Outcomes[id] = types.OutcomeUnassigned
	}

	s.logger.Debug("change detection complete",
		"scope", scopeID, "documents", len(batch), "existing", len(active),
		"links", len(det.Links), "new_candidates", len(det.Plan.Candidates))
	return det
}

func (s *Service) linkDocument(a *planning.Analysis, candidates []*types.ProjectCandidate) []Link {
	var links []Link
	for _, c := range candidates {
		l := s.Classify(a, c)
		if l.Similarity < s.threshold {
			continue
		}
		links = append(links, l)
	}
	return links
}

// Classify links a document to one candidate without applying the match
// threshold. The outcome is narrative_impact when the document contradicts
// one of the candidate's stored claims under the service's rule table, and
// safe_addition otherwise.
func (s *Service) Classify(a *planning.Analysis, c *types.ProjectCandidate) Link {
	sim, basis := s.Similarity(a, c)
	l := Link{
		DocumentID:  a.Document.ID,
		CandidateID: c.ID,
		Similarity:  sim,
		Basis:       basis,
		Outcome:     types.OutcomeSafeAddition,
	}
	if con := FindContradiction(s.rules, &c.Evidence, a.Document.Text); con != nil {
		l.Outcome = types.OutcomeNarrativeImpact
		l.Contradiction = con
	}
	return l
}

// Similarity scores a document against a candidate profile as the best of a
// shared project token (1.0), entity overlap and centroid cosine
func (s *Service) Similarity(a *planning.Analysis, c *types.ProjectCandidate) (float64, string) {
	// Aliases hold the candidate's token key when it has one; a key made
	// from a title never matches on its own
	keys := make(map[string]bool)
	for _, k := range c.Profile.Aliases {
		keys[k] = true
	}
	for _, k := range a.TokenKeys() {
		if keys[k] {
			return 1.0, BasisToken
		}
	}

	best, basis := 0.0, ""
	terms := a.Terms()
	if len(terms) >= minOverlapTerms && len(c.Profile.Terms) >= minOverlapTerms {
		if v := clustering.OverlapCoefficient(terms, c.Profile.Terms); v > best {
			best, basis = v, BasisEntities
		}
	}
	if len(a.Embedding) > 0 && len(c.Profile.Centroid) > 0 {
		if v := clustering.CosineSimilarity(a.Embedding, c.Profile.Centroid); v > best {
			best, basis = v, BasisCentroid
		}
	}
	return best, basis
}
