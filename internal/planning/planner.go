// Package planning turns analyzed documents into scored project candidates.
//
// Full discovery runs plan over the whole batch; incremental runs plan over
// the documents change detection could not attach to an existing candidate.
// Both go through Planner.Plan so an incremental run against an empty
// candidate set proposes exactly what a full run would.
package planning

import (
	"sort"
	"strings"

	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/entities"
	"github.com/steveyegge/rdscout/internal/scoring"
	"github.com/steveyegge/rdscout/internal/signals"
	"github.com/steveyegge/rdscout/internal/types"
)

// MaxEvidencePerSlot caps the references kept in one narrative slot
const MaxEvidencePerSlot = 25

// Analysis is everything the per-document stage produced for one document
type Analysis struct {
	Document  *types.Document
	Profile   types.SignalProfile
	Entities  types.EntitySet
	Matches   []signals.Match // located keyword hits, for evidence
	Embedding []float32       // nil when unavailable
}

// Terms returns the lowercased entity terms used for profile matching
func (a *Analysis) Terms() []string {
	var out []string
	seen := make(map[string]bool)
	for _, list := range [][]string{a.Entities.People, a.Entities.Organizations, a.Entities.TechnicalTerms} {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// TokenKeys returns the normalized project-name keys of the document
func (a *Analysis) TokenKeys() []string {
	return entities.TokenKeys(a.Entities.ProjectNames)
}

// Input converts the analysis to a clustering input
func (a *Analysis) Input() clustering.Input {
	return clustering.Input{
		DocumentID:    a.Document.ID,
		Title:         a.Document.Label(),
		CreatedAt:     a.Document.CreatedAt,
		ProjectTokens: a.Entities.ProjectNames,
		Terms:         a.Terms(),
		Embedding:     a.Embedding,
	}
}

// Planned is one proposed candidate with its member documents
type Planned struct {
	Candidate *types.ProjectCandidate // ID unset
	Members   []string
	Strategy  string
}

// Plan is the planner output for one batch
type Plan struct {
	Candidates   []Planned
	Unassigned   []string // documents in no candidate, sorted
	BelowFloor   int      // drafts dropped by the minimum score
	Strategy     string
	FallbackDocs []string
}

// Planner clusters and scores analyzed documents
type Planner struct {
	clusterer *clustering.Clusterer
	minScore  float64
}

// New creates a planner. Drafts scoring below minScore are not proposed.
func New(clusterer *clustering.Clusterer, minScore float64) *Planner {
	return &Planner{clusterer: clusterer, minScore: minScore}
}

// Plan clusters docs and builds one discovered candidate per surviving draft
func (p *Planner) Plan(scopeID string, docs []Analysis) Plan {
	byID := make(map[string]*Analysis, len(docs))
	inputs := make([]clustering.Input, 0, len(docs))
	profiles := make(map[string]types.SignalProfile, len(docs))
	for i := range docs {
		a := &docs[i]
		byID[a.Document.ID] = a
		inputs = append(inputs, a.Input())
		profiles[a.Document.ID] = a.Profile
	}

	res := p.clusterer.Cluster(inputs)
	plan := Plan{Strategy: res.Strategy, FallbackDocs: res.FallbackDocs}

	assigned := make(map[string]bool, len(docs))
	for _, draft := range res.Drafts {
		score := scoring.ScoreDraft(draft, profiles)
		if score.Value < p.minScore {
			plan.BelowFloor++
			continue
		}
		plan.Candidates = append(plan.Candidates, Planned{
			Candidate: buildCandidate(scopeID, draft, score, byID),
			Members:   append([]string(nil), draft.Members...),
			Strategy:  draft.Strategy,
		})
		for _, id := range draft.Members {
			assigned[id] = true
		}
	}

	for _, a := range docs {
		if !assigned[a.Document.ID] {
			plan.Unassigned = append(plan.Unassigned, a.Document.ID)
		}
	}
	sort.Strings(plan.Unassigned)
	return plan
}

func buildCandidate(scopeID string, draft clustering.Draft, score scoring.Score, byID map[string]*Analysis) *types.ProjectCandidate {
	c := &types.ProjectCandidate{
		ScopeID:  scopeID,
		Name:     draft.Name,
		Status:   types.CandidateDiscovered,
		Tier:     score.Tier,
		Score:    score.Value,
		Cohesion: draft.Cohesion,
		Profile: types.CandidateProfile{
			NameKey:  draft.NameKey,
			Aliases:  draft.Aliases,
			Terms:    draft.Terms,
			Centroid: draft.Centroid,
		},
	}
	for _, id := range draft.Members {
		a, ok := byID[id]
		if !ok {
			continue
		}
		profile := a.Profile
		c.Signals.Add(&profile)
		PopulateEvidence(&c.Evidence, a)
	}
	return c
}

// PopulateEvidence appends a document's located signal hits to the matching
// narrative slots. Routine-work hits have no slot.
func PopulateEvidence(ev *types.NarrativeEvidence, a *Analysis) {
	for _, m := range a.Matches {
		slot, ok := types.SlotForCategory(m.Category)
		if !ok || len(ev.Slot(slot)) >= MaxEvidencePerSlot {
			continue
		}
		ev.Append(slot, types.EvidenceRef{
			DocumentID: a.Document.ID,
			Offset:     m.Offset,
			Length:     m.Length,
			Excerpt:    signals.Excerpt(a.Document.Text, m.Offset, m.Length),
		})
	}
}

// Analyze runs the pure per-document steps. The extraction result is passed
// in because it may involve a remote recognizer.
func Analyze(detector *signals.Detector, doc *types.Document, ents types.EntitySet, embedding []float32) Analysis {
	return Analysis{
		Document:  doc,
		Profile:   detector.Detect(doc.Text),
		Entities:  ents,
		Matches:   detector.Locate(doc.Text),
		Embedding: embedding,
	}
}

// SortByCreation orders analyses oldest first, then by ID
func SortByCreation(docs []Analysis) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := docs[i].Document.CreatedAt, docs[j].Document.CreatedAt
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return docs[i].Document.ID < docs[j].Document.ID
	})
}
