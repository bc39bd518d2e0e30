// Package clustering groups documents into project candidate drafts.
//
// Two strategies implement Strategy:
//
//   - DensityStrategy: density-based clustering over embedding vectors. It
//     needs no target cluster count and leaves noise points unassigned.
//   - NameTokenStrategy: groups documents sharing a normalized project-name
//     token. It runs in linear time and needs no external collaborator.
//
// Clusterer selects between them per document by data availability:
// documents with an embedding go through density clustering, documents
// without one (and density noise) go through the name-token strategy.
// A document whose tokens match two projects is a member of both drafts.
package clustering

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steveyegge/rdscout/internal/entities"
)

// Strategy names reported in Result
const (
	StrategyDensity   = "density"
	StrategyNameToken = "name_token"
	StrategyMixed     = "mixed"
)

// Input is the per-document data clustering consumes
type Input struct {
	DocumentID    string
	Title         string
	CreatedAt     time.Time
	ProjectTokens []string  // raw project-name candidates
	Terms         []string  // people, organizations, technical terms
	Embedding     []float32 // nil when the embedding collaborator had none
}

// Draft is a proposed project candidate
type Draft struct {
	Members        []string           // document IDs, sorted
	Name           string             // display name
	NameKey        string             // normalized identity used to match candidates across runs
	Aliases        []string           // normalized project tokens found among members
	Terms          []string           // entity terms shared by members
	Cohesion       float64            // mean pairwise similarity in [0,1]
	MemberCohesion map[string]float64 // per-document mean similarity to the other members
	Centroid       []float32
	Strategy       string
}

// HasMember reports whether a document belongs to the draft
func (d *Draft) HasMember(id string) bool {
	i := sort.SearchStrings(d.Members, id)
	return i < len(d.Members) && d.Members[i] == id
}

// TokenNamed reports whether NameKey is a project token found among the
// members rather than a label synthesized from a title
func (d *Draft) TokenNamed() bool {
	return tokenNamed(d.NameKey, d.Aliases)
}

func tokenNamed(key string, aliases []string) bool {
	if key == "" {
		return false
	}
	for _, a := range aliases {
		if a == key {
			return true
		}
	}
	return false
}

// Result is the outcome of clustering one batch
type Result struct {
	Drafts       []Draft
	Unassigned   []string // documents in no draft
	Strategy     string
	FallbackDocs []string // documents clustered without an embedding
}

// Strategy clusters a set of inputs into drafts and leftover documents
type Strategy interface {
	Name() string
	Cluster(docs []Input) (drafts []Draft, unassigned []Input)
}

// Config holds clustering parameters
type Config struct {
	// MinClusterSize is the density core-point threshold (neighbours including self)
	MinClusterSize int
	// Similarity is the cosine neighbourhood threshold for density clustering
	Similarity float64
}

// DefaultConfig returns the default clustering configuration
func DefaultConfig() Config {
	return Config{
		MinClusterSize: 3,
		Similarity:     0.80,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MinClusterSize < 1 {
		return fmt.Errorf("min cluster size must be at least 1 (got %d)", c.MinClusterSize)
	}
	if c.Similarity <= 0 || c.Similarity > 1 {
		return fmt.Errorf("similarity must be in (0, 1] (got %.2f)", c.Similarity)
	}
	return nil
}

// Clusterer composes the density and name-token strategies
type Clusterer struct {
	density  Strategy
	fallback Strategy
}

// New creates a clusterer. An invalid config falls back to DefaultConfig.
func New(cfg Config) *Clusterer {
	if err := cfg.Validate(); err != nil {
		cfg = DefaultConfig()
	}
	return &Clusterer{
		density:  &DensityStrategy{MinPoints: cfg.MinClusterSize, Similarity: cfg.Similarity},
		fallback: &NameTokenStrategy{},
	}
}

// NewWithStrategies creates a clusterer over explicit strategies
func NewWithStrategies(density, fallback Strategy) *Clusterer {
	return &Clusterer{density: density, fallback: fallback}
}

// Cluster groups docs into drafts. Every input document ends up in at least
// one draft or in Unassigned.
func (c *Clusterer) Cluster(docs []Input) Result {
	docs = sortedInputs(docs)

	var embedded, plain []Input
	for _, d := range docs {
		if len(d.Embedding) > 0 {
			embedded = append(embedded, d)
		} else {
			plain = append(plain, d)
		}
	}

	var res Result
	switch {
	case len(embedded) == 0:
		res.Strategy = c.fallback.Name()
	case len(plain) == 0:
		res.Strategy = c.density.Name()
	default:
		res.Strategy = StrategyMixed
	}
	for _, d := range plain {
		res.FallbackDocs = append(res.FallbackDocs, d.DocumentID)
	}

	var densityDrafts []Draft
	leftover := plain
	if len(embedded) > 0 {
		var noise []Input
		densityDrafts, noise = c.density.Cluster(embedded)
		leftover = sortedInputs(append(append([]Input{}, plain...), noise...))
	}

	tokenDrafts, unassigned := c.fallback.Cluster(leftover)

	// A token draft joins the one density draft named by the same project
	// token. Title-named drafts and keys shared by several density drafts
	// are not identities, so those token drafts stand alone.
	byKey := make(map[string]int, len(densityDrafts))
	for i := range densityDrafts {
		d := &densityDrafts[i]
		if !d.TokenNamed() {
			continue
		}
		if _, dup := byKey[d.NameKey]; dup {
			byKey[d.NameKey] = -1
			continue
		}
		byKey[d.NameKey] = i
	}
	drafts := densityDrafts
	for _, td := range tokenDrafts {
		if i, ok := byKey[td.NameKey]; ok && i >= 0 {
			drafts[i] = mergeDrafts(drafts[i], td)
			continue
		}
		drafts = append(drafts, td)
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		if drafts[i].Members[0] != drafts[j].Members[0] {
			return drafts[i].Members[0] < drafts[j].Members[0]
		}
		return drafts[i].NameKey < drafts[j].NameKey
	})
	res.Drafts = drafts

	for _, d := range unassigned {
		res.Unassigned = append(res.Unassigned, d.DocumentID)
	}
	return res
}

// mergeDrafts folds b's members into a, keeping a's name
func mergeDrafts(a, b Draft) Draft {
	for _, id := range b.Members {
		if a.HasMember(id) {
			continue
		}
		a.Members = append(a.Members, id)
		a.MemberCohesion[id] = b.MemberCohesion[id]
	}
	sort.Strings(a.Members)
	a.Aliases = mergeUnique(a.Aliases, b.Aliases)
	a.Terms = mergeUnique(a.Terms, b.Terms)
	a.Cohesion = meanCohesion(a.MemberCohesion)
	a.Strategy = StrategyMixed
	return a
}

func meanCohesion(m map[string]float64) float64 {
	if len(m) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m {
		sum += v
	}
	return clamp01(sum / float64(len(m)))
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func sortedInputs(docs []Input) []Input {
	out := append([]Input(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}

// nameDraft picks the display name: the most frequent project token that
// recurs among members, else a label from the earliest member's title
func nameDraft(members []Input) (name, key string, aliases []string) {
	counts := make(map[string]int)
	for _, m := range members {
		for _, k := range entities.TokenKeys(m.ProjectTokens) {
			counts[k]++
		}
	}
	for k := range counts {
		aliases = append(aliases, k)
	}
	sort.Slice(aliases, func(i, j int) bool {
		if counts[aliases[i]] != counts[aliases[j]] {
			return counts[aliases[i]] > counts[aliases[j]]
		}
		return aliases[i] < aliases[j]
	})

	need := 2
	if len(members) < need {
		need = len(members)
	}
	if len(aliases) > 0 && counts[aliases[0]] >= need {
		return displayName(members, aliases[0]), aliases[0], aliases
	}

	label := synthesizeLabel(members)
	return label, entities.NormalizeToken(label), aliases
}

// displayName returns the most frequent spelling of a token key among
// members, ties broken alphabetically, or the key itself when no member
// spells it
func displayName(members []Input, key string) string {
	counts := make(map[string]int)
	for _, m := range members {
		seen := make(map[string]bool)
		for _, tok := range m.ProjectTokens {
			form := entities.DisplayToken(tok)
			if form == "" || seen[form] || entities.NormalizeToken(form) != key {
				continue
			}
			seen[form] = true
			counts[form]++
		}
	}
	best := ""
	for form, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && form < best) {
			best = form
		}
	}
	if best == "" {
		return key
	}
	return best
}

func synthesizeLabel(members []Input) string {
	if len(members) == 0 {
		return ""
	}
	earliest := members[0]
	for _, m := range members[1:] {
		if m.CreatedAt.Before(earliest.CreatedAt) ||
			(m.CreatedAt.Equal(earliest.CreatedAt) && m.DocumentID < earliest.DocumentID) {
			earliest = m
		}
	}

	title := strings.TrimSpace(earliest.Title)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	for _, prefix := range []string{"Re:", "RE:", "Fwd:", "FW:", "Subject:"} {
		title = strings.TrimSpace(strings.TrimPrefix(title, prefix))
	}
	if r := []rune(title); len(r) > 60 {
		title = strings.TrimSpace(string(r[:60]))
	}
	if title != "" {
		return title
	}

	id := earliest.DocumentID
	if len(id) > 8 {
		id = id[:8]
	}
	return "Unnamed project " + id
}

// sharedTerms returns terms appearing in at least two members, or all terms
// of a singleton
func sharedTerms(members []Input) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range members {
		seen := make(map[string]bool)
		for _, t := range m.Terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	need := 2
	if len(members) < 2 {
		need = 1
	}
	var out []string
	for _, t := range order {
		if counts[t] >= need {
			out = append(out, t)
		}
	}
	return out
}
