package types

import (
	"fmt"
	"strings"
	"time"
)

// Document is an ingested organizational document (report, email, log, timesheet).
// Documents are owned by the ingestion subsystem; discovery only reads them and
// annotates SignalProfile and Entities.
type Document struct {
	ID        string    `json:"id"`
	ScopeID   string    `json:"scope_id"`
	Title     string    `json:"title,omitempty"` // Subject line or file title
	Text      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`

	SignalProfile *SignalProfile `json:"signal_profile,omitempty"`
	Entities      *EntitySet     `json:"extracted_entities,omitempty"`
}

// Validate checks that the document can be analyzed
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("document id is required")
	}
	if strings.TrimSpace(d.ScopeID) == "" {
		return fmt.Errorf("scope_id is required for document %s", d.ID)
	}
	return nil
}

// Label returns a short human label for the document, preferring the title and
// falling back to the first non-empty line of text.
func (d *Document) Label() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return truncateLabel(t, 60)
	}
	for _, line := range strings.Split(d.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncateLabel(line, 60)
		}
	}
	return ""
}

func truncateLabel(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + "..."
}

// SignalCategory names a keyword category used for eligibility signals
type SignalCategory string

const (
	CategoryUncertainty  SignalCategory = "uncertainty"
	CategorySystematic   SignalCategory = "systematic_investigation"
	CategorySetback      SignalCategory = "setback"
	CategoryAdvancement  SignalCategory = "advancement"
	CategoryDisqualifier SignalCategory = "routine_work"
)

// AllSignalCategories lists categories in their canonical order
var AllSignalCategories = []SignalCategory{
	CategoryUncertainty,
	CategorySystematic,
	CategorySetback,
	CategoryAdvancement,
	CategoryDisqualifier,
}

// IsValid checks if the category value is valid
func (c SignalCategory) IsValid() bool {
	switch c {
	case CategoryUncertainty, CategorySystematic, CategorySetback, CategoryAdvancement, CategoryDisqualifier:
		return true
	}
	return false
}

// MaxSignalPhrases caps the matched phrases kept per category
const MaxSignalPhrases = 10

// CategorySignal holds the match count and up to MaxSignalPhrases distinct phrases
type CategorySignal struct {
	Count   int      `json:"count"`
	Phrases []string `json:"phrases,omitempty"`
}

// SignalProfile is the per-document result of signal detection
type SignalProfile struct {
	Uncertainty  CategorySignal `json:"uncertainty"`
	Systematic   CategorySignal `json:"systematic_investigation"`
	Setback      CategorySignal `json:"setback"`
	Advancement  CategorySignal `json:"advancement"`
	Disqualifier CategorySignal `json:"routine_work"`
	Score        float64        `json:"score"`
}

// Category returns a pointer to the signal for the given category, or nil.
func (p *SignalProfile) Category(c SignalCategory) *CategorySignal {
	switch c {
	case CategoryUncertainty:
		return &p.Uncertainty
	case CategorySystematic:
		return &p.Systematic
	case CategorySetback:
		return &p.Setback
	case CategoryAdvancement:
		return &p.Advancement
	case CategoryDisqualifier:
		return &p.Disqualifier
	}
	return nil
}

// IsZero reports whether no signals were detected
func (p *SignalProfile) IsZero() bool {
	return p.Uncertainty.Count == 0 && p.Systematic.Count == 0 && p.Setback.Count == 0 &&
		p.Advancement.Count == 0 && p.Disqualifier.Count == 0 && p.Score == 0
}

// SignalCounts is the aggregate count per category across many documents
type SignalCounts struct {
	Uncertainty  int `json:"uncertainty"`
	Systematic   int `json:"systematic_investigation"`
	Setback      int `json:"setback"`
	Advancement  int `json:"advancement"`
	Disqualifier int `json:"routine_work"`
}

// Add accumulates a profile's counts
func (c *SignalCounts) Add(p *SignalProfile) {
	if p == nil {
		return
	}
	c.Uncertainty += p.Uncertainty.Count
	c.Systematic += p.Systematic.Count
	c.Setback += p.Setback.Count
	c.Advancement += p.Advancement.Count
	c.Disqualifier += p.Disqualifier.Count
}

// Entity caps applied by the extractor
const (
	MaxPeople         = 20
	MaxOrganizations  = 10
	MaxDates          = 20
	MaxProjectNames   = 10
	MaxTechnicalTerms = 30
)

// EntitySet holds the entities extracted from one document. Each list is
// deduplicated and ordered by first appearance.
type EntitySet struct {
	People         []string `json:"people,omitempty"`
	Organizations  []string `json:"organizations,omitempty"`
	Dates          []string `json:"dates,omitempty"` // ISO yyyy-mm-dd when normalizable, raw otherwise
	ProjectNames   []string `json:"project_name_candidates,omitempty"`
	TechnicalTerms []string `json:"technical_terms,omitempty"`
}

// IsEmpty reports whether no entities were extracted
func (e *EntitySet) IsEmpty() bool {
	return e == nil || (len(e.People) == 0 && len(e.Organizations) == 0 && len(e.Dates) == 0 &&
		len(e.ProjectNames) == 0 && len(e.TechnicalTerms) == 0)
}
