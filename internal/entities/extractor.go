// Package entities extracts people, organizations, dates, project-name
// candidates and technical terms from document text.
//
// Person, organization and date recognition is delegated to a Recognizer
// (a remote NER service or the built-in HeuristicRecognizer). Project
// identifiers come from pattern rules that generic NER does not catch. Only
// the first MaxTextChars characters of a document are processed; Extraction
// reports when that truncation applied.
package entities

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/steveyegge/rdscout/internal/types"
)

// DefaultMaxTextChars is the truncation point for extraction
const DefaultMaxTextChars = 50000

// Extraction is the outcome of extracting one document
type Extraction struct {
	Entities  types.EntitySet
	Truncated bool  // text exceeded the character limit
	Degraded  bool  // primary recognizer failed, heuristic recognizer used
	Err       error // primary recognizer error when Degraded
}

// Extractor combines a Recognizer with the project identifier rules
type Extractor struct {
	primary  Recognizer
	fallback Recognizer
	maxChars int
	logger   *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxTextChars overrides the truncation point
func WithMaxTextChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxChars = n
		}
	}
}

// WithLogger sets the logger used for degradation warnings
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an extractor. A nil primary uses the heuristic recognizer only.
func NewExtractor(primary Recognizer, opts ...Option) *Extractor {
	e := &Extractor{
		primary:  primary,
		fallback: HeuristicRecognizer{},
		maxChars: DefaultMaxTextChars,
		logger:   slog.Default(),
	}
	if e.primary == nil {
		e.primary = e.fallback
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the capped, deduplicated entity set for text. It never
// fails: a recognizer error degrades to the heuristic recognizer.
func (e *Extractor) Extract(ctx context.Context, text string) Extraction {
	var out Extraction
	text, out.Truncated = truncateRunes(text, e.maxChars)

	spans, err := e.primary.Recognize(ctx, text)
	if err != nil {
		e.logger.Warn("entity recognizer unavailable, using heuristic fallback", "error", err)
		out.Degraded = true
		out.Err = err
		spans, _ = e.fallback.Recognize(ctx, text)
	}

	people := newCappedList(types.MaxPeople)
	orgs := newCappedList(types.MaxOrganizations)
	dates := newCappedList(types.MaxDates)
	for _, s := range spans {
		switch strings.ToUpper(s.Label) {
		case LabelPerson, "PER":
			people.add(s.Text)
		case LabelOrg, "ORGANIZATION":
			orgs.add(s.Text)
		case LabelDate:
			dates.add(NormalizeDate(s.Text))
		}
	}

	projects := newCappedList(types.MaxProjectNames)
	for _, tok := range ProjectTokens(text) {
		projects.add(tok)
	}
	terms := newCappedList(types.MaxTechnicalTerms)
	for _, tok := range TechnicalTerms(text) {
		terms.add(tok)
	}

	out.Entities = types.EntitySet{
		People:         people.items,
		Organizations:  orgs.items,
		Dates:          dates.items,
		ProjectNames:   projects.items,
		TechnicalTerms: terms.items,
	}
	return out
}

var ordinalRe = regexp.MustCompile(`(\d)(?:st|nd|rd|th)\b`)

// NormalizeDate converts a date mention to yyyy-mm-dd, returning the raw
// mention unchanged when it cannot be parsed
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	cleaned := ordinalRe.ReplaceAllString(raw, "$1")
	t, err := dateparse.ParseAny(cleaned)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}

// truncateRunes cuts text to at most max characters on a rune boundary
func truncateRunes(text string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text, false
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i], true
		}
		n++
	}
	return text, false
}

// cappedList keeps distinct values (case-insensitively) in first-seen order
type cappedList struct {
	max   int
	seen  map[string]bool
	items []string
}

func newCappedList(max int) *cappedList {
	return &cappedList{max: max, seen: make(map[string]bool)}
}

func (l *cappedList) add(v string) {
	v = strings.Join(strings.Fields(v), " ")
	if v == "" || len(l.items) >= l.max {
		return
	}
	key := strings.ToLower(v)
	if l.seen[key] {
		return
	}
	l.seen[key] = true
	l.items = append(l.items, v)
}
