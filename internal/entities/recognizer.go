package entities

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Span labels understood by the extractor
const (
	LabelPerson = "PERSON"
	LabelOrg    = "ORG"
	LabelDate   = "DATE"
)

// Span is one labeled entity mention. Start and End are byte offsets.
type Span struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Recognizer is a general-purpose named-entity capability.
// Implementations may call out to a remote service and fail independently.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
}

// HeuristicRecognizer finds people, organizations and dates with
// capitalization and pattern rules. It is local, fast and never fails, so it
// also serves as the fallback when a remote recognizer is unavailable.
type HeuristicRecognizer struct{}

var (
	honorificPersonRe = regexp.MustCompile(`\b(?:Dr|Mr|Mrs|Ms|Prof)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)
	namePairRe        = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z]\.)?\s+[A-Z][a-z]+(?:-[A-Z][a-z]+)?\b`)
	orgRe             = regexp.MustCompile(`\b(?:[A-Z][\w&]*\s+){0,3}[A-Z][\w&]*\s+(?:Inc|Corp|Corporation|LLC|Ltd|GmbH|University|Labs?|Laboratory|Institute|Foundation|Technologies|Systems|Agency|Group)\b\.?`)
	acronymOrgRe      = regexp.MustCompile(`\b(?:NASA|NIST|NSF|DARPA|IRS|HMRC|CRA|MIT|IBM|AWS|NIH|CERN)\b`)

	monthNames = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`
	dateRes    = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+\d{4}\b`),
		regexp.MustCompile(`\bQ[1-4]\s+(?:FY)?\d{4}\b`),
	}
)

// nameStopwords are capitalized words that commonly start a sentence or a
// title and are not given names
var nameStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true, "We": true, "Our": true,
	"Project": true, "Team": true, "Phase": true, "Sprint": true, "Week": true, "Weekly": true,
	"Monthly": true, "Status": true, "Report": true, "Meeting": true, "Notes": true, "Summary": true,
	"Subject": true, "From": true, "To": true, "Re": true, "Fwd": true, "Dear": true, "Hi": true,
	"Hello": true, "Thanks": true, "Regards": true, "Best": true, "After": true, "Before": true,
	"During": true, "When": true, "While": true, "First": true, "Second": true, "Third": true,
	"Next": true, "Last": true, "New": true, "Performed": true, "Completed": true, "In": true,
	"On": true, "At": true, "For": true, "With": true, "And": true, "But": true, "If": true,
	"January": true, "February": true, "March": true, "April": true, "May": true, "June": true,
	"July": true, "August": true, "September": true, "October": true, "November": true, "December": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true,
	"Saturday": true, "Sunday": true,
}

// Recognize implements Recognizer
func (HeuristicRecognizer) Recognize(_ context.Context, text string) ([]Span, error) {
	var spans []Span
	taken := func(start, end int) bool {
		for _, s := range spans {
			if start < s.End && end > s.Start {
				return true
			}
		}
		return false
	}
	add := func(label string, loc []int) {
		if taken(loc[0], loc[1]) {
			return
		}
		spans = append(spans, Span{Label: label, Text: strings.TrimSuffix(text[loc[0]:loc[1]], "."), Start: loc[0], End: loc[1]})
	}

	for _, re := range dateRes {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			add(LabelDate, loc)
		}
	}
	for _, loc := range orgRe.FindAllStringIndex(text, -1) {
		add(LabelOrg, loc)
	}
	for _, loc := range acronymOrgRe.FindAllStringIndex(text, -1) {
		add(LabelOrg, loc)
	}
	for _, loc := range honorificPersonRe.FindAllStringIndex(text, -1) {
		add(LabelPerson, loc)
	}
	for _, loc := range namePairRe.FindAllStringIndex(text, -1) {
		words := strings.Fields(text[loc[0]:loc[1]])
		if nameStopwords[words[0]] || nameStopwords[words[len(words)-1]] {
			continue
		}
		if precededByProject(text, loc[0]) {
			continue
		}
		add(LabelPerson, loc)
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans, nil
}

// precededByProject reports whether the word just before offset is "Project"
func precededByProject(text string, offset int) bool {
	before := strings.TrimRight(text[:offset], " \t")
	return strings.HasSuffix(before, "Project") || strings.HasSuffix(before, "project")
}
