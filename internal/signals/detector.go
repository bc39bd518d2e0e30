// Package signals scores raw document text for eligibility-relevant keyword
// signals.
//
// A Detector is built once from a Taxonomy into one pre-compiled matcher per
// category and is safe for concurrent use. Detect is pure: identical text
// always yields an identical SignalProfile.
//
// The composite score is
//
//	clamp01((3u + 2s + 2.5f + 2a - 2d) / (len(text)/1000))
//
// where u, s, f, a and d are the uncertainty, systematic investigation,
// setback, advancement and routine-work match counts. The score is capped at
// 0.5 unless the text has at least one uncertainty and one systematic match.
package signals

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/steveyegge/rdscout/internal/types"
)

// Category weights for the composite score
const (
	WeightUncertainty  = 3.0
	WeightSystematic   = 2.0
	WeightSetback      = 2.5
	WeightAdvancement  = 2.0
	WeightDisqualifier = 2.0

	// UncorroboratedCap bounds the score when either uncertainty or
	// systematic investigation is missing
	UncorroboratedCap = 0.5

	// MinTextRunes is the shortest trimmed text that is scored at all
	MinTextRunes = 20
)

// Detector matches category keyword sets against text
type Detector struct {
	matchers map[types.SignalCategory]*regexp.Regexp
}

// Match is one keyword hit located in a text. Offset and Length are byte
// positions into the original string.
type Match struct {
	Category types.SignalCategory
	Phrase   string
	Offset   int
	Length   int
}

var (
	defaultOnce     sync.Once
	defaultDetector *Detector
)

// Default returns the detector for the built-in taxonomy, compiled on first use
func Default() *Detector {
	defaultOnce.Do(func() {
		d, err := NewDetector(DefaultTaxonomy())
		if err != nil {
			panic(fmt.Sprintf("signals: built-in taxonomy does not compile: %v", err))
		}
		defaultDetector = d
	})
	return defaultDetector
}

// NewDetector compiles a taxonomy into read-only matchers
func NewDetector(t *Taxonomy) (*Detector, error) {
	if t == nil {
		return nil, fmt.Errorf("taxonomy is required")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	d := &Detector{matchers: make(map[types.SignalCategory]*regexp.Regexp, len(types.AllSignalCategories))}
	for _, c := range types.AllSignalCategories {
		re, err := compilePhrases(t.Phrases(c))
		if err != nil {
			return nil, fmt.Errorf("compile %s phrases: %w", c, err)
		}
		d.matchers[c] = re
	}
	return d, nil
}

// compilePhrases builds one word-boundary anchored alternation. Longer phrases
// come first so "routine maintenance" wins over "routine".
func compilePhrases(phrases []string) (*regexp.Regexp, error) {
	seen := make(map[string]bool, len(phrases))
	uniq := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = normalizePhrase(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		uniq = append(uniq, p)
	}
	sort.SliceStable(uniq, func(i, j int) bool {
		if len(uniq[i]) != len(uniq[j]) {
			return len(uniq[i]) > len(uniq[j])
		}
		return uniq[i] < uniq[j]
	})

	parts := make([]string, len(uniq))
	for i, p := range uniq {
		words := strings.Fields(p)
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		parts[i] = strings.Join(words, `\s+`)
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

func normalizePhrase(p string) string {
	return strings.Join(strings.Fields(strings.ToLower(p)), " ")
}

// Detect returns the signal profile for a text. Near-empty text yields a zero profile.
func (d *Detector) Detect(text string) types.SignalProfile {
	var profile types.SignalProfile
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextRunes {
		return profile
	}

	for _, c := range types.AllSignalCategories {
		sig := profile.Category(c)
		seen := make(map[string]bool)
		for _, loc := range d.matchers[c].FindAllStringIndex(text, -1) {
			sig.Count++
			phrase := normalizePhrase(text[loc[0]:loc[1]])
			if !seen[phrase] && len(sig.Phrases) < types.MaxSignalPhrases {
				seen[phrase] = true
				sig.Phrases = append(sig.Phrases, phrase)
			}
		}
	}

	profile.Score = CompositeScore(types.SignalCounts{
		Uncertainty:  profile.Uncertainty.Count,
		Systematic:   profile.Systematic.Count,
		Setback:      profile.Setback.Count,
		Advancement:  profile.Advancement.Count,
		Disqualifier: profile.Disqualifier.Count,
	}, utf8.RuneCountInString(text))
	return profile
}

// Locate returns every keyword hit in text order. Hits from different
// categories may overlap.
func (d *Detector) Locate(text string) []Match {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinTextRunes {
		return nil
	}

	var matches []Match
	for _, c := range types.AllSignalCategories {
		for _, loc := range d.matchers[c].FindAllStringIndex(text, -1) {
			matches = append(matches, Match{
				Category: c,
				Phrase:   normalizePhrase(text[loc[0]:loc[1]]),
				Offset:   loc[0],
				Length:   loc[1] - loc[0],
			})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Offset < matches[j].Offset
	})
	return matches
}

// CompositeScore computes the weighted, length-normalized score for a set of
// category counts over a text of textLen characters
func CompositeScore(c types.SignalCounts, textLen int) float64 {
	if textLen <= 0 {
		return 0
	}
	raw := WeightUncertainty*float64(c.Uncertainty) +
		WeightSystematic*float64(c.Systematic) +
		WeightSetback*float64(c.Setback) +
		WeightAdvancement*float64(c.Advancement) -
		WeightDisqualifier*float64(c.Disqualifier)

	score := clamp01(raw / (float64(textLen) / 1000.0))
	if (c.Uncertainty < 1 || c.Systematic < 1) && score > UncorroboratedCap {
		score = UncorroboratedCap
	}
	return score
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// maxExcerpt bounds evidence excerpts
const maxExcerpt = 240

// Excerpt returns the sentence surrounding [offset, offset+length), trimmed
// to at most 240 characters and centered on the match when it must be cut.
func Excerpt(text string, offset, length int) string {
	if offset < 0 || offset > len(text) {
		return ""
	}
	end := offset + length
	if end > len(text) {
		end = len(text)
	}

	start := strings.LastIndexAny(text[:offset], ".!?\n")
	if start < 0 {
		start = 0
	} else {
		start++
	}
	stop := strings.IndexAny(text[end:], ".!?\n")
	if stop < 0 {
		stop = len(text)
	} else {
		stop = end + stop + 1
	}

	sentence := text[start:stop]
	if utf8.RuneCountInString(sentence) > maxExcerpt {
		// Re-center a window around the match
		runes := []rune(text)
		matchStart := utf8.RuneCountInString(text[:offset])
		from := matchStart - maxExcerpt/2
		if from < 0 {
			from = 0
		}
		to := from + maxExcerpt
		if to > len(runes) {
			to = len(runes)
			if to-maxExcerpt > 0 {
				from = to - maxExcerpt
			}
		}
		sentence = string(runes[from:to])
	}
	return strings.TrimSpace(strings.Join(strings.Fields(sentence), " "))
}
