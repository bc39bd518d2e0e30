package changes

import (
	"regexp"
	"strings"

	"github.com/steveyegge/rdscout/internal/types"
)

// Rule pairs a claim a stored narrative can make with wording in a new
// document that undercuts it
type Rule struct {
	Name          string
	Claim         *regexp.Regexp // matched against stored evidence excerpts
	Contradiction *regexp.Regexp // matched against the new document
}

// Contradiction is a rule hit
type Contradiction struct {
	Rule       string
	Claim      string // matched claim wording
	ClaimRef   types.EvidenceRef
	Conflict   string // matched wording in the new document
	ConflictAt int
}

// DefaultRules is the built-in rule table
var DefaultRules = []Rule{
	{
		Name: "novelty",
		Claim: regexp.MustCompile(`(?i)\b(novel|new (approach|architecture|method|technique)|first[- ]of[- ]its[- ]kind|` +
			`unprecedented|from scratch|no existing (solution|approach|method|tool)s?|original (design|architecture))\b`),
		Contradiction: regexp.MustCompile(`(?i)\b(adapted from|based on (an? )?existing|borrowed from|off[- ]the[- ]shelf|` +
			`existing open[- ]source|forked from|(a )?port of|reused (the |an )?existing|already (solved|available|exists))\b`),
	},
	{
		Name:  "uncertainty",
		Claim: regexp.MustCompile(`(?i)\b(unknown|uncertain(ty)?|unclear|not known|no known|unsure)\b`),
		Contradiction: regexp.MustCompile(`(?i)\b(well[- ]known (solution|approach|technique)|standard (practice|solution)|` +
			`documented (solution|fix|procedure)|known (solution|fix|workaround)|textbook (solution|approach))\b`),
	},
	{
		Name:  "outcome",
		Claim: regexp.MustCompile(`(?i)\b(succeeded|achieved|improv(ed|ement)|resolved|breakthrough)\b`),
		Contradiction: regexp.MustCompile(`(?i)\b(rolled back|reverted|abandoned|did not (work|improve|help)|` +
			`no (measurable )?improvement|regress(ed|ion))\b`),
	},
	{
		Name:          "in_house",
		Claim:         regexp.MustCompile(`(?i)\b(in[- ]house|internally developed|our own (design|implementation))\b`),
		Contradiction: regexp.MustCompile(`(?i)\b(outsourced|contractor[- ](built|developed|delivered)|vendor[- ](built|supplied|provided))\b`),
	},
}

var negationRe = regexp.MustCompile(`(?i)\b(not|no|never|without|isn't|wasn't|weren't|didn't|hardly)\s+(\w+\s+){0,2}$`)

// negated reports whether the words just before text[start:] negate it
func negated(text string, start int) bool {
	from := start - 40
	if from < 0 {
		from = 0
	}
	return negationRe.MatchString(text[from:start])
}

func firstUnnegated(re *regexp.Regexp, text string) (string, int, bool) {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if !negated(text, loc[0]) {
			return strings.TrimSpace(text[loc[0]:loc[1]]), loc[0], true
		}
	}
	return "", 0, false
}

// FindContradiction checks the new document text against the candidate's
// stored evidence. Claims and conflicts that are negated don't count.
func FindContradiction(rules []Rule, evidence *types.NarrativeEvidence, text string) *Contradiction {
	for _, rule := range rules {
		conflict, at, ok := firstUnnegated(rule.Contradiction, text)
		if !ok {
			continue
		}
		for _, slot := range types.AllEvidenceSlots {
			for _, ref := range evidence.Slot(slot) {
				if claim, _, ok := firstUnnegated(rule.Claim, ref.Excerpt); ok {
					return &Contradiction{
						Rule:       rule.Name,
						Claim:      claim,
						ClaimRef:   ref,
						Conflict:   conflict,
						ConflictAt: at,
					}
				}
			}
		}
	}
	return nil
}
