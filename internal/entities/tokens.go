package entities

import (
	"regexp"
	"strings"
)

// Project identifier rules applied on top of generic NER
var (
	projectPhraseRe = regexp.MustCompile(`\b[Pp]roject\s+([A-Z][\w-]*(?:[ \t]+[A-Z][\w-]*)*)`)
	shortCodeRe     = regexp.MustCompile(`\b[A-Z]{2,10}-\d{1,5}\b`)
	bracketTokenRe  = regexp.MustCompile(`\[([A-Za-z0-9_-]+(?:/[A-Za-z0-9_-]+)+)\]`)

	acronymRe   = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}s?\b`)
	camelCaseRe = regexp.MustCompile(`\b[A-Za-z][a-z0-9]+(?:[A-Z][a-z0-9]+)+\b|\b[A-Z][a-z]+[A-Z]{2,}\b`)

	codeSuffixRe = regexp.MustCompile(`-\d{1,5}$`)
	separatorRe  = regexp.MustCompile(`[\s_-]+`)
)

// ProjectTokens applies the three project identifier rules in text order:
// "Project <CapitalizedWords>", short codes like "BEACON-12", and bracketed
// slash-delimited tokens like "[rd/beacon]"
func ProjectTokens(text string) []string {
	type hit struct {
		pos int
		tok string
	}
	var hits []hit

	for _, m := range projectPhraseRe.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{m[2], text[m[2]:m[3]]})
	}
	for _, loc := range shortCodeRe.FindAllStringIndex(text, -1) {
		hits = append(hits, hit{loc[0], text[loc[0]:loc[1]]})
	}
	for _, m := range bracketTokenRe.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{m[2], text[m[2]:m[3]]})
	}

	// Insertion sort keeps equal positions stable and the lists are short
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.tok)
	}
	return out
}

// TechnicalTerms returns acronyms and CamelCase identifiers in text order
func TechnicalTerms(text string) []string {
	type hit struct {
		pos int
		tok string
	}
	var hits []hit
	for _, loc := range acronymRe.FindAllStringIndex(text, -1) {
		tok := text[loc[0]:loc[1]]
		// Part of a short code such as BEACON-12
		if loc[1] < len(text) && text[loc[1]] == '-' {
			continue
		}
		hits = append(hits, hit{loc[0], tok})
	}
	for _, loc := range camelCaseRe.FindAllStringIndex(text, -1) {
		hits = append(hits, hit{loc[0], text[loc[0]:loc[1]]})
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.tok)
	}
	return out
}

// NormalizeToken maps a project-name token to its comparison key.
// Matching is case-insensitive and ignores separators, and a short code
// collapses to its alphabetic prefix, so "Project Beacon", "BEACON-12" and
// "[rd/beacon]" normalize to "BEACON", "BEACON" and "RD/BEACON".
func NormalizeToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if shortCodeRe.MatchString(tok) {
		tok = codeSuffixRe.ReplaceAllString(tok, "")
	}
	tok = separatorRe.ReplaceAllString(tok, "")
	return strings.ToUpper(tok)
}

// DisplayToken is the form of a project token shown to reviewers: trimmed,
// with a short code's numeric suffix dropped ("BEACON-12" shows as "BEACON")
func DisplayToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if shortCodeRe.MatchString(tok) {
		tok = codeSuffixRe.ReplaceAllString(tok, "")
	}
	return tok
}

// TokenKeys returns the distinct normalized keys of a token list in order
func TokenKeys(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		k := NormalizeToken(t)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
