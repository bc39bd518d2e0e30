package main

import (
	"github.com/fatih/color"
	"github.com/steveyegge/rdscout/internal/types"
)

// shortID abbreviates uuids for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateString shortens s to maxLen runes, marking the cut with "..."
func truncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		maxLen = 3
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func tierIcon(t types.ConfidenceTier) string {
	switch t {
	case types.TierHigh:
		return "●"
	case types.TierMedium:
		return "◐"
	}
	return "○"
}

func tierColor(t types.ConfidenceTier) func(a ...interface{}) string {
	switch t {
	case types.TierHigh:
		return color.New(color.FgGreen).SprintFunc()
	case types.TierMedium:
		return color.New(color.FgYellow).SprintFunc()
	}
	return color.New(color.FgHiBlack).SprintFunc()
}

func statusColor(s types.CandidateStatus) func(a ...interface{}) string {
	switch s {
	case types.CandidateApproved:
		return color.New(color.FgGreen).SprintFunc()
	case types.CandidateRejected:
		return color.New(color.FgRed).SprintFunc()
	}
	return color.New(color.FgCyan).SprintFunc()
}

func outcomeColor(o types.ChangeOutcome) func(a ...interface{}) string {
	switch o {
	case types.OutcomeNarrativeImpact:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case types.OutcomeNewCandidate:
		return color.New(color.FgCyan, color.Bold).SprintFunc()
	case types.OutcomeSafeAddition:
		return color.New(color.FgGreen).SprintFunc()
	}
	return color.New(color.FgHiBlack).SprintFunc()
}
