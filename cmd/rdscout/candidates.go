package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/types"
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"list"},
	Short:   "List project candidates",
	Long: `List the project candidates of the current scope.

Examples:
  rdscout candidates                     # all candidates
  rdscout candidates --status discovered # awaiting review
  rdscout candidates show 3f2a           # details by ID prefix`,
	RunE: func(cmd *cobra.Command, args []string) error {
		statusFlags, _ := cmd.Flags().GetStringSlice("status")

		var statuses []types.CandidateStatus
		for _, s := range statusFlags {
			st := types.CandidateStatus(s)
			if !st.IsValid() {
				return fmt.Errorf("unknown status %q (discovered, approved, rejected)", s)
			}
			statuses = append(statuses, st)
		}

		list, err := svc.GetCandidates(cmd.Context(), cfg.Scope, statuses...)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No candidates in scope %s\n\n", yellow("✨"), cfg.Scope)
			return nil
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Candidates in %s (%d) ===", cfg.Scope, len(list))))
		for _, c := range list {
			fmt.Printf("%s %s %-24s %s %.2f  %s\n",
				gray(shortID(c.ID)), tierIcon(c.Tier), c.Name,
				tierColor(c.Tier)(fmt.Sprintf("%-6s", c.Tier)), c.Score, statusColor(c.Status)(string(c.Status)))
		}
		fmt.Println()
		return nil
	},
}

var candidatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a candidate with its evidence and tagged documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := resolveCandidate(ctx, args[0])
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n", cyan(c.Name))
		fmt.Printf("  ID:       %s\n", c.ID)
		fmt.Printf("  Status:   %s\n", statusColor(c.Status)(string(c.Status)))
		fmt.Printf("  Tier:     %s (%.2f, cohesion %.2f)\n", tierColor(c.Tier)(string(c.Tier)), c.Score, c.Cohesion)
		fmt.Printf("  Signals:  uncertainty %d, systematic %d, setback %d, advancement %d, routine %d\n",
			c.Signals.Uncertainty, c.Signals.Systematic, c.Signals.Setback, c.Signals.Advancement, c.Signals.Disqualifier)
		if len(c.Profile.Aliases) > 0 {
			fmt.Printf("  Aliases:  %s\n", strings.Join(c.Profile.Aliases, ", "))
		}
		if c.RevivedFrom != "" {
			fmt.Printf("  Revived:  from %s\n", shortID(c.RevivedFrom))
		}

		for _, slot := range types.AllEvidenceSlots {
			refs := c.Evidence.Slot(slot)
			if len(refs) == 0 {
				continue
			}
			fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Evidence: %s (%d)", slot, len(refs))))
			for _, ref := range refs {
				fmt.Printf("  %s %s\n", gray(ref.DocumentID+":"), truncateString(ref.Excerpt, 100))
			}
		}

		tags, err := svc.Tags().ListTagsForProject(ctx, c.ID)
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n", yellow(fmt.Sprintf("Documents (%d)", len(tags))))
		for _, t := range tags {
			fmt.Printf("  %s %s\n", t.DocumentID, gray(fmt.Sprintf("%s %.2f", t.Provenance, t.Confidence)))
		}
		fmt.Println()
		return nil
	},
}

var candidatesApproveCmd = &cobra.Command{
	Use:   "approve <id>...",
	Short: "Approve candidates as real projects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd.Context(), args, types.CandidateApproved)
	},
}

var candidatesRejectCmd = &cobra.Command{
	Use:   "reject <id>...",
	Short: "Reject candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStatus(cmd.Context(), args, types.CandidateRejected)
	},
}

func setStatus(ctx context.Context, ids []string, status types.CandidateStatus) error {
	green := color.New(color.FgGreen).SprintFunc()
	for _, id := range ids {
		c, err := resolveCandidate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := svc.SetCandidateStatus(ctx, c.ID, status, actor); err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", green("✓"), c.Name, status)
	}
	return nil
}

// resolveCandidate finds a candidate of the current scope by ID or unique ID prefix
func resolveCandidate(ctx context.Context, ref string) (*types.ProjectCandidate, error) {
	list, err := svc.GetCandidates(ctx, cfg.Scope)
	if err != nil {
		return nil, err
	}
	return matchCandidate(list, ref)
}

func matchCandidate(list []*types.ProjectCandidate, ref string) (*types.ProjectCandidate, error) {
	var matches []*types.ProjectCandidate
	for _, c := range list {
		if c.ID == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no candidate matches %q: %w", ref, types.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%q matches %d candidates, use a longer prefix", ref, len(matches))
}

func init() {
	candidatesCmd.Flags().StringSlice("status", nil, "Filter by status (discovered, approved, rejected)")
	candidatesCmd.AddCommand(candidatesShowCmd, candidatesApproveCmd, candidatesRejectCmd)
	rootCmd.AddCommand(candidatesCmd)
}
