package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status",
	Long:  `Display document, candidate, proposal and run counts for the current scope.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== rdscout: scope %s ===", cfg.Scope)))

		docs, err := store.ListDocuments(ctx, cfg.Scope, 0)
		if err != nil {
			return err
		}
		analyzed := 0
		for _, d := range docs {
			if d.SignalProfile != nil {
				analyzed++
			}
		}
		fmt.Printf("%s\n", yellow("Documents:"))
		fmt.Printf("  %d total, %d analyzed\n\n", len(docs), analyzed)

		cands, err := svc.GetCandidates(ctx, cfg.Scope)
		if err != nil {
			return err
		}
		byStatus := map[types.CandidateStatus]int{}
		for _, c := range cands {
			byStatus[c.Status]++
		}
		fmt.Printf("%s\n", yellow("Candidates:"))
		fmt.Printf("  %s discovered, %s approved, %s rejected\n\n",
			yellow(fmt.Sprintf("%d", byStatus[types.CandidateDiscovered])),
			green(fmt.Sprintf("%d", byStatus[types.CandidateApproved])),
			gray(fmt.Sprintf("%d", byStatus[types.CandidateRejected])))

		pending, err := pendingProposals(ctx, true)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", yellow("Proposals:"))
		if len(pending) == 0 {
			fmt.Printf("  %s\n\n", gray("none awaiting review"))
		} else {
			fmt.Printf("  %d awaiting review (run 'rdscout review --all')\n\n", len(pending))
		}

		runs, err := store.ListRuns(ctx, cfg.Scope, 1)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", yellow("Last run:"))
		if len(runs) == 0 {
			fmt.Printf("  %s\n\n", gray("none yet (run 'rdscout discover')"))
		} else {
			r := runs[0]
			fmt.Printf("  #%d %s %s at %s\n\n", r.Number, r.Mode,
				runStatusColor(r.Status)(string(r.Status)), r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
