package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/discovery"
	"github.com/steveyegge/rdscout/internal/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [document-id...]",
	Short: "Run project discovery",
	Long: `Run a discovery run over documents of the current scope.

A full run (default) clusters the documents into project candidates, scores
them and tags member documents. Candidates a reviewer already approved are
never changed; new evidence for them becomes proposals.

An incremental run (--incremental) classifies each document against the
existing candidates and records proposals for review. Without document IDs it
analyzes the documents no run has seen yet.

Examples:
  rdscout discover                       # full run over the whole scope
  rdscout discover --incremental         # classify new documents
  rdscout discover notes/a.md notes/b.md # full run over two documents`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		incremental, _ := cmd.Flags().GetBool("incremental")

		mode := types.RunFull
		if incremental {
			mode = types.RunIncremental
		}

		ids := args
		if len(ids) == 0 {
			docs, err := store.ListDocuments(ctx, cfg.Scope, 0)
			if err != nil {
				return err
			}
			for _, d := range docs {
				if mode == types.RunIncremental && d.SignalProfile != nil {
					continue
				}
				ids = append(ids, d.ID)
			}
		}
		if len(ids) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s No documents to analyze in scope %s\n", yellow("✨"), cfg.Scope)
			return nil
		}

		result, err := svc.RunDiscovery(ctx, cfg.Scope, ids, mode)
		if err != nil {
			return err
		}
		printRunResult(result)
		return nil
	},
}

func printRunResult(r *discovery.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s Discovery run #%d (%s) completed in %v\n",
		green("✓"), r.Run.Number, r.Run.Mode, r.Duration.Round(time.Millisecond))
	fmt.Printf("  Analyzed: %d documents  %s\n", r.Analyzed(), gray("strategy "+r.Strategy))

	if len(r.Candidates) > 0 {
		fmt.Printf("\n%s\n", cyan("Candidates:"))
		for _, c := range r.Candidates {
			id := c.ID
			if id == "" {
				id = "(proposed)"
			}
			fmt.Printf("  %s %-24s %s %.2f  %s\n", tierIcon(c.Tier), c.Name, tierColor(c.Tier)(string(c.Tier)), c.Score, gray(shortID(id)))
		}
	}

	if n := r.AppliedTagCount(); n > 0 {
		fmt.Printf("\n  %s tags applied\n", green(fmt.Sprintf("%d", n)))
	}
	if open := r.OpenProposals(); len(open) > 0 {
		fmt.Printf("  %s proposals awaiting review (run 'rdscout review')\n", yellow(fmt.Sprintf("%d", len(open))))
	}
	if len(r.Unassigned) > 0 {
		fmt.Printf("  %s\n", gray(fmt.Sprintf("%d documents matched no project", len(r.Unassigned))))
	}
	for _, s := range r.Skipped {
		fmt.Printf("  %s skipped %s: %s\n", yellow("⚠"), s.DocumentID, s.Reason)
	}
	for _, d := range r.Degradations {
		fmt.Printf("  %s %s\n", yellow("⚠"), d)
	}
	fmt.Println()
}

func init() {
	discoverCmd.Flags().Bool("incremental", false, "Classify documents against existing candidates instead of a full run")
	rootCmd.AddCommand(discoverCmd)
}
