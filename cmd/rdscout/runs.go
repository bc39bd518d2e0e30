package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List discovery runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), cfg.Scope, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Printf("No discovery runs in scope %s yet\n", cfg.Scope)
			return nil
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range runs {
			took := ""
			if r.CompletedAt != nil {
				took = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
			}
			fmt.Printf("#%-4d %-11s %s %3d docs  %s %s\n",
				r.Number, r.Mode, runStatusColor(r.Status)(fmt.Sprintf("%-9s", r.Status)),
				len(r.DocumentIDs), r.StartedAt.Format("2006-01-02 15:04:05"), gray(took))
			if r.Error != "" {
				fmt.Printf("      %s\n", gray(truncateString(r.Error, 70)))
			}
		}
		return nil
	},
}

func runStatusColor(s types.RunStatus) func(a ...interface{}) string {
	switch s {
	case types.RunCompleted:
		return color.New(color.FgGreen).SprintFunc()
	case types.RunAbandoned:
		return color.New(color.FgRed).SprintFunc()
	}
	return color.New(color.FgYellow).SprintFunc()
}

func init() {
	runsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	rootCmd.AddCommand(runsCmd)
}
