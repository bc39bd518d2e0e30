package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/events"
)

// Note: displayActivityEvent and related helper functions are in event_display.go

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent audit events",
	Long: `Display recent activity from the audit log of the current scope.

Shows events including:
- Discovery runs started, completed and abandoned
- Skipped documents and degraded collaborators
- Candidates created, rescored, revived, approved and rejected
- Tags added, superseded, removed and suppressed
- Narrative impacts flagged and proposals resolved

Examples:
  rdscout activity                          # Show last 20 events
  rdscout activity -n 50                    # Show last 50 events
  rdscout activity --project 3f2a           # Events of one candidate
  rdscout activity --type run_abandoned     # Only abandoned runs
  rdscout activity --severity warning       # Warnings only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")
		projectRef, _ := cmd.Flags().GetString("project")
		documentID, _ := cmd.Flags().GetString("document")
		runID, _ := cmd.Flags().GetString("run")
		eventType, _ := cmd.Flags().GetString("type")
		severity, _ := cmd.Flags().GetString("severity")

		filter := events.EventFilter{
			ScopeID:    cfg.Scope,
			DocumentID: documentID,
			RunID:      runID,
			Limit:      limit,
		}
		if projectRef != "" {
			c, err := resolveCandidate(ctx, projectRef)
			if err != nil {
				return err
			}
			filter.ProjectID = c.ID
		}
		if eventType != "" {
			filter.Type = events.EventType(eventType)
		}
		if severity != "" {
			filter.Severity = events.EventSeverity(severity)
		}

		eventList, err := store.GetEvents(ctx, filter)
		if err != nil {
			return fmt.Errorf("error fetching events: %w", err)
		}

		if len(eventList) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No events found matching the criteria\n\n", yellow("✨"))
			return nil
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Recent Activity (%d events):\n\n", cyan("📋"), len(eventList))

		// Newest last, so the feed reads top to bottom
		for i := len(eventList) - 1; i >= 0; i-- {
			displayActivityEvent(eventList[i])
		}

		fmt.Println()
		return nil
	},
}

func init() {
	activityCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show")
	activityCmd.Flags().StringP("project", "p", "", "Filter events by candidate ID or prefix")
	activityCmd.Flags().StringP("document", "d", "", "Filter events by document ID")
	activityCmd.Flags().StringP("run", "r", "", "Filter events by run ID")
	activityCmd.Flags().StringP("type", "t", "", "Filter by event type (e.g. run_completed, tag_removed)")
	activityCmd.Flags().StringP("severity", "s", "", "Filter by severity (info, warning, error)")
	rootCmd.AddCommand(activityCmd)
}
