package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/types"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage document-project tags",
	Long: `Add, remove and inspect document-project tags by hand.

Manual tags are user tags: later discovery runs never overwrite them, and a
removed tag is never silently re-added.`,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <document-id> <candidate-id>",
	Short: "Tag a document to a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyTag(cmd, args[0], args[1], types.TagAdd)
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:     "remove <document-id> <candidate-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a document's tag to a project",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyTag(cmd, args[0], args[1], types.TagRemove)
	},
}

func applyTag(cmd *cobra.Command, documentID, ref string, action types.TagAction) error {
	ctx := cmd.Context()
	c, err := resolveCandidate(ctx, ref)
	if err != nil {
		return err
	}
	changes, err := svc.ApplyTagChange(ctx, cfg.Scope, documentID, c.ID, action, actor)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	for _, ch := range changes {
		fmt.Printf("%s %s %s → %s %s\n", green("✓"), ch.Action, ch.DocumentID, c.Name, gray(string(ch.Provenance)))
	}
	return nil
}

var tagListCmd = &cobra.Command{
	Use:   "list <document-id>",
	Short: "List a document's active tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := svc.Tags().ListTagsForDocument(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Printf("%s is not tagged to any project\n", args[0])
			return nil
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, t := range tags {
			fmt.Printf("  %s %s\n", shortID(t.ProjectID), gray(fmt.Sprintf("%s %.2f since %s",
				t.Provenance, t.Confidence, t.CreatedAt.Format("2006-01-02 15:04"))))
		}
		return nil
	},
}

var tagHistoryCmd = &cobra.Command{
	Use:   "history <document-id> <candidate-id>",
	Short: "Show every tag record for a document-project pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := resolveCandidate(ctx, args[1])
		if err != nil {
			return err
		}
		history, err := svc.Tags().History(ctx, args[0], c.ID)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Printf("%s was never tagged to %s\n", args[0], c.Name)
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		for _, t := range history {
			state := green("active")
			switch {
			case t.RemovedAt != nil:
				state = red("removed " + t.RemovedAt.Format("2006-01-02 15:04") + " by " + t.RemovedBy)
			case t.SupersededBy != nil:
				state = gray("superseded")
			}
			fmt.Printf("  %s %-6s %.2f  %s\n", t.CreatedAt.Format("2006-01-02 15:04"), t.Provenance, t.Confidence, state)
		}
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd, tagListCmd, tagHistoryCmd)
	rootCmd.AddCommand(tagCmd)
}
