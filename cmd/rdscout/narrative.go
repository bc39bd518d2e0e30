package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/types"
)

var narrativeCmd = &cobra.Command{
	Use:   "narrative <candidate-id>",
	Short: "Draft the narrative of a project from its evidence",
	Long: `Draft the narrative sections of a project (uncertainty, investigation,
outcome) from the evidence discovery collected. Requires ANTHROPIC_API_KEY.

Drafting never changes discovery state.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		section, _ := cmd.Flags().GetString("section")

		c, err := resolveCandidate(ctx, args[0])
		if err != nil {
			return err
		}

		sections := types.AllEvidenceSlots
		if section != "" {
			sections = []types.EvidenceSlot{types.EvidenceSlot(section)}
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s\n", cyan(c.Name))
		for _, s := range sections {
			fmt.Printf("\n%s\n", yellow(fmt.Sprintf("## %s", s)))
			if len(c.Evidence.Slot(s)) == 0 && s.IsValid() {
				fmt.Println(color.HiBlackString("  no evidence collected yet"))
				continue
			}
			prose, err := svc.GenerateNarrative(ctx, c.ID, s)
			if err != nil {
				return err
			}
			fmt.Println(prose)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	narrativeCmd.Flags().String("section", "", "Only this section (uncertainty, investigation, outcome)")
	rootCmd.AddCommand(narrativeCmd)
}
