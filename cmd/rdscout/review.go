package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/types"
)

type decision int

const (
	decisionUnknown decision = iota
	decisionAccept
	decisionDismiss
	decisionSkip
	decisionQuit
)

func parseDecision(input string) decision {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "a", "accept", "y", "yes":
		return decisionAccept
	case "d", "dismiss", "n", "no":
		return decisionDismiss
	case "s", "skip", "":
		return decisionSkip
	case "q", "quit", "exit":
		return decisionQuit
	}
	return decisionUnknown
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review pending proposals interactively",
	Long: `Step through the open proposals of the latest discovery run that has any
and decide on each one:

  a  accept   (tag the document, or create and approve the proposed candidate)
  d  dismiss  (close the proposal without applying it)
  s  skip     (leave it open for later)
  q  quit

Use --all to review every open proposal of the scope.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		all, _ := cmd.Flags().GetBool("all")

		pending, err := pendingProposals(ctx, all)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("\n%s Nothing to review\n\n", green("✓"))
			return nil
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          cyan("[a]ccept [d]ismiss [s]kip [q]uit> "),
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		defer rl.Close()

		fmt.Printf("\n%s\n", cyan(fmt.Sprintf("%d proposals to review", len(pending))))
		accepted, dismissed := 0, 0
	proposals:
		for i, p := range pending {
			printProposal(ctx, i+1, len(pending), p)
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break proposals
				}
				if err != nil {
					return err
				}

				switch parseDecision(line) {
				case decisionAccept:
					if err := acceptProposal(ctx, p); err != nil {
						fmt.Printf("  %s %v\n", color.RedString("✗"), err)
						continue
					}
					accepted++
				case decisionDismiss:
					if err := svc.DismissProposal(ctx, p.ID, actor); err != nil {
						fmt.Printf("  %s %v\n", color.RedString("✗"), err)
						continue
					}
					dismissed++
				case decisionSkip:
				case decisionQuit:
					break proposals
				default:
					fmt.Println("  enter a, d, s or q")
					continue
				}
				break
			}
		}

		fmt.Printf("\n%d accepted, %d dismissed\n\n", accepted, dismissed)
		return nil
	},
}

// pendingProposals returns the open proposals worth a decision: those of the
// latest run with any, or all of the scope's
func pendingProposals(ctx context.Context, all bool) ([]*types.Proposal, error) {
	open, err := store.ListProposals(ctx, types.ProposalFilter{ScopeID: cfg.Scope, OpenOnly: true})
	if err != nil {
		return nil, err
	}

	var reviewable []*types.Proposal
	for _, p := range open {
		if p.Outcome != types.OutcomeUnassigned {
			reviewable = append(reviewable, p)
		}
	}
	if all || len(reviewable) == 0 {
		return reviewable, nil
	}

	// Proposals come back in creation order, so the last one names the latest run
	latest := reviewable[len(reviewable)-1].RunID
	var out []*types.Proposal
	for _, p := range reviewable {
		if p.RunID == latest {
			out = append(out, p)
		}
	}
	return out, nil
}

func printProposal(ctx context.Context, n, total int, p *types.Proposal) {
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Printf("\n%s %s\n", gray(fmt.Sprintf("[%d/%d]", n, total)), outcomeColor(p.Outcome)(string(p.Outcome)))
	switch p.Outcome {
	case types.OutcomeNewCandidate:
		if p.Candidate != nil {
			fmt.Printf("  New project %s (%s, %.2f)\n", bold(p.Candidate.Name), p.Candidate.Tier, p.Candidate.Score)
		}
		fmt.Printf("  Documents: %s\n", strings.Join(p.Members, ", "))
	default:
		name := shortID(p.CandidateID)
		if c, err := store.GetCandidate(ctx, p.CandidateID); err == nil {
			name = c.Name
		}
		fmt.Printf("  %s → %s (similarity %.2f)\n", bold(p.DocumentID), name, p.Similarity)
	}
	if p.Reason != "" {
		prefix := "  "
		if p.Outcome == types.OutcomeNarrativeImpact {
			prefix = "  " + yellow("⚠ ")
		}
		fmt.Printf("%s%s\n", prefix, gray(p.Reason))
	}
}

func acceptProposal(ctx context.Context, p *types.Proposal) error {
	res, err := svc.AcceptProposal(ctx, p.ID, actor)
	if err != nil {
		return err
	}
	name := ""
	if res.Candidate != nil {
		name = res.Candidate.Name
	}
	fmt.Printf("  %s accepted: %d tags for %s\n", color.GreenString("✓"), len(res.TagChanges), name)
	return nil
}

func init() {
	reviewCmd.Flags().Bool("all", false, "Review every open proposal of the scope")
	rootCmd.AddCommand(reviewCmd)
}
