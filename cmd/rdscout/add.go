package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/documents"
	"github.com/steveyegge/rdscout/internal/types"
)

var addCmd = &cobra.Command{
	Use:     "add <dir>",
	Aliases: []string{"ingest"},
	Short:   "Ingest text documents from a directory",
	Long: `Read every .txt and .md file under a directory into the current scope.

Document IDs are paths relative to the directory. Files whose text hasn't
changed since the last ingest are left alone.

Use --discover to run an incremental discovery over the new and changed
documents right away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		exts, _ := cmd.Flags().GetStringSlice("ext")
		runAfter, _ := cmd.Flags().GetBool("discover")

		src := documents.NewDirSource(args[0], cfg.Scope, exts...)
		docs, err := src.Load(ctx)
		if err != nil {
			return err
		}
		res, err := documents.Ingest(ctx, store, docs)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("%s Ingested %d documents into scope %s\n", green("✓"), len(docs), cfg.Scope)
		fmt.Printf("  %d added, %d updated, %s\n", len(res.Added), len(res.Updated),
			gray(fmt.Sprintf("%d unchanged", len(res.Unchanged))))

		if runAfter && len(res.Changed()) > 0 {
			result, err := svc.RunDiscovery(ctx, cfg.Scope, res.Changed(), types.RunIncremental)
			if err != nil {
				return err
			}
			printRunResult(result)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringSlice("ext", nil, "File extensions to read (default .txt,.md)")
	addCmd.Flags().Bool("discover", false, "Run incremental discovery over new and changed documents")
	rootCmd.AddCommand(addCmd)
}
