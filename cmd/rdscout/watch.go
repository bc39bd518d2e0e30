package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/documents"
	"github.com/steveyegge/rdscout/internal/storage"
	"github.com/steveyegge/rdscout/internal/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch an inbox directory and discover as documents arrive",
	Long: `Watch a directory (default .rdscout/inbox) for new or modified text
documents. Each debounced batch is ingested and classified by an incremental
discovery run. Only one watcher may run per workspace.

Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")

		dir := ""
		if len(args) > 0 {
			dir = args[0]
		} else {
			root, err := storage.GetWorkspaceRoot(dbPath)
			if err != nil {
				return err
			}
			dir = filepath.Join(root, storage.WorkspaceDir, "inbox")
		}

		lockPath, err := storage.AcquireWatchLock(dbPath, dir, Version)
		if err != nil {
			return err
		}
		defer func() { _ = storage.ReleaseWatchLock(lockPath) }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src := documents.NewDirSource(dir, cfg.Scope)
		w, err := documents.NewWatcher(src, debounce, logger)
		if err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()

		// Files already ingested don't trigger a run until they change
		existing, err := src.Load(ctx)
		if err != nil {
			return err
		}
		paths := make([]string, len(existing))
		for i, d := range existing {
			paths[i] = filepath.Join(dir, filepath.FromSlash(d.ID))
		}
		w.Seed(paths...)

		if err := w.Start(ctx); err != nil {
			return err
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("%s Watching %s (scope %s). Press Ctrl+C to stop.\n", cyan("👀"), dir, cfg.Scope)

		for batch := range w.Batches() {
			docs := make([]*types.Document, 0, len(batch))
			for _, path := range batch {
				doc, err := src.ReadFile(path)
				if err != nil {
					logger.Warn("failed to read document", "path", path, "error", err)
					continue
				}
				docs = append(docs, doc)
			}

			res, err := documents.Ingest(ctx, store, docs)
			if err != nil {
				fmt.Printf("%s ingest failed: %v\n", red("✗"), err)
				continue
			}
			if len(res.Changed()) == 0 {
				continue
			}

			result, err := svc.RunDiscovery(ctx, cfg.Scope, res.Changed(), types.RunIncremental)
			if err != nil {
				fmt.Printf("%s discovery failed: %v\n", red("✗"), err)
				continue
			}
			printRunResult(result)
		}

		fmt.Println("Stopped watching.")
		return nil
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", documents.DefaultDebounce, "Quiet period before a batch of changes is processed")
	rootCmd.AddCommand(watchCmd)
}
