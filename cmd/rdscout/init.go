package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/config"
	"github.com/steveyegge/rdscout/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an rdscout workspace in the current directory",
	Long: `Initialize an rdscout workspace by creating a .rdscout/ directory.

This creates:
  - .rdscout/rdscout.db   (SQLite database)
  - .rdscout/config.yaml  (configuration with defaults)
  - .rdscout/inbox/       (drop documents here for 'rdscout watch')`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}

		path, err := storage.InitWorkspace(cwd)
		if err != nil {
			return err
		}

		// Opening the database applies the schema
		db, err := storage.NewStorage(context.Background(), &storage.Config{Path: path})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		_ = db.Close()

		cfgPath, err := config.WriteDefault(cwd)
		if err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Initialized rdscout workspace\n", green("✓"))
		fmt.Printf("  Database: %s\n", cyan(path))
		fmt.Printf("  Config:   %s\n", cyan(cfgPath))
		fmt.Printf("\nNext: %s then %s\n\n", cyan("rdscout add <dir>"), cyan("rdscout discover"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
