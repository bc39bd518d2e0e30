package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"
	"github.com/steveyegge/rdscout/internal/ai"
	"github.com/steveyegge/rdscout/internal/config"
	"github.com/steveyegge/rdscout/internal/discovery"
	"github.com/steveyegge/rdscout/internal/metrics"
	"github.com/steveyegge/rdscout/internal/signals"
	"github.com/steveyegge/rdscout/internal/storage"
)

// Version is set at build time
var Version = "dev"

var (
	dbPath      string
	scopeFlag   string
	actor       string
	metricsAddr string
	verbose     bool

	cfg    config.Config
	store  storage.Storage
	svc    *discovery.Service
	logger *slog.Logger

	metricsServer *http.Server
)

// commands that run without an open workspace
var noWorkspace = map[string]bool{"init": true, "version": true, "help": true, "completion": true}

var rootCmd = &cobra.Command{
	Use:   "rdscout",
	Short: "Discover R&D projects in engineering documents",
	Long: `rdscout reads engineering documents (meeting notes, tickets, status reports),
finds the R&D projects they describe, and keeps document-project tags current
as new documents arrive.

Typical flow:
  rdscout init
  rdscout add notes/          # ingest .txt/.md files
  rdscout discover            # full discovery over the scope
  rdscout candidates          # review what was found
  rdscout watch               # keep discovering as documents arrive`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		if noWorkspace[cmd.Name()] {
			return nil
		}
		return openWorkspace(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = metricsServer.Shutdown(ctx)
			cancel()
		}
		if store != nil {
			_ = store.Close()
		}
	},
}

func openWorkspace(ctx context.Context) error {
	if dbPath == "" {
		found, err := storage.DiscoverDatabase()
		if err != nil {
			return err
		}
		dbPath = found
	}

	root, err := storage.GetWorkspaceRoot(dbPath)
	if err != nil {
		root = "."
	}
	if cfg, err = config.Load(root); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if scopeFlag != "" {
		cfg.Scope = scopeFlag
	}
	cfg.DatabasePath = dbPath

	if store, err = storage.NewStorage(ctx, &storage.Config{Path: dbPath}); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if svc, err = newService(cfg, store); err != nil {
		return err
	}

	if metricsAddr != "" {
		startMetricsServer(metricsAddr)
	}
	return nil
}

// newService wires the discovery service with whatever collaborators the
// configuration and environment allow. A missing API key disables the
// collaborator instead of failing.
func newService(cfg config.Config, store storage.Storage) (*discovery.Service, error) {
	opts := discovery.Options{Logger: logger}
	rc := ai.RetryConfigFrom(cfg.Retry)

	if cfg.TaxonomyPath != "" {
		tax, err := signals.LoadTaxonomy(cfg.TaxonomyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load taxonomy: %w", err)
		}
		if opts.Detector, err = signals.NewDetector(tax); err != nil {
			return nil, fmt.Errorf("invalid taxonomy %s: %w", cfg.TaxonomyPath, err)
		}
	}

	if cfg.Embedding.Enabled {
		emb, err := ai.NewOpenAIEmbedder("", cfg.Embedding, rc, logger)
		if err != nil {
			logger.Warn("embeddings disabled", "error", err)
		} else {
			opts.Embedder = emb
		}
	}

	completer, err := ai.NewAnthropicCompleter("")
	if err != nil {
		logger.Debug("anthropic collaborator disabled", "error", err)
	} else {
		opts.Narrator = ai.NewNarrativeGenerator(completer, cfg.Narrative, rc, logger)
		if cfg.NER.UseLLM {
			opts.Recognizer = ai.NewLLMRecognizer(completer, cfg.NER.Model, rc, logger)
		}
	}

	return discovery.New(store, cfg, opts), nil
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
}

func defaultActor() string {
	if a := os.Getenv("RDSCOUT_ACTOR"); a != "" {
		return a
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "user"
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rdscout version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rdscout %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: discover .rdscout/*.db)")
	rootCmd.PersistentFlags().StringVar(&scopeFlag, "scope", "", "Claim scope (default from config)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "Name recorded on manual changes")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
