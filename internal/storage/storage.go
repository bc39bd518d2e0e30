package storage

import (
	"context"

	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/storage/sqlite"
	"github.com/steveyegge/rdscout/internal/types"
)

// Storage defines the interface for discovery storage backends
type Storage interface {
	// Documents (owned by ingestion; discovery reads text and writes annotations)
	PutDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id string) (*types.Document, error)
	GetDocuments(ctx context.Context, ids []string) (map[string]*types.Document, error)
	ListDocuments(ctx context.Context, scopeID string, limit int) ([]*types.Document, error)
	AnnotateDocument(ctx context.Context, id string, profile *types.SignalProfile, entities *types.EntitySet) error

	// Project candidates
	CreateCandidate(ctx context.Context, c *types.ProjectCandidate, actor string) error
	GetCandidate(ctx context.Context, id string) (*types.ProjectCandidate, error)
	ListCandidates(ctx context.Context, filter types.CandidateFilter) ([]*types.ProjectCandidate, error)
	UpdateCandidateStatus(ctx context.Context, id string, from, to types.CandidateStatus, actor string) error

	// Document-project tags
	UpsertTags(ctx context.Context, req types.TagRequest) ([]types.TagChange, error)
	RemoveTag(ctx context.Context, scopeID, documentID, projectID, actor string) error
	ListTagsForDocument(ctx context.Context, documentID string) ([]*types.DocumentProjectTag, error)
	ListTagsForProject(ctx context.Context, projectID string) ([]*types.DocumentProjectTag, error)
	TagHistory(ctx context.Context, documentID, projectID string) ([]*types.DocumentProjectTag, error)

	// Discovery runs
	CreateRun(ctx context.Context, run *types.DiscoveryRun) error
	CommitRun(ctx context.Context, runID string, batch *types.RunBatch, extra []*events.Event) ([]types.TagChange, error)
	AbandonRun(ctx context.Context, runID, reason string) error
	GetRun(ctx context.Context, id string) (*types.DiscoveryRun, error)
	ListRuns(ctx context.Context, scopeID string, limit int) ([]*types.DiscoveryRun, error)

	// Change-detection proposals
	GetProposal(ctx context.Context, id int64) (*types.Proposal, error)
	ListProposals(ctx context.Context, filter types.ProposalFilter) ([]*types.Proposal, error)
	ResolveProposal(ctx context.Context, id int64, resolution types.ProposalResolution, actor string) error
	AcceptProposal(ctx context.Context, id int64, trigger, actor string) (*types.ProposalAcceptance, error)

	// Audit events
	StoreEvent(ctx context.Context, event *events.Event) error
	GetEvents(ctx context.Context, filter events.EventFilter) ([]*events.Event, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".rdscout/rdscout.db"
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: DefaultDatabasePath,
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultDatabasePath
	}
	return sqlite.New(ctx, cfg.Path)
}
