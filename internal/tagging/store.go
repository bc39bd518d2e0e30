// Package tagging serializes document-project tag mutations per project.
//
// Storage transactions already make each write atomic. The per-project lock
// additionally keeps a discovery run's commit and a concurrent manual edit on
// the same project from interleaving, so neither observes the other's
// half-decided state. Reads go straight to storage and see the latest commit.
package tagging

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/metrics"
	"github.com/steveyegge/rdscout/internal/types"
)

// Storage is the subset of storage.Storage the tagging store needs
type Storage interface {
	UpsertTags(ctx context.Context, req types.TagRequest) ([]types.TagChange, error)
	RemoveTag(ctx context.Context, scopeID, documentID, projectID, actor string) error
	ListTagsForDocument(ctx context.Context, documentID string) ([]*types.DocumentProjectTag, error)
	ListTagsForProject(ctx context.Context, projectID string) ([]*types.DocumentProjectTag, error)
	TagHistory(ctx context.Context, documentID, projectID string) ([]*types.DocumentProjectTag, error)
	CommitRun(ctx context.Context, runID string, batch *types.RunBatch, extra []*events.Event) ([]types.TagChange, error)
	AcceptProposal(ctx context.Context, id int64, trigger, actor string) (*types.ProposalAcceptance, error)
}

// Store is the TaggingStore: tag writes for one project happen one at a time
type Store struct {
	storage Storage
	logger  *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a tagging store over storage
func New(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// projectLock returns the mutex for a project
func (s *Store) projectLock(projectID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if s.locks[projectID] == nil {
		s.locks[projectID] = &sync.Mutex{}
	}
	return s.locks[projectID]
}

// lockProjects locks every project in sorted order and returns the unlock.
// A fixed order keeps two multi-project commits from deadlocking.
func (s *Store) lockProjects(projectIDs []string) func() {
	ids := append([]string(nil), projectIDs...)
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		mu := s.projectLock(id)
		mu.Lock()
		held = append(held, mu)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// UpsertTags tags documents to a project
func (s *Store) UpsertTags(ctx context.Context, req types.TagRequest) ([]types.TagChange, error) {
	unlock := s.lockProjects([]string{req.ProjectID})
	defer unlock()

	changes, err := s.storage.UpsertTags(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.RecordTagChanges(changes)
	s.logger.Debug("tags upserted", "project", req.ProjectID, "provenance", req.Provenance, "changes", len(changes))
	return changes, nil
}

// RemoveTag removes a document's tag to a project. The project itself is
// left in place even when this was its last tag.
func (s *Store) RemoveTag(ctx context.Context, scopeID, documentID, projectID, actor string) error {
	unlock := s.lockProjects([]string{projectID})
	defer unlock()

	if err := s.storage.RemoveTag(ctx, scopeID, documentID, projectID, actor); err != nil {
		return err
	}
	metrics.RecordTagChanges([]types.TagChange{{
		DocumentID: documentID, ProjectID: projectID, Action: types.TagRemove, Provenance: types.ProvenanceUser, Applied: true,
	}})
	return nil
}

// AcceptProposal applies an open proposal's tags as user decisions and
// resolves it. projectID is the candidate a link proposal targets and is
// empty when the proposal creates a new candidate.
func (s *Store) AcceptProposal(ctx context.Context, id int64, projectID, trigger, actor string) (*types.ProposalAcceptance, error) {
	var projects []string
	if projectID != "" {
		projects = []string{projectID}
	}
	unlock := s.lockProjects(projects)
	defer unlock()

	res, err := s.storage.AcceptProposal(ctx, id, trigger, actor)
	if err != nil {
		return nil, err
	}
	metrics.RecordTagChanges(res.TagChanges)
	s.logger.Debug("proposal accepted", "proposal", id, "project", res.Candidate.ID, "changes", len(res.TagChanges))
	return res, nil
}

// CommitRun commits a run's batch while holding the lock of every project it touches
func (s *Store) CommitRun(ctx context.Context, runID string, batch *types.RunBatch, extra []*events.Event) ([]types.TagChange, error) {
	var projects []string
	if batch != nil {
		projects = batch.ProjectIDs()
	}
	unlock := s.lockProjects(projects)
	defer unlock()

	changes, err := s.storage.CommitRun(ctx, runID, batch, extra)
	if err != nil {
		return nil, err
	}
	metrics.RecordTagChanges(changes)
	return changes, nil
}

// ListTagsForDocument returns a document's active tags
func (s *Store) ListTagsForDocument(ctx context.Context, documentID string) ([]*types.DocumentProjectTag, error) {
	return s.storage.ListTagsForDocument(ctx, documentID)
}

// ListTagsForProject returns a project's active tags
func (s *Store) ListTagsForProject(ctx context.Context, projectID string) ([]*types.DocumentProjectTag, error) {
	return s.storage.ListTagsForProject(ctx, projectID)
}

// History returns every tag record for a document-project pair
func (s *Store) History(ctx context.Context, documentID, projectID string) ([]*types.DocumentProjectTag, error) {
	return s.storage.TagHistory(ctx, documentID, projectID)
}
