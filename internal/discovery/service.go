package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/steveyegge/rdscout/internal/changes"
	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/config"
	"github.com/steveyegge/rdscout/internal/entities"
	"github.com/steveyegge/rdscout/internal/lifecycle"
	"github.com/steveyegge/rdscout/internal/metrics"
	"github.com/steveyegge/rdscout/internal/planning"
	"github.com/steveyegge/rdscout/internal/signals"
	"github.com/steveyegge/rdscout/internal/storage"
	"github.com/steveyegge/rdscout/internal/tagging"
	"github.com/steveyegge/rdscout/internal/types"
)

// Embedder looks up the embedding of a document's text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Narrator writes one narrative section from evidence references
type Narrator interface {
	Generate(ctx context.Context, projectName string, section types.EvidenceSlot, refs []types.EvidenceRef) (string, error)
}

// Options carries the optional collaborators of a Service
type Options struct {
	Detector   *signals.Detector   // nil uses the built-in taxonomy
	Recognizer entities.Recognizer // nil uses the heuristic recognizer
	Embedder   Embedder            // nil clusters every document by name token
	Narrator   Narrator            // nil disables narrative generation
	Rules      []changes.Rule      // contradiction rules; nil uses changes.DefaultRules
	Logger     *slog.Logger
}

// Service is the discovery API consumed by the CLI and the watcher
type Service struct {
	store     storage.Storage
	tags      *tagging.Store
	detector  *signals.Detector
	extractor *entities.Extractor
	embedder  Embedder
	narrator  Narrator
	planner   *planning.Planner
	changes   *changes.Service
	cfg       config.Config
	logger    *slog.Logger
}

// New creates a discovery service over store
func New(store storage.Storage, cfg config.Config, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	detector := opts.Detector
	if detector == nil {
		detector = signals.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	planner := planning.New(clustering.New(clustering.Config{
		MinClusterSize: cfg.MinClusterSize,
		Similarity:     cfg.DensitySimilarity,
	}), cfg.MinCandidateScore)

	return &Service{
		store:    store,
		tags:     tagging.New(store, logger),
		detector: detector,
		extractor: entities.NewExtractor(opts.Recognizer,
			entities.WithMaxTextChars(cfg.MaxTextChars),
			entities.WithLogger(logger)),
		embedder: opts.Embedder,
		narrator: opts.Narrator,
		planner:  planner,
		changes:  changes.New(planner, cfg.MatchThreshold, opts.Rules, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// Tags exposes the serialized tagging store
func (s *Service) Tags() *tagging.Store {
	return s.tags
}

// GetCandidates lists a scope's candidates, optionally filtered by status
func (s *Service) GetCandidates(ctx context.Context, scopeID string, statuses ...types.CandidateStatus) ([]*types.ProjectCandidate, error) {
	return s.store.ListCandidates(ctx, types.CandidateFilter{ScopeID: scopeID, Statuses: statuses})
}

// ApplyTagChange adds or removes a user tag between a document and a project
func (s *Service) ApplyTagChange(ctx context.Context, scopeID, documentID, projectID string, action types.TagAction, actor string) ([]types.TagChange, error) {
	switch action {
	case types.TagAdd:
		return s.tags.UpsertTags(ctx, types.TagRequest{
			ScopeID:     scopeID,
			ProjectID:   projectID,
			DocumentIDs: []string{documentID},
			Provenance:  types.ProvenanceUser,
			Confidence:  1.0,
			Actor:       actor,
		})
	case types.TagRemove:
		if err := s.tags.RemoveTag(ctx, scopeID, documentID, projectID, actor); err != nil {
			return nil, err
		}
		return []types.TagChange{{
			DocumentID: documentID,
			ProjectID:  projectID,
			Action:     types.TagRemove,
			Provenance: types.ProvenanceUser,
			Applied:    true,
		}}, nil
	default:
		return nil, fmt.Errorf("tag action must be add or remove (got %q): %w", action, types.ErrInvalidInput)
	}
}

// SetCandidateStatus approves or rejects a candidate
func (s *Service) SetCandidateStatus(ctx context.Context, projectID string, status types.CandidateStatus, actor string) (*types.ProjectCandidate, error) {
	c, err := lifecycle.SetCandidateStatus(ctx, s.store, projectID, status, lifecycle.TriggerManualReview, actor)
	if err != nil && lifecycle.IsEventLogOnly(err) {
		s.logger.Warn("candidate status changed without audit event", "project", projectID, "error", err)
		return c, nil
	}
	return c, err
}

// AcceptProposal applies an open proposal as user decisions: a link becomes a
// user tag, a new-candidate proposal becomes an approved candidate with its
// members tagged
func (s *Service) AcceptProposal(ctx context.Context, id int64, actor string) (*AcceptResult, error) {
	p, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOpen() {
		return nil, fmt.Errorf("proposal %d is already %s: %w", id, p.Resolution, types.ErrInvalidTransition)
	}

	switch p.Outcome {
	case types.OutcomeSafeAddition, types.OutcomeNarrativeImpact, types.OutcomeNewCandidate:
	default:
		return nil, fmt.Errorf("proposal %d is %s and has nothing to accept: %w", id, p.Outcome, types.ErrInvalidTransition)
	}

	res, err := s.tags.AcceptProposal(ctx, id, p.CandidateID, lifecycle.TriggerProposalAccepted, actor)
	if err != nil {
		return nil, err
	}
	s.logger.Info("proposal accepted", "proposal", id, "outcome", p.Outcome, "project", res.Candidate.ID)
	return res, nil
}

// DismissProposal closes a proposal without applying it
func (s *Service) DismissProposal(ctx context.Context, id int64, actor string) error {
	return s.store.ResolveProposal(ctx, id, types.ResolutionDismissed, actor)
}

// ErrNarratorDisabled is returned when no narrative collaborator is configured
var ErrNarratorDisabled = errors.New("narrative generation is not configured")

// GenerateNarrative drafts one narrative section for a project from its
// stored evidence. Discovery state is never touched.
func (s *Service) GenerateNarrative(ctx context.Context, projectID string, section types.EvidenceSlot) (string, error) {
	if !section.IsValid() {
		return "", fmt.Errorf("unknown section %q: %w", section, types.ErrInvalidInput)
	}
	c, err := s.store.GetCandidate(ctx, projectID)
	if err != nil {
		return "", err
	}
	if s.narrator == nil {
		return "", &types.CollaboratorError{Collaborator: "narrative", Err: ErrNarratorDisabled}
	}

	prose, err := s.narrator.Generate(ctx, c.Name, section, c.Evidence.Slot(section))
	if err != nil {
		metrics.RecordCollaboratorFailure("narrative")
		return "", &types.CollaboratorError{Collaborator: "narrative", Err: err}
	}
	return prose, nil
}
