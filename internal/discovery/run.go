package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/rdscout/internal/changes"
	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/metrics"
	"github.com/steveyegge/rdscout/internal/planning"
	"github.com/steveyegge/rdscout/internal/types"
	"golang.org/x/sync/errgroup"
)

// degradation collects per-collaborator failures during analysis
type degradation struct {
	mu        sync.Mutex
	docs      map[string][]string
	lastError map[string]error
}

func (d *degradation) record(collaborator, documentID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.docs == nil {
		d.docs = make(map[string][]string)
		d.lastError = make(map[string]error)
	}
	d.docs[collaborator] = append(d.docs[collaborator], documentID)
	d.lastError[collaborator] = err
}

// RunDiscovery analyzes the given documents of a scope and commits the
// outcome as one discovery run.
//
// Missing or empty documents are skipped and reported. A document belonging
// to another scope is a consistency violation: the run is abandoned and
// nothing it produced becomes visible.
func (s *Service) RunDiscovery(ctx context.Context, scopeID string, documentIDs []string, mode types.RunMode) (*RunResult, error) {
	start := time.Now()
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid run mode %q: %w", mode, types.ErrInvalidInput)
	}
	if strings.TrimSpace(scopeID) == "" {
		return nil, fmt.Errorf("scope is required: %w", types.ErrInvalidInput)
	}
	ids := dedupeIDs(documentIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("no documents to analyze: %w", types.ErrInvalidInput)
	}

	run := &types.DiscoveryRun{ScopeID: scopeID, Mode: mode, DocumentIDs: ids}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	logger := s.logger.With("run_id", run.ID, "scope", scopeID, "mode", mode)
	logger.Info("discovery run started", "number", run.Number, "documents", len(ids))

	result := &RunResult{Run: run}
	abandon := func(cause error) (*RunResult, error) {
		if err := s.store.AbandonRun(ctx, run.ID, cause.Error()); err != nil {
			logger.Error("failed to abandon run", "error", err)
		}
		run.Status = types.RunAbandoned
		metrics.RecordRun(mode, types.RunAbandoned, time.Since(start))
		logger.Warn("discovery run abandoned", "error", cause)
		return result, fmt.Errorf("discovery run #%d abandoned: %w", run.Number, cause)
	}

	docs, err := s.loadDocuments(ctx, scopeID, ids, result)
	if err != nil {
		return abandon(err)
	}

	var deg degradation
	analyses, err := s.analyze(ctx, docs, &deg)
	if err != nil {
		return abandon(err)
	}
	planning.SortByCreation(analyses)

	var batch *types.RunBatch
	switch mode {
	case types.RunFull:
		batch, err = s.planFull(ctx, scopeID, analyses, result)
	case types.RunIncremental:
		batch, err = s.planIncremental(ctx, scopeID, analyses, result)
	}
	if err != nil {
		return abandon(err)
	}

	extra := s.runEvents(scopeID, run, result, &deg, batch, start)
	applied, err := s.tags.CommitRun(ctx, run.ID, batch, extra)
	if err != nil {
		return abandon(err)
	}
	result.TagChanges = append(applied, result.TagChanges...)
	result.Proposals = batch.Proposals

	if committed, err := s.store.GetRun(ctx, run.ID); err == nil {
		result.Run = committed
	} else {
		run.Status = types.RunCompleted
	}

	// Annotations are a cache of the analysis; a failure here doesn't undo the run
	for i := range analyses {
		a := &analyses[i]
		if err := s.store.AnnotateDocument(ctx, a.Document.ID, &a.Profile, &a.Entities); err != nil {
			logger.Warn("failed to annotate document", "document", a.Document.ID, "error", err)
		}
	}

	result.Duration = time.Since(start)
	metrics.RecordRun(mode, types.RunCompleted, result.Duration)
	metrics.RecordDocuments(len(analyses), len(result.Skipped))
	metrics.RecordFallback(result.FallbackDocs)
	logger.Info("discovery run completed", "summary", result.Summary(), "duration", result.Duration)
	return result, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// loadDocuments reads the requested documents, skipping bad references
func (s *Service) loadDocuments(ctx context.Context, scopeID string, ids []string, result *RunResult) ([]*types.Document, error) {
	found, err := s.store.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	docs := make([]*types.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := found[id]
		var inputErr *types.InputError
		switch {
		case !ok:
			inputErr = &types.InputError{DocumentID: id, Reason: "document not found"}
		case doc.ScopeID != scopeID:
			return nil, &types.ConsistencyError{
				ScopeID:    scopeID,
				DocumentID: id,
				Reason:     fmt.Sprintf("document belongs to scope %s", doc.ScopeID),
			}
		case strings.TrimSpace(doc.Text) == "":
			inputErr = &types.InputError{DocumentID: id, Reason: "document has no text"}
		}
		if inputErr != nil {
			s.logger.Warn("skipping document", "document", id, "reason", inputErr.Reason)
			result.Skipped = append(result.Skipped, SkippedDocument{DocumentID: id, Reason: inputErr.Reason})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// analyze runs the per-document steps on a bounded pool. All documents are
// analyzed before this returns.
func (s *Service) analyze(ctx context.Context, docs []*types.Document, deg *degradation) ([]planning.Analysis, error) {
	out := make([]planning.Analysis, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			ex := s.extractor.Extract(gctx, doc.Text)
			if ex.Degraded {
				deg.record("ner", doc.ID, ex.Err)
			}

			var embedding []float32
			if s.embedder != nil {
				v, err := s.embedder.Embed(gctx, doc.Text)
				if err != nil {
					deg.record("embedding", doc.ID, err)
				} else {
					embedding = v
				}
			}

			out[i] = planning.Analyze(s.detector, doc, ex.Entities, embedding)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	return out, nil
}

// planFull turns the whole batch into candidates and system tags. A planned
// candidate that continues an existing one (see matchExisting) reuses it:
// discovered candidates are rescored, approved ones only receive proposals,
// rejected ones are revived as a new candidate.
func (s *Service) planFull(ctx context.Context, scopeID string, analyses []planning.Analysis, result *RunResult) (*types.RunBatch, error) {
	plan := s.planner.Plan(scopeID, analyses)
	s.recordPlan(plan, result)

	existing, err := s.store.ListCandidates(ctx, types.CandidateFilter{ScopeID: scopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	planned, members := plannedCandidates(plan)
	matches, err := s.matchExisting(ctx, planned, members, existing)
	if err != nil {
		return nil, err
	}
	byID := analysesByID(analyses)

	batch := &types.RunBatch{}
	for i, p := range plan.Candidates {
		c := p.Candidate
		match := matches[i]

		switch {
		case match != nil && match.Status == types.CandidateApproved:
			props, err := s.approvedAdditions(ctx, match, p.Members, byID)
			if err != nil {
				return nil, err
			}
			batch.Proposals = append(batch.Proposals, props...)
			result.Candidates = append(result.Candidates, match)
			continue

		case match != nil && match.Status == types.CandidateDiscovered:
			c = mergeRescored(match, c)
			batch.UpdatedCandidates = append(batch.UpdatedCandidates, c)

		default:
			c.ID = uuid.New().String()
			if match != nil {
				c.RevivedFrom = match.ID
			}
			batch.NewCandidates = append(batch.NewCandidates, c)
		}

		for _, id := range p.Members {
			batch.Tags = append(batch.Tags, types.TagWrite{DocumentID: id, ProjectID: c.ID, Confidence: c.Score})
		}
		result.Candidates = append(result.Candidates, c)
	}
	return batch, nil
}

// approvedAdditions proposes the members an approved candidate doesn't have yet
func (s *Service) approvedAdditions(ctx context.Context, c *types.ProjectCandidate, members []string, byID map[string]*planning.Analysis) ([]*types.Proposal, error) {
	tags, err := s.store.ListTagsForProject(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of %s: %w", c.ID, err)
	}
	tagged := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagged[t.DocumentID] = true
	}

	var out []*types.Proposal
	for _, id := range members {
		a := byID[id]
		if tagged[id] || a == nil {
			continue
		}
		out = append(out, s.linkProposal(s.changes.Classify(a, c)))
	}
	return out, nil
}

// planIncremental classifies the batch against existing candidates. Nothing
// but policy-approved safe additions is applied.
func (s *Service) planIncremental(ctx context.Context, scopeID string, analyses []planning.Analysis, result *RunResult) (*types.RunBatch, error) {
	existing, err := s.store.ListCandidates(ctx, types.CandidateFilter{ScopeID: scopeID})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	det := s.changes.Detect(scopeID, analyses, existing)
	s.recordPlan(det.Plan, result)

	batch := &types.RunBatch{}
	for _, l := range det.Links {
		p := s.linkProposal(l)
		batch.Proposals = append(batch.Proposals, p)
		if p.Resolution == types.ResolutionApplied {
			batch.Tags = append(batch.Tags, types.TagWrite{DocumentID: l.DocumentID, ProjectID: l.CandidateID, Confidence: l.Similarity})
			continue
		}
		result.TagChanges = append(result.TagChanges, types.TagChange{
			DocumentID: l.DocumentID,
			ProjectID:  l.CandidateID,
			Action:     types.TagProposed,
			Provenance: types.ProvenanceSystem,
			Confidence: l.Similarity,
		})
	}

	var rejected []*types.ProjectCandidate
	for _, c := range existing {
		if c.Status == types.CandidateRejected {
			rejected = append(rejected, c)
		}
	}
	planned, members := plannedCandidates(det.Plan)
	revived, err := s.matchExisting(ctx, planned, members, rejected)
	if err != nil {
		return nil, err
	}
	for i, p := range det.Plan.Candidates {
		c := p.Candidate
		if match := revived[i]; match != nil {
			c.RevivedFrom = match.ID
		}
		batch.Proposals = append(batch.Proposals, &types.Proposal{
			DocumentID: p.Members[0],
			Outcome:    types.OutcomeNewCandidate,
			Similarity: c.Score,
			Reason:     fmt.Sprintf("%d documents cluster as %q (%s)", len(p.Members), c.Name, p.Strategy),
			Candidate:  c,
			Members:    p.Members,
		})
		result.Candidates = append(result.Candidates, c)
	}
	for _, id := range det.Plan.Unassigned {
		batch.Proposals = append(batch.Proposals, &types.Proposal{
			DocumentID: id,
			Outcome:    types.OutcomeUnassigned,
			Reason:     "no matching candidate or cluster",
		})
	}

	docIDs := make([]string, 0, len(det.Outcomes))
	for id := range det.Outcomes {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)
	for _, id := range docIDs {
		metrics.RecordOutcome(det.Outcomes[id])
	}
	return batch, nil
}

// linkProposal turns a link into a proposal, pre-resolving safe additions
// when policy allows applying them
func (s *Service) linkProposal(l changes.Link) *types.Proposal {
	p := &types.Proposal{
		DocumentID:  l.DocumentID,
		Outcome:     l.Outcome,
		CandidateID: l.CandidateID,
		Similarity:  l.Similarity,
		Reason:      l.Reason(),
	}
	if l.Outcome == types.OutcomeSafeAddition && s.cfg.AutoApplySafeAdditions {
		now := time.Now()
		p.Resolution = types.ResolutionApplied
		p.ResolvedAt = &now
		p.ResolvedBy = events.ActorSystem
	}
	return p
}

func (s *Service) recordPlan(plan planning.Plan, result *RunResult) {
	result.Strategy = plan.Strategy
	result.FallbackDocs = len(plan.FallbackDocs)
	result.Unassigned = plan.Unassigned
	if n := len(plan.FallbackDocs); n > 0 {
		result.Degradations = append(result.Degradations,
			fmt.Sprintf("processed with fallback clustering for %d documents", n))
	}
	if plan.BelowFloor > 0 {
		result.Degradations = append(result.Degradations,
			fmt.Sprintf("%d clusters scored below the candidate floor %.2f", plan.BelowFloor, s.cfg.MinCandidateScore))
	}
}

// runEvents builds the audit events committed with the run
func (s *Service) runEvents(scopeID string, run *types.DiscoveryRun, result *RunResult, deg *degradation, batch *types.RunBatch, start time.Time) []*events.Event {
	var out []*events.Event
	for _, sk := range result.Skipped {
		ev := events.New(events.EventTypeDocumentSkipped, scopeID, events.SeverityWarning,
			fmt.Sprintf("Skipped %s: %s", sk.DocumentID, sk.Reason))
		ev.DocumentID = sk.DocumentID
		out = append(out, ev)
	}

	collaborators := make([]string, 0, len(deg.docs))
	for name := range deg.docs {
		collaborators = append(collaborators, name)
	}
	sort.Strings(collaborators)
	for _, name := range collaborators {
		docs := deg.docs[name]
		sort.Strings(docs)
		for range docs {
			metrics.RecordCollaboratorFailure(name)
		}
		var errText string
		if e := deg.lastError[name]; e != nil {
			errText = e.Error()
		}
		result.Degradations = append(result.Degradations, degradationNote(name, len(docs)))
		ev, err := events.NewDegradationEvent(scopeID, run.ID, events.DegradationData{
			Collaborator: name,
			Documents:    docs,
			Error:        errText,
		})
		if err != nil {
			s.logger.Warn("failed to build degradation event", "error", err)
			continue
		}
		out = append(out, ev)
	}

	applied := 0
	for _, p := range batch.Proposals {
		if p.Resolution == types.ResolutionApplied {
			applied++
		}
	}
	ev, err := events.NewRunCompletedEvent(scopeID, run.ID, events.RunCompletedData{
		Mode:              string(run.Mode),
		Documents:         len(run.DocumentIDs),
		Skipped:           len(result.Skipped),
		CandidatesCreated: len(batch.NewCandidates),
		CandidatesUpdated: len(batch.UpdatedCandidates),
		TagsApplied:       len(batch.Tags),
		Proposals:         len(batch.Proposals) - applied,
		FallbackDocuments: result.FallbackDocs,
		Strategy:          result.Strategy,
		DurationMs:        time.Since(start).Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("failed to build run completed event", "error", err)
		return out
	}
	return append(out, ev)
}

func degradationNote(collaborator string, n int) string {
	switch collaborator {
	case "embedding":
		return fmt.Sprintf("embedding unavailable for %d documents", n)
	case "ner":
		return fmt.Sprintf("entity recognizer unavailable for %d documents, used heuristic recognizer", n)
	}
	return fmt.Sprintf("%s unavailable for %d documents", collaborator, n)
}

func plannedCandidates(plan planning.Plan) ([]*types.ProjectCandidate, [][]string) {
	candidates := make([]*types.ProjectCandidate, len(plan.Candidates))
	members := make([][]string, len(plan.Candidates))
	for i, p := range plan.Candidates {
		candidates[i] = p.Candidate
		members[i] = p.Members
	}
	return candidates, members
}

func analysesByID(analyses []planning.Analysis) map[string]*planning.Analysis {
	out := make(map[string]*planning.Analysis, len(analyses))
	for i := range analyses {
		out[analyses[i].Document.ID] = &analyses[i]
	}
	return out
}

// mergeRescored keeps the identity and accumulated evidence of an existing
// discovered candidate and takes this run's scores
func mergeRescored(existing, planned *types.ProjectCandidate) *types.ProjectCandidate {
	c := *planned
	c.ID = existing.ID
	c.Name = existing.Name
	c.Status = existing.Status
	c.RevivedFrom = existing.RevivedFrom
	c.CreatedByRunID = existing.CreatedByRunID
	c.CreatedAt = existing.CreatedAt

	evidence := existing.Evidence
	for _, slot := range types.AllEvidenceSlots {
		for _, ref := range planned.Evidence.Slot(slot) {
			if len(evidence.Slot(slot)) >= planning.MaxEvidencePerSlot {
				break
			}
			evidence.Append(slot, ref)
		}
	}
	c.Evidence = evidence
	c.Profile.Aliases = unionStrings(existing.Profile.Aliases, planned.Profile.Aliases)
	c.Profile.Terms = unionStrings(existing.Profile.Terms, planned.Profile.Terms)
	return &c
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
