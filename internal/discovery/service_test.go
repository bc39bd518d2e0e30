package discovery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/steveyegge/rdscout/internal/clustering"
	"github.com/steveyegge/rdscout/internal/config"
	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/storage"
	"github.com/steveyegge/rdscout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scope = "acme"

var base = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

var beaconDocs = map[string]string{
	"b1": "Project BEACON: we hypothesized a hybrid cache layout. The first attempt failed due to memory limits.",
	"b2": "BEACON-7 follow-up: the second approach succeeded with a 40% improvement in latency.",
	"x1": "Reminder that the office is closed on Friday afternoon.",
}

type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

// directionEmbedder returns a fixed vector per document text
type directionEmbedder struct {
	byText map[string][]float32
}

func (d *directionEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := d.byText[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector")
}

type fakeNarrator struct {
	err  error
	refs []types.EvidenceRef
}

func (f *fakeNarrator) Generate(_ context.Context, name string, section types.EvidenceSlot, refs []types.EvidenceRef) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.refs = refs
	return fmt.Sprintf("%s %s from %d refs", name, section, len(refs)), nil
}

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{
		Path: filepath.Join(t.TempDir(), ".rdscout", "rdscout.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestService(t *testing.T, mutate func(*config.Config), opts Options) (*Service, storage.Storage) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	store := newTestStore(t)
	return New(store, cfg, opts), store
}

func putDoc(t *testing.T, store storage.Storage, scopeID, id, text string, offset time.Duration) {
	t.Helper()
	require.NoError(t, store.PutDocument(context.Background(), &types.Document{
		ID: id, ScopeID: scopeID, Title: "Doc " + id, Text: text, CreatedAt: base.Add(offset),
	}))
}

func putBeacon(t *testing.T, store storage.Storage) []string {
	t.Helper()
	ids := []string{"b1", "b2", "x1"}
	for i, id := range ids {
		putDoc(t, store, scope, id, beaconDocs[id], time.Duration(i)*time.Hour)
	}
	return ids
}

func TestRunDiscovery_FullCreatesCandidateAndTags(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)

	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)

	assert.Equal(t, types.RunCompleted, res.Run.Status)
	assert.Equal(t, 1, res.Run.Number)
	assert.Equal(t, 3, res.Analyzed())
	assert.Equal(t, []string{"x1"}, res.Unassigned)
	assert.Equal(t, clustering.StrategyNameToken, res.Strategy)
	assert.Equal(t, 3, res.FallbackDocs)

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, "BEACON", c.Name)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, res.Run.ID, c.CreatedByRunID)

	stored, err := svc.GetCandidates(ctx, scope)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, c.ID, stored[0].ID)
	assert.Equal(t, types.CandidateDiscovered, stored[0].Status)

	tags, err := svc.Tags().ListTagsForProject(ctx, c.ID)
	require.NoError(t, err)
	var tagged []string
	for _, tag := range tags {
		assert.Equal(t, types.ProvenanceSystem, tag.Provenance)
		assert.Equal(t, res.Run.ID, tag.RunID)
		tagged = append(tagged, tag.DocumentID)
	}
	assert.ElementsMatch(t, []string{"b1", "b2"}, tagged)
	assert.Equal(t, 2, res.AppliedTagCount())

	evs, err := store.GetEvents(ctx, events.EventFilter{RunID: res.Run.ID, Type: events.EventTypeRunCompleted})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	data, err := evs[0].GetRunCompletedData()
	require.NoError(t, err)
	assert.Equal(t, 1, data.CandidatesCreated)
	assert.Equal(t, 2, data.TagsApplied)

	doc, err := store.GetDocument(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, doc.SignalProfile, "analysis should be cached on the document")
	assert.False(t, doc.SignalProfile.IsZero())
}

func TestRunDiscovery_FullRerunRescoresDiscovered(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)

	first, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	second, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Run.Number)
	require.Len(t, second.Candidates, 1)
	assert.Equal(t, first.Candidates[0].ID, second.Candidates[0].ID)

	all, err := svc.GetCandidates(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunDiscovery_FullRerunKeepsSameTitledProjectsApart(t *testing.T) {
	ctx := context.Background()
	texts := map[string]string{
		"a": "Weekly status: trialled a lock-free queue on the ingest path.",
		"b": "Weekly status: the queue benchmark showed contention under load.",
		"c": "Weekly status: queue rework merged after the second attempt.",
		"d": "Weekly status: the thermal model for the enclosure is uncertain.",
		"e": "Weekly status: enclosure airflow simulation iterated twice.",
		"f": "Weekly status: enclosure prototype passed the heat soak.",
	}
	emb := &directionEmbedder{byText: map[string][]float32{}}
	ids := []string{"a", "b", "c", "d", "e", "f"}
	for _, id := range ids {
		if id < "d" {
			emb.byText[texts[id]] = []float32{1, 0, 0}
		} else {
			emb.byText[texts[id]] = []float32{0, 1, 0}
		}
	}

	svc, store := newTestService(t, nil, Options{Embedder: emb})
	for i, id := range ids {
		require.NoError(t, store.PutDocument(ctx, &types.Document{
			ID: id, ScopeID: scope, Title: "Weekly status", Text: texts[id],
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	first, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	require.Len(t, first.Candidates, 2)
	assert.Equal(t, first.Candidates[0].Profile.NameKey, first.Candidates[1].Profile.NameKey,
		"both clusters are named after the shared title")

	second, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	require.Len(t, second.Candidates, 2)
	assert.Equal(t, first.Candidates[0].ID, second.Candidates[0].ID)
	assert.Equal(t, first.Candidates[1].ID, second.Candidates[1].ID)
	assert.Empty(t, second.Candidates[0].RevivedFrom)

	tagged := func(projectID string) []string {
		tags, err := svc.Tags().ListTagsForProject(ctx, projectID)
		require.NoError(t, err)
		var out []string
		for _, tag := range tags {
			out = append(out, tag.DocumentID)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, tagged(first.Candidates[0].ID))
	assert.ElementsMatch(t, []string{"d", "e", "f"}, tagged(first.Candidates[1].ID))

	all, err := svc.GetCandidates(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemberOverlap(t *testing.T) {
	tagged := map[string]bool{"a": true, "b": true}
	assert.Equal(t, 1.0, memberOverlap([]string{"a", "b", "c"}, tagged))
	assert.Equal(t, 0.5, memberOverlap([]string{"a", "x"}, tagged))
	assert.Zero(t, memberOverlap([]string{"x"}, tagged))
	assert.Zero(t, memberOverlap(nil, tagged))
}

func TestRunDiscovery_RejectedCandidateIsRevived(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)

	first, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	oldID := first.Candidates[0].ID
	_, err = svc.SetCandidateStatus(ctx, oldID, types.CandidateRejected, "alice")
	require.NoError(t, err)

	second, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	require.Len(t, second.Candidates, 1)
	revived := second.Candidates[0]
	assert.NotEqual(t, oldID, revived.ID)
	assert.Equal(t, oldID, revived.RevivedFrom)

	old, err := store.GetCandidate(ctx, oldID)
	require.NoError(t, err)
	assert.Equal(t, types.CandidateRejected, old.Status)
}

func TestRunDiscovery_ApprovedCandidateGetsProposals(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	putDoc(t, store, scope, "b1", beaconDocs["b1"], 0)
	putDoc(t, store, scope, "b2", beaconDocs["b2"], time.Hour)

	first, err := svc.RunDiscovery(ctx, scope, []string{"b1", "b2"}, types.RunFull)
	require.NoError(t, err)
	id := first.Candidates[0].ID
	_, err = svc.SetCandidateStatus(ctx, id, types.CandidateApproved, "alice")
	require.NoError(t, err)

	putDoc(t, store, scope, "b3", "BEACON-9: benchmarked the cache warmup, throughput improved by 15%.", 2*time.Hour)
	second, err := svc.RunDiscovery(ctx, scope, []string{"b1", "b2", "b3"}, types.RunFull)
	require.NoError(t, err)

	require.Len(t, second.Proposals, 1)
	p := second.Proposals[0]
	assert.Equal(t, "b3", p.DocumentID)
	assert.Equal(t, id, p.CandidateID)
	assert.Equal(t, types.OutcomeSafeAddition, p.Outcome)
	assert.True(t, p.IsOpen())

	tags, err := svc.Tags().ListTagsForDocument(ctx, "b3")
	require.NoError(t, err)
	assert.Empty(t, tags, "approved candidates are never retagged without review")
}

func TestRunDiscovery_IncrementalNarrativeImpact(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})

	c := &types.ProjectCandidate{
		ScopeID: scope,
		Name:    "BEACON",
		Tier:    types.TierMedium,
		Score:   0.6,
		Profile: types.CandidateProfile{NameKey: "BEACON", Aliases: []string{"BEACON"}},
	}
	c.Evidence.Append(types.SlotUncertainty, types.EvidenceRef{
		DocumentID: "old-1", Offset: 0, Length: 10,
		Excerpt: "We designed a novel architecture for streaming ingestion.",
	})
	require.NoError(t, store.CreateCandidate(ctx, c, "alice"))
	_, err := svc.SetCandidateStatus(ctx, c.ID, types.CandidateApproved, "alice")
	require.NoError(t, err)

	putDoc(t, store, scope, "n1",
		"Project BEACON update: the ingestion layer was adapted from existing open-source implementation of a log broker.", 0)

	res, err := svc.RunDiscovery(ctx, scope, []string{"n1"}, types.RunIncremental)
	require.NoError(t, err)

	require.Len(t, res.Proposals, 1)
	p := res.Proposals[0]
	assert.Equal(t, types.OutcomeNarrativeImpact, p.Outcome)
	assert.Equal(t, c.ID, p.CandidateID)
	assert.Contains(t, p.Reason, "novel")
	assert.Equal(t, 0, res.AppliedTagCount())
	require.Len(t, res.TagChanges, 1)
	assert.Equal(t, types.TagProposed, res.TagChanges[0].Action)

	open, err := store.ListProposals(ctx, types.ProposalFilter{ScopeID: scope, OpenOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)

	flagged, err := store.GetEvents(ctx, events.EventFilter{ProjectID: c.ID, Type: events.EventTypeNarrativeImpact})
	require.NoError(t, err)
	assert.Len(t, flagged, 1)

	got, err := store.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Evidence, got.Evidence, "core facts must not change without review")
}

func TestRunDiscovery_IncrementalAutoAppliesSafeAdditions(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, func(c *config.Config) { c.AutoApplySafeAdditions = true }, Options{})
	putDoc(t, store, scope, "b1", beaconDocs["b1"], 0)
	putDoc(t, store, scope, "b2", beaconDocs["b2"], time.Hour)
	first, err := svc.RunDiscovery(ctx, scope, []string{"b1", "b2"}, types.RunFull)
	require.NoError(t, err)
	id := first.Candidates[0].ID

	putDoc(t, store, scope, "b3", "BEACON-14: benchmarked the new partitioning scheme, throughput improved by 20%.", 2*time.Hour)
	res, err := svc.RunDiscovery(ctx, scope, []string{"b3"}, types.RunIncremental)
	require.NoError(t, err)

	require.Len(t, res.Proposals, 1)
	p := res.Proposals[0]
	assert.Equal(t, types.OutcomeSafeAddition, p.Outcome)
	assert.Equal(t, types.ResolutionApplied, p.Resolution)
	assert.Empty(t, res.OpenProposals())

	tags, err := svc.Tags().ListTagsForDocument(ctx, "b3")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, id, tags[0].ProjectID)
	assert.Equal(t, types.ProvenanceSystem, tags[0].Provenance)
}

func TestRunDiscovery_IncrementalOnEmptyMatchesFull(t *testing.T) {
	ctx := context.Background()

	fullSvc, fullStore := newTestService(t, nil, Options{})
	ids := putBeacon(t, fullStore)
	full, err := fullSvc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)

	incSvc, incStore := newTestService(t, nil, Options{})
	putBeacon(t, incStore)
	inc, err := incSvc.RunDiscovery(ctx, scope, ids, types.RunIncremental)
	require.NoError(t, err)

	assert.Equal(t, full.Unassigned, inc.Unassigned)
	assert.Equal(t, full.Strategy, inc.Strategy)
	require.Len(t, inc.Candidates, len(full.Candidates))
	for i := range full.Candidates {
		assert.Equal(t, full.Candidates[i].Name, inc.Candidates[i].Name)
		assert.Equal(t, full.Candidates[i].Tier, inc.Candidates[i].Tier)
		assert.InDelta(t, full.Candidates[i].Score, inc.Candidates[i].Score, 1e-9)
	}

	outcomes := map[types.ChangeOutcome]int{}
	for _, p := range inc.Proposals {
		outcomes[p.Outcome]++
	}
	assert.Equal(t, 1, outcomes[types.OutcomeNewCandidate])
	assert.Equal(t, 1, outcomes[types.OutcomeUnassigned])

	// Nothing is created until a reviewer accepts
	none, err := incSvc.GetCandidates(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunDiscovery_SkipsInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)
	putDoc(t, store, scope, "empty", "   ", 3*time.Hour)

	res, err := svc.RunDiscovery(ctx, scope, append(ids, "missing", "empty", "b1"), types.RunFull)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "missing", res.Skipped[0].DocumentID)
	assert.Equal(t, "empty", res.Skipped[1].DocumentID)
	assert.Equal(t, 3, res.Analyzed())
	assert.Len(t, res.Candidates, 1)

	evs, err := store.GetEvents(ctx, events.EventFilter{RunID: res.Run.ID, Type: events.EventTypeDocumentSkipped})
	require.NoError(t, err)
	assert.Len(t, evs, 2)
}

func TestRunDiscovery_ScopeMismatchAbandons(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)
	putDoc(t, store, "other", "foreign", "Project BEACON from another client.", 0)

	res, err := svc.RunDiscovery(ctx, scope, append(ids, "foreign"), types.RunFull)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConsistencyViolation))
	require.NotNil(t, res)

	run, err := store.GetRun(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunAbandoned, run.Status)
	assert.NotEmpty(t, run.Error)

	cands, err := svc.GetCandidates(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, cands)
	tags, err := svc.Tags().ListTagsForDocument(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestRunDiscovery_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, Options{})

	_, err := svc.RunDiscovery(ctx, scope, []string{"a"}, types.RunMode("partial"))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = svc.RunDiscovery(ctx, "", []string{"a"}, types.RunFull)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = svc.RunDiscovery(ctx, scope, []string{" ", ""}, types.RunFull)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRunDiscovery_EmbeddingFailureDegrades(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{err: errors.New("503 service unavailable")}
	svc, store := newTestService(t, nil, Options{Embedder: emb})
	ids := putBeacon(t, store)

	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)

	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, 3, res.FallbackDocs)
	assert.Contains(t, res.Degradations, "processed with fallback clustering for 3 documents")
	assert.Contains(t, res.Degradations, "embedding unavailable for 3 documents")
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "BEACON", res.Candidates[0].Name)

	evs, err := store.GetEvents(ctx, events.EventFilter{RunID: res.Run.ID, Type: events.EventTypeCollaboratorDegraded})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	data, err := evs[0].GetDegradationData()
	require.NoError(t, err)
	assert.Equal(t, "embedding", data.Collaborator)
	assert.Equal(t, []string{"b1", "b2", "x1"}, data.Documents)
}

func TestRunDiscovery_EmbeddingsUseDensity(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	svc, store := newTestService(t, nil, Options{Embedder: emb})
	ids := putBeacon(t, store)

	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	assert.Equal(t, clustering.StrategyDensity, res.Strategy)
	assert.Zero(t, res.FallbackDocs)
	assert.Empty(t, res.Degradations)
}

func TestAcceptProposal_NewCandidate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)

	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunIncremental)
	require.NoError(t, err)

	var proposal *types.Proposal
	for _, p := range res.Proposals {
		if p.Outcome == types.OutcomeNewCandidate {
			proposal = p
		}
	}
	require.NotNil(t, proposal)

	accepted, err := svc.AcceptProposal(ctx, proposal.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, accepted.Candidate)
	assert.Equal(t, types.CandidateApproved, accepted.Candidate.Status)
	assert.Equal(t, "BEACON", accepted.Candidate.Name)

	tags, err := svc.Tags().ListTagsForProject(ctx, accepted.Candidate.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	for _, tag := range tags {
		assert.Equal(t, types.ProvenanceUser, tag.Provenance)
	}

	got, err := store.GetProposal(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ResolutionAccepted, got.Resolution)
	assert.Equal(t, "alice", got.ResolvedBy)

	_, err = svc.AcceptProposal(ctx, proposal.ID, "alice")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestAcceptAndDismissLinkProposals(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	putDoc(t, store, scope, "b1", beaconDocs["b1"], 0)
	putDoc(t, store, scope, "b2", beaconDocs["b2"], time.Hour)
	first, err := svc.RunDiscovery(ctx, scope, []string{"b1", "b2"}, types.RunFull)
	require.NoError(t, err)
	id := first.Candidates[0].ID

	putDoc(t, store, scope, "b3", "BEACON-14: benchmarked the new partitioning scheme.", 2*time.Hour)
	putDoc(t, store, scope, "b4", "BEACON-15: profiled the warmup path.", 3*time.Hour)
	res, err := svc.RunDiscovery(ctx, scope, []string{"b3", "b4"}, types.RunIncremental)
	require.NoError(t, err)
	require.Len(t, res.Proposals, 2)

	accepted, err := svc.AcceptProposal(ctx, res.Proposals[0].ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, accepted.Candidate.ID)
	require.Len(t, accepted.TagChanges, 1)
	assert.Equal(t, types.ProvenanceUser, accepted.TagChanges[0].Provenance)

	require.NoError(t, svc.DismissProposal(ctx, res.Proposals[1].ID, "alice"))
	tags, err := svc.Tags().ListTagsForDocument(ctx, res.Proposals[1].DocumentID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	open, err := store.ListProposals(ctx, types.ProposalFilter{ScopeID: scope, OpenOnly: true})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestAcceptProposal_UnassignedHasNothingToAccept(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	putDoc(t, store, scope, "x1", beaconDocs["x1"], 0)

	res, err := svc.RunDiscovery(ctx, scope, []string{"x1"}, types.RunIncremental)
	require.NoError(t, err)
	require.Len(t, res.Proposals, 1)
	assert.Equal(t, types.OutcomeUnassigned, res.Proposals[0].Outcome)

	_, err = svc.AcceptProposal(ctx, res.Proposals[0].ID, "alice")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestApplyTagChange_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)
	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	id := res.Candidates[0].ID

	added, err := svc.ApplyTagChange(ctx, scope, "x1", id, types.TagAdd, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, added)
	assert.Equal(t, types.ProvenanceUser, added[0].Provenance)

	for _, doc := range []string{"b1", "b2", "x1"} {
		_, err := svc.ApplyTagChange(ctx, scope, doc, id, types.TagRemove, "alice")
		require.NoError(t, err)
	}

	tags, err := svc.Tags().ListTagsForProject(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, tags)

	// A project with no tags left is still there
	c, err := store.GetCandidate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "BEACON", c.Name)

	history, err := svc.Tags().History(ctx, "x1", id)
	require.NoError(t, err)
	assert.NotEmpty(t, history)

	// A later full run must not silently re-add what the user removed
	_, err = svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	tags, err = svc.Tags().ListTagsForProject(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, tags)

	_, err = svc.ApplyTagChange(ctx, scope, "x1", id, types.TagSupersede, "alice")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSetCandidateStatus(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)
	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	id := res.Candidates[0].ID

	c, err := svc.SetCandidateStatus(ctx, id, types.CandidateApproved, "alice")
	require.NoError(t, err)
	assert.Equal(t, types.CandidateApproved, c.Status)

	_, err = svc.SetCandidateStatus(ctx, id, types.CandidateRejected, "alice")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	approved, err := svc.GetCandidates(ctx, scope, types.CandidateApproved)
	require.NoError(t, err)
	assert.Len(t, approved, 1)
	discovered, err := svc.GetCandidates(ctx, scope, types.CandidateDiscovered)
	require.NoError(t, err)
	assert.Empty(t, discovered)
}

func TestGenerateNarrative(t *testing.T) {
	ctx := context.Background()
	narrator := &fakeNarrator{}
	svc, store := newTestService(t, nil, Options{Narrator: narrator})
	ids := putBeacon(t, store)
	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)
	id := res.Candidates[0].ID

	prose, err := svc.GenerateNarrative(ctx, id, types.SlotInvestigation)
	require.NoError(t, err)
	assert.Contains(t, prose, "BEACON investigation")
	assert.NotEmpty(t, narrator.refs)

	_, err = svc.GenerateNarrative(ctx, id, types.EvidenceSlot("summary"))
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	narrator.err = errors.New("overloaded")
	_, err = svc.GenerateNarrative(ctx, id, types.SlotOutcome)
	assert.ErrorIs(t, err, types.ErrCollaboratorUnavailable)

	c, err := store.GetCandidate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.CandidateDiscovered, c.Status)
}

func TestGenerateNarrative_Disabled(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, nil, Options{})
	ids := putBeacon(t, store)
	res, err := svc.RunDiscovery(ctx, scope, ids, types.RunFull)
	require.NoError(t, err)

	_, err = svc.GenerateNarrative(ctx, res.Candidates[0].ID, types.SlotOutcome)
	assert.ErrorIs(t, err, ErrNarratorDisabled)
	assert.ErrorIs(t, err, types.ErrCollaboratorUnavailable)
}
