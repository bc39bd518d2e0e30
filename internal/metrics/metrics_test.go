package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/steveyegge/rdscout/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTagChanges(t *testing.T) {
	before := testutil.ToFloat64(tagChanges.WithLabelValues("suppressed", "system"))

	RecordTagChanges([]types.TagChange{
		{Action: types.TagSuppressed, Provenance: types.ProvenanceSystem},
		{Action: types.TagSuppressed, Provenance: types.ProvenanceSystem},
		{Action: types.TagAdd, Provenance: types.ProvenanceUser},
	})

	assert.Equal(t, before+2, testutil.ToFloat64(tagChanges.WithLabelValues("suppressed", "system")))
}

func TestRecordRunAndDocuments(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues("incremental", "completed"))
	RecordRun(types.RunIncremental, types.RunCompleted, 250*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues("incremental", "completed")))

	skipped := testutil.ToFloat64(documentsTotal.WithLabelValues("skipped"))
	RecordDocuments(5, 2)
	assert.Equal(t, skipped+2, testutil.ToFloat64(documentsTotal.WithLabelValues("skipped")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordFallback(3)
	RecordOutcome(types.OutcomeNarrativeImpact)
	RecordCollaboratorFailure("embedding")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"rdscout_fallback_clustering_documents_total",
		"rdscout_change_outcomes_total",
		"rdscout_collaborator_failures_total",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
