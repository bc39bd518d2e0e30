package sqlite

import "github.com/steveyegge/rdscout/internal/storage/migrations"

// Timestamps are stored as RFC3339Nano TEXT in UTC so ordering by the column
// matches chronological order.

const baseSchema = `
-- Documents (text owned by ingestion; discovery writes the annotation columns)
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    scope_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    signal_profile TEXT,
    entities TEXT,
    annotated_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_documents_scope ON documents(scope_id, created_at);

-- Project candidates
CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    scope_id TEXT NOT NULL,
    name TEXT NOT NULL CHECK(length(name) <= 200),
    name_key TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'discovered'
        CHECK(status IN ('discovered', 'approved', 'rejected')),
    tier TEXT NOT NULL DEFAULT 'low' CHECK(tier IN ('high', 'medium', 'low')),
    score REAL NOT NULL DEFAULT 0 CHECK(score >= 0 AND score <= 1),
    cohesion REAL NOT NULL DEFAULT 0 CHECK(cohesion >= 0 AND cohesion <= 1),
    signals TEXT NOT NULL DEFAULT '{}',
    evidence TEXT NOT NULL DEFAULT '{}',
    profile TEXT NOT NULL DEFAULT '{}',
    revived_from TEXT NOT NULL DEFAULT '',
    created_by_run_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_scope_status ON candidates(scope_id, status);
CREATE INDEX IF NOT EXISTS idx_candidates_name_key ON candidates(scope_id, name_key);

-- Document-project tags: append-then-supersede history
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id TEXT NOT NULL,
    project_id TEXT NOT NULL,
    scope_id TEXT NOT NULL,
    provenance TEXT NOT NULL CHECK(provenance IN ('system', 'user')),
    confidence REAL NOT NULL CHECK(confidence >= 0 AND confidence <= 1),
    run_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    superseded_at TEXT,
    superseded_by INTEGER,
    removed_at TEXT,
    removed_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (document_id) REFERENCES documents(id),
    FOREIGN KEY (project_id) REFERENCES candidates(id),
    FOREIGN KEY (superseded_by) REFERENCES tags(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_active
    ON tags(document_id, project_id, provenance)
    WHERE superseded_at IS NULL AND removed_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_tags_project ON tags(project_id);
CREATE INDEX IF NOT EXISTS idx_tags_run ON tags(run_id);

-- Audit events
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    scope_id TEXT NOT NULL DEFAULT '',
    run_id TEXT NOT NULL DEFAULT '',
    project_id TEXT NOT NULL DEFAULT '',
    document_id TEXT NOT NULL DEFAULT '',
    actor TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL,
    data TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_events_scope_time ON events(scope_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_project ON events(project_id);
`

const runsSchema = `
-- Discovery runs, numbered sequentially per scope
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    scope_id TEXT NOT NULL,
    number INTEGER NOT NULL,
    mode TEXT NOT NULL CHECK(mode IN ('full', 'incremental')),
    status TEXT NOT NULL DEFAULT 'running'
        CHECK(status IN ('running', 'completed', 'abandoned')),
    document_ids TEXT NOT NULL DEFAULT '[]',
    started_at TEXT NOT NULL,
    completed_at TEXT,
    error TEXT NOT NULL DEFAULT '',
    UNIQUE (scope_id, number)
);

CREATE TABLE IF NOT EXISTS run_counters (
    scope_id TEXT PRIMARY KEY,
    last_number INTEGER NOT NULL DEFAULT 0
);

-- Change-detection proposals awaiting confirmation
CREATE TABLE IF NOT EXISTS proposals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    scope_id TEXT NOT NULL,
    document_id TEXT NOT NULL,
    outcome TEXT NOT NULL,
    candidate_id TEXT NOT NULL DEFAULT '',
    similarity REAL NOT NULL DEFAULT 0,
    reason TEXT NOT NULL DEFAULT '',
    candidate TEXT,
    members TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    resolution TEXT NOT NULL DEFAULT '',
    resolved_at TEXT,
    resolved_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_proposals_run ON proposals(run_id);
CREATE INDEX IF NOT EXISTS idx_proposals_open ON proposals(scope_id, resolved_at);
`

// schemaMigrations is the ordered schema history of a discovery database
var schemaMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "documents, candidates, tags and events",
		Up:          baseSchema,
		Down: `
			DROP TABLE IF EXISTS tags;
			DROP TABLE IF EXISTS events;
			DROP TABLE IF EXISTS candidates;
			DROP TABLE IF EXISTS documents;
		`,
	},
	{
		Version:     2,
		Description: "discovery runs, run counters and proposals",
		Up:          runsSchema,
		Down: `
			DROP TABLE IF EXISTS proposals;
			DROP TABLE IF EXISTS run_counters;
			DROP TABLE IF EXISTS runs;
		`,
	},
}
