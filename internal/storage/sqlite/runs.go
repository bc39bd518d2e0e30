package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/types"
)

const runColumns = `id, scope_id, number, mode, status, document_ids, started_at, completed_at, error`

// CreateRun records a new running discovery run, assigning its ID and the
// next sequential number in its scope
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *types.DiscoveryRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.Status = types.RunRunning
	run.CompletedAt = nil
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	docIDs, err := marshalJSON(nonNilStrings(run.DocumentIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal document ids: %w", err)
	}

	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		// IMMEDIATE serializes this across processes
		err := conn.QueryRowContext(ctx, `
			INSERT INTO run_counters (scope_id, last_number) VALUES (?, 1)
			ON CONFLICT(scope_id) DO UPDATE SET last_number = last_number + 1
			RETURNING last_number
		`, run.ScopeID).Scan(&run.Number)
		if err != nil {
			return fmt.Errorf("failed to allocate run number for scope %s: %w", run.ScopeID, err)
		}

		_, err = conn.ExecContext(ctx, `
			INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, NULL, '')
		`, run.ID, run.ScopeID, run.Number, string(run.Mode), string(run.Status), docIDs, formatTime(run.StartedAt))
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		ev := events.New(events.EventTypeRunStarted, run.ScopeID, events.SeverityInfo,
			fmt.Sprintf("Discovery run #%d started (%s, %d documents)", run.Number, run.Mode, len(run.DocumentIDs)))
		ev.RunID = run.ID
		return insertEvent(ctx, conn, ev)
	})
}

// CommitRun makes everything a run produced visible in one transaction and
// marks the run completed. Either all of the batch is written or none of it.
func (s *SQLiteStorage) CommitRun(ctx context.Context, runID string, batch *types.RunBatch, extra []*events.Event) ([]types.TagChange, error) {
	if batch == nil {
		batch = &types.RunBatch{}
	}

	var changes []types.TagChange
	err := s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		run, err := getRun(ctx, conn, runID)
		if err != nil {
			return err
		}
		if run.Status != types.RunRunning {
			return fmt.Errorf("run %s is %s: %w", runID, run.Status, types.ErrInvalidTransition)
		}

		for _, c := range batch.NewCandidates {
			if c.ScopeID != run.ScopeID {
				return &types.ConsistencyError{ScopeID: run.ScopeID, ProjectID: c.ID,
					Reason: fmt.Sprintf("candidate belongs to scope %s", c.ScopeID)}
			}
			c.CreatedByRunID = runID
			if err := insertCandidate(ctx, conn, c, events.ActorSystem); err != nil {
				return err
			}
		}

		for _, c := range batch.UpdatedCandidates {
			if c.ScopeID != run.ScopeID {
				return &types.ConsistencyError{ScopeID: run.ScopeID, ProjectID: c.ID,
					Reason: fmt.Sprintf("candidate belongs to scope %s", c.ScopeID)}
			}
			if _, err := updateDiscoveredCandidate(ctx, conn, c, runID); err != nil {
				return err
			}
		}

		for _, tw := range batch.Tags {
			applied, err := applyTags(ctx, conn, types.TagRequest{
				ScopeID:     run.ScopeID,
				ProjectID:   tw.ProjectID,
				DocumentIDs: []string{tw.DocumentID},
				Provenance:  types.ProvenanceSystem,
				Confidence:  tw.Confidence,
				RunID:       runID,
				Actor:       events.ActorSystem,
			})
			if err != nil {
				return err
			}
			changes = append(changes, applied...)
		}

		for _, p := range batch.Proposals {
			p.RunID = runID
			p.ScopeID = run.ScopeID
			if err := insertProposal(ctx, conn, p); err != nil {
				return err
			}
		}

		for _, ev := range extra {
			if ev.RunID == "" {
				ev.RunID = runID
			}
			if err := insertEvent(ctx, conn, ev); err != nil {
				return err
			}
		}

		_, err = conn.ExecContext(ctx, `
			UPDATE runs SET status = 'completed', completed_at = ? WHERE id = ?
		`, formatTime(time.Now()), runID)
		if err != nil {
			return fmt.Errorf("failed to complete run %s: %w", runID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// AbandonRun marks a running run as abandoned. Nothing it produced was ever
// committed, so there is nothing to undo.
func (s *SQLiteStorage) AbandonRun(ctx context.Context, runID, reason string) error {
	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		run, err := getRun(ctx, conn, runID)
		if err != nil {
			return err
		}
		if run.Status != types.RunRunning {
			return fmt.Errorf("run %s is %s: %w", runID, run.Status, types.ErrInvalidTransition)
		}

		if _, err := conn.ExecContext(ctx, `
			UPDATE runs SET status = 'abandoned', completed_at = ?, error = ? WHERE id = ?
		`, formatTime(time.Now()), reason, runID); err != nil {
			return fmt.Errorf("failed to abandon run %s: %w", runID, err)
		}

		ev := events.New(events.EventTypeRunAbandoned, run.ScopeID, events.SeverityError,
			fmt.Sprintf("Discovery run #%d abandoned: %s", run.Number, reason))
		ev.RunID = runID
		return insertEvent(ctx, conn, ev)
	})
}

// GetRun retrieves a run by ID
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*types.DiscoveryRun, error) {
	return getRun(ctx, s.db, id)
}

func getRun(ctx context.Context, q querier, id string) (*types.DiscoveryRun, error) {
	row := q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the runs of a scope, newest first
func (s *SQLiteStorage) ListRuns(ctx context.Context, scopeID string, limit int) ([]*types.DiscoveryRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE scope_id = ? ORDER BY number DESC`
	args := []any{scopeID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []*types.DiscoveryRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

func scanRun(row rowScanner) (*types.DiscoveryRun, error) {
	var run types.DiscoveryRun
	var mode, status, docIDs, startedAt string
	var completedAt sql.NullString
	if err := row.Scan(&run.ID, &run.ScopeID, &run.Number, &mode, &status, &docIDs,
		&startedAt, &completedAt, &run.Error); err != nil {
		return nil, err
	}
	run.Mode = types.RunMode(mode)
	run.Status = types.RunStatus(status)

	if err := json.Unmarshal([]byte(docIDs), &run.DocumentIDs); err != nil {
		return nil, fmt.Errorf("failed to parse document ids of run %s: %w", run.ID, err)
	}
	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if run.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
