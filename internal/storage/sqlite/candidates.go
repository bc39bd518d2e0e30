package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/types"
)

const candidateColumns = `id, scope_id, name, name_key, status, tier, score, cohesion,
	signals, evidence, profile, revived_from, created_by_run_id, created_at, updated_at`

// CreateCandidate inserts a new candidate, assigning an ID if it has none
func (s *SQLiteStorage) CreateCandidate(ctx context.Context, c *types.ProjectCandidate, actor string) error {
	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		return insertCandidate(ctx, conn, c, actor)
	})
}

// insertCandidate writes the candidate row and its creation event
func insertCandidate(ctx context.Context, q querier, c *types.ProjectCandidate, actor string) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = types.CandidateDiscovered
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	signals, evidence, profile, err := marshalCandidateParts(c)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO candidates (`+candidateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.ScopeID, c.Name, c.Profile.NameKey, string(c.Status), string(c.Tier), c.Score, c.Cohesion,
		signals, evidence, profile, c.RevivedFrom, c.CreatedByRunID,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert candidate %s: %w", c.Name, err)
	}

	eventType := events.EventTypeCandidateCreated
	msg := fmt.Sprintf("Candidate created: %s (%s, score %.2f)", c.Name, c.Tier, c.Score)
	if c.RevivedFrom != "" {
		eventType = events.EventTypeCandidateRevived
		msg = fmt.Sprintf("Candidate revived: %s (previously rejected as %s)", c.Name, c.RevivedFrom)
	}
	ev := events.New(eventType, c.ScopeID, events.SeverityInfo, msg)
	ev.ProjectID = c.ID
	ev.RunID = c.CreatedByRunID
	ev.Actor = actor
	return insertEvent(ctx, q, ev)
}

// updateDiscoveredCandidate rescores a candidate that is still awaiting
// review. Reviewed candidates are left untouched; reports whether the row
// was updated.
func updateDiscoveredCandidate(ctx context.Context, q querier, c *types.ProjectCandidate, runID string) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}
	signals, evidence, profile, err := marshalCandidateParts(c)
	if err != nil {
		return false, err
	}

	c.UpdatedAt = time.Now()
	res, err := q.ExecContext(ctx, `
		UPDATE candidates
		SET name = ?, name_key = ?, tier = ?, score = ?, cohesion = ?,
			signals = ?, evidence = ?, profile = ?, updated_at = ?
		WHERE id = ? AND status = 'discovered'
	`,
		c.Name, c.Profile.NameKey, string(c.Tier), c.Score, c.Cohesion,
		signals, evidence, profile, formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update candidate %s: %w", c.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}

	ev := events.New(events.EventTypeCandidateUpdated, c.ScopeID, events.SeverityInfo,
		fmt.Sprintf("Candidate rescored: %s (%s, score %.2f)", c.Name, c.Tier, c.Score))
	ev.ProjectID = c.ID
	ev.RunID = runID
	return true, insertEvent(ctx, q, ev)
}

func marshalCandidateParts(c *types.ProjectCandidate) (signals, evidence, profile string, err error) {
	if signals, err = marshalJSON(c.Signals); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal signal counts: %w", err)
	}
	if evidence, err = marshalJSON(c.Evidence); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal narrative evidence: %w", err)
	}
	if profile, err = marshalJSON(c.Profile); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal profile: %w", err)
	}
	return signals, evidence, profile, nil
}

// GetCandidate retrieves a candidate by ID
func (s *SQLiteStorage) GetCandidate(ctx context.Context, id string) (*types.ProjectCandidate, error) {
	return getCandidate(ctx, s.db, id)
}

func getCandidate(ctx context.Context, q querier, id string) (*types.ProjectCandidate, error) {
	row := q.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("candidate %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", id, err)
	}
	return c, nil
}

// ListCandidates returns candidates matching the filter, oldest first
func (s *SQLiteStorage) ListCandidates(ctx context.Context, filter types.CandidateFilter) ([]*types.ProjectCandidate, error) {
	var where []string
	var args []any

	if filter.ScopeID != "" {
		where = append(where, "scope_id = ?")
		args = append(args, filter.ScopeID)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if filter.NameKey != "" {
		where = append(where, "name_key = ?")
		args = append(args, filter.NameKey)
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var result []*types.ProjectCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateCandidateStatus moves a candidate from one status to another. The
// update only applies if the candidate is still in status from, so a
// concurrent review can't be silently overwritten.
func (s *SQLiteStorage) UpdateCandidateStatus(ctx context.Context, id string, from, to types.CandidateStatus, actor string) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("candidate %s: %s → %s: %w", id, from, to, types.ErrInvalidTransition)
	}

	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		return updateCandidateStatus(ctx, conn, id, from, to)
	})
}

func updateCandidateStatus(ctx context.Context, q querier, id string, from, to types.CandidateStatus) error {
	var current string
	err := q.QueryRowContext(ctx, `SELECT status FROM candidates WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("candidate %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read candidate %s: %w", id, err)
	}
	if types.CandidateStatus(current) != from {
		return fmt.Errorf("candidate %s is %s, not %s: %w", id, current, from, types.ErrInvalidTransition)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE candidates SET status = ?, updated_at = ? WHERE id = ?
	`, string(to), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to update candidate %s: %w", id, err)
	}
	return nil
}

// transitionCandidate moves c to status to and records the transition
// event in the same transaction
func transitionCandidate(ctx context.Context, q querier, c *types.ProjectCandidate, to types.CandidateStatus, trigger, actor string) error {
	from := c.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("candidate %s is %s and cannot become %s: %w", c.ID, from, to, types.ErrInvalidTransition)
	}
	if err := updateCandidateStatus(ctx, q, c.ID, from, to); err != nil {
		return err
	}
	c.Status = to

	ev, err := events.NewStatusTransitionEvent(c.ScopeID, c.ID, actor, events.StatusTransitionData{
		From:    string(from),
		To:      string(to),
		Trigger: trigger,
	})
	if err != nil {
		return fmt.Errorf("failed to build status event for %s: %w", c.ID, err)
	}
	return insertEvent(ctx, q, ev)
}

func scanCandidate(row rowScanner) (*types.ProjectCandidate, error) {
	var c types.ProjectCandidate
	var nameKey, status, tier, signals, evidence, profile, createdAt, updatedAt string
	if err := row.Scan(
		&c.ID, &c.ScopeID, &c.Name, &nameKey, &status, &tier, &c.Score, &c.Cohesion,
		&signals, &evidence, &profile, &c.RevivedFrom, &c.CreatedByRunID, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = types.CandidateStatus(status)
	c.Tier = types.ConfidenceTier(tier)

	if err := json.Unmarshal([]byte(signals), &c.Signals); err != nil {
		return nil, fmt.Errorf("failed to parse signal counts of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(evidence), &c.Evidence); err != nil {
		return nil, fmt.Errorf("failed to parse narrative evidence of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(profile), &c.Profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile of %s: %w", c.ID, err)
	}
	c.Profile.NameKey = nameKey

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
