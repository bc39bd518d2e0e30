package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/types"
)

const tagColumns = `id, document_id, project_id, scope_id, provenance, confidence, run_id,
	created_at, superseded_by, removed_at, removed_by`

// UpsertTags tags every document in the request to the project. A scope
// mismatch on the project or any document rejects the whole call.
func (s *SQLiteStorage) UpsertTags(ctx context.Context, req types.TagRequest) ([]types.TagChange, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tag request: %w", err)
	}

	var changes []types.TagChange
	err := s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		var err error
		changes, err = applyTags(ctx, conn, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// applyTags validates scopes for the whole request before writing anything
func applyTags(ctx context.Context, q querier, req types.TagRequest) ([]types.TagChange, error) {
	status, err := checkProjectScope(ctx, q, req.ScopeID, req.ProjectID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.DocumentIDs))
	var docIDs []string
	for _, id := range req.DocumentIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if err := checkDocumentScope(ctx, q, req.ScopeID, id, req.ProjectID); err != nil {
			return nil, err
		}
		docIDs = append(docIDs, id)
	}

	changes := make([]types.TagChange, 0, len(docIDs))
	for _, docID := range docIDs {
		change, err := applyTag(ctx, q, req, docID, status)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes, nil
}

func checkProjectScope(ctx context.Context, q querier, scopeID, projectID string) (types.CandidateStatus, error) {
	var projectScope, status string
	err := q.QueryRowContext(ctx, `SELECT scope_id, status FROM candidates WHERE id = ?`, projectID).
		Scan(&projectScope, &status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("candidate %s: %w", projectID, types.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read candidate %s: %w", projectID, err)
	}
	if projectScope != scopeID {
		return "", &types.ConsistencyError{
			ScopeID:   scopeID,
			ProjectID: projectID,
			Reason:    fmt.Sprintf("project belongs to scope %s", projectScope),
		}
	}
	return types.CandidateStatus(status), nil
}

func checkDocumentScope(ctx context.Context, q querier, scopeID, documentID, projectID string) error {
	var docScope string
	err := q.QueryRowContext(ctx, `SELECT scope_id FROM documents WHERE id = ?`, documentID).Scan(&docScope)
	if err == sql.ErrNoRows {
		return fmt.Errorf("document %s: %w", documentID, types.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", documentID, err)
	}
	if docScope != scopeID {
		return &types.ConsistencyError{
			ScopeID:    scopeID,
			DocumentID: documentID,
			ProjectID:  projectID,
			Reason:     fmt.Sprintf("document belongs to scope %s", docScope),
		}
	}
	return nil
}

// applyTag writes one (document, project) tag. Returns nil when an identical
// active tag already exists.
func applyTag(ctx context.Context, q querier, req types.TagRequest, docID string, projectStatus types.CandidateStatus) (*types.TagChange, error) {
	change := &types.TagChange{
		DocumentID: docID,
		ProjectID:  req.ProjectID,
		Provenance: req.Provenance,
		Confidence: req.Confidence,
	}

	var activeID int64
	var activeConfidence float64
	err := q.QueryRowContext(ctx, `
		SELECT id, confidence FROM tags
		WHERE document_id = ? AND project_id = ? AND provenance = ?
		  AND superseded_at IS NULL AND removed_at IS NULL
	`, docID, req.ProjectID, string(req.Provenance)).Scan(&activeID, &activeConfidence)
	hasActive := err == nil
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read active tag: %w", err)
	}

	if hasActive && activeConfidence == req.Confidence {
		return nil, nil
	}

	if req.Provenance == types.ProvenanceSystem && !hasActive {
		suppress := projectStatus == types.CandidateRejected
		reason := "candidate was rejected"
		if !suppress {
			var removed int
			if err := q.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM tags
				WHERE document_id = ? AND project_id = ? AND removed_at IS NOT NULL
			`, docID, req.ProjectID).Scan(&removed); err != nil {
				return nil, fmt.Errorf("failed to read tag history: %w", err)
			}
			suppress = removed > 0
			reason = "tag was removed by a user"
		}
		if suppress {
			change.Action = types.TagSuppressed
			if err := recordTagEvent(ctx, q, req, docID, events.EventTypeTagSuppressed,
				fmt.Sprintf("System tag %s → %s not applied: %s", docID, req.ProjectID, reason)); err != nil {
				return nil, err
			}
			return change, nil
		}
	}

	now := formatTime(time.Now())
	if hasActive {
		// Retire the old row first so the partial unique index admits the new one
		if _, err := q.ExecContext(ctx, `UPDATE tags SET superseded_at = ? WHERE id = ?`, now, activeID); err != nil {
			return nil, fmt.Errorf("failed to supersede tag %d: %w", activeID, err)
		}
	}

	var newID int64
	err = q.QueryRowContext(ctx, `
		INSERT INTO tags (document_id, project_id, scope_id, provenance, confidence, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, docID, req.ProjectID, req.ScopeID, string(req.Provenance), req.Confidence, req.RunID, now).Scan(&newID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tag %s → %s: %w", docID, req.ProjectID, err)
	}

	change.Applied = true
	if hasActive {
		if _, err := q.ExecContext(ctx, `UPDATE tags SET superseded_by = ? WHERE id = ?`, newID, activeID); err != nil {
			return nil, fmt.Errorf("failed to link superseded tag %d: %w", activeID, err)
		}
		change.Action = types.TagSupersede
		return change, recordTagEvent(ctx, q, req, docID, events.EventTypeTagSuperseded,
			fmt.Sprintf("Tag %s → %s superseded (confidence %.2f → %.2f)", docID, req.ProjectID, activeConfidence, req.Confidence))
	}

	change.Action = types.TagAdd
	return change, recordTagEvent(ctx, q, req, docID, events.EventTypeTagAdded,
		fmt.Sprintf("Tagged %s → %s (%s, confidence %.2f)", docID, req.ProjectID, req.Provenance, req.Confidence))
}

func recordTagEvent(ctx context.Context, q querier, req types.TagRequest, docID string, eventType events.EventType, msg string) error {
	ev := events.New(eventType, req.ScopeID, events.SeverityInfo, msg)
	ev.RunID = req.RunID
	ev.ProjectID = req.ProjectID
	ev.DocumentID = docID
	if req.Actor != "" {
		ev.Actor = req.Actor
	}
	ev.Data = map[string]interface{}{
		"provenance": string(req.Provenance),
		"confidence": req.Confidence,
	}
	return insertEvent(ctx, q, ev)
}

// RemoveTag removes every active tag between the document and the project.
// The candidate itself is never touched, even when this was its last tag.
func (s *SQLiteStorage) RemoveTag(ctx context.Context, scopeID, documentID, projectID, actor string) error {
	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT id, scope_id FROM tags
			WHERE document_id = ? AND project_id = ?
			  AND superseded_at IS NULL AND removed_at IS NULL
		`, documentID, projectID)
		if err != nil {
			return fmt.Errorf("failed to read tags: %w", err)
		}
		var ids []int64
		for rows.Next() {
			var id int64
			var tagScope string
			if err := rows.Scan(&id, &tagScope); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan tag: %w", err)
			}
			if tagScope != scopeID {
				rows.Close()
				return &types.ConsistencyError{
					ScopeID:    scopeID,
					DocumentID: documentID,
					ProjectID:  projectID,
					Reason:     fmt.Sprintf("tag belongs to scope %s", tagScope),
				}
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no active tag %s → %s: %w", documentID, projectID, types.ErrNotFound)
		}

		now := formatTime(time.Now())
		for _, id := range ids {
			if _, err := conn.ExecContext(ctx, `
				UPDATE tags SET removed_at = ?, removed_by = ? WHERE id = ?
			`, now, actor, id); err != nil {
				return fmt.Errorf("failed to remove tag %d: %w", id, err)
			}
		}

		ev := events.New(events.EventTypeTagRemoved, scopeID, events.SeverityInfo,
			fmt.Sprintf("Tag %s → %s removed", documentID, projectID))
		ev.DocumentID = documentID
		ev.ProjectID = projectID
		ev.Actor = actor
		return insertEvent(ctx, conn, ev)
	})
}

// ListTagsForDocument returns the active tags of a document
func (s *SQLiteStorage) ListTagsForDocument(ctx context.Context, documentID string) ([]*types.DocumentProjectTag, error) {
	return s.queryTags(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE document_id = ? AND superseded_at IS NULL AND removed_at IS NULL
		ORDER BY project_id, provenance
	`, documentID)
}

// ListTagsForProject returns the active tags of a project
func (s *SQLiteStorage) ListTagsForProject(ctx context.Context, projectID string) ([]*types.DocumentProjectTag, error) {
	return s.queryTags(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE project_id = ? AND superseded_at IS NULL AND removed_at IS NULL
		ORDER BY document_id, provenance
	`, projectID)
}

// TagHistory returns every tag row ever written for the pair, oldest first
func (s *SQLiteStorage) TagHistory(ctx context.Context, documentID, projectID string) ([]*types.DocumentProjectTag, error) {
	return s.queryTags(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE document_id = ? AND project_id = ?
		ORDER BY id
	`, documentID, projectID)
}

func (s *SQLiteStorage) queryTags(ctx context.Context, query string, args ...any) ([]*types.DocumentProjectTag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var result []*types.DocumentProjectTag
	for rows.Next() {
		var tag types.DocumentProjectTag
		var provenance, createdAt string
		var supersededBy sql.NullInt64
		var removedAt sql.NullString
		if err := rows.Scan(&tag.ID, &tag.DocumentID, &tag.ProjectID, &tag.ScopeID, &provenance,
			&tag.Confidence, &tag.RunID, &createdAt, &supersededBy, &removedAt, &tag.RemovedBy); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tag.Provenance = types.Provenance(provenance)
		if tag.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if supersededBy.Valid {
			id := supersededBy.Int64
			tag.SupersededBy = &id
		}
		if tag.RemovedAt, err = parseNullTime(removedAt); err != nil {
			return nil, err
		}
		result = append(result, &tag)
	}
	return result, rows.Err()
}
