package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/steveyegge/rdscout/internal/types"
)

const documentColumns = `id, scope_id, title, text, created_at, signal_profile, entities`

// PutDocument inserts or replaces a document. Replacing the text of an
// annotated document clears its annotations.
func (s *SQLiteStorage) PutDocument(ctx context.Context, doc *types.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	var existingScope string
	err := s.db.QueryRowContext(ctx, `SELECT scope_id FROM documents WHERE id = ?`, doc.ID).Scan(&existingScope)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to check document %s: %w", doc.ID, err)
	case existingScope != doc.ScopeID:
		return &types.ConsistencyError{
			ScopeID:    doc.ScopeID,
			DocumentID: doc.ID,
			Reason:     fmt.Sprintf("document already belongs to scope %s", existingScope),
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, scope_id, title, text, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			signal_profile = CASE WHEN documents.text = excluded.text THEN documents.signal_profile END,
			entities = CASE WHEN documents.text = excluded.text THEN documents.entities END,
			annotated_at = CASE WHEN documents.text = excluded.text THEN documents.annotated_at END,
			text = excluded.text
	`, doc.ID, doc.ScopeID, doc.Title, doc.Text, formatTime(doc.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument retrieves a document by ID
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return doc, nil
}

// GetDocuments retrieves the documents that exist among ids, keyed by ID.
// Missing IDs are simply absent from the result.
func (s *SQLiteStorage) GetDocuments(ctx context.Context, ids []string) (map[string]*types.Document, error) {
	result := make(map[string]*types.Document, len(ids))
	// Stay well under SQLite's bound-parameter limit
	const chunk = 500
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]

		rows, err := s.db.QueryContext(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id IN (`+placeholders(len(part))+`)`,
			stringArgs(part)...)
		if err != nil {
			return nil, fmt.Errorf("failed to get documents: %w", err)
		}
		docs, err := scanDocuments(rows)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			result[d.ID] = d
		}
	}
	return result, nil
}

// ListDocuments returns documents in a scope, oldest first
func (s *SQLiteStorage) ListDocuments(ctx context.Context, scopeID string, limit int) ([]*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE scope_id = ? ORDER BY created_at, id`
	args := []any{scopeID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return scanDocuments(rows)
}

// AnnotateDocument stores the signal profile and extracted entities computed
// for a document
func (s *SQLiteStorage) AnnotateDocument(ctx context.Context, id string, profile *types.SignalProfile, entities *types.EntitySet) error {
	var profileJSON, entitiesJSON sql.NullString
	if profile != nil {
		data, err := marshalJSON(profile)
		if err != nil {
			return fmt.Errorf("failed to marshal signal profile: %w", err)
		}
		profileJSON = sql.NullString{String: data, Valid: true}
	}
	if entities != nil {
		data, err := marshalJSON(entities)
		if err != nil {
			return fmt.Errorf("failed to marshal entities: %w", err)
		}
		entitiesJSON = sql.NullString{String: data, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET signal_profile = ?, entities = ?, annotated_at = ?
		WHERE id = ?
	`, profileJSON, entitiesJSON, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to annotate document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*types.Document, error) {
	var doc types.Document
	var createdAt string
	var profileJSON, entitiesJSON sql.NullString
	if err := row.Scan(&doc.ID, &doc.ScopeID, &doc.Title, &doc.Text, &createdAt, &profileJSON, &entitiesJSON); err != nil {
		return nil, err
	}

	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if profileJSON.Valid {
		doc.SignalProfile = &types.SignalProfile{}
		if err := json.Unmarshal([]byte(profileJSON.String), doc.SignalProfile); err != nil {
			return nil, fmt.Errorf("failed to parse signal profile of %s: %w", doc.ID, err)
		}
	}
	if entitiesJSON.Valid {
		doc.Entities = &types.EntitySet{}
		if err := json.Unmarshal([]byte(entitiesJSON.String), doc.Entities); err != nil {
			return nil, fmt.Errorf("failed to parse entities of %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}

func scanDocuments(rows *sql.Rows) ([]*types.Document, error) {
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
