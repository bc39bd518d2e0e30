package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/steveyegge/rdscout/internal/events"
)

// StoreEvent stores an audit event
func (s *SQLiteStorage) StoreEvent(ctx context.Context, event *events.Event) error {
	return insertEvent(ctx, s.db, event)
}

func insertEvent(ctx context.Context, q querier, event *events.Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Actor == "" {
		event.Actor = events.ActorSystem
	}
	if event.Severity == "" {
		event.Severity = events.SeverityInfo
	}

	data := "{}"
	if len(event.Data) > 0 {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		data = string(encoded)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO events (id, type, timestamp, scope_id, run_id, project_id, document_id,
			actor, severity, message, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, string(event.Type), formatTime(event.Timestamp), event.ScopeID, event.RunID,
		event.ProjectID, event.DocumentID, event.Actor, string(event.Severity), event.Message, data,
	)
	if err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}
	return nil
}

// GetEvents retrieves events matching the filter, most recent first
func (s *SQLiteStorage) GetEvents(ctx context.Context, filter events.EventFilter) ([]*events.Event, error) {
	query := `
		SELECT id, type, timestamp, scope_id, run_id, project_id, document_id,
			actor, severity, message, data
		FROM events
		WHERE 1=1
	`
	var args []any

	if filter.ScopeID != "" {
		query += " AND scope_id = ?"
		args = append(args, filter.ScopeID)
	}
	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, filter.DocumentID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, string(filter.Type))
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(filter.Severity))
	}
	if !filter.AfterTime.IsZero() {
		query += " AND timestamp > ?"
		args = append(args, formatTime(filter.AfterTime))
	}

	// rowid breaks ties between events written in the same transaction
	query += " ORDER BY timestamp DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []*events.Event
	for rows.Next() {
		var ev events.Event
		var eventType, timestamp, severity, data string
		if err := rows.Scan(&ev.ID, &eventType, &timestamp, &ev.ScopeID, &ev.RunID, &ev.ProjectID,
			&ev.DocumentID, &ev.Actor, &severity, &ev.Message, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Type = events.EventType(eventType)
		ev.Severity = events.EventSeverity(severity)
		if ev.Timestamp, err = parseTime(timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
			return nil, fmt.Errorf("failed to parse event data: %w", err)
		}
		result = append(result, &ev)
	}
	return result, rows.Err()
}
