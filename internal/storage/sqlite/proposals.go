package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/steveyegge/rdscout/internal/events"
	"github.com/steveyegge/rdscout/internal/types"
)

const proposalColumns = `id, run_id, scope_id, document_id, outcome, candidate_id, similarity, reason,
	candidate, members, created_at, resolution, resolved_at, resolved_by`

func insertProposal(ctx context.Context, q querier, p *types.Proposal) error {
	if !p.Outcome.IsTerminal() {
		return fmt.Errorf("proposal for %s has unclassified outcome %q", p.DocumentID, p.Outcome)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	var candidate sql.NullString
	if p.Candidate != nil {
		data, err := marshalJSON(p.Candidate)
		if err != nil {
			return fmt.Errorf("failed to marshal proposed candidate: %w", err)
		}
		candidate = sql.NullString{String: data, Valid: true}
	}
	members, err := marshalJSON(nonNilStrings(p.Members))
	if err != nil {
		return fmt.Errorf("failed to marshal proposal members: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		INSERT INTO proposals (run_id, scope_id, document_id, outcome, candidate_id, similarity, reason,
			candidate, members, created_at, resolution, resolved_at, resolved_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		p.RunID, p.ScopeID, p.DocumentID, string(p.Outcome), p.CandidateID, p.Similarity, p.Reason,
		candidate, members, formatTime(p.CreatedAt), string(p.Resolution), nullTime(p.ResolvedAt), p.ResolvedBy,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert proposal for %s: %w", p.DocumentID, err)
	}

	if p.Outcome == types.OutcomeNarrativeImpact {
		ev := events.New(events.EventTypeNarrativeImpact, p.ScopeID, events.SeverityWarning,
			fmt.Sprintf("Document %s may contradict the narrative of %s: %s", p.DocumentID, p.CandidateID, p.Reason))
		ev.RunID = p.RunID
		ev.DocumentID = p.DocumentID
		ev.ProjectID = p.CandidateID
		return insertEvent(ctx, q, ev)
	}
	return nil
}

// GetProposal retrieves a proposal by ID
func (s *SQLiteStorage) GetProposal(ctx context.Context, id int64) (*types.Proposal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal %d: %w", id, err)
	}
	return p, nil
}

// ListProposals returns proposals matching the filter in creation order
func (s *SQLiteStorage) ListProposals(ctx context.Context, filter types.ProposalFilter) ([]*types.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE 1=1`
	var args []any

	if filter.ScopeID != "" {
		query += " AND scope_id = ?"
		args = append(args, filter.ScopeID)
	}
	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.OpenOnly {
		query += " AND resolved_at IS NULL"
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var result []*types.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ResolveProposal records a reviewer's decision on an open proposal
func (s *SQLiteStorage) ResolveProposal(ctx context.Context, id int64, resolution types.ProposalResolution, actor string) error {
	return s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		p, err := getOpenProposal(ctx, conn, id)
		if err != nil {
			return err
		}
		return resolveProposal(ctx, conn, p, resolution, actor)
	})
}

// AcceptProposal applies an open proposal as user decisions and resolves it
// in one transaction. A link proposal tags its document to the linked
// candidate. A new-candidate proposal inserts the proposed candidate,
// approves it under trigger and tags its members. When any step fails
// nothing is written and the proposal stays open.
func (s *SQLiteStorage) AcceptProposal(ctx context.Context, id int64, trigger, actor string) (*types.ProposalAcceptance, error) {
	var out *types.ProposalAcceptance
	err := s.withImmediateTx(ctx, func(conn *sql.Conn) error {
		p, err := getOpenProposal(ctx, conn, id)
		if err != nil {
			return err
		}

		res := &types.ProposalAcceptance{Proposal: p}
		req := types.TagRequest{
			ScopeID:    p.ScopeID,
			Provenance: types.ProvenanceUser,
			Confidence: 1.0,
			Actor:      actor,
		}

		switch p.Outcome {
		case types.OutcomeSafeAddition, types.OutcomeNarrativeImpact:
			if res.Candidate, err = getCandidate(ctx, conn, p.CandidateID); err != nil {
				return err
			}
			req.DocumentIDs = []string{p.DocumentID}

		case types.OutcomeNewCandidate:
			if p.Candidate == nil {
				return fmt.Errorf("proposal %d carries no candidate: %w", id, types.ErrInvalidInput)
			}
			c := *p.Candidate
			c.ID = ""
			c.Status = types.CandidateDiscovered
			c.ScopeID = p.ScopeID
			if err := insertCandidate(ctx, conn, &c, actor); err != nil {
				return err
			}
			if err := transitionCandidate(ctx, conn, &c, types.CandidateApproved, trigger, actor); err != nil {
				return err
			}
			res.Candidate = &c
			req.DocumentIDs = p.Members

		default:
			return fmt.Errorf("proposal %d is %s and has nothing to accept: %w", id, p.Outcome, types.ErrInvalidTransition)
		}

		req.ProjectID = res.Candidate.ID
		if res.TagChanges, err = applyTags(ctx, conn, req); err != nil {
			return err
		}
		if err := resolveProposal(ctx, conn, p, types.ResolutionAccepted, actor); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getOpenProposal(ctx context.Context, q querier, id int64) (*types.Proposal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read proposal %d: %w", id, err)
	}
	if !p.IsOpen() {
		return nil, fmt.Errorf("proposal %d already %s: %w", id, p.Resolution, types.ErrInvalidTransition)
	}
	return p, nil
}

func resolveProposal(ctx context.Context, q querier, p *types.Proposal, resolution types.ProposalResolution, actor string) error {
	now := time.Now()
	if _, err := q.ExecContext(ctx, `
		UPDATE proposals SET resolution = ?, resolved_at = ?, resolved_by = ? WHERE id = ?
	`, string(resolution), formatTime(now), actor, p.ID); err != nil {
		return fmt.Errorf("failed to resolve proposal %d: %w", p.ID, err)
	}
	p.Resolution = resolution
	p.ResolvedAt = &now
	p.ResolvedBy = actor

	ev := events.New(events.EventTypeProposalResolved, p.ScopeID, events.SeverityInfo,
		fmt.Sprintf("Proposal %d for %s %s", p.ID, p.DocumentID, resolution))
	ev.RunID = p.RunID
	ev.DocumentID = p.DocumentID
	ev.Actor = actor
	return insertEvent(ctx, q, ev)
}

func scanProposal(row rowScanner) (*types.Proposal, error) {
	var p types.Proposal
	var outcome, members, createdAt, resolution string
	var candidate, resolvedAt sql.NullString
	if err := row.Scan(&p.ID, &p.RunID, &p.ScopeID, &p.DocumentID, &outcome, &p.CandidateID,
		&p.Similarity, &p.Reason, &candidate, &members, &createdAt, &resolution, &resolvedAt, &p.ResolvedBy); err != nil {
		return nil, err
	}
	p.Outcome = types.ChangeOutcome(outcome)
	p.Resolution = types.ProposalResolution(resolution)

	if candidate.Valid {
		p.Candidate = &types.ProjectCandidate{}
		if err := json.Unmarshal([]byte(candidate.String), p.Candidate); err != nil {
			return nil, fmt.Errorf("failed to parse proposed candidate of proposal %d: %w", p.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(members), &p.Members); err != nil {
		return nil, fmt.Errorf("failed to parse members of proposal %d: %w", p.ID, err)
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.ResolvedAt, err = parseNullTime(resolvedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
