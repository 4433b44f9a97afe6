package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const disputeColumns = `id, wager_id, filer_id, reason, COALESCE(evidence, ''),
	COALESCE(counter_evidence, ''), status, COALESCE(winner_id, ''),
	COALESCE(resolved_by, ''), COALESCE(resolution, ''), created_at, resolved_at`

func scanDispute(row rowScanner) (*Dispute, error) {
	var d Dispute
	err := row.Scan(&d.ID, &d.WagerID, &d.FilerID, &d.Reason, &d.Evidence, &d.CounterEvidence,
		&d.Status, &d.WinnerID, &d.ResolvedBy, &d.Resolution, &d.CreatedAt, &d.ResolvedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &d, nil
}

// CreateDispute opens a dispute for the wager. A partial unique index on
// (wager_id) WHERE status = 'pending' keeps at most one dispute open per
// wager; a second filing surfaces as ErrConflict.
func (s *Store) CreateDispute(ctx context.Context, wagerID, filerID, reason, evidence string) (*Dispute, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO disputes (id, wager_id, filer_id, reason, evidence, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')`,
		id, wagerID, filerID, reason, nullable(evidence))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}
	return s.GetDispute(ctx, id)
}

func (s *Store) GetDispute(ctx context.Context, id string) (*Dispute, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	return scanDispute(row)
}

func (s *Store) GetPendingDisputeByWager(ctx context.Context, wagerID string) (*Dispute, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE wager_id = $1 AND status = 'pending'`, wagerID)
	return scanDispute(row)
}

// AddCounterProof records the non-filer's evidence. Only the first submission
// sticks.
func (s *Store) AddCounterProof(ctx context.Context, disputeID, evidence string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE disputes SET counter_evidence = $1
		 WHERE id = $2 AND status = 'pending' AND counter_evidence IS NULL`,
		evidence, disputeID)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

func (s *Store) ResolveDispute(ctx context.Context, disputeID, winnerID, resolvedBy, resolution string, at time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE disputes SET status = 'resolved', winner_id = $1, resolved_by = $2,
		 resolution = $3, resolved_at = $4
		 WHERE id = $5 AND status = 'pending'`,
		winnerID, resolvedBy, nullable(resolution), at, disputeID)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

// UpsertVote records or changes a spectator's vote while the dispute is open.
// The pending check is part of the write itself, so a vote cannot slip in
// after resolution.
func (s *Store) UpsertVote(ctx context.Context, disputeID, voterID string, side Side) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO dispute_votes (dispute_id, voter_id, side)
		 SELECT d.id, $2, $3 FROM disputes d WHERE d.id = $1 AND d.status = 'pending'
		 ON CONFLICT (dispute_id, voter_id)
		 DO UPDATE SET side = EXCLUDED.side, updated_at = now()`,
		disputeID, voterID, side)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status DisputeStatus
		err := s.DB.QueryRowContext(ctx,
			`SELECT status FROM disputes WHERE id = $1`, disputeID).Scan(&status)
		if err != nil {
			return mapNotFound(err)
		}
		return ErrConflict
	}
	return nil
}

func (s *Store) ListVotes(ctx context.Context, disputeID string) ([]DisputeVote, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT dispute_id, voter_id, side, created_at, updated_at
		 FROM dispute_votes WHERE dispute_id = $1 ORDER BY created_at`, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DisputeVote{}
	for rows.Next() {
		var v DisputeVote
		if err := rows.Scan(&v.DisputeID, &v.VoterID, &v.Side, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountVotes returns the tally per side.
func (s *Store) CountVotes(ctx context.Context, disputeID string) (creator, opponent int, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE side = 'creator'),
		        COUNT(*) FILTER (WHERE side = 'opponent')
		 FROM dispute_votes WHERE dispute_id = $1`, disputeID).Scan(&creator, &opponent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, err
	}
	return creator, opponent, nil
}
