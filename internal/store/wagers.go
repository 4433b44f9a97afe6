package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const wagerColumns = `id, creator_id, COALESCE(opponent_id, ''), game, stake, status, kind,
	team_size, COALESCE(team_id, ''), verification, COALESCE(winner_id, ''),
	COALESCE(submitted_by, ''), COALESCE(match_ref, ''), COALESCE(proof_url, ''),
	creator_ready, opponent_ready, ready_deadline, confirm_deadline, submitted_at,
	created_at, updated_at`

func scanWager(row rowScanner) (*Wager, error) {
	var w Wager
	err := row.Scan(&w.ID, &w.CreatorID, &w.OpponentID, &w.Game, &w.Stake, &w.Status, &w.Kind,
		&w.TeamSize, &w.TeamID, &w.Verification, &w.WinnerID,
		&w.SubmittedBy, &w.MatchRef, &w.ProofURL,
		&w.CreatorReady, &w.OpponentReady, &w.ReadyDeadline, &w.ConfirmDeadline, &w.SubmittedAt,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &w, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertWager(ctx context.Context, db execer, w *Wager) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO wagers (id, creator_id, opponent_id, game, stake, status, kind, team_size, team_id, verification)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.CreatorID, nullable(w.OpponentID), w.Game, w.Stake, w.Status, w.Kind, w.TeamSize, nullable(w.TeamID), w.Verification)
	return err
}

func (s *Store) CreateWager(ctx context.Context, w *Wager) error {
	return insertWager(ctx, s.DB, w)
}

// CreateWagerFunded inserts the wager row and holds the creator's stake in
// the same transaction: a failed hold leaves no row behind, and the row is
// never visible without its backing hold.
func (s *Store) CreateWagerFunded(ctx context.Context, w *Wager, memo string) error {
	if !w.Stake.IsPositive() {
		return errors.New("stake must be positive")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertWager(ctx, tx, w); err != nil {
			return err
		}
		return holdFundsTx(ctx, tx, w.CreatorID, w.Stake, w.ID, memo)
	})
}

func (s *Store) GetWager(ctx context.Context, id string) (*Wager, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+wagerColumns+` FROM wagers WHERE id = $1`, id)
	return scanWager(row)
}

// AcceptWager claims an open wager for the acceptor. The WHERE clause is the
// race arbiter: exactly one concurrent caller sees a row update, everyone
// else gets ErrConflict.
func (s *Store) AcceptWager(ctx context.Context, id, opponentID string, readyDeadline time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wagers SET opponent_id = $1, status = $2, ready_deadline = $3, updated_at = now()
		 WHERE id = $4 AND status = 'open' AND opponent_id IS NULL`,
		opponentID, StatusPendingReady, readyDeadline, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

// MoveToReadyCheck starts the ready check on a direct challenge that was
// created in accepted state, once the named opponent has put up their stake.
func (s *Store) MoveToReadyCheck(ctx context.Context, id string, readyDeadline time.Time) error {
	return s.BeginReadyCheck(ctx, id, StatusAccepted, readyDeadline)
}

// BeginReadyCheck moves the wager from the given source state into
// pending_ready and stamps the deadline.
func (s *Store) BeginReadyCheck(ctx context.Context, id string, from WagerStatus, readyDeadline time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wagers SET status = $1, ready_deadline = $2, updated_at = now()
		 WHERE id = $3 AND status = $4`,
		StatusPendingReady, readyDeadline, id, from)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

// SetReadyFlag marks one side ready and returns the updated wager.
func (s *Store) SetReadyFlag(ctx context.Context, id string, side Side) (*Wager, error) {
	column := "creator_ready"
	if side == SideOpponent {
		column = "opponent_ready"
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wagers SET `+column+` = TRUE, updated_at = now()
		 WHERE id = $1 AND status = 'pending_ready' AND `+column+` = FALSE`, id)
	if err != nil {
		return nil, err
	}
	if err := oneRowOr(res, ErrConflict); err != nil {
		return nil, err
	}
	return s.GetWager(ctx, id)
}

// TransitionStatus is the generic guarded move used for every transition that
// carries no extra payload. ErrConflict means the wager left the expected
// source state first.
func (s *Store) TransitionStatus(ctx context.Context, id string, from []WagerStatus, to WagerStatus) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wagers SET status = $1, updated_at = now()
		 WHERE id = $2 AND status = ANY($3)`, to, id, statusArray(from))
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

// SubmitResult records the claim and starts the confirmation window.
func (s *Store) SubmitResult(ctx context.Context, id, submitterID, matchRef, proofURL string, from []WagerStatus, confirmDeadline time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wagers SET status = $1, submitted_by = $2, match_ref = $3, proof_url = $4,
		 confirm_deadline = $5, submitted_at = now(), updated_at = now()
		 WHERE id = $6 AND status = ANY($7)`,
		StatusPendingConfirmation, submitterID, nullable(matchRef), nullable(proofURL),
		confirmDeadline, id, statusArray(from))
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

// MarkPendingVerification parks a ranked win claim while the oracle cannot
// be reached. The claim fields are recorded so a later submit can resume; the
// confirmation window does not start until a claim actually lands.
func (s *Store) MarkPendingVerification(ctx context.Context, id, submitterID, matchRef string, from []WagerStatus) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wagers SET status = $1, submitted_by = $2, match_ref = $3, updated_at = now()
		 WHERE id = $4 AND status = ANY($5)`,
		StatusPendingVerification, submitterID, nullable(matchRef), id, statusArray(from))
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

func (s *Store) ListOpenWagers(ctx context.Context, game string, limit, offset int) ([]Wager, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+wagerColumns+` FROM wagers
		 WHERE status = 'open' AND ($1 = '' OR game = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, game, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectWagers(rows)
}

func (s *Store) ListUserWagers(ctx context.Context, userID string, limit, offset int) ([]Wager, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+wagerColumns+` FROM wagers
		 WHERE creator_id = $1 OR opponent_id = $1
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectWagers(rows)
}

// ListExpiredReadyChecks returns wagers still waiting on a ready check whose
// deadline has passed. The sweep acts on them one by one.
func (s *Store) ListExpiredReadyChecks(ctx context.Context, now time.Time) ([]Wager, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+wagerColumns+` FROM wagers
		 WHERE status = 'pending_ready' AND ready_deadline IS NOT NULL AND ready_deadline <= $1
		 ORDER BY ready_deadline`, now)
	if err != nil {
		return nil, err
	}
	return collectWagers(rows)
}

func (s *Store) ListExpiredConfirmations(ctx context.Context, now time.Time) ([]Wager, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+wagerColumns+` FROM wagers
		 WHERE status = 'pending_confirmation' AND confirm_deadline IS NOT NULL AND confirm_deadline <= $1
		 ORDER BY confirm_deadline`, now)
	if err != nil {
		return nil, err
	}
	return collectWagers(rows)
}

func collectWagers(rows *sql.Rows) ([]Wager, error) {
	defer rows.Close()
	out := []Wager{}
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func oneRowOr(res sql.Result, conflictErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return conflictErr
	}
	return nil
}

func statusArray(from []WagerStatus) []string {
	out := make([]string, 0, len(from))
	for _, st := range from {
		out = append(out, string(st))
	}
	return out
}

func (s *Store) GetUserStats(ctx context.Context, userID, game string) (*UserStats, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE winner_id = $1),
		        COUNT(*) FILTER (WHERE winner_id IS NOT NULL AND winner_id <> $1),
		        COALESCE(SUM(stake), 0),
		        COALESCE(SUM(stake * 2) FILTER (WHERE winner_id = $1), 0)
		 FROM wagers
		 WHERE status = 'completed' AND (creator_id = $1 OR opponent_id = $1)
		   AND ($2 = '' OR game = $2)`, userID, game)
	st := UserStats{UserID: userID}
	err := row.Scan(&st.TotalMatches, &st.Wins, &st.Losses, &st.TotalWagered, &st.TotalEarnings)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListLeaderboard(ctx context.Context, game string, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT u, COUNT(*),
		        COUNT(*) FILTER (WHERE winner_id = u),
		        COUNT(*) FILTER (WHERE winner_id IS NOT NULL AND winner_id <> u),
		        COALESCE(SUM(stake), 0)
		 FROM wagers, LATERAL unnest(ARRAY[creator_id, opponent_id]) AS u
		 WHERE status = 'completed' AND u IS NOT NULL AND ($1 = '' OR game = $1)
		 GROUP BY u
		 ORDER BY 3 DESC, 5 DESC
		 LIMIT $2`, game, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LeaderboardRow{}
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.TotalMatches, &r.Wins, &r.Losses, &r.TotalWagered); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
