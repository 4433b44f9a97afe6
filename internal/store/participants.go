package store

import "context"

// AddParticipant records an open-roster join. The primary key rejects a user
// joining the same wager twice.
func (s *Store) AddParticipant(ctx context.Context, wagerID, userID string, side Side) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO wager_participants (wager_id, user_id, side) VALUES ($1, $2, $3)
		 ON CONFLICT (wager_id, user_id) DO NOTHING`, wagerID, userID, side)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

func (s *Store) ListParticipants(ctx context.Context, wagerID string) ([]Participant, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT wager_id, user_id, side, created_at FROM wager_participants
		 WHERE wager_id = $1 ORDER BY created_at`, wagerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Participant{}
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.WagerID, &p.UserID, &p.Side, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CountParticipants(ctx context.Context, wagerID string, side Side) (int, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM wager_participants WHERE wager_id = $1 AND side = $2`, wagerID, side)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
