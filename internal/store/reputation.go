package store

import "context"

func (s *Store) AddReputationEvent(ctx context.Context, userID, kind string, points int, wagerID, description string) (string, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO reputation_events (id, user_id, kind, points, wager_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, kind, points, nullable(wagerID), nullable(description))
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListReputationEvents returns the user's events oldest first so the score
// fold replays them in order.
func (s *Store) ListReputationEvents(ctx context.Context, userID string) ([]ReputationEvent, error) {
	return s.listReputation(ctx, userID, "ASC", 0)
}

// ListRecentReputationEvents returns the newest events for display.
func (s *Store) ListRecentReputationEvents(ctx context.Context, userID string, limit int) ([]ReputationEvent, error) {
	return s.listReputation(ctx, userID, "DESC", limit)
}

func (s *Store) listReputation(ctx context.Context, userID, order string, limit int) ([]ReputationEvent, error) {
	q := `SELECT id, user_id, kind, points, COALESCE(wager_id, ''), COALESCE(description, ''), created_at
	 FROM reputation_events WHERE user_id = $1 ORDER BY created_at ` + order + `, id ` + order
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ReputationEvent{}
	for rows.Next() {
		var e ReputationEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Points, &e.WagerID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
