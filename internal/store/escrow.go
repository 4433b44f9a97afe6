package store

import (
	"context"

	"github.com/shopspring/decimal"
)

const escrowColumns = `wager_id, address, status, creator_deposited, opponent_deposited,
	COALESCE(creator_proof, ''), COALESCE(opponent_proof, ''), created_at, updated_at`

func scanEscrow(row rowScanner) (*EscrowAccount, error) {
	var a EscrowAccount
	err := row.Scan(&a.WagerID, &a.Address, &a.Status, &a.CreatorDeposited, &a.OpponentDeposited,
		&a.CreatorProof, &a.OpponentProof, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &a, nil
}

func (s *Store) OpenEscrow(ctx context.Context, wagerID, address string) (*EscrowAccount, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO escrow_accounts (wager_id, address, status) VALUES ($1, $2, 'awaiting_deposits')`,
		wagerID, address)
	if err != nil {
		return nil, err
	}
	return s.GetEscrow(ctx, wagerID)
}

func (s *Store) GetEscrow(ctx context.Context, wagerID string) (*EscrowAccount, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+escrowColumns+` FROM escrow_accounts WHERE wager_id = $1`, wagerID)
	return scanEscrow(row)
}

// MarkEscrowDeposited flags one side as deposited if it was not already and
// promotes the account to funded once both sides are in, all in one guarded
// statement.
func (s *Store) MarkEscrowDeposited(ctx context.Context, wagerID string, side Side, proof string) (*EscrowAccount, error) {
	flag, proofCol := "creator_deposited", "creator_proof"
	if side == SideOpponent {
		flag, proofCol = "opponent_deposited", "opponent_proof"
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE escrow_accounts SET `+flag+` = TRUE, `+proofCol+` = $1,
		 status = CASE WHEN creator_deposited AND opponent_deposited
		          THEN 'funded' ELSE status END,
		 updated_at = now()
		 WHERE wager_id = $2 AND status = 'awaiting_deposits' AND `+flag+` = FALSE`,
		nullable(proof), wagerID)
	if err != nil {
		return nil, err
	}
	if err := oneRowOr(res, ErrConflict); err != nil {
		return nil, err
	}
	// The CASE above sees the pre-update flag; re-check with both flags set.
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE escrow_accounts SET status = 'funded', updated_at = now()
		 WHERE wager_id = $1 AND status = 'awaiting_deposits'
		   AND creator_deposited AND opponent_deposited`, wagerID); err != nil {
		return nil, err
	}
	return s.GetEscrow(ctx, wagerID)
}

// UpdateEscrowStatus moves the account between states, guarded by the allowed
// source states. ErrConflict means the transition was not legal from the
// current state.
func (s *Store) UpdateEscrowStatus(ctx context.Context, wagerID string, from []EscrowStatus, to EscrowStatus) error {
	allowed := make([]string, 0, len(from))
	for _, st := range from {
		allowed = append(allowed, string(st))
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE escrow_accounts SET status = $1, updated_at = now()
		 WHERE wager_id = $2 AND status = ANY($3)`, to, wagerID, allowed)
	if err != nil {
		return err
	}
	return oneRowOr(res, ErrConflict)
}

func (s *Store) RecordEscrowTransaction(ctx context.Context, wagerID, userID, txType string, amount decimal.Decimal, txHash, status string) (string, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO escrow_transactions (id, wager_id, user_id, type, amount, tx_hash, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, wagerID, userID, txType, amount, nullable(txHash), status)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListEscrowTransactions(ctx context.Context, wagerID string) ([]EscrowTransaction, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, wager_id, user_id, type, amount, COALESCE(tx_hash, ''), status, created_at
		 FROM escrow_transactions WHERE wager_id = $1 ORDER BY created_at`, wagerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EscrowTransaction{}
	for rows.Next() {
		var t EscrowTransaction
		if err := rows.Scan(&t.ID, &t.WagerID, &t.UserID, &t.Type, &t.Amount, &t.TxHash, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
