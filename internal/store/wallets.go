package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// Wallet entry types. Amounts are signed by their effect on the available
// balance; hold/settlement moves are visible in the held column instead.
const (
	EntryHold           = "hold"
	EntryRelease        = "release"
	EntryWin            = "win"
	EntryLoss           = "loss"
	EntryDeposit        = "deposit"
	EntryWithdraw       = "withdraw"
	EntryWithdrawCancel = "withdraw_cancel"
)

const walletColumns = `user_id, deposit_address, derivation_index, available, held,
	total_deposited, total_withdrawn, total_won, total_lost, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (*Wallet, error) {
	var w Wallet
	err := row.Scan(&w.UserID, &w.DepositAddress, &w.DerivationIndex, &w.Available, &w.Held,
		&w.TotalDeposited, &w.TotalWithdrawn, &w.TotalWon, &w.TotalLost, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &w, nil
}

// EnsureWallet creates the wallet row on first contact. The derivation index
// comes from a sequence; the deposit address is filled in afterwards by the
// treasury collaborator.
func (s *Store) EnsureWallet(ctx context.Context, userID string) (*Wallet, error) {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, err
	}
	return s.GetWallet(ctx, userID)
}

func (s *Store) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	return scanWallet(row)
}

// SetDepositAddress records the address issued for this wallet. It only ever
// succeeds once; the address is immutable after that.
func (s *Store) SetDepositAddress(ctx context.Context, userID, address string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE wallets SET deposit_address = $1, updated_at = now()
		 WHERE user_id = $2 AND deposit_address = ''`, address, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func lockWallet(ctx context.Context, tx *sql.Tx, userID string) (*Wallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return scanWallet(row)
}

func insertEntry(ctx context.Context, tx *sql.Tx, userID, entryType string, amount decimal.Decimal, refType, refID, description string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_entries (id, user_id, type, amount, ref_type, ref_id, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		NewID(), userID, entryType, amount, refType, refID, description)
	return err
}

func updateBalances(ctx context.Context, tx *sql.Tx, w *Wallet) error {
	if w.Available.IsNegative() || w.Held.IsNegative() {
		return ErrLedgerIntegrity
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets SET available = $1, held = $2, total_deposited = $3,
		 total_withdrawn = $4, total_won = $5, total_lost = $6, updated_at = now()
		 WHERE user_id = $7`,
		w.Available, w.Held, w.TotalDeposited, w.TotalWithdrawn, w.TotalWon, w.TotalLost, w.UserID)
	return err
}

func lockActiveHold(ctx context.Context, tx *sql.Tx, userID, wagerID string) (*Hold, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, user_id, wager_id, amount, status, created_at, updated_at
		 FROM wallet_holds WHERE user_id = $1 AND wager_id = $2 AND status = 'held' FOR UPDATE`,
		userID, wagerID)
	var h Hold
	err := row.Scan(&h.ID, &h.UserID, &h.WagerID, &h.Amount, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidHoldState
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// HoldFunds moves amount from available to held against wagerID. At most one
// active hold per (user, wager).
func (s *Store) HoldFunds(ctx context.Context, userID string, amount decimal.Decimal, wagerID, description string) error {
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return holdFundsTx(ctx, tx, userID, amount, wagerID, description)
	})
}

func holdFundsTx(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal, wagerID, description string) error {
	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return err
	}
	if _, err := lockActiveHold(ctx, tx, userID, wagerID); err == nil {
		return ErrInvalidHoldState
	} else if !errors.Is(err, ErrInvalidHoldState) {
		return err
	}
	if w.Available.LessThan(amount) {
		return &InsufficientFundsError{Available: w.Available, Required: amount}
	}
	w.Available = w.Available.Sub(amount)
	w.Held = w.Held.Add(amount)
	if err := updateBalances(ctx, tx, w); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_holds (id, user_id, wager_id, amount, status)
		 VALUES ($1, $2, $3, $4, 'held')`, NewID(), userID, wagerID, amount); err != nil {
		return err
	}
	return insertEntry(ctx, tx, userID, EntryHold, amount.Neg(), "wager", wagerID, description)
}

// ReleaseFunds reverses part or all of an active hold.
func (s *Store) ReleaseFunds(ctx context.Context, userID string, amount decimal.Decimal, wagerID, description string) error {
	if !amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		h, err := lockActiveHold(ctx, tx, userID, wagerID)
		if err != nil {
			return err
		}
		if h.Amount.LessThan(amount) {
			return ErrInvalidHoldState
		}
		w.Available = w.Available.Add(amount)
		w.Held = w.Held.Sub(amount)
		if err := updateBalances(ctx, tx, w); err != nil {
			return err
		}
		if err := finishHold(ctx, tx, h, amount, HoldReleased); err != nil {
			return err
		}
		return insertEntry(ctx, tx, userID, EntryRelease, amount, "wager", wagerID, description)
	})
}

// settleLossTx permanently removes a held stake from one loser.
func settleLossTx(ctx context.Context, tx *sql.Tx, userID string, amount decimal.Decimal, wagerID, description string) error {
	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return err
	}
	h, err := lockActiveHold(ctx, tx, userID, wagerID)
	if err != nil {
		return err
	}
	if h.Amount.LessThan(amount) {
		return ErrInvalidHoldState
	}
	w.Held = w.Held.Sub(amount)
	w.TotalLost = w.TotalLost.Add(amount)
	if err := updateBalances(ctx, tx, w); err != nil {
		return err
	}
	if err := finishHold(ctx, tx, h, amount, HoldSettled); err != nil {
		return err
	}
	return insertEntry(ctx, tx, userID, EntryLoss, amount.Neg(), "wager", wagerID, description)
}

// settleWinTx releases one winner's held stake back to available, then
// credits the net winnings (payout minus that stake) on top.
func settleWinTx(ctx context.Context, tx *sql.Tx, userID string, payout, stake decimal.Decimal, wagerID, description string) error {
	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return err
	}
	h, err := lockActiveHold(ctx, tx, userID, wagerID)
	if err != nil {
		return err
	}
	if !h.Amount.Equal(stake) {
		return ErrInvalidHoldState
	}
	net := payout.Sub(stake)
	w.Available = w.Available.Add(stake).Add(net)
	w.Held = w.Held.Sub(stake)
	w.TotalWon = w.TotalWon.Add(net)
	if err := updateBalances(ctx, tx, w); err != nil {
		return err
	}
	if err := finishHold(ctx, tx, h, stake, HoldSettled); err != nil {
		return err
	}
	if err := insertEntry(ctx, tx, userID, EntryRelease, stake, "wager", wagerID, "stake returned"); err != nil {
		return err
	}
	return insertEntry(ctx, tx, userID, EntryWin, net, "wager", wagerID, description)
}

// WagerSettlement is the complete money movement of a finished wager. Payout
// and Stake are per participant; Winners and Losers carry one user per active
// hold on each side.
type WagerSettlement struct {
	WagerID  string
	WinnerID string
	Winners  []string
	Losers   []string
	Payout   decimal.Decimal
	Stake    decimal.Decimal
	From     []WagerStatus
	WinMemo  string
	LossMemo string
}

// SettleWager moves the wager to completed and settles every hold in the same
// transaction. ErrConflict means the status guard lost the race; a failed
// settlement leg rolls the status change back with it, so the wager never
// reaches completed with money still in flight.
func (s *Store) SettleWager(ctx context.Context, p WagerSettlement) error {
	if !p.Stake.IsPositive() || p.Payout.LessThan(p.Stake) {
		return ErrLedgerIntegrity
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE wagers SET status = $1, winner_id = $2, updated_at = now()
			 WHERE id = $3 AND status = ANY($4)`,
			StatusCompleted, p.WinnerID, p.WagerID, statusArray(p.From))
		if err != nil {
			return err
		}
		if err := oneRowOr(res, ErrConflict); err != nil {
			return err
		}
		for _, userID := range p.Losers {
			if err := settleLossTx(ctx, tx, userID, p.Stake, p.WagerID, p.LossMemo); err != nil {
				return err
			}
		}
		for _, userID := range p.Winners {
			if err := settleWinTx(ctx, tx, userID, p.Payout, p.Stake, p.WagerID, p.WinMemo); err != nil {
				return err
			}
		}
		return nil
	})
}

func finishHold(ctx context.Context, tx *sql.Tx, h *Hold, amount decimal.Decimal, terminal HoldStatus) error {
	remaining := h.Amount.Sub(amount)
	if remaining.IsNegative() {
		return ErrLedgerIntegrity
	}
	status := HoldActive
	if remaining.IsZero() {
		status = terminal
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE wallet_holds SET amount = $1, status = $2, updated_at = now() WHERE id = $3`,
		remaining, status, h.ID)
	return err
}

// Deposit credits available balance from an external funding event. The
// external reference makes it idempotent: a replayed reference is a no-op and
// the bool reports whether this call actually credited.
func (s *Store) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef, description string) (bool, error) {
	if !amount.IsPositive() {
		return false, errors.New("amount must be positive")
	}
	credited := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO deposits (external_ref, user_id, amount) VALUES ($1, $2, $3)
			 ON CONFLICT (external_ref) DO NOTHING`, externalRef, userID, amount)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		w.Available = w.Available.Add(amount)
		w.TotalDeposited = w.TotalDeposited.Add(amount)
		if err := updateBalances(ctx, tx, w); err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, userID, EntryDeposit, amount, "deposit", externalRef, description); err != nil {
			return err
		}
		credited = true
		return nil
	})
	return credited, err
}

// ReserveWithdrawal is phase one of a withdrawal: funds leave available
// immediately and a pending payout instruction is recorded for the treasury.
func (s *Store) ReserveWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, destination string) (string, error) {
	if !amount.IsPositive() {
		return "", errors.New("amount must be positive")
	}
	id := NewID()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		if w.Available.LessThan(amount) {
			return &InsufficientFundsError{Available: w.Available, Required: amount}
		}
		w.Available = w.Available.Sub(amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Add(amount)
		if err := updateBalances(ctx, tx, w); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO withdrawals (id, user_id, amount, destination, status)
			 VALUES ($1, $2, $3, $4, 'pending')`, id, userID, amount, destination); err != nil {
			return err
		}
		return insertEntry(ctx, tx, userID, EntryWithdraw, amount.Neg(), "withdrawal", id, "withdrawal to "+destination)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ConfirmWithdrawal is phase two: the external payout went through.
func (s *Store) ConfirmWithdrawal(ctx context.Context, id, txHash string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE withdrawals SET status = 'confirmed', tx_hash = $1, updated_at = now()
		 WHERE id = $2 AND status = 'pending'`, txHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// CancelWithdrawal undoes phase one when the payout could not be executed.
func (s *Store) CancelWithdrawal(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT user_id, amount, status FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
		var userID string
		var amount decimal.Decimal
		var status WithdrawalStatus
		if err := row.Scan(&userID, &amount, &status); err != nil {
			return mapNotFound(err)
		}
		if status != WithdrawalPending {
			return ErrConflict
		}
		w, err := lockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		w.Available = w.Available.Add(amount)
		w.TotalWithdrawn = w.TotalWithdrawn.Sub(amount)
		if err := updateBalances(ctx, tx, w); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE withdrawals SET status = 'cancelled', updated_at = now() WHERE id = $1`, id); err != nil {
			return err
		}
		return insertEntry(ctx, tx, userID, EntryWithdrawCancel, amount, "withdrawal", id, "withdrawal cancelled")
	})
}

func (s *Store) GetWithdrawal(ctx context.Context, id string) (*Withdrawal, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, amount, destination, status, tx_hash, created_at, updated_at
		 FROM withdrawals WHERE id = $1`, id)
	var wd Withdrawal
	err := row.Scan(&wd.ID, &wd.UserID, &wd.Amount, &wd.Destination, &wd.Status, &wd.TxHash, &wd.CreatedAt, &wd.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &wd, nil
}

func (s *Store) GetHold(ctx context.Context, userID, wagerID string) (*Hold, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, wager_id, amount, status, created_at, updated_at
		 FROM wallet_holds WHERE user_id = $1 AND wager_id = $2
		 ORDER BY created_at DESC LIMIT 1`, userID, wagerID)
	var h Hold
	err := row.Scan(&h.ID, &h.UserID, &h.WagerID, &h.Amount, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &h, nil
}

type EntryFilter struct {
	UserID  string
	WagerID string
}

func (s *Store) ListWalletEntries(ctx context.Context, f EntryFilter, limit, offset int) ([]WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, type, amount, ref_type, ref_id, description, created_at
		 FROM wallet_entries
		 WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR (ref_type = 'wager' AND ref_id = $2))
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		f.UserID, f.WagerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]WalletEntry, 0, limit)
	for rows.Next() {
		var e WalletEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.RefType, &e.RefID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
