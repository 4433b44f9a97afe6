// Package ledger is the authoritative record of user funds. Every balance
// change goes through the store's transactional wallet operations; this layer
// adds wallet provisioning, the treasury handoff for deposits and payouts,
// and the read views.
package ledger

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/treasury"
)

type Ledger struct {
	store    *store.Store
	treasury treasury.Treasury
}

func New(st *store.Store, t treasury.Treasury) *Ledger {
	return &Ledger{store: st, treasury: t}
}

// EnsureWallet creates the wallet on first contact and asks the treasury for
// a deposit address if the row does not have one yet. Address issuance is
// best effort; a wallet without an address can still hold and settle.
func (l *Ledger) EnsureWallet(ctx context.Context, userID string) (*store.Wallet, error) {
	w, err := l.store.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w.DepositAddress != "" {
		return w, nil
	}
	addr, err := l.treasury.IssueDepositAddress(ctx, userID, w.DerivationIndex)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("deposit address issuance failed")
		return w, nil
	}
	if err := l.store.SetDepositAddress(ctx, userID, addr); err != nil && !errors.Is(err, store.ErrConflict) {
		return nil, err
	}
	return l.store.GetWallet(ctx, userID)
}

// Hold reserves a stake for a wager.
func (l *Ledger) Hold(ctx context.Context, userID string, amount decimal.Decimal, wagerID, memo string) error {
	if _, err := l.EnsureWallet(ctx, userID); err != nil {
		return err
	}
	return l.store.HoldFunds(ctx, userID, amount, wagerID, memo)
}

// FundWager inserts the wager row and the creator's stake hold as one
// transaction, so a failed hold never leaves a rowed wager behind.
func (l *Ledger) FundWager(ctx context.Context, w *store.Wager, memo string) error {
	if _, err := l.EnsureWallet(ctx, w.CreatorID); err != nil {
		return err
	}
	return l.store.CreateWagerFunded(ctx, w, memo)
}

// Release returns held funds to the available balance.
func (l *Ledger) Release(ctx context.Context, userID string, amount decimal.Decimal, wagerID, memo string) error {
	return l.store.ReleaseFunds(ctx, userID, amount, wagerID, memo)
}

// SettleWager applies the full settlement of a finished wager: the status
// change, every forfeited stake and every payout commit together or not at
// all. A side whose hold is missing fails the whole settlement and the wager
// keeps its source state.
func (l *Ledger) SettleWager(ctx context.Context, p store.WagerSettlement) error {
	return l.store.SettleWager(ctx, p)
}

// Deposit credits an external funding event, keyed by its transaction
// reference so replays are no-ops. The bool reports whether this call
// credited.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (bool, error) {
	if _, err := l.EnsureWallet(ctx, userID); err != nil {
		return false, err
	}
	return l.store.Deposit(ctx, userID, amount, externalRef, "external deposit")
}

// Withdraw reserves the amount and hands the payout instruction to the
// treasury. A synchronous treasury returns the hash at once and the
// withdrawal confirms here; an asynchronous one returns empty and confirms
// later through ConfirmWithdrawal. A rejected payout rolls the reserve back.
func (l *Ledger) Withdraw(ctx context.Context, userID string, amount decimal.Decimal, destination string) (*store.Withdrawal, error) {
	id, err := l.store.ReserveWithdrawal(ctx, userID, amount, destination)
	if err != nil {
		return nil, err
	}
	txHash, err := l.treasury.ExecutePayout(ctx, id, destination, amount)
	if err != nil {
		if cancelErr := l.store.CancelWithdrawal(ctx, id); cancelErr != nil {
			log.Error().Err(cancelErr).Str("withdrawal_id", id).Msg("withdrawal rollback failed")
		}
		return nil, err
	}
	if txHash != "" {
		if err := l.store.ConfirmWithdrawal(ctx, id, txHash); err != nil {
			return nil, err
		}
	}
	return l.store.GetWithdrawal(ctx, id)
}

// ConfirmWithdrawal is the treasury's asynchronous completion callback.
func (l *Ledger) ConfirmWithdrawal(ctx context.Context, id, txHash string) error {
	return l.store.ConfirmWithdrawal(ctx, id, txHash)
}

// CancelWithdrawal is the treasury's failure callback; the reserved amount
// goes back to the user.
func (l *Ledger) CancelWithdrawal(ctx context.Context, id string) error {
	return l.store.CancelWithdrawal(ctx, id)
}

// BalanceInfo is the wallet view shown to the user.
type BalanceInfo struct {
	UserID         string          `json:"user_id"`
	DepositAddress string          `json:"deposit_address"`
	Available      decimal.Decimal `json:"available"`
	Held           decimal.Decimal `json:"held"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
	TotalWon       decimal.Decimal `json:"total_won"`
	TotalLost      decimal.Decimal `json:"total_lost"`
	NetProfit      decimal.Decimal `json:"net_profit"`
}

func (l *Ledger) Balance(ctx context.Context, userID string) (*BalanceInfo, error) {
	w, err := l.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BalanceInfo{
		UserID:         w.UserID,
		DepositAddress: w.DepositAddress,
		Available:      w.Available,
		Held:           w.Held,
		TotalDeposited: w.TotalDeposited,
		TotalWithdrawn: w.TotalWithdrawn,
		TotalWon:       w.TotalWon,
		TotalLost:      w.TotalLost,
		NetProfit:      w.TotalWon.Sub(w.TotalLost),
	}, nil
}

// History lists a user's ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit, offset int) ([]store.WalletEntry, error) {
	return l.store.ListWalletEntries(ctx, store.EntryFilter{UserID: userID}, limit, offset)
}

// WagerEntries lists every entry booked against one wager, across users.
func (l *Ledger) WagerEntries(ctx context.Context, wagerID string) ([]store.WalletEntry, error) {
	return l.store.ListWalletEntries(ctx, store.EntryFilter{WagerID: wagerID}, 100, 0)
}
