// Package escrow tracks the off-platform escrow account attached to a wager.
// It records deposits, state and transaction history; the ledger remains the
// authoritative book, this is the audit trail for externally escrowed stakes.
package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/treasury"
)

var ErrNotFound = errors.New("escrow_not_found")

// InvalidStateError names the state the account is in and the one the caller
// wanted to move to.
type InvalidStateError struct {
	Current   store.EscrowStatus
	Requested store.EscrowStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid_escrow_state: %s -> %s", e.Current, e.Requested)
}

type Service struct {
	store    *store.Store
	treasury treasury.Treasury
}

func NewService(st *store.Store, t treasury.Treasury) *Service {
	return &Service{store: st, treasury: t}
}

// Open creates the escrow account for a wager with a fresh receiving address.
func (s *Service) Open(ctx context.Context, wagerID string) (*store.EscrowAccount, error) {
	addr, err := s.treasury.IssueDepositAddress(ctx, "escrow:"+wagerID, 0)
	if err != nil {
		return nil, err
	}
	return s.store.OpenEscrow(ctx, wagerID, addr)
}

// ConfirmDeposit records one side's stake arriving at the escrow address.
// When both sides are in the account moves to funded.
func (s *Service) ConfirmDeposit(ctx context.Context, wagerID string, side store.Side, amount decimal.Decimal, userID, txHash string) (*store.EscrowAccount, error) {
	acct, err := s.store.GetEscrow(ctx, wagerID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if acct.Status != store.EscrowAwaitingDeposits {
		return nil, &InvalidStateError{Current: acct.Status, Requested: store.EscrowFunded}
	}
	acct, err = s.store.MarkEscrowDeposited(ctx, wagerID, side, txHash)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.RecordEscrowTransaction(ctx, wagerID, userID, "deposit", amount, txHash, "confirmed"); err != nil {
		return nil, err
	}
	return acct, nil
}

// Lock freezes a funded account while a dispute is pending.
func (s *Service) Lock(ctx context.Context, wagerID string) error {
	return s.transition(ctx, wagerID, []store.EscrowStatus{store.EscrowFunded}, store.EscrowLocked)
}

// Release marks the pot as paid out to the winner.
func (s *Service) Release(ctx context.Context, wagerID, winnerID string, amount decimal.Decimal) error {
	err := s.transition(ctx, wagerID,
		[]store.EscrowStatus{store.EscrowFunded, store.EscrowLocked}, store.EscrowReleased)
	if err != nil {
		return err
	}
	_, err = s.store.RecordEscrowTransaction(ctx, wagerID, winnerID, "release", amount, "", "confirmed")
	return err
}

// Refund marks both stakes as returned.
func (s *Service) Refund(ctx context.Context, wagerID string) error {
	return s.transition(ctx, wagerID,
		[]store.EscrowStatus{store.EscrowAwaitingDeposits, store.EscrowFunded, store.EscrowLocked},
		store.EscrowRefunded)
}

func (s *Service) transition(ctx context.Context, wagerID string, from []store.EscrowStatus, to store.EscrowStatus) error {
	err := s.store.UpdateEscrowStatus(ctx, wagerID, from, to)
	if errors.Is(err, store.ErrConflict) {
		acct, getErr := s.store.GetEscrow(ctx, wagerID)
		if getErr != nil {
			return mapNotFound(getErr)
		}
		return &InvalidStateError{Current: acct.Status, Requested: to}
	}
	return err
}

// Status is the account plus its transaction history.
type Status struct {
	Account      *store.EscrowAccount      `json:"account"`
	Transactions []store.EscrowTransaction `json:"transactions"`
}

func (s *Service) Status(ctx context.Context, wagerID string) (*Status, error) {
	acct, err := s.store.GetEscrow(ctx, wagerID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	txs, err := s.store.ListEscrowTransactions(ctx, wagerID)
	if err != nil {
		return nil, err
	}
	return &Status{Account: acct, Transactions: txs}, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
