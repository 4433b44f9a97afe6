package store

import (
	"errors"
	"testing"
)

func TestHoldAndReleaseRoundTrip(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	fundWallet(t, st, ctx, "u1", "1.0")
	wagerID := NewID()

	if err := st.HoldFunds(ctx, "u1", dec(t, "0.4"), wagerID, "stake"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	w, err := st.GetWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(dec(t, "0.6")) || !w.Held.Equal(dec(t, "0.4")) {
		t.Fatalf("after hold: available=%s held=%s", w.Available, w.Held)
	}

	if err := st.ReleaseFunds(ctx, "u1", dec(t, "0.4"), wagerID, "refund"); err != nil {
		t.Fatalf("release: %v", err)
	}
	w, err = st.GetWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(dec(t, "1.0")) || !w.Held.IsZero() {
		t.Fatalf("after release: available=%s held=%s", w.Available, w.Held)
	}

	h, err := st.GetHold(ctx, "u1", wagerID)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if h.Status != HoldReleased {
		t.Fatalf("hold status = %s, want %s", h.Status, HoldReleased)
	}
}

func TestHoldInsufficientFunds(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	fundWallet(t, st, ctx, "u1", "0.05")
	err := st.HoldFunds(ctx, "u1", dec(t, "0.1"), NewID(), "stake")
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientFundsError, got %v", err)
	}
	if !insufficient.Available.Equal(dec(t, "0.05")) || !insufficient.Required.Equal(dec(t, "0.1")) {
		t.Fatalf("error amounts: available=%s required=%s", insufficient.Available, insufficient.Required)
	}
}

func TestDoubleHoldSameWagerRejected(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	fundWallet(t, st, ctx, "u1", "1.0")
	wagerID := NewID()
	if err := st.HoldFunds(ctx, "u1", dec(t, "0.1"), wagerID, "stake"); err != nil {
		t.Fatalf("first hold: %v", err)
	}
	if err := st.HoldFunds(ctx, "u1", dec(t, "0.1"), wagerID, "stake"); !errors.Is(err, ErrInvalidHoldState) {
		t.Fatalf("second hold: want ErrInvalidHoldState, got %v", err)
	}
}

func TestSettlementMath(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	wg := mustCreateWager(t, st, ctx, &Wager{
		CreatorID: "winner", OpponentID: "loser", Status: StatusPendingConfirmation,
	})
	fundWallet(t, st, ctx, "winner", "1.0")
	fundWallet(t, st, ctx, "loser", "1.0")
	wagerID := wg.ID
	stake := dec(t, "0.1")

	if err := st.HoldFunds(ctx, "winner", stake, wagerID, "stake"); err != nil {
		t.Fatalf("hold winner: %v", err)
	}
	if err := st.HoldFunds(ctx, "loser", stake, wagerID, "stake"); err != nil {
		t.Fatalf("hold loser: %v", err)
	}

	// pot 0.2, 3% fee 0.006, payout 0.194
	err := st.SettleWager(ctx, WagerSettlement{
		WagerID: wagerID, WinnerID: "winner",
		Winners: []string{"winner"}, Losers: []string{"loser"},
		Payout: dec(t, "0.194"), Stake: stake,
		From:    []WagerStatus{StatusPendingConfirmation},
		WinMemo: "won", LossMemo: "lost",
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	w, err := st.GetWallet(ctx, "winner")
	if err != nil {
		t.Fatalf("get winner: %v", err)
	}
	if !w.Available.Equal(dec(t, "1.094")) || !w.Held.IsZero() {
		t.Fatalf("winner: available=%s held=%s", w.Available, w.Held)
	}
	if !w.TotalWon.Equal(dec(t, "0.094")) {
		t.Fatalf("winner total_won = %s", w.TotalWon)
	}

	l, err := st.GetWallet(ctx, "loser")
	if err != nil {
		t.Fatalf("get loser: %v", err)
	}
	if !l.Available.Equal(dec(t, "0.9")) || !l.Held.IsZero() {
		t.Fatalf("loser: available=%s held=%s", l.Available, l.Held)
	}
	if !l.TotalLost.Equal(stake) {
		t.Fatalf("loser total_lost = %s", l.TotalLost)
	}
}

func TestSettlePayoutBelowStakeRejected(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	wg := mustCreateWager(t, st, ctx, &Wager{
		CreatorID: "u1", OpponentID: "u2", Status: StatusPendingConfirmation,
	})
	fundWallet(t, st, ctx, "u1", "1.0")
	if err := st.HoldFunds(ctx, "u1", dec(t, "0.1"), wg.ID, "stake"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	err := st.SettleWager(ctx, WagerSettlement{
		WagerID: wg.ID, WinnerID: "u1",
		Winners: []string{"u1"}, Losers: []string{"u2"},
		Payout: dec(t, "0.05"), Stake: dec(t, "0.1"),
		From: []WagerStatus{StatusPendingConfirmation},
	})
	if !errors.Is(err, ErrLedgerIntegrity) {
		t.Fatalf("want ErrLedgerIntegrity, got %v", err)
	}
}

func TestDepositIdempotent(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if _, err := st.EnsureWallet(ctx, "u1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	credited, err := st.Deposit(ctx, "u1", dec(t, "0.5"), "tx-abc", "chain deposit")
	if err != nil || !credited {
		t.Fatalf("first deposit: credited=%v err=%v", credited, err)
	}
	credited, err = st.Deposit(ctx, "u1", dec(t, "0.5"), "tx-abc", "chain deposit")
	if err != nil {
		t.Fatalf("replayed deposit: %v", err)
	}
	if credited {
		t.Fatalf("replayed deposit credited again")
	}
	w, err := st.GetWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(dec(t, "0.5")) || !w.TotalDeposited.Equal(dec(t, "0.5")) {
		t.Fatalf("available=%s total_deposited=%s", w.Available, w.TotalDeposited)
	}
}

func TestWithdrawalConfirm(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	fundWallet(t, st, ctx, "u1", "1.0")
	id, err := st.ReserveWithdrawal(ctx, "u1", dec(t, "0.3"), "addr-dest")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	w, err := st.GetWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(dec(t, "0.7")) {
		t.Fatalf("available after reserve = %s", w.Available)
	}

	if err := st.ConfirmWithdrawal(ctx, id, "0xhash"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := st.ConfirmWithdrawal(ctx, id, "0xhash"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second confirm: want ErrConflict, got %v", err)
	}

	wd, err := st.GetWithdrawal(ctx, id)
	if err != nil {
		t.Fatalf("get withdrawal: %v", err)
	}
	if wd.Status != WithdrawalConfirmed || wd.TxHash != "0xhash" {
		t.Fatalf("withdrawal: status=%s hash=%s", wd.Status, wd.TxHash)
	}
}

func TestWithdrawalCancelRestoresBalance(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	fundWallet(t, st, ctx, "u1", "1.0")
	id, err := st.ReserveWithdrawal(ctx, "u1", dec(t, "0.3"), "addr-dest")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := st.CancelWithdrawal(ctx, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	w, err := st.GetWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !w.Available.Equal(dec(t, "1.0")) || !w.TotalWithdrawn.IsZero() {
		t.Fatalf("after cancel: available=%s total_withdrawn=%s", w.Available, w.TotalWithdrawn)
	}
	if err := st.CancelWithdrawal(ctx, id); !errors.Is(err, ErrConflict) {
		t.Fatalf("second cancel: want ErrConflict, got %v", err)
	}
}

func TestSetDepositAddressOnce(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if _, err := st.EnsureWallet(ctx, "u1"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := st.SetDepositAddress(ctx, "u1", "addr-1"); err != nil {
		t.Fatalf("set address: %v", err)
	}
	if err := st.SetDepositAddress(ctx, "u1", "addr-2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second set: want ErrConflict, got %v", err)
	}
	w, err := st.GetWallet(ctx, "u1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.DepositAddress != "addr-1" {
		t.Fatalf("deposit address = %s", w.DepositAddress)
	}
}

func TestWalletEntriesFilterByWager(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	fundWallet(t, st, ctx, "u1", "1.0")
	w1, w2 := NewID(), NewID()
	if err := st.HoldFunds(ctx, "u1", dec(t, "0.1"), w1, "stake"); err != nil {
		t.Fatalf("hold w1: %v", err)
	}
	if err := st.HoldFunds(ctx, "u1", dec(t, "0.2"), w2, "stake"); err != nil {
		t.Fatalf("hold w2: %v", err)
	}

	entries, err := st.ListWalletEntries(ctx, EntryFilter{WagerID: w1}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries for wager filter, want 1", len(entries))
	}
	if entries[0].Type != EntryHold || !entries[0].Amount.Equal(dec(t, "-0.1")) {
		t.Fatalf("entry: type=%s amount=%s", entries[0].Type, entries[0].Amount)
	}

	entries, err = st.ListWalletEntries(ctx, EntryFilter{UserID: "u1"}, 10, 0)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries for user, want 3", len(entries))
	}
}

func TestSettleWagerAtomic(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	w := mustCreateWager(t, st, ctx, &Wager{
		CreatorID: "winner", OpponentID: "loser", Status: StatusPendingConfirmation,
	})
	fundWallet(t, st, ctx, "winner", "1.0")
	if err := st.HoldFunds(ctx, "winner", dec(t, "0.1"), w.ID, "stake"); err != nil {
		t.Fatalf("hold: %v", err)
	}

	// The loser never staked: the whole settlement must roll back, status
	// change included.
	err := st.SettleWager(ctx, WagerSettlement{
		WagerID: w.ID, WinnerID: "winner",
		Winners: []string{"winner"}, Losers: []string{"loser"},
		Payout: dec(t, "0.194"), Stake: dec(t, "0.1"),
		From:    []WagerStatus{StatusPendingConfirmation},
		WinMemo: "won", LossMemo: "lost",
	})
	if !errors.Is(err, ErrInvalidHoldState) {
		t.Fatalf("want ErrInvalidHoldState, got %v", err)
	}
	got, err := st.GetWager(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPendingConfirmation || got.WinnerID != "" {
		t.Fatalf("status=%s winner=%q after rolled-back settlement", got.Status, got.WinnerID)
	}
	h, err := st.GetHold(ctx, "winner", w.ID)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if h.Status != HoldActive {
		t.Fatalf("winner hold status = %s", h.Status)
	}

	// With both holds in place the same settlement commits.
	fundWallet(t, st, ctx, "loser", "1.0")
	if err := st.HoldFunds(ctx, "loser", dec(t, "0.1"), w.ID, "stake"); err != nil {
		t.Fatalf("hold loser: %v", err)
	}
	err = st.SettleWager(ctx, WagerSettlement{
		WagerID: w.ID, WinnerID: "winner",
		Winners: []string{"winner"}, Losers: []string{"loser"},
		Payout: dec(t, "0.194"), Stake: dec(t, "0.1"),
		From:    []WagerStatus{StatusPendingConfirmation},
		WinMemo: "won", LossMemo: "lost",
	})
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	got, err = st.GetWager(ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.WinnerID != "winner" {
		t.Fatalf("final: status=%s winner=%s", got.Status, got.WinnerID)
	}
	win, err := st.GetWallet(ctx, "winner")
	if err != nil {
		t.Fatalf("winner wallet: %v", err)
	}
	if !win.Available.Equal(dec(t, "1.094")) || !win.Held.IsZero() {
		t.Fatalf("winner: available=%s held=%s", win.Available, win.Held)
	}
	lose, err := st.GetWallet(ctx, "loser")
	if err != nil {
		t.Fatalf("loser wallet: %v", err)
	}
	if !lose.Available.Equal(dec(t, "0.9")) || !lose.Held.IsZero() {
		t.Fatalf("loser: available=%s held=%s", lose.Available, lose.Held)
	}
}

func TestCreateWagerFundedAllOrNothing(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if _, err := st.EnsureWallet(ctx, "broke"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	w := &Wager{
		ID: NewID(), CreatorID: "broke", Game: "valorant", Stake: dec(t, "0.1"),
		Status: StatusOpen, Kind: KindSolo, TeamSize: 1, Verification: VerifyCustom,
	}
	var insufficient *InsufficientFundsError
	if err := st.CreateWagerFunded(ctx, w, "stake"); !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientFundsError, got %v", err)
	}
	if _, err := st.GetWager(ctx, w.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row should not exist, got %v", err)
	}

	fundWallet(t, st, ctx, "broke", "1.0")
	if err := st.CreateWagerFunded(ctx, w, "stake"); err != nil {
		t.Fatalf("funded create: %v", err)
	}
	h, err := st.GetHold(ctx, "broke", w.ID)
	if err != nil {
		t.Fatalf("get hold: %v", err)
	}
	if h.Status != HoldActive || !h.Amount.Equal(dec(t, "0.1")) {
		t.Fatalf("hold: status=%s amount=%s", h.Status, h.Amount)
	}
}
