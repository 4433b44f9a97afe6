package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/escrow"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/wager"

	"github.com/go-chi/chi/v5"
)

// openEscrowHandler attaches an escrow account to a matched wager so both
// sides can stake off-platform.
func openEscrowHandler(svc *wager.Service, esc *escrow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wagerID := chi.URLParam(r, "wager_id")
		wg, err := svc.Get(r.Context(), wagerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if wg.Terminal() {
			writeServiceError(w, &wager.WrongStatusError{Operation: "escrow", Current: wg.Status})
			return
		}
		acct, err := esc.Open(r.Context(), wagerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, acct)
	}
}

// escrowDepositHandler is the treasury watcher reporting a stake arriving at
// the escrow address.
func escrowDepositHandler(esc *escrow.Service) http.HandlerFunc {
	type request struct {
		UserID string          `json:"user_id"`
		Side   string          `json:"side"`
		Amount decimal.Decimal `json:"amount"`
		TxHash string          `json:"tx_hash"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		side := store.Side(req.Side)
		if side != store.SideCreator && side != store.SideOpponent {
			writeHTTPError(w, http.StatusBadRequest, "invalid_side")
			return
		}
		acct, err := esc.ConfirmDeposit(r.Context(), chi.URLParam(r, "wager_id"), side, req.Amount, req.UserID, req.TxHash)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}
