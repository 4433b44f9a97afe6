package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/ledger"

	"github.com/go-chi/chi/v5"
)

// Treasury callbacks. The watcher reports confirmed on-chain deposits and
// the outcome of payout instructions.

func depositCallbackHandler(led *ledger.Ledger) http.HandlerFunc {
	type request struct {
		UserID string          `json:"user_id"`
		Amount decimal.Decimal `json:"amount"`
		TxHash string          `json:"tx_hash"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" || req.TxHash == "" {
			writeHTTPError(w, http.StatusBadRequest, "user_id_and_tx_hash_required")
			return
		}
		credited, err := led.Deposit(r.Context(), req.UserID, req.Amount, req.TxHash)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"credited": credited})
	}
}

func confirmWithdrawalHandler(led *ledger.Ledger) http.HandlerFunc {
	type request struct {
		TxHash string `json:"tx_hash"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if err := led.ConfirmWithdrawal(r.Context(), chi.URLParam(r, "withdrawal_id"), req.TxHash); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func cancelWithdrawalHandler(led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := led.CancelWithdrawal(r.Context(), chi.URLParam(r, "withdrawal_id")); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
