package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/ledger"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/wager"

	"github.com/go-chi/chi/v5"
)

func resolveDisputeHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		ModeratorID string `json:"moderator_id"`
		Verdict     string `json:"verdict"`
		Resolution  string `json:"resolution"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.ResolveDispute(r.Context(), wager.ResolveInput{
			WagerID:     chi.URLParam(r, "wager_id"),
			ModeratorID: req.ModeratorID,
			Verdict:     req.Verdict,
			Resolution:  req.Resolution,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

// adminCreditHandler is the manual topup path. The credit rides the regular
// deposit flow with a synthetic reference, so it shows up in the ledger like
// any other funding event.
func adminCreditHandler(led *ledger.Ledger) http.HandlerFunc {
	type request struct {
		UserID string          `json:"user_id"`
		Amount decimal.Decimal `json:"amount"`
		Memo   string          `json:"memo"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if req.UserID == "" {
			writeHTTPError(w, http.StatusBadRequest, "user_id_required")
			return
		}
		credited, err := led.Deposit(r.Context(), req.UserID, req.Amount, "admin:"+store.NewID())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"credited": credited})
	}
}

func wagerLedgerHandler(led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := led.WagerEntries(r.Context(), chi.URLParam(r, "wager_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, map[string]any{
				"id":          e.ID,
				"user_id":     e.UserID,
				"type":        e.Type,
				"amount":      e.Amount,
				"description": e.Description,
				"created_at":  e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out})
	}
}
