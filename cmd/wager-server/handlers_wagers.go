package main

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/Somebody914/Wager-Bot/internal/dispute"
	"github.com/Somebody914/Wager-Bot/internal/ledger"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/wager"

	"github.com/go-chi/chi/v5"
)

func createWagerHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		CreatorID    string          `json:"creator_id"`
		OpponentID   string          `json:"opponent_id"`
		Game         string          `json:"game"`
		Stake        decimal.Decimal `json:"stake"`
		Kind         string          `json:"kind"`
		TeamID       string          `json:"team_id"`
		TeamSize     int             `json:"team_size"`
		SeatsPerSide int             `json:"seats_per_side"`
		Verification string          `json:"verification"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		kind := wager.Solo()
		switch store.WagerKind(req.Kind) {
		case store.KindTeam:
			kind = wager.Team(req.TeamID, req.TeamSize)
		case store.KindOpenRoster:
			kind = wager.OpenRoster(req.SeatsPerSide)
		}
		wg, err := svc.Create(r.Context(), wager.CreateInput{
			CreatorID:    req.CreatorID,
			OpponentID:   req.OpponentID,
			Game:         req.Game,
			Stake:        req.Stake,
			Kind:         kind,
			Verification: store.VerificationKind(req.Verification),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, wagerView(wg))
	}
}

func acceptWagerHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.Accept(r.Context(), chi.URLParam(r, "wager_id"), req.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func joinWagerHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
		Side   string `json:"side"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.JoinOpenRoster(r.Context(), chi.URLParam(r, "wager_id"), req.UserID, store.Side(req.Side))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func readyHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.SetReady(r.Context(), chi.URLParam(r, "wager_id"), req.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func submitResultHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID   string `json:"user_id"`
		MatchRef string `json:"match_ref"`
		ProofURL string `json:"proof_url"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.Submit(r.Context(), wager.SubmitInput{
			WagerID:  chi.URLParam(r, "wager_id"),
			UserID:   req.UserID,
			MatchRef: req.MatchRef,
			ProofURL: req.ProofURL,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func confirmResultHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.Confirm(r.Context(), chi.URLParam(r, "wager_id"), req.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func cancelWagerHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		wg, err := svc.Cancel(r.Context(), chi.URLParam(r, "wager_id"), req.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func openDisputeHandler(svc *wager.Service) http.HandlerFunc {
	type request struct {
		UserID   string `json:"user_id"`
		Reason   string `json:"reason"`
		Evidence string `json:"evidence"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		d, err := svc.Dispute(r.Context(), chi.URLParam(r, "wager_id"), req.UserID, req.Reason, req.Evidence)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"dispute_id": d.ID,
			"wager_id":   d.WagerID,
			"status":     d.Status,
		})
	}
}

func counterProofHandler(svc *wager.Service, disputes *dispute.Service) http.HandlerFunc {
	type request struct {
		UserID   string `json:"user_id"`
		Evidence string `json:"evidence"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		d, err := disputes.Get(r.Context(), chi.URLParam(r, "dispute_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		wg, err := svc.Get(r.Context(), d.WagerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := disputes.FileCounterProof(r.Context(), d.ID, req.UserID, wg, req.Evidence); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func castVoteHandler(svc *wager.Service, disputes *dispute.Service) http.HandlerFunc {
	type request struct {
		UserID string `json:"user_id"`
		Side   string `json:"side"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Side != string(store.SideCreator) && req.Side != string(store.SideOpponent) {
			writeHTTPError(w, http.StatusBadRequest, "invalid_side")
			return
		}
		d, err := disputes.Get(r.Context(), chi.URLParam(r, "dispute_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		wg, err := svc.Get(r.Context(), d.WagerID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := disputes.CastVote(r.Context(), d.ID, req.UserID, wg, store.Side(req.Side)); err != nil {
			writeServiceError(w, err)
			return
		}
		tally, err := disputes.VoteTally(r.Context(), d.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tally": tally})
	}
}

func disputeStatusHandler(disputes *dispute.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := disputes.Get(r.Context(), chi.URLParam(r, "dispute_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		tally, err := disputes.VoteTally(r.Context(), d.ID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := map[string]any{
			"dispute_id":       d.ID,
			"wager_id":         d.WagerID,
			"filer_id":         d.FilerID,
			"reason":           d.Reason,
			"evidence":         d.Evidence,
			"counter_evidence": d.CounterEvidence,
			"status":           d.Status,
			"tally":            tally,
			"created_at":       d.CreatedAt,
		}
		if d.Status == store.DisputeResolved {
			out["winner_id"] = d.WinnerID
			out["resolved_by"] = d.ResolvedBy
			out["resolution"] = d.Resolution
			out["resolved_at"] = d.ResolvedAt
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func withdrawHandler(led *ledger.Ledger) http.HandlerFunc {
	type request struct {
		UserID      string          `json:"user_id"`
		Amount      decimal.Decimal `json:"amount"`
		Destination string          `json:"destination"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Destination == "" {
			writeHTTPError(w, http.StatusBadRequest, "destination_required")
			return
		}
		wd, err := led.Withdraw(r.Context(), req.UserID, req.Amount, req.Destination)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"withdrawal_id": wd.ID,
			"amount":        wd.Amount,
			"destination":   wd.Destination,
			"status":        wd.Status,
			"tx_hash":       wd.TxHash,
		})
	}
}
