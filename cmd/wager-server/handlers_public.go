package main

import (
	"net/http"

	"github.com/Somebody914/Wager-Bot/internal/escrow"
	"github.com/Somebody914/Wager-Bot/internal/ledger"
	"github.com/Somebody914/Wager-Bot/internal/reputation"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/wager"

	"github.com/go-chi/chi/v5"
)

func wagerView(w *store.Wager) map[string]any {
	out := map[string]any{
		"id":             w.ID,
		"creator_id":     w.CreatorID,
		"opponent_id":    w.OpponentID,
		"game":           w.Game,
		"stake":          w.Stake,
		"status":         w.Status,
		"kind":           w.Kind,
		"team_size":      w.TeamSize,
		"verification":   w.Verification,
		"creator_ready":  w.CreatorReady,
		"opponent_ready": w.OpponentReady,
		"created_at":     w.CreatedAt,
		"updated_at":     w.UpdatedAt,
	}
	if w.TeamID != "" {
		out["team_id"] = w.TeamID
	}
	if w.WinnerID != "" {
		out["winner_id"] = w.WinnerID
	}
	if w.SubmittedBy != "" {
		out["submitted_by"] = w.SubmittedBy
		out["match_ref"] = w.MatchRef
		out["proof_url"] = w.ProofURL
	}
	if w.ReadyDeadline != nil {
		out["ready_deadline"] = w.ReadyDeadline
	}
	if w.ConfirmDeadline != nil {
		out["confirm_deadline"] = w.ConfirmDeadline
	}
	return out
}

func listOpenWagersHandler(svc *wager.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := parsePagination(r)
		items, err := svc.ListOpen(r.Context(), r.URL.Query().Get("game"), limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(items))
		for i := range items {
			out = append(out, wagerView(&items[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "limit": limit, "offset": offset})
	}
}

func getWagerHandler(svc *wager.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wg, err := svc.Get(r.Context(), chi.URLParam(r, "wager_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wagerView(wg))
	}
}

func listUserWagersHandler(svc *wager.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := parsePagination(r)
		items, err := svc.ListMine(r.Context(), chi.URLParam(r, "user_id"), limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(items))
		for i := range items {
			out = append(out, wagerView(&items[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "limit": limit, "offset": offset})
	}
}

func userStatsHandler(svc *wager.Service, rep *reputation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		stats, err := svc.Stats(r.Context(), userID, r.URL.Query().Get("game"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		score, err := rep.Score(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":        stats.UserID,
			"total_matches":  stats.TotalMatches,
			"wins":           stats.Wins,
			"losses":         stats.Losses,
			"total_wagered":  stats.TotalWagered,
			"total_earnings": stats.TotalEarnings,
			"reputation":     score,
			"standing":       reputation.Standing(score),
		})
	}
}

func leaderboardHandler(svc *wager.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := parsePagination(r)
		rows, err := svc.Leaderboard(r.Context(), r.URL.Query().Get("game"), limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			out = append(out, map[string]any{
				"user_id":       row.UserID,
				"total_matches": row.TotalMatches,
				"wins":          row.Wins,
				"losses":        row.Losses,
				"total_wagered": row.TotalWagered,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out})
	}
}

func escrowStatusHandler(esc *escrow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := esc.Status(r.Context(), chi.URLParam(r, "wager_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func balanceHandler(led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := led.Balance(r.Context(), chi.URLParam(r, "user_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func walletHistoryHandler(led *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := parsePagination(r)
		entries, err := led.History(r.Context(), chi.URLParam(r, "user_id"), limit, offset)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, map[string]any{
				"id":          e.ID,
				"type":        e.Type,
				"amount":      e.Amount,
				"ref_type":    e.RefType,
				"ref_id":      e.RefID,
				"description": e.Description,
				"created_at":  e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": out, "limit": limit, "offset": offset})
	}
}

func reputationHistoryHandler(rep *reputation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		limit, _ := parsePagination(r)
		events, err := rep.History(r.Context(), userID, limit)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		score, err := rep.Score(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]map[string]any, 0, len(events))
		for _, e := range events {
			out = append(out, map[string]any{
				"kind":        e.Kind,
				"points":      e.Points,
				"wager_id":    e.WagerID,
				"description": e.Description,
				"created_at":  e.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user_id":  userID,
			"score":    score,
			"standing": reputation.Standing(score),
			"events":   out,
		})
	}
}
