package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Somebody914/Wager-Bot/internal/dispute"
	"github.com/Somebody914/Wager-Bot/internal/escrow"
	"github.com/Somebody914/Wager-Bot/internal/logging"
	"github.com/Somebody914/Wager-Bot/internal/reputation"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/wager"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

func apiLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("path", req.URL.Path),
				}
			},
		},
	)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeHTTPError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

// writeServiceError maps domain errors onto HTTP statuses. Unknown errors
// stay opaque 500s.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		wrongStatus  *wager.WrongStatusError
		validation   *wager.ValidationError
		insufficient *store.InsufficientFundsError
		lowRep       *reputation.InsufficientError
		escrowState  *escrow.InvalidStateError
	)
	switch {
	case errors.As(err, &validation):
		writeHTTPError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, wager.ErrInvalidRequest):
		writeHTTPError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, wager.ErrNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, dispute.ErrNotFound),
		errors.Is(err, escrow.ErrNotFound):
		writeHTTPError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, wager.ErrOwnWager),
		errors.Is(err, wager.ErrNotParticipant),
		errors.Is(err, wager.ErrNotCreator),
		errors.Is(err, wager.ErrSelfConfirm),
		errors.Is(err, dispute.ErrNotOpposingParty),
		errors.Is(err, dispute.ErrParticipantVote):
		writeHTTPError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &wrongStatus):
		writeHTTPError(w, http.StatusConflict, wrongStatus.Error())
	case errors.As(err, &escrowState):
		writeHTTPError(w, http.StatusConflict, escrowState.Error())
	case errors.Is(err, wager.ErrAlreadyAccepted),
		errors.Is(err, wager.ErrAlreadyReady),
		errors.Is(err, wager.ErrAlreadyJoined),
		errors.Is(err, wager.ErrRosterFull),
		errors.Is(err, dispute.ErrAlreadyOpen),
		errors.Is(err, dispute.ErrAlreadyResolved),
		errors.Is(err, dispute.ErrCounterProofTaken),
		errors.Is(err, store.ErrConflict):
		writeHTTPError(w, http.StatusConflict, err.Error())
	case errors.As(err, &insufficient),
		errors.As(err, &lowRep),
		errors.Is(err, wager.ErrProofRequired),
		errors.Is(err, wager.ErrClaimContradicted),
		errors.Is(err, dispute.ErrInvalidEvidence),
		errors.Is(err, store.ErrInvalidHoldState):
		writeHTTPError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeHTTPError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func keyAuthMiddleware(key, header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && !checkKey(r, key, header) {
				writeHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkKey(r *http.Request, key, header string) bool {
	if v := r.Header.Get(header); v == key {
		return true
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):] == key
	}
	return false
}
