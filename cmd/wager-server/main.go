package main

import (
	"context"
	"expvar"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Somebody914/Wager-Bot/internal/config"
	"github.com/Somebody914/Wager-Bot/internal/dispute"
	"github.com/Somebody914/Wager-Bot/internal/escrow"
	"github.com/Somebody914/Wager-Bot/internal/ledger"
	"github.com/Somebody914/Wager-Bot/internal/logging"
	"github.com/Somebody914/Wager-Bot/internal/notify"
	"github.com/Somebody914/Wager-Bot/internal/reputation"
	"github.com/Somebody914/Wager-Bot/internal/scheduler"
	"github.com/Somebody914/Wager-Bot/internal/store"
	"github.com/Somebody914/Wager-Bot/internal/treasury"
	"github.com/Somebody914/Wager-Bot/internal/verify"
	"github.com/Somebody914/Wager-Bot/internal/wager"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcs, err := buildServices(st, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service wiring failed")
	}
	svcs.notifier.Start(ctx)

	sched := scheduler.New(svcs.wagers, time.Duration(cfg.Wager.SweepIntervalSecs)*time.Second)
	sched.Start(ctx)

	r := newRouter(st, cfg.Server, svcs)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

type services struct {
	ledger   *ledger.Ledger
	rep      *reputation.Service
	disputes *dispute.Service
	escrow   *escrow.Service
	wagers   *wager.Service
	notifier *notify.Manager
}

func buildServices(st *store.Store, cfg config.AppConfig) (*services, error) {
	treas := treasury.NewStatic(cfg.Server.TreasurySeed)
	led := ledger.New(st, treas)
	rep := reputation.NewService(st, cfg.Wager.CreateScore, cfg.Wager.ParticipateScore)
	disputes := dispute.NewService(st)
	esc := escrow.NewService(st, treas)
	oracle := verify.NewHTTPOracle(cfg.Server.VerifyBaseURL, cfg.Server.VerifyAPIKey,
		time.Duration(cfg.Server.VerifyTimeoutMS)*time.Millisecond)

	var sender notify.Sender
	if cfg.Server.NotifyWebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.Server.NotifyWebhookURL, cfg.Server.NotifySecret, 5*time.Second)
	}
	notifier := notify.NewManager(notify.Config{
		Enabled:   cfg.Server.NotifyWebhookURL != "",
		Workers:   cfg.Server.NotifyWorkers,
		RetryMax:  cfg.Server.NotifyRetryMax,
		RetryBase: time.Duration(cfg.Server.NotifyRetryBaseMS) * time.Millisecond,
	}, sender)

	wagers, err := wager.NewService(st, led, rep, disputes, esc, oracle, notifier, cfg.Wager)
	if err != nil {
		return nil, err
	}
	return &services{
		ledger:   led,
		rep:      rep,
		disputes: disputes,
		escrow:   esc,
		wagers:   wagers,
		notifier: notifier,
	}, nil
}

func newRouter(st *store.Store, cfg config.ServerConfig, svcs *services) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(st))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())

		r.Get("/wagers", listOpenWagersHandler(svcs.wagers))
		r.Get("/wagers/{wager_id}", getWagerHandler(svcs.wagers))
		r.Get("/wagers/{wager_id}/escrow", escrowStatusHandler(svcs.escrow))
		r.Get("/disputes/{dispute_id}", disputeStatusHandler(svcs.disputes))
		r.Get("/users/{user_id}/wagers", listUserWagersHandler(svcs.wagers))
		r.Get("/users/{user_id}/stats", userStatsHandler(svcs.wagers, svcs.rep))
		r.Get("/users/{user_id}/balance", balanceHandler(svcs.ledger))
		r.Get("/users/{user_id}/ledger", walletHistoryHandler(svcs.ledger))
		r.Get("/users/{user_id}/reputation", reputationHistoryHandler(svcs.rep))
		r.Get("/leaderboard", leaderboardHandler(svcs.wagers))

		r.Post("/wagers", createWagerHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/accept", acceptWagerHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/join", joinWagerHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/ready", readyHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/submit", submitResultHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/confirm", confirmResultHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/cancel", cancelWagerHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/dispute", openDisputeHandler(svcs.wagers))
		r.Post("/wagers/{wager_id}/escrow", openEscrowHandler(svcs.wagers, svcs.escrow))
		r.Post("/disputes/{dispute_id}/counter-proof", counterProofHandler(svcs.wagers, svcs.disputes))
		r.Post("/disputes/{dispute_id}/vote", castVoteHandler(svcs.wagers, svcs.disputes))
		r.Post("/withdrawals", withdrawHandler(svcs.ledger))

		r.Group(func(r chi.Router) {
			r.Use(keyAuthMiddleware(cfg.TreasuryAPIKey, "X-Treasury-Key"))
			r.Post("/treasury/deposits", depositCallbackHandler(svcs.ledger))
			r.Post("/treasury/withdrawals/{withdrawal_id}/confirm", confirmWithdrawalHandler(svcs.ledger))
			r.Post("/treasury/withdrawals/{withdrawal_id}/cancel", cancelWithdrawalHandler(svcs.ledger))
			r.Post("/treasury/escrow/{wager_id}/deposit", escrowDepositHandler(svcs.escrow))
		})

		r.Group(func(r chi.Router) {
			r.Use(keyAuthMiddleware(cfg.AdminAPIKey, "X-Admin-Key"))
			r.Post("/admin/wagers/{wager_id}/resolve", resolveDisputeHandler(svcs.wagers))
			r.Post("/admin/credit", adminCreditHandler(svcs.ledger))
			r.Get("/admin/wagers/{wager_id}/ledger", wagerLedgerHandler(svcs.ledger))
			r.Get("/admin/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "db_unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
