package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"telegram-credit-ledger/internal/application"
	"telegram-credit-ledger/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Server exposes the ledger operations to the bot front end and operators.
type Server struct {
	ledger  application.LedgerService
	auth    *AuthManager
	log     *zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewServer(ledger application.LedgerService, auth *AuthManager, timeout time.Duration, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "api").Logger()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Server{ledger: ledger, auth: auth, log: &l, timeout: timeout, now: func() time.Time { return time.Now().UTC() }}
}

// Routes builds the full handler tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireToken(s.auth, s.log), Timeout(s.timeout))

		r.Post("/accounts", s.createAccount)
		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", s.getAccount)
			r.Delete("/", s.deleteAccount)
			r.Post("/balance", s.adjustBalance)
			r.Post("/charge", s.chargeUsage)
			r.Post("/ban", s.setBanned)
			r.Post("/touch", s.touchAccount)
			r.Get("/stats", s.accountStats)
			r.Get("/ledger", s.accountLedger)
			r.Get("/redemptions", s.accountRedemptions)
		})

		r.Post("/redemptions", s.redeem)

		r.Post("/codes", s.createCode)
		r.Get("/codes", s.listCodes)
		r.Post("/codes/cleanup", s.cleanupCodes)
		r.Route("/codes/{code}", func(r chi.Router) {
			r.Get("/", s.getCode)
			r.Delete("/", s.deleteCode)
			r.Post("/deactivate", s.deactivateCode)
			r.Get("/claimants", s.codeClaimants)
		})

		r.Post("/bulk/balance", s.bulkAdjust)

		r.Get("/stats", s.totals)
		r.Get("/stats/referrers", s.topReferrers)
		r.Get("/stats/leaderboard", s.leaderboard)
		r.Get("/stats/recent", s.recentAccounts)
		r.Get("/stats/inactive", s.inactiveAccounts)
		r.Get("/stats/joined", s.joinedBetween)

		r.Get("/durations/parse", s.parseDuration)
	})

	return Chain(r, Recover(s.log), TraceID(), Metrics(), RequestLog(s.log))
}

// HTTPServer owns the listener lifecycle.
type HTTPServer struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewHTTPServer(port int, handler http.Handler, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log: logger,
	}
}

// Start blocks until the server stops; a graceful Shutdown yields nil.
func (h *HTTPServer) Start() error {
	h.log.Info().Str("addr", h.srv.Addr).Msg("api listening")
	if err := h.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HTTPServer) Shutdown(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}
