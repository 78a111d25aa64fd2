// Package api provides the HTTP server for the pocket money daemon.
// The chat framework posts model responses here; the admin tools read and
// adjust the stores.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/daemon"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// Server is the pocket money HTTP API server.
type Server struct {
	d              *daemon.Daemon
	feed           *ActionFeed
	metricsEnabled bool
	logger         *zap.Logger
}

// NewServer creates a new API server over an opened daemon.
func NewServer(d *daemon.Daemon) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		d:      d,
		feed:   NewActionFeed(),
		logger: logger.Named("api"),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Feed returns the live action feed.
func (s *Server) Feed() *ActionFeed { return s.feed }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/v1", func(r chi.Router) {
		// Streaming routes sit outside the timeout group.
		r.Get("/actions/live", s.feed.HandleSSE)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Post("/responses/process", s.handleProcess)
			r.Get("/actions/recent", s.handleRecentActions)

			r.Get("/ledger", s.handleLedger)
			r.Post("/ledger/income", s.handleIncome)
			r.Post("/ledger/expense", s.handleExpense)
			r.Put("/ledger/balance", s.handleSetBalance)

			r.Get("/withdrawals", s.handlePendingWithdrawals)
			r.Post("/withdrawals/{id}/approve", s.handleApproveWithdrawal)
			r.Post("/withdrawals/{id}/reject", s.handleRejectWithdrawal)

			r.Get("/inventory", s.handleInventory)

			r.Get("/context", s.handleContext)
			r.Get("/allowance", s.handleAllowance)

			r.Get("/commendations/ranking", s.handleRanking)
			r.Post("/commendations", s.handleCommend)

			r.Get("/blacklist", s.handleBlacklist)
			r.Put("/blacklist/{user}", s.handleBlacklistAdd)
			r.Delete("/blacklist/{user}", s.handleBlacklistRemove)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a store error to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNegativeBalance),
		errors.Is(err, domain.ErrEmptyItemName),
		errors.Is(err, domain.ErrNoteIndex):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWithdrawalNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrNotBlacklisted):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientSavings),
		errors.Is(err, domain.ErrSharedSlotsFull),
		errors.Is(err, domain.ErrUserSlotsFull),
		errors.Is(err, domain.ErrAlreadyCommended),
		errors.Is(err, domain.ErrAlreadyBlacklisted),
		errors.Is(err, domain.ErrWithdrawalDecided):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// queryInt reads a positive integer query parameter.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
