package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/tags"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

const defaultOperator = "admin"

// ─── Responses ──────────────────────────────────────────────────────────────

// handleProcess handles POST /v1/responses/process.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req tags.Response
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	res, err := s.d.Engine.Process(r.Context(), req)
	if err != nil {
		s.logger.Error("process response", zap.String("message", req.MessageID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, a := range res.Actions {
		s.feed.Broadcast(FeedEvent{MessageID: req.MessageID, UserID: req.UserID, Action: a})
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRecentActions handles GET /v1/actions/recent?limit=N.
func (s *Server) handleRecentActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"events": s.d.Journal.Recent(queryInt(r, "limit", 50)),
	})
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

type ledgerView struct {
	Scope        string                     `json:"scope"`
	Isolated     bool                       `json:"isolated"`
	Balance      decimal.Decimal            `json:"balance"`
	Savings      decimal.Decimal            `json:"savings"`
	TodayExpense decimal.Decimal            `json:"today_expense"`
	Records      []domain.Transaction       `json:"records"`
	Notes        []string                   `json:"notes"`
	Pending      []domain.WithdrawalRequest `json:"pending_withdrawals"`
}

// handleLedger handles GET /v1/ledger?user=ID&limit=N.
// Without a user the real ledger is shown.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	scope, err := s.d.Proxy.Resolve(r.URL.Query().Get("user"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	l := scope.Ledger
	records := l.Records()
	if n := queryInt(r, "limit", 10); len(records) > n {
		records = records[len(records)-n:]
	}
	name := "real"
	if scope.Isolated {
		name = "isolated"
	}
	writeJSON(w, http.StatusOK, ledgerView{
		Scope:        name,
		Isolated:     scope.Isolated,
		Balance:      l.Balance(),
		Savings:      l.SavingsBalance(),
		TodayExpense: l.TodayExpense(),
		Records:      records,
		Notes:        l.Notes(),
		Pending:      l.PendingWithdrawals(),
	})
}

type moneyRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	Operator string          `json:"operator"`
}

func (m *moneyRequest) defaults(reason string) {
	if m.Reason == "" {
		m.Reason = reason
	}
	if m.Operator == "" {
		m.Operator = defaultOperator
	}
}

// moneyHandler runs an admin mutation of the real ledger. The proxy
// replays it into every isolated ledger.
func (s *Server) moneyHandler(defReason string, apply func(decimal.Decimal, string, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moneyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.defaults(defReason)
		if err := apply(req.Amount, req.Reason, req.Operator); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"balance": s.d.Ledger.Balance(),
		})
	}
}

// handleIncome handles POST /v1/ledger/income.
func (s *Server) handleIncome(w http.ResponseWriter, r *http.Request) {
	s.moneyHandler("allowance", s.d.Proxy.AddIncome)(w, r)
}

// handleExpense handles POST /v1/ledger/expense.
func (s *Server) handleExpense(w http.ResponseWriter, r *http.Request) {
	s.moneyHandler(tags.DefaultReason, s.d.Proxy.AddExpense)(w, r)
}

// handleSetBalance handles PUT /v1/ledger/balance.
func (s *Server) handleSetBalance(w http.ResponseWriter, r *http.Request) {
	s.moneyHandler("manual adjustment", s.d.Proxy.SetBalance)(w, r)
}

// ─── Withdrawals ────────────────────────────────────────────────────────────

// handlePendingWithdrawals handles GET /v1/withdrawals.
func (s *Server) handlePendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": s.d.Ledger.PendingWithdrawals(),
	})
}

type decisionRequest struct {
	Operator string `json:"operator"`
	Reason   string `json:"reason"`
}

func (s *Server) decodeDecision(w http.ResponseWriter, r *http.Request) (decisionRequest, bool) {
	var req decisionRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return req, false
	}
	if req.Operator == "" {
		req.Operator = defaultOperator
	}
	return req, true
}

// handleApproveWithdrawal handles POST /v1/withdrawals/{id}/approve.
func (s *Server) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDecision(w, r)
	if !ok {
		return
	}
	wr, err := s.d.Ledger.ApproveWithdrawal(chi.URLParam(r, "id"), req.Operator)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wr)
}

// handleRejectWithdrawal handles POST /v1/withdrawals/{id}/reject.
func (s *Server) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeDecision(w, r)
	if !ok {
		return
	}
	wr, err := s.d.Ledger.RejectWithdrawal(chi.URLParam(r, "id"), req.Reason, req.Operator)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wr)
}

// ─── Inventory ──────────────────────────────────────────────────────────────

// handleInventory handles GET /v1/inventory?user=ID.
func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	scope, err := s.d.Proxy.Resolve(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]any{
		"isolated":       scope.Isolated,
		"shared":         scope.Inventory.SharedItems(),
		"shared_summary": scope.Inventory.SharedSummary(),
	}
	if user != "" {
		resp["gifts"] = scope.Inventory.UserItems(user)
		resp["gift_summary"] = scope.Inventory.UserSummary(user)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Persona Context ────────────────────────────────────────────────────────

// handleContext handles GET /v1/context?user=ID.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}
	ctx, err := s.d.Context(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ctx)
}

// handleAllowance handles GET /v1/allowance.
func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.d.Allowance())
}

// ─── Commendations ──────────────────────────────────────────────────────────

type rankingEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// handleRanking handles GET /v1/commendations/ranking?top=N.
func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	entries := s.d.Commendations.Ranking(queryInt(r, "top", 10))
	out := make([]rankingEntry, len(entries))
	for i, e := range entries {
		out[i] = rankingEntry{Rank: i + 1, UserID: e.UserID(), Name: e.DisplayName(), Count: e.Count}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ranking":     out,
		"today_bonus": s.d.Commendations.TodayBonus(),
		"total_bonus": s.d.Commendations.TotalBonus(),
	})
}

// handleCommend handles POST /v1/commendations.
func (s *Server) handleCommend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	res, err := s.d.Commend(req.UserID, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Blacklist ──────────────────────────────────────────────────────────────

// handleBlacklist handles GET /v1/blacklist.
func (s *Server) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"users": s.d.Proxy.Blacklist(),
	})
}

// handleBlacklistAdd handles PUT /v1/blacklist/{user}.
func (s *Server) handleBlacklistAdd(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Proxy.Add(chi.URLParam(r, "user")); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleBlacklist(w, r)
}

// handleBlacklistRemove handles DELETE /v1/blacklist/{user}.
func (s *Server) handleBlacklistRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.d.Proxy.Remove(chi.URLParam(r, "user")); err != nil {
		writeDomainError(w, err)
		return
	}
	s.handleBlacklist(w, r)
}
