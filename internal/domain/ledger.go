package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Ledger Types ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// The ledger store in internal/app/ledger is the sole writer of them.

// TxKind represents the accounting side of a transaction.
type TxKind string

const (
	TxIncome  TxKind = "income"
	TxExpense TxKind = "expense"
)

// Transaction is a single immutable row in the pocket money history.
type Transaction struct {
	Kind     TxKind          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	Time     time.Time       `json:"time"`
	Operator string          `json:"operator,omitempty"`
}

// WithdrawalStatus is the lifecycle state of a savings withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Source records where a withdrawal request came from, so the decision
// can be routed back to the originating chat.
type Source struct {
	Channel  string `json:"channel,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	UserName string `json:"user_name,omitempty"`
}

// WithdrawalRequest asks for funds to move from savings back to the balance.
// Pending → Approved | Rejected, exactly once.
type WithdrawalRequest struct {
	ID           string           `json:"id"`
	Amount       decimal.Decimal  `json:"amount"`
	Reason       string           `json:"reason"`
	CreatedAt    time.Time        `json:"created_at"`
	Status       WithdrawalStatus `json:"status"`
	Source       Source           `json:"source"`
	DecidedAt    *time.Time       `json:"decided_at,omitempty"`
	DecidedBy    string           `json:"decided_by,omitempty"`
	RejectReason string           `json:"reject_reason,omitempty"`
}

// IsPending reports whether the request still awaits a decision.
func (w WithdrawalRequest) IsPending() bool { return w.Status == WithdrawalPending }

// SumByKind totals the amounts of the given kind.
func SumByKind(records []Transaction, kind TxKind) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Kind == kind {
			total = total.Add(r.Amount)
		}
	}
	return total
}
