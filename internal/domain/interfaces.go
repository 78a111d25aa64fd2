package domain

import (
	"github.com/shopspring/decimal"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// DocumentStore abstracts durable storage of whole-store documents.
// Every store serializes to exactly one document per (scope, kind).
type DocumentStore interface {
	// GetDocument returns ErrDocumentNotFound when nothing is stored.
	GetDocument(scope, kind string) (Document, error)
	PutDocument(doc Document) error
	DeleteScope(scope string) error
	ListDocuments() ([]Document, error)
}

// Ledger is the capability the tag engine and the command layer use to
// touch money. Real and isolated ledgers both satisfy it.
type Ledger interface {
	Balance() decimal.Decimal
	SavingsBalance() decimal.Decimal
	AddIncome(amount decimal.Decimal, reason, operator string) error
	AddExpense(amount decimal.Decimal, reason, operator string) error
	SpendUpTo(amount decimal.Decimal, reason, operator string) (Transaction, error)
	SetBalance(amount decimal.Decimal, reason, operator string) error
	AddBonus(amount decimal.Decimal) error
	RevokeBonus(amount decimal.Decimal) error
	ApplyWithdrawal(amount decimal.Decimal, reason string, src Source) (string, error)
	Records() []Transaction
	RecentIncome(n int) []Transaction
	RecentExpense(n int) []Transaction
	Notes() []string
	PendingWithdrawals() []WithdrawalRequest
	TodayExpense() decimal.Decimal
}

// Inventory is the capability for item slots. Real and isolated
// inventories both satisfy it.
type Inventory interface {
	AddSharedItem(name, description string) error
	UseSharedItem(name string) error
	AddUserGift(userID, name, description, from string) error
	UseUserItem(userID, name string) error
	SharedItems() []Item
	UserItems(userID string) []GiftItem
	SharedSummary() string
	UserSummary(userID string) string
	MaxSharedSlots() int
	MaxUserSlots() int
}
