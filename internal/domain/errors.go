package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure; callers match them with errors.Is.

var (
	// Ledger errors
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNegativeBalance     = errors.New("balance cannot be negative")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrInsufficientSavings = errors.New("insufficient savings")
	ErrWithdrawalNotFound  = errors.New("no pending withdrawal with that id")
	ErrWithdrawalDecided   = errors.New("withdrawal already decided")
	ErrNoteIndex           = errors.New("note index out of range")

	// Inventory errors
	ErrSharedSlotsFull = errors.New("shared inventory is full")
	ErrUserSlotsFull   = errors.New("user gift slots are full")
	ErrItemNotFound    = errors.New("item not found")
	ErrEmptyItemName   = errors.New("item name is empty")

	// Commendation errors
	ErrAlreadyCommended = errors.New("user already sent a commendation today")

	// Isolation errors
	ErrAlreadyBlacklisted = errors.New("user already blacklisted")
	ErrNotBlacklisted     = errors.New("user not blacklisted")

	// Storage errors
	ErrDocumentNotFound = errors.New("document not found")
	ErrCorruptDocument  = errors.New("persisted document is corrupt")
	ErrStoreRetired     = errors.New("store retired; its scope was dropped")
)
