// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the pocket money core; it depends on nothing
// but the decimal type.
package domain

import "time"

// ─── Persisted Documents ────────────────────────────────────────────────────

// Scope names. Isolated stores live under IsolatedScope(userID).
const (
	ScopeReal   = "real"
	ScopeGlobal = "global"

	isolatedPrefix = "isolated:"
)

// Document kinds.
const (
	KindLedger       = "ledger"
	KindInventory    = "inventory"
	KindCommendation = "commendation"
	KindBlacklist    = "blacklist"
)

// Document is one durable record: the full state of one store in one scope.
type Document struct {
	Scope     string    `json:"scope"`
	Kind      string    `json:"kind"`
	Version   int       `json:"version"`
	Body      []byte    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsolatedScope returns the storage scope for a sandboxed user.
func IsolatedScope(userID string) string { return isolatedPrefix + userID }

// LoadOutcome describes how a store obtained its state at startup.
type LoadOutcome int

const (
	LoadFresh     LoadOutcome = iota // nothing persisted; defaults used
	LoadOK                           // current version decoded
	LoadUpgraded                     // older version decoded and upgraded
	LoadRecovered                    // corrupt document replaced by defaults
)

// String returns a human-readable load outcome.
func (o LoadOutcome) String() string {
	switch o {
	case LoadFresh:
		return "fresh"
	case LoadOK:
		return "loaded"
	case LoadUpgraded:
		return "upgraded"
	case LoadRecovered:
		return "recovered"
	default:
		return "unknown"
	}
}
