// Package observability provides the pocket money metrics and the in-memory
// action journal.
//
// This provides:
//   - Prometheus counters for tag processing, store loads and mirroring
//   - A bounded journal of recent engine actions for the admin API
package observability

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ═══════════════════════════════════════════════════════════════════════════
// Action Journal: ring buffer of what the tag engine did
// ═══════════════════════════════════════════════════════════════════════════

// Outcome classifies what happened to a tag.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // state mutated
	OutcomeRejected  Outcome = "rejected"  // parsed, but the store refused it
	OutcomeMalformed Outcome = "malformed" // stripped, fields did not parse
	OutcomeIgnored   Outcome = "ignored"   // stripped, superseded or no-op kind
)

// Event is one journal entry.
type Event struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	UserID   string    `json:"user_id,omitempty"`
	Isolated bool      `json:"isolated,omitempty"`
	Outcome  Outcome   `json:"outcome"`
	Detail   string    `json:"detail,omitempty"`
}

// Journal keeps the most recent events.
type Journal struct {
	mu        sync.Mutex
	events    []Event
	maxEvents int
	enabled   bool
}

// JournalConfig configures the journal.
type JournalConfig struct {
	Enabled   bool
	MaxEvents int // ring buffer size (default 1_000)
}

// DefaultJournalConfig returns production defaults.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Enabled:   true,
		MaxEvents: 1_000,
	}
}

// NewJournal creates a new journal.
func NewJournal(cfg JournalConfig) *Journal {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultJournalConfig().MaxEvents
	}
	return &Journal{
		events:    make([]Event, 0, cfg.MaxEvents),
		maxEvents: cfg.MaxEvents,
		enabled:   cfg.Enabled,
	}
}

// Record appends an event and counts it.
func (j *Journal) Record(ev Event) {
	TagsProcessed.WithLabelValues(ev.Kind, string(ev.Outcome)).Inc()
	if j == nil || !j.enabled {
		return
	}
	if ev.ID == "" {
		ev.ID = generateID()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	// Ring buffer: overwrite oldest if at capacity
	if len(j.events) >= j.maxEvents {
		j.events = j.events[1:]
	}
	j.events = append(j.events, ev)
}

// Recent returns a copy of the most recent events, oldest first.
func (j *Journal) Recent(limit int) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 || limit > len(j.events) {
		limit = len(j.events)
	}

	start := len(j.events) - limit
	out := make([]Event, limit)
	copy(out, j.events[start:])
	return out
}

// Count returns the number of retained events.
func (j *Journal) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.events)
}

// Reset clears all retained events.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = j.events[:0]
}

var eventCounter atomic.Int64

func generateID() string {
	n := eventCounter.Add(1)
	return fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), n)
}

// ═══════════════════════════════════════════════════════════════════════════
// Prometheus Metrics
// ═══════════════════════════════════════════════════════════════════════════

// ─── Engine Metrics ─────────────────────────────────────────────────────────

// TagsProcessed counts tags by kind and outcome.
var TagsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "engine",
	Name:      "tags_total",
	Help:      "Total tags extracted from model responses by kind and outcome.",
}, []string{"kind", "outcome"})

// ResponsesProcessed counts responses that went through the engine.
var ResponsesProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "engine",
	Name:      "responses_total",
	Help:      "Total model responses processed.",
})

// ResponsesDuplicate counts redelivered responses skipped by fingerprint.
var ResponsesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "engine",
	Name:      "duplicate_responses_total",
	Help:      "Total responses skipped because their fingerprint was already seen.",
})

// ─── Store Metrics ──────────────────────────────────────────────────────────

// StoreLoads counts store loads by kind and outcome (fresh/loaded/upgraded/recovered).
var StoreLoads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "store",
	Name:      "loads_total",
	Help:      "Total store loads by kind and outcome.",
}, []string{"kind", "outcome"})

// StoreRecoveries counts corrupt documents replaced by defaults.
var StoreRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "store",
	Name:      "recoveries_total",
	Help:      "Total corrupt documents replaced by default state.",
}, []string{"kind"})

// PersistFailures counts mutations rolled back because the write failed.
var PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "store",
	Name:      "persist_failures_total",
	Help:      "Total mutations rolled back because persisting failed.",
}, []string{"kind"})

// ─── Isolation Metrics ──────────────────────────────────────────────────────

// IsolatedUsers tracks the current blacklist size.
var IsolatedUsers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pocket",
	Subsystem: "isolation",
	Name:      "blacklisted_users",
	Help:      "Number of users currently redirected to isolated stores.",
})

// MirrorOps counts real-store mutations replayed into isolated stores.
var MirrorOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "isolation",
	Name:      "mirror_ops_total",
	Help:      "Total mutations replayed into isolated stores by operation and result.",
}, []string{"op", "result"})

// ─── Commendation Metrics ───────────────────────────────────────────────────

// Commendations counts accepted commendations.
var Commendations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pocket",
	Subsystem: "commendation",
	Name:      "accepted_total",
	Help:      "Total commendations accepted.",
})
