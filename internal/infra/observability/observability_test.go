package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Observability Tests
// ═══════════════════════════════════════════════════════════════════════════

// ─── Journal ────────────────────────────────────────────────────────────────

func TestJournal_Record(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())

	j.Record(Event{Kind: "spend", UserID: "u1", Outcome: OutcomeApplied, Detail: "3"})

	if j.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", j.Count())
	}
	ev := j.Recent(1)[0]
	if ev.Kind != "spend" {
		t.Errorf("Kind = %q, want %q", ev.Kind, "spend")
	}
	if ev.ID == "" {
		t.Error("ID should be generated")
	}
	if ev.At.IsZero() {
		t.Error("At should be stamped")
	}
}

func TestJournal_RingBuffer(t *testing.T) {
	j := NewJournal(JournalConfig{Enabled: true, MaxEvents: 3})
	for _, kind := range []string{"a", "b", "c", "d", "e"} {
		j.Record(Event{Kind: kind, Outcome: OutcomeIgnored})
	}

	if j.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", j.Count())
	}
	recent := j.Recent(0)
	if recent[0].Kind != "c" || recent[2].Kind != "e" {
		t.Errorf("Recent = %v, want c..e", recent)
	}
	if got := j.Recent(2); len(got) != 2 || got[1].Kind != "e" {
		t.Errorf("Recent(2) = %v, want [d e]", got)
	}
}

func TestJournal_Disabled(t *testing.T) {
	j := NewJournal(JournalConfig{Enabled: false, MaxEvents: 10})
	j.Record(Event{Kind: "spend", Outcome: OutcomeApplied})
	if j.Count() != 0 {
		t.Errorf("disabled journal Count() = %d, want 0", j.Count())
	}
}

func TestJournal_Reset(t *testing.T) {
	j := NewJournal(DefaultJournalConfig())
	j.Record(Event{Kind: "gift", Outcome: OutcomeApplied})
	j.Reset()
	if j.Count() != 0 {
		t.Errorf("Count() after Reset = %d, want 0", j.Count())
	}
}

func TestJournal_CountsMetric(t *testing.T) {
	before := testutil.ToFloat64(TagsProcessed.WithLabelValues("refund", string(OutcomeRejected)))

	var j *Journal // nil journal still counts
	j.Record(Event{Kind: "refund", Outcome: OutcomeRejected})

	after := testutil.ToFloat64(TagsProcessed.WithLabelValues("refund", string(OutcomeRejected)))
	if after-before != 1 {
		t.Errorf("tags_total delta = %v, want 1", after-before)
	}
}
