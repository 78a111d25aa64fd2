package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Item Name Matching Tests ───────────────────────────────────────────────

func TestNormalizeItemName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Candy Bar", "candybar"},
		{"  Candy Bar ", "candybar"},
		{"CANDY\tBAR\n", "candybar"},
		{"奶茶 一杯", "奶茶一杯"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeItemName(tt.input); got != tt.want {
				t.Errorf("NormalizeItemName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestItemNameMatches(t *testing.T) {
	tests := []struct {
		name      string
		stored    string
		requested string
		want      bool
	}{
		{"exact", "Candy Bar", "Candy Bar", true},
		{"fuzzy spacing and case", "  Candy Bar ", "candybar", true},
		{"different item", "Candy Bar", "chocolate", false},
		{"whitespace-only stored name matches raw", "  ", "  ", true},
		{"whitespace-only request never fuzzes", "Candy", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ItemNameMatches(tt.stored, tt.requested); got != tt.want {
				t.Errorf("ItemNameMatches(%q, %q) = %v, want %v", tt.stored, tt.requested, got, tt.want)
			}
		})
	}
}

// ─── Ledger Type Tests ──────────────────────────────────────────────────────

func TestSumByKind(t *testing.T) {
	now := time.Now()
	records := []Transaction{
		{Kind: TxIncome, Amount: decimal.NewFromInt(10), Time: now},
		{Kind: TxExpense, Amount: decimal.RequireFromString("2.5"), Time: now},
		{Kind: TxExpense, Amount: decimal.NewFromInt(3), Time: now},
	}
	if got := SumByKind(records, TxExpense); !got.Equal(decimal.RequireFromString("5.5")) {
		t.Errorf("SumByKind(expense) = %s, want 5.5", got)
	}
	if got := SumByKind(records, TxIncome); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("SumByKind(income) = %s, want 10", got)
	}
	if got := SumByKind(nil, TxIncome); !got.IsZero() {
		t.Errorf("SumByKind(nil) = %s, want 0", got)
	}
}

func TestWithdrawalRequest_IsPending(t *testing.T) {
	w := WithdrawalRequest{Status: WithdrawalPending}
	if !w.IsPending() {
		t.Error("pending request should report IsPending")
	}
	w.Status = WithdrawalApproved
	if w.IsPending() {
		t.Error("approved request should not report IsPending")
	}
}

// ─── Ranking Tests ──────────────────────────────────────────────────────────

func TestRankingEntry_Parts(t *testing.T) {
	e := RankingEntry{Key: RankingKey("42", "Alice|Smith"), Count: 3}
	if got := e.UserID(); got != "42" {
		t.Errorf("UserID() = %q, want %q", got, "42")
	}
	if got := e.DisplayName(); got != "Alice|Smith" {
		t.Errorf("DisplayName() = %q, want %q", got, "Alice|Smith")
	}

	bare := RankingEntry{Key: "99"}
	if got := bare.DisplayName(); got != "99" {
		t.Errorf("DisplayName() without name = %q, want %q", got, "99")
	}
}

// ─── Document Tests ─────────────────────────────────────────────────────────

func TestIsolatedScope(t *testing.T) {
	if got := IsolatedScope("u1"); got != "isolated:u1" {
		t.Errorf("IsolatedScope(u1) = %q, want %q", got, "isolated:u1")
	}
	if IsolatedScope("u1") == ScopeReal {
		t.Error("isolated scope must differ from the real scope")
	}
}

func TestLoadOutcome_String(t *testing.T) {
	tests := map[LoadOutcome]string{
		LoadFresh:       "fresh",
		LoadOK:          "loaded",
		LoadUpgraded:    "upgraded",
		LoadRecovered:   "recovered",
		LoadOutcome(42): "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("LoadOutcome(%d).String() = %q, want %q", o, got, want)
		}
	}
}

// ─── Error Tests ────────────────────────────────────────────────────────────

func TestSentinelErrors(t *testing.T) {
	errors := []struct {
		name string
		err  error
	}{
		{"ErrInvalidAmount", ErrInvalidAmount},
		{"ErrInsufficientFunds", ErrInsufficientFunds},
		{"ErrInsufficientSavings", ErrInsufficientSavings},
		{"ErrWithdrawalNotFound", ErrWithdrawalNotFound},
		{"ErrSharedSlotsFull", ErrSharedSlotsFull},
		{"ErrUserSlotsFull", ErrUserSlotsFull},
		{"ErrItemNotFound", ErrItemNotFound},
		{"ErrAlreadyCommended", ErrAlreadyCommended},
		{"ErrAlreadyBlacklisted", ErrAlreadyBlacklisted},
		{"ErrNotBlacklisted", ErrNotBlacklisted},
		{"ErrDocumentNotFound", ErrDocumentNotFound},
		{"ErrCorruptDocument", ErrCorruptDocument},
	}

	for _, tt := range errors {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s.Error() is empty", tt.name)
			}
		})
	}
}
