package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Ledger Store Tests
// ═══════════════════════════════════════════════════════════════════════════

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestLedger(t *testing.T, docs domain.DocumentStore, cfg Config) *Store {
	t.Helper()
	s, err := Open(docs, domain.ScopeReal, cfg, nil)
	require.NoError(t, err)
	return s
}

func fundedLedger(t *testing.T, balance string) *Store {
	t.Helper()
	s := newTestLedger(t, persist.NewMemoryStore(), DefaultConfig())
	if b := d(balance); b.IsPositive() {
		require.NoError(t, s.AddIncome(b, "seed", "admin"))
	}
	return s
}

// ─── Balance ────────────────────────────────────────────────────────────────

func TestOpen_Fresh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialBalance = d("5")
	s := newTestLedger(t, persist.NewMemoryStore(), cfg)

	if s.LoadOutcome() != domain.LoadFresh {
		t.Errorf("LoadOutcome() = %v, want fresh", s.LoadOutcome())
	}
	if !s.Balance().Equal(d("5")) {
		t.Errorf("Balance() = %s, want 5", s.Balance())
	}
	if len(s.Records()) != 0 {
		t.Errorf("Records() = %d, want 0", len(s.Records()))
	}
}

func TestAddIncome(t *testing.T) {
	s := fundedLedger(t, "0")

	require.NoError(t, s.AddIncome(d("12.5"), "allowance", "admin"))
	assert.True(t, s.Balance().Equal(d("12.5")))

	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, domain.TxIncome, recs[0].Kind)
	assert.Equal(t, "allowance", recs[0].Reason)
	assert.Equal(t, "admin", recs[0].Operator)
}

func TestAddIncome_InvalidAmount(t *testing.T) {
	s := fundedLedger(t, "0")
	for _, amt := range []string{"0", "-1"} {
		err := s.AddIncome(d(amt), "x", "admin")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %s", amt)
	}
	assert.Empty(t, s.Records())
}

func TestAddExpense(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		amount  string
		wantErr error
		wantBal string
	}{
		{"covered", "10", "4", nil, "6"},
		{"exact", "10", "10", nil, "0"},
		{"insufficient", "3", "10", domain.ErrInsufficientFunds, "3"},
		{"zero", "3", "0", domain.ErrInvalidAmount, "3"},
		{"negative", "3", "-2", domain.ErrInvalidAmount, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fundedLedger(t, tt.balance)
			before := len(s.Records())

			err := s.AddExpense(d(tt.amount), "snack", "Beta")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, s.Records(), before)
			} else {
				assert.NoError(t, err)
				assert.Len(t, s.Records(), before+1)
			}
			if !s.Balance().Equal(d(tt.wantBal)) {
				t.Errorf("Balance() = %s, want %s", s.Balance(), tt.wantBal)
			}
		})
	}
}

func TestSpendUpTo(t *testing.T) {
	tests := []struct {
		name       string
		balance    string
		amount     string
		wantErr    error
		wantCharge string
		wantReason string
		wantBal    string
	}{
		{"covered", "10", "4", nil, "4", "snack", "6"},
		{"floors to balance", "3", "10", nil, "3", "snack (insufficient balance, short 7)", "0"},
		{"empty", "0", "5", domain.ErrInsufficientFunds, "", "", "0"},
		{"invalid", "3", "0", domain.ErrInvalidAmount, "", "", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fundedLedger(t, tt.balance)
			before := len(s.Records())

			tx, err := s.SpendUpTo(d(tt.amount), "snack", "Beta")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, s.Records(), before)
			} else {
				require.NoError(t, err)
				assert.True(t, tx.Amount.Equal(d(tt.wantCharge)), "charged %s", tx.Amount)
				assert.Equal(t, tt.wantReason, tx.Reason)
				assert.Equal(t, domain.TxExpense, tx.Kind)
				assert.Len(t, s.Records(), before+1)
			}
			if !s.Balance().Equal(d(tt.wantBal)) {
				t.Errorf("Balance() = %s, want %s", s.Balance(), tt.wantBal)
			}
		})
	}
}

func TestSpendUpTo_ConcurrentNeverOverdraws(t *testing.T) {
	s := fundedLedger(t, "8")

	var wg sync.WaitGroup
	charged := make([]decimal.Decimal, 2)
	for i := range charged {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.SpendUpTo(d("5"), "snack", "Beta")
			if err == nil {
				charged[i] = tx.Amount
			}
		}()
	}
	wg.Wait()

	total := charged[0].Add(charged[1])
	if !total.Equal(d("8")) {
		t.Errorf("charged %s + %s, want 8 in total", charged[0], charged[1])
	}
	assert.True(t, s.Balance().IsZero())
}

func TestRetire(t *testing.T) {
	mem := persist.NewMemoryStore()
	s := newTestLedger(t, mem, DefaultConfig())
	require.NoError(t, s.AddIncome(d("10"), "seed", "admin"))

	s.Retire()
	require.NoError(t, mem.DeleteScope(domain.ScopeReal))

	assert.ErrorIs(t, s.AddIncome(d("1"), "late", "admin"), domain.ErrStoreRetired)
	_, err := s.SpendUpTo(d("1"), "late", "Beta")
	assert.ErrorIs(t, err, domain.ErrStoreRetired)

	_, err = mem.GetDocument(domain.ScopeReal, domain.KindLedger)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "retired store rewrote its scope")
	assert.True(t, s.Balance().Equal(d("10")))
}

func TestSetBalance(t *testing.T) {
	s := fundedLedger(t, "10")

	require.NoError(t, s.SetBalance(d("4"), "correction", "admin"))
	last := s.RecentRecords(1)[0]
	assert.Equal(t, domain.TxExpense, last.Kind)
	assert.True(t, last.Amount.Equal(d("6")))
	assert.Equal(t, "[adjustment] correction", last.Reason)

	require.NoError(t, s.SetBalance(d("9"), "bump", "admin"))
	last = s.RecentRecords(1)[0]
	assert.Equal(t, domain.TxIncome, last.Kind)
	assert.True(t, last.Amount.Equal(d("5")))

	assert.ErrorIs(t, s.SetBalance(d("-1"), "nope", "admin"), domain.ErrNegativeBalance)
	assert.True(t, s.Balance().Equal(d("9")))
}

func TestAddBonus_NoRecord(t *testing.T) {
	s := fundedLedger(t, "1")
	require.NoError(t, s.AddBonus(d("7")))
	assert.True(t, s.Balance().Equal(d("8")))
	assert.Len(t, s.Records(), 1)
}

// ─── Records ────────────────────────────────────────────────────────────────

func TestRevokeBonus(t *testing.T) {
	s := fundedLedger(t, "0")
	require.NoError(t, s.AddBonus(d("4")))
	require.NoError(t, s.RevokeBonus(d("3")))
	assert.True(t, s.Balance().Equal(d("1")))
	assert.Empty(t, s.Records())

	assert.ErrorIs(t, s.RevokeBonus(d("2")), domain.ErrInsufficientFunds)
	assert.ErrorIs(t, s.RevokeBonus(d("0")), domain.ErrInvalidAmount)
	assert.True(t, s.Balance().Equal(d("1")))
}

func TestRecords_BoundedHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecords = 3
	s := newTestLedger(t, persist.NewMemoryStore(), cfg)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.AddIncome(decimal.NewFromInt(int64(i)), "r", "admin"))
	}
	recs := s.Records()
	require.Len(t, recs, 3)
	assert.True(t, recs[0].Amount.Equal(d("3")), "oldest kept should be 3")
	assert.True(t, recs[2].Amount.Equal(d("5")))
	assert.True(t, s.Balance().Equal(d("15")))
}

func TestRecentByKind(t *testing.T) {
	s := fundedLedger(t, "100")
	require.NoError(t, s.AddExpense(d("1"), "a", "Beta"))
	require.NoError(t, s.AddIncome(d("2"), "b", "admin"))
	require.NoError(t, s.AddExpense(d("3"), "c", "Beta"))

	exp := s.RecentExpense(5)
	require.Len(t, exp, 2)
	assert.Equal(t, "c", exp[1].Reason)

	inc := s.RecentIncome(1)
	require.Len(t, inc, 1)
	assert.Equal(t, "b", inc[0].Reason)

	assert.Len(t, s.RecentRecords(2), 2)
	assert.Len(t, s.RecentRecords(0), 4)
}

func TestClearRecords(t *testing.T) {
	s := fundedLedger(t, "10")
	require.NoError(t, s.AddExpense(d("1"), "a", "Beta"))

	n, err := s.ClearRecords()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, s.Records())
	assert.True(t, s.Balance().Equal(d("9")))
}

func TestTodayExpense(t *testing.T) {
	s := fundedLedger(t, "100")
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)

	s.now = func() time.Time { return day.Add(-24 * time.Hour) }
	require.NoError(t, s.AddExpense(d("5"), "yesterday", "Beta"))

	s.now = func() time.Time { return day }
	require.NoError(t, s.AddExpense(d("2"), "today", "Beta"))
	require.NoError(t, s.AddExpense(d("1.5"), "today", "Beta"))
	require.NoError(t, s.AddIncome(d("50"), "ignored", "admin"))

	if got := s.TodayExpense(); !got.Equal(d("3.5")) {
		t.Errorf("TodayExpense() = %s, want 3.5", got)
	}
}

// ─── Notes ──────────────────────────────────────────────────────────────────

func TestNotes(t *testing.T) {
	s := fundedLedger(t, "0")

	for _, n := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.AddNote(n, 3))
	}
	assert.Equal(t, []string{"b", "c", "d"}, s.Notes())

	require.NoError(t, s.DeleteNote(2))
	assert.Equal(t, []string{"b", "d"}, s.Notes())

	assert.ErrorIs(t, s.DeleteNote(0), domain.ErrNoteIndex)
	assert.ErrorIs(t, s.DeleteNote(3), domain.ErrNoteIndex)

	require.NoError(t, s.ClearNotes())
	assert.Empty(t, s.Notes())
}

func TestAddNote_DefaultLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNotes = 2
	s := newTestLedger(t, persist.NewMemoryStore(), cfg)
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddNote(n, 0))
	}
	assert.Equal(t, []string{"b", "c"}, s.Notes())
}

// ─── Persistence ────────────────────────────────────────────────────────────

func TestPersistFailure_RollsBack(t *testing.T) {
	mem := persist.NewMemoryStore()
	s := newTestLedger(t, mem, DefaultConfig())
	require.NoError(t, s.AddIncome(d("10"), "seed", "admin"))

	boom := errors.New("disk full")
	mem.SetFailPut(boom)

	assert.ErrorIs(t, s.AddExpense(d("4"), "x", "Beta"), boom)
	assert.True(t, s.Balance().Equal(d("10")))
	assert.Len(t, s.Records(), 1)
}

func TestRoundTrip(t *testing.T) {
	db := newTestDB(t)
	s := newTestLedger(t, db, DefaultConfig())

	require.NoError(t, s.AddIncome(d("100"), "seed", "admin"))
	require.NoError(t, s.AddExpense(d("7.25"), "book", "Beta"))
	require.NoError(t, s.DepositToSavings(d("50"), "vault", "admin"))
	require.NoError(t, s.AddNote("likes strawberries", 0))
	id, err := s.ApplyWithdrawal(d("20"), "gift", domain.Source{Channel: "c1", UserID: "u1", UserName: "Ann"})
	require.NoError(t, err)
	_, err = s.ApplyWithdrawal(d("5"), "snack", domain.Source{UserID: "u2"})
	require.NoError(t, err)
	_, err = s.ApproveWithdrawal(id, "admin")
	require.NoError(t, err)

	reopened := newTestLedger(t, db, DefaultConfig())
	assert.Equal(t, domain.LoadOK, reopened.LoadOutcome())
	if diff := cmp.Diff(s.Snapshot(), reopened.Snapshot(), decimalEqual); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_UpgradesV1(t *testing.T) {
	mem := persist.NewMemoryStore()
	body := []byte(`{"balance": 42.5, "records": [
		{"type": "income", "amount": 50, "reason": "allowance", "time": "2025-01-02 08:30:00", "operator": "admin"},
		{"type": "expense", "amount": 7.5, "reason": "candy", "time": "2025-01-03 09:00:00", "operator": "Beta"}
	]}`)
	require.NoError(t, mem.PutDocument(domain.Document{
		Scope: domain.ScopeReal, Kind: domain.KindLedger, Version: 1, Body: body,
	}))

	s := newTestLedger(t, mem, DefaultConfig())
	assert.Equal(t, domain.LoadUpgraded, s.LoadOutcome())
	assert.True(t, s.Balance().Equal(d("42.5")))
	assert.True(t, s.SavingsBalance().IsZero())

	recs := s.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "candy", recs[1].Reason)
	assert.True(t, recs[1].Time.Equal(time.Date(2025, 1, 3, 9, 0, 0, 0, time.Local)))
	assert.NotNil(t, s.Notes())
}

func TestOpen_CorruptRecovers(t *testing.T) {
	mem := persist.NewMemoryStore()
	require.NoError(t, mem.PutDocument(domain.Document{
		Scope: domain.ScopeReal, Kind: domain.KindLedger, Version: DocumentVersion, Body: []byte(`{"balance": [}`),
	}))

	s := newTestLedger(t, mem, DefaultConfig())
	assert.Equal(t, domain.LoadRecovered, s.LoadOutcome())
	assert.ErrorIs(t, s.RecoveryErr(), domain.ErrCorruptDocument)
	assert.True(t, s.Balance().IsZero())

	// The store stays usable and overwrites the bad document.
	require.NoError(t, s.AddIncome(d("1"), "fresh start", "admin"))
	reopened := newTestLedger(t, mem, DefaultConfig())
	assert.Equal(t, domain.LoadOK, reopened.LoadOutcome())
}

func TestOpen_InvariantViolationRecovers(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative balance", `{"balance": "-3", "savings_balance": "0"}`},
		{"negative savings", `{"balance": "3", "savings_balance": "-1"}`},
		{"negative record", `{"balance": "3", "records": [{"type": "expense", "amount": "-2"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := persist.NewMemoryStore()
			require.NoError(t, mem.PutDocument(domain.Document{
				Scope: domain.ScopeReal, Kind: domain.KindLedger, Version: DocumentVersion, Body: []byte(tt.body),
			}))

			s := newTestLedger(t, mem, DefaultConfig())
			assert.Equal(t, domain.LoadRecovered, s.LoadOutcome())
			assert.ErrorIs(t, s.RecoveryErr(), domain.ErrCorruptDocument)
			assert.True(t, s.Balance().IsZero())
		})
	}
}

func TestOpen_UpgradeViolationRecovers(t *testing.T) {
	mem := persist.NewMemoryStore()
	require.NoError(t, mem.PutDocument(domain.Document{
		Scope: domain.ScopeReal, Kind: domain.KindLedger, Version: 1, Body: []byte(`{"balance": -4, "records": []}`),
	}))

	s := newTestLedger(t, mem, DefaultConfig())
	assert.Equal(t, domain.LoadRecovered, s.LoadOutcome())
	assert.ErrorIs(t, s.RecoveryErr(), domain.ErrNegativeBalance)
}

func TestOpen_TrimsOversizedDocument(t *testing.T) {
	mem := persist.NewMemoryStore()
	big := newTestLedger(t, mem, Config{MaxRecords: 10, MaxNotes: 10})
	for i := range 6 {
		require.NoError(t, big.AddIncome(decimal.NewFromInt(int64(i+1)), "pay", "admin"))
		require.NoError(t, big.AddNote(string(rune('a'+i)), 0))
	}

	s := newTestLedger(t, mem, Config{MaxRecords: 4, MaxNotes: 2})
	assert.Equal(t, domain.LoadOK, s.LoadOutcome())
	recs := s.Records()
	require.Len(t, recs, 4)
	assert.True(t, recs[0].Amount.Equal(d("3")), "oldest records dropped first")
	assert.Equal(t, []string{"e", "f"}, s.Notes())
	assert.True(t, s.Balance().Equal(d("21")), "balance untouched by trimming")
}

func TestSeed(t *testing.T) {
	mem := persist.NewMemoryStore()
	scope := domain.IsolatedScope("u9")

	s, err := Seed(mem, scope, DefaultConfig(), d("20"), nil)
	require.NoError(t, err)
	assert.True(t, s.Balance().Equal(d("20")))
	assert.Empty(t, s.Records())

	reopened, err := Open(mem, scope, DefaultConfig(), nil)
	require.NoError(t, err)
	assert.True(t, reopened.Balance().Equal(d("20")))
}
