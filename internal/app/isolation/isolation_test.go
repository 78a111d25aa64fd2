package isolation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/pocketmoney/internal/app/inventory"
	"github.com/tutu-network/pocketmoney/internal/app/ledger"
	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/sqlite"
)

// ═══════════════════════════════════════════════════════════════════════════
// Isolation Proxy Tests
// ═══════════════════════════════════════════════════════════════════════════

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db    *sqlite.DB
	proxy *Proxy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	f := &fixture{db: db}
	f.reopen(t)
	return f
}

// reopen simulates a process restart against the same database.
func (f *fixture) reopen(t *testing.T) {
	t.Helper()
	l, err := ledger.Open(f.db, domain.ScopeReal, ledger.DefaultConfig(), nil)
	require.NoError(t, err)
	inv, err := inventory.Open(f.db, domain.ScopeReal, inventory.DefaultConfig(), nil)
	require.NoError(t, err)
	f.proxy, err = Open(f.db, l, inv, Config{Ledger: ledger.DefaultConfig(), Inventory: inventory.DefaultConfig()}, nil)
	require.NoError(t, err)
}

func (f *fixture) balanceOf(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	sc, err := f.proxy.Resolve(userID)
	require.NoError(t, err)
	return sc.Ledger.Balance()
}

func TestResolve_Unlisted(t *testing.T) {
	f := newFixture(t)
	sc, err := f.proxy.Resolve("u1")
	require.NoError(t, err)
	assert.False(t, sc.Isolated)
	assert.Same(t, f.proxy.RealLedger(), sc.Ledger)
}

func TestBlacklist_AddRemove(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.proxy.Add("x"))
	assert.ErrorIs(t, f.proxy.Add("x"), domain.ErrAlreadyBlacklisted)
	assert.True(t, f.proxy.IsBlacklisted("x"))
	assert.Equal(t, []string{"x"}, f.proxy.Blacklist())

	require.NoError(t, f.proxy.Remove("x"))
	assert.ErrorIs(t, f.proxy.Remove("x"), domain.ErrNotBlacklisted)
	assert.False(t, f.proxy.IsBlacklisted("x"))

	docs, err := f.db.ListDocuments()
	require.NoError(t, err)
	for _, doc := range docs {
		assert.NotEqual(t, domain.IsolatedScope("x"), doc.Scope, "isolated scope should be deleted")
	}
}

// The full sandbox lifecycle: seed, private spending, mirrored income,
// and a fresh seed after re-listing.
func TestIsolationScenario(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.AddIncome(d("20"), "allowance", "admin"))

	require.NoError(t, f.proxy.Add("x"))
	assert.True(t, f.balanceOf(t, "x").Equal(d("20")), "seeded from real balance")

	sc, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	require.True(t, sc.Isolated)
	require.NoError(t, sc.Ledger.AddExpense(d("5"), "x's purchase", "Beta"))
	assert.True(t, f.balanceOf(t, "x").Equal(d("15")))
	assert.True(t, f.proxy.RealLedger().Balance().Equal(d("20")), "real untouched")

	require.NoError(t, f.proxy.AddIncome(d("10"), "admin top-up", "admin"))
	assert.True(t, f.proxy.RealLedger().Balance().Equal(d("30")))
	assert.True(t, f.balanceOf(t, "x").Equal(d("25")), "mirrored into isolated")

	require.NoError(t, f.proxy.Remove("x"))
	require.NoError(t, f.proxy.Add("x"))
	assert.True(t, f.balanceOf(t, "x").Equal(d("30")), "fresh seed from current real balance")
	sc, err = f.proxy.Resolve("x")
	require.NoError(t, err)
	assert.Empty(t, sc.Ledger.Records(), "prior isolated history discarded")
}

func TestIsolatedUsersIndependent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.AddIncome(d("10"), "seed", "admin"))
	require.NoError(t, f.proxy.Add("a"))
	require.NoError(t, f.proxy.Add("b"))

	sa, err := f.proxy.Resolve("a")
	require.NoError(t, err)
	require.NoError(t, sa.Ledger.AddExpense(d("10"), "all", "Beta"))
	require.NoError(t, sa.Inventory.AddSharedItem("kite", ""))

	assert.True(t, f.balanceOf(t, "b").Equal(d("10")))
	sb, err := f.proxy.Resolve("b")
	require.NoError(t, err)
	assert.Empty(t, sb.Inventory.SharedItems())
}

func TestMirror_ExpenseFailureIsolatedOnly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.AddIncome(d("10"), "seed", "admin"))
	require.NoError(t, f.proxy.Add("x"))

	sx, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	require.NoError(t, sx.Ledger.AddExpense(d("8"), "spree", "Beta"))

	// Real can cover 5, isolated (2) cannot: the real op still succeeds.
	require.NoError(t, f.proxy.AddExpense(d("5"), "bot spend", "Beta"))
	assert.True(t, f.proxy.RealLedger().Balance().Equal(d("5")))
	assert.True(t, f.balanceOf(t, "x").Equal(d("2")))
}

func TestMirror_SetBalanceAndItems(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.Add("x"))

	require.NoError(t, f.proxy.SetBalance(d("42"), "reset", "admin"))
	assert.True(t, f.balanceOf(t, "x").Equal(d("42")))

	require.NoError(t, f.proxy.StoreSharedItem("Candy Bar", "sweet"))
	sx, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	assert.Len(t, sx.Inventory.SharedItems(), 1)

	require.NoError(t, f.proxy.UseSharedItem("candybar"))
	assert.Empty(t, sx.Inventory.SharedItems())
	assert.Empty(t, f.proxy.RealInventory().SharedItems())
}

func TestMirror_RealFailureNotMirrored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.Add("x"))
	sx, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	require.NoError(t, sx.Ledger.AddIncome(d("50"), "isolated only", "admin"))

	assert.ErrorIs(t, f.proxy.AddExpense(d("5"), "nope", "Beta"), domain.ErrInsufficientFunds)
	assert.True(t, f.balanceOf(t, "x").Equal(d("50")))
}

func TestSpendUpTo_MirrorsAmountCharged(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.AddIncome(d("4"), "seed", "admin"))
	require.NoError(t, f.proxy.Add("x"))
	sx, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	require.NoError(t, sx.Ledger.AddIncome(d("6"), "isolated only", "admin"))

	tx, err := f.proxy.SpendUpTo(d("9"), "kite", "Beta")
	require.NoError(t, err)
	assert.True(t, tx.Amount.Equal(d("4")), "floored at the real balance")
	assert.True(t, f.proxy.RealLedger().Balance().IsZero())
	assert.True(t, f.balanceOf(t, "x").Equal(d("6")), "isolated ledger debited by the charged amount")

	recs := sx.Ledger.Records()
	assert.Equal(t, tx.Reason, recs[len(recs)-1].Reason)

	_, err = f.proxy.SpendUpTo(d("1"), "more", "Beta")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, f.balanceOf(t, "x").Equal(d("6")))
}

func TestRemove_StaleStoresCannotRecreateScope(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.Add("x"))
	stale, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	lx, ix, ok := f.proxy.Isolated("x")
	require.True(t, ok)

	require.NoError(t, f.proxy.Remove("x"))

	// A replay that snapshotted the targets before Remove still holds the
	// old pair.
	f.proxy.mu.Lock()
	f.proxy.isolated["x"] = pair{ledger: lx, inventory: ix}
	f.proxy.mu.Unlock()
	require.NoError(t, f.proxy.AddIncome(d("3"), "late mirror", "admin"))
	require.NoError(t, f.proxy.StoreSharedItem("kite", ""))
	f.proxy.mu.Lock()
	delete(f.proxy.isolated, "x")
	f.proxy.mu.Unlock()

	assert.ErrorIs(t, stale.Ledger.AddExpense(d("1"), "late", "Beta"), domain.ErrStoreRetired)

	docs, err := f.db.ListDocuments()
	require.NoError(t, err)
	for _, doc := range docs {
		assert.NotEqual(t, domain.IsolatedScope("x"), doc.Scope, "retired store wrote %s", doc.Kind)
	}
}

func TestRestart_KeepsIsolatedState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.proxy.AddIncome(d("20"), "seed", "admin"))
	require.NoError(t, f.proxy.Add("x"))
	sx, err := f.proxy.Resolve("x")
	require.NoError(t, err)
	require.NoError(t, sx.Ledger.AddExpense(d("7"), "private", "Beta"))

	f.reopen(t)
	assert.True(t, f.proxy.IsBlacklisted("x"), "blacklist persists")
	assert.True(t, f.balanceOf(t, "x").Equal(d("13")), "isolated ledger reloaded, not reseeded")

	require.NoError(t, f.proxy.AddIncome(d("1"), "after restart", "admin"))
	assert.True(t, f.balanceOf(t, "x").Equal(d("14")), "mirroring reaches reloaded stores")
}
