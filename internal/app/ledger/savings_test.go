package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Savings Vault ──────────────────────────────────────────────────────────

func TestDepositAndWithdraw(t *testing.T) {
	s := fundedLedger(t, "30")

	require.NoError(t, s.DepositToSavings(d("20"), "rainy day", "admin"))
	assert.True(t, s.Balance().Equal(d("10")))
	assert.True(t, s.SavingsBalance().Equal(d("20")))
	last := s.RecentRecords(1)[0]
	assert.Equal(t, domain.TxExpense, last.Kind)
	assert.Equal(t, "[savings deposit] rainy day", last.Reason)

	assert.ErrorIs(t, s.DepositToSavings(d("11"), "too much", "admin"), domain.ErrInsufficientFunds)
	assert.ErrorIs(t, s.WithdrawFromSavings(d("21"), "too much", "admin"), domain.ErrInsufficientSavings)
	assert.ErrorIs(t, s.WithdrawFromSavings(d("0"), "zero", "admin"), domain.ErrInvalidAmount)

	require.NoError(t, s.WithdrawFromSavings(d("5"), "treat", "admin"))
	assert.True(t, s.Balance().Equal(d("15")))
	assert.True(t, s.SavingsBalance().Equal(d("15")))
	last = s.RecentRecords(1)[0]
	assert.Equal(t, domain.TxIncome, last.Kind)
	assert.Equal(t, "[savings withdrawal] treat", last.Reason)
}

func TestWithdrawalLifecycle(t *testing.T) {
	s := fundedLedger(t, "100")
	require.NoError(t, s.DepositToSavings(d("100"), "all in", "admin"))
	s.newID = func() string { return "w-1" }

	src := domain.Source{Channel: "group-7", UserID: "u1", UserName: "Ann"}
	id, err := s.ApplyWithdrawal(d("50"), "gift", src)
	require.NoError(t, err)
	assert.Equal(t, "w-1", id)
	assert.True(t, s.SavingsBalance().Equal(d("100")), "applying moves no funds")

	pending := s.PendingWithdrawals()
	require.Len(t, pending, 1)
	assert.Equal(t, src, pending[0].Source)

	req, err := s.ApproveWithdrawal(id, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalApproved, req.Status)
	assert.Equal(t, "admin", req.DecidedBy)
	require.NotNil(t, req.DecidedAt)
	assert.True(t, s.SavingsBalance().Equal(d("50")))
	assert.True(t, s.Balance().Equal(d("50")))
	assert.Empty(t, s.PendingWithdrawals())

	_, err = s.ApproveWithdrawal(id, "admin")
	assert.ErrorIs(t, err, domain.ErrWithdrawalDecided)
	_, err = s.RejectWithdrawal(id, "late", "admin")
	assert.ErrorIs(t, err, domain.ErrWithdrawalDecided)
	assert.True(t, s.SavingsBalance().Equal(d("50")))

	got, ok := s.Withdrawal(id)
	require.True(t, ok)
	assert.Equal(t, domain.WithdrawalApproved, got.Status)
}

func TestApplyWithdrawal_Validation(t *testing.T) {
	s := fundedLedger(t, "10")
	require.NoError(t, s.DepositToSavings(d("10"), "v", "admin"))

	_, err := s.ApplyWithdrawal(d("0"), "x", domain.Source{})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = s.ApplyWithdrawal(d("11"), "x", domain.Source{})
	assert.ErrorIs(t, err, domain.ErrInsufficientSavings)
	assert.Empty(t, s.PendingWithdrawals())
}

func TestApproveWithdrawal_RevalidatesSavings(t *testing.T) {
	s := fundedLedger(t, "40")
	require.NoError(t, s.DepositToSavings(d("40"), "v", "admin"))

	id, err := s.ApplyWithdrawal(d("30"), "bike", domain.Source{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, s.WithdrawFromSavings(d("20"), "spent meanwhile", "admin"))

	_, err = s.ApproveWithdrawal(id, "admin")
	assert.ErrorIs(t, err, domain.ErrInsufficientSavings)
	assert.Len(t, s.PendingWithdrawals(), 1, "request stays pending")
	assert.True(t, s.SavingsBalance().Equal(d("20")))
}

func TestRejectWithdrawal(t *testing.T) {
	s := fundedLedger(t, "10")
	require.NoError(t, s.DepositToSavings(d("10"), "v", "admin"))
	id, err := s.ApplyWithdrawal(d("4"), "toy", domain.Source{UserID: "u1"})
	require.NoError(t, err)

	req, err := s.RejectWithdrawal(id, "not now", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalRejected, req.Status)
	assert.Equal(t, "not now", req.RejectReason)
	assert.True(t, s.SavingsBalance().Equal(d("10")))
	assert.True(t, s.Balance().IsZero())

	_, err = s.RejectWithdrawal("missing", "", "admin")
	assert.ErrorIs(t, err, domain.ErrWithdrawalNotFound)
}

func TestTrimDecided_KeepsPending(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRecords = 2
	s := newTestLedger(t, persist.NewMemoryStore(), cfg)
	require.NoError(t, s.AddIncome(d("10"), "seed", "admin"))
	require.NoError(t, s.DepositToSavings(d("10"), "v", "admin"))

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := s.ApplyWithdrawal(d("1"), "x", domain.Source{})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids[:3] {
		_, err := s.RejectWithdrawal(id, "", "admin")
		require.NoError(t, err)
	}

	snap := s.Snapshot()
	assert.Len(t, snap.Withdrawals, 3, "two decided plus one pending")
	_, ok := s.Withdrawal(ids[0])
	assert.False(t, ok, "oldest decided request dropped")
	assert.Len(t, s.PendingWithdrawals(), 1)
}

func TestInvariant_NonNegative(t *testing.T) {
	s := fundedLedger(t, "5")
	ops := []func() error{
		func() error { return s.AddExpense(d("6"), "", "") },
		func() error { return s.DepositToSavings(d("6"), "", "") },
		func() error { return s.WithdrawFromSavings(d("1"), "", "") },
		func() error { return s.SetBalance(d("-3"), "", "") },
		func() error { return s.AddExpense(d("5"), "", "") },
		func() error { return s.AddExpense(d("0.01"), "", "") },
	}
	for _, op := range ops {
		_ = op()
		assert.False(t, s.Balance().IsNegative())
		assert.False(t, s.SavingsBalance().IsNegative())
	}
}
