// Package ledger implements the pocket money ledger: a non-negative balance,
// a bounded transaction history, free-text notes, and a savings vault whose
// withdrawals need an explicit approve or reject decision.
//
// Every mutation follows the same pattern: lock, clone the state, mutate the
// clone, persist it, then swap it in. A failed write leaves the in-memory
// state untouched.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config bounds the ledger.
type Config struct {
	InitialBalance decimal.Decimal // balance of a fresh ledger
	MaxRecords     int             // history length; oldest evicted first
	MaxNotes       int             // default note limit for AddNote
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		InitialBalance: decimal.Zero,
		MaxRecords:     100,
		MaxNotes:       20,
	}
}

// Reason prefixes for synthesized transactions.
const (
	AdjustmentPrefix        = "[adjustment] "
	SavingsDepositPrefix    = "[savings deposit] "
	SavingsWithdrawalPrefix = "[savings withdrawal] "
)

// ─── Store ──────────────────────────────────────────────────────────────────

// Store is one ledger in one scope. Thread-safe via Mutex.
type Store struct {
	mu     sync.Mutex
	cfg    Config
	docs   domain.DocumentStore
	scope  string
	state  State
	logger *zap.Logger

	outcome  domain.LoadOutcome
	recovery error
	retired  bool

	// Injectable for testing.
	now   func() time.Time
	newID func() string
}

var _ domain.Ledger = (*Store)(nil)

// Open loads the ledger persisted in scope, or starts a fresh one.
func Open(docs domain.DocumentStore, scope string, cfg Config, logger *zap.Logger) (*Store, error) {
	s := newStore(docs, scope, cfg, logger)
	res, err := persist.Load(docs, scope, codec(s.cfg), s.logger)
	if err != nil {
		return nil, err
	}
	s.state = res.State
	s.outcome = res.Outcome
	s.recovery = res.Cause
	s.logger.Debug("ledger loaded",
		zap.Stringer("outcome", res.Outcome),
		zap.Stringer("balance", s.state.Balance),
		zap.Int("records", len(s.state.Records)),
	)
	return s, nil
}

// Seed creates a ledger in scope holding only the given balance, replacing
// anything persisted there, and writes it immediately.
func Seed(docs domain.DocumentStore, scope string, cfg Config, balance decimal.Decimal, logger *zap.Logger) (*Store, error) {
	if balance.IsNegative() {
		return nil, domain.ErrNegativeBalance
	}
	s := newStore(docs, scope, cfg, logger)
	s.state = State{Balance: balance}
	s.state.normalize(s.cfg)
	s.outcome = domain.LoadFresh
	if err := persist.Save(docs, scope, codec(s.cfg), s.state); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(docs domain.DocumentStore, scope string, cfg Config, logger *zap.Logger) *Store {
	def := DefaultConfig()
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = def.MaxRecords
	}
	if cfg.MaxNotes <= 0 {
		cfg.MaxNotes = def.MaxNotes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cfg:    cfg,
		docs:   docs,
		scope:  scope,
		logger: logger.Named("ledger").With(zap.String("scope", scope)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Scope returns the storage scope of this ledger.
func (s *Store) Scope() string { return s.scope }

// LoadOutcome reports how the state was obtained at open.
func (s *Store) LoadOutcome() domain.LoadOutcome { return s.outcome }

// RecoveryErr returns why the persisted document was discarded, if it was.
func (s *Store) RecoveryErr() error { return s.recovery }

// mutate runs fn against a clone of the state and commits it only if the
// clone persists.
func (s *Store) mutate(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		return fmt.Errorf("ledger %s: %w", s.scope, domain.ErrStoreRetired)
	}
	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := persist.Save(s.docs, s.scope, codec(s.cfg), next); err != nil {
		s.logger.Error("persist failed, mutation rolled back", zap.Error(err))
		return err
	}
	s.state = next
	return nil
}

// Retire makes every later mutation fail with ErrStoreRetired. It waits for
// an in-flight mutation, so nothing is written to the scope once it returns.
func (s *Store) Retire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = true
}

func (s *Store) appendRecord(st *State, kind domain.TxKind, amount decimal.Decimal, reason, operator string) {
	st.Records = append(st.Records, domain.Transaction{
		Kind:     kind,
		Amount:   amount,
		Reason:   reason,
		Time:     s.now(),
		Operator: operator,
	})
	if over := len(st.Records) - s.cfg.MaxRecords; over > 0 {
		st.Records = append([]domain.Transaction(nil), st.Records[over:]...)
	}
}

// ─── Balance ────────────────────────────────────────────────────────────────

// Balance returns the spendable balance.
func (s *Store) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Balance
}

// AddIncome credits amount and records it.
func (s *Store) AddIncome(amount decimal.Decimal, reason, operator string) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	err := s.mutate(func(st *State) error {
		st.Balance = st.Balance.Add(amount)
		s.appendRecord(st, domain.TxIncome, amount, reason, operator)
		return nil
	})
	if err == nil {
		s.logger.Info("income", zap.Stringer("amount", amount), zap.String("reason", reason), zap.String("operator", operator))
	}
	return err
}

// AddExpense debits amount and records it. It fails closed when the
// balance does not cover the amount.
func (s *Store) AddExpense(amount decimal.Decimal, reason, operator string) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	err := s.mutate(func(st *State) error {
		if amount.GreaterThan(st.Balance) {
			return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, amount, st.Balance)
		}
		st.Balance = st.Balance.Sub(amount)
		s.appendRecord(st, domain.TxExpense, amount, reason, operator)
		return nil
	})
	if err == nil {
		s.logger.Info("expense", zap.Stringer("amount", amount), zap.String("reason", reason), zap.String("operator", operator))
	}
	return err
}

// SpendUpTo debits amount, or the whole balance when it falls short, in one
// mutation. The shortfall is noted in the recorded reason. It fails with
// ErrInsufficientFunds only when the balance is zero.
func (s *Store) SpendUpTo(amount decimal.Decimal, reason, operator string) (domain.Transaction, error) {
	if !amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	var tx domain.Transaction
	err := s.mutate(func(st *State) error {
		if !st.Balance.IsPositive() {
			return fmt.Errorf("%w: balance is 0", domain.ErrInsufficientFunds)
		}
		charge, why := amount, reason
		if amount.GreaterThan(st.Balance) {
			charge = st.Balance
			why = fmt.Sprintf("%s (insufficient balance, short %s)", reason, amount.Sub(st.Balance))
		}
		st.Balance = st.Balance.Sub(charge)
		s.appendRecord(st, domain.TxExpense, charge, why, operator)
		tx = st.Records[len(st.Records)-1]
		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	s.logger.Info("expense", zap.Stringer("amount", tx.Amount), zap.String("reason", tx.Reason), zap.String("operator", operator))
	return tx, nil
}

// SetBalance force-sets the balance and records the difference as an
// adjustment: income when it grew (or stayed), expense when it shrank.
func (s *Store) SetBalance(amount decimal.Decimal, reason, operator string) error {
	if amount.IsNegative() {
		return domain.ErrNegativeBalance
	}
	return s.mutate(func(st *State) error {
		diff := amount.Sub(st.Balance)
		kind := domain.TxIncome
		if diff.IsNegative() {
			kind = domain.TxExpense
		}
		st.Balance = amount
		s.appendRecord(st, kind, diff.Abs(), AdjustmentPrefix+reason, operator)
		return nil
	})
}

// AddBonus credits amount without writing a record. Commendation bonuses
// use it; their history lives in the commendation tracker.
func (s *Store) AddBonus(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return s.mutate(func(st *State) error {
		st.Balance = st.Balance.Add(amount)
		return nil
	})
}

// RevokeBonus takes back a bonus credited by AddBonus. It fails with
// ErrInsufficientFunds rather than drive the balance negative.
func (s *Store) RevokeBonus(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return s.mutate(func(st *State) error {
		if amount.GreaterThan(st.Balance) {
			return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, amount, st.Balance)
		}
		st.Balance = st.Balance.Sub(amount)
		return nil
	})
}

// ─── Records ────────────────────────────────────────────────────────────────

// Records returns the full history, oldest first.
func (s *Store) Records() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Transaction(nil), s.state.Records...)
}

// RecentRecords returns the last n records, oldest first.
func (s *Store) RecentRecords(n int) []domain.Transaction {
	return lastN(s.Records(), n)
}

// RecentIncome returns the last n income records.
func (s *Store) RecentIncome(n int) []domain.Transaction {
	return lastN(filterKind(s.Records(), domain.TxIncome), n)
}

// RecentExpense returns the last n expense records.
func (s *Store) RecentExpense(n int) []domain.Transaction {
	return lastN(filterKind(s.Records(), domain.TxExpense), n)
}

// ClearRecords empties the history and returns how many records it held.
// The balance is not touched.
func (s *Store) ClearRecords() (int, error) {
	var removed int
	err := s.mutate(func(st *State) error {
		removed = len(st.Records)
		st.Records = []domain.Transaction{}
		return nil
	})
	return removed, err
}

// TodayExpense sums expenses stamped on the current local calendar day.
func (s *Store) TodayExpense() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	y, m, d := s.now().Local().Date()
	today := s.state.Records[:0:0]
	for _, r := range s.state.Records {
		ry, rm, rd := r.Time.Local().Date()
		if ry == y && rm == m && rd == d {
			today = append(today, r)
		}
	}
	return domain.SumByKind(today, domain.TxExpense)
}

func filterKind(records []domain.Transaction, kind domain.TxKind) []domain.Transaction {
	out := records[:0:0]
	for _, r := range records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

func lastN[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return items
	}
	return items[len(items)-n:]
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}
