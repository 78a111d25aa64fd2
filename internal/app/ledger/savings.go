package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Savings Vault ──────────────────────────────────────────────────────────
// Transfers between balance and savings update both sides in one mutation.
// Withdrawals requested from model output wait in the queue until an
// operator approves or rejects them.

// SavingsBalance returns the amount held in the vault.
func (s *Store) SavingsBalance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SavingsBalance
}

// DepositToSavings moves amount from the balance into the vault and records
// an expense.
func (s *Store) DepositToSavings(amount decimal.Decimal, reason, operator string) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return s.mutate(func(st *State) error {
		if amount.GreaterThan(st.Balance) {
			return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientFunds, amount, st.Balance)
		}
		st.Balance = st.Balance.Sub(amount)
		st.SavingsBalance = st.SavingsBalance.Add(amount)
		s.appendRecord(st, domain.TxExpense, amount, SavingsDepositPrefix+reason, operator)
		return nil
	})
}

// WithdrawFromSavings moves amount from the vault back to the balance and
// records an income.
func (s *Store) WithdrawFromSavings(amount decimal.Decimal, reason, operator string) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	return s.mutate(func(st *State) error {
		return s.withdraw(st, amount, reason, operator)
	})
}

func (s *Store) withdraw(st *State, amount decimal.Decimal, reason, operator string) error {
	if amount.GreaterThan(st.SavingsBalance) {
		return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientSavings, amount, st.SavingsBalance)
	}
	st.SavingsBalance = st.SavingsBalance.Sub(amount)
	st.Balance = st.Balance.Add(amount)
	s.appendRecord(st, domain.TxIncome, amount, SavingsWithdrawalPrefix+reason, operator)
	return nil
}

// ApplyWithdrawal queues a pending request and returns its ID. No funds move.
func (s *Store) ApplyWithdrawal(amount decimal.Decimal, reason string, src domain.Source) (string, error) {
	if !amount.IsPositive() {
		return "", domain.ErrInvalidAmount
	}
	var id string
	err := s.mutate(func(st *State) error {
		if amount.GreaterThan(st.SavingsBalance) {
			return fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientSavings, amount, st.SavingsBalance)
		}
		id = s.newID()
		st.Withdrawals = append(st.Withdrawals, domain.WithdrawalRequest{
			ID:        id,
			Amount:    amount,
			Reason:    reason,
			CreatedAt: s.now(),
			Status:    domain.WithdrawalPending,
			Source:    src,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("withdrawal requested",
		zap.String("id", id),
		zap.Stringer("amount", amount),
		zap.String("user", src.UserID),
	)
	return id, nil
}

// ApproveWithdrawal approves a pending request and performs the transfer.
// The amount is re-checked against the savings balance at approval time.
func (s *Store) ApproveWithdrawal(id, operator string) (domain.WithdrawalRequest, error) {
	var decided domain.WithdrawalRequest
	err := s.mutate(func(st *State) error {
		i, err := findPending(st, id)
		if err != nil {
			return err
		}
		w := &st.Withdrawals[i]
		if err := s.withdraw(st, w.Amount, w.Reason, operator); err != nil {
			return err
		}
		s.decide(w, domain.WithdrawalApproved, operator)
		decided = *w
		s.trimDecided(st)
		return nil
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	s.logger.Info("withdrawal approved", zap.String("id", id), zap.Stringer("amount", decided.Amount))
	return decided, nil
}

// RejectWithdrawal rejects a pending request. No funds move.
func (s *Store) RejectWithdrawal(id, rejectReason, operator string) (domain.WithdrawalRequest, error) {
	var decided domain.WithdrawalRequest
	err := s.mutate(func(st *State) error {
		i, err := findPending(st, id)
		if err != nil {
			return err
		}
		w := &st.Withdrawals[i]
		w.RejectReason = rejectReason
		s.decide(w, domain.WithdrawalRejected, operator)
		decided = *w
		s.trimDecided(st)
		return nil
	})
	if err != nil {
		return domain.WithdrawalRequest{}, err
	}
	s.logger.Info("withdrawal rejected", zap.String("id", id), zap.String("reason", rejectReason))
	return decided, nil
}

func (s *Store) decide(w *domain.WithdrawalRequest, status domain.WithdrawalStatus, operator string) {
	at := s.now()
	w.Status = status
	w.DecidedAt = &at
	w.DecidedBy = operator
}

// trimDecided keeps at most MaxRecords decided requests; pending ones are
// never dropped.
func (s *Store) trimDecided(st *State) {
	decided := 0
	for _, w := range st.Withdrawals {
		if !w.IsPending() {
			decided++
		}
	}
	drop := decided - s.cfg.MaxRecords
	if drop <= 0 {
		return
	}
	kept := st.Withdrawals[:0]
	for _, w := range st.Withdrawals {
		if drop > 0 && !w.IsPending() {
			drop--
			continue
		}
		kept = append(kept, w)
	}
	st.Withdrawals = kept
}

func findPending(st *State, id string) (int, error) {
	for i, w := range st.Withdrawals {
		if w.ID != id {
			continue
		}
		if !w.IsPending() {
			return -1, fmt.Errorf("%w: %s is %s", domain.ErrWithdrawalDecided, id, w.Status)
		}
		return i, nil
	}
	return -1, fmt.Errorf("%w: %s", domain.ErrWithdrawalNotFound, id)
}

// Withdrawal returns the request with the given ID, decided or not.
func (s *Store) Withdrawal(id string) (domain.WithdrawalRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.state.Withdrawals {
		if w.ID == id {
			return w, true
		}
	}
	return domain.WithdrawalRequest{}, false
}

// PendingWithdrawals returns requests awaiting a decision, oldest first.
func (s *Store) PendingWithdrawals() []domain.WithdrawalRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.WithdrawalRequest
	for _, w := range s.state.Withdrawals {
		if w.IsPending() {
			out = append(out, w)
		}
	}
	return out
}
