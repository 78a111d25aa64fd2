package ledger

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Persisted State ────────────────────────────────────────────────────────

// DocumentVersion is the current ledger document version.
//
//	v1: {balance, records} with "2006-01-02 15:04:05" local timestamps
//	v2: adds savings_balance, notes, withdrawals; RFC 3339 timestamps
const DocumentVersion = 2

// State is the full persisted ledger.
type State struct {
	Balance        decimal.Decimal            `json:"balance"`
	SavingsBalance decimal.Decimal            `json:"savings_balance"`
	Records        []domain.Transaction       `json:"records"`
	Notes          []string                   `json:"notes"`
	Withdrawals    []domain.WithdrawalRequest `json:"withdrawals"`
}

func (s State) clone() State {
	out := s
	out.Records = slices.Clone(s.Records)
	out.Notes = slices.Clone(s.Notes)
	out.Withdrawals = make([]domain.WithdrawalRequest, len(s.Withdrawals))
	for i, w := range s.Withdrawals {
		if w.DecidedAt != nil {
			at := *w.DecidedAt
			w.DecidedAt = &at
		}
		out.Withdrawals[i] = w
	}
	return out
}

// normalize fills nil collections and keeps the newest records and notes
// within the configured bounds.
func (s *State) normalize(cfg Config) {
	if over := len(s.Records) - cfg.MaxRecords; cfg.MaxRecords > 0 && over > 0 {
		s.Records = append([]domain.Transaction(nil), s.Records[over:]...)
	}
	if over := len(s.Notes) - cfg.MaxNotes; cfg.MaxNotes > 0 && over > 0 {
		s.Notes = append([]string(nil), s.Notes[over:]...)
	}
	if s.Records == nil {
		s.Records = []domain.Transaction{}
	}
	if s.Notes == nil {
		s.Notes = []string{}
	}
	if s.Withdrawals == nil {
		s.Withdrawals = []domain.WithdrawalRequest{}
	}
}

func (s State) validate() error {
	if s.Balance.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrNegativeBalance, s.Balance)
	}
	if s.SavingsBalance.IsNegative() {
		return fmt.Errorf("negative savings %s", s.SavingsBalance)
	}
	for i, r := range s.Records {
		if r.Amount.IsNegative() {
			return fmt.Errorf("record %d: negative amount %s", i, r.Amount)
		}
	}
	for _, w := range s.Withdrawals {
		if !w.Amount.IsPositive() {
			return fmt.Errorf("withdrawal %s: %w", w.ID, domain.ErrInvalidAmount)
		}
	}
	return nil
}

// legacyTimeLayout is how v1 documents stamped records.
const legacyTimeLayout = "2006-01-02 15:04:05"

type stateV1 struct {
	Balance *decimal.Decimal `json:"balance"`
	Records []struct {
		Type     domain.TxKind   `json:"type"`
		Amount   decimal.Decimal `json:"amount"`
		Reason   string          `json:"reason"`
		Time     string          `json:"time"`
		Operator string          `json:"operator"`
	} `json:"records"`
}

func codec(cfg Config) persist.Codec[State] {
	return persist.Codec[State]{
		Kind:    domain.KindLedger,
		Version: DocumentVersion,
		Default: func() State {
			return State{Balance: cfg.InitialBalance}
		},
		Upgrade: func(version int, body []byte) (State, error) {
			if version != 1 {
				return State{}, fmt.Errorf("no upgrade path from v%d", version)
			}
			return upgradeV1(body, cfg.InitialBalance)
		},
		Normalize: func(st *State) { st.normalize(cfg) },
		Validate:  State.validate,
	}
}

func upgradeV1(body []byte, initial decimal.Decimal) (State, error) {
	var old stateV1
	if err := json.Unmarshal(body, &old); err != nil {
		return State{}, err
	}
	st := State{Balance: initial}
	if old.Balance != nil {
		st.Balance = *old.Balance
	}
	for _, r := range old.Records {
		at, err := time.ParseInLocation(legacyTimeLayout, r.Time, time.Local)
		if err != nil {
			return State{}, fmt.Errorf("record time %q: %w", r.Time, err)
		}
		st.Records = append(st.Records, domain.Transaction{
			Kind:     r.Type,
			Amount:   r.Amount,
			Reason:   r.Reason,
			Time:     at,
			Operator: r.Operator,
		})
	}
	return st, nil
}
