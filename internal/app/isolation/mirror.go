package isolation

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/observability"
)

// ─── Mirroring Entry Points ─────────────────────────────────────────────────
// Each applies the operation to the real store first. Only when that
// succeeds is it replayed into every isolated store. Replay failures (an
// isolated balance too low for a mirrored expense, say) are logged and
// counted; they never fail the real operation. A store retired by a
// concurrent Remove is skipped.

// AddIncome credits the real ledger and mirrors the credit.
func (p *Proxy) AddIncome(amount decimal.Decimal, reason, operator string) error {
	if err := p.real.ledger.AddIncome(amount, reason, operator); err != nil {
		return err
	}
	p.mirror("income", func(iso pair) error { return iso.ledger.AddIncome(amount, reason, operator) })
	return nil
}

// AddExpense debits the real ledger and mirrors the debit.
func (p *Proxy) AddExpense(amount decimal.Decimal, reason, operator string) error {
	if err := p.real.ledger.AddExpense(amount, reason, operator); err != nil {
		return err
	}
	p.mirror("expense", func(iso pair) error { return iso.ledger.AddExpense(amount, reason, operator) })
	return nil
}

// SpendUpTo debits the real ledger, flooring at its balance, and mirrors
// the amount actually charged.
func (p *Proxy) SpendUpTo(amount decimal.Decimal, reason, operator string) (domain.Transaction, error) {
	tx, err := p.real.ledger.SpendUpTo(amount, reason, operator)
	if err != nil {
		return tx, err
	}
	p.mirror("expense", func(iso pair) error { return iso.ledger.AddExpense(tx.Amount, tx.Reason, operator) })
	return tx, nil
}

// SetBalance force-sets the real balance and mirrors the new value.
func (p *Proxy) SetBalance(amount decimal.Decimal, reason, operator string) error {
	if err := p.real.ledger.SetBalance(amount, reason, operator); err != nil {
		return err
	}
	p.mirror("set_balance", func(iso pair) error { return iso.ledger.SetBalance(amount, reason, operator) })
	return nil
}

// StoreSharedItem stores into the real shared slots and mirrors it.
func (p *Proxy) StoreSharedItem(name, description string) error {
	if err := p.real.inventory.AddSharedItem(name, description); err != nil {
		return err
	}
	p.mirror("store", func(iso pair) error { return iso.inventory.AddSharedItem(name, description) })
	return nil
}

// UseSharedItem removes from the real shared slots and mirrors it.
func (p *Proxy) UseSharedItem(name string) error {
	if err := p.real.inventory.UseSharedItem(name); err != nil {
		return err
	}
	p.mirror("use", func(iso pair) error { return iso.inventory.UseSharedItem(name) })
	return nil
}

func (p *Proxy) mirror(op string, apply func(pair) error) {
	p.mu.Lock()
	targets := make(map[string]pair, len(p.isolated))
	for userID, iso := range p.isolated {
		targets[userID] = iso
	}
	p.mu.Unlock()

	for userID, iso := range targets {
		err := apply(iso)
		if errors.Is(err, domain.ErrStoreRetired) {
			observability.MirrorOps.WithLabelValues(op, "skipped").Inc()
			continue
		}
		if err != nil {
			observability.MirrorOps.WithLabelValues(op, "failed").Inc()
			p.logger.Warn("mirror failed",
				zap.String("op", op),
				zap.String("user", userID),
				zap.Error(err),
			)
			continue
		}
		observability.MirrorOps.WithLabelValues(op, "applied").Inc()
	}
}
