package daemon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Allowance Schedule ─────────────────────────────────────────────────────

// AllowanceSchedule says when the weekly allowance is next paid.
type AllowanceSchedule struct {
	Day       string `json:"allowance_day"`
	Today     string `json:"today"`
	DaysUntil int    `json:"days_until"` // 0 on the allowance day itself
	Next      string `json:"next_date"`  // YYYY-MM-DD, local
}

// IsToday reports whether today is the allowance day.
func (a AllowanceSchedule) IsToday() bool { return a.DaysUntil == 0 }

// allowanceSchedule computes the schedule for day (1 = Monday ... 7 = Sunday).
func allowanceSchedule(day int, now time.Time) AllowanceSchedule {
	now = now.Local()
	target := time.Weekday(day % 7)
	days := (int(target) - int(now.Weekday()) + 7) % 7
	return AllowanceSchedule{
		Day:       target.String(),
		Today:     now.Weekday().String(),
		DaysUntil: days,
		Next:      now.AddDate(0, 0, days).Format("2006-01-02"),
	}
}

// Allowance returns the allowance schedule as of now.
func (d *Daemon) Allowance() AllowanceSchedule {
	return allowanceSchedule(d.Config.Ledger.AllowanceDay, d.now())
}

// ─── Status Context ─────────────────────────────────────────────────────────

// SlotUsage is how many of a slot group's places are taken.
type SlotUsage struct {
	Used int `json:"used"`
	Max  int `json:"max"`
}

func (u SlotUsage) String() string { return fmt.Sprintf("%d/%d", u.Used, u.Max) }

// StatusContext is what the persona is told about its money and items
// before answering userID. Every figure comes from the user's resolved
// scope, so an isolated user only ever sees their sandbox.
type StatusContext struct {
	UserID        string               `json:"user_id"`
	Isolated      bool                 `json:"isolated"`
	Balance       decimal.Decimal      `json:"balance"`
	Allowance     AllowanceSchedule    `json:"allowance"`
	RecentIncome  []domain.Transaction `json:"recent_income"`
	RecentExpense []domain.Transaction `json:"recent_expense"`
	TodayBonus    decimal.Decimal      `json:"today_bonus"`
	SharedSlots   SlotUsage            `json:"shared_slots"`
	SharedItems   string               `json:"shared_items"`
	UserSlots     SlotUsage            `json:"user_slots"`
	UserItems     string               `json:"user_items"`
}

// Context assembles the status context for userID.
func (d *Daemon) Context(userID string) (StatusContext, error) {
	scope, err := d.Proxy.Resolve(userID)
	if err != nil {
		return StatusContext{}, err
	}
	inv := scope.Inventory
	return StatusContext{
		UserID:        userID,
		Isolated:      scope.Isolated,
		Balance:       scope.Ledger.Balance(),
		Allowance:     d.Allowance(),
		RecentIncome:  recent(scope.Ledger.RecentIncome, d.Config.Context.IncomeRecords),
		RecentExpense: recent(scope.Ledger.RecentExpense, d.Config.Context.ExpenseRecords),
		TodayBonus:    d.Commendations.TodayBonus(),
		SharedSlots:   SlotUsage{Used: len(inv.SharedItems()), Max: inv.MaxSharedSlots()},
		SharedItems:   inv.SharedSummary(),
		UserSlots:     SlotUsage{Used: len(inv.UserItems(userID)), Max: inv.MaxUserSlots()},
		UserItems:     inv.UserSummary(userID),
	}, nil
}

// recent returns the last n records from fetch; n == 0 means none.
func recent(fetch func(int) []domain.Transaction, n int) []domain.Transaction {
	if n <= 0 {
		return []domain.Transaction{}
	}
	return fetch(n)
}
