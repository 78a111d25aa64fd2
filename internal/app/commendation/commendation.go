// Package commendation tracks the once-per-day commendation reward:
// who sent one today, the all-time leaderboard, and the bonus totals.
//
// Day boundaries follow the local clock. The first access on a new day
// zeroes today's bonus and prunes sender sets older than the retention
// window.
package commendation

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the tracker.
type Config struct {
	RetentionDays int   // sender sets older than this are pruned
	MinBonus      int64 // inclusive bounds for DrawBonus
	MaxBonus      int64
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		RetentionDays: 7,
		MinBonus:      1,
		MaxBonus:      10,
	}
}

// ─── Tracker ────────────────────────────────────────────────────────────────

// Tracker is the commendation state. Thread-safe via Mutex.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	docs   domain.DocumentStore
	scope  string
	state  State
	logger *zap.Logger

	outcome  domain.LoadOutcome
	recovery error

	// Injectable for testing.
	now  func() time.Time
	intN func(n int64) int64
}

// Open loads the tracker persisted in scope, or starts an empty one.
func Open(docs domain.DocumentStore, scope string, cfg Config, logger *zap.Logger) (*Tracker, error) {
	def := DefaultConfig()
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = def.RetentionDays
	}
	if cfg.MinBonus <= 0 {
		cfg.MinBonus = def.MinBonus
	}
	if cfg.MaxBonus < cfg.MinBonus {
		cfg.MaxBonus = cfg.MinBonus
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		cfg:    cfg,
		docs:   docs,
		scope:  scope,
		logger: logger.Named("commendation"),
		now:    time.Now,
		intN:   rand.Int64N,
	}
	res, err := persist.Load(docs, scope, codec(), t.logger)
	if err != nil {
		return nil, err
	}
	t.state = res.State
	t.outcome = res.Outcome
	t.recovery = res.Cause
	return t, nil
}

// LoadOutcome reports how the state was obtained at open.
func (t *Tracker) LoadOutcome() domain.LoadOutcome { return t.outcome }

// RecoveryErr returns why the persisted document was discarded, if it was.
func (t *Tracker) RecoveryErr() error { return t.recovery }

func (t *Tracker) today() string {
	return t.now().Local().Format(dateLayout)
}

// rollover moves st to today if it is stale. Reports whether it changed.
func (t *Tracker) rollover(st *State) bool {
	today := t.today()
	if st.TodayDate == today {
		return false
	}
	st.TodayDate = today
	st.TodayBonus = decimal.Zero

	cutoff := t.now().Local().AddDate(0, 0, -t.cfg.RetentionDays).Format(dateLayout)
	for _, day := range st.days() {
		if day < cutoff {
			delete(st.DailySenders, day)
		}
	}
	return true
}

// touch applies a pending rollover. Must hold t.mu. A failed write keeps the
// rollover in memory; it is recomputed identically on the next write.
func (t *Tracker) touch() {
	next := t.state.clone()
	if !t.rollover(&next) {
		return
	}
	if err := persist.Save(t.docs, t.scope, codec(), next); err != nil {
		t.logger.Error("persist rollover failed", zap.Error(err))
	}
	t.state = next
	t.logger.Debug("day rollover", zap.String("today", next.TodayDate))
}

// ─── Operations ─────────────────────────────────────────────────────────────

// CanSendToday reports whether the user has not yet sent a commendation today.
func (t *Tracker) CanSendToday(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()
	return !slices.Contains(t.state.DailySenders[t.state.TodayDate], userID)
}

// Record registers a commendation from userID worth amount. It fails with
// ErrAlreadyCommended when the user already sent one today.
func (t *Tracker) Record(userID, name string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return domain.ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state.clone()
	t.rollover(&next)
	today := next.TodayDate
	if slices.Contains(next.DailySenders[today], userID) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyCommended, userID)
	}

	next.DailySenders[today] = append(next.DailySenders[today], userID)
	upsertRanking(&next, userID, name)
	next.TodayBonus = next.TodayBonus.Add(amount)
	next.TotalBonus = next.TotalBonus.Add(amount)

	if err := persist.Save(t.docs, t.scope, codec(), next); err != nil {
		t.logger.Error("persist failed, commendation rolled back", zap.Error(err))
		return err
	}
	t.state = next
	t.logger.Info("commendation recorded",
		zap.String("user", userID),
		zap.String("name", name),
		zap.Stringer("amount", amount),
	)
	return nil
}

// upsertRanking bumps the user's entry, renaming its key in place when the
// display name changed.
func upsertRanking(st *State, userID, name string) {
	key := domain.RankingKey(userID, name)
	for i := range st.Ranking {
		if st.Ranking[i].UserID() == userID {
			st.Ranking[i].Key = key
			st.Ranking[i].Count++
			return
		}
	}
	st.Ranking = append(st.Ranking, domain.RankingEntry{Key: key, Count: 1})
}

// Ranking returns the top n entries by count, descending. Ties keep
// insertion order. n <= 0 returns every entry.
func (t *Tracker) Ranking(n int) []domain.RankingEntry {
	t.mu.Lock()
	out := slices.Clone(t.state.Ranking)
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// TodayBonus returns the bonus granted today.
func (t *Tracker) TodayBonus() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.touch()
	return t.state.TodayBonus
}

// TotalBonus returns the bonus granted since the tracker was created.
func (t *Tracker) TotalBonus() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.TotalBonus
}

// DrawBonus picks a bonus uniformly in [MinBonus, MaxBonus].
func (t *Tracker) DrawBonus() decimal.Decimal {
	span := t.cfg.MaxBonus - t.cfg.MinBonus + 1
	return decimal.NewFromInt(t.cfg.MinBonus + t.intN(span))
}

// Snapshot returns a deep copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}
