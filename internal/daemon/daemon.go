package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/commendation"
	"github.com/tutu-network/pocketmoney/internal/app/inventory"
	"github.com/tutu-network/pocketmoney/internal/app/isolation"
	"github.com/tutu-network/pocketmoney/internal/app/ledger"
	"github.com/tutu-network/pocketmoney/internal/app/tags"
	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/observability"
	"github.com/tutu-network/pocketmoney/internal/infra/sqlite"
)

// Daemon holds every store, constructed once at startup and passed by
// reference to the API and CLI.
type Daemon struct {
	Config        Config
	DB            *sqlite.DB
	Ledger        *ledger.Store
	Inventory     *inventory.Store
	Commendations *commendation.Tracker
	Proxy         *isolation.Proxy
	Engine        *tags.Engine
	Journal       *observability.Journal
	Logger        *zap.Logger

	docs      domain.DocumentStore
	now       func() time.Time
	commendMu sync.Mutex
}

// Open opens storage and builds the stores. logger may be nil.
func Open(cfg Config, logger *zap.Logger) (*Daemon, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlite.Open(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	d := &Daemon{Config: cfg, DB: db, Logger: logger, docs: db}
	if err := d.build(); err != nil {
		db.Close()
		return nil, err
	}
	scopes, err := db.CountScopes()
	if err != nil {
		logger.Warn("count scopes failed", zap.Error(err))
	}
	logger.Info("daemon ready",
		zap.String("db", db.Path()),
		zap.Int("scopes", scopes),
		zap.Stringer("ledger", d.Ledger.LoadOutcome()),
		zap.Stringer("inventory", d.Inventory.LoadOutcome()),
		zap.Stringer("commendation", d.Commendations.LoadOutcome()),
		zap.Int("blacklisted", len(d.Proxy.Blacklist())),
	)
	return d, nil
}

// build opens every store on d.docs.
func (d *Daemon) build() error {
	if d.now == nil {
		d.now = time.Now
	}
	var err error
	if d.Ledger, err = ledger.Open(d.docs, domain.ScopeReal, d.Config.LedgerStoreConfig(), d.Logger); err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if d.Inventory, err = inventory.Open(d.docs, domain.ScopeReal, d.Config.InventoryStoreConfig(), d.Logger); err != nil {
		return fmt.Errorf("open inventory: %w", err)
	}
	if d.Commendations, err = commendation.Open(d.docs, domain.ScopeGlobal, d.Config.CommendationTrackerConfig(), d.Logger); err != nil {
		return fmt.Errorf("open commendations: %w", err)
	}
	if d.Proxy, err = isolation.Open(d.docs, d.Ledger, d.Inventory, d.Config.IsolationConfig(), d.Logger); err != nil {
		return fmt.Errorf("open isolation: %w", err)
	}
	d.Journal = observability.NewJournal(d.Config.JournalConfig())
	if d.Engine, err = tags.New(d.Proxy, d.Config.TagsConfig(), d.Journal, d.Logger); err != nil {
		return fmt.Errorf("build tag engine: %w", err)
	}
	return nil
}

// Recoveries lists the stores whose persisted document was unreadable at
// startup and was replaced by defaults.
func (d *Daemon) Recoveries() map[string]error {
	out := make(map[string]error)
	for kind, err := range map[string]error{
		domain.KindLedger:       d.Ledger.RecoveryErr(),
		domain.KindInventory:    d.Inventory.RecoveryErr(),
		domain.KindCommendation: d.Commendations.RecoveryErr(),
	} {
		if err != nil {
			out[kind] = err
		}
	}
	return out
}

// Close closes storage.
func (d *Daemon) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// ─── Commendation ───────────────────────────────────────────────────────────

// CommendResult describes an accepted commendation.
type CommendResult struct {
	Bonus      decimal.Decimal `json:"bonus"`
	Balance    decimal.Decimal `json:"balance"`
	TodayBonus decimal.Decimal `json:"today_bonus"`
	Isolated   bool            `json:"isolated"`
}

// Commend grants the once-per-day commendation from userID: a random bonus
// is credited to the user's resolved ledger and then recorded on the
// leaderboard. A failed credit leaves the daily slot unused; a failed
// record takes the credit back.
func (d *Daemon) Commend(userID, name string) (CommendResult, error) {
	d.commendMu.Lock()
	defer d.commendMu.Unlock()

	if !d.Commendations.CanSendToday(userID) {
		return CommendResult{}, fmt.Errorf("%w: %s", domain.ErrAlreadyCommended, userID)
	}
	scope, err := d.Proxy.Resolve(userID)
	if err != nil {
		return CommendResult{}, err
	}
	if name == "" {
		name = userID
	}

	bonus := d.Commendations.DrawBonus()
	if err := scope.Ledger.AddBonus(bonus); err != nil {
		return CommendResult{}, fmt.Errorf("credit bonus: %w", err)
	}
	if err := d.Commendations.Record(userID, name, bonus); err != nil {
		if rerr := scope.Ledger.RevokeBonus(bonus); rerr != nil {
			d.Logger.Error("bonus credited but commendation not recorded",
				zap.String("user", userID),
				zap.Stringer("bonus", bonus),
				zap.Error(err),
				zap.NamedError("revoke", rerr),
			)
		}
		return CommendResult{}, fmt.Errorf("record commendation: %w", err)
	}
	observability.Commendations.Inc()

	return CommendResult{
		Bonus:      bonus,
		Balance:    scope.Ledger.Balance(),
		TodayBonus: d.Commendations.TodayBonus(),
		Isolated:   scope.Isolated,
	}, nil
}
