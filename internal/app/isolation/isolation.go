// Package isolation routes each user to either the real stores or a private
// sandbox copy of them.
//
// A blacklisted user gets an isolated ledger seeded with the real balance at
// the moment of isolation, plus an empty inventory. Their actions touch only
// that copy. Mutations made on the real stores through the proxy's mirroring
// entry points are replayed into every isolated copy, so sandboxed users
// still see bot-initiated economic events.
package isolation

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/inventory"
	"github.com/tutu-network/pocketmoney/internal/app/ledger"
	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
	"github.com/tutu-network/pocketmoney/internal/infra/observability"
)

// ─── Types ──────────────────────────────────────────────────────────────────

// Scope is the store pair a user's operations go to.
type Scope struct {
	Ledger    domain.Ledger
	Inventory domain.Inventory
	Isolated  bool
}

// Config carries the limits used for isolated stores.
type Config struct {
	Ledger    ledger.Config
	Inventory inventory.Config
}

type pair struct {
	ledger    *ledger.Store
	inventory *inventory.Store
}

func (p pair) scope(isolated bool) Scope {
	return Scope{Ledger: p.ledger, Inventory: p.inventory, Isolated: isolated}
}

type blacklistState struct {
	Users []string `json:"users"`
}

var blacklistCodec = persist.Codec[blacklistState]{
	Kind:    domain.KindBlacklist,
	Version: 1,
	Default: func() blacklistState { return blacklistState{} },
	Normalize: func(s *blacklistState) {
		if s.Users == nil {
			s.Users = []string{}
		}
	},
}

// ─── Proxy ──────────────────────────────────────────────────────────────────

// Proxy owns the blacklist and the isolated store instances.
// Thread-safe via Mutex; the stores lock themselves.
type Proxy struct {
	mu        sync.Mutex
	cfg       Config
	docs      domain.DocumentStore
	real      pair
	blacklist []string
	isolated  map[string]pair
	logger    *zap.Logger
}

// Open loads the blacklist and the isolated stores of every listed user.
func Open(docs domain.DocumentStore, realLedger *ledger.Store, realInventory *inventory.Store, cfg Config, logger *zap.Logger) (*Proxy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proxy{
		cfg:      cfg,
		docs:     docs,
		real:     pair{ledger: realLedger, inventory: realInventory},
		isolated: make(map[string]pair),
		logger:   logger.Named("isolation"),
	}

	res, err := persist.Load(docs, domain.ScopeGlobal, blacklistCodec, p.logger)
	if err != nil {
		return nil, err
	}
	p.blacklist = res.State.Users

	for _, userID := range p.blacklist {
		iso, err := p.openIsolated(userID)
		if err != nil {
			return nil, fmt.Errorf("open isolated stores for %s: %w", userID, err)
		}
		p.isolated[userID] = iso
	}
	observability.IsolatedUsers.Set(float64(len(p.blacklist)))
	p.logger.Info("isolation loaded", zap.Int("blacklisted", len(p.blacklist)))
	return p, nil
}

// openIsolated reopens persisted isolated stores, or creates them when the
// user has none yet.
func (p *Proxy) openIsolated(userID string) (pair, error) {
	scope := domain.IsolatedScope(userID)
	_, err := p.docs.GetDocument(scope, domain.KindLedger)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return p.createIsolated(userID)
	case err != nil:
		return pair{}, err
	}

	l, err := ledger.Open(p.docs, scope, p.cfg.Ledger, p.logger)
	if err != nil {
		return pair{}, err
	}
	inv, err := inventory.Open(p.docs, scope, p.cfg.Inventory, p.logger)
	if err != nil {
		return pair{}, err
	}
	return pair{ledger: l, inventory: inv}, nil
}

// createIsolated seeds a fresh pair from the current real balance,
// replacing anything left in the user's scope.
func (p *Proxy) createIsolated(userID string) (pair, error) {
	scope := domain.IsolatedScope(userID)
	seed := p.real.ledger.Balance()
	l, err := ledger.Seed(p.docs, scope, p.cfg.Ledger, seed, p.logger)
	if err != nil {
		return pair{}, err
	}
	inv, err := inventory.Fresh(p.docs, scope, p.cfg.Inventory, p.logger)
	if err != nil {
		return pair{}, err
	}
	p.logger.Info("isolated stores created", zap.String("user", userID), zap.Stringer("seed", seed))
	return pair{ledger: l, inventory: inv}, nil
}

// ─── Blacklist ──────────────────────────────────────────────────────────────

// IsBlacklisted reports whether the user is redirected to isolated stores.
func (p *Proxy) IsBlacklisted(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.blacklist, userID)
}

// Blacklist returns the listed users in the order they were added.
func (p *Proxy) Blacklist() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.blacklist)
}

// Add blacklists the user and creates their isolated stores, seeded with
// the real balance as it is now.
func (p *Proxy) Add(userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slices.Contains(p.blacklist, userID) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyBlacklisted, userID)
	}
	next := append(slices.Clone(p.blacklist), userID)
	if err := persist.Save(p.docs, domain.ScopeGlobal, blacklistCodec, blacklistState{Users: next}); err != nil {
		return err
	}
	p.blacklist = next
	observability.IsolatedUsers.Set(float64(len(next)))

	iso, err := p.createIsolated(userID)
	if err != nil {
		// Resolve retries creation on first use.
		p.logger.Error("create isolated stores failed", zap.String("user", userID), zap.Error(err))
		return nil
	}
	p.isolated[userID] = iso
	return nil
}

// Remove un-blacklists the user and destroys their isolated stores.
// The stores are retired before the scope is deleted, so a mirror replay or
// a scope handed out earlier cannot write the documents back.
// Re-adding the user later starts from a fresh seed.
func (p *Proxy) Remove(userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := slices.Index(p.blacklist, userID)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotBlacklisted, userID)
	}
	next := slices.Delete(slices.Clone(p.blacklist), i, i+1)
	if err := persist.Save(p.docs, domain.ScopeGlobal, blacklistCodec, blacklistState{Users: next}); err != nil {
		return err
	}
	p.blacklist = next
	if iso, ok := p.isolated[userID]; ok {
		iso.ledger.Retire()
		iso.inventory.Retire()
		delete(p.isolated, userID)
	}
	observability.IsolatedUsers.Set(float64(len(next)))

	if err := p.docs.DeleteScope(domain.IsolatedScope(userID)); err != nil {
		p.logger.Error("delete isolated scope failed", zap.String("user", userID), zap.Error(err))
	}
	p.logger.Info("user removed from blacklist", zap.String("user", userID))
	return nil
}

// ─── Resolution ─────────────────────────────────────────────────────────────

// Real returns the real store pair.
func (p *Proxy) Real() Scope { return p.real.scope(false) }

// RealLedger returns the real ledger for admin operations.
func (p *Proxy) RealLedger() *ledger.Store { return p.real.ledger }

// RealInventory returns the real inventory for admin operations.
func (p *Proxy) RealInventory() *inventory.Store { return p.real.inventory }

// Resolve returns the stores the user's operations must go to.
func (p *Proxy) Resolve(userID string) (Scope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !slices.Contains(p.blacklist, userID) {
		return p.real.scope(false), nil
	}
	iso, ok := p.isolated[userID]
	if !ok {
		var err error
		iso, err = p.createIsolated(userID)
		if err != nil {
			return Scope{}, fmt.Errorf("isolated stores for %s: %w", userID, err)
		}
		p.isolated[userID] = iso
	}
	return iso.scope(true), nil
}

// Isolated returns the concrete isolated stores of a blacklisted user.
func (p *Proxy) Isolated(userID string) (*ledger.Store, *inventory.Store, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	iso, ok := p.isolated[userID]
	return iso.ledger, iso.inventory, ok
}
