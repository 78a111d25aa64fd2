// Package inventory implements the persona's item slots: one shared
// collection it owns, and a small exclusive collection per user for gifts
// received from that user.
package inventory

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config sets slot capacities.
type Config struct {
	MaxSharedSlots int
	MaxUserSlots   int
}

// DefaultConfig returns the stock capacities.
func DefaultConfig() Config {
	return Config{
		MaxSharedSlots: 10,
		MaxUserSlots:   3,
	}
}

// EmptySummary is what the summaries return when there is nothing to list.
const EmptySummary = "empty"

const summarySeparator = "、"

// ─── Store ──────────────────────────────────────────────────────────────────

// Store is one inventory in one scope. Thread-safe via Mutex.
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

	now func() time.Time
}

var _ domain.Inventory = (*Store)(nil)

// Open loads the inventory persisted in scope, or starts an empty one.
func Open(docs domain.DocumentStore, scope string, cfg Config, logger *zap.Logger) (*Store, error) {
	s := newStore(docs, scope, cfg, logger)
	res, err := persist.Load(docs, scope, codec(s.cfg), s.logger)
	if err != nil {
		return nil, err
	}
	s.state = res.State
	s.outcome = res.Outcome
	s.recovery = res.Cause
	return s, nil
}

// Fresh creates an empty inventory in scope, replacing anything persisted
// there, and writes it immediately.
func Fresh(docs domain.DocumentStore, scope string, cfg Config, logger *zap.Logger) (*Store, error) {
	s := newStore(docs, scope, cfg, logger)
	s.state.normalize(s.cfg)
	s.outcome = domain.LoadFresh
	if err := persist.Save(docs, scope, codec(s.cfg), s.state); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(docs domain.DocumentStore, scope string, cfg Config, logger *zap.Logger) *Store {
	def := DefaultConfig()
	if cfg.MaxSharedSlots <= 0 {
		cfg.MaxSharedSlots = def.MaxSharedSlots
	}
	if cfg.MaxUserSlots <= 0 {
		cfg.MaxUserSlots = def.MaxUserSlots
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cfg:    cfg,
		docs:   docs,
		scope:  scope,
		logger: logger.Named("inventory").With(zap.String("scope", scope)),
		now:    time.Now,
	}
}

// Scope returns the storage scope of this inventory.
func (s *Store) Scope() string { return s.scope }

// LoadOutcome reports how the state was obtained at open.
func (s *Store) LoadOutcome() domain.LoadOutcome { return s.outcome }

// RecoveryErr returns why the persisted document was discarded, if it was.
func (s *Store) RecoveryErr() error { return s.recovery }

// MaxSharedSlots returns the shared capacity.
func (s *Store) MaxSharedSlots() int { return s.cfg.MaxSharedSlots }

// MaxUserSlots returns the per-user capacity.
func (s *Store) MaxUserSlots() int { return s.cfg.MaxUserSlots }

// Retire makes every later mutation fail with ErrStoreRetired once any
// in-flight mutation has been written.
func (s *Store) Retire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = true
}

func (s *Store) mutate(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		return fmt.Errorf("inventory %s: %w", s.scope, domain.ErrStoreRetired)
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

// indexOf returns the first position whose name matches, or -1.
func indexOf[T any](items []T, name string, nameOf func(T) string) int {
	for i, it := range items {
		if domain.ItemNameMatches(nameOf(it), name) {
			return i
		}
	}
	return -1
}

// ─── Shared Slots ───────────────────────────────────────────────────────────

// AddSharedItem stores an item in the shared slots.
func (s *Store) AddSharedItem(name, description string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrEmptyItemName
	}
	err := s.mutate(func(st *State) error {
		if len(st.SharedItems) >= s.cfg.MaxSharedSlots {
			return fmt.Errorf("%w: %d/%d", domain.ErrSharedSlotsFull, len(st.SharedItems), s.cfg.MaxSharedSlots)
		}
		st.SharedItems = append(st.SharedItems, domain.Item{
			Name:        name,
			Description: description,
			CreatedAt:   s.now(),
		})
		return nil
	})
	if err == nil {
		s.logger.Info("item stored", zap.String("name", name))
	}
	return err
}

// UseSharedItem removes the first shared item whose name matches.
func (s *Store) UseSharedItem(name string) error {
	err := s.mutate(func(st *State) error {
		i := indexOf(st.SharedItems, name, func(it domain.Item) string { return it.Name })
		if i < 0 {
			return fmt.Errorf("%w: %q", domain.ErrItemNotFound, name)
		}
		st.SharedItems = slices.Delete(st.SharedItems, i, i+1)
		return nil
	})
	if err == nil {
		s.logger.Info("item used", zap.String("name", name))
	}
	return err
}

// ClearSharedItems empties the shared slots.
func (s *Store) ClearSharedItems() error {
	return s.mutate(func(st *State) error {
		st.SharedItems = []domain.Item{}
		return nil
	})
}

// SharedItems returns the shared items in insertion order.
func (s *Store) SharedItems() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.SharedItems)
}

// SharedCount returns how many shared slots are in use.
func (s *Store) SharedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.SharedItems)
}

// ─── User Slots ─────────────────────────────────────────────────────────────

// AddUserGift stores a gift in the user's slots.
func (s *Store) AddUserGift(userID, name, description, from string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrEmptyItemName
	}
	err := s.mutate(func(st *State) error {
		items := st.UserSlots[userID]
		if len(items) >= s.cfg.MaxUserSlots {
			return fmt.Errorf("%w: user %s %d/%d", domain.ErrUserSlotsFull, userID, len(items), s.cfg.MaxUserSlots)
		}
		st.UserSlots[userID] = append(items, domain.GiftItem{
			Item: domain.Item{
				Name:        name,
				Description: description,
				CreatedAt:   s.now(),
			},
			From: from,
		})
		return nil
	})
	if err == nil {
		s.logger.Info("gift stored", zap.String("user", userID), zap.String("name", name), zap.String("from", from))
	}
	return err
}

// UseUserItem removes the first matching item from the user's slots.
func (s *Store) UseUserItem(userID, name string) error {
	return s.mutate(func(st *State) error {
		items := st.UserSlots[userID]
		i := indexOf(items, name, func(it domain.GiftItem) string { return it.Name })
		if i < 0 {
			return fmt.Errorf("%w: %q for user %s", domain.ErrItemNotFound, name, userID)
		}
		st.UserSlots[userID] = slices.Delete(items, i, i+1)
		return nil
	})
}

// ClearUserItems empties the user's slots.
func (s *Store) ClearUserItems(userID string) error {
	return s.mutate(func(st *State) error {
		delete(st.UserSlots, userID)
		return nil
	})
}

// UserItems returns the user's gifts in insertion order.
func (s *Store) UserItems(userID string) []domain.GiftItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.UserSlots[userID])
}

// UserCount returns how many of the user's slots are in use.
func (s *Store) UserCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.UserSlots[userID])
}

// AllUserSlots returns a copy of every user's gifts, skipping empty ones.
func (s *Store) AllUserSlots() map[string][]domain.GiftItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]domain.GiftItem, len(s.state.UserSlots))
	for _, uid := range s.state.userIDs() {
		if items := s.state.UserSlots[uid]; len(items) > 0 {
			out[uid] = slices.Clone(items)
		}
	}
	return out
}

// ─── Summaries ──────────────────────────────────────────────────────────────

// SharedSummary renders the shared items as "name(description)" joined
// by "、".
func (s *Store) SharedSummary() string {
	return FormatShared(s.SharedItems())
}

// UserSummary renders the user's gifts as "name(from X: description)".
func (s *Store) UserSummary(userID string) string {
	return FormatGifts(s.UserItems(userID))
}

// FormatShared renders shared items for prompt injection.
func FormatShared(items []domain.Item) string {
	if len(items) == 0 {
		return EmptySummary
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s(%s)", it.Name, it.Description)
	}
	return strings.Join(parts, summarySeparator)
}

// FormatGifts renders gifts for prompt injection.
func FormatGifts(items []domain.GiftItem) string {
	if len(items) == 0 {
		return EmptySummary
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s(from %s: %s)", it.Name, it.From, it.Description)
	}
	return strings.Join(parts, summarySeparator)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}
