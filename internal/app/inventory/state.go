package inventory

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// DocumentVersion is the current inventory document version.
//
//	v1: {items | shared_items, user_slots} with "2006-01-02 15:04:05" stamps
//	v2: shared_items only, RFC 3339 stamps
const DocumentVersion = 2

// State is the full persisted inventory.
type State struct {
	SharedItems []domain.Item                `json:"shared_items"`
	UserSlots   map[string][]domain.GiftItem `json:"user_slots"`
}

func (s State) clone() State {
	out := State{
		SharedItems: slices.Clone(s.SharedItems),
		UserSlots:   make(map[string][]domain.GiftItem, len(s.UserSlots)),
	}
	for uid, items := range s.UserSlots {
		out.UserSlots[uid] = slices.Clone(items)
	}
	return out
}

// normalize fills nil collections and drops items beyond the configured
// capacities, keeping the oldest.
func (s *State) normalize(cfg Config) {
	if cfg.MaxSharedSlots > 0 && len(s.SharedItems) > cfg.MaxSharedSlots {
		s.SharedItems = s.SharedItems[:cfg.MaxSharedSlots]
	}
	for uid, items := range s.UserSlots {
		if cfg.MaxUserSlots > 0 && len(items) > cfg.MaxUserSlots {
			s.UserSlots[uid] = items[:cfg.MaxUserSlots]
		}
	}
	if s.SharedItems == nil {
		s.SharedItems = []domain.Item{}
	}
	if s.UserSlots == nil {
		s.UserSlots = map[string][]domain.GiftItem{}
	}
}

// userIDs returns the user IDs that own slots, sorted.
func (s State) userIDs() []string {
	return slices.Sorted(maps.Keys(s.UserSlots))
}

const legacyTimeLayout = "2006-01-02 15:04:05"

type legacyItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	From        string `json:"from"`
	Time        string `json:"time"`
}

func (li legacyItem) item() (domain.Item, error) {
	it := domain.Item{Name: li.Name, Description: li.Description}
	if li.Time == "" {
		return it, nil
	}
	at, err := time.ParseInLocation(legacyTimeLayout, li.Time, time.Local)
	if err != nil {
		return domain.Item{}, fmt.Errorf("item %q time: %w", li.Name, err)
	}
	it.CreatedAt = at
	return it, nil
}

type stateV1 struct {
	Items       []legacyItem            `json:"items"`
	SharedItems []legacyItem            `json:"shared_items"`
	UserSlots   map[string][]legacyItem `json:"user_slots"`
}

func upgradeV1(body []byte) (State, error) {
	var old stateV1
	if err := json.Unmarshal(body, &old); err != nil {
		return State{}, err
	}
	shared := old.SharedItems
	if shared == nil {
		shared = old.Items
	}

	var st State
	for _, li := range shared {
		it, err := li.item()
		if err != nil {
			return State{}, err
		}
		st.SharedItems = append(st.SharedItems, it)
	}
	st.UserSlots = make(map[string][]domain.GiftItem, len(old.UserSlots))
	for uid, items := range old.UserSlots {
		for _, li := range items {
			it, err := li.item()
			if err != nil {
				return State{}, err
			}
			st.UserSlots[uid] = append(st.UserSlots[uid], domain.GiftItem{Item: it, From: li.From})
		}
	}
	return st, nil
}

func codec(cfg Config) persist.Codec[State] {
	return persist.Codec[State]{
		Kind:    domain.KindInventory,
		Version: DocumentVersion,
		Default: func() State { return State{} },
		Upgrade: func(version int, body []byte) (State, error) {
			if version != 1 {
				return State{}, fmt.Errorf("no upgrade path from v%d", version)
			}
			return upgradeV1(body)
		},
		Normalize: func(st *State) { st.normalize(cfg) },
	}
}
