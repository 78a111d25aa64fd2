package commendation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/tutu-network/pocketmoney/internal/app/persist"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

// DocumentVersion is the current commendation document version.
//
//	v1: ranking is a JSON object {"userID|name": count}
//	v2: ranking is an ordered list of entries
const DocumentVersion = 2

// dateLayout keys daily senders; ISO order makes string comparison valid.
const dateLayout = "2006-01-02"

// State is the full persisted commendation tracker.
type State struct {
	DailySenders map[string][]string   `json:"daily_senders"`
	Ranking      []domain.RankingEntry `json:"ranking"`
	TodayBonus   decimal.Decimal       `json:"today_bonus"`
	TodayDate    string                `json:"today_date"`
	TotalBonus   decimal.Decimal       `json:"total_bonus"`
}

func (s State) clone() State {
	out := s
	out.Ranking = slices.Clone(s.Ranking)
	out.DailySenders = make(map[string][]string, len(s.DailySenders))
	for day, ids := range s.DailySenders {
		out.DailySenders[day] = slices.Clone(ids)
	}
	return out
}

func (s *State) normalize() {
	if s.DailySenders == nil {
		s.DailySenders = map[string][]string{}
	}
	if s.Ranking == nil {
		s.Ranking = []domain.RankingEntry{}
	}
}

func (s State) validate() error {
	if s.TodayBonus.IsNegative() || s.TotalBonus.IsNegative() {
		return fmt.Errorf("negative bonus total (today %s, all time %s)", s.TodayBonus, s.TotalBonus)
	}
	for _, e := range s.Ranking {
		if e.Count < 0 {
			return fmt.Errorf("ranking %q: negative count %d", e.Key, e.Count)
		}
	}
	return nil
}

// days returns the sender-set dates, oldest first.
func (s State) days() []string {
	return slices.Sorted(maps.Keys(s.DailySenders))
}

type stateV1 struct {
	DailySenders map[string][]string `json:"daily_senders"`
	Ranking      json.RawMessage     `json:"ranking"`
	TodayBonus   decimal.Decimal     `json:"today_bonus"`
	TodayDate    string              `json:"today_date"`
	TotalBonus   decimal.Decimal     `json:"total_bonus"`
}

func upgradeV1(body []byte) (State, error) {
	var old stateV1
	if err := json.Unmarshal(body, &old); err != nil {
		return State{}, err
	}
	ranking, err := decodeOrderedRanking(old.Ranking)
	if err != nil {
		return State{}, fmt.Errorf("ranking: %w", err)
	}
	return State{
		DailySenders: old.DailySenders,
		Ranking:      ranking,
		TodayBonus:   old.TodayBonus,
		TodayDate:    old.TodayDate,
		TotalBonus:   old.TotalBonus,
	}, nil
}

// decodeOrderedRanking reads a {"key": count} object keeping key order,
// which decides ties on the leaderboard.
func decodeOrderedRanking(raw json.RawMessage) ([]domain.RankingEntry, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var out []domain.RankingEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return nil, fmt.Errorf("count for %q: %w", key, err)
		}
		out = append(out, domain.RankingEntry{Key: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func codec() persist.Codec[State] {
	return persist.Codec[State]{
		Kind:    domain.KindCommendation,
		Version: DocumentVersion,
		Default: func() State { return State{} },
		Upgrade: func(version int, body []byte) (State, error) {
			if version != 1 {
				return State{}, fmt.Errorf("no upgrade path from v%d", version)
			}
			return upgradeV1(body)
		},
		Normalize: (*State).normalize,
		Validate:  State.validate,
	}
}
