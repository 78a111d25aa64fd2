package domain

import "strings"

// ─── Commendation & Leaderboard Types ───────────────────────────────────────
// A commendation is a once-per-day, per-user reward. The leaderboard counts
// commendations per sender; names are display-only and may change.

// RankingEntry is a user's position on the commendation leaderboard.
// Key is "userID|displayName" and is renamed in place when the name changes.
type RankingEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// RankingKey builds the leaderboard key for a user.
func RankingKey(userID, name string) string {
	return userID + "|" + name
}

// UserID returns the user part of the key.
func (e RankingEntry) UserID() string {
	id, _, _ := strings.Cut(e.Key, "|")
	return id
}

// DisplayName returns the name part of the key, or the user ID when
// the key has no name.
func (e RankingEntry) DisplayName() string {
	id, name, ok := strings.Cut(e.Key, "|")
	if !ok {
		return id
	}
	return name
}
