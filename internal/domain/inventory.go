package domain

import (
	"strings"
	"time"
	"unicode"
)

// ─── Inventory Types ────────────────────────────────────────────────────────

// Item is something the persona keeps in its shared inventory.
type Item struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"time"`
}

// GiftItem is an item received from a user, kept in that user's slots.
type GiftItem struct {
	Item
	From string `json:"from"`
}

// NormalizeItemName folds case and drops all whitespace so that
// "  Candy Bar " and "candybar" compare equal.
func NormalizeItemName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}

// ItemNameMatches reports whether a stored name matches a requested one:
// either the normalized forms are equal or the raw strings are.
func ItemNameMatches(stored, requested string) bool {
	if stored == requested {
		return true
	}
	n := NormalizeItemName(requested)
	return n != "" && NormalizeItemName(stored) == n
}
