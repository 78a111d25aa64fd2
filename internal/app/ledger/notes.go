package ledger

import (
	"fmt"

	"github.com/tutu-network/pocketmoney/internal/domain"
)

// ─── Notes ──────────────────────────────────────────────────────────────────

// AddNote appends text and keeps only the most recent maxEntries notes.
// maxEntries <= 0 uses the configured limit.
func (s *Store) AddNote(text string, maxEntries int) error {
	if maxEntries <= 0 {
		maxEntries = s.cfg.MaxNotes
	}
	return s.mutate(func(st *State) error {
		st.Notes = append(st.Notes, text)
		if over := len(st.Notes) - maxEntries; over > 0 {
			st.Notes = append([]string(nil), st.Notes[over:]...)
		}
		return nil
	})
}

// DeleteNote removes the note at the 1-based index.
func (s *Store) DeleteNote(index int) error {
	return s.mutate(func(st *State) error {
		if index < 1 || index > len(st.Notes) {
			return fmt.Errorf("%w: %d of %d", domain.ErrNoteIndex, index, len(st.Notes))
		}
		st.Notes = append(st.Notes[:index-1], st.Notes[index:]...)
		return nil
	})
}

// ClearNotes removes every note.
func (s *Store) ClearNotes() error {
	return s.mutate(func(st *State) error {
		st.Notes = []string{}
		return nil
	})
}

// Notes returns the notes, oldest first.
func (s *Store) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.state.Notes...)
}
