package history

import (
	"sync"

	"github.com/easypluginz/apphistory/internal/types"
)

// PreserveHint carries fields a background reload must not clobber. The
// bulk query path cannot return the stakeholder, so after a mutation the
// just-written row's stakeholder is pinned until a related-list load
// supplies it again.
type PreserveHint struct {
	ID          string
	Stakeholder *types.StakeholderRef
}

// Store is the in-memory row set the widget renders from. Mutations apply
// optimistically (prepend on create, patch on update) and a background
// reload later replaces the whole set. All methods are safe for concurrent
// use.
type Store struct {
	mu          sync.RWMutex
	rows        []types.HistoryRow
	highlightID string
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current rows.
func (s *Store) Snapshot() []types.HistoryRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.HistoryRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the current row count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Replace swaps in a freshly loaded row set and clears any highlight.
func (s *Store) Replace(rows []types.HistoryRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.highlightID = ""
}

// ReplacePreserving swaps in a reloaded row set, restoring the hinted
// fields on the matching row when the reload came back without them.
func (s *Store) ReplacePreserving(rows []types.HistoryRow, hint *PreserveHint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hint != nil && hint.ID != "" {
		for i := range rows {
			if rows[i].ID == hint.ID && rows[i].Stakeholder == nil {
				rows[i].Stakeholder = hint.Stakeholder
			}
		}
	}
	s.rows = rows
}

// Prepend inserts a just-created row at the top and highlights it.
func (s *Store) Prepend(row types.HistoryRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append([]types.HistoryRow{row}, s.rows...)
	s.highlightID = row.ID
}

// Patch replaces the row with the same id in place and highlights it.
// Returns false if no row matched.
func (s *Store) Patch(row types.HistoryRow) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == row.ID {
			s.rows[i] = row
			s.highlightID = row.ID
			return true
		}
	}
	return false
}

// Remove drops the row with the given id. Returns false if absent.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			if s.highlightID == id {
				s.highlightID = ""
			}
			return true
		}
	}
	return false
}

// Highlighted returns the id of the most recently written row, or "".
func (s *Store) Highlighted() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.highlightID
}

// ClearHighlight resets the highlight marker.
func (s *Store) ClearHighlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlightID = ""
}
