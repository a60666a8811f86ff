// Package state holds the feed state and the reducer that folds load and
// scroll events into it. States are never mutated once built; every
// transition returns a new value, and a transition that changes nothing
// returns its input.
package state

import (
	"github.com/google/uuid"

	"github.com/ivanGusef/guardfeed/internal/storage"
)

// ScrollTarget asks the presentation layer to move to Position. Each
// RequestID must be acted on at most once. Position is -1 when the item
// was not among the rows.
type ScrollTarget struct {
	Position  int
	RequestID uuid.UUID
}

type State struct {
	Meta        storage.Meta
	Items       []storage.Item
	PagesLoaded int
	CanLoadMore bool
	Rows        []Row
	// ScrollTarget is nil until a scroll has been requested.
	ScrollTarget *ScrollTarget
}

var initial = &State{
	Items:       []storage.Item{},
	CanLoadMore: true,
	Rows:        []Row{contentLoadingRow},
}

// Initial returns the bootstrap state every session starts from. The same
// pointer is returned on every call; callers must not modify it.
func Initial() *State {
	return initial
}

// IndexOf returns the row position of the item with the given id, or -1.
func (s *State) IndexOf(itemID string) int {
	want := ItemRowID(itemID)
	for i, row := range s.Rows {
		if row.Kind == RowItem && row.ID() == want {
			return i
		}
	}
	return -1
}

// Bootstrapping reports whether the rows are a placeholder rather than
// items.
func (s *State) Bootstrapping() bool {
	if len(s.Rows) != 1 {
		return false
	}
	k := s.Rows[0].Kind
	return k == RowContentLoading || k == RowContentEmpty
}

// Changed reports whether next should be published after prev. It compares
// identity, not content.
func Changed(prev, next *State) bool {
	return prev != next
}
