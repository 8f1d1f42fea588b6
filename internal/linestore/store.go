// Package linestore holds the in-memory mirror of the visible cart lines.
//
// The store is pure storage: no network calls, no timers, no derived values.
// It is written by exactly one owner (the coordinator's event loop) and is not
// safe for concurrent use; readers that live outside the loop must go through
// the coordinator's published View.
package linestore

import (
	"sort"

	"github.com/roach88/cartsync/internal/cart"
)

// Store is the CartLineStore.
//
// All() returns lines in first-insertion order so renderers get a stable
// layout. A deleted line that is added again with Upsert moves to the end;
// one put back with Restore returns to its old position.
type Store struct {
	lines    map[cart.ProductID]cart.LineItem
	ranks    map[cart.ProductID]int64
	retired  map[cart.ProductID]int64 // ranks of deleted lines, for Restore
	nextRank int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		lines:   make(map[cart.ProductID]cart.LineItem),
		ranks:   make(map[cart.ProductID]int64),
		retired: make(map[cart.ProductID]int64),
	}
}

// Get returns the line for id, if present.
func (s *Store) Get(id cart.ProductID) (cart.LineItem, bool) {
	line, ok := s.lines[id]
	return line, ok
}

// Upsert inserts or replaces a line.
// Returns INVALID_QUANTITY for a negative quantity and leaves the store untouched.
func (s *Store) Upsert(line cart.LineItem) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if _, exists := s.lines[line.ProductID]; !exists {
		delete(s.retired, line.ProductID)
		s.nextRank++
		s.ranks[line.ProductID] = s.nextRank
	}
	s.lines[line.ProductID] = line
	return nil
}

// Restore puts a line back at the position it held before it was deleted.
// Without a remembered position it behaves like Upsert.
func (s *Store) Restore(line cart.LineItem) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if _, exists := s.lines[line.ProductID]; !exists {
		if rank, ok := s.retired[line.ProductID]; ok {
			delete(s.retired, line.ProductID)
			s.ranks[line.ProductID] = rank
			s.lines[line.ProductID] = line
			return nil
		}
	}
	return s.Upsert(line)
}

// Delete removes the line for id. Deleting an absent id is a no-op.
func (s *Store) Delete(id cart.ProductID) {
	if _, exists := s.lines[id]; !exists {
		return
	}
	s.retired[id] = s.ranks[id]
	delete(s.ranks, id)
	delete(s.lines, id)
}

// All returns a copy of every line in stable order.
func (s *Store) All() []cart.LineItem {
	out := make([]cart.LineItem, 0, len(s.lines))
	for _, line := range s.lines {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.ranks[out[i].ProductID] < s.ranks[out[j].ProductID]
	})
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int {
	return len(s.lines)
}
