package handler

import "sync"

// Store holds the active routing table behind a read/write guard. Requests
// take a read-side snapshot and keep using it to completion even if a reload
// swaps in a new table mid-flight; a reload replaces the whole table in one
// write, never mutating an installed table in place.
type Store struct {
	mu    sync.RWMutex
	table *Table
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the active table, or nil before the first successful load.
func (s *Store) Current() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.table
}

// Replace installs a fully prepared table. The very first install always
// succeeds; afterwards a table with a different bind address is rejected
// with ErrRestartRequired and the active table stays in place, because the
// listening socket cannot be rebound from here.
func (s *Store) Replace(next *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table != nil && (s.table.Host != next.Host || s.table.Port != next.Port) {
		return ErrRestartRequired
	}

	prev := s.table
	s.table = next

	if prev != nil {
		// Don't let the retired table hold pooled upstream sockets until
		// their idle timeout. Mid-request readers of prev are unaffected.
		prev.CloseIdleConnections()
	}

	return nil
}
