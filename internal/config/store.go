package config

import "sync"

// Store holds the live configuration: read by many transport goroutines,
// written rarely (settings calls, file reloads). Subscribers are an explicit
// list owned by the store, registered once at startup.
type Store struct {
	mu   sync.RWMutex
	cfg  File
	subs []func(File)
}

// NewStore creates a store seeded with cfg.
func NewStore(cfg File) *Store {
	return &Store{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Replace swaps in a whole new configuration and notifies subscribers.
func (s *Store) Replace(cfg File) {
	s.mu.Lock()
	s.cfg = cfg
	subs := s.subs
	s.mu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
}

// Update applies fn to a copy of the current configuration, stores the
// result, and notifies subscribers.
func (s *Store) Update(fn func(*File)) {
	s.mu.Lock()
	cfg := s.cfg
	fn(&cfg)
	s.cfg = cfg
	subs := s.subs
	s.mu.Unlock()
	for _, sub := range subs {
		sub(cfg)
	}
}

// Subscribe registers a change callback. Callbacks run synchronously on the
// updating goroutine and must not call back into the store.
func (s *Store) Subscribe(fn func(File)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// ToolEnabled reports whether a tool name passes the enabled-set filter.
// An empty set enables everything.
func (s *Store) ToolEnabled(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cfg.EnabledTools) == 0 {
		return true
	}
	for _, t := range s.cfg.EnabledTools {
		if t == name {
			return true
		}
	}
	return false
}
