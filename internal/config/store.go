package config

import (
	"sync"
	"sync/atomic"

	"voxkey/internal/domain"
)

// Store publishes immutable settings snapshots. Sessions read a snapshot when
// they start, so an update only affects the next session.
type Store struct {
	current atomic.Pointer[domain.SessionSettings]

	mu        sync.Mutex
	listeners []func(domain.SessionSettings)
}

func NewStore(initial domain.SessionSettings) *Store {
	s := &Store{}
	s.current.Store(&initial)
	return s
}

// Snapshot returns the current settings.
func (s *Store) Snapshot() domain.SessionSettings {
	return *s.current.Load()
}

// Update applies edit to a copy of the current settings and publishes it. The
// hotkeys are kept disjoint; the returned warnings describe any adjustment.
func (s *Store) Update(edit func(*domain.SessionSettings)) (domain.SessionSettings, []*domain.ConfigurationError) {
	s.mu.Lock()
	next := *s.current.Load()
	edit(&next)
	var warnings []*domain.ConfigurationError
	next.STTHotkey, next.TTSHotkey, warnings = DisjointHotkeys(next.STTHotkey, next.TTSHotkey)
	s.current.Store(&next)
	listeners := append([]func(domain.SessionSettings){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next, warnings
}

// OnChange registers fn to run after every Update.
func (s *Store) OnChange(fn func(domain.SessionSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
