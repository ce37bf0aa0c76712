// Package mutes owns the moderation engine's only long-lived mutable state:
// the global chat-mute flag and the per-user mute table. The in-memory table
// is authoritative; an optional Store persists snapshots so restrictions
// survive restarts.
package mutes

import (
	"sync"
	"time"
)

// record is one user's restriction. A zero ExpiresAt means the mute is
// permanent and only an explicit unmute lifts it.
type record struct {
	ExpiresAt time.Time
}

func (r record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// State holds the global mute flag and the per-user mute table. All methods
// are safe for concurrent use; the table and flag share one mutex so the
// request path and the background sweep never observe torn state.
type State struct {
	mu      sync.Mutex
	global  bool
	records map[string]record
}

// New returns an empty State.
func New() *State {
	return &State{records: make(map[string]record)}
}

// IsGloballyMuted reports whether chat is muted for all non-bypass senders.
func (s *State) IsGloballyMuted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

// SetGlobalMute sets the global chat-mute flag.
func (s *State) SetGlobalMute(muted bool) {
	s.mu.Lock()
	s.global = muted
	s.mu.Unlock()
}

// IsUserMuted reports whether userID is currently muted. A record whose
// expiry has passed is removed on observation and reported as unmuted, so
// callers see correct state even between sweep runs.
func (s *State) IsUserMuted(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return false
	}
	if rec.expired(time.Now()) {
		delete(s.records, userID)
		return false
	}
	return true
}

// Mute inserts or overwrites the record for userID. A non-positive duration
// means permanent. Re-muting replaces the prior record outright: durations
// never stack.
func (s *State) Mute(userID string, duration time.Duration) {
	var rec record
	if duration > 0 {
		rec.ExpiresAt = time.Now().Add(duration)
	}
	s.mu.Lock()
	s.records[userID] = rec
	s.mu.Unlock()
}

// Unmute removes the record for userID. Removing an absent record is a no-op.
func (s *State) Unmute(userID string) {
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
}

// Sweep removes every record whose expiry has passed and returns the affected
// user IDs. Permanent records are never swept.
func (s *State) Sweep() []string {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, rec := range s.records {
		if rec.expired(now) {
			delete(s.records, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Len returns the number of active mute records, for metrics.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns a copy of the mute table keyed by user ID. Permanent
// records carry a zero time.
func (s *State) Snapshot() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.ExpiresAt
	}
	return out
}

// Restore replaces the mute table with the given records, dropping any that
// have already expired. Used once at startup to reload persisted state.
func (s *State) Restore(records map[string]time.Time, global bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.global = global
	s.records = make(map[string]record, len(records))
	for id, expiresAt := range records {
		rec := record{ExpiresAt: expiresAt}
		if rec.expired(now) {
			continue
		}
		s.records[id] = rec
	}
}
