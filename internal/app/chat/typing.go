/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the TypingTracker, the per-room set of users currently composing a
message. Entries are self-expiring: each insertion carries an inactivity deadline after
which the entry counts as cleared even without an explicit stop signal. Expired entries
are evicted lazily on read, so no per-entry timers are needed.
*/
package chat

import (
	"sort"
	"sync"
	"time"
)

// TypingTracker tracks (room, user) typing entries with per-user auto-expiry.
// A user appears in at most one room's typing set at a time; starting to type
// in a new room implicitly clears the previous entry.
type TypingTracker struct {
	mu sync.Mutex

	// entries maps room wire id -> user id -> expiry time.
	entries map[string]map[string]time.Time

	// byUser maps user id -> the room wire id holding that user's entry.
	byUser map[string]string

	// now is replaceable in tests.
	now func() time.Time
}

// NewTypingTracker constructs an empty typing tracker.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		entries: make(map[string]map[string]time.Time),
		byUser:  make(map[string]string),
		now:     time.Now,
	}
}

// Start inserts or refreshes the typing entry for (room, user) with
// expiry = now + ttl. An active entry in a different room is removed first.
func (t *TypingTracker) Start(room RoomID, userID string, ttl time.Duration) {
	wire := room.WireID()

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.byUser[userID]; ok && prev != wire {
		t.removeLocked(prev, userID)
	}

	if t.entries[wire] == nil {
		t.entries[wire] = make(map[string]time.Time)
	}
	t.entries[wire][userID] = t.now().Add(ttl)
	t.byUser[userID] = wire
}

// Stop removes the typing entry for (room, user) if present; no-op otherwise.
func (t *TypingTracker) Stop(room RoomID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeLocked(room.WireID(), userID)
}

// Clear removes any typing entry held by the user, regardless of room.
// Used on disconnect, where the connection may no longer know its room.
func (t *TypingTracker) Clear(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if wire, ok := t.byUser[userID]; ok {
		t.removeLocked(wire, userID)
	}
}

// ActiveUsers returns the users whose typing entry for the room has not yet
// expired, sorted for stable fan-out payloads. Expired entries are evicted
// as a side effect.
func (t *TypingTracker) ActiveUsers(room RoomID) []string {
	wire := room.WireID()
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	roomEntries := t.entries[wire]
	if len(roomEntries) == 0 {
		return nil
	}

	users := make([]string, 0, len(roomEntries))
	for userID, expiry := range roomEntries {
		if expiry.After(now) {
			users = append(users, userID)
			continue
		}
		t.removeLocked(wire, userID)
	}

	sort.Strings(users)
	return users
}

// removeLocked deletes one entry and prunes empty room tables. Caller holds mu.
func (t *TypingTracker) removeLocked(wire string, userID string) {
	roomEntries, ok := t.entries[wire]
	if !ok {
		return
	}

	if _, ok := roomEntries[userID]; !ok {
		return
	}

	delete(roomEntries, userID)
	if len(roomEntries) == 0 {
		delete(t.entries, wire)
	}

	if t.byUser[userID] == wire {
		delete(t.byUser, userID)
	}
}
