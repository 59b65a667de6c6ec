/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the PresenceStore, which tracks per-user availability status,
last-seen time, and current room. Records are created lazily on first connect and
kept as the latest-known state even after the user goes offline.
*/
package chat

import (
	"sort"
	"sync"
	"time"
)

// PresenceStatus is a user's live availability status.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// Valid reports whether the status is one of the four enumerated values.
func (s PresenceStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// PresenceRecord is the latest-known availability state for one user.
// ConnectionID is a weak routing reference to the active connection; the
// connection owns its own lifecycle and presence outlives it.
type PresenceRecord struct {
	UserID       string         `json:"userId"`
	Status       PresenceStatus `json:"status"`
	LastSeen     time.Time      `json:"lastSeen"`
	CurrentRoom  string         `json:"currentRoom,omitempty"`
	ConnectionID string         `json:"-"`
}

// PresenceStore is the concurrency-safe table of presence records.
type PresenceStore struct {
	mu      sync.RWMutex
	records map[string]*PresenceRecord

	// now is replaceable in tests.
	now func() time.Time
}

// NewPresenceStore constructs an empty presence store.
func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		records: make(map[string]*PresenceRecord),
		now:     time.Now,
	}
}

// Upsert creates the record if absent, otherwise updates status and the
// active connection reference in place. Last-seen is always refreshed.
func (s *PresenceStore) Upsert(userID string, status PresenceStatus, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[userID]
	if rec == nil {
		rec = &PresenceRecord{UserID: userID}
		s.records[userID] = rec
	}

	rec.Status = status
	rec.ConnectionID = connectionID
	rec.LastSeen = s.now()
}

// SetCurrentRoom records which room the user currently occupies.
// An empty wire id clears the room. Last-seen is refreshed.
func (s *PresenceStore) SetCurrentRoom(userID string, roomWireID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[userID]
	if rec == nil {
		rec = &PresenceRecord{UserID: userID, Status: StatusOnline}
		s.records[userID] = rec
	}

	rec.CurrentRoom = roomWireID
	rec.LastSeen = s.now()
}

// MarkOffline sets the status to offline, clears the current room and the
// connection reference, and refreshes last-seen. The record is kept.
func (s *PresenceStore) MarkOffline(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[userID]
	if rec == nil {
		return
	}

	rec.Status = StatusOffline
	rec.CurrentRoom = ""
	rec.ConnectionID = ""
	rec.LastSeen = s.now()
}

// Get returns a copy of the record for userID, with ok=false if it was
// never created.
func (s *PresenceStore) Get(userID string) (PresenceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return PresenceRecord{}, false
	}
	return *rec, true
}

// All returns a snapshot of every presence record, ordered by user id for
// stable presence-list responses.
func (s *PresenceStore) All() []PresenceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PresenceRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
