/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the Hub, the shared concurrency-safe registry mapping room ids to
subscribed sessions and user ids to their live connections. The Hub is the sole fan-out
primitive: room broadcasts, global broadcasts, and per-user (personal channel) delivery
all go through it. All registry mutations are fast in-memory operations; no lock is ever
held across network or persistence I/O.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"studysync/internal/pkg/logx"
)

// Member is a read-only view of one room subscription.
type Member struct {
	ConnectionID string
	UserID       string
}

// Hub is the room registry plus the user->connections index.
type Hub struct {
	mu sync.RWMutex

	// rooms maps room wire id -> connection id -> session.
	rooms map[string]map[string]*Session

	// users maps user id -> connection id -> session. This index is each
	// user's personal channel for notification delivery.
	users map[string]map[string]*Session

	logger zerolog.Logger
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]*Session),
		users:  make(map[string]map[string]*Session),
		logger: logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Register adds an authenticated session to the user index.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := s.identity.UserID
	if h.users[userID] == nil {
		h.users[userID] = make(map[string]*Session)
	}
	h.users[userID][s.id] = s
}

// Unregister removes the session from the user index and from any room it
// still occupies. Idempotent.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.users[s.identity.UserID]; ok {
		delete(conns, s.id)
		if len(conns) == 0 {
			delete(h.users, s.identity.UserID)
		}
	}

	for wire, subs := range h.rooms {
		if _, ok := subs[s.id]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(h.rooms, wire)
			}
		}
	}
}

// Join adds the session to the room's subscriber set, creating the set if
// absent. Idempotent.
func (h *Hub) Join(room RoomID, s *Session) {
	wire := room.WireID()

	h.mu.Lock()
	defer h.mu.Unlock()

	// a session torn down while its join was in flight must be refused here:
	// Unregister already ran for it, so nothing would ever remove the entry.
	if s.isClosed() {
		return
	}

	if h.rooms[wire] == nil {
		h.rooms[wire] = make(map[string]*Session)
	}
	h.rooms[wire][s.id] = s
}

// Leave removes the session from the room's subscriber set; the room entry
// is pruned once empty. Idempotent.
func (h *Hub) Leave(room RoomID, s *Session) {
	wire := room.WireID()

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[wire]
	if !ok {
		return
	}

	delete(subs, s.id)
	if len(subs) == 0 {
		delete(h.rooms, wire)
	}
}

// Members returns a snapshot of the room's current subscriptions.
func (h *Hub) Members(room RoomID) []Member {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.rooms[room.WireID()]
	out := make([]Member, 0, len(subs))
	for _, s := range subs {
		out = append(out, Member{ConnectionID: s.id, UserID: s.identity.UserID})
	}
	return out
}

// presentUsers returns the set of user ids with a connection currently
// subscribed to the room. Used to compute notification recipients.
func (h *Hub) presentUsers(room RoomID) map[string]struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.rooms[room.WireID()]
	out := make(map[string]struct{}, len(subs))
	for _, s := range subs {
		out[s.identity.UserID] = struct{}{}
	}
	return out
}

// IsUserConnected reports whether the user has any live connection,
// regardless of room.
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.users[userID]) > 0
}

// Broadcast delivers the event to every connection subscribed to the room,
// except the excluded connection ids. Events broadcast by sequential calls
// from one goroutine reach each subscriber in issuance order, because each
// session's outbound queue is a FIFO channel filled under the registry lock.
func (h *Hub) Broadcast(room RoomID, event Event, exclude ...string) {
	event.Room = room.WireID()

	payload, err := marshalEvent(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal room event.")
		return
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	h.mu.RLock()
	var stalled []*Session
	for _, s := range h.rooms[event.Room] {
		if _, skip := excluded[s.id]; skip {
			continue
		}
		if !s.enqueue(payload) {
			stalled = append(stalled, s)
		}
	}
	h.mu.RUnlock()

	h.dropStalled(stalled)
}

// BroadcastAll delivers the event to every live connection. Used for global
// presence updates.
func (h *Hub) BroadcastAll(event Event) {
	payload, err := marshalEvent(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal global event.")
		return
	}

	h.mu.RLock()
	var stalled []*Session
	for _, conns := range h.users {
		for _, s := range conns {
			if !s.enqueue(payload) {
				stalled = append(stalled, s)
			}
		}
	}
	h.mu.RUnlock()

	h.dropStalled(stalled)
}

// SendToUser delivers the event to every live connection of one user.
// Returns false when the user has no connection at all.
func (h *Hub) SendToUser(userID string, event Event) bool {
	payload, err := marshalEvent(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal user event.")
		return false
	}

	h.mu.RLock()
	conns := h.users[userID]
	delivered := len(conns) > 0
	var stalled []*Session
	for _, s := range conns {
		if !s.enqueue(payload) {
			stalled = append(stalled, s)
		}
	}
	h.mu.RUnlock()

	h.dropStalled(stalled)
	return delivered
}

// dropStalled tears down sessions whose outbound queue stayed full during a
// fan-out. Closing happens outside the registry lock; Close is idempotent.
func (h *Hub) dropStalled(stalled []*Session) {
	for _, s := range stalled {
		h.logger.Warn().
			Str("connection_id", s.id).
			Str("user_id", s.identity.UserID).
			Msg("Session send queue full, disconnecting.")
		go s.Close()
	}
}

// Shutdown closes every live session. Used during graceful server shutdown.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.users))
	for _, conns := range h.users {
		for _, s := range conns {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
