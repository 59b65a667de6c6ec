/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the Session struct, representing an active WebSocket connection bound to
one authenticated user. It manages the session's lifecycle, the message communication loops
(ReadPump and WritePump), inbound event dispatch, and the idempotent teardown that releases
every per-connection resource exactly once.
*/
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"studysync/internal/pkg/auth/jwt"
	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/logx"
	"studysync/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// sendQueueSize is the outbound buffer per connection.
	sendQueueSize = 256
)

// Runtime bundles the shared collaborators every session needs.
type Runtime struct {
	Hub      *Hub
	Presence *PresenceStore
	Typing   *TypingTracker
	Pipeline *MessagePipeline
	Notifier *Notifier
	Gate     *AccessGate

	TypingTTL    time.Duration
	HistoryLimit int
}

// Session represents an active WebSocket connection and its associated user.
type Session struct {
	// unique identifier of this connection.
	id string

	// the authenticated user behind the connection.
	identity Identity

	// shared subsystem collaborators.
	runtime *Runtime

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// mu guards room, the single room this connection currently occupies,
	// and the closed flag.
	mu     sync.Mutex
	room   RoomID
	closed bool

	// closeOnce makes teardown idempotent across read errors, hub drops,
	// and server shutdown racing each other.
	closeOnce sync.Once

	// structured logger with session context.
	logger zerolog.Logger
}

// NewSession constructs a session for an upgraded connection and registers it
// with the hub.
func NewSession(runtime *Runtime, wsConn *websocket.Conn, identity Identity) *Session {
	id := randx.ConnectionID()

	sessionLogger := logx.Logger().With().
		Str("connection_id", id).
		Str("user_id", identity.UserID).
		Logger()

	s := &Session{
		id:       id,
		identity: identity,
		runtime:  runtime,
		conn:     wsConn,
		send:     make(chan []byte, sendQueueSize),
		logger:   sessionLogger,
	}

	runtime.Hub.Register(s)
	runtime.Presence.Upsert(identity.UserID, StatusOnline, id)
	runtime.Hub.BroadcastAll(Event{
		Type:    TypePresenceUpdate,
		Payload: PresencePayload{UserID: identity.UserID, Status: string(StatusOnline)},
	})

	return s
}

// ID returns the connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Identity returns the authenticated user behind the connection.
func (s *Session) Identity() Identity {
	return s.identity
}

// currentRoom returns the room the session occupies, zero if none.
func (s *Session) currentRoom() RoomID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// setRoom records the room the session occupies.
func (s *Session) setRoom(room RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.room = room
}

// markClosed flags the session as torn down so the hub refuses any
// subscription still in flight.
func (s *Session) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// isClosed reports whether teardown has begun.
func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and performs cleanup upon
// connection closure.
func (s *Session) ReadPump() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		s.processInboundFrame(frameBytes)
	}
}

// processInboundFrame parses a raw client frame and dispatches it by type.
func (s *Session) processInboundFrame(frameBytes []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		s.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	ctx := context.Background()

	switch frame.Type {
	case TypeJoinRoom:
		s.handleJoinRoom(ctx, frame.Payload)

	case TypeLeaveRoom:
		s.handleLeaveRoom()

	case TypeSendMessage:
		s.handleSendMessage(ctx, frame.Payload)

	case TypeEditMessage:
		s.handleEditMessage(ctx, frame.Payload)

	case TypeTypingStart:
		s.handleTyping(true)

	case TypeTypingStop:
		s.handleTyping(false)

	case TypeUpdatePresence:
		s.handleUpdatePresence(frame.Payload)

	case TypeShareFile:
		s.handleShareFile(ctx, frame.Payload)

	case TypeCreateEvent:
		s.handleCreateEvent(ctx, frame.Payload)

	default:
		s.logger.Warn().Str("event_type", string(frame.Type)).Msg("Client sent unsupported event type")
		s.SendError(errs.NewError(errs.ErrInvalidParams))
	}
}

// handleJoinRoom authorizes and executes a room switch. A connection occupies
// at most one room, so joining implicitly leaves the previous one.
func (s *Session) handleJoinRoom(ctx context.Context, payloadBytes json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid join_room payload")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	room, customErr := NewRoomID(payload.RoomKind, payload.RoomID)
	if customErr != nil {
		s.SendError(customErr)
		return
	}

	if customErr := s.runtime.Gate.Authorize(ctx, room, s.identity.UserID); customErr != nil {
		s.SendError(customErr)
		return
	}

	if previous := s.currentRoom(); !previous.IsZero() {
		if previous == room {
			return
		}
		s.leaveRoom(previous)
	}

	s.runtime.Hub.Join(room, s)
	s.setRoom(room)
	s.runtime.Presence.SetCurrentRoom(s.identity.UserID, room.WireID())

	history, customErr := s.runtime.Pipeline.History(ctx, room, s.runtime.HistoryLimit)
	if customErr != nil {
		s.SendError(customErr)
	} else {
		s.sendEvent(Event{Type: TypeRoomHistory, Room: room.WireID(), Payload: history})
	}

	s.runtime.Hub.Broadcast(room, Event{
		Type:    TypeUserJoined,
		Payload: UserEventPayload{UserID: s.identity.UserID, DisplayName: s.identity.DisplayName},
	}, s.id)

	s.logger.Info().Str("room", room.WireID()).Msg("Session joined room.")
}

// handleLeaveRoom executes an explicit leave. No-op when the session is not
// in a room.
func (s *Session) handleLeaveRoom() {
	room := s.currentRoom()
	if room.IsZero() {
		return
	}

	s.leaveRoom(room)
	s.setRoom(RoomID{})
	s.runtime.Presence.SetCurrentRoom(s.identity.UserID, "")
}

// leaveRoom removes the session from a room's fan-out set, clears its typing
// entry there, and announces the departure to the remaining subscribers.
func (s *Session) leaveRoom(room RoomID) {
	s.runtime.Hub.Leave(room, s)
	s.runtime.Typing.Stop(room, s.identity.UserID)

	s.runtime.Hub.Broadcast(room, Event{
		Type:    TypeUserLeft,
		Payload: UserEventPayload{UserID: s.identity.UserID, DisplayName: s.identity.DisplayName},
	})
	s.runtime.Hub.Broadcast(room, Event{
		Type:    TypeTypingUsers,
		Payload: TypingUsersPayload{RoomID: room.WireID(), Users: s.runtime.Typing.ActiveUsers(room)},
	})
}

// handleSendMessage routes a new chat message through the pipeline.
func (s *Session) handleSendMessage(ctx context.Context, payloadBytes json.RawMessage) {
	room := s.currentRoom()
	if room.IsZero() {
		s.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	var payload sendMessagePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid send_message payload")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	// sending implicitly ends the typing state.
	s.runtime.Typing.Stop(room, s.identity.UserID)
	s.runtime.Hub.Broadcast(room, Event{
		Type:    TypeTypingUsers,
		Payload: TypingUsersPayload{RoomID: room.WireID(), Users: s.runtime.Typing.ActiveUsers(room)},
	})

	if _, customErr := s.runtime.Pipeline.Submit(ctx, room, s.identity, payload.Content, MessageKind(payload.Kind), payload.ReplyTo); customErr != nil {
		s.SendError(customErr)
	}
}

// handleEditMessage routes a message edit through the pipeline.
func (s *Session) handleEditMessage(ctx context.Context, payloadBytes json.RawMessage) {
	room := s.currentRoom()
	if room.IsZero() {
		s.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	var payload editMessagePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid edit_message payload")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if _, customErr := s.runtime.Pipeline.Edit(ctx, room, s.identity, payload.MessageID, payload.Content); customErr != nil {
		s.SendError(customErr)
	}
}

// handleTyping updates the typing tracker and fans out the refreshed
// typing-user list for the session's room.
func (s *Session) handleTyping(start bool) {
	room := s.currentRoom()
	if room.IsZero() {
		s.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	if start {
		s.runtime.Typing.Start(room, s.identity.UserID, s.runtime.TypingTTL)
	} else {
		s.runtime.Typing.Stop(room, s.identity.UserID)
	}

	s.runtime.Hub.Broadcast(room, Event{
		Type:    TypeTypingUsers,
		Payload: TypingUsersPayload{RoomID: room.WireID(), Users: s.runtime.Typing.ActiveUsers(room)},
	})
}

// handleUpdatePresence validates and applies a presence status change, then
// announces it to every live connection.
func (s *Session) handleUpdatePresence(payloadBytes json.RawMessage) {
	var payload updatePresencePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid update_presence payload")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	status := PresenceStatus(payload.Status)
	if !status.Valid() {
		s.SendError(errs.NewError(errs.ErrStatusInvalid))
		return
	}

	s.runtime.Presence.Upsert(s.identity.UserID, status, s.id)
	s.runtime.Hub.BroadcastAll(Event{
		Type:    TypePresenceUpdate,
		Payload: PresencePayload{UserID: s.identity.UserID, Status: string(status)},
	})
}

// handleShareFile validates file metadata and announces the share to the room.
func (s *Session) handleShareFile(ctx context.Context, payloadBytes json.RawMessage) {
	room := s.currentRoom()
	if room.IsZero() {
		s.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	var meta FileMeta
	if err := json.Unmarshal(payloadBytes, &meta); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid share_file payload")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if customErr := ValidateFileMeta(room, meta); customErr != nil {
		s.SendError(customErr)
		return
	}

	s.runtime.Hub.Broadcast(room, Event{
		Type: TypeFileShared,
		Payload: struct {
			File   FileMeta `json:"file"`
			Sender Identity `json:"sender"`
		}{File: meta, Sender: s.identity},
	})

	s.runtime.Notifier.NotifyRoomAbsent(ctx, room, s.identity.UserID, "file_shared",
		s.identity.DisplayName+" shared a file",
		meta.Name,
		map[string]any{"roomId": room.WireID(), "fileKey": meta.Key},
	)
}

// handleCreateEvent announces a calendar event to the room. The event record
// itself is persisted by the calendar service before the announcement.
func (s *Session) handleCreateEvent(ctx context.Context, payloadBytes json.RawMessage) {
	room := s.currentRoom()
	if room.IsZero() {
		s.SendError(errs.NewError(errs.ErrNotInRoom))
		return
	}

	var event CalendarEvent
	if err := json.Unmarshal(payloadBytes, &event); err != nil {
		s.logger.Warn().Err(err).Msg("Client sent invalid create_event payload")
		s.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if event.Title == "" {
		s.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	s.runtime.Hub.Broadcast(room, Event{Type: TypeEventCreated, Payload: event})

	s.runtime.Notifier.NotifyRoomAbsent(ctx, room, s.identity.UserID, "event_created",
		"New event: "+event.Title,
		event.Description,
		map[string]any{"roomId": room.WireID(), "eventId": event.ID},
	)
}

// WritePump handles writing frames from the Session.send channel to the
// WebSocket connection.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !s.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !s.writePingFrame() {
				return
			}
		}
	}
}

// writeQueuedFrame handles frames pulled from the send channel, writing them
// to the WebSocket. Returns true if the WritePump loop should continue, false
// if it should terminate.
func (s *Session) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			s.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingFrame sends a periodic WebSocket Ping message to maintain the
// connection heartbeat. Returns false if the WritePump loop should terminate
// due to write failure.
func (s *Session) writePingFrame() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue attempts a non-blocking put of an already marshaled frame onto the
// outbound queue. Returns false when the queue is full or already closed.
func (s *Session) enqueue(frame []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case s.send <- frame:
		return true
	default:
		s.logger.Warn().Int("queue_len", len(s.send)).Msg("Session send queue full, dropping frame")
		return false
	}
}

// sendEvent marshals the event and queues it for this connection only.
func (s *Session) sendEvent(event Event) {
	frame, err := marshalEvent(event)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", string(event.Type)).Msg("Error marshaling event for session")
		return
	}
	s.enqueue(frame)
}

// SendError queues a TypeError event back to the originating connection only.
func (s *Session) SendError(customErr *errs.CustomError) {
	s.sendEvent(Event{
		Type:    TypeError,
		Payload: ErrorPayload{Code: customErr.Code, Message: customErr.Message},
	})
}

// Close tears the session down exactly once: typing entries are cleared, the
// room departure is announced, presence goes offline, and the connection is
// released. Safe to call from any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info().Msg("Session cleanup starting.")

		// the flag is set before Unregister so a join racing this teardown
		// cannot re-add the session after its registry entry is gone.
		s.markClosed()

		s.runtime.Typing.Clear(s.identity.UserID)

		if room := s.currentRoom(); !room.IsZero() {
			s.leaveRoom(room)
			s.setRoom(RoomID{})
		}

		s.runtime.Hub.Unregister(s)

		if !s.runtime.Hub.IsUserConnected(s.identity.UserID) {
			s.runtime.Presence.MarkOffline(s.identity.UserID)
			s.runtime.Hub.BroadcastAll(Event{
				Type:    TypePresenceUpdate,
				Payload: PresencePayload{UserID: s.identity.UserID, Status: string(StatusOffline)},
			})
		}

		close(s.send)

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error")
		}
	})
}

// Authenticate resolves a bearer token to an identity via the user directory.
func Authenticate(ctx context.Context, directory UserDirectory, secretKey string, token string) (Identity, *errs.CustomError) {
	if token == "" {
		return Identity{}, errs.NewError(errs.ErrMissingCredential)
	}

	payload, err := jwt.ParseToken(token, secretKey)
	if err != nil {
		return Identity{}, errs.NewError(errs.ErrMissingCredential)
	}

	identity, err := directory.Resolve(ctx, payload.UserID)
	if err != nil {
		if err == ErrUserUnknown {
			return Identity{}, errs.NewError(errs.ErrUnknownUser)
		}
		logx.Logger().Error().Err(err).Str("user_id", payload.UserID).Msg("User directory lookup failed.")
		return Identity{}, errs.NewError(errs.ErrUnknown)
	}

	return identity, nil
}
