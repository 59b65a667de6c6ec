/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the transport-agnostic event envelope exchanged with clients,
the inbound/outbound event type constants, and their payload structures.
*/
package chat

import "encoding/json"

// EventType names a realtime event on the wire.
type EventType string

// Inbound event types (client to server).
const (
	TypeJoinRoom       EventType = "join_room"
	TypeLeaveRoom      EventType = "leave_room"
	TypeSendMessage    EventType = "send_message"
	TypeEditMessage    EventType = "edit_message"
	TypeTypingStart    EventType = "typing_start"
	TypeTypingStop     EventType = "typing_stop"
	TypeUpdatePresence EventType = "update_presence"
	TypeShareFile      EventType = "share_file"
	TypeCreateEvent    EventType = "create_event"
)

// Outbound event types (server to client).
const (
	TypeRoomHistory    EventType = "room_history"
	TypeUserJoined     EventType = "user_joined"
	TypeUserLeft       EventType = "user_left"
	TypeNewMessage     EventType = "new_message"
	TypeMessageEdited  EventType = "message_edited"
	TypeTypingUsers    EventType = "typing_users"
	TypePresenceUpdate EventType = "presence_update"
	TypeNotification   EventType = "notification"
	TypeFileShared     EventType = "file_shared"
	TypeEventCreated   EventType = "event_created"
	TypeError          EventType = "error"
)

// Event is the envelope for every frame exchanged with a client.
// Room carries the wire-form room identifier for room-scoped events.
type Event struct {
	Type    EventType `json:"type"`
	Room    string    `json:"room,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// inboundFrame is the raw shape of a client frame before payload dispatch.
type inboundFrame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// joinRoomPayload carries the explicit (kind, entityId) pair for a join.
type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	RoomKind string `json:"roomKind"`
}

// sendMessagePayload carries a new chat message from the client.
type sendMessagePayload struct {
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
	ReplyTo string `json:"replyTo,omitempty"`
}

// editMessagePayload carries an edit to a previously sent message.
type editMessagePayload struct {
	MessageID string `json:"messageId"`
	Content   string `json:"content"`
}

// updatePresencePayload carries a presence status change.
type updatePresencePayload struct {
	Status string `json:"status"`
}

// UserEventPayload announces a user joining or leaving a room.
type UserEventPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// TypingUsersPayload carries the refreshed typing-user list for a room.
type TypingUsersPayload struct {
	RoomID string   `json:"roomId"`
	Users  []string `json:"users"`
}

// PresencePayload announces a user's presence status change, not scoped to a room.
type PresencePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// ErrorPayload carries a non-fatal error back to the originating connection only.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CalendarEvent is the transient announcement payload for a calendar event
// whose metadata was already persisted by the calendar collaborator.
type CalendarEvent struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartsAt    string `json:"startsAt,omitempty"`
	EndsAt      string `json:"endsAt,omitempty"`
}

// marshalEvent serializes an event envelope once for fan-out.
func marshalEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}
