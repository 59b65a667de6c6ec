package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/pkg/auth/jwt"
	"studysync/internal/pkg/errs"
)

// wsFixture runs the full session lifecycle against a real WebSocket server
// with in-memory collaborators behind it.
type wsFixture struct {
	runtime       *Runtime
	log           *memLog
	notifications *memNotifications
	members       *memMembers
	sessions      chan *Session
	srv           *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	log := &memLog{}
	notifications := &memNotifications{}
	members := newMemMembers()
	hub := NewHub()
	gate := NewAccessGate(members)
	notifier := NewNotifier(notifications, hub, gate)

	f := &wsFixture{
		log:           log,
		notifications: notifications,
		members:       members,
		sessions:      make(chan *Session, 8),
		runtime: &Runtime{
			Hub:          hub,
			Presence:     NewPresenceStore(),
			Typing:       NewTypingTracker(),
			Pipeline:     NewMessagePipeline(log, markerCipher{}, hub, notifier, 2000),
			Notifier:     notifier,
			Gate:         gate,
			TypingTTL:    5 * time.Second,
			HistoryLimit: 50,
		},
	}

	upgrader := websocket.Upgrader{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		userID := r.URL.Query().Get("uid")
		session := NewSession(f.runtime, conn, Identity{UserID: userID, DisplayName: "User " + userID})
		f.sessions <- session

		go session.WritePump()
		go session.ReadPump()
	}))
	t.Cleanup(f.srv.Close)

	return f
}

// dial connects a client for the given user and waits until the hub sees it.
func (f *wsFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/?uid=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return f.runtime.Hub.IsUserConnected(userID)
	}, 2*time.Second, 10*time.Millisecond)

	return conn
}

// clientEvent is the client-side view of a server frame.
type clientEvent struct {
	Type    EventType       `json:"type"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, eventType EventType, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "payload": payload}))
}

// readUntil consumes frames until one of the wanted type arrives. Unrelated
// frames (presence churn from other connections) are skipped.
func readUntil(t *testing.T, conn *websocket.Conn, want EventType) clientEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var event clientEvent
		require.NoError(t, conn.ReadJSON(&event), "waiting for %s", want)
		if event.Type == want {
			return event
		}
	}
}

func readErrorCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()

	event := readUntil(t, conn, TypeError)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	return payload.Code
}

func TestSessionJoinDeliversHistoryAndAnnounces(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy", "ben")

	amy := f.dial(t, "amy")
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})

	history := readUntil(t, amy, TypeRoomHistory)
	assert.Equal(t, "group_42", history.Room)

	ben := f.dial(t, "ben")
	send(t, ben, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, ben, TypeRoomHistory)

	joined := readUntil(t, amy, TypeUserJoined)
	var who UserEventPayload
	require.NoError(t, json.Unmarshal(joined.Payload, &who))
	assert.Equal(t, "ben", who.UserID)
	assert.Equal(t, "User ben", who.DisplayName)
}

func TestSessionJoinDenied(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy")

	mallory := f.dial(t, "mallory")
	send(t, mallory, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})

	assert.Equal(t, errs.ErrAccessDenied, readErrorCode(t, mallory))
	assert.Empty(t, f.runtime.Hub.Members(room))
}

func TestSessionMessageFanOutAndNotify(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy", "ben", "cleo")

	amy := f.dial(t, "amy")
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, amy, TypeRoomHistory)

	ben := f.dial(t, "ben")
	send(t, ben, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, ben, TypeRoomHistory)

	send(t, amy, TypeSendMessage, sendMessagePayload{Content: "study session at 6?"})

	for _, conn := range []*websocket.Conn{amy, ben} {
		event := readUntil(t, conn, TypeNewMessage)
		var msg Message
		require.NoError(t, json.Unmarshal(event.Payload, &msg))
		assert.Equal(t, "study session at 6?", msg.Content, "subscribers receive plaintext")
		assert.Equal(t, "amy", msg.SenderID)
	}

	// the log holds only ciphertext
	require.Eventually(t, func() bool {
		recent, err := f.log.Recent(context.Background(), room, 1)
		return err == nil && len(recent) == 1 && recent[0].Content == "enc:study session at 6?"
	}, 2*time.Second, 10*time.Millisecond)

	// cleo was a member without a connection in the room
	require.Eventually(t, func() bool {
		recipients := f.notifications.recipients()
		return len(recipients) == 1 && recipients[0] == "cleo"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionMessageRequiresRoom(t *testing.T) {
	f := newWSFixture(t)

	amy := f.dial(t, "amy")
	send(t, amy, TypeSendMessage, sendMessagePayload{Content: "hello?"})

	assert.Equal(t, errs.ErrNotInRoom, readErrorCode(t, amy))
}

func TestSessionTypingIndicators(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("course", "cs101")
	f.members.add(room, "amy", "ben")

	amy := f.dial(t, "amy")
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "cs101", RoomKind: "course"})
	readUntil(t, amy, TypeRoomHistory)

	ben := f.dial(t, "ben")
	send(t, ben, TypeJoinRoom, joinRoomPayload{RoomID: "cs101", RoomKind: "course"})
	readUntil(t, ben, TypeRoomHistory)

	send(t, amy, TypeTypingStart, nil)

	event := readUntil(t, ben, TypeTypingUsers)
	var typing TypingUsersPayload
	require.NoError(t, json.Unmarshal(event.Payload, &typing))
	assert.Equal(t, []string{"amy"}, typing.Users)

	send(t, amy, TypeTypingStop, nil)
	require.Eventually(t, func() bool {
		return len(f.runtime.Typing.ActiveUsers(room)) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionPresenceUpdate(t *testing.T) {
	f := newWSFixture(t)

	amy := f.dial(t, "amy")
	ben := f.dial(t, "ben")

	send(t, amy, TypeUpdatePresence, updatePresencePayload{Status: "busy"})

	for {
		event := readUntil(t, ben, TypePresenceUpdate)
		var presence PresencePayload
		require.NoError(t, json.Unmarshal(event.Payload, &presence))
		if presence.UserID == "amy" && presence.Status == "busy" {
			break
		}
	}

	rec, ok := f.runtime.Presence.Get("amy")
	require.True(t, ok)
	assert.Equal(t, StatusBusy, rec.Status)

	send(t, amy, TypeUpdatePresence, updatePresencePayload{Status: "invisible"})
	assert.Equal(t, errs.ErrStatusInvalid, readErrorCode(t, amy))
}

func TestSessionRoomSwitch(t *testing.T) {
	f := newWSFixture(t)
	first, _ := NewRoomID("group", "42")
	second, _ := NewRoomID("course", "cs101")
	f.members.add(first, "amy")
	f.members.add(second, "amy")

	amy := f.dial(t, "amy")
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, amy, TypeRoomHistory)

	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "cs101", RoomKind: "course"})
	readUntil(t, amy, TypeRoomHistory)

	require.Eventually(t, func() bool {
		return len(f.runtime.Hub.Members(first)) == 0 && len(f.runtime.Hub.Members(second)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec, ok := f.runtime.Presence.Get("amy")
	require.True(t, ok)
	assert.Equal(t, "course_cs101", rec.CurrentRoom)
}

func TestSessionDisconnectCleanup(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy", "ben")

	amy := f.dial(t, "amy")
	amySession := <-f.sessions
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, amy, TypeRoomHistory)
	send(t, amy, TypeTypingStart, nil)

	ben := f.dial(t, "ben")
	<-f.sessions
	send(t, ben, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, ben, TypeRoomHistory)

	require.NoError(t, amy.Close())

	left := readUntil(t, ben, TypeUserLeft)
	var who UserEventPayload
	require.NoError(t, json.Unmarshal(left.Payload, &who))
	assert.Equal(t, "amy", who.UserID)

	require.Eventually(t, func() bool {
		return !f.runtime.Hub.IsUserConnected("amy")
	}, 2*time.Second, 10*time.Millisecond)

	rec, ok := f.runtime.Presence.Get("amy")
	require.True(t, ok, "presence record survives disconnect")
	assert.Equal(t, StatusOffline, rec.Status)
	assert.Empty(t, rec.CurrentRoom)
	assert.Empty(t, f.runtime.Typing.ActiveUsers(room))

	// teardown is idempotent no matter how many paths race into it
	amySession.Close()
	amySession.Close()
	assert.Len(t, f.runtime.Hub.Members(room), 1, "ben's subscription is untouched")
}

func TestHubRefusesJoinAfterTeardown(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy")

	amy := f.dial(t, "amy")
	amySession := <-f.sessions
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, amy, TypeRoomHistory)

	amySession.Close()

	// a join that lost the race against teardown must not resurrect the
	// subscription: Unregister already ran, nothing would ever remove it.
	f.runtime.Hub.Join(room, amySession)

	assert.Empty(t, f.runtime.Hub.Members(room))
	_, present := f.runtime.Hub.presentUsers(room)["amy"]
	assert.False(t, present, "a torn-down session is not counted present")
}

func TestAuthenticate(t *testing.T) {
	directory := &memDirectory{users: map[string]Identity{
		"amy": {UserID: "amy", DisplayName: "Amy"},
	}}
	secret := "session-test-secret"

	_, customErr := Authenticate(context.Background(), directory, secret, "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrMissingCredential, customErr.Code)

	_, customErr = Authenticate(context.Background(), directory, secret, "not-a-token")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrMissingCredential, customErr.Code)

	ghostToken, err := jwt.GenerateToken(&jwt.Payload{UserID: "ghost", DisplayName: "Ghost"}, secret, jwt.SessionExpiration)
	require.NoError(t, err)
	_, customErr = Authenticate(context.Background(), directory, secret, ghostToken)
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrUnknownUser, customErr.Code)

	amyToken, err := jwt.GenerateToken(&jwt.Payload{UserID: "amy", DisplayName: "Amy"}, secret, jwt.SessionExpiration)
	require.NoError(t, err)
	identity, customErr := Authenticate(context.Background(), directory, secret, amyToken)
	require.Nil(t, customErr)
	assert.Equal(t, Identity{UserID: "amy", DisplayName: "Amy"}, identity)
}

func TestSessionShareFileAndCalendarEvent(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy", "ben")

	amy := f.dial(t, "amy")
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, amy, TypeRoomHistory)

	send(t, amy, TypeShareFile, FileMeta{
		Key:      "group_42/abc_notes.pdf",
		Name:     "notes.pdf",
		MimeType: "application/pdf",
		Size:     2048,
	})

	shared := readUntil(t, amy, TypeFileShared)
	assert.Equal(t, "group_42", shared.Room)

	// ben is a member with no connection in the room
	require.Eventually(t, func() bool {
		recipients := f.notifications.recipients()
		return len(recipients) == 1 && recipients[0] == "ben"
	}, 2*time.Second, 10*time.Millisecond)

	send(t, amy, TypeShareFile, FileMeta{
		Key:      "group_99/abc_notes.pdf",
		Name:     "notes.pdf",
		MimeType: "application/pdf",
		Size:     2048,
	})
	assert.Equal(t, errs.ErrFileKeyInvalid, readErrorCode(t, amy))

	send(t, amy, TypeCreateEvent, CalendarEvent{Title: "Midterm review", StartsAt: "2026-09-01T18:00:00Z"})
	created := readUntil(t, amy, TypeEventCreated)
	var event CalendarEvent
	require.NoError(t, json.Unmarshal(created.Payload, &event))
	assert.Equal(t, "Midterm review", event.Title)

	send(t, amy, TypeCreateEvent, CalendarEvent{})
	assert.Equal(t, errs.ErrInvalidParams, readErrorCode(t, amy))
}

func TestSessionEditMessage(t *testing.T) {
	f := newWSFixture(t)
	room, _ := NewRoomID("group", "42")
	f.members.add(room, "amy")

	amy := f.dial(t, "amy")
	send(t, amy, TypeJoinRoom, joinRoomPayload{RoomID: "42", RoomKind: "group"})
	readUntil(t, amy, TypeRoomHistory)

	send(t, amy, TypeSendMessage, sendMessagePayload{Content: "draft"})
	event := readUntil(t, amy, TypeNewMessage)
	var msg Message
	require.NoError(t, json.Unmarshal(event.Payload, &msg))

	send(t, amy, TypeEditMessage, editMessagePayload{MessageID: msg.ID, Content: "final"})
	edited := readUntil(t, amy, TypeMessageEdited)
	var editedMsg Message
	require.NoError(t, json.Unmarshal(edited.Payload, &editedMsg))
	assert.Equal(t, "final", editedMsg.Content)
	assert.True(t, editedMsg.Edited)

	stored, ok := f.log.stored(msg.ID)
	require.True(t, ok)
	assert.Equal(t, "enc:final", stored.Content)
}
