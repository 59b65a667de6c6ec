package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/pkg/errs"
)

type pipelineFixture struct {
	log           *memLog
	notifications *memNotifications
	members       *memMembers
	hub           *Hub
	pipeline      *MessagePipeline
	room          RoomID
}

func newPipelineFixture(t *testing.T, maxChars int) *pipelineFixture {
	t.Helper()

	room, customErr := NewRoomID("group", "42")
	require.Nil(t, customErr)

	log := &memLog{}
	notifications := &memNotifications{}
	members := newMemMembers()
	hub := NewHub()
	gate := NewAccessGate(members)
	notifier := NewNotifier(notifications, hub, gate)

	return &pipelineFixture{
		log:           log,
		notifications: notifications,
		members:       members,
		hub:           hub,
		pipeline:      NewMessagePipeline(log, markerCipher{}, hub, notifier, maxChars),
		room:          room,
	}
}

func TestPipelineSubmitPersistsCiphertext(t *testing.T) {
	f := newPipelineFixture(t, 2000)
	sender := Identity{UserID: "u1", DisplayName: "Amy"}
	f.members.add(f.room, "u1")

	msg, customErr := f.pipeline.Submit(context.Background(), f.room, sender, "  hello world  ", "", "")
	require.Nil(t, customErr)

	assert.Equal(t, "hello world", msg.Content, "delivered copy is plaintext and trimmed")
	assert.False(t, msg.Encrypted)
	assert.Equal(t, MessageKindText, msg.Kind, "kind defaults to text")
	assert.Equal(t, "group_42", msg.RoomWire)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())

	stored, ok := f.log.stored(msg.ID)
	require.True(t, ok)
	assert.Equal(t, "enc:hello world", stored.Content, "log only ever sees ciphertext")
	assert.True(t, stored.Encrypted)
}

func TestPipelineSubmitValidation(t *testing.T) {
	f := newPipelineFixture(t, 10)
	sender := Identity{UserID: "u1"}

	_, customErr := f.pipeline.Submit(context.Background(), f.room, sender, "   ", "", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrContentEmpty, customErr.Code)

	_, customErr = f.pipeline.Submit(context.Background(), f.room, sender, strings.Repeat("x", 11), "", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrContentTooLarge, customErr.Code)

	// rune count, not byte count
	_, customErr = f.pipeline.Submit(context.Background(), f.room, sender, strings.Repeat("日", 10), "", "")
	assert.Nil(t, customErr)

	_, customErr = f.pipeline.Submit(context.Background(), f.room, sender, "hi", "sticker", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrMessageKindInvalid, customErr.Code)
}

func TestPipelineSubmitPersistFailureAborts(t *testing.T) {
	f := newPipelineFixture(t, 2000)
	f.log.failAppend = true
	f.members.add(f.room, "u1", "u2")

	_, customErr := f.pipeline.Submit(context.Background(), f.room, Identity{UserID: "u1"}, "hello", "", "")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrPersistFailed, customErr.Code)

	assert.Empty(t, f.notifications.recipients(), "no notification fan-out after a failed write")
}

func TestPipelineSubmitNotifiesAbsentMembers(t *testing.T) {
	f := newPipelineFixture(t, 2000)
	f.members.add(f.room, "u1", "u2", "u3")

	// u2 has a live connection in the room, u3 does not
	present := newTestSession("c2", "u2")
	f.hub.Register(present)
	f.hub.Join(f.room, present)

	_, customErr := f.pipeline.Submit(context.Background(), f.room, Identity{UserID: "u1", DisplayName: "Amy"}, "hello", "", "")
	require.Nil(t, customErr)

	assert.Equal(t, []string{"u3"}, f.notifications.recipients(), "sender and present members are not notified")

	require.Len(t, f.notifications.records, 1)
	assert.Equal(t, "message", f.notifications.records[0].Type)

	events := drainEvents(t, present)
	require.Len(t, events, 1)
	assert.Equal(t, TypeNewMessage, events[0].Type)
}

func TestPipelineEdit(t *testing.T) {
	f := newPipelineFixture(t, 2000)
	sender := Identity{UserID: "u1", DisplayName: "Amy"}

	msg, customErr := f.pipeline.Submit(context.Background(), f.room, sender, "first draft", "", "")
	require.Nil(t, customErr)

	_, customErr = f.pipeline.Edit(context.Background(), f.room, Identity{UserID: "u2"}, msg.ID, "hijacked")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrForbidden, customErr.Code)

	edited, customErr := f.pipeline.Edit(context.Background(), f.room, sender, msg.ID, "final version")
	require.Nil(t, customErr)
	assert.Equal(t, "final version", edited.Content)
	assert.True(t, edited.Edited)

	stored, ok := f.log.stored(msg.ID)
	require.True(t, ok)
	assert.Equal(t, "enc:final version", stored.Content)
	assert.True(t, stored.Edited)

	_, customErr = f.pipeline.Edit(context.Background(), f.room, sender, "no-such-id", "text")
	require.NotNil(t, customErr)
	assert.Equal(t, errs.ErrNotFound, customErr.Code)
}

func TestPipelineHistoryOrderAndDecryption(t *testing.T) {
	f := newPipelineFixture(t, 2000)
	sender := Identity{UserID: "u1"}

	for _, content := range []string{"one", "two", "three"} {
		_, customErr := f.pipeline.Submit(context.Background(), f.room, sender, content, "", "")
		require.Nil(t, customErr)
	}

	history, customErr := f.pipeline.History(context.Background(), f.room, 2)
	require.Nil(t, customErr)
	require.Len(t, history, 2)

	assert.Equal(t, "two", history[0].Content, "history is oldest first within the window")
	assert.Equal(t, "three", history[1].Content)
	for _, msg := range history {
		assert.False(t, msg.Encrypted)
	}
}

func TestPipelineHistoryOmitsUndecryptable(t *testing.T) {
	f := newPipelineFixture(t, 2000)
	sender := Identity{UserID: "u1"}

	_, customErr := f.pipeline.Submit(context.Background(), f.room, sender, "readable", "", "")
	require.Nil(t, customErr)

	broken := NewMessagePipeline(f.log, markerCipher{failDecrypt: true}, f.hub, nil, 2000)
	history, customErr := broken.History(context.Background(), f.room, 10)
	require.Nil(t, customErr)
	assert.Empty(t, history, "records that fail to decrypt are omitted, not fatal")
}
