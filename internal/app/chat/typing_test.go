package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypingStartStop(t *testing.T) {
	tracker := NewTypingTracker()
	room, _ := NewRoomID("group", "42")

	assert.Empty(t, tracker.ActiveUsers(room))

	tracker.Start(room, "u1", time.Minute)
	tracker.Start(room, "u2", time.Minute)

	assert.Equal(t, []string{"u1", "u2"}, tracker.ActiveUsers(room))

	tracker.Stop(room, "u1")
	assert.Equal(t, []string{"u2"}, tracker.ActiveUsers(room))

	// stop without a prior start is a no-op
	tracker.Stop(room, "ghost")
	assert.Equal(t, []string{"u2"}, tracker.ActiveUsers(room))
}

func TestTypingEntriesExpire(t *testing.T) {
	tracker := NewTypingTracker()
	room, _ := NewRoomID("group", "42")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	tracker.Start(room, "u1", 100*time.Millisecond)
	assert.Equal(t, []string{"u1"}, tracker.ActiveUsers(room))

	tracker.now = func() time.Time { return base.Add(150 * time.Millisecond) }
	assert.Empty(t, tracker.ActiveUsers(room))

	// a refresh before expiry extends the deadline
	tracker.Start(room, "u1", 100*time.Millisecond)
	tracker.now = func() time.Time { return base.Add(200 * time.Millisecond) }
	tracker.Start(room, "u1", 100*time.Millisecond)
	tracker.now = func() time.Time { return base.Add(250 * time.Millisecond) }
	assert.Equal(t, []string{"u1"}, tracker.ActiveUsers(room))
}

func TestTypingSingleRoomPerUser(t *testing.T) {
	tracker := NewTypingTracker()
	groupRoom, _ := NewRoomID("group", "42")
	courseRoom, _ := NewRoomID("course", "cs101")

	tracker.Start(groupRoom, "u1", time.Minute)
	tracker.Start(courseRoom, "u1", time.Minute)

	assert.Empty(t, tracker.ActiveUsers(groupRoom), "starting in a new room clears the old entry")
	assert.Equal(t, []string{"u1"}, tracker.ActiveUsers(courseRoom))
}

func TestTypingClear(t *testing.T) {
	tracker := NewTypingTracker()
	room, _ := NewRoomID("group", "42")

	tracker.Start(room, "u1", time.Minute)
	tracker.Start(room, "u2", time.Minute)

	tracker.Clear("u1")
	require.Equal(t, []string{"u2"}, tracker.ActiveUsers(room))

	// clearing an unknown user is a no-op
	tracker.Clear("ghost")
	assert.Equal(t, []string{"u2"}, tracker.ActiveUsers(room))
}
