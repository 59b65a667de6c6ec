/*
Package randx provides functions for generating unique identifiers used across the realtime layer.

Connection, message, and notification identifiers are standard UUIDs; shared-file keys
combine the room's wire identifier with a random suffix so uploads stay namespaced per room.
*/
package randx

import (
	"fmt"

	"github.com/google/uuid"
)

// ConnectionID generates a unique identifier for a live transport connection.
func ConnectionID() string {
	return uuid.NewString()
}

// MessageID generates a unique identifier for a persisted chat message.
func MessageID() string {
	return uuid.NewString()
}

// NotificationID generates a unique identifier for a persisted notification record.
func NotificationID() string {
	return uuid.NewString()
}

// FileKey builds an object storage key for a file shared into a room.
// The key is prefixed with the room's wire identifier so per-room access
// rules can be enforced by prefix.
func FileKey(roomWireID string, fileName string) string {
	return fmt.Sprintf("%s/%s_%s", roomWireID, uuid.NewString(), fileName)
}
