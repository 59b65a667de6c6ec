/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the RoomID value type. Rooms are always scoped to a group or course
entity; the (kind, entity) pair is carried explicitly on every join and send so that
authorization routing never depends on string prefix conventions. The underscore wire
form ("group_42") appears only at the transport boundary.
*/
package chat

import (
	"fmt"
	"strings"

	"studysync/internal/pkg/errs"
)

// RoomKind identifies the entity type a room is bound to.
type RoomKind string

const (
	// RoomKindGroup scopes a room to a study group.
	RoomKindGroup RoomKind = "group"

	// RoomKindCourse scopes a room to a course.
	RoomKindCourse RoomKind = "course"
)

// Valid reports whether the kind is one of the supported room kinds.
func (k RoomKind) Valid() bool {
	return k == RoomKindGroup || k == RoomKindCourse
}

// RoomID identifies a logical broadcast scope bound to a group or course entity.
type RoomID struct {
	Kind   RoomKind
	Entity string
}

// NewRoomID builds a RoomID from its parts, validating the kind and entity.
func NewRoomID(kind string, entity string) (RoomID, *errs.CustomError) {
	k := RoomKind(strings.TrimSpace(kind))
	entity = strings.TrimSpace(entity)

	if !k.Valid() || entity == "" {
		return RoomID{}, errs.NewError(errs.ErrRoomKindInvalid)
	}

	return RoomID{Kind: k, Entity: entity}, nil
}

// WireID returns the room identifier in its on-the-wire form, e.g. "group_507f".
func (id RoomID) WireID() string {
	return fmt.Sprintf("%s_%s", id.Kind, id.Entity)
}

// IsZero reports whether the RoomID is the empty value.
func (id RoomID) IsZero() bool {
	return id.Kind == "" && id.Entity == ""
}

// ParseWireID parses a wire-form room identifier ("<kind>_<entityId>") back
// into a RoomID. Used at the REST boundary where only the wire form appears.
func ParseWireID(wire string) (RoomID, *errs.CustomError) {
	kind, entity, ok := strings.Cut(wire, "_")
	if !ok {
		return RoomID{}, errs.NewError(errs.ErrRoomKindInvalid)
	}

	return NewRoomID(kind, entity)
}
