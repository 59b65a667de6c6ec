/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the AccessGate, the authorization checkpoint in front of every room
join. It consults the external membership store on each check and caches nothing, so a
revoked membership takes effect on the next join attempt.
*/
package chat

import (
	"context"

	"github.com/rs/zerolog"

	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/logx"
)

// AccessGate authorizes room access against the membership store.
type AccessGate struct {
	memberships MembershipStore
	logger      zerolog.Logger
}

// NewAccessGate constructs an access gate over the given membership store.
func NewAccessGate(memberships MembershipStore) *AccessGate {
	return &AccessGate{
		memberships: memberships,
		logger:      logx.Logger().With().Str("component", "AccessGate").Logger(),
	}
}

// Authorize checks that the user may enter the room. Membership is looked up
// fresh on every call.
func (g *AccessGate) Authorize(ctx context.Context, room RoomID, userID string) *errs.CustomError {
	if !room.Kind.Valid() {
		return errs.NewError(errs.ErrRoomKindInvalid)
	}

	ok, err := g.memberships.IsMember(ctx, room, userID)
	if err != nil {
		g.logger.Error().Err(err).
			Str("room", room.WireID()).
			Str("user_id", userID).
			Msg("Membership lookup failed.")
		return errs.NewError(errs.ErrUnknown)
	}

	if !ok {
		return errs.NewError(errs.ErrAccessDenied)
	}
	return nil
}

// MembersOf returns the full member list of the room from the membership store.
func (g *AccessGate) MembersOf(ctx context.Context, room RoomID) ([]string, error) {
	return g.memberships.MembersOf(ctx, room)
}
