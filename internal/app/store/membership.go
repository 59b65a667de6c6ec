/*
Package store contains the PostgreSQL implementations of the realtime layer's
persistence interfaces.

This file implements the user directory and the room membership store.
*/
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studysync/internal/app/chat"
)

// UserDirectory resolves user ids against the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

// NewUserDirectory constructs a directory over the given pool.
func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// Resolve looks up one user by id.
func (d *UserDirectory) Resolve(ctx context.Context, userID string) (chat.Identity, error) {
	const query = `SELECT id, display_name FROM users WHERE id = $1`

	var identity chat.Identity
	err := d.pool.QueryRow(ctx, query, userID).Scan(&identity.UserID, &identity.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return chat.Identity{}, chat.ErrUserUnknown
		}
		return chat.Identity{}, fmt.Errorf("failed to resolve user: %w", err)
	}

	return identity, nil
}

// MembershipStore reads room membership from the room_members table.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore constructs a membership store over the given pool.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// IsMember reports whether the user belongs to the room.
func (s *MembershipStore) IsMember(ctx context.Context, room chat.RoomID, userID string) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM room_members WHERE room_kind = $1 AND room_id = $2 AND user_id = $3
	)`

	var ok bool
	if err := s.pool.QueryRow(ctx, query, string(room.Kind), room.Entity, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// MembersOf returns every member of the room.
func (s *MembershipStore) MembersOf(ctx context.Context, room chat.RoomID) ([]string, error) {
	const query = `SELECT user_id FROM room_members WHERE room_kind = $1 AND room_id = $2 ORDER BY user_id`

	rows, err := s.pool.Query(ctx, query, string(room.Kind), room.Entity)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
