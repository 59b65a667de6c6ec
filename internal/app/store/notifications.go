/*
Package store contains the PostgreSQL implementations of the realtime layer's
persistence interfaces.

This file implements the durable notification store. Records are append-only
except for the read-state transition, which is recipient-scoped.
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studysync/internal/app/chat"
)

// NotificationStore persists notifications in the notifications table.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// NewNotificationStore constructs a notification store over the given pool.
func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

// Create inserts one notification record.
func (s *NotificationStore) Create(ctx context.Context, n *chat.Notification) error {
	var payload []byte
	if n.Payload != nil {
		encoded, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode notification payload: %w", err)
		}
		payload = encoded
	}

	const query = `INSERT INTO notifications
		(id, recipient_id, type, title, body, payload, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		n.ID, n.RecipientID, n.Type, n.Title, n.Body, payload, n.Priority, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListFor returns a page of the recipient's notifications, newest first.
func (s *NotificationStore) ListFor(ctx context.Context, recipientID string, limit, offset int) ([]chat.Notification, error) {
	const query = `SELECT id, recipient_id, type, title, body, payload, read, read_at, priority, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []chat.Notification
	for rows.Next() {
		var (
			n       chat.Notification
			payload []byte
		)
		err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body,
			&payload, &n.Read, &n.ReadAt, &n.Priority, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &n.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode notification payload: %w", err)
			}
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead marks one notification as read. Returns ErrRecordMissing if the id
// does not exist and ErrWrongRecipient if it belongs to another recipient.
func (s *NotificationStore) MarkRead(ctx context.Context, id string, recipientID string) error {
	const query = `SELECT recipient_id FROM notifications WHERE id = $1`

	var owner string
	if err := s.pool.QueryRow(ctx, query, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return chat.ErrRecordMissing
		}
		return fmt.Errorf("failed to load notification: %w", err)
	}

	if owner != recipientID {
		return chat.ErrWrongRecipient
	}

	const update = `UPDATE notifications SET read = TRUE, read_at = now() WHERE id = $1 AND read = FALSE`
	if _, err := s.pool.Exec(ctx, update, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the recipient as read.
func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientID string) error {
	const query = `UPDATE notifications SET read = TRUE, read_at = now()
		WHERE recipient_id = $1 AND read = FALSE`

	if _, err := s.pool.Exec(ctx, query, recipientID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
