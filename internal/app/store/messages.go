/*
Package store contains the PostgreSQL implementations of the realtime layer's
persistence interfaces.

This file implements the durable message log. Content arrives already encrypted;
the log never sees plaintext.
*/
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studysync/internal/app/chat"
)

// MessageLog persists chat messages in the messages table.
type MessageLog struct {
	pool *pgxpool.Pool
}

// NewMessageLog constructs a message log over the given pool.
func NewMessageLog(pool *pgxpool.Pool) *MessageLog {
	return &MessageLog{pool: pool}
}

// Append inserts one message record.
func (l *MessageLog) Append(ctx context.Context, msg *chat.Message) error {
	const query = `INSERT INTO messages
		(id, room_kind, room_id, sender_id, sender, content, kind, reply_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)`

	_, err := l.pool.Exec(ctx, query,
		msg.ID,
		string(msg.Room.Kind),
		msg.Room.Entity,
		msg.SenderID,
		msg.Sender,
		msg.Content,
		string(msg.Kind),
		msg.ReplyTo,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// Recent returns up to limit messages for the room, most-recent-first.
func (l *MessageLog) Recent(ctx context.Context, room chat.RoomID, limit int) ([]chat.Message, error) {
	const query = `SELECT id, room_kind, room_id, sender_id, sender, content, kind,
		COALESCE(reply_to, ''), edited, created_at
		FROM messages
		WHERE room_kind = $1 AND room_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := l.pool.Query(ctx, query, string(room.Kind), room.Entity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []chat.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// Get returns one message by id.
func (l *MessageLog) Get(ctx context.Context, id string) (*chat.Message, error) {
	const query = `SELECT id, room_kind, room_id, sender_id, sender, content, kind,
		COALESCE(reply_to, ''), edited, created_at
		FROM messages WHERE id = $1`

	rows, err := l.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query message: %w", err)
		}
		return nil, chat.ErrRecordMissing
	}

	msg, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateContent replaces the stored ciphertext and sets the edited flag.
func (l *MessageLog) UpdateContent(ctx context.Context, id string, content string) error {
	const query = `UPDATE messages SET content = $2, edited = TRUE WHERE id = $1`

	tag, err := l.pool.Exec(ctx, query, id, content)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return chat.ErrRecordMissing
	}
	return nil
}

// scanMessage maps one result row onto a Message. Stored content is always
// ciphertext.
func scanMessage(rows pgx.Rows) (chat.Message, error) {
	var (
		msg  chat.Message
		kind string
		rk   string
	)

	err := rows.Scan(&msg.ID, &rk, &msg.Room.Entity, &msg.SenderID, &msg.Sender,
		&msg.Content, &kind, &msg.ReplyTo, &msg.Edited, &msg.CreatedAt)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to scan message: %w", err)
	}

	msg.Room.Kind = chat.RoomKind(rk)
	msg.RoomWire = msg.Room.WireID()
	msg.Kind = chat.MessageKind(kind)
	msg.Encrypted = true
	return msg, nil
}
