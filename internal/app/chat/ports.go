/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the domain records owned by the subsystem (Message, Notification)
and the narrow interfaces to its external collaborators: the user directory, the
membership store, the durable message log, the notification store, and the
content encryption service. The subsystem caches nothing from these collaborators
beyond a single authorization check or fan-out computation.
*/
package chat

import (
	"context"
	"errors"
	"time"
)

// Identity is a resolved authenticated user.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// MessageKind classifies a chat message.
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindFile   MessageKind = "file"
	MessageKindImage  MessageKind = "image"
	MessageKindSystem MessageKind = "system"
)

// Valid reports whether the kind is one of the supported message kinds.
func (k MessageKind) Valid() bool {
	switch k {
	case MessageKindText, MessageKindFile, MessageKindImage, MessageKindSystem:
		return true
	}
	return false
}

// Message is a persisted chat record. The stored form carries ciphertext
// (Encrypted=true); copies delivered to live connections carry plaintext.
type Message struct {
	ID        string      `json:"id"`
	Room      RoomID      `json:"-"`
	RoomWire  string      `json:"roomId"`
	SenderID  string      `json:"senderId"`
	Sender    string      `json:"sender,omitempty"`
	Content   string      `json:"content"`
	Encrypted bool        `json:"-"`
	Kind      MessageKind `json:"kind"`
	ReplyTo   string      `json:"replyTo,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	Edited    bool        `json:"edited,omitempty"`
}

// Notification is a persisted per-recipient record, mutated only by
// read-state transitions.
type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipientId"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Payload     map[string]any `json:"payload,omitempty"`
	Read        bool           `json:"read"`
	ReadAt      *time.Time     `json:"readAt,omitempty"`
	Priority    string         `json:"priority"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Sentinel errors returned by collaborator implementations. The realtime
// layer maps these onto wire error codes.
var (
	// ErrUserUnknown indicates a user id that does not resolve in the user store.
	ErrUserUnknown = errors.New("user not found")

	// ErrRecordMissing indicates a durable record that does not exist.
	ErrRecordMissing = errors.New("record not found")

	// ErrWrongRecipient indicates a notification mutation by a non-owner.
	ErrWrongRecipient = errors.New("notification belongs to another recipient")
)

// UserDirectory resolves user ids to identities.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (Identity, error)
}

// MembershipStore is the external membership/ACL source of truth.
// Membership is re-checked on every join; nothing is cached here.
type MembershipStore interface {
	IsMember(ctx context.Context, room RoomID, userID string) (bool, error)
	MembersOf(ctx context.Context, room RoomID) ([]string, error)
}

// MessageLog is the durable, append-only chat record store.
type MessageLog interface {
	Append(ctx context.Context, msg *Message) error
	// Recent returns up to limit messages for the room, most-recent-first.
	Recent(ctx context.Context, room RoomID, limit int) ([]Message, error)
	Get(ctx context.Context, id string) (*Message, error)
	// UpdateContent replaces the stored ciphertext and sets the edited flag.
	UpdateContent(ctx context.Context, id string, content string) error
}

// NotificationStore is the durable notification record store.
type NotificationStore interface {
	Create(ctx context.Context, n *Notification) error
	ListFor(ctx context.Context, recipientID string, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id string, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
}

// MessageCipher is the content encryption collaborator. Encryption is
// mandatory for all persisted chat content.
type MessageCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
