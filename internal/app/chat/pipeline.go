/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the MessagePipeline, the validate/encrypt/persist/fan-out path every
chat message takes. Content is encrypted before it touches the durable log; live
subscribers receive a plaintext copy only after the append succeeded. Room members
without a connection in the room get a notification instead.
*/
package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/logx"
	"studysync/internal/pkg/randx"
)

// notificationBodyLimit caps how much message content leaks into a
// notification body preview.
const notificationBodyLimit = 120

// MessagePipeline validates, encrypts, persists, and fans out chat messages.
type MessagePipeline struct {
	log      MessageLog
	cipher   MessageCipher
	hub      *Hub
	notifier *Notifier

	maxChars int
	logger   zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewMessagePipeline constructs the pipeline. maxChars bounds message content
// length in runes.
func NewMessagePipeline(log MessageLog, cipher MessageCipher, hub *Hub, notifier *Notifier, maxChars int) *MessagePipeline {
	return &MessagePipeline{
		log:      log,
		cipher:   cipher,
		hub:      hub,
		notifier: notifier,
		maxChars: maxChars,
		logger:   logx.Logger().With().Str("component", "MessagePipeline").Logger(),
		now:      time.Now,
	}
}

// Submit runs a new message through the full pipeline. The message is
// broadcast to every subscriber of the room, sender included, so all clients
// render the same delivery order. A persistence failure aborts before any
// fan-out.
func (p *MessagePipeline) Submit(ctx context.Context, room RoomID, sender Identity, content string, kind MessageKind, replyTo string) (*Message, *errs.CustomError) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.NewError(errs.ErrContentEmpty)
	}
	if utf8.RuneCountInString(content) > p.maxChars {
		return nil, errs.NewError(errs.ErrContentTooLarge)
	}

	if kind == "" {
		kind = MessageKindText
	}
	if !kind.Valid() {
		return nil, errs.NewError(errs.ErrMessageKindInvalid)
	}

	encrypted, err := p.cipher.Encrypt(content)
	if err != nil {
		p.logger.Error().Err(err).Str("room", room.WireID()).Msg("Failed to encrypt message content.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	msg := &Message{
		ID:        randx.MessageID(),
		Room:      room,
		RoomWire:  room.WireID(),
		SenderID:  sender.UserID,
		Sender:    sender.DisplayName,
		Content:   encrypted,
		Encrypted: true,
		Kind:      kind,
		ReplyTo:   replyTo,
		CreatedAt: p.now(),
	}

	if err := p.log.Append(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("room", room.WireID()).Msg("Failed to persist message.")
		return nil, errs.NewError(errs.ErrPersistFailed)
	}

	delivered := *msg
	delivered.Content = content
	delivered.Encrypted = false

	p.hub.Broadcast(room, Event{Type: TypeNewMessage, Payload: delivered})

	p.notifier.NotifyRoomAbsent(ctx, room, sender.UserID, "message",
		"New message from "+sender.DisplayName,
		truncate(content, notificationBodyLimit),
		map[string]any{"roomId": room.WireID(), "messageId": msg.ID},
	)

	return &delivered, nil
}

// Edit replaces the content of an existing message. Only the original sender
// may edit; the edited plaintext is re-broadcast to the room.
func (p *MessagePipeline) Edit(ctx context.Context, room RoomID, editor Identity, messageID, content string) (*Message, *errs.CustomError) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.NewError(errs.ErrContentEmpty)
	}
	if utf8.RuneCountInString(content) > p.maxChars {
		return nil, errs.NewError(errs.ErrContentTooLarge)
	}

	stored, err := p.log.Get(ctx, messageID)
	if err != nil {
		if err == ErrRecordMissing {
			return nil, errs.NewError(errs.ErrNotFound)
		}
		p.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to load message for edit.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	if stored.SenderID != editor.UserID {
		return nil, errs.NewError(errs.ErrForbidden)
	}

	encrypted, err := p.cipher.Encrypt(content)
	if err != nil {
		p.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to encrypt edited content.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	if err := p.log.UpdateContent(ctx, messageID, encrypted); err != nil {
		p.logger.Error().Err(err).Str("message_id", messageID).Msg("Failed to persist message edit.")
		return nil, errs.NewError(errs.ErrPersistFailed)
	}

	delivered := *stored
	delivered.Content = content
	delivered.Encrypted = false
	delivered.Edited = true

	p.hub.Broadcast(room, Event{Type: TypeMessageEdited, Payload: delivered})
	return &delivered, nil
}

// History returns up to limit recent messages of the room in chronological
// order, decrypted for delivery. A record that fails to decrypt is logged and
// omitted rather than failing the whole backlog.
func (p *MessagePipeline) History(ctx context.Context, room RoomID, limit int) ([]Message, *errs.CustomError) {
	records, err := p.log.Recent(ctx, room, limit)
	if err != nil {
		p.logger.Error().Err(err).Str("room", room.WireID()).Msg("Failed to load message history.")
		return nil, errs.NewError(errs.ErrUnknown)
	}

	out := make([]Message, 0, len(records))
	for _, rec := range records {
		if rec.Encrypted {
			plain, err := p.cipher.Decrypt(rec.Content)
			if err != nil {
				p.logger.Error().Err(err).Str("message_id", rec.ID).Msg("Failed to decrypt stored message, omitting.")
				continue
			}
			rec.Content = plain
			rec.Encrypted = false
		}
		out = append(out, rec)
	}

	// Recent returns newest first; history is delivered oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// truncate clips s to at most n runes, appending an ellipsis when clipped.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
