/*
Package chat contains the core logic for the realtime room messaging and presence subsystem.

This file defines the Notifier, which creates durable notification records and pushes
them over each recipient's personal channel when the recipient is connected. Delivery
to offline users is deferred to their next notification list fetch.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"studysync/internal/pkg/errs"
	"studysync/internal/pkg/logx"
	"studysync/internal/pkg/randx"
)

// Notification priorities.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notifier persists notifications and delivers them to live connections.
type Notifier struct {
	store  NotificationStore
	hub    *Hub
	gate   *AccessGate
	logger zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewNotifier constructs a notifier over the given store, hub, and gate.
func NewNotifier(store NotificationStore, hub *Hub, gate *AccessGate) *Notifier {
	return &Notifier{
		store:  store,
		hub:    hub,
		gate:   gate,
		logger: logx.Logger().With().Str("component", "Notifier").Logger(),
		now:    time.Now,
	}
}

// Notify creates a durable notification for the recipient and, if the
// recipient has a live connection, pushes it immediately.
func (n *Notifier) Notify(ctx context.Context, recipientID, kind, title, body string, payload map[string]any, priority string) error {
	if priority == "" {
		priority = PriorityNormal
	}

	record := &Notification{
		ID:          randx.NotificationID(),
		RecipientID: recipientID,
		Type:        kind,
		Title:       title,
		Body:        body,
		Payload:     payload,
		Priority:    priority,
		CreatedAt:   n.now(),
	}

	if err := n.store.Create(ctx, record); err != nil {
		return err
	}

	n.hub.SendToUser(recipientID, Event{Type: TypeNotification, Payload: record})
	return nil
}

// NotifyRoomAbsent notifies every member of the room who has no connection
// currently subscribed to it. The actor is always excluded. Per-recipient
// failures are logged and do not stop the remaining deliveries.
func (n *Notifier) NotifyRoomAbsent(ctx context.Context, room RoomID, actorID, kind, title, body string, payload map[string]any) {
	members, err := n.gate.MembersOf(ctx, room)
	if err != nil {
		n.logger.Error().Err(err).
			Str("room", room.WireID()).
			Msg("Failed to load room members for notification fan-out.")
		return
	}

	present := n.hub.presentUsers(room)

	for _, memberID := range members {
		if memberID == actorID {
			continue
		}
		if _, ok := present[memberID]; ok {
			continue
		}
		if err := n.Notify(ctx, memberID, kind, title, body, payload, PriorityNormal); err != nil {
			n.logger.Error().Err(err).
				Str("room", room.WireID()).
				Str("recipient_id", memberID).
				Msg("Failed to create notification.")
		}
	}
}

// List returns a page of the recipient's notifications, newest first.
func (n *Notifier) List(ctx context.Context, recipientID string, limit, offset int) ([]Notification, *errs.CustomError) {
	records, err := n.store.ListFor(ctx, recipientID, limit, offset)
	if err != nil {
		n.logger.Error().Err(err).Str("recipient_id", recipientID).Msg("Failed to list notifications.")
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return records, nil
}

// MarkRead marks one notification as read. Only the recipient may do so.
func (n *Notifier) MarkRead(ctx context.Context, id, recipientID string) *errs.CustomError {
	switch err := n.store.MarkRead(ctx, id, recipientID); err {
	case nil:
		return nil
	case ErrWrongRecipient:
		return errs.NewError(errs.ErrForbidden)
	case ErrRecordMissing:
		return errs.NewError(errs.ErrNotFound)
	default:
		n.logger.Error().Err(err).Str("notification_id", id).Msg("Failed to mark notification read.")
		return errs.NewError(errs.ErrUnknown)
	}
}

// MarkAllRead marks every unread notification of the recipient as read.
func (n *Notifier) MarkAllRead(ctx context.Context, recipientID string) *errs.CustomError {
	if err := n.store.MarkAllRead(ctx, recipientID); err != nil {
		n.logger.Error().Err(err).Str("recipient_id", recipientID).Msg("Failed to mark notifications read.")
		return errs.NewError(errs.ErrUnknown)
	}
	return nil
}
