package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memLog is an in-memory MessageLog. failAppend forces persistence failures.
type memLog struct {
	mu         sync.Mutex
	messages   []Message
	failAppend bool
}

func (l *memLog) Append(ctx context.Context, msg *Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failAppend {
		return errors.New("append failed")
	}
	l.messages = append(l.messages, *msg)
	return nil
}

func (l *memLog) Recent(ctx context.Context, room RoomID, limit int) ([]Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Message
	for i := len(l.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if l.messages[i].Room == room {
			out = append(out, l.messages[i])
		}
	}
	return out, nil
}

func (l *memLog) Get(ctx context.Context, id string) (*Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			msg := l.messages[i]
			return &msg, nil
		}
	}
	return nil, ErrRecordMissing
}

func (l *memLog) UpdateContent(ctx context.Context, id string, content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			l.messages[i].Content = content
			l.messages[i].Edited = true
			return nil
		}
	}
	return ErrRecordMissing
}

func (l *memLog) stored(id string) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// memNotifications is an in-memory NotificationStore.
type memNotifications struct {
	mu      sync.Mutex
	records []Notification
}

func (s *memNotifications) Create(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, *n)
	return nil
}

func (s *memNotifications) ListFor(ctx context.Context, recipientID string, limit, offset int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []Notification
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].RecipientID == recipientID {
			all = append(all, s.records[i])
		}
	}

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memNotifications) MarkRead(ctx context.Context, id string, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			if s.records[i].RecipientID != recipientID {
				return ErrWrongRecipient
			}
			s.records[i].Read = true
			return nil
		}
	}
	return ErrRecordMissing
}

func (s *memNotifications) MarkAllRead(ctx context.Context, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].RecipientID == recipientID {
			s.records[i].Read = true
		}
	}
	return nil
}

func (s *memNotifications) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, rec := range s.records {
		seen[rec.RecipientID] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// memMembers is an in-memory MembershipStore keyed by room wire id.
type memMembers struct {
	mu      sync.Mutex
	byRoom  map[string][]string
	failAll bool
}

func newMemMembers() *memMembers {
	return &memMembers{byRoom: make(map[string][]string)}
}

func (m *memMembers) add(room RoomID, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byRoom[room.WireID()] = append(m.byRoom[room.WireID()], userIDs...)
}

func (m *memMembers) IsMember(ctx context.Context, room RoomID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return false, errors.New("membership lookup failed")
	}
	for _, id := range m.byRoom[room.WireID()] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memMembers) MembersOf(ctx context.Context, room RoomID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return nil, errors.New("membership lookup failed")
	}
	return append([]string(nil), m.byRoom[room.WireID()]...), nil
}

// markerCipher is a reversible fake MessageCipher so tests can tell plaintext
// and "ciphertext" apart without key material.
type markerCipher struct {
	failDecrypt bool
}

func (c markerCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (c markerCipher) Decrypt(ciphertext string) (string, error) {
	if c.failDecrypt {
		return "", errors.New("decrypt failed")
	}
	if len(ciphertext) < 4 || ciphertext[:4] != "enc:" {
		return "", errors.New("not ciphertext")
	}
	return ciphertext[4:], nil
}

// memDirectory is an in-memory UserDirectory.
type memDirectory struct {
	users map[string]Identity
}

func (d *memDirectory) Resolve(ctx context.Context, userID string) (Identity, error) {
	identity, ok := d.users[userID]
	if !ok {
		return Identity{}, ErrUserUnknown
	}
	return identity, nil
}
