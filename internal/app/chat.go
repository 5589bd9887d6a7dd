package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizbox-service/internal/domain"
)

// ChatStore persists doubts-board messages.
type ChatStore interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
	Get(ctx context.Context, id string) (domain.ChatMessage, error)
	List(ctx context.Context, limit int) ([]domain.ChatMessage, error)
	Delete(ctx context.Context, id string) error
}

// ChatEvent is a live doubts-board update.
type ChatEvent struct {
	Type      string              `json:"type"` // "message" or "deleted"
	Message   *domain.ChatMessage `json:"message,omitempty"`
	MessageID string              `json:"messageId,omitempty"`
}

// ChatBoard is the shared doubts board: append-only messages with generated
// keys, live fan-out to subscribers, delete-own (or any, for admins).
type ChatBoard struct {
	store ChatStore
	now   func() time.Time
	newID func() string

	mu          sync.Mutex
	subscribers map[chan ChatEvent]struct{}
}

func NewChatBoard(store ChatStore) *ChatBoard {
	return &ChatBoard{
		store:       store,
		now:         time.Now,
		newID:       uuid.NewString,
		subscribers: make(map[chan ChatEvent]struct{}),
	}
}

// Post appends a message and fans it out to live subscribers.
func (b *ChatBoard) Post(ctx context.Context, userID, name, role, text string, replyTo *domain.ReplyContext) (domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID:        b.newID(),
		UserID:    userID,
		Name:      name,
		Role:      role,
		Text:      text,
		ReplyTo:   replyTo,
		Timestamp: b.now().UnixMilli(),
	}
	if err := b.store.Append(ctx, msg); err != nil {
		return domain.ChatMessage{}, err
	}
	b.broadcast(ChatEvent{Type: "message", Message: &msg})
	return msg, nil
}

// Delete removes a message. Users may delete their own; admins may delete any.
func (b *ChatBoard) Delete(ctx context.Context, requesterID, requesterRole, messageID string) error {
	msg, err := b.store.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.UserID != requesterID && requesterRole != domain.RoleAdmin {
		return domain.ErrForbidden
	}
	if err := b.store.Delete(ctx, messageID); err != nil {
		return err
	}
	b.broadcast(ChatEvent{Type: "deleted", MessageID: messageID})
	return nil
}

// History returns the most recent messages in timestamp order.
func (b *ChatBoard) History(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	return b.store.List(ctx, limit)
}

// Subscribe returns a channel of board events. The caller must invoke the
// cancel function to avoid leaks.
func (b *ChatBoard) Subscribe() (<-chan ChatEvent, func()) {
	ch := make(chan ChatEvent, 16)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *ChatBoard) broadcast(event ChatEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest event rather than block the board on a slow reader.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
