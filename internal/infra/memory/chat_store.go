package memory

import (
	"context"
	"sync"

	"quizbox-service/internal/domain"
)

// ChatStore is an in-memory implementation of app.ChatStore.
type ChatStore struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

func NewChatStore() *ChatStore {
	return &ChatStore{}
}

func (s *ChatStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return nil
}

func (s *ChatStore) Get(_ context.Context, id string) (domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return domain.ChatMessage{}, domain.ErrMessageNotFound
}

func (s *ChatStore) List(_ context.Context, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if len(s.messages) > limit {
		start = len(s.messages) - limit
	}
	out := make([]domain.ChatMessage, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out, nil
}

func (s *ChatStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return domain.ErrMessageNotFound
}
