package memory

import (
	"context"
	"sort"
	"sync"
)

// LibraryStore is an in-memory implementation of app.LibraryStore.
type LibraryStore struct {
	mu    sync.RWMutex
	saved map[string]map[int64]struct{}
}

func NewLibraryStore() *LibraryStore {
	return &LibraryStore{saved: make(map[string]map[int64]struct{})}
}

func (s *LibraryStore) Add(_ context.Context, userID string, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved[userID] == nil {
		s.saved[userID] = make(map[int64]struct{})
	}
	s.saved[userID][quizID] = struct{}{}
	return nil
}

func (s *LibraryStore) Remove(_ context.Context, userID string, quizID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved[userID], quizID)
	return nil
}

func (s *LibraryStore) List(_ context.Context, userID string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.saved[userID]))
	for id := range s.saved[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
