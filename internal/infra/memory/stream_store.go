package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizbox-service/internal/domain"
)

// StreamStore is an in-memory implementation of app.StreamStore.
type StreamStore struct {
	mu        sync.RWMutex
	streams   map[string]domain.Stream
	resources map[string]domain.StreamResource
}

func NewStreamStore(seed []domain.Stream) *StreamStore {
	store := &StreamStore{
		streams:   make(map[string]domain.Stream),
		resources: make(map[string]domain.StreamResource),
	}
	for _, stream := range seed {
		store.streams[stream.ID] = stream
	}
	return store
}

func (s *StreamStore) ListStreams(_ context.Context) ([]domain.Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Stream, 0, len(s.streams))
	for _, stream := range s.streams {
		out = append(out, stream)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *StreamStore) StreamDetail(_ context.Context, streamID string) (domain.StreamDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream, ok := s.streams[streamID]
	if !ok {
		return domain.StreamDetail{}, domain.ErrStreamNotFound
	}
	counts := make(map[domain.StreamCategory]int)
	for _, resource := range s.resources {
		if resource.StreamID == streamID {
			counts[resource.Category]++
		}
	}
	return domain.StreamDetail{Stream: stream, Counts: counts}, nil
}

func (s *StreamStore) SaveStream(_ context.Context, stream domain.Stream) (domain.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stream.ID == "" {
		stream.ID = uuid.NewString()
	}
	s.streams[stream.ID] = stream
	return stream, nil
}

func (s *StreamStore) DeleteStream(_ context.Context, streamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, streamID)
	for id, resource := range s.resources {
		if resource.StreamID == streamID {
			delete(s.resources, id)
		}
	}
	return nil
}

func (s *StreamStore) ListResources(_ context.Context, streamID string, category domain.StreamCategory) ([]domain.StreamResource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.streams[streamID]; !ok {
		return nil, domain.ErrStreamNotFound
	}
	out := make([]domain.StreamResource, 0)
	for _, resource := range s.resources {
		if resource.StreamID != streamID {
			continue
		}
		if category != "" && resource.Category != category {
			continue
		}
		out = append(out, resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *StreamStore) AddResource(_ context.Context, resource domain.StreamResource) (domain.StreamResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.streams[resource.StreamID]; !ok {
		return domain.StreamResource{}, domain.ErrStreamNotFound
	}
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}
	s.resources[resource.ID] = resource
	return resource, nil
}

func (s *StreamStore) DeleteResource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, id)
	return nil
}
