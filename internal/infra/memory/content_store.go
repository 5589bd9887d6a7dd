package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizbox-service/internal/domain"
)

// ContentStore is an in-memory implementation of app.ContentStore and
// app.AdmissionStore.
type ContentStore struct {
	mu            sync.RWMutex
	videos        map[string]domain.Video
	notifications map[string]domain.Notification
	admissions    []domain.Admission
}

func NewContentStore() *ContentStore {
	return &ContentStore{
		videos:        make(map[string]domain.Video),
		notifications: make(map[string]domain.Notification),
	}
}

func (s *ContentStore) ListVideos(_ context.Context, kind domain.VideoKind) ([]domain.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Video, 0, len(s.videos))
	for _, video := range s.videos {
		if kind == "" || video.Kind == kind {
			out = append(out, video)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ContentStore) AddVideo(_ context.Context, video domain.Video) (domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}
	s.videos[video.ID] = video
	return video, nil
}

func (s *ContentStore) DeleteVideo(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.videos, id)
	return nil
}

func (s *ContentStore) ListNotifications(_ context.Context) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (s *ContentStore) PushNotification(_ context.Context, message string) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := domain.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	s.notifications[n.ID] = n
	return n, nil
}

func (s *ContentStore) DeleteNotification(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notifications, id)
	return nil
}

func (s *ContentStore) Submit(_ context.Context, admission domain.Admission) (domain.Admission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if admission.ID == "" {
		admission.ID = uuid.NewString()
	}
	if admission.SubmittedAt.IsZero() {
		admission.SubmittedAt = time.Now()
	}
	s.admissions = append(s.admissions, admission)
	return admission, nil
}

func (s *ContentStore) List(_ context.Context, course string) ([]domain.Admission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Admission, 0, len(s.admissions))
	for _, a := range s.admissions {
		if course == "" || a.Course == course {
			out = append(out, a)
		}
	}
	return out, nil
}
