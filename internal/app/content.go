package app

import (
	"context"

	"quizbox-service/internal/domain"
)

// ContentStore backs the shorts/videos feeds and the notifications list.
type ContentStore interface {
	ListVideos(ctx context.Context, kind domain.VideoKind) ([]domain.Video, error)
	AddVideo(ctx context.Context, video domain.Video) (domain.Video, error)
	DeleteVideo(ctx context.Context, id string) error
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	PushNotification(ctx context.Context, message string) (domain.Notification, error)
	DeleteNotification(ctx context.Context, id string) error
}

// StreamStore backs the course-stream browser: the stream list, per-stream
// material counts, and the study material filed under each stream.
type StreamStore interface {
	ListStreams(ctx context.Context) ([]domain.Stream, error)
	StreamDetail(ctx context.Context, streamID string) (domain.StreamDetail, error)
	SaveStream(ctx context.Context, stream domain.Stream) (domain.Stream, error)
	DeleteStream(ctx context.Context, streamID string) error
	ListResources(ctx context.Context, streamID string, category domain.StreamCategory) ([]domain.StreamResource, error)
	AddResource(ctx context.Context, resource domain.StreamResource) (domain.StreamResource, error)
	DeleteResource(ctx context.Context, id string) error
}

// AdmissionStore persists submitted admission forms, grouped per course.
type AdmissionStore interface {
	Submit(ctx context.Context, admission domain.Admission) (domain.Admission, error)
	List(ctx context.Context, course string) ([]domain.Admission, error)
}
