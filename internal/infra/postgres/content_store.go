package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox-service/internal/domain"
)

// ContentStore backs the shorts/videos feeds and the notifications list.
type ContentStore struct {
	pool *pgxpool.Pool
}

func NewContentStore(pool *pgxpool.Pool) *ContentStore {
	return &ContentStore{pool: pool}
}

func (s *ContentStore) ListVideos(ctx context.Context, kind domain.VideoKind) ([]domain.Video, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, title, url, created_at FROM videos
		 WHERE ($1 = '' OR kind = $1) ORDER BY created_at`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var out []domain.Video
	for rows.Next() {
		var video domain.Video
		var k string
		if err := rows.Scan(&video.ID, &k, &video.Title, &video.URL, &video.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		video.Kind = domain.VideoKind(k)
		out = append(out, video)
	}
	return out, rows.Err()
}

func (s *ContentStore) AddVideo(ctx context.Context, video domain.Video) (domain.Video, error) {
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO videos (id, kind, title, url, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET kind=EXCLUDED.kind, title=EXCLUDED.title, url=EXCLUDED.url`,
		video.ID, string(video.Kind), video.Title, video.URL, video.CreatedAt)
	if err != nil {
		return domain.Video{}, fmt.Errorf("add video: %w", err)
	}
	return video, nil
}

func (s *ContentStore) DeleteVideo(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM videos WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

func (s *ContentStore) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, message, ts FROM notifications ORDER BY ts DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.Timestamp); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *ContentStore) PushNotification(ctx context.Context, message string) (domain.Notification, error) {
	n := domain.Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, message, ts) VALUES ($1, $2, $3)`,
		n.ID, n.Message, n.Timestamp)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("push notification: %w", err)
	}
	return n, nil
}

func (s *ContentStore) DeleteNotification(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
