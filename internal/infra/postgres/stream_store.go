package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox-service/internal/domain"
)

// StreamStore persists course streams and the study material filed under
// them. Resources cascade away with their stream.
type StreamStore struct {
	pool *pgxpool.Pool
}

func NewStreamStore(pool *pgxpool.Pool) *StreamStore {
	return &StreamStore{pool: pool}
}

func (s *StreamStore) ListStreams(ctx context.Context) ([]domain.Stream, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM streams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	defer rows.Close()

	var out []domain.Stream
	for rows.Next() {
		var stream domain.Stream
		if err := rows.Scan(&stream.ID, &stream.Name, &stream.Description); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		out = append(out, stream)
	}
	return out, rows.Err()
}

func (s *StreamStore) StreamDetail(ctx context.Context, streamID string) (domain.StreamDetail, error) {
	var stream domain.Stream
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description FROM streams WHERE id=$1`, streamID).
		Scan(&stream.ID, &stream.Name, &stream.Description)
	if err == pgx.ErrNoRows {
		return domain.StreamDetail{}, domain.ErrStreamNotFound
	}
	if err != nil {
		return domain.StreamDetail{}, fmt.Errorf("load stream: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM stream_resources WHERE stream_id=$1 GROUP BY category`, streamID)
	if err != nil {
		return domain.StreamDetail{}, fmt.Errorf("count resources: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.StreamCategory]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return domain.StreamDetail{}, fmt.Errorf("scan resource count: %w", err)
		}
		counts[domain.StreamCategory(category)] = count
	}
	return domain.StreamDetail{Stream: stream, Counts: counts}, rows.Err()
}

func (s *StreamStore) SaveStream(ctx context.Context, stream domain.Stream) (domain.Stream, error) {
	if stream.ID == "" {
		stream.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO streams (id, name, description) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, description=EXCLUDED.description`,
		stream.ID, stream.Name, stream.Description)
	if err != nil {
		return domain.Stream{}, fmt.Errorf("save stream: %w", err)
	}
	return stream, nil
}

func (s *StreamStore) DeleteStream(ctx context.Context, streamID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM streams WHERE id=$1`, streamID)
	if err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}
	return nil
}

func (s *StreamStore) ListResources(ctx context.Context, streamID string, category domain.StreamCategory) ([]domain.StreamResource, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM streams WHERE id=$1)`, streamID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check stream: %w", err)
	}
	if !exists {
		return nil, domain.ErrStreamNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, stream_id, category, title, url, image, created_at FROM stream_resources
		 WHERE stream_id=$1 AND ($2 = '' OR category = $2) ORDER BY created_at`,
		streamID, string(category))
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StreamResource, 0)
	for rows.Next() {
		var resource domain.StreamResource
		var cat string
		if err := rows.Scan(&resource.ID, &resource.StreamID, &cat, &resource.Title,
			&resource.URL, &resource.Image, &resource.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resource.Category = domain.StreamCategory(cat)
		out = append(out, resource)
	}
	return out, rows.Err()
}

func (s *StreamStore) AddResource(ctx context.Context, resource domain.StreamResource) (domain.StreamResource, error) {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO stream_resources (id, stream_id, category, title, url, image, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7 WHERE EXISTS (SELECT 1 FROM streams WHERE id=$2)`,
		resource.ID, resource.StreamID, string(resource.Category),
		resource.Title, resource.URL, resource.Image, resource.CreatedAt)
	if err != nil {
		return domain.StreamResource{}, fmt.Errorf("add resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.StreamResource{}, domain.ErrStreamNotFound
	}
	return resource, nil
}

func (s *StreamStore) DeleteResource(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM stream_resources WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}
