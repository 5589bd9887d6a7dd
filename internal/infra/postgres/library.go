package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// LibraryStore persists each user's saved-quiz set.
type LibraryStore struct {
	pool *pgxpool.Pool
}

func NewLibraryStore(pool *pgxpool.Pool) *LibraryStore {
	return &LibraryStore{pool: pool}
}

func (s *LibraryStore) Add(ctx context.Context, userID string, quizID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_library (user_id, quiz_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, quiz_id) DO NOTHING`,
		userID, quizID)
	if err != nil {
		return fmt.Errorf("library add: %w", err)
	}
	return nil
}

func (s *LibraryStore) Remove(ctx context.Context, userID string, quizID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_library WHERE user_id=$1 AND quiz_id=$2`, userID, quizID)
	if err != nil {
		return fmt.Errorf("library remove: %w", err)
	}
	return nil
}

func (s *LibraryStore) List(ctx context.Context, userID string) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT quiz_id FROM user_library WHERE user_id=$1 ORDER BY added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("library list: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan library entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
