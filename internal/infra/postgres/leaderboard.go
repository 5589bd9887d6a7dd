package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox-service/internal/domain"
)

// Leaderboard persists cumulative scores, one row per user. The merge is a
// single upsert so the read-modify-write happens inside the database; two
// sessions finishing at once for the same user both land their deltas.
type Leaderboard struct {
	pool *pgxpool.Pool
}

func NewLeaderboard(pool *pgxpool.Pool) *Leaderboard {
	return &Leaderboard{pool: pool}
}

func (l *Leaderboard) MergeScore(ctx context.Context, userID string, delta int, displayNameIfNew string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO leaderboard (user_id, display_name, total_score)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET total_score = leaderboard.total_score + EXCLUDED.total_score`,
		userID, displayNameIfNew, delta)
	if err != nil {
		return fmt.Errorf("merge leaderboard entry: %w", err)
	}
	return nil
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT user_id, display_name, total_score FROM leaderboard
		 ORDER BY total_score DESC, display_name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.DisplayName, &entry.TotalScore); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
