package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"quizbox-service/internal/domain"
)

const (
	scoresKey = "leaderboard:scores"
	namesKey  = "leaderboard:names"
)

// Leaderboard keeps cumulative scores in a sorted set plus a display-name
// hash. ZINCRBY is atomic per key on the server, so concurrent sessions for
// the same user never lose an update; HSETNX keeps the first registered name.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) MergeScore(ctx context.Context, userID string, delta int, displayNameIfNew string) error {
	pipe := l.client.TxPipeline()
	pipe.HSetNX(ctx, namesKey, userID, displayNameIfNew)
	pipe.ZIncrBy(ctx, scoresKey, float64(delta), userID)
	_, err := pipe.Exec(ctx)
	return err
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	scored, err := l.client.ZRevRangeWithScores(ctx, scoresKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	ids := make([]string, len(scored))
	for i, member := range scored {
		ids[i] = member.Member.(string)
	}
	names, err := l.client.HMGet(ctx, namesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, len(scored))
	for i, member := range scored {
		name := ""
		if i < len(names) {
			if s, ok := names[i].(string); ok {
				name = s
			}
		}
		entries[i] = domain.LeaderboardEntry{
			UserID:      ids[i],
			DisplayName: name,
			TotalScore:  int(member.Score),
		}
	}
	return entries, nil
}
