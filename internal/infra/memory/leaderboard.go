package memory

import (
	"context"
	"sort"
	"sync"

	"quizbox-service/internal/domain"
)

// Leaderboard is an in-memory implementation of app.LeaderboardStore. The
// mutex makes MergeScore a true read-modify-write, matching the atomicity the
// backed stores provide per key.
type Leaderboard struct {
	mu      sync.Mutex
	entries map[string]*domain.LeaderboardEntry
}

func NewLeaderboard() *Leaderboard {
	return &Leaderboard{entries: make(map[string]*domain.LeaderboardEntry)}
}

func (l *Leaderboard) MergeScore(_ context.Context, userID string, delta int, displayNameIfNew string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.entries[userID]; ok {
		entry.TotalScore += delta
		return nil
	}
	l.entries[userID] = &domain.LeaderboardEntry{
		UserID:      userID,
		DisplayName: displayNameIfNew,
		TotalScore:  delta,
	}
	return nil
}

func (l *Leaderboard) Top(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.LeaderboardEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
