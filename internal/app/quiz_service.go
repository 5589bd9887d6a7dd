package app

import (
	"context"

	"quizbox-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store). Invalidate
// drops any cached copy so catalog writes are visible on the next read.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID int64)
}

// QuizCatalog is the administrable quiz store behind the repository's loader.
type QuizCatalog interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID int64) error
	SetDaily(ctx context.Context, quizID int64, daily bool) error
	SetHome(ctx context.Context, quizID int64, home bool) error
}

// LibraryStore keeps each user's saved-quiz set.
type LibraryStore interface {
	Add(ctx context.Context, userID string, quizID int64) error
	Remove(ctx context.Context, userID string, quizID int64) error
	List(ctx context.Context, userID string) ([]int64, error)
}

// QuizService contains the quiz-facing use cases: starting sessions, browsing
// the catalog, the user library, and leaderboard reads.
type QuizService struct {
	quizzes     QuizRepository
	catalog     QuizCatalog
	library     LibraryStore
	leaderboard LeaderboardStore
	users       UserDirectory
}

func NewQuizService(quizzes QuizRepository, catalog QuizCatalog, library LibraryStore, leaderboard LeaderboardStore, users UserDirectory) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		catalog:     catalog,
		library:     library,
		leaderboard: leaderboard,
		users:       users,
	}
}

// StartSession loads the quiz and begins a fresh session engine for the user.
func (s *QuizService) StartSession(ctx context.Context, quizID int64, userID, displayName string) (*Engine, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	engine := NewEngine(quiz, userID, displayName, s.leaderboard, s.users)
	engine.Start()
	return engine, nil
}

// ListQuizzes returns catalog metadata with question content stripped; answers
// never leave the server outside a session.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	quizzes, err := s.catalog.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	return stripQuestions(quizzes), nil
}

// DailyQuizzes lists the quizzes flagged for the daily tab.
func (s *QuizService) DailyQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.filtered(ctx, func(q domain.Quiz) bool { return q.Daily })
}

// HomeQuizzes lists the quizzes flagged for the home screen.
func (s *QuizService) HomeQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.filtered(ctx, func(q domain.Quiz) bool { return q.Home })
}

func (s *QuizService) filtered(ctx context.Context, keep func(domain.Quiz) bool) ([]domain.Quiz, error) {
	quizzes, err := s.catalog.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if keep(quiz) {
			out = append(out, quiz)
		}
	}
	return stripQuestions(out), nil
}

// Library resolves the user's saved quiz IDs to catalog metadata, silently
// dropping IDs whose quiz has since been deleted.
func (s *QuizService) Library(ctx context.Context, userID string) ([]domain.Quiz, error) {
	ids, err := s.library.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, 0, len(ids))
	for _, id := range ids {
		quiz, err := s.quizzes.GetQuiz(ctx, id)
		if err == domain.ErrQuizNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, quiz)
	}
	return stripQuestions(out), nil
}

// AddToLibrary saves a quiz into the user's library; saving an unknown quiz
// fails so the library never accumulates dead entries up front.
func (s *QuizService) AddToLibrary(ctx context.Context, userID string, quizID int64) error {
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	return s.library.Add(ctx, userID, quizID)
}

// RemoveFromLibrary drops a quiz from the user's library.
func (s *QuizService) RemoveFromLibrary(ctx context.Context, userID string, quizID int64) error {
	return s.library.Remove(ctx, userID, quizID)
}

// SaveQuiz upserts a quiz through the catalog and drops the cached copy so
// the edit is served immediately.
func (s *QuizService) SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	saved, err := s.catalog.SaveQuiz(ctx, quiz)
	if err != nil {
		return domain.Quiz{}, err
	}
	s.quizzes.Invalidate(ctx, saved.ID)
	return saved, nil
}

// DeleteQuiz removes a quiz from the catalog and from the cache.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID int64) error {
	if err := s.catalog.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

// SetDaily flips the daily flag; the cache copy is dropped with it.
func (s *QuizService) SetDaily(ctx context.Context, quizID int64, daily bool) error {
	if err := s.catalog.SetDaily(ctx, quizID, daily); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

// SetHome flips the home flag; the cache copy is dropped with it.
func (s *QuizService) SetHome(ctx context.Context, quizID int64, home bool) error {
	if err := s.catalog.SetHome(ctx, quizID, home); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

// Leaderboard returns the top cumulative scorers.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.leaderboard.Top(ctx, limit)
}

func stripQuestions(quizzes []domain.Quiz) []domain.Quiz {
	out := make([]domain.Quiz, len(quizzes))
	for i, quiz := range quizzes {
		quiz.Questions = nil
		out[i] = quiz
	}
	return out
}
