package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox-service/internal/domain"
)

// QuizStore keeps quizzes as JSONB documents, one row per quiz. It serves both
// as the cache loader and as the admin-facing catalog.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = quizID
	return quiz, nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.Quiz
	for rows.Next() {
		var id int64
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz %d: %w", id, err)
		}
		quiz.ID = id
		out = append(out, quiz)
	}
	return out, rows.Err()
}

// SaveQuiz upserts a quiz document; a zero ID gets the next free one, matching
// the admin panel's numbering.
func (s *QuizStore) SaveQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if quiz.ID == 0 {
		if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM quizzes`).Scan(&quiz.ID); err != nil {
			return domain.Quiz{}, fmt.Errorf("next quiz id: %w", err)
		}
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2::jsonb)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		quiz.ID, data)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) SetDaily(ctx context.Context, quizID int64, daily bool) error {
	return s.setFlag(ctx, quizID, "daily", daily)
}

func (s *QuizStore) SetHome(ctx context.Context, quizID int64, home bool) error {
	return s.setFlag(ctx, quizID, "home", home)
}

func (s *QuizStore) setFlag(ctx context.Context, quizID int64, field string, value bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET data = jsonb_set(data, ARRAY[$2::text], to_jsonb($3::boolean)) WHERE id=$1`,
		quizID, field, value)
	if err != nil {
		return fmt.Errorf("set quiz flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
