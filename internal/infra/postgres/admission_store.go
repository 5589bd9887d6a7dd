package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox-service/internal/domain"
)

// AdmissionStore persists submitted admission forms as JSONB documents keyed
// by course, mirroring the per-course collections the admin panel reads.
type AdmissionStore struct {
	pool *pgxpool.Pool
}

func NewAdmissionStore(pool *pgxpool.Pool) *AdmissionStore {
	return &AdmissionStore{pool: pool}
}

func (s *AdmissionStore) Submit(ctx context.Context, admission domain.Admission) (domain.Admission, error) {
	if admission.ID == "" {
		admission.ID = uuid.NewString()
	}
	if admission.SubmittedAt.IsZero() {
		admission.SubmittedAt = time.Now()
	}
	data, err := json.Marshal(admission)
	if err != nil {
		return domain.Admission{}, fmt.Errorf("marshal admission: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO admissions (id, course, data, submitted_at) VALUES ($1, $2, $3::jsonb, $4)`,
		admission.ID, admission.Course, data, admission.SubmittedAt)
	if err != nil {
		return domain.Admission{}, fmt.Errorf("submit admission: %w", err)
	}
	return admission, nil
}

func (s *AdmissionStore) List(ctx context.Context, course string) ([]domain.Admission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM admissions WHERE ($1 = '' OR course = $1) ORDER BY submitted_at`, course)
	if err != nil {
		return nil, fmt.Errorf("list admissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Admission
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan admission: %w", err)
		}
		var admission domain.Admission
		if err := json.Unmarshal(raw, &admission); err != nil {
			return nil, fmt.Errorf("unmarshal admission: %w", err)
		}
		out = append(out, admission)
	}
	return out, rows.Err()
}
