package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizbox-service/internal/domain"
)

// ChatStore persists doubts-board messages.
type ChatStore struct {
	pool *pgxpool.Pool
}

func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func (s *ChatStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	var replyTo []byte
	if msg.ReplyTo != nil {
		data, err := json.Marshal(msg.ReplyTo)
		if err != nil {
			return fmt.Errorf("marshal reply context: %w", err)
		}
		replyTo = data
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO doubts_messages (id, user_id, name, role, text, reply_to, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.UserID, msg.Name, msg.Role, msg.Text, replyTo, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *ChatStore) Get(ctx context.Context, id string) (domain.ChatMessage, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, role, text, reply_to, ts FROM doubts_messages WHERE id=$1`, id)
	msg, err := scanMessage(row)
	if err == pgx.ErrNoRows {
		return domain.ChatMessage{}, domain.ErrMessageNotFound
	}
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// List returns the latest messages in ascending timestamp order.
func (s *ChatStore) List(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, role, text, reply_to, ts FROM (
		   SELECT * FROM doubts_messages ORDER BY ts DESC LIMIT $1
		 ) latest ORDER BY ts`, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *ChatStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM doubts_messages WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func scanMessage(row pgx.Row) (domain.ChatMessage, error) {
	var msg domain.ChatMessage
	var replyTo []byte
	if err := row.Scan(&msg.ID, &msg.UserID, &msg.Name, &msg.Role, &msg.Text, &replyTo, &msg.Timestamp); err != nil {
		return domain.ChatMessage{}, err
	}
	if len(replyTo) > 0 {
		var ctxMsg domain.ReplyContext
		if err := json.Unmarshal(replyTo, &ctxMsg); err == nil {
			msg.ReplyTo = &ctxMsg
		}
	}
	return msg, nil
}
