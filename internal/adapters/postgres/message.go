package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// MessageRepo implements ports.MessageRepository.
type MessageRepo struct {
	db DB
}

func NewMessageRepo(db DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, session_id, role, content, timestamp, llm_latency_ms, tts_latency_ms`

// Insert enforces the 10-second duplicate-suppression window at the SQL
// level: if an identical (session_id, role, content) row already exists
// within the last 10 seconds, that row is returned unchanged instead of
// inserting a new one.
func (r *MessageRepo) Insert(ctx context.Context, m *models.Message) (*models.Message, error) {
	row := r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages
WHERE session_id = $1 AND role = $2 AND content = $3 AND timestamp >= now() - interval '10 seconds'
ORDER BY timestamp DESC LIMIT 1`, m.SessionID, m.Role, m.Content)
	existing, err := scanMessage(row)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check duplicate message: %w", err)
	}

	_, err = r.db.Exec(ctx, `
INSERT INTO messages (id, session_id, role, content, timestamp, llm_latency_ms, tts_latency_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SessionID, m.Role, m.Content, m.Timestamp, m.LLMLatencyMs, m.TTSLatencyMs)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) RecentBySession(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, `SELECT `+messageColumns+` FROM messages
WHERE session_id = $1 ORDER BY timestamp DESC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}
	return out, nil
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	if err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Timestamp, &m.LLMLatencyMs, &m.TTSLatencyMs); err != nil {
		return nil, err
	}
	return &m, nil
}
