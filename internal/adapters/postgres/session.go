package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// SessionRepo implements ports.SessionRepository.
type SessionRepo struct {
	db DB
}

func NewSessionRepo(db DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionColumns = `id, user_id, agent_id, type, title, active, started_at, ended_at`

func (r *SessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *SessionRepo) Create(ctx context.Context, s *models.Session) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO sessions (id, user_id, agent_id, type, title, active, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.UserID, s.AgentID, s.Type, s.Title, s.Active, s.StartedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Update(ctx context.Context, s *models.Session) error {
	tag, err := r.db.Exec(ctx, `
UPDATE sessions SET user_id=$2, agent_id=$3, type=$4, title=$5, active=$6, started_at=$7, ended_at=$8
WHERE id=$1`,
		s.ID, s.UserID, s.AgentID, s.Type, s.Title, s.Active, s.StartedAt, s.EndedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.AgentID, &s.Type, &s.Title, &s.Active, &s.StartedAt, &s.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}
