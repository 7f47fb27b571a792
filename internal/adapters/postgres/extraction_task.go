package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// ExtractionTaskRepo implements ports.ExtractionTaskRepository.
type ExtractionTaskRepo struct {
	db DB
}

func NewExtractionTaskRepo(db DB) *ExtractionTaskRepo {
	return &ExtractionTaskRepo{db: db}
}

const extractionTaskColumns = `id, user_id, agent_id, user_message, ai_response, status, attempts, error, created_at, completed_at`

func (r *ExtractionTaskRepo) Get(ctx context.Context, id string) (*models.ExtractionTask, error) {
	row := r.db.QueryRow(ctx, `SELECT `+extractionTaskColumns+` FROM extraction_tasks WHERE id = $1`, id)
	return scanExtractionTask(row)
}

func (r *ExtractionTaskRepo) Insert(ctx context.Context, t *models.ExtractionTask) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO extraction_tasks (id, user_id, agent_id, user_message, ai_response, status, attempts, error, created_at, completed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.UserID, t.AgentID, t.UserMessage, t.AIResponse, t.Status, t.Attempts, t.Error, t.CreatedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert extraction task: %w", err)
	}
	return nil
}

func (r *ExtractionTaskRepo) Update(ctx context.Context, t *models.ExtractionTask) error {
	tag, err := r.db.Exec(ctx, `
UPDATE extraction_tasks SET user_id=$2, agent_id=$3, user_message=$4, ai_response=$5,
	status=$6, attempts=$7, error=$8, completed_at=$9
WHERE id=$1`,
		t.ID, t.UserID, t.AgentID, t.UserMessage, t.AIResponse, t.Status, t.Attempts, t.Error, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("update extraction task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExtractionTaskNotFound
	}
	return nil
}

// ClaimPending atomically marks up to limit pending tasks processing and
// returns them, so two worker instances never race on the same task: the
// inner SELECT ... FOR UPDATE SKIP LOCKED holds row locks only for rows it
// actually claims, letting a concurrent claimer skip past them instead of
// blocking.
func (r *ExtractionTaskRepo) ClaimPending(ctx context.Context, limit int) ([]models.ExtractionTask, error) {
	rows, err := r.db.Query(ctx, `
UPDATE extraction_tasks SET status = 'processing'
WHERE id IN (
	SELECT id FROM extraction_tasks
	WHERE status = 'pending'
	ORDER BY created_at ASC
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING `+extractionTaskColumns, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending extraction tasks: %w", err)
	}
	defer rows.Close()

	var out []models.ExtractionTask
	for rows.Next() {
		t, err := scanExtractionTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed extraction tasks: %w", err)
	}
	return out, nil
}

func scanExtractionTask(row pgx.Row) (*models.ExtractionTask, error) {
	var t models.ExtractionTask
	err := row.Scan(&t.ID, &t.UserID, &t.AgentID, &t.UserMessage, &t.AIResponse,
		&t.Status, &t.Attempts, &t.Error, &t.CreatedAt, &t.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrExtractionTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan extraction task: %w", err)
	}
	return &t, nil
}
