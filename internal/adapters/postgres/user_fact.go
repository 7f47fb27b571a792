package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// UserFactRepo implements ports.UserFactRepository.
type UserFactRepo struct {
	db DB
}

func NewUserFactRepo(db DB) *UserFactRepo {
	return &UserFactRepo{db: db}
}

const userFactColumns = `id, user_id, agent_id, fact_key, fact_value, fact_text, vector_id,
	importance, memory_bank, embedding_provider, embedding_model,
	validity_start, validity_end, is_protected, is_summarized, summarized_from,
	last_accessed_at, created_at, updated_at`

func (r *UserFactRepo) Get(ctx context.Context, id string) (*models.UserFact, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userFactColumns+` FROM user_facts WHERE id = $1`, id)
	return scanUserFact(row)
}

func (r *UserFactRepo) GetByVectorID(ctx context.Context, vectorID string) (*models.UserFact, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userFactColumns+` FROM user_facts WHERE vector_id = $1`, vectorID)
	return scanUserFact(row)
}

func (r *UserFactRepo) Insert(ctx context.Context, f *models.UserFact) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO user_facts (id, user_id, agent_id, fact_key, fact_value, fact_text, vector_id,
	importance, memory_bank, embedding_provider, embedding_model,
	validity_start, validity_end, is_protected, is_summarized, summarized_from,
	last_accessed_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		f.ID, f.UserID, f.AgentID, f.FactKey, f.FactValue, f.FactText, f.VectorID,
		f.Importance, f.MemoryBank, f.EmbeddingProvider, f.EmbeddingModel,
		f.ValidityStart, f.ValidityEnd, f.IsProtected, f.IsSummarized, f.SummarizedFrom,
		f.LastAccessedAt, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user fact: %w", err)
	}
	return nil
}

func (r *UserFactRepo) Update(ctx context.Context, f *models.UserFact) error {
	tag, err := r.db.Exec(ctx, `
UPDATE user_facts SET
	user_id=$2, agent_id=$3, fact_key=$4, fact_value=$5, fact_text=$6, vector_id=$7,
	importance=$8, memory_bank=$9, embedding_provider=$10, embedding_model=$11,
	validity_start=$12, validity_end=$13, is_protected=$14, is_summarized=$15, summarized_from=$16,
	last_accessed_at=$17, updated_at=$18
WHERE id=$1`,
		f.ID, f.UserID, f.AgentID, f.FactKey, f.FactValue, f.FactText, f.VectorID,
		f.Importance, f.MemoryBank, f.EmbeddingProvider, f.EmbeddingModel,
		f.ValidityStart, f.ValidityEnd, f.IsProtected, f.IsSummarized, f.SummarizedFrom,
		f.LastAccessedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user fact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserFactNotFound
	}
	return nil
}

func (r *UserFactRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_facts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user fact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserFactNotFound
	}
	return nil
}

func (r *UserFactRepo) CountForUser(ctx context.Context, userID string, agentID *string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM user_facts WHERE user_id = $1 AND agent_id IS NOT DISTINCT FROM $2`,
		userID, agentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user facts: %w", err)
	}
	return count, nil
}

// OldestUnprotected returns the oldest, least-recently-accessed non-
// protected facts in scope: ORDER BY last_accessed_at (nulls first, as
// never-accessed facts are the best pruning candidates), then created_at.
func (r *UserFactRepo) OldestUnprotected(ctx context.Context, userID string, agentID *string, limit int) ([]models.UserFact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userFactColumns+` FROM user_facts
WHERE user_id = $1 AND agent_id IS NOT DISTINCT FROM $2 AND is_protected = false
ORDER BY last_accessed_at ASC NULLS FIRST, created_at ASC
LIMIT $3`, userID, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query oldest unprotected facts: %w", err)
	}
	defer rows.Close()
	return collectUserFacts(rows)
}

func (r *UserFactRepo) ListValid(ctx context.Context, userID string, agentID *string) ([]models.UserFact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userFactColumns+` FROM user_facts
WHERE user_id = $1 AND agent_id IS NOT DISTINCT FROM $2 AND validity_end IS NULL`, userID, agentID)
	if err != nil {
		return nil, fmt.Errorf("query valid facts: %w", err)
	}
	defer rows.Close()
	return collectUserFacts(rows)
}

func (r *UserFactRepo) ListStaleUnsummarized(ctx context.Context, cutoff time.Time) ([]models.UserFact, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userFactColumns+` FROM user_facts
WHERE validity_end IS NULL AND is_protected = false AND is_summarized = false AND created_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale unsummarized facts: %w", err)
	}
	defer rows.Close()
	return collectUserFacts(rows)
}

func scanUserFact(row pgx.Row) (*models.UserFact, error) {
	var f models.UserFact
	err := row.Scan(
		&f.ID, &f.UserID, &f.AgentID, &f.FactKey, &f.FactValue, &f.FactText, &f.VectorID,
		&f.Importance, &f.MemoryBank, &f.EmbeddingProvider, &f.EmbeddingModel,
		&f.ValidityStart, &f.ValidityEnd, &f.IsProtected, &f.IsSummarized, &f.SummarizedFrom,
		&f.LastAccessedAt, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserFactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user fact: %w", err)
	}
	return &f, nil
}

func collectUserFacts(rows pgx.Rows) ([]models.UserFact, error) {
	var out []models.UserFact
	for rows.Next() {
		f, err := scanUserFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user facts: %w", err)
	}
	return out, nil
}
