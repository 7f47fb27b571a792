package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// LLMProviderRepo implements ports.LLMProviderRepository.
type LLMProviderRepo struct {
	db DB
}

func NewLLMProviderRepo(db DB) *LLMProviderRepo {
	return &LLMProviderRepo{db: db}
}

const llmProviderColumns = `id, name, base_url, api_key, provider_type, models, default_model, is_active`

func (r *LLMProviderRepo) Get(ctx context.Context, id string) (*models.LLMProvider, error) {
	row := r.db.QueryRow(ctx, `SELECT `+llmProviderColumns+` FROM llm_providers WHERE id = $1`, id)
	var p models.LLMProvider
	err := row.Scan(&p.ID, &p.Name, &p.BaseURL, &p.APIKey, &p.ProviderType, &p.Models, &p.DefaultModel, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLLMProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan llm provider: %w", err)
	}
	return &p, nil
}
