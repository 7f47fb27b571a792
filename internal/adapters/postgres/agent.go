package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// AgentRepo implements ports.AgentRepository.
type AgentRepo struct {
	db DB
}

func NewAgentRepo(db DB) *AgentRepo {
	return &AgentRepo{db: db}
}

const agentColumns = `id, name, llm_provider_kind, llm_model, llm_temperature, llm_provider_ref,
	tts_voice, tts_exaggeration, tts_cfg_weight, tts_temperature, tts_language,
	system_prompt, memory_scope, plugins, is_default, created_at, updated_at`

func (r *AgentRepo) Get(ctx context.Context, id string) (*models.Agent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

func (r *AgentRepo) GetDefault(ctx context.Context) (*models.Agent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE is_default = true LIMIT 1`)
	return scanAgent(row)
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var a models.Agent
	var pluginsRaw []byte
	err := row.Scan(
		&a.ID, &a.Name, &a.LLM.ProviderKind, &a.LLM.Model, &a.LLM.Temperature, &a.LLM.ProviderRef,
		&a.TTS.Voice, &a.TTS.Exaggeration, &a.TTS.CFGWeight, &a.TTS.Temperature, &a.TTS.Language,
		&a.SystemPrompt, &a.MemoryScope, &pluginsRaw, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent: %w", err)
	}

	a.Plugins = make(map[string]map[string]any)
	if len(pluginsRaw) > 0 {
		if err := json.Unmarshal(pluginsRaw, &a.Plugins); err != nil {
			return nil, fmt.Errorf("unmarshal agent plugins: %w", err)
		}
	}
	return &a, nil
}
