package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/johnbuck/voxbridge/internal/domain"
)

func TestAgentRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "name", "llm_provider_kind", "llm_model", "llm_temperature", "llm_provider_ref",
		"tts_voice", "tts_exaggeration", "tts_cfg_weight", "tts_temperature", "tts_language",
		"system_prompt", "memory_scope", "plugins", "is_default", "created_at", "updated_at",
	}).AddRow(
		"agent-1", "Alicia", "openai", "gpt-4o", 0.7, "",
		"alloy", 0.5, 0.5, 0.8, "en",
		"be helpful", "global", []byte(`{"discord":{"bot_token":"x"}}`), true, now, now,
	)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentColumns + " FROM agents WHERE id = $1")).
		WithArgs("agent-1").
		WillReturnRows(rows)

	repo := NewAgentRepo(mock)
	a, err := repo.Get(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Name != "Alicia" {
		t.Errorf("Name = %q, want Alicia", a.Name)
	}
	if _, ok := a.Plugins["discord"]; !ok {
		t.Errorf("expected discord plugin config to be unmarshaled, got %+v", a.Plugins)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAgentRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + agentColumns + " FROM agents WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "llm_provider_kind", "llm_model", "llm_temperature", "llm_provider_ref",
			"tts_voice", "tts_exaggeration", "tts_cfg_weight", "tts_temperature", "tts_language",
			"system_prompt", "memory_scope", "plugins", "is_default", "created_at", "updated_at",
		}))

	repo := NewAgentRepo(mock)
	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrAgentNotFound) {
		t.Errorf("err = %v, want ErrAgentNotFound", err)
	}
}

func TestAgentRepo_GetDefault(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "name", "llm_provider_kind", "llm_model", "llm_temperature", "llm_provider_ref",
		"tts_voice", "tts_exaggeration", "tts_cfg_weight", "tts_temperature", "tts_language",
		"system_prompt", "memory_scope", "plugins", "is_default", "created_at", "updated_at",
	}).AddRow(
		"agent-default", "Default", "openai", "gpt-4o", 0.7, "",
		"alloy", 0, 0, 0, "en", "", "global", []byte(`{}`), true, now, now,
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+agentColumns+" FROM agents WHERE is_default = true LIMIT 1")).
		WillReturnRows(rows)

	repo := NewAgentRepo(mock)
	a, err := repo.GetDefault(context.Background())
	if err != nil {
		t.Fatalf("GetDefault: %v", err)
	}
	if a.ID != "agent-default" {
		t.Errorf("ID = %q, want agent-default", a.ID)
	}
}
