package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/johnbuck/voxbridge/internal/domain"
)

func TestLLMProviderRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "name", "base_url", "api_key", "provider_type", "models", "default_model", "is_active"}).
		AddRow("prov-1", "OpenAI", "https://api.openai.com/v1", "__encrypted__:abc", "openai",
			[]string{"gpt-4o", "gpt-4o-mini"}, "gpt-4o", true)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + llmProviderColumns + " FROM llm_providers WHERE id = $1")).
		WithArgs("prov-1").
		WillReturnRows(rows)

	repo := NewLLMProviderRepo(mock)
	p, err := repo.Get(context.Background(), "prov-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q, want gpt-4o", p.DefaultModel)
	}
}

func TestLLMProviderRepo_Get_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + llmProviderColumns + " FROM llm_providers WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "base_url", "api_key", "provider_type", "models", "default_model", "is_active"}))

	repo := NewLLMProviderRepo(mock)
	_, err = repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrLLMProviderNotFound) {
		t.Errorf("err = %v, want ErrLLMProviderNotFound", err)
	}
}
