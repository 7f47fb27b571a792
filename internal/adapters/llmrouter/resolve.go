package llmrouter

import (
	"context"
	"fmt"
	"strings"

	"github.com/johnbuck/voxbridge/internal/adapters/vault"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// resolvedProvider is the concrete {base_url, api_key, model} shape the
// router needs to build a client call, regardless of whether it came from a
// stored LLMProvider row or the process-wide env default.
type resolvedProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

// resolve implements spec §4.5's provider resolution: if the agent names a
// provider_ref, load that LLMProvider row and decrypt its API key via the
// vault; otherwise fall back to the env-configured default provider.
func (r *Router) resolve(ctx context.Context, agent *models.Agent) (resolvedProvider, error) {
	model := agent.LLM.Model
	if agent.LLM.ProviderRef == "" {
		return resolvedProvider{
			Name:    "default",
			BaseURL: r.defaultBaseURL,
			APIKey:  r.defaultAPIKey,
			Model:   orDefault(model, r.defaultModel),
		}, nil
	}

	provider, err := r.providers.Get(ctx, agent.LLM.ProviderRef)
	if err != nil {
		return resolvedProvider{}, fmt.Errorf("load llm provider %s: %w", agent.LLM.ProviderRef, err)
	}
	apiKey, err := r.vault.DecryptValue(strings.TrimPrefix(provider.APIKey, vault.EncryptedMarker))
	if err != nil {
		return resolvedProvider{}, fmt.Errorf("decrypt llm provider %s api key: %w", provider.ID, err)
	}
	return resolvedProvider{
		Name:    provider.Name,
		BaseURL: provider.BaseURL,
		APIKey:  apiKey,
		Model:   orDefault(model, provider.DefaultModel),
	}, nil
}

// resolveFallback builds the process-wide fallback provider, used once when
// the primary resolution's call fails with a recoverable error class. It
// always targets the default endpoint with the configured fallback model:
// this system has no second LLMProvider row dedicated to fallback, so the
// fallback is "same endpoint, smaller/cheaper model" rather than a distinct
// provider_type — a narrower reading of "fallback provider" than spec.md's
// prose implies, recorded as an Open Question decision in DESIGN.md.
func (r *Router) resolveFallback() (resolvedProvider, bool) {
	if r.fallbackModel == "" {
		return resolvedProvider{}, false
	}
	return resolvedProvider{
		Name:    "fallback",
		BaseURL: r.defaultBaseURL,
		APIKey:  r.defaultAPIKey,
		Model:   r.fallbackModel,
	}, true
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
