// Package plugin implements the plugin manager and resource monitor (C10):
// per-agent lifecycle for auxiliary channel adapters (chat platforms), with
// CPU/memory sampling and limit enforcement.
//
// Grounded on _examples/original_source/src/services/plugin_manager.py for
// the lifecycle/dispatch algorithm and
// _examples/original_source/src/services/plugin_resource_monitor.py for
// sampling, expressed in the teacher's service-struct-with-mutex-protected-
// map idiom (voice/session.go's SessionManager.sessions).
package plugin

import (
	"context"
	"sync"

	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// Plugin is the base contract every plugin type implements, mirroring the
// original's PluginBase: validate_config, initialize, start, stop, and the
// two dispatch hooks.
type Plugin interface {
	// ValidateConfig normalizes and checks cfg, returning the config that
	// will be passed to Initialize. It must not mutate cfg.
	ValidateConfig(cfg map[string]any) (map[string]any, error)
	Initialize(ctx context.Context, agent *models.Agent, cfg map[string]any) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	OnMessage(ctx context.Context, sessionID, text string, meta map[string]any) error
	OnResponse(ctx context.Context, sessionID, text string, meta map[string]any) error
}

// Factory builds a fresh, uninitialized Plugin instance for one plugin type.
type Factory func() Plugin

// Registry maps a plugin_type string to the factory that builds it, the Go
// equivalent of the original's class-level PluginRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(pluginType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[pluginType] = factory
}

func (r *Registry) New(pluginType string) (Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[pluginType]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPluginNotRegistered
	}
	return factory(), nil
}

// DefaultRegistry registers the built-in channel-adapter plugin types. Every
// type shares the webhookPlugin implementation: the pack carries no chat-
// platform SDK (discord/slack/telegram client libraries), so each type
// validates a required subset of the fields the credential vault treats as
// sensitive for it (internal/adapters/vault's SENSITIVE_FIELDS registry; the
// vault also lists slack's app_token and api's api_secret/oauth_token, which
// are not required here) and, where the
// config names an HTTP endpoint (n8n's webhook_url), dispatches over it for
// real; types with no URL-shaped field (bot tokens for a platform API this
// module doesn't speak) only validate and log, which is a deliberate scope
// line, not an oversight - see DESIGN.md's C10 entry.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("n8n", func() Plugin { return newWebhookPlugin("n8n", []string{"webhook_url"}) })
	r.Register("discord", func() Plugin { return newWebhookPlugin("discord", []string{"bot_token"}) })
	r.Register("slack", func() Plugin { return newWebhookPlugin("slack", []string{"bot_token", "signing_secret"}) })
	r.Register("telegram", func() Plugin { return newWebhookPlugin("telegram", []string{"bot_token"}) })
	r.Register("whatsapp", func() Plugin { return newWebhookPlugin("whatsapp", []string{"api_key", "phone_number"}) })
	r.Register("api", func() Plugin { return newWebhookPlugin("api", []string{"api_key"}) })
	return r
}
