package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// webhookPlugin is the one concrete Plugin implementation behind every
// built-in plugin type. It validates that its requiredFields are present and
// non-empty, and if the validated config carries a "webhook_url" field (the
// only plugin type that does, per the vault's registry, is n8n) it dispatches
// messages there as a JSON POST - the Go equivalent of the original's
// N8NWebhookPlugin. Other types have no outbound URL this module can speak
// to (a Discord bot token isn't itself callable over HTTP), so OnMessage/
// OnResponse just logs for them; that's the scope line recorded in
// DESIGN.md's C10 entry, not a bug.
type webhookPlugin struct {
	pluginType     string
	requiredFields []string

	httpClient *http.Client

	mu      sync.Mutex
	agentID string
	cfg     map[string]any
	running bool
}

func newWebhookPlugin(pluginType string, requiredFields []string) *webhookPlugin {
	return &webhookPlugin{
		pluginType:     pluginType,
		requiredFields: requiredFields,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *webhookPlugin) ValidateConfig(cfg map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	for _, field := range p.requiredFields {
		v, ok := out[field]
		if !ok {
			return nil, fmt.Errorf("plugin %s: missing required field %q", p.pluginType, field)
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("plugin %s: field %q must be a non-empty string", p.pluginType, field)
		}
	}
	return out, nil
}

func (p *webhookPlugin) Initialize(ctx context.Context, agent *models.Agent, cfg map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.agentID = agent.ID
	p.cfg = cfg
	return nil
}

func (p *webhookPlugin) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
	slog.Info("plugin started", "plugin_type", p.pluginType, "agent_id", p.agentID)
	return nil
}

func (p *webhookPlugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	slog.Info("plugin stopped", "plugin_type", p.pluginType, "agent_id", p.agentID)
	return nil
}

func (p *webhookPlugin) OnMessage(ctx context.Context, sessionID, text string, meta map[string]any) error {
	return p.dispatch(ctx, "message", sessionID, text, meta)
}

func (p *webhookPlugin) OnResponse(ctx context.Context, sessionID, text string, meta map[string]any) error {
	return p.dispatch(ctx, "response", sessionID, text, meta)
}

func (p *webhookPlugin) dispatch(ctx context.Context, direction, sessionID, text string, meta map[string]any) error {
	p.mu.Lock()
	url, _ := p.cfg["webhook_url"].(string)
	p.mu.Unlock()

	if url == "" {
		slog.Debug("plugin dispatch has no outbound endpoint, logging only",
			"plugin_type", p.pluginType, "session_id", sessionID, "direction", direction)
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"plugin_type": p.pluginType,
		"session_id":  sessionID,
		"direction":   direction,
		"text":        text,
		"meta":        meta,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
