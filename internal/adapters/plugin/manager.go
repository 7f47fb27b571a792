package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/johnbuck/voxbridge/internal/adapters/vault"
	"github.com/johnbuck/voxbridge/internal/domain"
	"github.com/johnbuck/voxbridge/internal/domain/models"
)

// dispatchTimeout is the overall fan-out deadline for DispatchMessage and
// DispatchResponse, matching the original's asyncio.wait(tasks, timeout=5.0).
const dispatchTimeout = 5 * time.Second

// agentPlugins is the running state for one agent: active plugin instances
// and their PluginInstance metadata, keyed by plugin_type.
type agentPlugins struct {
	active    map[string]Plugin
	instances map[string]*models.PluginInstance
}

// Manager is the Go port of the original's PluginManager: per-agent
// lifecycle for auxiliary channel-adapter plugins, guarded by a single
// RWMutex over a map[string]*agentPlugins the same shape as
// voice/session.go's SessionManager.sessions.
type Manager struct {
	vault    *vault.Vault
	registry *Registry

	mu          sync.RWMutex
	byAgent     map[string]*agentPlugins
	errorCounts map[string]int // plugin_type -> cumulative failure count
}

func NewManager(v *vault.Vault, registry *Registry) *Manager {
	return &Manager{
		vault:       v,
		registry:    registry,
		byAgent:     make(map[string]*agentPlugins),
		errorCounts: make(map[string]int),
	}
}

// InitializeAgentPlugins mirrors initialize_agent_plugins: iterate
// agent.Plugins, decrypt each config via the vault, skip disabled entries,
// and for every other entry validate/initialize/start it. A single plugin
// failing any stage is recorded and does not abort the others.
func (m *Manager) InitializeAgentPlugins(ctx context.Context, agent *models.Agent) []models.PluginInstance {
	results := make([]models.PluginInstance, 0, len(agent.Plugins))

	for pluginType, rawCfg := range agent.Plugins {
		inst := m.initOne(ctx, agent, pluginType, rawCfg)
		if inst != nil {
			results = append(results, *inst)
		}
	}
	return results
}

// initOne runs the single-plugin init pipeline and is also used by
// RestartPlugin. It returns nil only when the entry is disabled (the
// original silently skips those rather than recording a failed instance).
func (m *Manager) initOne(ctx context.Context, agent *models.Agent, pluginType string, rawCfg map[string]any) *models.PluginInstance {
	if enabled, ok := rawCfg["enabled"].(bool); ok && !enabled {
		slog.Debug("plugin disabled, skipping", "agent_id", agent.ID, "plugin_type", pluginType)
		return nil
	}

	fail := func(stage string, err error) *models.PluginInstance {
		slog.Warn("plugin init failed", "agent_id", agent.ID, "plugin_type", pluginType, "stage", stage, "error", err)
		m.mu.Lock()
		m.errorCounts[pluginType]++
		m.mu.Unlock()
		inst := models.NewPluginInstance(agent.ID, pluginType, nil)
		inst.Lifecycle = models.PluginStopped
		inst.ErrorCount = 1
		inst.LastError = fmt.Sprintf("%s: %v", stage, err)
		return inst
	}

	decrypted, err := m.vault.DecryptFields(pluginType, rawCfg)
	if err != nil {
		return fail("decrypt_config", err)
	}

	p, err := m.registry.New(pluginType)
	if err != nil {
		return fail("lookup_plugin", err)
	}

	validated, err := p.ValidateConfig(decrypted)
	if err != nil {
		return fail("validate_config", err)
	}
	if err := p.Initialize(ctx, agent, validated); err != nil {
		return fail("initialize", err)
	}
	if err := p.Start(ctx); err != nil {
		return fail("start", err)
	}

	inst := models.NewPluginInstance(agent.ID, pluginType, validated)
	inst.Lifecycle = models.PluginRunning

	m.mu.Lock()
	ap, ok := m.byAgent[agent.ID]
	if !ok {
		ap = &agentPlugins{active: make(map[string]Plugin), instances: make(map[string]*models.PluginInstance)}
		m.byAgent[agent.ID] = ap
	}
	ap.active[pluginType] = p
	ap.instances[pluginType] = inst
	m.mu.Unlock()

	return inst
}

// StopAgentPlugins stops and unregisters every active plugin for agentID.
func (m *Manager) StopAgentPlugins(agentID string) {
	m.mu.Lock()
	ap, ok := m.byAgent[agentID]
	if ok {
		delete(m.byAgent, agentID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	for pluginType, p := range ap.active {
		if err := p.Stop(context.Background()); err != nil {
			slog.Warn("plugin stop failed", "agent_id", agentID, "plugin_type", pluginType, "error", err)
		}
	}
}

// RestartPlugin stops one agent's plugin (if running) and re-runs the init
// pipeline against the agent's current config for that type.
func (m *Manager) RestartPlugin(ctx context.Context, agent *models.Agent, pluginType string) (*models.PluginInstance, error) {
	m.mu.Lock()
	if ap, ok := m.byAgent[agent.ID]; ok {
		if p, ok := ap.active[pluginType]; ok {
			delete(ap.active, pluginType)
			delete(ap.instances, pluginType)
			m.mu.Unlock()
			_ = p.Stop(ctx)
			m.mu.Lock()
		}
	}
	m.mu.Unlock()

	rawCfg, ok := agent.Plugins[pluginType]
	if !ok {
		return nil, fmt.Errorf("restart plugin %s: %w", pluginType, domain.ErrPluginNotRegistered)
	}
	inst := m.initOne(ctx, agent, pluginType, rawCfg)
	if inst == nil {
		return nil, fmt.Errorf("restart plugin %s: %w", pluginType, domain.ErrPluginDisabled)
	}
	return inst, nil
}

// Dispatch sends payload to one agent's single active plugin of pluginType,
// used for targeted dispatch from outside the turn pipeline (e.g. an admin
// "test this plugin" action). text/meta come from payload, which must be a
// MessagePayload or ResponsePayload.
func (m *Manager) Dispatch(ctx context.Context, agentID, pluginType string, payload any, timeout time.Duration) (any, error) {
	m.mu.RLock()
	ap, ok := m.byAgent[agentID]
	var p Plugin
	if ok {
		p, ok = ap.active[pluginType]
	}
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPluginNotFound
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch v := payload.(type) {
	case MessagePayload:
		return nil, p.OnMessage(dctx, v.SessionID, v.Text, v.Meta)
	case ResponsePayload:
		return nil, p.OnResponse(dctx, v.SessionID, v.Text, v.Meta)
	default:
		return nil, fmt.Errorf("dispatch: unsupported payload type %T", payload)
	}
}

// MessagePayload/ResponsePayload select which Plugin hook Dispatch invokes.
type MessagePayload struct {
	SessionID string
	Text      string
	Meta      map[string]any
}

type ResponsePayload struct {
	SessionID string
	Text      string
	Meta      map[string]any
}

// DispatchMessage fans a user utterance out to every active plugin for
// agentID, mirroring dispatch_message: each plugin gets its own goroutine,
// the whole fan-out is capped at dispatchTimeout, and a single plugin's
// failure is logged and counted rather than propagated.
func (m *Manager) DispatchMessage(ctx context.Context, agentID, sessionID, text string, meta map[string]any) {
	m.fanOut(ctx, agentID, func(p Plugin, dctx context.Context) error {
		return p.OnMessage(dctx, sessionID, text, meta)
	})
}

// DispatchResponse is DispatchMessage's counterpart for the AI's reply.
func (m *Manager) DispatchResponse(ctx context.Context, agentID, sessionID, text string, meta map[string]any) {
	m.fanOut(ctx, agentID, func(p Plugin, dctx context.Context) error {
		return p.OnResponse(dctx, sessionID, text, meta)
	})
}

func (m *Manager) fanOut(ctx context.Context, agentID string, call func(Plugin, context.Context) error) {
	m.mu.RLock()
	ap, ok := m.byAgent[agentID]
	var targets map[string]Plugin
	if ok {
		targets = make(map[string]Plugin, len(ap.active))
		for t, p := range ap.active {
			targets[t] = p
		}
	}
	m.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	dctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for pluginType, p := range targets {
		wg.Add(1)
		go func(pluginType string, p Plugin) {
			defer wg.Done()
			m.safeDispatch(dctx, agentID, pluginType, p, call)
		}(pluginType, p)
	}
	wg.Wait()
}

// safeDispatch recovers a panicking plugin the same way the original's
// _safe_dispatch_* wrappers catch exceptions per-plugin.
func (m *Manager) safeDispatch(ctx context.Context, agentID, pluginType string, p Plugin, call func(Plugin, context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("plugin dispatch panicked", "agent_id", agentID, "plugin_type", pluginType, "panic", r)
			m.mu.Lock()
			m.errorCounts[pluginType]++
			m.mu.Unlock()
		}
	}()
	if err := call(p, ctx); err != nil {
		slog.Warn("plugin dispatch failed", "agent_id", agentID, "plugin_type", pluginType, "error", err)
		m.mu.Lock()
		m.errorCounts[pluginType]++
		m.mu.Unlock()
	}
}

// KillPlugin force-stops a single plugin instance, used by the resource
// monitor when a plugin sustains too many resource violations.
func (m *Manager) KillPlugin(agentID, pluginType string) {
	m.mu.Lock()
	ap, ok := m.byAgent[agentID]
	var p Plugin
	if ok {
		p, ok = ap.active[pluginType]
		if ok {
			delete(ap.active, pluginType)
			delete(ap.instances, pluginType)
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	slog.Warn("killing plugin for sustained resource violations", "agent_id", agentID, "plugin_type", pluginType)
	_ = p.Stop(context.Background())
}

// Shutdown stops every active plugin for every agent.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	agentIDs := make([]string, 0, len(m.byAgent))
	for id := range m.byAgent {
		agentIDs = append(agentIDs, id)
	}
	m.mu.RUnlock()

	for _, id := range agentIDs {
		m.StopAgentPlugins(id)
	}
}

// Stats mirrors get_stats(): a snapshot of manager-wide plugin counts.
type Stats struct {
	ActiveAgents  int
	TotalPlugins  int
	PluginsByType map[string]int
	ErrorCounts   map[string]int
}

func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		PluginsByType: make(map[string]int),
		ErrorCounts:   make(map[string]int, len(m.errorCounts)),
	}
	for t, c := range m.errorCounts {
		stats.ErrorCounts[t] = c
	}
	for _, ap := range m.byAgent {
		if len(ap.active) == 0 {
			continue
		}
		stats.ActiveAgents++
		for t := range ap.active {
			stats.TotalPlugins++
			stats.PluginsByType[t]++
		}
	}
	return stats
}

// ActivePluginCount reports how many plugins are currently running for
// agentID, used by the resource monitor to divide sampled usage equally.
func (m *Manager) ActivePluginCount(agentID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ap, ok := m.byAgent[agentID]
	if !ok {
		return 0
	}
	return len(ap.active)
}

// ActivePluginKeys returns every (agentID, pluginType) pair currently
// running, for the resource monitor to enumerate what it should sample.
func (m *Manager) ActivePluginKeys() []PluginKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []PluginKey
	for agentID, ap := range m.byAgent {
		for pluginType := range ap.active {
			keys = append(keys, PluginKey{AgentID: agentID, PluginType: pluginType})
		}
	}
	return keys
}

// PluginKey identifies one running plugin instance.
type PluginKey struct {
	AgentID    string
	PluginType string
}
