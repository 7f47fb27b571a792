package models

import "time"

type PluginLifecycle string

const (
	PluginInitialized PluginLifecycle = "initialized"
	PluginRunning     PluginLifecycle = "running"
	PluginStopped     PluginLifecycle = "stopped"
)

// PluginInstance is one running plugin attached to an Agent, owned by C10's
// plugin manager. ValidatedConfig is the decrypted, plugin-validated config
// the concrete plugin implementation was initialized with.
type PluginInstance struct {
	AgentID         string
	PluginType      string
	Lifecycle       PluginLifecycle
	ValidatedConfig map[string]any
	StartedAt       time.Time
	ErrorCount      int
	LastError       string
}

func NewPluginInstance(agentID, pluginType string, config map[string]any) *PluginInstance {
	return &PluginInstance{
		AgentID:         agentID,
		PluginType:      pluginType,
		Lifecycle:       PluginInitialized,
		ValidatedConfig: config,
		StartedAt:       time.Now().UTC(),
	}
}
