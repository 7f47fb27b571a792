// Package models holds the entities of the voice orchestration core's data
// model: Agent, Session, Message, CachedContext, UserFact, ExtractionTask,
// LLMProvider, STTConnection, ActiveTTS and PluginInstance.
package models

import "time"

// MemoryScope selects whether an Agent's facts are shared globally or
// partitioned per-agent; it is one of the four tiers Memory Service scope
// resolution walks (see internal/application/memory).
type MemoryScope string

const (
	MemoryScopeGlobal MemoryScope = "global"
	MemoryScopeAgent  MemoryScope = "agent"
)

// LLMSettings is an Agent's default LLM call shape, overridden per-call by
// the LLM router when a provider_ref resolves to a concrete LLMProvider.
type LLMSettings struct {
	ProviderKind string
	Model        string
	Temperature  float64
	ProviderRef  string // LLMProvider.ID; empty => env-configured default provider
}

// TTSSettings is an Agent's default voice shape.
type TTSSettings struct {
	Voice       string
	Exaggeration float64
	CFGWeight    float64
	Temperature  float64
	Language     string
}

// Agent is the configuration root a Session is created against.
type Agent struct {
	ID           string
	Name         string
	LLM          LLMSettings
	TTS          TTSSettings
	SystemPrompt string
	MemoryScope  MemoryScope
	Plugins      map[string]map[string]any
	IsDefault    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewAgent(id, name, systemPrompt string) *Agent {
	now := time.Now().UTC()
	return &Agent{
		ID:           id,
		Name:         name,
		SystemPrompt: systemPrompt,
		MemoryScope:  MemoryScopeGlobal,
		Plugins:      make(map[string]map[string]any),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
