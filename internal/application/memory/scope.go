package memory

import "github.com/johnbuck/voxbridge/internal/domain/models"

// resolveScope maps an Agent's MemoryScope to the agentID filter a fact is
// stored/queried under: nil for global facts (shared across every agent the
// user talks to), or the agent's own id when scoped per-agent.
//
// The Python original additionally layers an admin global policy and a
// per-(user,agent) preference override on top of Agent.memory_scope
// (resolve_memory_scope). This model has no admin-policy or
// user-agent-preference tables, so scope resolution here is the narrower,
// spec-compliant read of Agent.MemoryScope directly.
func resolveScope(agent *models.Agent) *string {
	if agent.MemoryScope == models.MemoryScopeAgent {
		id := agent.ID
		return &id
	}
	return nil
}
