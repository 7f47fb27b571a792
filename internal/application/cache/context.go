package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/johnbuck/voxbridge/internal/domain/models"
	"github.com/johnbuck/voxbridge/internal/ports"
)

const defaultTimezone = "America/Los_Angeles"

// BuildContext implements spec §4.6's get_conversation_context: an
// oldest->newest ordered message slice ready to hand the LLM router. When
// includeSystemPrompt is true, a synthetic system message carrying the
// agent's prompt plus a "[Current Date/Time Context]" stanza is prepended;
// when memory is non-nil, a retrieval keyed on the latest user message is
// issued and, if non-empty, prepended as a second synthetic system message.
// The last limit cached messages follow.
func (c *Cache) BuildContext(ctx context.Context, entry *models.CachedContext, memory ports.MemoryService, limit int, includeSystemPrompt bool, timezone string) []ports.LLMMessage {
	entry.Lock.Lock()
	messages := make([]models.Message, len(entry.Messages))
	copy(messages, entry.Messages)
	entry.Lock.Unlock()

	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	var out []ports.LLMMessage

	if includeSystemPrompt && entry.Agent != nil {
		out = append(out, ports.LLMMessage{
			Role:    string(models.RoleSystem),
			Content: entry.Agent.SystemPrompt + "\n\n" + dateTimeStanza(timezone),
		})
	}

	if memory != nil {
		if query := lastUserMessage(messages); query != "" {
			agentID := ""
			if entry.Agent != nil {
				agentID = entry.Agent.ID
			}
			facts, err := memory.Retrieve(ctx, entry.Session.UserID, agentID, query, 10)
			if err != nil {
				slog.Warn("cache: memory retrieval failed, continuing without it", "session_id", entry.Session.ID, "error", err)
			} else if len(facts) > 0 {
				out = append(out, ports.LLMMessage{
					Role:    string(models.RoleSystem),
					Content: formatFacts(facts),
				})
			}
		}
	}

	for _, m := range messages {
		out = append(out, ports.LLMMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func lastUserMessage(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func formatFacts(facts []models.UserFact) string {
	s := "Known facts about the user, for context (do not recite verbatim):\n"
	for _, f := range facts {
		s += "- " + f.FactText + "\n"
	}
	return s
}

// dateTimeStanza renders the "[Current Date/Time Context]" block in the
// given IANA timezone, falling back to America/Los_Angeles if the zone
// can't be loaded or is empty.
func dateTimeStanza(timezone string) string {
	if timezone == "" {
		timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc, err = time.LoadLocation(defaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}
	now := time.Now().In(loc)
	return fmt.Sprintf("[Current Date/Time Context]\nCurrent date and time: %s (%s)", now.Format("Monday, January 2, 2006 3:04 PM"), loc.String())
}
