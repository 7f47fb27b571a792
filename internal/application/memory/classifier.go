package memory

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/johnbuck/voxbridge/shared/llm"
)

// completer is the narrow interface Service depends on, satisfied by
// *Classifier; declared so extraction/temporal tests can substitute a fake
// without spinning up an HTTP server.
type completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Classifier issues one-shot, JSON-only chat completions for the memory
// pipeline's internal LLM calls (fact extraction and temporal-ambiguity
// resolution) — never streamed, never user-facing. Grounded on
// shared/llm/client.go's CreateChatCompletion, the same OTel-wrapped
// go-openai call llmrouter.Router uses for the conversational path.
type Classifier struct {
	client *llm.Client
	model  string
}

func NewClassifier(client *llm.Client, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

// Complete sends a system+user prompt pair with JSON-object response
// formatting and returns the raw JSON text. Temperature is pinned low since
// these calls are classification/extraction, not generation.
func (c *Classifier) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    0.0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("classifier completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("classifier completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
