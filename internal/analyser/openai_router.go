package analyser

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/aristath/chronotrader/internal/domain"
)

// OpenAIRouter maps each LLMTier to a fixed chat-completion model, the same
// client-per-backend shape internal/memory's openai_embedder.go uses for
// embeddings. spec.md §6 leaves per-agent model selection to the router
// implementation; this one is tier-keyed rather than agent-keyed, since
// Default only ever asks for the judge role.
type OpenAIRouter struct {
	client *openai.Client
	models map[domain.LLMTier]string
}

// NewOpenAIRouter builds a router backed by the OpenAI chat completions API.
// A zero-value models map falls back to small=gpt-4o-mini, large=gpt-4o.
func NewOpenAIRouter(apiKey string, models map[domain.LLMTier]string) *OpenAIRouter {
	if models == nil {
		models = map[domain.LLMTier]string{
			domain.TierSmall:  openai.GPT4oMini,
			domain.TierMedium: openai.GPT4oMini,
			domain.TierLarge:  openai.GPT4o,
		}
	}
	return &OpenAIRouter{client: openai.NewClient(apiKey), models: models}
}

// PickLLM satisfies domain.LLMRouter. Every agent name routes to TierSmall;
// the router does not read EnableSmallModelRouting (cmd/trainer builds no
// router at all when that flag is off).
func (r *OpenAIRouter) PickLLM(agentName string) (domain.LLMTier, func(ctx context.Context, prompt string) (string, error)) {
	tier := domain.TierSmall
	model := r.models[tier]
	call := func(ctx context.Context, prompt string) (string, error) {
		resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return "", fmt.Errorf("analyser: chat completion for agent %s: %w", agentName, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("analyser: chat completion for agent %s returned no choices", agentName)
		}
		return resp.Choices[0].Message.Content, nil
	}
	return tier, call
}
