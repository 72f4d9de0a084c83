package memory

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// openAIEmbedder adapts github.com/sashabaranov/go-openai's embeddings
// endpoint to the Embedder interface (spec.md §6 external embedding
// backend). Grounded on the openai.Client field wiring in
// other_examples/a590f71f_selivandex-trader-bot (embeddingClient
// *openai.Client passed in for "semantic memory embeddings").
type openAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimension  int
	tokenLimit int
}

// NewOpenAIEmbedder constructs an Embedder backed by the OpenAI embeddings
// API. dimension and tokenLimit are caller-supplied because they vary by
// model (e.g. text-embedding-3-small is 1536-dim with an 8191-token limit)
// and go-openai does not expose them.
func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel, dimension, tokenLimit int) *openAIEmbedder {
	return &openAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      model,
		dimension:  dimension,
		tokenLimit: tokenLimit,
	}
}

func (e *openAIEmbedder) Dimension() int  { return e.dimension }
func (e *openAIEmbedder) TokenLimit() int { return e.tokenLimit }

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, &EmbeddingServiceUnavailable{Cause: err}
	}
	if len(resp.Data) == 0 {
		return nil, &EmbeddingServiceUnavailable{Cause: fmt.Errorf("empty embedding response")}
	}
	vec32 := resp.Data[0].Embedding
	vec := make([]float64, len(vec32))
	for i, f := range vec32 {
		vec[i] = float64(f)
	}
	return vec, nil
}
