package embed

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openAIMaxRetries = 3
	openAIRetryDelay = 2 * time.Second
)

// openAIProvider implements Provider on the go-openai SDK. A custom BaseURL
// makes it work against any OpenAI-compatible server (LM Studio, vLLM).
type openAIProvider struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAI creates a provider for the OpenAI embeddings API.
func NewOpenAI(cfg Config) (Provider, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai embedding provider requires an API key")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}

	return &openAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (p *openAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("openai returned no embedding")
	}
	return vecs[0], nil
}

func (p *openAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= openAIMaxRetries; attempt++ {
		if attempt > 0 {
			delay := openAIRetryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: p.model,
		})
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d inputs", attempt+1, len(resp.Data), len(texts))
			continue
		}

		// The API may return data out of order; Index restores it.
		result := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(result) {
				return nil, fmt.Errorf("embedding index %d out of range", d.Index)
			}
			result[d.Index] = d.Embedding
		}
		return result, nil
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", openAIMaxRetries+1, lastErr)
}
