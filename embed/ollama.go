package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ollamaProvider implements Provider for Ollama's native API. Ollama also
// exposes an OpenAI-compatible endpoint, but the native /api/embed gives
// batched embeddings and per-request model options in one call.
type ollamaProvider struct {
	cfg    Config
	client *http.Client
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	// Generous timeout: a local server may load the model on first request.
	return &ollamaProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *ollamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("ollama returned no embedding")
	}
	return vecs[0], nil
}

func (p *ollamaProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	body := ollamaEmbedRequest{
		Model: p.cfg.Model,
		Input: texts,
	}
	if opts := deviceOptions(p.cfg.Device); opts != nil {
		body.Options = opts
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := p.cfg.BaseURL + "/api/embed"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama embed request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed error %d: %s", resp.StatusCode, string(respBody))
	}

	var embedResp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, fmt.Errorf("decoding ollama embed response: %w", err)
	}

	result := make([][]float32, len(embedResp.Embeddings))
	for i, emb := range embedResp.Embeddings {
		result[i] = float64sToFloat32s(emb)
	}
	return result, nil
}

// deviceOptions maps the configured device preference onto Ollama model
// options. num_gpu=0 forces CPU inference; auto leaves the server default.
func deviceOptions(d Device) map[string]any {
	switch d {
	case DeviceCPU:
		return map[string]any{"num_gpu": 0}
	case DeviceGPU:
		return map[string]any{"num_gpu": -1}
	default:
		return nil
	}
}

type ollamaEmbedRequest struct {
	Model   string         `json:"model"`
	Input   []string       `json:"input"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func float64sToFloat32s(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
