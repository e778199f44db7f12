// Package embed wraps text-embedding backends behind a small provider
// interface. The store treats a provider as a pure function from text to a
// fixed-dimension vector; the dimension is probed once at startup.
package embed

import (
	"context"
	"fmt"
)

// Device selects the accelerator preference passed to providers that
// support it. Local backends load the model on first request; remote
// backends ignore this field.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceGPU  Device = "gpu"
)

// Provider generates embeddings for queries and document batches.
type Provider interface {
	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments embeds a batch of document texts, preserving order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Config configures an embedding provider.
type Config struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	Device   Device `json:"device" yaml:"device"`
}

// NewProvider creates an embedding provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg), nil
	case "openai", "custom":
		return NewOpenAI(cfg)
	case "":
		return nil, fmt.Errorf("embedding provider not specified")
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// dimensionProbe is the sentinel text embedded once to measure vector length.
const dimensionProbe = "dimension probe"

// ProbeDimension embeds a fixed sentinel string and returns the vector length.
func ProbeDimension(ctx context.Context, p Provider) (int, error) {
	vec, err := p.EmbedQuery(ctx, dimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("probing embedding dimension: %w", err)
	}
	if len(vec) == 0 {
		return 0, fmt.Errorf("embedding provider returned empty vector")
	}
	return len(vec), nil
}
