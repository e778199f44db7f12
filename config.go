package ragstore

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Xerophayze/ragstore/embed"
)

// Config holds all configuration for the document store.
type Config struct {
	// RootDir is the directory that holds one subdirectory per database.
	// If empty, defaults to ~/.ragstore/databases.
	RootDir string `json:"root_dir" yaml:"root_dir"`

	// Embedding configures the embedding provider shared by all databases.
	Embedding embed.Config `json:"embedding" yaml:"embedding"`

	// Chunking
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`

	// DefaultTopK is the result count used when a search does not specify one.
	DefaultTopK int `json:"default_top_k" yaml:"default_top_k"`

	// DefaultContextWindow is the number of sibling chunks included on each
	// side of a hit when assembling result content.
	DefaultContextWindow int `json:"default_context_window" yaml:"default_context_window"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Databases are stored under ~/.ragstore/databases by default.
func DefaultConfig() Config {
	return Config{
		Embedding: embed.Config{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
			Device:   embed.DeviceAuto,
		},
		ChunkSize:            800,
		ChunkOverlap:         150,
		DefaultTopK:          10,
		DefaultContextWindow: 3,
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// resolveRootDir computes the databases root from config fields.
func (c *Config) resolveRootDir() string {
	if c.RootDir != "" {
		return c.RootDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "databases" // fallback to cwd
	}
	return filepath.Join(home, ".ragstore", "databases")
}
