package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Xerophayze/ragstore"
	"github.com/Xerophayze/ragstore/embed"
)

var (
	rootDir    string
	configPath string
	verbose    bool

	buildVersion = "dev"
	buildCommit  = "none"
)

// SetVersion records build metadata for the version command.
func SetVersion(version, commit string) {
	buildVersion = version
	buildCommit = commit
}

var rootCmd = &cobra.Command{
	Use:   "ragstore",
	Short: "Local RAG document store",
	Long: `ragstore manages local retrieval-augmented-generation databases:
document ingestion, chunking, vector indexing, and filtered similarity
search with diversity reranking.

Configuration comes from a YAML file (--config), environment variables
(RAGSTORE_*), and flags, in increasing priority. A .env file in the
working directory is loaded automatically.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "databases root directory (default ~/.ragstore/databases)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		NewCreateCmd(),
		NewDropCmd(),
		NewListCmd(),
		NewStatsCmd(),
		NewAddCmd(),
		NewRemoveCmd(),
		NewDocsCmd(),
		NewSearchCmd(),
		NewNoteCmd(),
		NewEvalCmd(),
		NewVersionCmd(),
	)
}

// loadConfig assembles the effective configuration from file, environment,
// and flags.
func loadConfig() (ragstore.Config, error) {
	cfg := ragstore.DefaultConfig()
	if configPath != "" {
		loaded, err := ragstore.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if v := os.Getenv("RAGSTORE_ROOT"); v != "" {
		cfg.RootDir = v
	}
	if v := os.Getenv("RAGSTORE_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("RAGSTORE_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RAGSTORE_EMBED_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("RAGSTORE_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("RAGSTORE_EMBED_DEVICE"); v != "" {
		cfg.Embedding.Device = embed.Device(v)
	}

	if rootDir != "" {
		cfg.RootDir = rootDir
	}
	return cfg, nil
}

// newManager builds a Manager from the effective configuration. This probes
// the embedding provider, so it needs the backend reachable.
func newManager() (*ragstore.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	m, err := ragstore.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return m, nil
}
