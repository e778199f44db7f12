package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Xerophayze/ragstore"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var (
		topK          int
		contextWindow int
		noRerank      bool
		jsonOut       bool
		filterPairs   []string
	)

	cmd := &cobra.Command{
		Use:   "search <database> <query>",
		Short: "Search a database",
		Long: `Search a database with filtered similarity search and MMR reranking.

Examples:
  ragstore search docs "maintenance schedule"
  ragstore search docs "torque settings" --top-k 5 --filter source=manual.pdf
  ragstore search docs "export policy" --filter tags=legal --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}

			filters, err := parseFilters(filterPairs)
			if err != nil {
				return err
			}

			opts := []ragstore.SearchOption{
				ragstore.WithTopK(topK),
				ragstore.WithContextWindow(contextWindow),
			}
			if len(filters) > 0 {
				opts = append(opts, ragstore.WithFilters(filters))
			}
			if noRerank {
				opts = append(opts, ragstore.WithoutRerank())
			}

			results, err := m.Search(cmd.Context(), args[0], args[1], opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			if len(results) == 0 {
				fmt.Fprintln(out, "No results")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "--- %d. %s (similarity %.3f", i+1, r.Source, r.Similarity)
				if r.Page > 0 {
					fmt.Fprintf(out, ", page %d", r.Page)
				}
				fmt.Fprintf(out, ")\n%s\n\n", r.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "number of results")
	cmd.Flags().IntVar(&contextWindow, "context", 3, "sibling chunks on each side of a hit")
	cmd.Flags().BoolVar(&noRerank, "no-rerank", false, "disable MMR diversity reranking")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON")
	cmd.Flags().StringSliceVar(&filterPairs, "filter", nil, "metadata filter key=value (repeatable; repeated keys form a list)")
	return cmd
}

// parseFilters turns key=value pairs into the filter mapping. Repeating a
// key collects the values into a list.
func parseFilters(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", p)
		}
		switch existing := filters[key].(type) {
		case nil:
			filters[key] = value
		case string:
			filters[key] = []any{existing, value}
		case []any:
			filters[key] = append(existing, value)
		}
	}
	return filters, nil
}
