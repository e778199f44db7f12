package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Xerophayze/ragstore/eval"
)

// NewEvalCmd creates the retrieval-evaluation command.
func NewEvalCmd() *cobra.Command {
	var (
		casesPath   string
		topK        int
		reportPath  string
		detailsPath string
		logPath     string
	)

	cmd := &cobra.Command{
		Use:   "eval <database>",
		Short: "Evaluate retrieval quality against a case file",
		Long: `Run a JSON or YAML list of test cases (query, expected_keywords,
expected_doc, filters, top_k) against a database and report hit-rate and
latency summaries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if logPath != "" {
				f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				defer f.Close()
				slog.SetDefault(slog.New(slog.NewTextHandler(
					io.MultiWriter(os.Stderr, f), &slog.HandlerOptions{Level: slog.LevelInfo})))
			}

			cases, err := eval.LoadCases(casesPath)
			if err != nil {
				return err
			}

			m, err := newManager()
			if err != nil {
				return err
			}

			runner := eval.NewRunner(m, topK)
			report, err := runner.Run(cmd.Context(), args[0], cases)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), eval.FormatReport(report))

			if reportPath != "" {
				if err := writeJSON(reportPath, report.Summary); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
			}
			if detailsPath != "" {
				if err := writeJSON(detailsPath, report); err != nil {
					return fmt.Errorf("writing details: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&casesPath, "cases", "", "path to JSON or YAML case file (required)")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "default top_k for cases without one")
	cmd.Flags().StringVar(&reportPath, "report", "", "write summary JSON to this path")
	cmd.Flags().StringVar(&detailsPath, "details", "", "write full per-case JSON to this path")
	cmd.Flags().StringVar(&logPath, "log", "", "also append run logs to this file")
	cmd.MarkFlagRequired("cases")
	return cmd
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
