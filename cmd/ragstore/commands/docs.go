package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Xerophayze/ragstore"
)

// NewAddCmd creates the document-ingestion command.
func NewAddCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "add <database> <file>...",
		Short: "Ingest documents into a database",
		Long: `Ingest one or more files. Unchanged files (same content hash) are
skipped; changed files have all their chunks replaced.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}

			var opts []ragstore.IngestOption
			if len(tags) > 0 {
				opts = append(opts, ragstore.WithTags(tags...))
			}

			result, err := m.AddDocuments(cmd.Context(), args[0], args[1:], opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range result.Added {
				fmt.Fprintf(out, "added    %s\n", f)
			}
			for _, f := range result.Updated {
				fmt.Fprintf(out, "updated  %s\n", f)
			}
			for _, f := range result.Skipped {
				fmt.Fprintf(out, "skipped  %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach to ingested documents (repeatable)")
	return cmd
}

// NewRemoveCmd creates the document-deletion command.
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <database> <document>",
		Short: "Remove a document and its chunks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := m.DeleteDocument(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %q\n", args[1], args[0])
			return nil
		},
	}
}

// NewDocsCmd creates the document-listing command.
func NewDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs <database>",
		Short: "List documents in a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			docs, err := m.ListDocumentRecords(args[0])
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tTYPE\tCHUNKS\tSIZE\tUPDATED")
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					d.Source, d.FileType, d.ChunkCount, d.SizeBytes, d.UpdatedAt)
			}
			return w.Flush()
		},
	}
}
