package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCreateCmd creates the database-creation command.
func NewCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <database>",
		Short: "Create a new database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := m.CreateDatabase(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created database %q (dimension %d)\n", args[0], m.Dimension())
			return nil
		},
	}
}

// NewDropCmd creates the database-deletion command.
func NewDropCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "drop <database>",
		Short: "Delete a database and all its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete %q without --force", args[0])
			}
			m, err := newManager()
			if err != nil {
				return err
			}
			if err := m.DeleteDatabase(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted database %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm deletion")
	return cmd
}

// NewListCmd creates the database-listing command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			names, err := m.ListDatabases()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No databases")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

// NewStatsCmd creates the database-stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <database>",
		Short: "Show database statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newManager()
			if err != nil {
				return err
			}
			stats, err := m.Stats(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database:  %s\n", stats.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Documents: %d\n", stats.Documents)
			fmt.Fprintf(cmd.OutOrStdout(), "Chunks:    %d\n", stats.Chunks)
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed:   %d\n", stats.IndexedVectors)
			fmt.Fprintf(cmd.OutOrStdout(), "Dimension: %d\n", stats.Dimension)
			return nil
		},
	}
}
