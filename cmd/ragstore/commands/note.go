package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewNoteCmd creates the note command group.
func NewNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage chunk annotations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <database> <chunk-id> <text>",
			Short: "Attach a note to a chunk",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newManager()
				if err != nil {
					return err
				}
				return m.AddNote(args[0], args[1], args[2])
			},
		},
		&cobra.Command{
			Use:   "get <database> <chunk-id>",
			Short: "Print the note for a chunk",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newManager()
				if err != nil {
					return err
				}
				note, err := m.GetNote(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), note)
				return nil
			},
		},
		&cobra.Command{
			Use:   "prune <database>",
			Short: "Delete notes whose chunk no longer exists",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := newManager()
				if err != nil {
					return err
				}
				pruned, err := m.PruneOrphanNotes(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d orphan note(s)\n", pruned)
				return nil
			},
		},
	)
	return cmd
}
