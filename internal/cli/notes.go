package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/daemon"
)

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesAddCmd)
	notesCmd.AddCommand(notesDeleteCmd)
	notesCmd.AddCommand(notesClearCmd)
	notesCmd.AddCommand(notesListCmd)

	notesAddCmd.Flags().Int("max", 0, "notes to keep (default from config)")
}

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage the persona's memo list",
}

var notesAddCmd = &cobra.Command{
	Use:   "add TEXT...",
	Short: "Append a note, dropping the oldest beyond the limit",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		keep, _ := cmd.Flags().GetInt("max")
		if err := d.Ledger.AddNote(strings.Join(args, " "), keep); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ %d note(s).\n", len(d.Ledger.Notes()))
		return nil
	}),
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete INDEX",
	Short: "Delete the note at a 1-based index",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		i, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}
		if err := d.Ledger.DeleteNote(i); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Deleted note %d.\n", i)
		return nil
	}),
}

var notesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every note",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		if err := d.Ledger.ClearNotes(); err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), "✅ Notes cleared.")
		return nil
	}),
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, oldest first",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		notes := d.Ledger.Notes()
		if len(notes) == 0 {
			fmt.Fprintln(out(cmd), "No notes.")
			return nil
		}
		for i, n := range notes {
			fmt.Fprintf(out(cmd), "%2d. %s\n", i+1, n)
		}
		return nil
	}),
}
