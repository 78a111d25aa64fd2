package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/app/tags"
	"github.com/tutu-network/pocketmoney/internal/daemon"
	"github.com/tutu-network/pocketmoney/internal/infra/snapshot"
)

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)

	rootCmd.AddCommand(processCmd)
	processCmd.Flags().String("user", "", "user ID the response was sent to (required)")
	processCmd.Flags().String("name", "", "user display name")
	processCmd.Flags().String("message", "", "message ID used for de-duplication")
	processCmd.MarkFlagRequired("user")
}

// ─── backup ─────────────────────────────────────────────────────────────────

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import every persisted document",
}

var backupExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write a compressed snapshot of all stores",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		n, err := snapshot.ExportFile(args[0], d.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Exported %d document(s) to %s\n", n, args[0])
		return nil
	}),
}

// backupImportCmd writes straight to storage; the stores pick the
// documents up the next time they are opened.
var backupImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Restore a snapshot, overwriting matching documents",
	Long: `Restore a snapshot, overwriting documents with the same scope and kind.
Stop "pocket serve" first: a running daemon keeps its in-memory state and
would overwrite the restored documents on its next change.`,
	Args: cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		n, err := snapshot.ImportFile(args[0], d.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Imported %d document(s) from %s\n", n, args[0])
		return nil
	}),
}

// ─── process ────────────────────────────────────────────────────────────────

var processCmd = &cobra.Command{
	Use:   "process [TEXT...]",
	Short: "Apply the tags in a model response and print the cleaned text",
	Long: `Apply the tags in a model response and print the cleaned text.
With no TEXT the response is read from stdin.`,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		text := strings.Join(args, " ")
		if len(args) == 0 {
			data, err := readAll(cmd)
			if err != nil {
				return err
			}
			text = string(data)
		}
		user, _ := cmd.Flags().GetString("user")
		name, _ := cmd.Flags().GetString("name")
		msg, _ := cmd.Flags().GetString("message")

		res, err := d.Engine.Process(cmd.Context(), tags.Response{
			MessageID: msg,
			UserID:    user,
			UserName:  name,
			Channel:   "cli",
			Text:      text,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), res.Text)
		for _, a := range res.Actions {
			line := fmt.Sprintf("  [%s] %s", a.Kind, a.Outcome)
			if a.Detail != "" {
				line += ": " + a.Detail
			}
			if a.Error != "" {
				line += " (" + a.Error + ")"
			}
			fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
		return nil
	}),
}
