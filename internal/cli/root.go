// Package cli implements the pocket command: the daemon entry point and
// the admin commands that operate on the stores directly.
package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutu-network/pocketmoney/internal/daemon"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pocket",
	Short: "Pocket money economy for a chat persona",
	Long: `pocket keeps the persona's pocket money ledger, savings, inventory and
commendation leaderboard, and applies the action tags found in model output.

Run "pocket serve" to start the HTTP API the chat framework talks to. The
other commands are admin tools that read and adjust the stores directly.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $POCKET_HOME/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func loadConfig() (daemon.Config, error) {
	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return daemon.Config{}, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// openDaemon opens the stores for a one-shot admin command. Logging is
// quieted to warnings so command output stays readable.
func openDaemon() (*daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !verbose {
		cfg.Log.Level = "warn"
	}
	logger, err := daemon.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	d, err := daemon.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	for kind, cause := range d.Recoveries() {
		logger.Warn("store recovered from corrupt document", zap.String("kind", kind), zap.Error(cause))
	}
	return d, nil
}

// withDaemon wraps a command body with daemon open and close.
func withDaemon(run func(cmd *cobra.Command, args []string, d *daemon.Daemon) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := openDaemon()
		if err != nil {
			return err
		}
		defer func() {
			d.Close()
			d.Logger.Sync()
		}()
		return run(cmd, args, d)
	}
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

// reasonArg joins the optional trailing reason arguments.
func reasonArg(args []string, def string) string {
	if len(args) == 0 {
		return def
	}
	reason := args[0]
	for _, a := range args[1:] {
		reason += " " + a
	}
	return reason
}

func readAll(cmd *cobra.Command) ([]byte, error) {
	return io.ReadAll(cmd.InOrStdin())
}
