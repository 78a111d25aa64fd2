package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/daemon"
)

func init() {
	rootCmd.AddCommand(commendCmd)
	rootCmd.AddCommand(rankingCmd)

	rootCmd.AddCommand(blacklistCmd)
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	blacklistCmd.AddCommand(blacklistListCmd)

	rankingCmd.Flags().IntP("top", "n", 10, "entries to show")
}

// ─── commend / ranking ──────────────────────────────────────────────────────

var commendCmd = &cobra.Command{
	Use:   "commend USER [NAME...]",
	Short: "Send USER's daily commendation, crediting a random bonus",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		res, err := d.Commend(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Bonus %s credited. Balance: %s. Today's bonus total: %s\n", res.Bonus, res.Balance, res.TodayBonus)
		return nil
	}),
}

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Show the commendation leaderboard",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		top, _ := cmd.Flags().GetInt("top")
		entries := d.Commendations.Ranking(top)
		if len(entries) == 0 {
			fmt.Fprintln(out(cmd), "No commendations yet.")
			return nil
		}
		for i, e := range entries {
			fmt.Fprintf(out(cmd), "%2d. %s (%s)  %d\n", i+1, e.DisplayName(), e.UserID(), e.Count)
		}
		fmt.Fprintf(out(cmd), "Today: %s  Total: %s\n", d.Commendations.TodayBonus(), d.Commendations.TotalBonus())
		return nil
	}),
}

// ─── blacklist ──────────────────────────────────────────────────────────────

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Sandbox users so their tags never touch the real stores",
	Long: `A blacklisted user gets private copies of the ledger and inventory,
seeded from the real balance when they are added. Their tags change only
those copies, while admin changes to the real stores are replayed into them.`,
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add USER",
	Short: "Blacklist a user",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		if err := d.Proxy.Add(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ %s is now isolated.\n", args[0])
		return nil
	}),
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove USER",
	Short: "Remove a user from the blacklist and discard their sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		if err := d.Proxy.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ %s removed from the blacklist.\n", args[0])
		return nil
	}),
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklisted users",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		users := d.Proxy.Blacklist()
		if len(users) == 0 {
			fmt.Fprintln(out(cmd), "Blacklist is empty.")
			return nil
		}
		for _, u := range users {
			l, _, _ := d.Proxy.Isolated(u)
			if l == nil {
				fmt.Fprintf(out(cmd), "  • %s\n", u)
				continue
			}
			fmt.Fprintf(out(cmd), "  • %s  (sandbox balance %s)\n", u, l.Balance())
		}
		return nil
	}),
}
