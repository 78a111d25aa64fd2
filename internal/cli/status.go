package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/daemon"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

func init() {
	rootCmd.AddCommand(allowanceCmd)
	rootCmd.AddCommand(contextCmd)
}

var allowanceCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Show how long until the weekly allowance",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		a := d.Allowance()
		if a.IsToday() {
			fmt.Fprintf(out(cmd), "📅 Today is %s, allowance day!\n", a.Today)
			return nil
		}
		fmt.Fprintf(out(cmd), "📅 Allowance day: %s\n", a.Day)
		fmt.Fprintf(out(cmd), "Today:         %s\n", a.Today)
		fmt.Fprintf(out(cmd), "Days to go:    %d\n", a.DaysUntil)
		fmt.Fprintf(out(cmd), "Next payout:   %s\n", a.Next)
		return nil
	}),
}

var contextCmd = &cobra.Command{
	Use:   "context USER",
	Short: "Show the status the persona sees when answering USER",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		c, err := d.Context(args[0])
		if err != nil {
			return err
		}
		w := out(cmd)
		if c.Isolated {
			fmt.Fprintln(w, "(isolated)")
		}
		fmt.Fprintf(w, "Balance:         %s\n", c.Balance)
		fmt.Fprintf(w, "Allowance day:   %s (today %s, %d day(s) to go)\n", c.Allowance.Day, c.Allowance.Today, c.Allowance.DaysUntil)
		fmt.Fprintf(w, "Recent income:   %s\n", formatRecords(c.RecentIncome))
		fmt.Fprintf(w, "Recent expense:  %s\n", formatRecords(c.RecentExpense))
		fmt.Fprintf(w, "Bonus today:     %s\n", c.TodayBonus)
		fmt.Fprintf(w, "Shared (%s):   %s\n", c.SharedSlots, c.SharedItems)
		fmt.Fprintf(w, "%s's slots (%s): %s\n", args[0], c.UserSlots, c.UserItems)
		return nil
	}),
}

// formatRecords renders records on one line, oldest first.
func formatRecords(records []domain.Transaction) string {
	if len(records) == 0 {
		return "none"
	}
	s := ""
	for i, r := range records {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("%s: %s (%s)", r.Time.Local().Format("2006-01-02 15:04"), r.Amount, r.Reason)
	}
	return s
}
