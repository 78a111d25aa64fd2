package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/daemon"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

func init() {
	rootCmd.AddCommand(savingsCmd)
	savingsCmd.AddCommand(savingsDepositCmd)
	savingsCmd.AddCommand(savingsWithdrawCmd)
	savingsCmd.AddCommand(savingsApplyCmd)
	savingsCmd.AddCommand(savingsApproveCmd)
	savingsCmd.AddCommand(savingsRejectCmd)
	savingsCmd.AddCommand(savingsPendingCmd)

	savingsCmd.PersistentFlags().String("operator", "admin", "operator recorded on the decision")
	savingsApplyCmd.Flags().String("user", "", "requesting user ID")
}

var savingsCmd = &cobra.Command{
	Use:   "savings",
	Short: "Move money between the balance and savings",
	Long: `Savings are a separate, non-negative pot. Deposits and direct
withdrawals move funds immediately; requested withdrawals wait for an
approve or reject decision.`,
}

// ─── savings deposit / withdraw ─────────────────────────────────────────────

var savingsDepositCmd = &cobra.Command{
	Use:   "deposit AMOUNT [REASON...]",
	Short: "Move funds from the balance into savings",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		operator, _ := cmd.Flags().GetString("operator")
		if err := d.Ledger.DepositToSavings(amount, reasonArg(args[1:], "deposit"), operator); err != nil {
			return err
		}
		printSavings(cmd, d)
		return nil
	}),
}

var savingsWithdrawCmd = &cobra.Command{
	Use:   "withdraw AMOUNT [REASON...]",
	Short: "Move funds from savings back to the balance immediately",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		operator, _ := cmd.Flags().GetString("operator")
		if err := d.Ledger.WithdrawFromSavings(amount, reasonArg(args[1:], "withdrawal"), operator); err != nil {
			return err
		}
		printSavings(cmd, d)
		return nil
	}),
}

func printSavings(cmd *cobra.Command, d *daemon.Daemon) {
	fmt.Fprintf(out(cmd), "✅ Balance: %s  Savings: %s\n", d.Ledger.Balance(), d.Ledger.SavingsBalance())
}

// ─── savings apply / approve / reject ───────────────────────────────────────

var savingsApplyCmd = &cobra.Command{
	Use:   "apply AMOUNT [REASON...]",
	Short: "Queue a withdrawal request",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		id, err := d.Ledger.ApplyWithdrawal(amount, reasonArg(args[1:], "unspecified"), domain.Source{Channel: "cli", UserID: user})
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Withdrawal requested: %s\n", id)
		return nil
	}),
}

var savingsApproveCmd = &cobra.Command{
	Use:   "approve ID",
	Short: "Approve a pending withdrawal and move the funds",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		operator, _ := cmd.Flags().GetString("operator")
		w, err := d.Ledger.ApproveWithdrawal(args[0], operator)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Approved %s (%s).\n", w.ID, w.Amount)
		printSavings(cmd, d)
		return nil
	}),
}

var savingsRejectCmd = &cobra.Command{
	Use:   "reject ID [REASON...]",
	Short: "Reject a pending withdrawal",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		operator, _ := cmd.Flags().GetString("operator")
		w, err := d.Ledger.RejectWithdrawal(args[0], reasonArg(args[1:], ""), operator)
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Rejected %s.\n", w.ID)
		return nil
	}),
}

var savingsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List withdrawal requests awaiting a decision",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		pending := d.Ledger.PendingWithdrawals()
		if len(pending) == 0 {
			fmt.Fprintln(out(cmd), "No pending withdrawals.")
			return nil
		}
		for _, w := range pending {
			who := w.Source.UserName
			if who == "" {
				who = w.Source.UserID
			}
			fmt.Fprintf(out(cmd), "%s  %s  %s  %s  %s\n", w.ID, w.CreatedAt.Local().Format("2006-01-02 15:04"), w.Amount, w.Reason, who)
		}
		return nil
	}),
}
