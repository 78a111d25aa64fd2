package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/daemon"
	"github.com/tutu-network/pocketmoney/internal/domain"
)

func init() {
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(incomeCmd)
	rootCmd.AddCommand(expenseCmd)
	rootCmd.AddCommand(setBalanceCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(clearRecordsCmd)

	for _, c := range []*cobra.Command{incomeCmd, expenseCmd, setBalanceCmd} {
		c.Flags().String("operator", "admin", "operator recorded on the transaction")
	}
	recordsCmd.Flags().IntP("limit", "n", 10, "number of records to show")
	recordsCmd.Flags().String("kind", "", "only show income or expense")
}

// ─── balance ────────────────────────────────────────────────────────────────

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the balance, savings and today's spending",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		fmt.Fprintf(out(cmd), "Balance:        %s\n", d.Ledger.Balance())
		fmt.Fprintf(out(cmd), "Savings:        %s\n", d.Ledger.SavingsBalance())
		fmt.Fprintf(out(cmd), "Spent today:    %s\n", d.Ledger.TodayExpense())
		fmt.Fprintf(out(cmd), "Pending:        %d withdrawal(s)\n", len(d.Ledger.PendingWithdrawals()))
		return nil
	}),
}

// ─── income / expense / set-balance ─────────────────────────────────────────
// These go through the isolation proxy so every sandboxed ledger follows
// the real one.

var incomeCmd = &cobra.Command{
	Use:   "income AMOUNT [REASON...]",
	Short: "Add income to the real ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		return runMoney(cmd, args, d, "allowance", d.Proxy.AddIncome)
	}),
}

var expenseCmd = &cobra.Command{
	Use:   "expense AMOUNT [REASON...]",
	Short: "Record an expense; refused when the balance is too low",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		return runMoney(cmd, args, d, "unspecified", d.Proxy.AddExpense)
	}),
}

var setBalanceCmd = &cobra.Command{
	Use:   "set-balance AMOUNT [REASON...]",
	Short: "Set the balance, recording the difference as an adjustment",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		return runMoney(cmd, args, d, "manual adjustment", d.Proxy.SetBalance)
	}),
}

func runMoney(cmd *cobra.Command, args []string, d *daemon.Daemon, defReason string, apply func(amount decimal.Decimal, reason, operator string) error) error {
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	operator, _ := cmd.Flags().GetString("operator")
	if err := apply(amount, reasonArg(args[1:], defReason), operator); err != nil {
		return err
	}
	fmt.Fprintf(out(cmd), "✅ Balance: %s\n", d.Ledger.Balance())
	return nil
}

// ─── records ────────────────────────────────────────────────────────────────

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show recent transactions",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		var records []domain.Transaction
		switch domain.TxKind(kind) {
		case "":
			records = d.Ledger.RecentRecords(limit)
		case domain.TxIncome:
			records = d.Ledger.RecentIncome(limit)
		case domain.TxExpense:
			records = d.Ledger.RecentExpense(limit)
		default:
			return fmt.Errorf("unknown kind %q (want income or expense)", kind)
		}

		if len(records) == 0 {
			fmt.Fprintln(out(cmd), "No records.")
			return nil
		}
		for _, r := range records {
			sign := "+"
			if r.Kind == domain.TxExpense {
				sign = "-"
			}
			fmt.Fprintf(out(cmd), "%s  %s%s  %s", r.Time.Local().Format("2006-01-02 15:04"), sign, r.Amount, r.Reason)
			if r.Operator != "" {
				fmt.Fprintf(out(cmd), "  (%s)", r.Operator)
			}
			fmt.Fprintln(out(cmd))
		}
		return nil
	}),
}

var clearRecordsCmd = &cobra.Command{
	Use:   "clear-records",
	Short: "Delete the transaction history; balances are kept",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		n, err := d.Ledger.ClearRecords()
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Cleared %d record(s).\n", n)
		return nil
	}),
}
