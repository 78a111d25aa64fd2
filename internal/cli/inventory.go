package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tutu-network/pocketmoney/internal/daemon"
)

func init() {
	rootCmd.AddCommand(inventoryCmd)
	inventoryCmd.AddCommand(inventoryListCmd)
	inventoryCmd.AddCommand(inventoryAddCmd)
	inventoryCmd.AddCommand(inventoryRemoveCmd)
	inventoryCmd.AddCommand(inventoryClearCmd)

	rootCmd.AddCommand(giftsCmd)
	giftsCmd.AddCommand(giftsListCmd)
	giftsCmd.AddCommand(giftsRemoveCmd)
	giftsCmd.AddCommand(giftsClearCmd)

	inventoryAddCmd.Flags().String("desc", "", "item description")
}

// ─── inventory ──────────────────────────────────────────────────────────────

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Manage the shared inventory",
}

var inventoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shared items",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		items := d.Inventory.SharedItems()
		fmt.Fprintf(out(cmd), "Shared inventory (%d/%d):\n", len(items), d.Inventory.MaxSharedSlots())
		for _, it := range items {
			fmt.Fprintf(out(cmd), "  • %s (%s)\n", it.Name, it.Description)
		}
		return nil
	}),
}

var inventoryAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Store an item in the shared inventory",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		desc, _ := cmd.Flags().GetString("desc")
		name := strings.Join(args, " ")
		if err := d.Proxy.StoreSharedItem(name, desc); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Stored %q.\n", name)
		return nil
	}),
}

var inventoryRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove the first shared item matching NAME",
	Args:  cobra.MinimumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		name := strings.Join(args, " ")
		if err := d.Proxy.UseSharedItem(name); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Removed %q.\n", name)
		return nil
	}),
}

var inventoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every shared item",
	Args:  cobra.NoArgs,
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		if err := d.Inventory.ClearSharedItems(); err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), "✅ Shared inventory cleared.")
		return nil
	}),
}

// ─── gifts ──────────────────────────────────────────────────────────────────

var giftsCmd = &cobra.Command{
	Use:   "gifts",
	Short: "Manage per-user gift slots",
}

var giftsListCmd = &cobra.Command{
	Use:   "list [USER]",
	Short: "List one user's gifts, or every user's",
	Args:  cobra.MaximumNArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		if len(args) == 1 {
			fmt.Fprintf(out(cmd), "%s: %s\n", args[0], d.Inventory.UserSummary(args[0]))
			return nil
		}
		slots := d.Inventory.AllUserSlots()
		if len(slots) == 0 {
			fmt.Fprintln(out(cmd), "No gifts.")
			return nil
		}
		for user, gifts := range slots {
			fmt.Fprintf(out(cmd), "%s (%d/%d):\n", user, len(gifts), d.Inventory.MaxUserSlots())
			for _, g := range gifts {
				fmt.Fprintf(out(cmd), "  • %s from %s (%s)\n", g.Name, g.From, g.Description)
			}
		}
		return nil
	}),
}

var giftsRemoveCmd = &cobra.Command{
	Use:   "remove USER NAME",
	Short: "Remove the first of USER's gifts matching NAME",
	Args:  cobra.MinimumNArgs(2),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		name := strings.Join(args[1:], " ")
		if err := d.Inventory.UseUserItem(args[0], name); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Removed %q from %s.\n", name, args[0])
		return nil
	}),
}

var giftsClearCmd = &cobra.Command{
	Use:   "clear USER",
	Short: "Remove every gift of USER",
	Args:  cobra.ExactArgs(1),
	RunE: withDaemon(func(cmd *cobra.Command, args []string, d *daemon.Daemon) error {
		if err := d.Inventory.ClearUserItems(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "✅ Gifts of %s cleared.\n", args[0])
		return nil
	}),
}
