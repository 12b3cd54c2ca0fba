package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"intent-trader/internal/models"
	"intent-trader/internal/store"
	"intent-trader/pkg/utils"
)

// addReceiptCommands adds receipt and trade inspection commands.
func addReceiptCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newReceiptsCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
}

func newReceiptsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List and inspect execution receipts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List persisted receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store not configured.")
				return fmt.Errorf("store not configured")
			}

			status, _ := cmd.Flags().GetString("status")
			pair, _ := cmd.Flags().GetString("pair")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			receipts, err := app.Store.ListReceipts(ctx, store.ReceiptFilter{
				Status: models.ReceiptStatus(status),
				Pair:   pair,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(receipts)
			}

			if len(receipts) == 0 {
				output.Dim("No receipts found.")
				return nil
			}
			for _, sr := range receipts {
				r := sr.Receipt
				pair := ""
				if r.Strategy != nil {
					pair = r.Strategy.Pair
				}
				output.Printf("%s  %-9s %-10s spend=%s  %s\n",
					utils.ShortID(sr.ID), r.Status, utils.OrDash(pair), utils.FormatUSDC(r.TotalSpendUSDC), utils.FormatTimestamp(r.Timestamp))
			}
			return nil
		},
	}
	list.Flags().String("status", "", "filter by status (executed, aborted, expired)")
	list.Flags().String("pair", "", "filter by pair")
	list.Flags().Int("limit", 20, "maximum receipts to list")
	cmd.AddCommand(list)

	show := &cobra.Command{
		Use:   "show <receipt-id>",
		Short: "Show one receipt in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store not configured.")
				return fmt.Errorf("store not configured")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			receipt, err := app.Store.GetReceipt(ctx, args[0])
			if err != nil {
				return err
			}
			return output.JSON(receipt)
		},
	}
	cmd.AddCommand(show)

	return cmd
}

func newTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List and cancel monitored trades",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List persisted trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				output.Error("Store not configured.")
				return fmt.Errorf("store not configured")
			}

			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			trades, err := app.Store.ListTrades(ctx, store.TradeFilter{
				Status: models.TradeStatus(status),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Dim("No trades found.")
				return nil
			}
			for _, t := range trades {
				output.Printf("%s  %-10s %-10s %s\n", utils.ShortID(t.ID), t.Status, utils.OrDash(t.Pair), t.Prompt)
			}
			return nil
		},
	}
	list.Flags().String("status", "", "filter by status")
	list.Flags().Int("limit", 20, "maximum trades to list")
	cmd.AddCommand(list)

	cancel := &cobra.Command{
		Use:   "cancel <trade-id>",
		Short: "Cancel a monitored trade",
		Long: `Cancel stops further progress on a monitored trade and marks it expired.
Cancellation is coarse: a trade whose execution already started cannot be cancelled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Registry.Cancel(args[0]); err != nil {
				output.Error("Cancel failed: %v", err)
				return err
			}
			output.Success("Trade %s cancelled", args[0])
			return nil
		},
	}
	cmd.AddCommand(cancel)

	return cmd
}
