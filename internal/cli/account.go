package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// addAccountCommands wires the account, positions, transactions, and
// pnl commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAccountCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newTransactionsCmd(app))
	rootCmd.AddCommand(newPnLCmd(app))
}

func requireBroker(app *App) error {
	if app.Broker == nil {
		return fmt.Errorf("broker not configured; check credentials or set trading.mode = \"paper\"")
	}
	return nil
}

func newAccountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show account summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireBroker(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			summary, err := app.Broker.GetAccountSummary(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching account summary: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Account Summary")
			output.Printf("  Account:          %s\n", summary.Account)
			output.Printf("  Currency:         %s\n", summary.Currency)
			output.Printf("  Cash Balance:     %s\n", FormatCurrency(summary.CashBalance))
			output.Printf("  Buying Power:     %s\n", FormatCurrency(summary.BuyingPower))
			output.Printf("  Realized P&L:     %s\n", output.FormatPnL(summary.RealizedPnL))
			output.Printf("  Unrealized P&L:   %s\n", output.FormatPnL(summary.UnrealizedPnL))
			output.Printf("  Net Liquidation:  %s\n", FormatCurrency(summary.NetLiquidation))
			return nil
		},
	}
}

func newPositionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "positions",
		Short: "Show current portfolio holdings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireBroker(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			positions, err := app.Broker.GetPositions(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching positions: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(positions)
			}
			if len(positions) == 0 {
				output.Println("No positions found.")
				return nil
			}

			table := NewTable(output, "Symbol", "Qty", "Avg Cost", "Mkt Value", "Unrealized P&L")
			for _, pos := range positions {
				table.AddRow(
					pos.Symbol,
					strconv.Itoa(pos.Quantity),
					FormatCurrency(pos.AvgCost),
					FormatCurrency(pos.MarketValue),
					output.FormatPnL(pos.UnrealizedPnL),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newTransactionsCmd(app *App) *cobra.Command {
	var symbol, startDate, endDate string

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Show execution history (fills)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireBroker(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			var from, to time.Time
			if startDate != "" {
				t, err := time.Parse("2006-01-02", startDate)
				if err != nil {
					return fmt.Errorf("invalid --from date %q: expected YYYY-MM-DD", startDate)
				}
				from = t
			}
			if endDate != "" {
				t, err := time.Parse("2006-01-02", endDate)
				if err != nil {
					return fmt.Errorf("invalid --to date %q: expected YYYY-MM-DD", endDate)
				}
				to = t
			}

			txns, err := app.Broker.GetTransactions(cmd.Context(), symbol, from, to)
			if err != nil {
				return fmt.Errorf("fetching transactions: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(txns)
			}
			if len(txns) == 0 {
				output.Println("No transactions found.")
				return nil
			}

			table := NewTable(output, "Time", "Symbol", "Action", "Qty", "Price", "Commission")
			for _, txn := range txns {
				table.AddRow(
					txn.Time.Format("2006-01-02 15:04"),
					txn.Symbol,
					string(txn.Action),
					strconv.Itoa(txn.Quantity),
					FormatCurrency(txn.Price),
					FormatCurrency(txn.Commission),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by ticker symbol")
	cmd.Flags().StringVar(&startDate, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "to", "", "end date (YYYY-MM-DD)")
	return cmd
}

func newPnLCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Record and inspect daily realized P&L",
		Long: `Record realized P&L against the daily loss limit and inspect the
running total. Losses are recorded as negative amounts.`,
	}

	var note string
	recordCmd := &cobra.Command{
		Use:   "record <amount>",
		Short: "Record a realized P&L amount for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}

			if err := app.State.RecordPnL(amount); err != nil {
				return fmt.Errorf("recording P&L: %w", err)
			}
			total := app.State.DailyPnL()

			if app.Journal != nil {
				if err := app.Journal.RecordPnL(cmd.Context(), app.State.Date(), amount, note); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to journal P&L entry")
				}
			}
			if app.Audit != nil {
				app.Audit.LogPnLRecorded(cmd.Context(), amount, total)
			}

			if output.IsJSON() {
				return output.JSON(map[string]float64{"amount": amount, "daily_total": total})
			}
			output.Printf("Recorded %s\n", output.FormatPnL(amount))
			output.Printf("Today's total: %s\n", output.FormatPnL(total))

			limit := app.Config.Safety.DailyLossLimit
			if limit > 0 && total < -limit {
				output.Warning("Daily loss limit breached: further orders will be blocked.")
			}
			return nil
		},
	}
	recordCmd.Flags().StringVar(&note, "note", "", "note to store with the entry")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show today's realized P&L",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			total := app.State.DailyPnL()

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"date":        app.State.Date(),
					"daily_total": total,
				})
			}
			output.Printf("Date:          %s\n", app.State.Date())
			output.Printf("Realized P&L:  %s\n", output.FormatPnL(total))

			limit := app.Config.Safety.DailyLossLimit
			if limit > 0 {
				output.Printf("Loss Limit:    %s\n", FormatCurrency(limit))
				if total < -limit {
					output.Warning("Daily loss limit breached: new orders are blocked.")
				}
			}
			return nil
		},
	}

	cmd.AddCommand(recordCmd)
	cmd.AddCommand(showCmd)
	return cmd
}
