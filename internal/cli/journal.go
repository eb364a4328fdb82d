package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// addJournalCommands wires the journal command group over the SQLite
// order journal.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newJournalCmd(app))
}

func requireJournal(app *App) error {
	if app.Journal == nil {
		return fmt.Errorf("journal unavailable")
	}
	return nil
}

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local order and P&L journal",
	}

	var limit int
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "List journaled orders, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			entries, err := app.Journal.Orders(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("reading journal: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Println("No journaled orders.")
				return nil
			}

			table := NewTable(output, "Time", "Order ID", "Symbol", "Action", "Qty", "Type", "Status", "Warnings")
			for _, e := range entries {
				table.AddRow(
					e.CreatedAt.Format("2006-01-02 15:04"),
					strconv.FormatInt(e.OrderID, 10),
					e.Symbol,
					e.Action,
					strconv.Itoa(e.Quantity),
					e.OrderType,
					e.Status,
					e.Warnings,
				)
			}
			table.Render()
			return nil
		},
	}
	ordersCmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	cmd.AddCommand(ordersCmd)

	var date string
	pnlCmd := &cobra.Command{
		Use:   "pnl",
		Short: "List journaled P&L entries for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireJournal(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			day := date
			if day == "" {
				day = app.State.Date()
			}

			entries, err := app.Journal.PnL(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("reading journal: %w", err)
			}
			total, err := app.Journal.PnLTotal(cmd.Context(), day)
			if err != nil {
				return fmt.Errorf("reading journal: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"date":    day,
					"entries": entries,
					"total":   total,
				})
			}
			if len(entries) == 0 {
				output.Printf("No P&L entries for %s.\n", day)
				return nil
			}

			table := NewTable(output, "Time", "Amount", "Note")
			for _, e := range entries {
				table.AddRow(
					e.CreatedAt.Format("15:04:05"),
					output.FormatPnL(e.Amount),
					e.Note,
				)
			}
			table.Render()
			output.Println()
			output.Printf("Total: %s\n", output.FormatPnL(total))
			return nil
		},
	}
	pnlCmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD), defaults to today")
	cmd.AddCommand(pnlCmd)

	return cmd
}
