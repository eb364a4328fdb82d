package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tiger-trader/internal/broker"
	"tiger-trader/internal/models"
)

// addMarketCommands wires the quote and bars commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newBarsCmd(app))
}

func newQuoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol> [symbol...]",
		Short: "Show real-time quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireBroker(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			symbols := make([]string, 0, len(args))
			for _, arg := range args {
				symbols = append(symbols, strings.ToUpper(strings.TrimSpace(arg)))
			}

			quotes, err := app.Broker.GetQuotes(cmd.Context(), symbols)
			if err != nil {
				return fmt.Errorf("fetching quotes: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(quotes)
			}

			table := NewTable(output, "Symbol", "Last", "Change", "Change %", "Volume", "Open", "High", "Low")
			for _, q := range quotes {
				change := q.Change()
				table.AddRow(
					q.Symbol,
					fmt.Sprintf("%.2f", q.Latest),
					output.ColoredString(output.PnLColor(change), fmt.Sprintf("%+.2f", change)),
					output.ColoredString(output.PnLColor(change), FormatPercent(q.ChangePct())),
					fmt.Sprintf("%d", q.Volume),
					fmt.Sprintf("%.2f", q.Open),
					fmt.Sprintf("%.2f", q.High),
					fmt.Sprintf("%.2f", q.Low),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newBarsCmd(app *App) *cobra.Command {
	var period string
	var limit int

	cmd := &cobra.Command{
		Use:   "bars <symbol>",
		Short: "Show historical OHLCV bars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireBroker(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))

			barPeriod := models.BarPeriod(period)
			switch barPeriod {
			case models.BarDay, models.BarWeek, models.BarMonth, models.BarYear,
				models.BarHour, models.Bar30Min, models.Bar15Min, models.Bar5Min, models.Bar1Min:
			default:
				return fmt.Errorf("invalid period %q", period)
			}

			bars, err := app.Broker.GetBars(cmd.Context(), broker.BarsRequest{
				Symbol: symbol,
				Period: barPeriod,
				Limit:  limit,
			})
			if err != nil {
				return fmt.Errorf("fetching bars: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(bars)
			}
			if len(bars) == 0 {
				output.Printf("No bar data available for %s.\n", symbol)
				return nil
			}

			table := NewTable(output, "Date", "Open", "High", "Low", "Close", "Volume")
			for _, b := range bars {
				table.AddRow(
					b.Time.Format("2006-01-02"),
					fmt.Sprintf("%.2f", b.Open),
					fmt.Sprintf("%.2f", b.High),
					fmt.Sprintf("%.2f", b.Low),
					fmt.Sprintf("%.2f", b.Close),
					fmt.Sprintf("%d", b.Volume),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "day", "bar period (day, week, month, year, 60min, 30min, 15min, 5min, 1min)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of bars")
	return cmd
}
