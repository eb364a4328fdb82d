package tools

import (
	"fmt"
	"strings"

	"tiger-trader/internal/models"
	"tiger-trader/internal/safety"
)

// fmtCurrency formats a value as US-dollar currency. Negative values
// render as -$1,234.56.
func fmtCurrency(value float64) string {
	if value < 0 {
		return fmt.Sprintf("-$%s", commaSeparated(-value))
	}
	return fmt.Sprintf("$%s", commaSeparated(value))
}

// commaSeparated renders a non-negative float with thousands
// separators and two decimal places.
func commaSeparated(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, fracPart := s[:dot], s[dot:]

	var sb strings.Builder
	n := len(intPart)
	for i, r := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	return sb.String() + fracPart
}

// formatSafetyResult renders errors and warnings as headed lists.
// Returns an empty string when there are no issues.
func formatSafetyResult(result safety.SafetyResult) string {
	var lines []string

	if len(result.Errors) > 0 {
		lines = append(lines, "SAFETY ERRORS:")
		for _, err := range result.Errors {
			lines = append(lines, "  - "+err)
		}
	}
	if len(result.Warnings) > 0 {
		lines = append(lines, "SAFETY WARNINGS:")
		for _, warn := range result.Warnings {
			lines = append(lines, "  - "+warn)
		}
	}
	return strings.Join(lines, "\n")
}

// formatOrderLine renders one open order as a single text line.
func formatOrderLine(o models.OrderDetail) string {
	priceStr := "N/A"
	if o.LimitPrice != nil {
		priceStr = fmt.Sprintf("%.2f", *o.LimitPrice)
	}
	return fmt.Sprintf("Order %d: %s %s %d (filled %d) | type=%s limit=%s status=%s submitted=%s",
		o.OrderID, o.Symbol, o.Action, o.Quantity, o.Filled,
		o.OrderType, priceStr, o.Status, o.TradeTime.Format("2006-01-02 15:04:05"))
}

// formatOrderSummary renders an order as a concise labeled block,
// without the Order Detail header.
func formatOrderSummary(o models.OrderDetail) string {
	lines := []string{
		fmt.Sprintf("  Order ID: %d", o.OrderID),
		fmt.Sprintf("  Symbol: %s", o.Symbol),
		fmt.Sprintf("  Action: %s", o.Action),
		fmt.Sprintf("  Order Type: %s", o.OrderType),
		fmt.Sprintf("  Quantity: %d", o.Quantity),
		fmt.Sprintf("  Filled: %d", o.Filled),
	}
	if o.LimitPrice != nil {
		lines = append(lines, fmt.Sprintf("  Limit Price: %.2f", *o.LimitPrice))
	}
	if o.StopPrice != nil {
		lines = append(lines, fmt.Sprintf("  Stop Price: %.2f", *o.StopPrice))
	}
	lines = append(lines, fmt.Sprintf("  Status: %s", o.Status))
	return strings.Join(lines, "\n")
}

// formatOrderDetail renders a full order as a multi-line block.
func formatOrderDetail(o models.OrderDetail) string {
	lines := []string{
		"Order Detail",
		strings.Repeat("=", 40),
		fmt.Sprintf("  Order ID: %d", o.OrderID),
		fmt.Sprintf("  Symbol: %s", o.Symbol),
		fmt.Sprintf("  Action: %s", o.Action),
		fmt.Sprintf("  Order Type: %s", o.OrderType),
		fmt.Sprintf("  Quantity: %d", o.Quantity),
		fmt.Sprintf("  Filled Quantity: %d", o.Filled),
	}
	if o.AvgFillPrice != 0 {
		lines = append(lines, fmt.Sprintf("  Avg Fill Price: %.2f", o.AvgFillPrice))
	}
	if o.LimitPrice != nil {
		lines = append(lines, fmt.Sprintf("  Limit Price: %.2f", *o.LimitPrice))
	}
	if o.StopPrice != nil {
		lines = append(lines, fmt.Sprintf("  Stop Price: %.2f", *o.StopPrice))
	}
	lines = append(lines,
		fmt.Sprintf("  Status: %s", o.Status),
		fmt.Sprintf("  Remaining: %d", o.Remaining),
		fmt.Sprintf("  Trade Time: %s", o.TradeTime.Format("2006-01-02 15:04:05")),
	)
	if o.Commission != 0 {
		lines = append(lines, fmt.Sprintf("  Commission: %.2f", o.Commission))
	}
	return strings.Join(lines, "\n")
}

// formatQuote renders a quote for LLM consumption.
func formatQuote(q models.Quote) string {
	lines := []string{
		fmt.Sprintf("Symbol: %s", q.Symbol),
		fmt.Sprintf("Last Price: %.2f", q.Latest),
		fmt.Sprintf("Change: %.2f (%.2f%%)", q.Change(), q.ChangePct()),
		fmt.Sprintf("Volume: %d", q.Volume),
		fmt.Sprintf("Open: %.2f", q.Open),
		fmt.Sprintf("High: %.2f", q.High),
		fmt.Sprintf("Low: %.2f", q.Low),
		fmt.Sprintf("Prev Close: %.2f", q.PrevClose),
	}
	return strings.Join(lines, "\n")
}

// formatBars renders OHLCV bars as a compact table.
func formatBars(symbol string, bars []models.Bar) string {
	if len(bars) == 0 {
		return fmt.Sprintf("No bar data available for %s.", symbol)
	}

	header := fmt.Sprintf("%-12s %10s %10s %10s %10s %14s",
		"Date", "Open", "High", "Low", "Close", "Volume")

	lines := []string{
		fmt.Sprintf("Historical Bars for %s", symbol),
		"",
		header,
		strings.Repeat("-", len(header)),
	}
	for _, b := range bars {
		lines = append(lines, fmt.Sprintf("%-12s %10.2f %10.2f %10.2f %10.2f %14d",
			b.Time.Format("2006-01-02"), b.Open, b.High, b.Low, b.Close, b.Volume))
	}
	return strings.Join(lines, "\n")
}
