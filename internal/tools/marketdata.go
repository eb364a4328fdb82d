package tools

import (
	"context"
	"fmt"
	"strings"

	"tiger-trader/internal/broker"
	"tiger-trader/internal/models"
)

// maxQuoteSymbols is the cap on symbols per get_stock_quotes call.
const maxQuoteSymbols = 50

// periodToBar maps the user-facing bar period vocabulary to the
// broker's candle widths. Coarser ranges share the same width; the
// limit controls how far back the table reaches.
var periodToBar = map[string]models.BarPeriod{
	"1d": models.BarDay,
	"1w": models.BarWeek,
	"1m": models.BarMonth,
	"3m": models.BarMonth,
	"6m": models.BarMonth,
	"1y": models.BarYear,
}

var validPeriods = []string{"1d", "1w", "1m", "3m", "6m", "1y"}

func (e *Executor) executeGetStockQuote(ctx context.Context, params map[string]interface{}) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(getStringParam(params, "symbol", "")))
	if symbol == "" {
		return "Error: Symbol must not be empty.", nil
	}

	quote, err := e.broker.GetQuote(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("Error retrieving quote for %s: %v", symbol, err), nil
	}
	return formatQuote(*quote), nil
}

func (e *Executor) executeGetStockQuotes(ctx context.Context, params map[string]interface{}) (string, error) {
	raw := getStringParam(params, "symbols", "")

	// Parse, clean, uppercase, deduplicate.
	var symbols []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		s := strings.ToUpper(strings.TrimSpace(part))
		if s != "" && !seen[s] {
			symbols = append(symbols, s)
			seen[s] = true
		}
	}

	if len(symbols) == 0 {
		return "Error: Symbols list must not be empty.", nil
	}
	if len(symbols) > maxQuoteSymbols {
		return fmt.Sprintf("Error: Too many symbols (%d). Maximum is %d.", len(symbols), maxQuoteSymbols), nil
	}

	quotes, err := e.broker.GetQuotes(ctx, symbols)
	if err != nil {
		return fmt.Sprintf("Error retrieving quotes: %v", err), nil
	}

	sections := make([]string, 0, len(quotes))
	for _, q := range quotes {
		sections = append(sections, formatQuote(q))
	}
	return strings.Join(sections, "\n\n---\n\n"), nil
}

func (e *Executor) executeGetStockBars(ctx context.Context, params map[string]interface{}) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(getStringParam(params, "symbol", "")))
	period := getStringParam(params, "period", "")
	limit := getIntParam(params, "limit", 100)

	if symbol == "" {
		return "Error: Symbol must not be empty.", nil
	}
	barPeriod, ok := periodToBar[period]
	if !ok {
		return fmt.Sprintf("Error: Invalid period %q. Allowed period values: %s.",
			period, strings.Join(validPeriods, ", ")), nil
	}

	bars, err := e.broker.GetBars(ctx, broker.BarsRequest{
		Symbol: symbol,
		Period: barPeriod,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Sprintf("Error retrieving bars for %s: %v", symbol, err), nil
	}
	return formatBars(symbol, bars), nil
}
