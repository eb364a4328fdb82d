package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func (e *Executor) executeGetAccountSummary(ctx context.Context) (string, error) {
	summary, err := e.broker.GetAccountSummary(ctx)
	if err != nil {
		return fmt.Sprintf("Error retrieving account summary: %v", err), nil
	}

	lines := []string{
		"Account Summary",
		"===============",
		fmt.Sprintf("  Cash Balance:       %s", fmtCurrency(summary.CashBalance)),
		fmt.Sprintf("  Buying Power:       %s", fmtCurrency(summary.BuyingPower)),
		fmt.Sprintf("  Realized P&L:       %s", fmtCurrency(summary.RealizedPnL)),
		fmt.Sprintf("  Unrealized P&L:     %s", fmtCurrency(summary.UnrealizedPnL)),
		fmt.Sprintf("  Net Liquidation:    %s", fmtCurrency(summary.NetLiquidation)),
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeGetBuyingPower(ctx context.Context) (string, error) {
	summary, err := e.broker.GetAccountSummary(ctx)
	if err != nil {
		return fmt.Sprintf("Error retrieving buying power: %v", err), nil
	}

	lines := []string{
		"Buying Power",
		"============",
		fmt.Sprintf("  Available Buying Power:  %s", fmtCurrency(summary.BuyingPower)),
		fmt.Sprintf("  Cash Balance:            %s", fmtCurrency(summary.CashBalance)),
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeGetPositions(ctx context.Context) (string, error) {
	positions, err := e.broker.GetPositions(ctx)
	if err != nil {
		return fmt.Sprintf("Error retrieving positions: %v", err), nil
	}

	if len(positions) == 0 {
		return "No positions found.", nil
	}

	lines := []string{"Current Positions", "================="}
	for _, pos := range positions {
		// P&L percentage against cost basis
		costBasis := pos.AvgCost * float64(pos.Quantity)
		pnlPct := 0.0
		if costBasis != 0 {
			pnlPct = pos.UnrealizedPnL / costBasis * 100
		}

		lines = append(lines,
			"",
			fmt.Sprintf("  %s", pos.Symbol),
			fmt.Sprintf("    Quantity:        %d", pos.Quantity),
			fmt.Sprintf("    Avg Cost:        %s", fmtCurrency(pos.AvgCost)),
			fmt.Sprintf("    Market Value:    %s", fmtCurrency(pos.MarketValue)),
			fmt.Sprintf("    Unrealized P&L:  %s (%.2f%%)", fmtCurrency(pos.UnrealizedPnL), pnlPct),
		)
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeGetTransactionHistory(ctx context.Context, params map[string]interface{}) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(getStringParam(params, "symbol", "")))
	startDate := getStringParam(params, "start_date", "")
	endDate := getStringParam(params, "end_date", "")
	limit := getIntParam(params, "limit", 50)

	var from, to time.Time
	if startDate != "" {
		t, err := time.Parse("2006-01-02", startDate)
		if err != nil {
			return fmt.Sprintf("Error: invalid start_date %q; expected YYYY-MM-DD.", startDate), nil
		}
		from = t
	}
	if endDate != "" {
		t, err := time.Parse("2006-01-02", endDate)
		if err != nil {
			return fmt.Sprintf("Error: invalid end_date %q; expected YYYY-MM-DD.", endDate), nil
		}
		to = t
	}

	transactions, err := e.broker.GetTransactions(ctx, symbol, from, to)
	if err != nil {
		return fmt.Sprintf("Error retrieving transaction history: %v", err), nil
	}
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}

	if len(transactions) == 0 {
		return "No transactions found.", nil
	}

	lines := []string{"Transaction History", "==================="}
	for _, txn := range transactions {
		lines = append(lines,
			"",
			fmt.Sprintf("  %s - %s", txn.Symbol, txn.Action),
			fmt.Sprintf("    Quantity:    %d (filled: %d)", txn.Quantity, txn.Quantity),
			fmt.Sprintf("    Fill Price:  %s", fmtCurrency(txn.Price)),
			fmt.Sprintf("    Time:        %s", txn.Time.Format("2006-01-02 15:04:05")),
			fmt.Sprintf("    Commission:  %s", fmtCurrency(txn.Commission)),
		)
	}
	return strings.Join(lines, "\n"), nil
}
