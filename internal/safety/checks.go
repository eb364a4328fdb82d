package safety

import "fmt"

// buyingPowerBuffer is the fixed 1% margin added to estimated cost to
// cover slippage and fees.
const buyingPowerBuffer = 1.01

// OrderParams describes the order under evaluation. LimitPrice, StopPrice,
// and LastPrice are nil when unavailable; checks that need a price skip
// silently when no estimate exists.
type OrderParams struct {
	Symbol     string
	Action     string // BUY or SELL
	Quantity   int
	OrderType  string // MKT, LMT, STP, STP_LMT, TRAIL
	LimitPrice *float64
	StopPrice  *float64
	LastPrice  *float64
}

// AccountInfo is the pre-fetched account snapshot the checks evaluate
// against.
type AccountInfo struct {
	CashBalance    float64
	NetLiquidation float64
}

// PositionInfo is one held position (symbol, share count).
type PositionInfo struct {
	Symbol   string
	Quantity int
}

// Limits holds the configured risk thresholds. A value of zero disables
// the corresponding check.
type Limits struct {
	MaxOrderValue  float64
	DailyLossLimit float64
	MaxPositionPct float64
}

// Validate rejects negative limit values. Zero means disabled and is
// always valid.
func (l Limits) Validate() error {
	if l.MaxOrderValue < 0 {
		return fmt.Errorf("max_order_value must be non-negative, got %v", l.MaxOrderValue)
	}
	if l.DailyLossLimit < 0 {
		return fmt.Errorf("daily_loss_limit must be non-negative, got %v", l.DailyLossLimit)
	}
	if l.MaxPositionPct < 0 {
		return fmt.Errorf("max_position_pct must be non-negative, got %v", l.MaxPositionPct)
	}
	return nil
}

// SafetyResult is the outcome of the pre-trade gate. Passed is true iff
// Errors is empty; Warnings never block an order.
type SafetyResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
}

// estimatePrice returns the best available price estimate for an order:
// the limit price when set, else the last traded price, else nil.
func estimatePrice(order OrderParams) *float64 {
	if order.LimitPrice != nil {
		return order.LimitPrice
	}
	return order.LastPrice
}

// checkShortSelling blocks SELL orders that exceed the held quantity for
// the symbol. Selling exactly the held quantity is allowed.
func checkShortSelling(order OrderParams, positions []PositionInfo, errors *[]string) {
	if order.Action != "SELL" {
		return
	}
	held := 0
	for _, pos := range positions {
		if pos.Symbol == order.Symbol {
			held = pos.Quantity
			break
		}
	}
	if held <= 0 {
		*errors = append(*errors, fmt.Sprintf("Short selling blocked: no position in %s", order.Symbol))
	} else if order.Quantity > held {
		*errors = append(*errors, fmt.Sprintf(
			"Short selling blocked: order quantity %d exceeds held shares %d for %s",
			order.Quantity, held, order.Symbol))
	}
}

// checkBuyingPower verifies the account holds enough cash for a BUY order,
// including the 1% buffer. Skipped for SELL orders and when no price
// estimate exists.
func checkBuyingPower(order OrderParams, account AccountInfo, errors *[]string) {
	if order.Action != "BUY" {
		return
	}
	price := estimatePrice(order)
	if price == nil {
		return
	}
	cost := float64(order.Quantity) * *price * buyingPowerBuffer
	if cost > account.CashBalance {
		*errors = append(*errors, fmt.Sprintf(
			"Insufficient buying power: estimated cost $%.2f (incl. 1%% buffer) exceeds cash balance $%.2f",
			cost, account.CashBalance))
	}
}

// checkMaxOrderValue rejects orders whose notional value exceeds the
// configured maximum. Disabled when the limit is zero.
func checkMaxOrderValue(order OrderParams, limits Limits, errors *[]string) {
	if limits.MaxOrderValue <= 0 {
		return
	}
	price := estimatePrice(order)
	if price == nil {
		return
	}
	orderValue := float64(order.Quantity) * *price
	if orderValue > limits.MaxOrderValue {
		*errors = append(*errors, fmt.Sprintf(
			"Max order value exceeded: $%.2f > limit $%.2f", orderValue, limits.MaxOrderValue))
	}
}

// checkPositionConcentration warns (never blocks) when the order value
// exceeds the configured fraction of net liquidation.
func checkPositionConcentration(order OrderParams, account AccountInfo, limits Limits, warnings *[]string) {
	if limits.MaxPositionPct <= 0 {
		return
	}
	price := estimatePrice(order)
	if price == nil {
		return
	}
	orderValue := float64(order.Quantity) * *price
	limit := limits.MaxPositionPct * account.NetLiquidation
	if orderValue > limit {
		*warnings = append(*warnings, fmt.Sprintf(
			"Position concentration warning: order value $%.2f exceeds %.1f%% of net liquidation ($%.2f)",
			orderValue, limits.MaxPositionPct*100, limit))
	}
}

// checkDailyLossLimit blocks trading when realized losses breach the
// configured limit. Strict inequality: sitting exactly at the limit does
// not block.
func checkDailyLossLimit(limits Limits, state *DailyState, errors *[]string) {
	if limits.DailyLossLimit <= 0 {
		return
	}
	dailyPnL := state.DailyPnL()
	if dailyPnL < -limits.DailyLossLimit {
		*errors = append(*errors, fmt.Sprintf(
			"Daily loss limit exceeded: realized P&L $%.2f breaches -$%.2f limit",
			dailyPnL, limits.DailyLossLimit))
	}
}

// checkDuplicateOrder warns when an identical order was submitted within
// the duplicate window. Informational only; double submission may be
// intentional.
func checkDuplicateOrder(order OrderParams, state *DailyState, warnings *[]string) {
	fingerprint := Fingerprint(order.Symbol, order.Action, order.Quantity, order.OrderType, order.LimitPrice)
	if state.HasRecentOrder(fingerprint) {
		*warnings = append(*warnings, fmt.Sprintf(
			"Duplicate order detected: a similar %s order for %d %s was submitted recently",
			order.Action, order.Quantity, order.Symbol))
	}
}

// RunChecks evaluates all six pre-trade checks against the given order and
// snapshots. Every check always executes, regardless of earlier failures,
// so the caller sees the complete picture in one pass. The checks read
// only from their inputs; results are internally consistent for the
// snapshots supplied.
func RunChecks(order OrderParams, account AccountInfo, positions []PositionInfo, limits Limits, state *DailyState) SafetyResult {
	var errors, warnings []string

	checkShortSelling(order, positions, &errors)
	checkBuyingPower(order, account, &errors)
	checkMaxOrderValue(order, limits, &errors)
	checkPositionConcentration(order, account, limits, &warnings)
	checkDailyLossLimit(limits, state, &errors)
	checkDuplicateOrder(order, state, &warnings)

	return SafetyResult{
		Passed:   len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}
