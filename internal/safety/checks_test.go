package safety

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func emptyState(t *testing.T) *DailyState {
	t.Helper()
	return NewDailyState(t.TempDir(), zerolog.Nop())
}

func containsSubstring(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func TestShortSellingBlockedWithoutPosition(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "SELL", Quantity: 10, OrderType: "MKT"}
	result := RunChecks(order, AccountInfo{CashBalance: 100000, NetLiquidation: 100000}, nil, Limits{}, emptyState(t))

	if result.Passed {
		t.Error("sell with no position passed")
	}
	if !containsSubstring(result.Errors, "no position in AAPL") {
		t.Errorf("errors = %v, want short-selling message", result.Errors)
	}
}

func TestShortSellingBlockedBeyondHeldShares(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "SELL", Quantity: 150, OrderType: "MKT"}
	positions := []PositionInfo{{Symbol: "AAPL", Quantity: 100}}
	result := RunChecks(order, AccountInfo{}, positions, Limits{}, emptyState(t))

	if result.Passed {
		t.Error("oversized sell passed")
	}
	if !containsSubstring(result.Errors, "exceeds held shares") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestSellingEntirePositionAllowed(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "SELL", Quantity: 100, OrderType: "MKT"}
	positions := []PositionInfo{{Symbol: "AAPL", Quantity: 100}}
	result := RunChecks(order, AccountInfo{}, positions, Limits{}, emptyState(t))

	if !result.Passed {
		t.Errorf("closing a full position blocked: %v", result.Errors)
	}
}

func TestBuyingPowerBlocksExpensiveBuy(t *testing.T) {
	// 100 * 150 * 1.01 = 15150 > 10000 cash.
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 100, OrderType: "LMT", LimitPrice: floatPtr(150.0)}
	result := RunChecks(order, AccountInfo{CashBalance: 10000, NetLiquidation: 200000}, nil, Limits{}, emptyState(t))

	if result.Passed {
		t.Error("underfunded buy passed")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "buying power") {
		t.Errorf("errors = %v, want single buying-power error", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", result.Warnings)
	}
}

func TestBuyingPowerAllowsAffordableBuy(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 100, OrderType: "LMT", LimitPrice: floatPtr(150.0)}
	// Exactly the buffered cost.
	result := RunChecks(order, AccountInfo{CashBalance: 15150, NetLiquidation: 200000}, nil, Limits{}, emptyState(t))

	if !result.Passed {
		t.Errorf("affordable buy blocked: %v", result.Errors)
	}
}

func TestBuyingPowerSkippedWithoutPrice(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 1000000, OrderType: "MKT"}
	result := RunChecks(order, AccountInfo{CashBalance: 1}, nil, Limits{}, emptyState(t))

	if !result.Passed {
		t.Errorf("priceless order blocked: %v", result.Errors)
	}
}

func TestBuyingPowerUsesLastPriceFallback(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 100, OrderType: "MKT", LastPrice: floatPtr(150.0)}
	result := RunChecks(order, AccountInfo{CashBalance: 10000}, nil, Limits{}, emptyState(t))

	if result.Passed {
		t.Error("market order with last price fallback not evaluated")
	}
}

func TestMaxOrderValue(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 100, OrderType: "LMT", LimitPrice: floatPtr(150.0)}
	account := AccountInfo{CashBalance: 1000000, NetLiquidation: 1000000}

	result := RunChecks(order, account, nil, Limits{MaxOrderValue: 10000}, emptyState(t))
	if result.Passed {
		t.Error("order over max value passed")
	}
	if !containsSubstring(result.Errors, "Max order value exceeded") {
		t.Errorf("errors = %v", result.Errors)
	}

	// Zero disables the check entirely.
	result = RunChecks(order, account, nil, Limits{MaxOrderValue: 0}, emptyState(t))
	if !result.Passed {
		t.Errorf("disabled max-order-value check still fired: %v", result.Errors)
	}
}

func TestPositionConcentrationWarnsButAllows(t *testing.T) {
	// Order value 15000 > 5% of 200000 = 10000.
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 100, OrderType: "LMT", LimitPrice: floatPtr(150.0)}
	account := AccountInfo{CashBalance: 20000, NetLiquidation: 200000}
	result := RunChecks(order, account, nil, Limits{MaxPositionPct: 0.05}, emptyState(t))

	if !result.Passed {
		t.Errorf("concentration breach blocked the order: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "concentration") {
		t.Errorf("warnings = %v, want single concentration warning", result.Warnings)
	}
}

func TestDailyLossLimitStrictInequality(t *testing.T) {
	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 1, OrderType: "LMT", LimitPrice: floatPtr(1.0)}
	account := AccountInfo{CashBalance: 1000, NetLiquidation: 1000}
	limits := Limits{DailyLossLimit: 500}

	atLimit := emptyState(t)
	if err := atLimit.RecordPnL(-500.0); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	result := RunChecks(order, account, nil, limits, atLimit)
	if !result.Passed {
		t.Errorf("exactly at the loss limit blocked trading: %v", result.Errors)
	}

	pastLimit := emptyState(t)
	if err := pastLimit.RecordPnL(-500.01); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	result = RunChecks(order, account, nil, limits, pastLimit)
	if result.Passed {
		t.Error("past the loss limit not blocked")
	}
	if !containsSubstring(result.Errors, "Daily loss limit exceeded") {
		t.Errorf("errors = %v", result.Errors)
	}
}

func TestDailyLossAppliesToSellOrders(t *testing.T) {
	// No de-risking carve-out: the loss gate blocks SELLs too.
	state := emptyState(t)
	if err := state.RecordPnL(-1000); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	order := OrderParams{Symbol: "AAPL", Action: "SELL", Quantity: 10, OrderType: "MKT"}
	positions := []PositionInfo{{Symbol: "AAPL", Quantity: 100}}
	result := RunChecks(order, AccountInfo{}, positions, Limits{DailyLossLimit: 500}, state)

	if result.Passed {
		t.Error("loss-limit breach did not block a SELL order")
	}
}

func TestDuplicateOrderWarnsButAllows(t *testing.T) {
	state := emptyState(t)
	fp := Fingerprint("AAPL", "BUY", 100, "LMT", floatPtr(150.0))
	if err := state.RecordOrder(fp); err != nil {
		t.Fatalf("RecordOrder: %v", err)
	}

	order := OrderParams{Symbol: "AAPL", Action: "BUY", Quantity: 100, OrderType: "LMT", LimitPrice: floatPtr(150.0)}
	result := RunChecks(order, AccountInfo{CashBalance: 100000, NetLiquidation: 100000}, nil, Limits{}, state)

	if !result.Passed {
		t.Errorf("duplicate blocked the order: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "Duplicate order detected") {
		t.Errorf("warnings = %v, want duplicate warning", result.Warnings)
	}
}

func TestAllChecksRunDespiteEarlierErrors(t *testing.T) {
	// A SELL with no position AND a loss-limit breach must report both.
	state := emptyState(t)
	if err := state.RecordPnL(-1000); err != nil {
		t.Fatalf("RecordPnL: %v", err)
	}
	order := OrderParams{Symbol: "AAPL", Action: "SELL", Quantity: 10, OrderType: "MKT"}
	result := RunChecks(order, AccountInfo{}, nil, Limits{DailyLossLimit: 500}, state)

	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want short-selling and daily-loss messages", result.Errors)
	}
}

func TestLimitsValidate(t *testing.T) {
	valid := []Limits{
		{},
		{MaxOrderValue: 10000, DailyLossLimit: 500, MaxPositionPct: 0.2},
	}
	for _, l := range valid {
		if err := l.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", l, err)
		}
	}

	invalid := []Limits{
		{MaxOrderValue: -1},
		{DailyLossLimit: -0.01},
		{MaxPositionPct: -5},
	}
	for _, l := range invalid {
		if err := l.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", l)
		}
	}
}
