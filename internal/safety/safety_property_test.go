package safety

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
)

// Property: Fingerprint is deterministic — identical inputs always
// produce identical output, and changing any single field changes it.
func TestProperty_FingerprintDeterministicAndFieldSensitive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbolGen := gen.RegexMatch(`[A-Z]{1,5}`)
	actionGen := gen.OneConstOf("BUY", "SELL")
	quantityGen := gen.IntRange(1, 100000)
	orderTypeGen := gen.OneConstOf("MKT", "LMT", "STP", "STP_LMT", "TRAIL")
	priceGen := gen.Float64Range(0.01, 10000)

	properties.Property("same inputs yield the same fingerprint", prop.ForAll(
		func(symbol, action string, quantity int, orderType string, price float64) bool {
			fp1 := Fingerprint(symbol, action, quantity, orderType, &price)
			fp2 := Fingerprint(symbol, action, quantity, orderType, &price)
			return fp1 == fp2
		},
		symbolGen, actionGen, quantityGen, orderTypeGen, priceGen,
	))

	properties.Property("changing quantity changes the fingerprint", prop.ForAll(
		func(symbol, action string, quantity int, orderType string, price float64) bool {
			fp1 := Fingerprint(symbol, action, quantity, orderType, &price)
			fp2 := Fingerprint(symbol, action, quantity+1, orderType, &price)
			return fp1 != fp2
		},
		symbolGen, actionGen, quantityGen, orderTypeGen, priceGen,
	))

	properties.Property("nil limit price differs from zero limit price", prop.ForAll(
		func(symbol, action string, quantity int, orderType string) bool {
			zero := 0.0
			fp1 := Fingerprint(symbol, action, quantity, orderType, nil)
			fp2 := Fingerprint(symbol, action, quantity, orderType, &zero)
			return fp1 != fp2
		},
		symbolGen, actionGen, quantityGen, orderTypeGen,
	))

	properties.TestingRun(t)
}

// Property: Passed is true exactly when the error list is empty,
// regardless of how many warnings accumulated.
func TestProperty_PassedEquivalentToNoErrors(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("passed == (len(errors) == 0)", prop.ForAll(
		func(action string, quantity int, price, cash, netLiq, maxOrderValue, maxPct float64) bool {
			state := NewDailyState(t.TempDir(), zerolog.Nop())
			order := OrderParams{
				Symbol:     "AAPL",
				Action:     action,
				Quantity:   quantity,
				OrderType:  "LMT",
				LimitPrice: &price,
			}
			limits := Limits{MaxOrderValue: maxOrderValue, MaxPositionPct: maxPct}
			result := RunChecks(order, AccountInfo{CashBalance: cash, NetLiquidation: netLiq}, nil, limits, state)
			return result.Passed == (len(result.Errors) == 0)
		},
		gen.OneConstOf("BUY", "SELL"),
		gen.IntRange(1, 10000),
		gen.Float64Range(0.01, 1000),
		gen.Float64Range(0, 1000000),
		gen.Float64Range(0, 1000000),
		gen.Float64Range(0, 100000),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// Property: the daily-loss gate uses strict inequality — a P&L of
// exactly -limit never blocks, anything below always does.
func TestProperty_DailyLossLimitStrictness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	order := OrderParams{Symbol: "MSFT", Action: "BUY", Quantity: 1, OrderType: "MKT"}
	account := AccountInfo{CashBalance: 1000000, NetLiquidation: 1000000}

	properties.Property("P&L at exactly -limit never blocks", prop.ForAll(
		func(limit float64) bool {
			state := NewDailyState(t.TempDir(), zerolog.Nop())
			if err := state.RecordPnL(-limit); err != nil {
				return false
			}
			result := RunChecks(order, account, nil, Limits{DailyLossLimit: limit}, state)
			return result.Passed
		},
		gen.Float64Range(1, 100000),
	))

	properties.Property("P&L below -limit always blocks", prop.ForAll(
		func(limit, excess float64) bool {
			state := NewDailyState(t.TempDir(), zerolog.Nop())
			if err := state.RecordPnL(-limit - excess); err != nil {
				return false
			}
			result := RunChecks(order, account, nil, Limits{DailyLossLimit: limit}, state)
			return !result.Passed
		},
		gen.Float64Range(1, 100000),
		gen.Float64Range(0.01, 1000),
	))

	properties.TestingRun(t)
}

// Property: a zero limit disables its check — no errors or warnings from
// that rule no matter how large the order.
func TestProperty_ZeroLimitsDisableChecks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("disabled limits never fire", prop.ForAll(
		func(quantity int, price float64) bool {
			state := NewDailyState(t.TempDir(), zerolog.Nop())
			if err := state.RecordPnL(-1e9); err != nil {
				return false
			}
			order := OrderParams{
				Symbol:     "AMZN",
				Action:     "BUY",
				Quantity:   quantity,
				OrderType:  "LMT",
				LimitPrice: &price,
			}
			// Cash is effectively unlimited so only limit-driven checks could fire.
			account := AccountInfo{CashBalance: 1e18, NetLiquidation: 1}
			result := RunChecks(order, account, nil, Limits{}, state)
			return result.Passed && len(result.Warnings) == 0
		},
		gen.IntRange(1, 1000000),
		gen.Float64Range(0.01, 100000),
	))

	properties.TestingRun(t)
}
