package broker

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tiger-trader/internal/models"
)

// Property: for any sequence of filled market buys, cash plus position
// cost always equals the initial balance. The simulation must not
// create or destroy money.
func TestProperty_PaperBrokerConservesCash(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("filled buys conserve account value", prop.ForAll(
		func(price float64, quantities []int) bool {
			const initialCash = 1e9
			p := NewPaperBroker(PaperBrokerConfig{InitialCash: initialCash})
			p.SetPrice("AAPL", price)

			spent := 0.0
			held := 0
			for _, qty := range quantities {
				_, err := p.PlaceOrder(context.Background(), models.OrderRequest{
					Symbol:    "AAPL",
					Action:    models.Buy,
					Quantity:  qty,
					OrderType: models.Market,
				})
				if err != nil {
					return false
				}
				spent += price * float64(qty)
				held += qty
			}

			summary, err := p.GetAccountSummary(context.Background())
			if err != nil {
				return false
			}
			positions, err := p.GetPositions(context.Background())
			if err != nil {
				return false
			}

			wantQty := 0
			if len(positions) == 1 {
				wantQty = positions[0].Quantity
			}
			if held > 0 && wantQty != held {
				return false
			}
			return math.Abs(summary.CashBalance-(initialCash-spent)) < 1e-3
		},
		gen.Float64Range(1, 5000),
		gen.SliceOfN(5, gen.IntRange(1, 100)),
	))

	properties.TestingRun(t)
}

// Property: order validation accepts every well-formed request and
// rejects any request missing the price its order type requires.
func TestProperty_OrderRequestValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	symbols := []string{"AAPL", "TSLA", "MSFT", "NVDA", "SPY"}

	properties.Property("well-formed requests validate", prop.ForAll(
		func(symbol string, buy bool, qty int, limit, stop float64) bool {
			action := models.Sell
			if buy {
				action = models.Buy
			}
			for _, orderType := range models.OrderTypes() {
				req := models.OrderRequest{
					Symbol:    symbol,
					Action:    action,
					Quantity:  qty,
					OrderType: orderType,
				}
				if orderType == models.Limit || orderType == models.StopLimit {
					req.LimitPrice = &limit
				}
				if orderType == models.Stop || orderType == models.StopLimit {
					req.StopPrice = &stop
				}
				if err := req.Validate(); err != nil {
					return false
				}
			}
			return true
		},
		gen.OneConstOf(symbols[0], symbols[1], symbols[2], symbols[3], symbols[4]),
		gen.Bool(),
		gen.IntRange(1, 10000),
		gen.Float64Range(0.01, 5000),
		gen.Float64Range(0.01, 5000),
	))

	properties.Property("limit orders without a limit price are rejected", prop.ForAll(
		func(symbol string, qty int) bool {
			req := models.OrderRequest{
				Symbol:    symbol,
				Action:    models.Buy,
				Quantity:  qty,
				OrderType: models.Limit,
			}
			return req.Validate() != nil
		},
		gen.OneConstOf(symbols[0], symbols[1], symbols[2], symbols[3], symbols[4]),
		gen.IntRange(1, 10000),
	))

	properties.Property("non-positive quantities are rejected", prop.ForAll(
		func(qty int) bool {
			req := models.OrderRequest{
				Symbol:    "AAPL",
				Action:    models.Buy,
				Quantity:  qty,
				OrderType: models.Market,
			}
			return req.Validate() != nil
		},
		gen.IntRange(-10000, 0),
	))

	properties.TestingRun(t)
}
