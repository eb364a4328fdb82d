package broker

import (
	"context"
	"testing"
	"time"

	apperrors "tiger-trader/internal/errors"
	"tiger-trader/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestPaperBrokerMarketOrderFills(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialCash: 10000})
	p.SetPrice("AAPL", 150)

	result, err := p.PlaceOrder(context.Background(), models.OrderRequest{
		Symbol:    "AAPL",
		Action:    models.Buy,
		Quantity:  10,
		OrderType: models.Market,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Status != "FILLED" {
		t.Errorf("status = %q, want FILLED", result.Status)
	}

	summary, err := p.GetAccountSummary(context.Background())
	if err != nil {
		t.Fatalf("GetAccountSummary: %v", err)
	}
	if summary.CashBalance != 8500 {
		t.Errorf("cash = %.2f, want 8500", summary.CashBalance)
	}

	positions, err := p.GetPositions(context.Background())
	if err != nil {
		t.Fatalf("GetPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Quantity != 10 {
		t.Errorf("positions = %+v, want one AAPL x10", positions)
	}
	if positions[0].AvgCost != 150 {
		t.Errorf("avg cost = %.2f, want 150", positions[0].AvgCost)
	}
}

func TestPaperBrokerNonMarketableLimitRests(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialCash: 100000})
	p.SetPrice("AAPL", 150)

	result, err := p.PlaceOrder(context.Background(), models.OrderRequest{
		Symbol:     "AAPL",
		Action:     models.Buy,
		Quantity:   10,
		OrderType:  models.Limit,
		LimitPrice: floatPtr(140), // below market, rests
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if result.Status != "NEW" {
		t.Errorf("status = %q, want NEW", result.Status)
	}

	open, err := p.GetOpenOrders(context.Background())
	if err != nil {
		t.Fatalf("GetOpenOrders: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open orders = %d, want 1", len(open))
	}

	if err := p.CancelOrder(context.Background(), result.OrderID); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	detail, err := p.GetOrderDetail(context.Background(), result.OrderID)
	if err != nil {
		t.Fatalf("GetOrderDetail: %v", err)
	}
	if detail.Status != "CANCELLED" {
		t.Errorf("status = %q, want CANCELLED", detail.Status)
	}
}

func TestPaperBrokerInsufficientFunds(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialCash: 1000})
	p.SetPrice("AAPL", 150)

	_, err := p.PlaceOrder(context.Background(), models.OrderRequest{
		Symbol:    "AAPL",
		Action:    models.Buy,
		Quantity:  10,
		OrderType: models.Market,
	})
	if !apperrors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestPaperBrokerSellClosesPosition(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(PaperBrokerConfig{InitialCash: 10000})
	p.SetPrice("AAPL", 100)

	if _, err := p.PlaceOrder(ctx, models.OrderRequest{
		Symbol: "AAPL", Action: models.Buy, Quantity: 10, OrderType: models.Market,
	}); err != nil {
		t.Fatalf("buy: %v", err)
	}

	p.SetPrice("AAPL", 110)
	if _, err := p.PlaceOrder(ctx, models.OrderRequest{
		Symbol: "AAPL", Action: models.Sell, Quantity: 10, OrderType: models.Market,
	}); err != nil {
		t.Fatalf("sell: %v", err)
	}

	positions, _ := p.GetPositions(ctx)
	if len(positions) != 0 {
		t.Errorf("positions = %+v, want none", positions)
	}
	summary, _ := p.GetAccountSummary(ctx)
	if summary.CashBalance != 10100 {
		t.Errorf("cash = %.2f, want 10100", summary.CashBalance)
	}

	txns, err := p.GetTransactions(ctx, "AAPL", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("transactions = %d, want 2", len(txns))
	}
}

func TestPaperBrokerModifyRestingOrder(t *testing.T) {
	ctx := context.Background()
	p := NewPaperBroker(PaperBrokerConfig{InitialCash: 100000})
	p.SetPrice("TSLA", 200)

	result, err := p.PlaceOrder(ctx, models.OrderRequest{
		Symbol: "TSLA", Action: models.Buy, Quantity: 5,
		OrderType: models.Limit, LimitPrice: floatPtr(190),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	newQty := 8
	if err := p.ModifyOrder(ctx, result.OrderID, OrderModification{
		Quantity:   &newQty,
		LimitPrice: floatPtr(195),
	}); err != nil {
		t.Fatalf("ModifyOrder: %v", err)
	}

	detail, _ := p.GetOrderDetail(ctx, result.OrderID)
	if detail.Quantity != 8 || *detail.LimitPrice != 195 {
		t.Errorf("detail = %+v, want qty 8 limit 195", detail)
	}
}

func TestPaperBrokerUnknownOrder(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{})
	if err := p.CancelOrder(context.Background(), 12345); !apperrors.Is(err, apperrors.ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
	if _, err := p.GetOrderDetail(context.Background(), 12345); !apperrors.Is(err, apperrors.ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
}
