// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"
	"time"

	"tiger-trader/internal/models"
)

// Broker defines the interface for broker operations.
type Broker interface {
	// Account
	GetAccountSummary(ctx context.Context) (*models.AccountSummary, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetAssets(ctx context.Context) (*models.AccountSummary, []models.Position, error)

	// Market Data
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error)
	GetBars(ctx context.Context, req BarsRequest) ([]models.Bar, error)

	// Orders
	PreviewOrder(ctx context.Context, order models.OrderRequest) (*models.OrderPreview, error)
	PlaceOrder(ctx context.Context, order models.OrderRequest) (*models.OrderResult, error)
	ModifyOrder(ctx context.Context, orderID int64, mod OrderModification) error
	CancelOrder(ctx context.Context, orderID int64) error
	GetOpenOrders(ctx context.Context) ([]models.OrderDetail, error)
	GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error)

	// History
	GetTransactions(ctx context.Context, symbol string, from, to time.Time) ([]models.Transaction, error)
}

// BarsRequest represents a request for historical candles.
type BarsRequest struct {
	Symbol string
	Period models.BarPeriod
	Limit  int
}

// OrderModification carries the mutable fields of a working order.
// Nil fields are left unchanged.
type OrderModification struct {
	Quantity   *int
	LimitPrice *float64
	StopPrice  *float64
}
