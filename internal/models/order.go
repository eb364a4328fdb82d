package models

import (
	"fmt"
	"strings"
	"time"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType identifies how an order executes.
type OrderType string

const (
	Market       OrderType = "MKT"
	Limit        OrderType = "LMT"
	Stop         OrderType = "STP"
	StopLimit    OrderType = "STP_LMT"
	TrailingStop OrderType = "TRAIL"
)

// OrderTypes lists every supported order type.
func OrderTypes() []OrderType {
	return []OrderType{Market, Limit, Stop, StopLimit, TrailingStop}
}

// OrderRequest describes an order to be previewed or placed. LimitPrice
// and StopPrice are nil when not applicable to the order type.
type OrderRequest struct {
	Symbol     string
	Action     OrderSide
	Quantity   int
	OrderType  OrderType
	LimitPrice *float64
	StopPrice  *float64
}

// Validate checks the request shape. These are caller errors, reported
// immediately rather than folded into safety-check results.
func (r OrderRequest) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("invalid symbol: symbol must be non-empty")
	}
	if r.Symbol != strings.ToUpper(r.Symbol) {
		return fmt.Errorf("invalid symbol: symbol must be uppercase")
	}
	if r.Action != Buy && r.Action != Sell {
		return fmt.Errorf("invalid action: %q (must be BUY or SELL)", r.Action)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("invalid quantity: %d (must be a positive integer)", r.Quantity)
	}
	switch r.OrderType {
	case Market, Limit, Stop, StopLimit, TrailingStop:
	default:
		return fmt.Errorf("invalid order_type: %q", r.OrderType)
	}
	if (r.OrderType == Limit || r.OrderType == StopLimit) && r.LimitPrice == nil {
		return fmt.Errorf("limit_price is required for %s orders", r.OrderType)
	}
	if (r.OrderType == Stop || r.OrderType == StopLimit) && r.StopPrice == nil {
		return fmt.Errorf("stop_price is required for %s orders", r.OrderType)
	}
	return nil
}

// OrderDetail is the broker's view of an order.
type OrderDetail struct {
	OrderID      int64
	Symbol       string
	Action       OrderSide
	OrderType    OrderType
	Quantity     int
	Filled       int
	Remaining    int
	AvgFillPrice float64
	LimitPrice   *float64
	StopPrice    *float64
	Status       string
	Commission   float64
	TradeTime    time.Time
}

// OrderResult is returned by the broker on order placement.
type OrderResult struct {
	OrderID   int64
	Symbol    string
	Action    OrderSide
	Quantity  int
	OrderType OrderType
	Status    string
}

// OrderPreview is the broker's dry-run estimate for an order.
type OrderPreview struct {
	EstimatedCost float64
	Commission    float64
	MarginImpact  float64
	Warning       string
}
