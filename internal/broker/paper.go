// Package broker provides broker integration implementations.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "tiger-trader/internal/errors"
	"tiger-trader/internal/models"
)

// PaperBroker implements the Broker interface for paper trading
// simulation. Market data comes from an optional data broker; order
// fills, positions and cash are simulated in memory.
type PaperBroker struct {
	// Real broker used for market data, may be nil.
	dataBroker Broker

	positions map[string]*models.Position
	orders    map[int64]*models.OrderDetail
	cash      float64

	orderCounter int64

	// Last-seen prices for fill simulation.
	priceCache map[string]float64

	mu sync.RWMutex
}

// PaperBrokerConfig holds configuration for the paper broker.
type PaperBrokerConfig struct {
	DataBroker  Broker
	InitialCash float64
}

// NewPaperBroker creates a new paper trading broker.
func NewPaperBroker(cfg PaperBrokerConfig) *PaperBroker {
	initialCash := cfg.InitialCash
	if initialCash == 0 {
		initialCash = 100000
	}

	return &PaperBroker{
		dataBroker: cfg.DataBroker,
		positions:  make(map[string]*models.Position),
		orders:     make(map[int64]*models.OrderDetail),
		cash:       initialCash,
		priceCache: make(map[string]float64),
	}
}

// SetPrice seeds the simulated price for a symbol. Used when no data
// broker is configured, and by tests.
func (p *PaperBroker) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priceCache[symbol] = price
}

// GetQuote fetches a quote from the data broker, falling back to the
// seeded price cache.
func (p *PaperBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if p.dataBroker != nil {
		quote, err := p.dataBroker.GetQuote(ctx, symbol)
		if err == nil {
			p.mu.Lock()
			p.priceCache[symbol] = quote.Latest
			p.mu.Unlock()
		}
		return quote, err
	}

	p.mu.RLock()
	price, ok := p.priceCache[symbol]
	p.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSymbolNotFound
	}
	return &models.Quote{
		Symbol:    symbol,
		Latest:    price,
		PrevClose: price,
		Timestamp: time.Now(),
	}, nil
}

// GetQuotes fetches quotes for multiple symbols.
func (p *PaperBroker) GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if p.dataBroker != nil {
		return p.dataBroker.GetQuotes(ctx, symbols)
	}
	quotes := make([]models.Quote, 0, len(symbols))
	for _, s := range symbols {
		q, err := p.GetQuote(ctx, s)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

// GetBars fetches candles from the data broker.
func (p *PaperBroker) GetBars(ctx context.Context, req BarsRequest) ([]models.Bar, error) {
	if p.dataBroker != nil {
		return p.dataBroker.GetBars(ctx, req)
	}
	return nil, fmt.Errorf("no data broker configured")
}

// GetAccountSummary returns the simulated account balances.
func (p *PaperBroker) GetAccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	grossValue := 0.0
	unrealized := 0.0
	for _, pos := range p.positions {
		price := p.priceCache[pos.Symbol]
		if price > 0 {
			grossValue += price * float64(pos.Quantity)
			unrealized += (price - pos.AvgCost) * float64(pos.Quantity)
		} else {
			grossValue += pos.AvgCost * float64(pos.Quantity)
		}
	}

	return &models.AccountSummary{
		Account:        "PAPER",
		Currency:       "USD",
		NetLiquidation: p.cash + grossValue,
		CashBalance:    p.cash,
		BuyingPower:    p.cash,
		GrossPosValue:  grossValue,
		UnrealizedPnL:  unrealized,
	}, nil
}

// GetPositions returns simulated positions with marks from the price
// cache.
func (p *PaperBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	positions := make([]models.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out := *pos
		price := p.priceCache[pos.Symbol]
		if price > 0 {
			out.MarketPrice = price
			out.MarketValue = price * float64(pos.Quantity)
			out.UnrealizedPnL = (price - pos.AvgCost) * float64(pos.Quantity)
		}
		positions = append(positions, out)
	}
	return positions, nil
}

// GetAssets returns the simulated account summary and positions.
func (p *PaperBroker) GetAssets(ctx context.Context) (*models.AccountSummary, []models.Position, error) {
	summary, err := p.GetAccountSummary(ctx)
	if err != nil {
		return nil, nil, err
	}
	positions, err := p.GetPositions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return summary, positions, nil
}

// PreviewOrder estimates the cost of an order against cached prices.
func (p *PaperBroker) PreviewOrder(ctx context.Context, order models.OrderRequest) (*models.OrderPreview, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	price := p.executionPrice(ctx, order)
	if price == 0 {
		return nil, apperrors.ErrSymbolNotFound
	}
	return &models.OrderPreview{
		EstimatedCost: price * float64(order.Quantity),
		Commission:    0,
	}, nil
}

// PlaceOrder simulates order placement. Market orders and marketable
// limit orders fill immediately at the cached price; non-marketable
// limit orders rest as open.
func (p *PaperBroker) PlaceOrder(ctx context.Context, order models.OrderRequest) (*models.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	price := p.executionPrice(ctx, order)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.orderCounter++
	orderID := time.Now().Unix()*1000 + p.orderCounter

	execPrice := price
	canFill := price > 0
	if order.OrderType == models.Limit && order.LimitPrice != nil {
		execPrice = *order.LimitPrice
		if order.Action == models.Buy && price > *order.LimitPrice {
			canFill = false
		}
		if order.Action == models.Sell && price < *order.LimitPrice {
			canFill = false
		}
	}
	if order.OrderType == models.Stop || order.OrderType == models.StopLimit || order.OrderType == models.TrailingStop {
		// Stop-style orders rest until triggered; the simulation never
		// triggers them.
		canFill = false
	}

	orderValue := execPrice * float64(order.Quantity)
	if order.Action == models.Buy && canFill && p.cash < orderValue {
		return nil, apperrors.Wrapf(apperrors.ErrInsufficientFunds,
			"need %.2f, have %.2f", orderValue, p.cash)
	}

	detail := &models.OrderDetail{
		OrderID:    orderID,
		Symbol:     order.Symbol,
		Action:     order.Action,
		OrderType:  order.OrderType,
		Quantity:   order.Quantity,
		Remaining:  order.Quantity,
		LimitPrice: order.LimitPrice,
		StopPrice:  order.StopPrice,
		Status:     "NEW",
		TradeTime:  time.Now(),
	}

	if canFill {
		detail.Status = "FILLED"
		detail.Filled = order.Quantity
		detail.Remaining = 0
		detail.AvgFillPrice = execPrice

		p.applyFill(order.Symbol, order.Action, order.Quantity, execPrice)
	}

	p.orders[orderID] = detail

	return &models.OrderResult{
		OrderID:   orderID,
		Symbol:    order.Symbol,
		Action:    order.Action,
		Quantity:  order.Quantity,
		OrderType: order.OrderType,
		Status:    detail.Status,
	}, nil
}

// ModifyOrder simulates order modification.
func (p *PaperBroker) ModifyOrder(ctx context.Context, orderID int64, mod OrderModification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.orders[orderID]
	if !ok {
		return apperrors.ErrOrderNotFound
	}
	if existing.Status != "NEW" {
		return fmt.Errorf("cannot modify order with status: %s", existing.Status)
	}

	if mod.Quantity != nil {
		existing.Quantity = *mod.Quantity
		existing.Remaining = *mod.Quantity - existing.Filled
	}
	if mod.LimitPrice != nil {
		existing.LimitPrice = mod.LimitPrice
	}
	if mod.StopPrice != nil {
		existing.StopPrice = mod.StopPrice
	}
	return nil
}

// CancelOrder simulates order cancellation.
func (p *PaperBroker) CancelOrder(ctx context.Context, orderID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return apperrors.ErrOrderNotFound
	}
	if order.Status != "NEW" {
		return fmt.Errorf("cannot cancel order with status: %s", order.Status)
	}
	order.Status = "CANCELLED"
	return nil
}

// GetOpenOrders returns all simulated orders that are still working.
func (p *PaperBroker) GetOpenOrders(ctx context.Context) ([]models.OrderDetail, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	orders := make([]models.OrderDetail, 0)
	for _, o := range p.orders {
		if o.Status == "NEW" {
			orders = append(orders, *o)
		}
	}
	return orders, nil
}

// GetOrderDetail returns one simulated order by ID.
func (p *PaperBroker) GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	order, ok := p.orders[orderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	out := *order
	return &out, nil
}

// GetTransactions returns simulated fills within the time range.
func (p *PaperBroker) GetTransactions(ctx context.Context, symbol string, from, to time.Time) ([]models.Transaction, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var txns []models.Transaction
	for _, o := range p.orders {
		if o.Status != "FILLED" {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		if !from.IsZero() && o.TradeTime.Before(from) {
			continue
		}
		if !to.IsZero() && o.TradeTime.After(to) {
			continue
		}
		txns = append(txns, models.Transaction{
			OrderID:  o.OrderID,
			Symbol:   o.Symbol,
			Action:   o.Action,
			Quantity: o.Filled,
			Price:    o.AvgFillPrice,
			Amount:   o.AvgFillPrice * float64(o.Filled),
			Time:     o.TradeTime,
		})
	}
	return txns, nil
}

// executionPrice resolves a reference price for fill simulation.
func (p *PaperBroker) executionPrice(ctx context.Context, order models.OrderRequest) float64 {
	p.mu.RLock()
	price := p.priceCache[order.Symbol]
	p.mu.RUnlock()

	if price == 0 && p.dataBroker != nil {
		if quote, err := p.dataBroker.GetQuote(ctx, order.Symbol); err == nil {
			price = quote.Latest
			p.mu.Lock()
			p.priceCache[order.Symbol] = price
			p.mu.Unlock()
		}
	}
	if price == 0 && order.LimitPrice != nil {
		price = *order.LimitPrice
	}
	return price
}

// applyFill updates cash and positions for an executed order. Caller
// must hold the write lock.
func (p *PaperBroker) applyFill(symbol string, action models.OrderSide, qty int, price float64) {
	value := price * float64(qty)

	pos, exists := p.positions[symbol]
	if !exists {
		pos = &models.Position{Symbol: symbol}
		p.positions[symbol] = pos
	}

	if action == models.Buy {
		totalCost := pos.AvgCost*float64(pos.Quantity) + value
		pos.Quantity += qty
		if pos.Quantity > 0 {
			pos.AvgCost = totalCost / float64(pos.Quantity)
		}
		p.cash -= value
	} else {
		pos.Quantity -= qty
		p.cash += value
		if pos.Quantity <= 0 {
			delete(p.positions, symbol)
		}
	}
}

// Reset restores the paper broker to its initial state.
func (p *PaperBroker) Reset(initialCash float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.positions = make(map[string]*models.Position)
	p.orders = make(map[int64]*models.OrderDetail)
	p.cash = initialCash
	p.orderCounter = 0
}

// Ensure PaperBroker implements the Broker interface.
var _ Broker = (*PaperBroker)(nil)
