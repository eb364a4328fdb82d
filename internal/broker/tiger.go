// Package broker provides broker integration implementations.
package broker

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "tiger-trader/internal/errors"
	"tiger-trader/internal/models"
)

const (
	defaultGatewayURL = "https://openapi.tigerbrokers.com/gateway"
	apiVersion        = "2.0"
	timestampLayout   = "2006-01-02 15:04:05"

	// How long quote data is considered fresh.
	quoteCacheTTL = 30 * time.Second
)

// Order states that indicate an order is still working at the broker.
var openOrderStates = []string{"NEW", "HELD", "PENDING_NEW", "PARTIALLY_FILLED"}

// TigerBroker implements the Broker interface against the Tiger
// OpenAPI gateway. Requests carry an RSA-SHA1 signature over the
// sorted request parameters.
type TigerBroker struct {
	httpClient *http.Client
	gatewayURL string
	tigerID    string
	account    string
	privateKey *rsa.PrivateKey
	logger     zerolog.Logger

	cacheMu    sync.Mutex
	quoteCache map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	fetched time.Time
}

// TigerConfig holds configuration for the Tiger broker.
type TigerConfig struct {
	TigerID        string
	Account        string
	PrivateKeyPath string
	GatewayURL     string
	Timeout        time.Duration
	Logger         zerolog.Logger
}

// NewTigerBroker creates a Tiger broker client. It reads and parses the
// RSA private key eagerly so credential problems surface at startup.
func NewTigerBroker(cfg TigerConfig) (*TigerBroker, error) {
	if cfg.TigerID == "" || cfg.Account == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	keyPEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read private key")
	}
	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse private key")
	}

	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = defaultGatewayURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &TigerBroker{
		httpClient: &http.Client{Timeout: timeout},
		gatewayURL: gatewayURL,
		tigerID:    cfg.TigerID,
		account:    cfg.Account,
		privateKey: key,
		logger:     cfg.Logger.With().Str("component", "tiger").Logger(),
		quoteCache: make(map[string]cacheEntry),
	}, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}

// sign computes the RSA-SHA1 signature the gateway expects: parameters
// sorted by key, joined as k=v with &, signed and base64-encoded.
func (t *TigerBroker) sign(params map[string]string) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}

	digest := sha1.Sum([]byte(sb.String()))
	sig, err := rsa.SignPKCS1v15(rand.Reader, t.privateKey, crypto.SHA1, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

type gatewayResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call issues one signed gateway request and decodes the data payload
// into out (out may be nil to discard).
func (t *TigerBroker) call(ctx context.Context, method string, bizContent any, out any) error {
	biz, err := json.Marshal(bizContent)
	if err != nil {
		return apperrors.Wrapf(err, "%s: encode request", method)
	}

	params := map[string]string{
		"tiger_id":    t.tigerID,
		"method":      method,
		"charset":     "UTF-8",
		"version":     apiVersion,
		"sign_type":   "RSA",
		"timestamp":   time.Now().UTC().Format(timestampLayout),
		"biz_content": string(biz),
	}
	sig, err := t.sign(params)
	if err != nil {
		return apperrors.Wrapf(err, "%s: sign request", method)
	}
	params["sign"] = sig

	body, err := json.Marshal(params)
	if err != nil {
		return apperrors.Wrapf(err, "%s: encode envelope", method)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrapf(err, "%s: build request", method)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return apperrors.NewBrokerError("transport", method+" failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewBrokerError("transport", method+": read response", err)
	}

	t.logger.Debug().
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("gateway call")

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return apperrors.NewBrokerError(fmt.Sprintf("http_%d", resp.StatusCode), method+" failed", nil)
	}

	var gw gatewayResponse
	if err := json.Unmarshal(respBody, &gw); err != nil {
		return apperrors.NewBrokerError("decode", method+": malformed response", err)
	}
	if gw.Code != 0 {
		return apperrors.NewBrokerError(fmt.Sprintf("api_%d", gw.Code), gw.Message, nil)
	}
	if out != nil && len(gw.Data) > 0 {
		if err := json.Unmarshal(gw.Data, out); err != nil {
			return apperrors.NewBrokerError("decode", method+": malformed data", err)
		}
	}
	return nil
}

// ------------------------------------------------------------------
// Quote cache
// ------------------------------------------------------------------

func (t *TigerBroker) getCached(key string) (any, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	entry, ok := t.quoteCache[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetched) > quoteCacheTTL {
		delete(t.quoteCache, key)
		return nil, false
	}
	return entry.value, true
}

func (t *TigerBroker) setCached(key string, value any) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.quoteCache[key] = cacheEntry{value: value, fetched: time.Now()}
}

func quotesCacheKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return "quotes:" + strings.Join(sorted, ":")
}

// ------------------------------------------------------------------
// Wire types
// ------------------------------------------------------------------

type wireQuote struct {
	Symbol    string  `json:"symbol"`
	Latest    float64 `json:"latest_price"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	PrevClose float64 `json:"prev_close"`
	Volume    int64   `json:"volume"`
	Timestamp int64   `json:"latest_time"`
}

func (w wireQuote) toModel() models.Quote {
	return models.Quote{
		Symbol:    w.Symbol,
		Latest:    w.Latest,
		Open:      w.Open,
		High:      w.High,
		Low:       w.Low,
		PrevClose: w.PrevClose,
		Volume:    w.Volume,
		Timestamp: time.UnixMilli(w.Timestamp),
	}
}

type wireBar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type wireAssets struct {
	Account        string  `json:"account"`
	Currency       string  `json:"currency"`
	NetLiquidation float64 `json:"net_liquidation"`
	CashBalance    float64 `json:"cash"`
	BuyingPower    float64 `json:"buying_power"`
	GrossPosValue  float64 `json:"gross_position_value"`
	RealizedPnL    float64 `json:"realized_pnl"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
}

type wirePosition struct {
	Symbol        string  `json:"symbol"`
	Quantity      int     `json:"quantity"`
	AvgCost       float64 `json:"average_cost"`
	MarketPrice   float64 `json:"market_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

type wireOrder struct {
	ID           int64    `json:"id"`
	Symbol       string   `json:"symbol"`
	Action       string   `json:"action"`
	OrderType    string   `json:"order_type"`
	Quantity     int      `json:"total_quantity"`
	Filled       int      `json:"filled_quantity"`
	AvgFillPrice float64  `json:"avg_fill_price"`
	LimitPrice   *float64 `json:"limit_price"`
	AuxPrice     *float64 `json:"aux_price"`
	Status       string   `json:"status"`
	Commission   float64  `json:"commission"`
	TradeTime    int64    `json:"trade_time"`
}

func (w wireOrder) toModel() models.OrderDetail {
	return models.OrderDetail{
		OrderID:      w.ID,
		Symbol:       w.Symbol,
		Action:       models.OrderSide(w.Action),
		OrderType:    models.OrderType(w.OrderType),
		Quantity:     w.Quantity,
		Filled:       w.Filled,
		Remaining:    w.Quantity - w.Filled,
		AvgFillPrice: w.AvgFillPrice,
		LimitPrice:   w.LimitPrice,
		StopPrice:    w.AuxPrice,
		Status:       w.Status,
		Commission:   w.Commission,
		TradeTime:    time.UnixMilli(w.TradeTime),
	}
}

// ------------------------------------------------------------------
// Account
// ------------------------------------------------------------------

// GetAccountSummary retrieves the account asset summary.
func (t *TigerBroker) GetAccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	var assets []wireAssets
	req := map[string]any{"account": t.account}
	if err := t.call(ctx, "assets", req, &assets); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, apperrors.NewBrokerError("assets", "no asset data returned", nil)
	}
	a := assets[0]
	return &models.AccountSummary{
		Account:        a.Account,
		Currency:       a.Currency,
		NetLiquidation: a.NetLiquidation,
		CashBalance:    a.CashBalance,
		BuyingPower:    a.BuyingPower,
		GrossPosValue:  a.GrossPosValue,
		RealizedPnL:    a.RealizedPnL,
		UnrealizedPnL:  a.UnrealizedPnL,
	}, nil
}

// GetPositions retrieves all current positions. Returns an empty slice
// when there are none.
func (t *TigerBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	var wire []wirePosition
	req := map[string]any{"account": t.account}
	if err := t.call(ctx, "positions", req, &wire); err != nil {
		return nil, err
	}
	positions := make([]models.Position, 0, len(wire))
	for _, p := range wire {
		positions = append(positions, models.Position{
			Symbol:        p.Symbol,
			Quantity:      p.Quantity,
			AvgCost:       p.AvgCost,
			MarketPrice:   p.MarketPrice,
			MarketValue:   p.MarketValue,
			UnrealizedPnL: p.UnrealizedPnL,
		})
	}
	return positions, nil
}

// GetAssets retrieves the account summary and positions together.
func (t *TigerBroker) GetAssets(ctx context.Context) (*models.AccountSummary, []models.Position, error) {
	summary, err := t.GetAccountSummary(ctx)
	if err != nil {
		return nil, nil, err
	}
	positions, err := t.GetPositions(ctx)
	if err != nil {
		return nil, nil, err
	}
	return summary, positions, nil
}

// ------------------------------------------------------------------
// Market data
// ------------------------------------------------------------------

// GetQuote returns a real-time quote for one symbol. Results are
// cached for 30 seconds.
func (t *TigerBroker) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	quotes, err := t.GetQuotes(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, apperrors.ErrSymbolNotFound
	}
	return &quotes[0], nil
}

// GetQuotes returns real-time quotes for multiple symbols. Results are
// cached for 30 seconds keyed on the sorted symbol list, so request
// order does not matter.
func (t *TigerBroker) GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	key := quotesCacheKey(symbols)
	if cached, ok := t.getCached(key); ok {
		return cached.([]models.Quote), nil
	}

	var wire []wireQuote
	req := map[string]any{"symbols": symbols}
	if err := t.call(ctx, "quote_real_time", req, &wire); err != nil {
		return nil, err
	}
	quotes := make([]models.Quote, 0, len(wire))
	for _, q := range wire {
		quotes = append(quotes, q.toModel())
	}
	t.setCached(key, quotes)
	return quotes, nil
}

// GetBars returns historical OHLCV candles. Bar data is not cached.
func (t *TigerBroker) GetBars(ctx context.Context, req BarsRequest) ([]models.Bar, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	var wire []wireBar
	payload := map[string]any{
		"symbols": []string{req.Symbol},
		"period":  string(req.Period),
		"limit":   limit,
	}
	if err := t.call(ctx, "kline", payload, &wire); err != nil {
		return nil, err
	}
	bars := make([]models.Bar, 0, len(wire))
	for _, b := range wire {
		bars = append(bars, models.Bar{
			Time:   time.UnixMilli(b.Time),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return bars, nil
}

// ------------------------------------------------------------------
// Orders
// ------------------------------------------------------------------

func (t *TigerBroker) orderPayload(order models.OrderRequest) map[string]any {
	payload := map[string]any{
		"account":        t.account,
		"symbol":         order.Symbol,
		"action":         string(order.Action),
		"order_type":     string(order.OrderType),
		"total_quantity": order.Quantity,
		"sec_type":       "STK",
		"currency":       "USD",
	}
	if order.LimitPrice != nil {
		payload["limit_price"] = *order.LimitPrice
	}
	if order.StopPrice != nil {
		payload["aux_price"] = *order.StopPrice
	}
	return payload
}

// PreviewOrder asks the broker for a dry-run estimate without placing
// the order.
func (t *TigerBroker) PreviewOrder(ctx context.Context, order models.OrderRequest) (*models.OrderPreview, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	var wire struct {
		EstimatedCost float64 `json:"init_margin"`
		Commission    float64 `json:"commission"`
		MarginImpact  float64 `json:"margin_impact"`
		Warning       string  `json:"warning_text"`
	}
	if err := t.call(ctx, "preview_order", t.orderPayload(order), &wire); err != nil {
		return nil, err
	}
	return &models.OrderPreview{
		EstimatedCost: wire.EstimatedCost,
		Commission:    wire.Commission,
		MarginImpact:  wire.MarginImpact,
		Warning:       wire.Warning,
	}, nil
}

// PlaceOrder submits an order and returns the broker-assigned ID.
func (t *TigerBroker) PlaceOrder(ctx context.Context, order models.OrderRequest) (*models.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	var wire struct {
		ID int64 `json:"id"`
	}
	if err := t.call(ctx, "place_order", t.orderPayload(order), &wire); err != nil {
		return nil, err
	}
	t.logger.Info().
		Int64("order_id", wire.ID).
		Str("symbol", order.Symbol).
		Str("action", string(order.Action)).
		Int("quantity", order.Quantity).
		Msg("order placed")
	return &models.OrderResult{
		OrderID:   wire.ID,
		Symbol:    order.Symbol,
		Action:    order.Action,
		Quantity:  order.Quantity,
		OrderType: order.OrderType,
		Status:    "NEW",
	}, nil
}

// ModifyOrder changes the mutable fields of a working order.
func (t *TigerBroker) ModifyOrder(ctx context.Context, orderID int64, mod OrderModification) error {
	payload := map[string]any{
		"account": t.account,
		"id":      orderID,
	}
	if mod.Quantity != nil {
		payload["total_quantity"] = *mod.Quantity
	}
	if mod.LimitPrice != nil {
		payload["limit_price"] = *mod.LimitPrice
	}
	if mod.StopPrice != nil {
		payload["aux_price"] = *mod.StopPrice
	}
	return t.call(ctx, "modify_order", payload, nil)
}

// CancelOrder cancels a single order by ID.
func (t *TigerBroker) CancelOrder(ctx context.Context, orderID int64) error {
	payload := map[string]any{"account": t.account, "id": orderID}
	return t.call(ctx, "cancel_order", payload, nil)
}

// GetOpenOrders returns all working orders.
func (t *TigerBroker) GetOpenOrders(ctx context.Context) ([]models.OrderDetail, error) {
	var wire []wireOrder
	payload := map[string]any{
		"account": t.account,
		"states":  openOrderStates,
	}
	if err := t.call(ctx, "orders", payload, &wire); err != nil {
		return nil, err
	}
	orders := make([]models.OrderDetail, 0, len(wire))
	for _, o := range wire {
		orders = append(orders, o.toModel())
	}
	return orders, nil
}

// GetOrderDetail returns a single order by ID.
func (t *TigerBroker) GetOrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	var wire wireOrder
	payload := map[string]any{"account": t.account, "id": orderID}
	if err := t.call(ctx, "order_detail", payload, &wire); err != nil {
		return nil, err
	}
	if wire.ID == 0 {
		return nil, apperrors.ErrOrderNotFound
	}
	detail := wire.toModel()
	return &detail, nil
}

// GetTransactions returns filled trades, optionally filtered by symbol
// and time range. Zero time values mean no bound.
func (t *TigerBroker) GetTransactions(ctx context.Context, symbol string, from, to time.Time) ([]models.Transaction, error) {
	payload := map[string]any{"account": t.account}
	if symbol != "" {
		payload["symbol"] = symbol
	}
	if !from.IsZero() {
		payload["start_time"] = from.UnixMilli()
	}
	if !to.IsZero() {
		payload["end_time"] = to.UnixMilli()
	}
	var wire []wireOrder
	if err := t.call(ctx, "filled_orders", payload, &wire); err != nil {
		return nil, err
	}
	txns := make([]models.Transaction, 0, len(wire))
	for _, o := range wire {
		txns = append(txns, models.Transaction{
			OrderID:    o.ID,
			Symbol:     o.Symbol,
			Action:     models.OrderSide(o.Action),
			Quantity:   o.Filled,
			Price:      o.AvgFillPrice,
			Amount:     o.AvgFillPrice * float64(o.Filled),
			Commission: o.Commission,
			Time:       time.UnixMilli(o.TradeTime),
		})
	}
	return txns, nil
}

// Ensure TigerBroker implements the Broker interface.
var _ Broker = (*TigerBroker)(nil)
