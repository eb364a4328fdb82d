// Package models holds the value types shared by the broker layer, the
// tool surface and the CLI.
package models

import "time"

// Quote is a real-time snapshot for one symbol.
type Quote struct {
	Symbol    string
	Latest    float64
	Open      float64
	High      float64
	Low       float64
	PrevClose float64
	Volume    int64
	Timestamp time.Time
}

// Change returns the absolute move from the previous close.
func (q Quote) Change() float64 {
	return q.Latest - q.PrevClose
}

// ChangePct returns the percentage move from the previous close, or 0
// when the previous close is unknown.
func (q Quote) ChangePct() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return (q.Latest - q.PrevClose) / q.PrevClose * 100
}

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Position is an open holding in the account.
type Position struct {
	Symbol        string
	Quantity      int
	AvgCost       float64
	MarketPrice   float64
	MarketValue   float64
	UnrealizedPnL float64
}

// AccountSummary carries the account-level balances used by the safety
// checks and the account tool.
type AccountSummary struct {
	Account        string
	Currency       string
	NetLiquidation float64
	CashBalance    float64
	BuyingPower    float64
	GrossPosValue  float64
	RealizedPnL    float64
	UnrealizedPnL  float64
}

// Transaction is a single fill from the account history.
type Transaction struct {
	OrderID    int64
	Symbol     string
	Action     OrderSide
	Quantity   int
	Price      float64
	Amount     float64
	Commission float64
	Time       time.Time
}

// BarPeriod identifies the candle width for historical data requests.
type BarPeriod string

const (
	BarDay   BarPeriod = "day"
	BarWeek  BarPeriod = "week"
	BarMonth BarPeriod = "month"
	BarYear  BarPeriod = "year"
	BarHour  BarPeriod = "60min"
	Bar30Min BarPeriod = "30min"
	Bar15Min BarPeriod = "15min"
	Bar5Min  BarPeriod = "5min"
	Bar1Min  BarPeriod = "1min"
)
