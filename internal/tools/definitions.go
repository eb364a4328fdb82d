// Package tools exposes the trading system as OpenAI function-calling
// tools. Every order-placing tool runs the pre-trade safety checks
// before touching the broker.
package tools

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
)

// orderParamsSchema is shared by preview_stock_order and
// place_stock_order, with the reason field added for placement.
const orderParamsProps = `
		"symbol": {
			"type": "string",
			"description": "Ticker symbol (e.g. AAPL). Must be uppercase."
		},
		"action": {
			"type": "string",
			"enum": ["BUY", "SELL"],
			"description": "Order side"
		},
		"quantity": {
			"type": "integer",
			"description": "Number of shares. Must be a positive integer."
		},
		"order_type": {
			"type": "string",
			"enum": ["MKT", "LMT", "STP", "STP_LMT", "TRAIL"],
			"description": "Order type"
		},
		"limit_price": {
			"type": "number",
			"description": "Required for LMT and STP_LMT orders"
		},
		"stop_price": {
			"type": "number",
			"description": "Required for STP and STP_LMT orders"
		}`

// Definitions returns all available tool definitions for OpenAI
// function calling.
func Definitions() []openai.Tool {
	return []openai.Tool{
		// Account tools
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_account_summary",
				Description: "Get account summary with cash balance, buying power, realized and unrealized P&L, and net liquidation value.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_buying_power",
				Description: "Get available buying power with cash balance context.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_positions",
				Description: "Get current portfolio holdings with quantity, average cost, market value, and unrealized P&L per position.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_transaction_history",
				Description: "Get execution history (filled orders), optionally filtered by symbol and date range.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"symbol": {
							"type": "string",
							"description": "Optional ticker symbol to filter transactions"
						},
						"start_date": {
							"type": "string",
							"description": "Optional start date (YYYY-MM-DD)"
						},
						"end_date": {
							"type": "string",
							"description": "Optional end date (YYYY-MM-DD)"
						},
						"limit": {
							"type": "integer",
							"description": "Maximum number of transactions to return",
							"default": 50
						}
					}
				}`),
			},
		},
		// Market data tools
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_stock_quote",
				Description: "Get a real-time stock quote for a single ticker symbol: last price, change, volume, OHLC.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"symbol": {
							"type": "string",
							"description": "Stock ticker symbol (e.g. AAPL, GOOGL)"
						}
					},
					"required": ["symbol"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_stock_quotes",
				Description: "Get real-time quotes for multiple ticker symbols at once. Maximum 50 symbols per request.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"symbols": {
							"type": "string",
							"description": "Comma-separated list of ticker symbols (e.g. AAPL,GOOGL,MSFT)"
						}
					},
					"required": ["symbols"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_stock_bars",
				Description: "Get historical OHLCV price bars for a stock as a compact table.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"symbol": {
							"type": "string",
							"description": "Stock ticker symbol"
						},
						"period": {
							"type": "string",
							"enum": ["1d", "1w", "1m", "3m", "6m", "1y"],
							"description": "Bar period"
						},
						"limit": {
							"type": "integer",
							"description": "Maximum number of bars to return",
							"default": 100
						}
					},
					"required": ["symbol", "period"]
				}`),
			},
		},
		// Order execution tools
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "preview_stock_order",
				Description: "Preview a stock order without executing it. Runs all safety checks and fetches a cost estimate. The order is NOT submitted.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {` + orderParamsProps + `
					},
					"required": ["symbol", "action", "quantity", "order_type"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "place_stock_order",
				Description: "Place a stock order after running all safety checks. Blocked if any safety error is detected; warnings are surfaced but do not prevent submission. A trade plan with the given reason is recorded alongside the order.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {` + orderParamsProps + `,
						"reason": {
							"type": "string",
							"description": "Human-readable reason for this trade (thesis, strategy). Persisted alongside the order."
						}
					},
					"required": ["symbol", "action", "quantity", "order_type", "reason"]
				}`),
			},
		},
		// Order management tools
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "modify_order",
				Description: "Modify an existing order's quantity, limit price, or stop price. At least one modification parameter must be provided.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"order_id": {
							"type": "integer",
							"description": "The numeric order identifier to modify"
						},
						"quantity": {
							"type": "integer",
							"description": "New order quantity; omit to leave unchanged"
						},
						"limit_price": {
							"type": "number",
							"description": "New limit price; omit to leave unchanged"
						},
						"stop_price": {
							"type": "number",
							"description": "New stop price; omit to leave unchanged"
						},
						"reason": {
							"type": "string",
							"description": "Optional reason for the modification, recorded on the trade plan"
						}
					},
					"required": ["order_id"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "cancel_order",
				Description: "Cancel a single order by its ID.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"order_id": {
							"type": "integer",
							"description": "The numeric order identifier to cancel"
						}
					},
					"required": ["order_id"]
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "cancel_all_orders",
				Description: "Cancel all open orders. Returns the count and IDs of cancelled orders.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
		// Order query tools
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_open_orders",
				Description: "List currently open orders, optionally filtered by symbol.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"symbol": {
							"type": "string",
							"description": "Optional ticker symbol to filter by"
						}
					}
				}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_order_detail",
				Description: "Retrieve full details for a single order including fills, average fill price, and commissions.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"order_id": {
							"type": "integer",
							"description": "The numeric order identifier"
						}
					},
					"required": ["order_id"]
				}`),
			},
		},
		// Trade plan tools
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "get_trade_plans",
				Description: "List all active trade plans with their original reason, modification history, and status.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "mark_order_filled",
				Description: "Mark a trade plan as filled and archive it.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"order_id": {
							"type": "integer",
							"description": "The numeric order identifier to mark as filled"
						},
						"reason": {
							"type": "string",
							"description": "Optional note about the fill (e.g. fill price)"
						}
					},
					"required": ["order_id"]
				}`),
			},
		},
	}
}
