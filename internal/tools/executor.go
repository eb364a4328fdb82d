package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tiger-trader/internal/broker"
	"tiger-trader/internal/journal"
	"tiger-trader/internal/logging"
	"tiger-trader/internal/safety"
	"tiger-trader/internal/security"
)

// Executor runs tool calls against the broker behind the safety gate.
// All dependencies are injected; Audit and Journal may be nil, in which
// case the corresponding records are skipped.
type Executor struct {
	broker  broker.Broker
	state   *safety.DailyState
	plans   *safety.TradePlanStore
	limits  safety.Limits
	audit   *security.AuditLogger
	journal *journal.Journal
	logger  zerolog.Logger
}

// ExecutorConfig carries the dependencies for NewExecutor.
type ExecutorConfig struct {
	Broker  broker.Broker
	State   *safety.DailyState
	Plans   *safety.TradePlanStore
	Limits  safety.Limits
	Audit   *security.AuditLogger
	Journal *journal.Journal
	Logger  zerolog.Logger
}

// NewExecutor creates a tool executor with the given dependencies.
func NewExecutor(cfg ExecutorConfig) *Executor {
	return &Executor{
		broker:  cfg.Broker,
		state:   cfg.State,
		plans:   cfg.Plans,
		limits:  cfg.Limits,
		audit:   cfg.Audit,
		journal: cfg.Journal,
		logger:  cfg.Logger,
	}
}

// Execute runs the named tool and returns its text result. Tool-level
// failures (validation, broker errors) are reported in the returned
// string so the LLM can react to them; the error return is reserved for
// malformed arguments and unknown tool names.
func (e *Executor) Execute(ctx context.Context, toolName string, args json.RawMessage) (string, error) {
	var params map[string]interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("failed to parse tool arguments: %w", err)
		}
	}

	start := time.Now()
	result, err := e.dispatch(ctx, toolName, params)
	logging.LogToolCall(e.logger, toolName, time.Since(start), err)
	return result, err
}

func (e *Executor) dispatch(ctx context.Context, toolName string, params map[string]interface{}) (string, error) {
	switch toolName {
	case "get_account_summary":
		return e.executeGetAccountSummary(ctx)
	case "get_buying_power":
		return e.executeGetBuyingPower(ctx)
	case "get_positions":
		return e.executeGetPositions(ctx)
	case "get_transaction_history":
		return e.executeGetTransactionHistory(ctx, params)
	case "get_stock_quote":
		return e.executeGetStockQuote(ctx, params)
	case "get_stock_quotes":
		return e.executeGetStockQuotes(ctx, params)
	case "get_stock_bars":
		return e.executeGetStockBars(ctx, params)
	case "preview_stock_order":
		return e.executePreviewStockOrder(ctx, params)
	case "place_stock_order":
		return e.executePlaceStockOrder(ctx, params)
	case "modify_order":
		return e.executeModifyOrder(ctx, params)
	case "cancel_order":
		return e.executeCancelOrder(ctx, params)
	case "cancel_all_orders":
		return e.executeCancelAllOrders(ctx)
	case "get_open_orders":
		return e.executeGetOpenOrders(ctx, params)
	case "get_order_detail":
		return e.executeGetOrderDetail(ctx, params)
	case "get_trade_plans":
		return e.executeGetTradePlans(ctx)
	case "mark_order_filled":
		return e.executeMarkOrderFilled(ctx, params)
	default:
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}
}

// Helper to get string param with default
func getStringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return defaultVal
}

// Helper to get int param with default
func getIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key].(float64); ok {
		return int(v)
	}
	return defaultVal
}

// Helper to get an optional int param; nil when absent
func getIntPtrParam(params map[string]interface{}, key string) *int {
	if v, ok := params[key].(float64); ok {
		n := int(v)
		return &n
	}
	return nil
}

// Helper to get an optional float param; nil when absent
func getFloatPtrParam(params map[string]interface{}, key string) *float64 {
	if v, ok := params[key].(float64); ok {
		return &v
	}
	return nil
}
