package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tiger-trader/internal/broker"
	"tiger-trader/internal/logging"
	"tiger-trader/internal/models"
	"tiger-trader/internal/safety"
)

// brokerModification packs the optional modify_order params for the
// broker call.
func brokerModification(quantity *int, limitPrice, stopPrice *float64) broker.OrderModification {
	return broker.OrderModification{
		Quantity:   quantity,
		LimitPrice: limitPrice,
		StopPrice:  stopPrice,
	}
}

// buyingPowerBuffer mirrors the 1% margin used by the pre-trade checks
// when estimating the cost of a quantity increase.
const buyingPowerBuffer = 1.01

// parseOrderRequest builds an OrderRequest from tool params and
// validates it.
func parseOrderRequest(params map[string]interface{}) (models.OrderRequest, error) {
	req := models.OrderRequest{
		Symbol:     strings.TrimSpace(getStringParam(params, "symbol", "")),
		Action:     models.OrderSide(getStringParam(params, "action", "")),
		Quantity:   getIntParam(params, "quantity", 0),
		OrderType:  models.OrderType(getStringParam(params, "order_type", "")),
		LimitPrice: getFloatPtrParam(params, "limit_price"),
		StopPrice:  getFloatPtrParam(params, "stop_price"),
	}
	if err := req.Validate(); err != nil {
		return models.OrderRequest{}, err
	}
	return req, nil
}

// runSafety fetches the account snapshot, positions, and latest quote,
// then evaluates all pre-trade checks for req. The quote fetch is
// best-effort: price-dependent checks skip silently when no estimate
// exists.
func (e *Executor) runSafety(ctx context.Context, req models.OrderRequest) (safety.SafetyResult, *float64, error) {
	summary, positions, err := e.broker.GetAssets(ctx)
	if err != nil {
		return safety.SafetyResult{}, nil, err
	}

	var lastPrice *float64
	if quote, err := e.broker.GetQuote(ctx, req.Symbol); err == nil {
		lastPrice = &quote.Latest
	}

	order := safety.OrderParams{
		Symbol:     req.Symbol,
		Action:     string(req.Action),
		Quantity:   req.Quantity,
		OrderType:  string(req.OrderType),
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		LastPrice:  lastPrice,
	}
	account := safety.AccountInfo{
		CashBalance:    summary.CashBalance,
		NetLiquidation: summary.NetLiquidation,
	}
	positionInfos := make([]safety.PositionInfo, 0, len(positions))
	for _, p := range positions {
		positionInfos = append(positionInfos, safety.PositionInfo{
			Symbol:   p.Symbol,
			Quantity: p.Quantity,
		})
	}

	result := safety.RunChecks(order, account, positionInfos, e.limits, e.state)
	return result, lastPrice, nil
}

func (e *Executor) executePreviewStockOrder(ctx context.Context, params map[string]interface{}) (string, error) {
	req, err := parseOrderRequest(params)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}

	safetyResult, lastPrice, err := e.runSafety(ctx, req)
	if err != nil {
		return fmt.Sprintf("Error fetching market data: %v", err), nil
	}

	preview, err := e.broker.PreviewOrder(ctx, req)
	if err != nil {
		return fmt.Sprintf("Error previewing order: %v", err), nil
	}

	lines := []string{
		"Order Preview",
		"=============",
		fmt.Sprintf("  Symbol:          %s", req.Symbol),
		fmt.Sprintf("  Action:          %s", req.Action),
		fmt.Sprintf("  Quantity:        %d", req.Quantity),
		fmt.Sprintf("  Order Type:      %s", req.OrderType),
	}
	if req.LimitPrice != nil {
		lines = append(lines, fmt.Sprintf("  Limit Price:     %s", fmtCurrency(*req.LimitPrice)))
	}
	if req.StopPrice != nil {
		lines = append(lines, fmt.Sprintf("  Stop Price:      %s", fmtCurrency(*req.StopPrice)))
	}
	if lastPrice != nil {
		lines = append(lines, fmt.Sprintf("  Last Price:      %s", fmtCurrency(*lastPrice)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("  Estimated Cost:  %s", fmtCurrency(preview.EstimatedCost)),
		fmt.Sprintf("  Commission:      %s", fmtCurrency(preview.Commission)),
	)

	if safetyText := formatSafetyResult(safetyResult); safetyText != "" {
		lines = append(lines, "", safetyText)
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executePlaceStockOrder(ctx context.Context, params map[string]interface{}) (string, error) {
	req, err := parseOrderRequest(params)
	if err != nil {
		return fmt.Sprintf("Error: %v", err), nil
	}
	reason := getStringParam(params, "reason", "")

	safetyResult, _, err := e.runSafety(ctx, req)
	if err != nil {
		return fmt.Sprintf("Error fetching market data: %v", err), nil
	}

	// Any safety error blocks submission; warnings do not.
	if !safetyResult.Passed {
		logging.LogOrderBlocked(e.logger, req.Symbol, string(req.Action), req.Quantity, safetyResult.Errors)
		if e.audit != nil {
			e.audit.LogOrderBlocked(ctx, req.Symbol, string(req.Action), req.Quantity, safetyResult.Errors)
		}

		lines := []string{
			"Order BLOCKED by safety checks",
			"==============================",
		}
		if safetyText := formatSafetyResult(safetyResult); safetyText != "" {
			lines = append(lines, "", safetyText)
		}
		return strings.Join(lines, "\n"), nil
	}

	result, err := e.broker.PlaceOrder(ctx, req)
	if err != nil {
		return fmt.Sprintf("Error placing order: %v", err), nil
	}

	fingerprint := safety.Fingerprint(req.Symbol, string(req.Action), req.Quantity, string(req.OrderType), req.LimitPrice)
	if err := e.state.RecordOrder(fingerprint); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to record order fingerprint")
	}

	// Plan persistence is best-effort; the order is already live.
	if e.plans != nil {
		_, planErr := e.plans.Create(safety.PlanRequest{
			OrderID:    result.OrderID,
			Symbol:     req.Symbol,
			Action:     string(req.Action),
			Quantity:   req.Quantity,
			OrderType:  string(req.OrderType),
			Reason:     reason,
			LimitPrice: req.LimitPrice,
			StopPrice:  req.StopPrice,
		})
		if planErr != nil {
			e.logger.Warn().Err(planErr).Int64("order_id", result.OrderID).Msg("Failed to persist trade plan")
		} else if e.audit != nil {
			e.audit.LogPlanCreated(ctx, result.OrderID, req.Symbol, reason)
		}
	}

	logging.LogOrderPlaced(e.logger, result.OrderID, req.Symbol, string(req.Action), req.Quantity)
	if e.audit != nil {
		e.audit.LogOrderPlaced(ctx, result.OrderID, req.Symbol, string(req.Action), req.Quantity, string(req.OrderType), safetyResult.Warnings)
	}
	if e.journal != nil {
		if err := e.journal.RecordOrder(ctx, *result, safetyResult.Warnings); err != nil {
			e.logger.Warn().Err(err).Int64("order_id", result.OrderID).Msg("Failed to journal order")
		}
	}

	lines := []string{
		"Order Placed Successfully",
		"=========================",
		fmt.Sprintf("  Order ID:    %d", result.OrderID),
		fmt.Sprintf("  Symbol:      %s", result.Symbol),
		fmt.Sprintf("  Action:      %s", result.Action),
		fmt.Sprintf("  Quantity:    %d", result.Quantity),
		fmt.Sprintf("  Order Type:  %s", result.OrderType),
		fmt.Sprintf("  Reason:      %s", reason),
	}
	if safetyText := formatSafetyResult(safetyResult); safetyText != "" {
		lines = append(lines, "", safetyText)
	}
	return strings.Join(lines, "\n"), nil
}

// checkBuyingPowerForIncrease warns when a quantity increase on a BUY
// limit order would cost more than the available cash. Returns an empty
// string when no warning applies.
func (e *Executor) checkBuyingPowerForIncrease(ctx context.Context, detail *models.OrderDetail, newQuantity int) string {
	if newQuantity <= detail.Quantity {
		return ""
	}
	if detail.Action != models.Buy {
		return ""
	}
	if detail.LimitPrice == nil {
		return ""
	}

	additionalQty := newQuantity - detail.Quantity
	additionalCost := float64(additionalQty) * *detail.LimitPrice * buyingPowerBuffer

	summary, err := e.broker.GetAccountSummary(ctx)
	if err != nil {
		return "Warning: Could not verify buying power. Proceeding with modification."
	}
	if additionalCost > summary.CashBalance {
		return fmt.Sprintf(
			"Warning: Insufficient buying power for quantity increase. Additional cost %s (incl. 1%% buffer) exceeds cash %s.",
			fmtCurrency(additionalCost), fmtCurrency(summary.CashBalance))
	}
	return ""
}

func (e *Executor) executeModifyOrder(ctx context.Context, params map[string]interface{}) (string, error) {
	orderID := int64(getIntParam(params, "order_id", 0))
	quantity := getIntPtrParam(params, "quantity")
	limitPrice := getFloatPtrParam(params, "limit_price")
	stopPrice := getFloatPtrParam(params, "stop_price")
	reason := getStringParam(params, "reason", "")

	if quantity == nil && limitPrice == nil && stopPrice == nil {
		return "Error: No modification parameters provided. Specify at least one of: quantity, limit_price, stop_price.", nil
	}

	// Fetch current order details to validate it exists and is
	// modifiable.
	detail, err := e.broker.GetOrderDetail(ctx, orderID)
	if err != nil {
		return fmt.Sprintf("Error: Could not retrieve order %d. Please verify the order ID is correct.", orderID), nil
	}

	var warnings []string
	if quantity != nil {
		if warning := e.checkBuyingPowerForIncrease(ctx, detail, *quantity); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	mod := brokerModification(quantity, limitPrice, stopPrice)
	if err := e.broker.ModifyOrder(ctx, orderID, mod); err != nil {
		return fmt.Sprintf("Error: Failed to modify order %d. The order may no longer be modifiable.", orderID), nil
	}

	changes := make(map[string]interface{})
	var modifications []string
	if quantity != nil {
		changes["quantity"] = *quantity
		modifications = append(modifications, fmt.Sprintf("quantity=%d", *quantity))
	}
	if limitPrice != nil {
		changes["limit_price"] = *limitPrice
		modifications = append(modifications, "limit_price="+strconv.FormatFloat(*limitPrice, 'f', -1, 64))
	}
	if stopPrice != nil {
		changes["stop_price"] = *stopPrice
		modifications = append(modifications, "stop_price="+strconv.FormatFloat(*stopPrice, 'f', -1, 64))
	}

	if e.plans != nil {
		if err := e.plans.RecordModification(orderID, changes, reason); err != nil {
			e.logger.Warn().Err(err).Int64("order_id", orderID).Msg("Failed to record plan modification")
		}
	}
	if e.audit != nil {
		e.audit.LogOrderModified(ctx, orderID, changes)
	}
	if e.journal != nil {
		if err := e.journal.RecordStatus(ctx, orderID, detail.Symbol, "MODIFIED"); err != nil {
			e.logger.Warn().Err(err).Int64("order_id", orderID).Msg("Failed to journal modification")
		}
	}

	lines := []string{
		"Order Modified Successfully",
		"===========================",
		fmt.Sprintf("  Order ID: %d", orderID),
		fmt.Sprintf("  Symbol: %s", detail.Symbol),
		fmt.Sprintf("  Changes: %s", strings.Join(modifications, ", ")),
		"",
		"Original Order:",
		formatOrderSummary(*detail),
	}
	if len(warnings) > 0 {
		lines = append(lines, "")
		lines = append(lines, warnings...)
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeCancelOrder(ctx context.Context, params map[string]interface{}) (string, error) {
	orderID := int64(getIntParam(params, "order_id", 0))

	// Fetch order detail to validate it exists and is cancellable.
	detail, err := e.broker.GetOrderDetail(ctx, orderID)
	if err != nil {
		return fmt.Sprintf("Error: Could not retrieve order %d. Please verify the order ID is correct.", orderID), nil
	}

	if err := e.broker.CancelOrder(ctx, orderID); err != nil {
		if e.audit != nil {
			e.audit.LogOrderCancelled(ctx, orderID, false, err.Error())
		}
		return fmt.Sprintf("Error: Failed to cancel order %d. The order may already be cancelled or filled.", orderID), nil
	}

	if e.audit != nil {
		e.audit.LogOrderCancelled(ctx, orderID, true, "")
	}
	if e.journal != nil {
		if err := e.journal.RecordStatus(ctx, orderID, detail.Symbol, "CANCELLED"); err != nil {
			e.logger.Warn().Err(err).Int64("order_id", orderID).Msg("Failed to journal cancellation")
		}
	}

	lines := []string{
		"Order Cancelled Successfully",
		"============================",
		fmt.Sprintf("  Order ID: %d", orderID),
		fmt.Sprintf("  Symbol: %s", detail.Symbol),
		fmt.Sprintf("  Action: %s", detail.Action),
		fmt.Sprintf("  Quantity: %d", detail.Quantity),
		fmt.Sprintf("  Order Type: %s", detail.OrderType),
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeCancelAllOrders(ctx context.Context) (string, error) {
	orders, err := e.broker.GetOpenOrders(ctx)
	if err != nil {
		return "Error: Failed to cancel orders. Please try again.", nil
	}
	if len(orders) == 0 {
		return "No open orders to cancel.", nil
	}

	var cancelled []string
	for _, order := range orders {
		if err := e.broker.CancelOrder(ctx, order.OrderID); err != nil {
			e.logger.Warn().Err(err).Int64("order_id", order.OrderID).Msg("Failed to cancel order")
			if e.audit != nil {
				e.audit.LogOrderCancelled(ctx, order.OrderID, false, err.Error())
			}
			continue
		}
		cancelled = append(cancelled, strconv.FormatInt(order.OrderID, 10))
		if e.audit != nil {
			e.audit.LogOrderCancelled(ctx, order.OrderID, true, "")
		}
	}

	if len(cancelled) == 0 {
		return "Error: Failed to cancel orders. Please try again.", nil
	}

	lines := []string{
		"All Orders Cancelled",
		"====================",
		fmt.Sprintf("  Cancelled: %d order(s)", len(cancelled)),
		fmt.Sprintf("  Order IDs: %s", strings.Join(cancelled, ", ")),
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeGetOpenOrders(ctx context.Context, params map[string]interface{}) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(getStringParam(params, "symbol", "")))

	orders, err := e.broker.GetOpenOrders(ctx)
	if err != nil {
		return fmt.Sprintf("Error retrieving open orders: %v", err), nil
	}

	if symbol != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Symbol == symbol {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	if len(orders) == 0 {
		return "No open orders.", nil
	}

	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		lines = append(lines, formatOrderLine(o))
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeGetOrderDetail(ctx context.Context, params map[string]interface{}) (string, error) {
	orderID := int64(getIntParam(params, "order_id", 0))

	detail, err := e.broker.GetOrderDetail(ctx, orderID)
	if err != nil {
		return fmt.Sprintf("Error: Could not retrieve order %d. Please verify the order ID is correct.", orderID), nil
	}
	return formatOrderDetail(*detail), nil
}
