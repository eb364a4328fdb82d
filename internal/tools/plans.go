package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tiger-trader/internal/safety"
)

func (e *Executor) executeGetTradePlans(_ context.Context) (string, error) {
	if e.plans == nil {
		return "Error: Trade plan store not initialised.", nil
	}

	plans := e.plans.ActivePlans()
	if len(plans) == 0 {
		return "No active trade plans.", nil
	}

	// Stable order for output
	ids := make([]int64, 0, len(plans))
	for id := range plans {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := []string{
		fmt.Sprintf("Active Trade Plans (%d)", len(plans)),
		strings.Repeat("=", 40),
	}
	for _, id := range ids {
		plan := plans[id]
		lines = append(lines,
			"",
			fmt.Sprintf("  Order ID:    %d", plan.OrderID),
			fmt.Sprintf("  Symbol:      %s", plan.Symbol),
			fmt.Sprintf("  Action:      %s", plan.Action),
			fmt.Sprintf("  Quantity:    %d", plan.Quantity),
			fmt.Sprintf("  Order Type:  %s", plan.OrderType),
		)
		if plan.LimitPrice != nil {
			lines = append(lines, fmt.Sprintf("  Limit Price: %s", fmtCurrency(*plan.LimitPrice)))
		}
		if plan.StopPrice != nil {
			lines = append(lines, fmt.Sprintf("  Stop Price:  %s", fmtCurrency(*plan.StopPrice)))
		}
		lines = append(lines,
			fmt.Sprintf("  Reason:      %s", plan.Reason),
			fmt.Sprintf("  Created:     %s", plan.CreatedAt.Format("2006-01-02 15:04:05")),
		)
		if len(plan.Modifications) > 0 {
			lines = append(lines, fmt.Sprintf("  Modifications: %d", len(plan.Modifications)))
			for _, mod := range plan.Modifications {
				keys := make([]string, 0, len(mod.Changes))
				for k := range mod.Changes {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				pairs := make([]string, 0, len(keys))
				for _, k := range keys {
					pairs = append(pairs, fmt.Sprintf("%s=%v", k, mod.Changes[k]))
				}
				lines = append(lines, fmt.Sprintf("    - %s", strings.Join(pairs, ", ")))
				if mod.Reason != "" {
					lines = append(lines, fmt.Sprintf("      Reason: %s", mod.Reason))
				}
			}
		}
		lines = append(lines, "  ---")
	}
	return strings.Join(lines, "\n"), nil
}

func (e *Executor) executeMarkOrderFilled(ctx context.Context, params map[string]interface{}) (string, error) {
	if e.plans == nil {
		return "Error: Trade plan store not initialised.", nil
	}

	orderID := int64(getIntParam(params, "order_id", 0))
	reason := getStringParam(params, "reason", "")

	plan := e.plans.Plan(orderID)
	if plan == nil {
		return fmt.Sprintf("Error: No trade plan found for order %d.", orderID), nil
	}

	if plan.Status == safety.PlanArchived {
		archiveReason := plan.ArchiveReason
		if archiveReason == "" {
			archiveReason = "N/A"
		}
		return fmt.Sprintf("Trade plan for order %d is already archived (reason: %s).", orderID, archiveReason), nil
	}

	archiveReason := reason
	if archiveReason == "" {
		archiveReason = "filled"
	}
	if err := e.plans.Archive(orderID, archiveReason); err != nil {
		return fmt.Sprintf("Error archiving trade plan for order %d: %v", orderID, err), nil
	}

	if e.audit != nil {
		e.audit.LogPlanArchived(ctx, orderID, archiveReason)
	}
	if e.journal != nil {
		if err := e.journal.RecordStatus(ctx, orderID, plan.Symbol, "FILLED"); err != nil {
			e.logger.Warn().Err(err).Int64("order_id", orderID).Msg("Failed to journal fill")
		}
	}

	lines := []string{
		"Trade Plan Archived (Filled)",
		"============================",
		fmt.Sprintf("  Order ID:  %d", plan.OrderID),
		fmt.Sprintf("  Symbol:    %s", plan.Symbol),
		fmt.Sprintf("  Action:    %s", plan.Action),
		fmt.Sprintf("  Quantity:  %d", plan.Quantity),
		fmt.Sprintf("  Reason:    %s", plan.Reason),
	}
	if reason != "" {
		lines = append(lines, fmt.Sprintf("  Fill Note: %s", reason))
	}
	return strings.Join(lines, "\n"), nil
}
