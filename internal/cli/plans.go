package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// addPlanCommands wires the trade plan command group.
func addPlanCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPlansCmd(app))
}

func requirePlans(app *App) error {
	if app.Plans == nil {
		return fmt.Errorf("trade plan store unavailable")
	}
	return nil
}

func newPlansCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect and manage trade plans",
		Long: `Trade plans record the rationale behind every placed order. Plans
stay active until the order fills or is abandoned, then move to the
archive with a reason.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active trade plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePlans(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			plans := app.Plans.ActivePlans()
			if output.IsJSON() {
				return output.JSON(plans)
			}
			if len(plans) == 0 {
				output.Println("No active trade plans.")
				return nil
			}

			for _, plan := range plans {
				output.Bold("Order %d  %s %s %d (%s)", plan.OrderID, plan.Action, plan.Symbol, plan.Quantity, plan.OrderType)
				if plan.LimitPrice != nil {
					output.Printf("  Limit:    %s\n", FormatCurrency(*plan.LimitPrice))
				}
				if plan.StopPrice != nil {
					output.Printf("  Stop:     %s\n", FormatCurrency(*plan.StopPrice))
				}
				output.Printf("  Reason:   %s\n", plan.Reason)
				output.Printf("  Created:  %s\n", plan.CreatedAt.Format("2006-01-02 15:04:05"))
				if len(plan.Modifications) > 0 {
					output.Printf("  Modified: %d time(s)\n", len(plan.Modifications))
				}
				output.Println()
			}
			return nil
		},
	})

	var fillNote string
	markFilledCmd := &cobra.Command{
		Use:   "mark-filled <order-id>",
		Short: "Archive a plan as filled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			params := map[string]interface{}{"order_id": float64(orderID)}
			if fillNote != "" {
				params["reason"] = fillNote
			}
			return runTool(cmd, app, "mark_order_filled", params)
		},
	}
	markFilledCmd.Flags().StringVar(&fillNote, "note", "", "note about the fill")
	cmd.AddCommand(markFilledCmd)

	var archiveReason string
	archiveCmd := &cobra.Command{
		Use:   "archive <order-id>",
		Short: "Archive a plan with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePlans(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			plan := app.Plans.Plan(orderID)
			if plan == nil {
				return fmt.Errorf("no trade plan found for order %d", orderID)
			}

			if err := app.Plans.Archive(orderID, archiveReason); err != nil {
				return fmt.Errorf("archiving plan: %w", err)
			}
			if app.Audit != nil {
				app.Audit.LogPlanArchived(cmd.Context(), orderID, archiveReason)
			}
			output.Success("Archived plan for order %d (%s)", orderID, archiveReason)
			return nil
		},
	}
	archiveCmd.Flags().StringVar(&archiveReason, "reason", "cancelled", "archive reason")
	cmd.AddCommand(archiveCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "archive-all",
		Short: "Archive every active plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePlans(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			count := len(app.Plans.ActivePlans())
			if count == 0 {
				output.Println("No active trade plans.")
				return nil
			}
			if err := app.Plans.ArchiveAll("bulk archive"); err != nil {
				return fmt.Errorf("archiving plans: %w", err)
			}
			output.Success("Archived %d plan(s)", count)
			return nil
		},
	})

	return cmd
}
