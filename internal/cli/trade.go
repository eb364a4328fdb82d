package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// addOrderCommands wires the order command group. Order commands run
// through the tool executor so the safety gate, audit log, and journal
// all apply regardless of entry point.
func addOrderCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newOrderCmd(app))
}

func requireExecutor(app *App) error {
	if app.Executor == nil {
		return fmt.Errorf("broker not configured; check credentials or set trading.mode = \"paper\"")
	}
	return nil
}

// runTool executes a named tool and prints its text result.
func runTool(cmd *cobra.Command, app *App, toolName string, params map[string]interface{}) error {
	output := NewOutput(cmd)

	args, err := json.Marshal(params)
	if err != nil {
		return err
	}
	result, err := app.Executor.Execute(cmd.Context(), toolName, args)
	if err != nil {
		return err
	}

	if output.IsJSON() {
		return output.JSON(map[string]string{"result": result})
	}
	switch {
	case strings.HasPrefix(result, "Order BLOCKED"):
		output.Error("%s", result)
	case strings.HasPrefix(result, "Error"):
		output.Warning("%s", result)
	default:
		output.Println(result)
	}
	return nil
}

func newOrderCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Preview, place, and manage orders",
		Long: `Order management. Placement and preview run the full pre-trade
safety gate; a blocked order is never sent to the broker.`,
	}

	cmd.AddCommand(newOrderPreviewCmd(app))
	cmd.AddCommand(newOrderPlaceCmd(app))
	cmd.AddCommand(newOrderModifyCmd(app))
	cmd.AddCommand(newOrderCancelCmd(app))
	cmd.AddCommand(newOrderCancelAllCmd(app))
	cmd.AddCommand(newOrderOpenCmd(app))
	cmd.AddCommand(newOrderDetailCmd(app))
	return cmd
}

// orderParams parses the shared <symbol> <action> <qty> <type>
// positional arguments plus the price flags.
func orderParams(cmd *cobra.Command, args []string) (map[string]interface{}, error) {
	quantity, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q", args[2])
	}

	params := map[string]interface{}{
		"symbol":     strings.ToUpper(args[0]),
		"action":     strings.ToUpper(args[1]),
		"quantity":   float64(quantity),
		"order_type": strings.ToUpper(args[3]),
	}
	if cmd.Flags().Changed("limit") {
		v, _ := cmd.Flags().GetFloat64("limit")
		params["limit_price"] = v
	}
	if cmd.Flags().Changed("stop") {
		v, _ := cmd.Flags().GetFloat64("stop")
		params["stop_price"] = v
	}
	return params, nil
}

func newOrderPreviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <symbol> <BUY|SELL> <quantity> <MKT|LMT|STP|STP_LMT|TRAIL>",
		Short: "Preview an order without placing it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			params, err := orderParams(cmd, args)
			if err != nil {
				return err
			}
			return runTool(cmd, app, "preview_stock_order", params)
		},
	}
	cmd.Flags().Float64("limit", 0, "limit price (required for LMT, STP_LMT)")
	cmd.Flags().Float64("stop", 0, "stop price (required for STP, STP_LMT)")
	return cmd
}

func newOrderPlaceCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "place <symbol> <BUY|SELL> <quantity> <MKT|LMT|STP|STP_LMT|TRAIL>",
		Short: "Place an order after running all safety checks",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			if reason == "" {
				return fmt.Errorf("--reason is required: describe the trade thesis")
			}
			params, err := orderParams(cmd, args)
			if err != nil {
				return err
			}
			params["reason"] = reason
			return runTool(cmd, app, "place_stock_order", params)
		},
	}
	cmd.Flags().Float64("limit", 0, "limit price (required for LMT, STP_LMT)")
	cmd.Flags().Float64("stop", 0, "stop price (required for STP, STP_LMT)")
	cmd.Flags().StringVar(&reason, "reason", "", "trade rationale, persisted as the trade plan")
	return cmd
}

func newOrderModifyCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "modify <order-id>",
		Short: "Modify a working order",
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
			if cmd.Flags().Changed("quantity") {
				v, _ := cmd.Flags().GetInt("quantity")
				params["quantity"] = float64(v)
			}
			if cmd.Flags().Changed("limit") {
				v, _ := cmd.Flags().GetFloat64("limit")
				params["limit_price"] = v
			}
			if cmd.Flags().Changed("stop") {
				v, _ := cmd.Flags().GetFloat64("stop")
				params["stop_price"] = v
			}
			if reason != "" {
				params["reason"] = reason
			}
			return runTool(cmd, app, "modify_order", params)
		},
	}
	cmd.Flags().Int("quantity", 0, "new quantity")
	cmd.Flags().Float64("limit", 0, "new limit price")
	cmd.Flags().Float64("stop", 0, "new stop price")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the change, recorded on the trade plan")
	return cmd
}

func newOrderCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a working order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			return runTool(cmd, app, "cancel_order", map[string]interface{}{
				"order_id": float64(orderID),
			})
		},
	}
}

func newOrderCancelAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-all",
		Short: "Cancel every open order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			return runTool(cmd, app, "cancel_all_orders", map[string]interface{}{})
		},
	}
}

func newOrderOpenCmd(app *App) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "List open orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			params := map[string]interface{}{}
			if symbol != "" {
				params["symbol"] = strings.ToUpper(symbol)
			}
			return runTool(cmd, app, "get_open_orders", params)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by ticker symbol")
	return cmd
}

func newOrderDetailCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "detail <order-id>",
		Short: "Show full detail for one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireExecutor(app); err != nil {
				return err
			}
			orderID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order id %q", args[0])
			}
			return runTool(cmd, app, "get_order_detail", map[string]interface{}{
				"order_id": float64(orderID),
			})
		},
	}
}
