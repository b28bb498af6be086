package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Dev72112/xlamaexchange/internal/engine"
	"github.com/Dev72112/xlamaexchange/internal/orders"

	xerr "github.com/Dev72112/xlamaexchange/internal/errors"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Manage standing limit orders",
}

var orderCreateFlags struct {
	chain      string
	fromToken  string
	toToken    string
	amount     string
	price      float64
	condition  string
	expiresIn  string
	stopLoss   float64
	takeProfit float64
}

var orderCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a limit order",
	Example: `  xlx orders create --chain ethereum \
    --from 0xC02a...Cc2:WETH:18 --to 0xA0b8...B48:USDC:6 \
    --amount 1.5 --price 3500 --condition above --stop-loss 2900`,
	RunE: runOrderCreate,
}

var orderListFlags struct {
	status string
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List limit orders",
	RunE:  runOrderList,
}

var orderCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel an active limit order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrderCancel,
}

var orderExportFlags struct {
	out string
}

var orderExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export orders as CSV",
	RunE:  runOrderExport,
}

var orderHistoryFlags struct {
	limit int
}

var orderHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent swap and bridge executions",
	RunE:  runOrderHistory,
}

func init() {
	f := orderCreateCmd.Flags()
	f.StringVar(&orderCreateFlags.chain, "chain", "ethereum", "chain slug or numeric id")
	f.StringVar(&orderCreateFlags.fromToken, "from", "", "token to sell (ADDRESS:SYMBOL:DECIMALS)")
	f.StringVar(&orderCreateFlags.toToken, "to", "", "token to buy (ADDRESS:SYMBOL:DECIMALS)")
	f.StringVar(&orderCreateFlags.amount, "amount", "", "human-readable amount")
	f.Float64Var(&orderCreateFlags.price, "price", 0, "target price")
	f.StringVar(&orderCreateFlags.condition, "condition", "above", "trigger when price is above or below the target")
	f.StringVar(&orderCreateFlags.expiresIn, "expires-in", "", "lifetime before the order expires (e.g. 72h); empty = never")
	f.Float64Var(&orderCreateFlags.stopLoss, "stop-loss", 0, "optional stop-loss price")
	f.Float64Var(&orderCreateFlags.takeProfit, "take-profit", 0, "optional take-profit price")
	_ = orderCreateCmd.MarkFlagRequired("from")
	_ = orderCreateCmd.MarkFlagRequired("to")
	_ = orderCreateCmd.MarkFlagRequired("amount")
	_ = orderCreateCmd.MarkFlagRequired("price")

	orderListCmd.Flags().StringVar(&orderListFlags.status, "status", "", "filter by status: active, triggered, cancelled or expired")
	orderExportCmd.Flags().StringVarP(&orderExportFlags.out, "out", "o", "", "output file (default stdout)")
	orderHistoryCmd.Flags().IntVar(&orderHistoryFlags.limit, "limit", 20, "number of entries to show")

	ordersCmd.AddCommand(orderCreateCmd)
	ordersCmd.AddCommand(orderListCmd)
	ordersCmd.AddCommand(orderCancelCmd)
	ordersCmd.AddCommand(orderExportCmd)
	ordersCmd.AddCommand(orderHistoryCmd)
}

func runOrderCreate(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	chainID, err := resolveChainID(orderCreateFlags.chain)
	if err != nil {
		return err
	}
	fromToken, err := parseToken(orderCreateFlags.fromToken)
	if err != nil {
		return err
	}
	toToken, err := parseToken(orderCreateFlags.toToken)
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if orderCreateFlags.expiresIn != "" {
		ttl, err := time.ParseDuration(orderCreateFlags.expiresIn)
		if err != nil {
			return xerr.Wrap(xerr.CodeUsage, "--expires-in", err)
		}
		deadline := time.Now().UTC().Add(ttl)
		expiresAt = &deadline
	}

	order, err := orders.New(chainID, fromToken, toToken, orderCreateFlags.amount,
		orderCreateFlags.price, orders.Condition(orderCreateFlags.condition), expiresAt)
	if err != nil {
		return xerr.Wrap(xerr.CodeUsage, "invalid order", err)
	}
	if orderCreateFlags.stopLoss > 0 {
		order.StopLossPrice = &orderCreateFlags.stopLoss
	}
	if orderCreateFlags.takeProfit > 0 {
		order.TakeProfitPrice = &orderCreateFlags.takeProfit
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Create(cmd.Context(), order); err != nil {
		return err
	}
	if settings.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(order)
	}
	color.Green("Order created: %s", order.ID)
	fmt.Printf("  %s %s when price %s %g\n", order.Amount, order.Pair(), order.Condition, order.TargetPrice)
	return nil
}

func runOrderList(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	var list []orders.LimitOrder
	if orderListFlags.status != "" {
		list, err = store.ListByStatus(cmd.Context(), orders.Status(orderListFlags.status))
	} else {
		list, err = store.List(cmd.Context())
	}
	if err != nil {
		return err
	}

	if settings.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(list)
	}
	if len(list) == 0 {
		fmt.Println("No orders.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPAIR\tAMOUNT\tTARGET\tCONDITION\tSTATUS\tEXPIRES")
	for _, order := range list {
		expiry := "never"
		if order.ExpiresAt != nil {
			expiry = order.ExpiresAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\t%s\t%s\n",
			order.ID, order.Pair(), order.Amount, order.TargetPrice,
			order.Condition, colorStatus(order.Status), expiry)
	}
	return w.Flush()
}

func colorStatus(status orders.Status) string {
	switch status {
	case orders.StatusActive:
		return color.YellowString(string(status))
	case orders.StatusTriggered:
		return color.GreenString(string(status))
	case orders.StatusCancelled, orders.StatusExpired:
		return color.HiBlackString(string(status))
	}
	return string(status)
}

func runOrderCancel(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	id := args[0]
	if err := store.Transition(cmd.Context(), id, orders.StatusActive, orders.StatusCancelled, nil); err != nil {
		if errors.Is(err, orders.ErrConflict) {
			return xerr.Wrap(xerr.CodeUsage, "order is no longer active", err)
		}
		return err
	}
	color.Green("Order cancelled: %s", id)
	return nil
}

func runOrderExport(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	out := os.Stdout
	if orderExportFlags.out != "" {
		f, err := os.Create(orderExportFlags.out)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return orders.WriteCSV(out, list)
}

func runOrderHistory(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	journal, err := engine.OpenJournal(settings.JournalPath)
	if err != nil {
		return err
	}
	defer journal.Close()

	records, err := journal.Recent(orderHistoryFlags.limit)
	if err != nil {
		return err
	}
	if settings.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(records)
	}
	if len(records) == 0 {
		fmt.Println("No executions recorded.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tKIND\tPAIR\tAMOUNT\tSTATUS\tTX")
	for _, rec := range records {
		tx := rec.TxHash
		if tx == "" {
			tx = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.RecordedAt.Format(time.RFC3339), rec.Kind, rec.Pair, rec.Amount, rec.Status, tx)
	}
	return w.Flush()
}
