package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pablop76/hikashop-fakturownia/internal/app"
	"github.com/pablop76/hikashop-fakturownia/internal/handlers"
	"github.com/pablop76/hikashop-fakturownia/internal/processor"
)

var processInvoiceRequested bool

var processCmd = &cobra.Command{
	Use:   "process [order-id]",
	Short: "Invoice one order now",
	Long: `Run the invoicing pipeline for a single order, exactly as an "order updated"
event would. Orders that are not confirmed or already carry a Fakturownia
document id are skipped.`,
	Example: `  # Invoice order 1234
  invoicectl process 1234

  # Treat the order as if the customer asked for a VAT invoice
  invoicectl process 1234 --invoice-requested`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processInvoiceRequested, "invoice-requested", false, "set the invoice_request flag on the trigger")
}

func parseOrderID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid order id %q", arg)
	}
	return id, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	orderID, err := parseOrderID(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := app.Bootstrap(ctx)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	out := a.Processor.Process(ctx, processor.Trigger{
		OrderID:          orderID,
		InvoiceRequested: processInvoiceRequested,
		CorrelationID:    "invoicectl",
	})
	return printOutcome(cmd, out)
}

func printOutcome(cmd *cobra.Command, out processor.Outcome) error {
	resp := handlers.WebhookResponse{
		Status:    string(out.State),
		OrderID:   out.OrderID,
		InvoiceID: out.InvoiceID,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	if out.Err != nil {
		return fmt.Errorf("order %d failed", out.OrderID)
	}
	return nil
}
