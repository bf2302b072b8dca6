package fakturownia

import (
	"context"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// CreateInvoice creates an invoice and returns its remote id. The call is
// never retried.
func (c *Client) CreateInvoice(ctx context.Context, invoice Invoice) (int64, error) {
	resp, err := c.httpClient.Post(ctx, "/invoices.json", invoiceRequest{APIToken: c.apiToken, Invoice: invoice})
	if err != nil {
		drain(resp)
		return 0, asAPIError("create invoice", err)
	}
	if !isCreated(resp) {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return 0, newAPIError("create invoice", resp.StatusCode, string(body))
	}

	created, err := decodeResource(resp)
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode created invoice")
	}
	if created.ID == 0 {
		return 0, errors.Wrap(ErrMissingID, "create invoice")
	}

	logger.Info("created invoice", zap.Int64("invoice_id", created.ID), zap.String("kind", invoice.Kind))
	return created.ID, nil
}

// SendInvoiceByEmail asks Fakturownia to mail the invoice to the client.
func (c *Client) SendInvoiceByEmail(ctx context.Context, invoiceID int64) error {
	path := "/invoices/" + strconv.FormatInt(invoiceID, 10) + "/send_by_email.json"
	resp, err := c.httpClient.Post(ctx, path, nil, c.tokenParam())
	if err != nil {
		drain(resp)
		return asAPIError("send invoice by email", err)
	}
	defer drain(resp)

	if !isCreated(resp) {
		return newAPIError("send invoice by email", resp.StatusCode, "unexpected status")
	}
	return nil
}
