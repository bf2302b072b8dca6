package fakturownia

import "context"

// RegisterPayment records a banking payment against an invoice.
func (c *Client) RegisterPayment(ctx context.Context, payment Payment) error {
	resp, err := c.httpClient.Post(ctx, "/banking/payments.json", paymentRequest{APIToken: c.apiToken, Payment: payment})
	if err != nil {
		drain(resp)
		return asAPIError("register payment", err)
	}
	defer drain(resp)

	if !isCreated(resp) {
		return newAPIError("register payment", resp.StatusCode, "unexpected status")
	}
	return nil
}
