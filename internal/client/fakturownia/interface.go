package fakturownia

import "context"

//go:generate mockgen -source=interface.go -destination=../../mocks/mock_fakturownia.go -package=mocks

// API is the set of remote operations needed to invoice one order.
type API interface {
	// UpsertClient returns the id of the client matching the e-mail, creating
	// or updating it as needed.
	UpsertClient(ctx context.Context, client ClientData) (int64, error)
	// CreateInvoice creates the invoice and returns its id.
	CreateInvoice(ctx context.Context, invoice Invoice) (int64, error)
	SendInvoiceByEmail(ctx context.Context, invoiceID int64) error
	RegisterPayment(ctx context.Context, payment Payment) error
	UpsertProduct(ctx context.Context, product Product) error
}

var _ API = (*Client)(nil)
