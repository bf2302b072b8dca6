// Package invoicing turns an order snapshot into Fakturownia payloads: the
// document kind, the invoice positions and the client, invoice, payment and
// product bodies.
package invoicing

import (
	"strings"

	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

// Mode is the configured invoicing mode.
type Mode string

const (
	ModeVAT     Mode = "vat"
	ModeReceipt Mode = "receipt"
	ModeAuto    Mode = "auto"
)

// ParseMode maps a configuration value onto a Mode. Unknown values are
// treated as auto.
func ParseMode(v string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case ModeVAT:
		return ModeVAT
	case ModeReceipt:
		return ModeReceipt
	default:
		return ModeAuto
	}
}

// ResolveKind picks between a VAT invoice and a receipt. Explicit customer
// intent wins over the configured mode; auto mode issues a VAT invoice only
// to buyers with a tax id.
func ResolveKind(customerWantsInvoice bool, mode Mode, buyerHasTaxID bool) string {
	if customerWantsInvoice {
		return fakturownia.KindVAT
	}

	switch mode {
	case ModeVAT:
		return fakturownia.KindVAT
	case ModeReceipt:
		return fakturownia.KindReceipt
	}

	if buyerHasTaxID {
		return fakturownia.KindVAT
	}
	return fakturownia.KindReceipt
}

// CustomerWantsInvoice checks the invoice_request flag on the triggering
// order, then the billing address, then the customer record.
func CustomerWantsInvoice(triggerFlag bool, snap *order.Snapshot) bool {
	if triggerFlag || snap.InvoiceRequested {
		return true
	}
	if snap.Billing.InvoiceRequested {
		return true
	}
	return snap.Customer.InvoiceRequested
}

// KindFor resolves the document kind for a snapshot.
func KindFor(triggerFlag bool, snap *order.Snapshot, mode Mode) string {
	return ResolveKind(CustomerWantsInvoice(triggerFlag, snap), mode, snap.Billing.HasTaxID())
}
