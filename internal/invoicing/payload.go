package invoicing

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	// PaymentDueDays is the number of days between issue date and payment_to.
	PaymentDueDays = 7

	// DefaultProductTax is used for catalog products without tax info.
	DefaultProductTax = 23

	paymentKindAPI = "api"
)

// Seller identifies the issuing company.
type Seller struct {
	Name  string
	TaxNo string
}

// InvoiceParams carries everything the invoice body needs besides the snapshot.
type InvoiceParams struct {
	Kind      string
	Seller    Seller
	ClientID  int64
	Positions []fakturownia.Position
	// Location is used to render dates. Nil means UTC.
	Location *time.Location
}

// NewInvoice builds the invoice body for a snapshot.
func NewInvoice(snap *order.Snapshot, p InvoiceParams) fakturownia.Invoice {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}

	issued := snap.InvoiceCreatedAt
	if issued.IsZero() {
		issued = snap.CreatedAt
	}

	showDiscount, discountKind := DiscountDisplay(p.Positions)

	return fakturownia.Invoice{
		Kind:          p.Kind,
		SellDate:      snap.CreatedAt.In(loc).Format(dateLayout),
		IssueDate:     issued.In(loc).Format(dateLayout),
		PaymentTo:     issued.In(loc).AddDate(0, 0, PaymentDueDays).Format(dateLayout),
		SellerName:    p.Seller.Name,
		SellerTaxNo:   p.Seller.TaxNo,
		BuyerName:     snap.Billing.DisplayName(),
		BuyerTaxNo:    snap.Billing.VATNumber,
		BuyerPostCode: snap.Billing.PostCode,
		BuyerCity:     snap.Billing.City,
		BuyerStreet:   snap.Billing.Street,
		BuyerCountry:  snap.Billing.CountryName,
		ClientID:      p.ClientID,
		Positions:     p.Positions,
		Currency:      snap.Currency,
		PaymentType:   MapPaymentMethod(snap.Payment.Name),
		ShowDiscount:  showDiscount,
		DiscountKind:  discountKind,
	}
}

// DiscountDisplay reports whether the invoice should show discounts. The
// first discounted position decides the discount kind.
func DiscountDisplay(positions []fakturownia.Position) (bool, string) {
	for _, pos := range positions {
		if pos.Discount != nil && *pos.Discount > 0 {
			return true, fakturownia.DiscountKindAmount
		}
		if pos.DiscountPercent != nil && *pos.DiscountPercent > 0 {
			return true, fakturownia.DiscountKindPercent
		}
	}
	return false, ""
}

// NewClient builds the client body from the billing address.
func NewClient(snap *order.Snapshot) fakturownia.ClientData {
	b := snap.Billing
	return fakturownia.ClientData{
		Name:     b.DisplayName(),
		TaxNo:    b.VATNumber,
		City:     b.City,
		Country:  b.CountryName,
		Email:    snap.CustomerEmail(),
		Person:   b.PersonName(),
		PostCode: b.PostCode,
		Phone:    b.Phone,
		Street:   b.Street,
	}
}

// NewPayment builds the banking payment registered against an invoice.
func NewPayment(snap *order.Snapshot, invoiceID int64, loc *time.Location) fakturownia.Payment {
	if loc == nil {
		loc = time.UTC
	}
	return fakturownia.Payment{
		Name:      "Płatność za zamówienie #" + strconv.FormatInt(snap.ID, 10),
		Price:     snap.FullPrice,
		InvoiceID: invoiceID,
		Paid:      true,
		PaidDate:  snap.CreatedAt.In(loc).Format(dateTimeLayout),
		Currency:  snap.Currency,
		Kind:      paymentKindAPI,
	}
}

// NewProduct builds the catalog entry for an order line.
func NewProduct(p order.Product) fakturownia.Product {
	tax := float64(DefaultProductTax)
	if p.TaxRate != nil {
		tax = decimal.NewFromFloat(*p.TaxRate).Mul(hundred).InexactFloat64()
	}
	return fakturownia.Product{
		Name:     StripTags(p.Name),
		Code:     p.CatalogCode(),
		PriceNet: p.Price,
		Tax:      tax,
	}
}
