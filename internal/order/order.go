// Package order holds the read-only view of a HikaShop order that the
// invoicing pipeline works on.
package order

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by loaders for an unknown order id.
var ErrNotFound = errors.New("order not found")

// StatusConfirmed is the only order status that triggers invoicing.
const StatusConfirmed = "confirmed"

// DefaultCurrency is used when the order carries no parseable currency info.
const DefaultCurrency = "PLN"

// NoEmail replaces a missing customer e-mail in remote payloads.
const NoEmail = "Brak danych"

// Metadata keys written into order_params.
const (
	MetaDocumentID = "fakturownia_document_id"
	MetaProcessed  = "fakturownia_processed"
)

// Snapshot is a fully hydrated order at processing time. It is rebuilt on
// every invocation and never mutated by the pipeline.
type Snapshot struct {
	ID               int64
	Status           string
	CreatedAt        time.Time
	InvoiceCreatedAt time.Time
	Currency         string
	FullPrice        float64
	InvoiceRequested bool
	DiscountCode     string
	DiscountPrice    float64
	DiscountTax      float64
	Metadata         Metadata
	Billing          Address
	Shipping         Address
	Customer         Customer
	Products         []Product
	Shipments        []Shipment
	Payment          PaymentInfo
}

// Metadata is the decoded order_params blob.
type Metadata struct {
	DocumentID int64
	Processed  string
	// Raw keeps every key so that a read-modify-write preserves foreign entries.
	Raw map[string]interface{}
}

// Address is a billing or shipping address.
type Address struct {
	Company          string
	FirstName        string
	LastName         string
	VATNumber        string
	Street           string
	City             string
	PostCode         string
	CountryName      string
	Phone            string
	InvoiceRequested bool
}

// Customer is the HikaShop user attached to the order.
type Customer struct {
	Email            string
	CMSUserID        int64
	InvoiceRequested bool
}

// DiscountInfo is the per-unit discount a product line carries.
type DiscountInfo struct {
	FlatAmount    float64
	PercentAmount float64
}

// Product is one order_product row.
type Product struct {
	ID                  int64
	OrderID             int64
	Name                string
	Code                string
	Quantity            float64
	Price               float64
	PriceBeforeDiscount float64
	// TaxRate is the first applicable rate as a fraction (0.23). Nil when the
	// line has no tax info.
	TaxRate        *float64
	Discount       *DiscountInfo
	OptionParentID int64
}

// Shipment is one shipping line with every tax field HikaShop may provide.
type Shipment struct {
	Name  string
	Price float64
	// ExplicitTax is order_shipping_tax, already a percentage.
	ExplicitTax *float64
	// TaxInfoRate is the first shipping_tax_info rate as a fraction.
	TaxInfoRate *float64
	// LegacyTax is shipping_tax, either a fraction or a percentage.
	LegacyTax *float64
}

// PaymentInfo describes the payment method and its surcharge.
type PaymentInfo struct {
	Name  string
	Price float64
}

// AlreadyInvoiced reports whether a remote document id was persisted.
func (s *Snapshot) AlreadyInvoiced() bool {
	return s.Metadata.DocumentID != 0
}

// CustomerEmail returns the customer e-mail or the NoEmail sentinel.
func (s *Snapshot) CustomerEmail() string {
	if e := strings.TrimSpace(s.Customer.Email); e != "" {
		return e
	}
	return NoEmail
}

// DisplayName is the company name, or "first last" for private buyers.
func (a Address) DisplayName() string {
	if strings.TrimSpace(a.Company) != "" {
		return a.Company
	}
	return a.PersonName()
}

// PersonName joins first and last name the way HikaShop prints it.
func (a Address) PersonName() string {
	return a.FirstName + " " + a.LastName
}

// HasTaxID reports whether the buyer supplied a VAT number.
func (a Address) HasTaxID() bool {
	return strings.TrimSpace(a.VATNumber) != ""
}

// IsBundleChild reports whether the line is a zero priced option of a bundle.
func (p Product) IsBundleChild() bool {
	return p.OptionParentID != 0 && p.Price <= 0
}

// CatalogCode returns the product code or a code unique to this order line.
func (p Product) CatalogCode() string {
	if c := strings.TrimSpace(p.Code); c != "" {
		return p.Code
	}
	return "order_" + strconv.FormatInt(p.OrderID, 10) + "_prod_" + strconv.FormatInt(p.ID, 10)
}
