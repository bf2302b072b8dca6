package fakturownia

// Document kinds accepted by the invoices endpoint.
const (
	KindVAT     = "vat"
	KindReceipt = "receipt"
)

// Discount kinds for invoices that show per-position discounts.
const (
	DiscountKindAmount  = "amount"
	DiscountKindPercent = "percent_unit"
)

// Position is one invoice line as the remote API expects it. Exactly one of
// Discount and DiscountPercent may be set.
type Position struct {
	Name            string   `json:"name"`
	Quantity        float64  `json:"quantity"`
	Tax             float64  `json:"tax"`
	TotalPriceGross float64  `json:"total_price_gross"`
	Discount        *float64 `json:"discount,omitempty"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
}

// HasDiscount reports whether the position carries either discount field.
func (p Position) HasDiscount() bool {
	return p.Discount != nil || p.DiscountPercent != nil
}

// Invoice is the invoice resource body.
type Invoice struct {
	Kind          string     `json:"kind"`
	Number        *string    `json:"number"`
	SellDate      string     `json:"sell_date"`
	IssueDate     string     `json:"issue_date"`
	PaymentTo     string     `json:"payment_to"`
	SellerName    string     `json:"seller_name"`
	SellerTaxNo   string     `json:"seller_tax_no"`
	BuyerName     string     `json:"buyer_name"`
	BuyerTaxNo    string     `json:"buyer_tax_no"`
	BuyerPostCode string     `json:"buyer_post_code"`
	BuyerCity     string     `json:"buyer_city"`
	BuyerStreet   string     `json:"buyer_street"`
	BuyerCountry  string     `json:"buyer_country"`
	ClientID      int64      `json:"client_id"`
	Positions     []Position `json:"positions"`
	Currency      string     `json:"currency"`
	PaymentType   string     `json:"payment_type"`
	ShowDiscount  bool       `json:"show_discount"`
	DiscountKind  string     `json:"discount_kind,omitempty"`
}

// ClientData is the client (buyer) resource body.
type ClientData struct {
	Name        string `json:"name"`
	TaxNo       string `json:"tax_no"`
	Bank        string `json:"bank"`
	BankAccount string `json:"bank_account"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Email       string `json:"email"`
	Person      string `json:"person"`
	PostCode    string `json:"post_code"`
	Phone       string `json:"phone"`
	Street      string `json:"street"`
}

// Product is the catalog product resource body.
type Product struct {
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	PriceNet float64 `json:"price_net"`
	Tax      float64 `json:"tax"`
}

// Payment is the banking payment resource body.
type Payment struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	InvoiceID int64   `json:"invoice_id"`
	Paid      bool    `json:"paid"`
	PaidDate  string  `json:"paid_date"`
	Currency  string  `json:"currency"`
	Kind      string  `json:"kind"`
}

type invoiceRequest struct {
	APIToken string  `json:"api_token"`
	Invoice  Invoice `json:"invoice"`
}

type clientRequest struct {
	APIToken string     `json:"api_token"`
	Client   ClientData `json:"client"`
}

type productRequest struct {
	APIToken string  `json:"api_token"`
	Product  Product `json:"product"`
}

type paymentRequest struct {
	APIToken string  `json:"api_token"`
	Payment  Payment `json:"banking_payment"`
}

// resource is the subset of any created or listed resource we read back.
type resource struct {
	ID   int64  `json:"id"`
	Code string `json:"code,omitempty"`
}

type apiError struct {
	Message interface{} `json:"message"`
	Error   interface{} `json:"error"`
}
