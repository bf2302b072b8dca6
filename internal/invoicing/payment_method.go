package invoicing

import "strings"

// paymentTypes maps fragments of a HikaShop payment method name onto
// Fakturownia payment types. Order matters: "przelewy24" must be tested
// before "przelew".
var paymentTypes = []struct {
	fragment string
	kind     string
}{
	{"payu", "payu"},
	{"przelewy24", "p24"},
	{"przelew", "transfer"},
	{"transfer", "transfer"},
	{"gotówka", "cash"},
	{"cash", "cash"},
	{"karta", "card"},
	{"card", "card"},
	{"blik", "blik"},
	{"dotpay", "dotpay"},
	{"tpay", "tpay"},
	{"paypal", "paypal"},
}

// DefaultPaymentType is used for unrecognised payment methods.
const DefaultPaymentType = "transfer"

// MapPaymentMethod returns the Fakturownia payment type for a payment method name.
func MapPaymentMethod(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, pt := range paymentTypes {
		if strings.Contains(name, pt.fragment) {
			return pt.kind
		}
	}
	return DefaultPaymentType
}
