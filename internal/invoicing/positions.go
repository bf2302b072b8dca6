package invoicing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

// Position name prefixes and the fixed payment surcharge rate.
const (
	ShippingPrefix     = "Wysyłka: "
	PaymentCostPrefix  = "Koszt płatności: "
	DefaultPaymentName = "Płatność"
	CouponPrefix       = "Kupon rabatowy: "
	PaymentCostTaxRate = 23
)

var (
	hundred = decimal.NewFromInt(100)
	htmlTag = regexp.MustCompile(`<[^>]*>`)
)

// Coupon is the order level discount code and the aggregate discount fields
// its VAT rate is derived from.
type Coupon struct {
	Code          string
	Value         float64
	DiscountPrice float64
	DiscountTax   float64
}

// CouponFor extracts the coupon from a snapshot. HikaShop reports the coupon
// value as the gross discount price.
func CouponFor(snap *order.Snapshot) Coupon {
	return Coupon{
		Code:          snap.DiscountCode,
		Value:         snap.DiscountPrice,
		DiscountPrice: snap.DiscountPrice,
		DiscountTax:   snap.DiscountTax,
	}
}

// PositionBuilder converts order lines into invoice positions.
type PositionBuilder struct {
	logger *zap.Logger
}

// NewPositionBuilder creates a builder logging through logger.
func NewPositionBuilder(logger *zap.Logger) *PositionBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionBuilder{logger: logger}
}

// BuildForOrder builds the positions of a whole snapshot.
func (b *PositionBuilder) BuildForOrder(snap *order.Snapshot) []fakturownia.Position {
	return b.Build(snap.Products, snap.Shipments, snap.Payment.Name, snap.Payment.Price, CouponFor(snap))
}

// Build returns product positions (discounted lines first, then aggregated
// lines), followed by shipping, payment surcharge and coupon positions.
func (b *PositionBuilder) Build(
	products []order.Product,
	shipments []order.Shipment,
	paymentLabel string,
	paymentAmount float64,
	coupon Coupon,
) []fakturownia.Position {
	positions := b.productPositions(products)

	for _, ship := range shipments {
		if ship.Price <= 0 {
			continue
		}
		rate := ShipmentTaxRate(ship)
		gross := decimal.NewFromFloat(ship.Price).Mul(decimal.NewFromInt(1).Add(rate.Div(hundred)))
		positions = append(positions, fakturownia.Position{
			Name:            ShippingPrefix + ship.Name,
			Quantity:        1,
			Tax:             rate.InexactFloat64(),
			TotalPriceGross: gross.Round(2).InexactFloat64(),
		})
	}

	if paymentAmount > 0 {
		label := strings.TrimSpace(paymentLabel)
		if label == "" {
			label = DefaultPaymentName
		}
		gross := decimal.NewFromFloat(paymentAmount).Mul(decimal.NewFromFloat(1.23))
		positions = append(positions, fakturownia.Position{
			Name:            PaymentCostPrefix + StripTags(label),
			Quantity:        1,
			Tax:             PaymentCostTaxRate,
			TotalPriceGross: gross.Round(2).InexactFloat64(),
		})
	}

	if strings.TrimSpace(coupon.Code) != "" && coupon.Value > 0 {
		positions = append(positions, fakturownia.Position{
			Name:            CouponPrefix + coupon.Code,
			Quantity:        1,
			Tax:             b.couponTaxRate(coupon).InexactFloat64(),
			TotalPriceGross: decimal.NewFromFloat(coupon.Value).Neg().Round(2).InexactFloat64(),
		})
	}

	return positions
}

type aggregate struct {
	position fakturownia.Position
	quantity decimal.Decimal
	gross    decimal.Decimal
}

func (b *PositionBuilder) productPositions(products []order.Product) []fakturownia.Position {
	var discounted []fakturownia.Position
	var keys []string
	aggregated := make(map[string]*aggregate)

	for _, p := range products {
		if p.IsBundleChild() {
			continue
		}

		rate := decimal.Zero
		if p.TaxRate != nil {
			rate = decimal.NewFromFloat(*p.TaxRate)
		}
		qty := decimal.NewFromFloat(p.Quantity)
		unitGross := decimal.NewFromFloat(p.PriceBeforeDiscount).Mul(decimal.NewFromInt(1).Add(rate))
		lineGross := unitGross.Mul(qty).Round(2)
		taxPercent := rate.Mul(hundred)

		pos := fakturownia.Position{
			Name:            StripTags(p.Name),
			Quantity:        p.Quantity,
			Tax:             taxPercent.InexactFloat64(),
			TotalPriceGross: lineGross.InexactFloat64(),
		}

		if p.Discount != nil {
			switch {
			case p.Discount.FlatAmount > 0:
				flat := p.Discount.FlatAmount
				pos.Discount = &flat
			case p.Discount.PercentAmount > 0:
				percent := p.Discount.PercentAmount
				pos.DiscountPercent = &percent
			}
		}

		if pos.HasDiscount() {
			discounted = append(discounted, pos)
			continue
		}

		// Unit gross for the key is derived from the rounded line total so that
		// lines printed with the same unit price collapse into one.
		keyUnit := lineGross
		if qty.IsPositive() {
			keyUnit = lineGross.Div(qty)
		}
		key := pos.Name + "|" + taxPercent.StringFixed(4) + "|" + keyUnit.StringFixed(4)

		if agg, ok := aggregated[key]; ok {
			agg.quantity = agg.quantity.Add(qty)
			agg.gross = agg.gross.Add(lineGross).Round(2)
			continue
		}
		aggregated[key] = &aggregate{position: pos, quantity: qty, gross: lineGross}
		keys = append(keys, key)
	}

	positions := make([]fakturownia.Position, 0, len(discounted)+len(keys))
	positions = append(positions, discounted...)
	for _, key := range keys {
		agg := aggregated[key]
		pos := agg.position
		pos.Quantity = agg.quantity.InexactFloat64()
		pos.TotalPriceGross = agg.gross.InexactFloat64()
		positions = append(positions, pos)
	}
	return positions
}

// couponTaxRate derives the coupon VAT percentage from the tax and net parts
// of the order discount. A zero net part yields 0%.
func (b *PositionBuilder) couponTaxRate(c Coupon) decimal.Decimal {
	tax := decimal.NewFromFloat(c.DiscountTax)
	net := decimal.NewFromFloat(c.DiscountPrice).Sub(tax)
	if net.IsZero() {
		b.logger.Warn("coupon has no net discount portion, using 0% VAT",
			zap.String("coupon_code", c.Code),
			zap.Float64("discount_price", c.DiscountPrice),
			zap.Float64("discount_tax", c.DiscountTax))
		return decimal.Zero
	}
	return tax.Div(net).Mul(hundred).Round(2)
}

// ShipmentTaxRate resolves a shipment's VAT percentage: explicit tax, then
// tax info rate, then the legacy field (fractions are scaled to percent),
// then 0.
func ShipmentTaxRate(s order.Shipment) decimal.Decimal {
	switch {
	case s.ExplicitTax != nil:
		return decimal.NewFromFloat(*s.ExplicitTax)
	case s.TaxInfoRate != nil:
		return decimal.NewFromFloat(*s.TaxInfoRate).Mul(hundred)
	case s.LegacyTax != nil:
		v := decimal.NewFromFloat(*s.LegacyTax)
		if v.IsPositive() && v.LessThanOrEqual(decimal.NewFromInt(1)) {
			return v.Mul(hundred)
		}
		return v
	default:
		return decimal.Zero
	}
}

// StripTags removes HTML markup from product and payment names.
func StripTags(s string) string {
	return htmlTag.ReplaceAllString(s, "")
}
