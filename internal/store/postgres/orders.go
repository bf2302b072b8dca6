package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/idempotency"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

// ErrOrderNotFound is returned when no hikashop_order row matches.
var ErrOrderNotFound = order.ErrNotFound

// processedLayout is how fakturownia_processed is written into order_params.
const processedLayout = "2006-01-02 15:04:05"

// OrderStore loads order snapshots and keeps the durable invoicing marker in
// order_params.
type OrderStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
	now  func() time.Time
}

// NewOrderStore creates a store. loc is the shop time zone used for the
// processed timestamp; nil means UTC.
func NewOrderStore(pool *pgxpool.Pool, loc *time.Location) *OrderStore {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderStore{pool: pool, loc: loc, now: time.Now}
}

// Ping checks the database connection.
func (s *OrderStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const selectOrder = `
SELECT o.order_id, o.order_status, o.order_created, o.order_invoice_created,
       o.order_currency_info, o.order_full_price::float8,
       o.order_discount_code, o.order_discount_price::float8, o.order_discount_tax::float8,
       o.order_params, o.invoice_request, o.order_payment_price::float8,
       COALESCE(NULLIF(p.payment_name, ''), o.order_payment_method, ''),
       COALESCE(u.user_email, ''), COALESCE(u.user_cms_id, 0), COALESCE(u.invoice_request, 0),
       COALESCE(b.address_company, ''), COALESCE(b.address_firstname, ''), COALESCE(b.address_lastname, ''),
       COALESCE(b.address_vat, ''), COALESCE(b.address_street, ''), COALESCE(b.address_city, ''),
       COALESCE(b.address_post_code, ''), COALESCE(NULLIF(bz.zone_name, ''), b.address_country, ''),
       COALESCE(b.address_telephone, ''), COALESCE(b.invoice_request, 0),
       COALESCE(s.address_company, ''), COALESCE(s.address_firstname, ''), COALESCE(s.address_lastname, ''),
       COALESCE(s.address_vat, ''), COALESCE(s.address_street, ''), COALESCE(s.address_city, ''),
       COALESCE(s.address_post_code, ''), COALESCE(NULLIF(sz.zone_name, ''), s.address_country, ''),
       COALESCE(s.address_telephone, ''), COALESCE(s.invoice_request, 0)
FROM hikashop_order o
LEFT JOIN hikashop_user u ON u.user_id = o.order_user_id
LEFT JOIN hikashop_payment p ON p.payment_id = o.order_payment_id
LEFT JOIN hikashop_address b ON b.address_id = o.order_billing_address_id
LEFT JOIN hikashop_zone bz ON bz.zone_namekey = b.address_country
LEFT JOIN hikashop_address s ON s.address_id = o.order_shipping_address_id
LEFT JOIN hikashop_zone sz ON sz.zone_namekey = s.address_country
WHERE o.order_id = $1`

const selectProducts = `
SELECT order_product_id, order_id, order_product_name, order_product_code,
       order_product_quantity::float8, order_product_price::float8,
       order_product_price_before_discount::float8,
       order_product_tax_info, order_product_discount_info, order_product_option_parent_id
FROM hikashop_order_product
WHERE order_id = $1
ORDER BY order_product_id`

const selectShipments = `
SELECT shipping_name, shipping_price::float8, order_shipping_tax::float8,
       shipping_tax_info, shipping_tax::float8
FROM hikashop_order_shipping
WHERE order_id = $1
ORDER BY ordering, order_shipping_id`

// LoadSnapshot hydrates the full order. A missing order yields
// ErrOrderNotFound.
func (s *OrderStore) LoadSnapshot(ctx context.Context, orderID int64) (*order.Snapshot, error) {
	var (
		snap                      order.Snapshot
		created, invoiceCreated   int64
		currencyInfo, params      string
		orderFlag, customerFlag   int32
		billingFlag, shippingFlag int32
	)

	err := s.pool.QueryRow(ctx, selectOrder, orderID).Scan(
		&snap.ID, &snap.Status, &created, &invoiceCreated,
		&currencyInfo, &snap.FullPrice,
		&snap.DiscountCode, &snap.DiscountPrice, &snap.DiscountTax,
		&params, &orderFlag, &snap.Payment.Price,
		&snap.Payment.Name,
		&snap.Customer.Email, &snap.Customer.CMSUserID, &customerFlag,
		&snap.Billing.Company, &snap.Billing.FirstName, &snap.Billing.LastName,
		&snap.Billing.VATNumber, &snap.Billing.Street, &snap.Billing.City,
		&snap.Billing.PostCode, &snap.Billing.CountryName,
		&snap.Billing.Phone, &billingFlag,
		&snap.Shipping.Company, &snap.Shipping.FirstName, &snap.Shipping.LastName,
		&snap.Shipping.VATNumber, &snap.Shipping.Street, &snap.Shipping.City,
		&snap.Shipping.PostCode, &snap.Shipping.CountryName,
		&snap.Shipping.Phone, &shippingFlag,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	snap.CreatedAt = unixTime(created)
	snap.InvoiceCreatedAt = unixTime(invoiceCreated)
	snap.Currency = order.ParseCurrency(currencyInfo)
	snap.Metadata = order.ParseMetadata([]byte(params))
	snap.InvoiceRequested = orderFlag != 0
	snap.Customer.InvoiceRequested = customerFlag != 0
	snap.Billing.InvoiceRequested = billingFlag != 0
	snap.Shipping.InvoiceRequested = shippingFlag != 0

	if snap.Products, err = s.loadProducts(ctx, orderID); err != nil {
		return nil, err
	}
	if snap.Shipments, err = s.loadShipments(ctx, orderID); err != nil {
		return nil, err
	}

	logger.Debug("Loaded order snapshot",
		zap.Int64("order_id", orderID),
		zap.String("status", snap.Status),
		zap.Int("products", len(snap.Products)),
		zap.Int("shipments", len(snap.Shipments)))

	return &snap, nil
}

func (s *OrderStore) loadProducts(ctx context.Context, orderID int64) ([]order.Product, error) {
	rows, err := s.pool.Query(ctx, selectProducts, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load products of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var products []order.Product
	for rows.Next() {
		var (
			p                     order.Product
			taxInfo, discountInfo string
		)
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Name, &p.Code,
			&p.Quantity, &p.Price, &p.PriceBeforeDiscount,
			&taxInfo, &discountInfo, &p.OptionParentID); err != nil {
			return nil, fmt.Errorf("failed to scan product of order %d: %w", orderID, err)
		}
		p.TaxRate = order.ParseFirstTaxRate(taxInfo)
		p.Discount = order.ParseDiscountInfo(discountInfo)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products of order %d: %w", orderID, err)
	}
	return products, nil
}

func (s *OrderStore) loadShipments(ctx context.Context, orderID int64) ([]order.Shipment, error) {
	rows, err := s.pool.Query(ctx, selectShipments, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipments of order %d: %w", orderID, err)
	}
	defer rows.Close()

	var shipments []order.Shipment
	for rows.Next() {
		var (
			sh      order.Shipment
			taxInfo *string
		)
		if err := rows.Scan(&sh.Name, &sh.Price, &sh.ExplicitTax, &taxInfo, &sh.LegacyTax); err != nil {
			return nil, fmt.Errorf("failed to scan shipment of order %d: %w", orderID, err)
		}
		if taxInfo != nil && *taxInfo != "" {
			sh.TaxInfoRate = order.ParseFirstTaxRate(*taxInfo)
			if sh.TaxInfoRate == nil {
				// tax info present but without a rate counts as 0%
				zero := 0.0
				sh.TaxInfoRate = &zero
			}
		}
		shipments = append(shipments, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shipments of order %d: %w", orderID, err)
	}
	return shipments, nil
}

// HasProcessed reports whether order_params already carries a remote
// document id. An unknown order counts as not processed.
func (s *OrderStore) HasProcessed(ctx context.Context, orderID int64) (bool, error) {
	var params string
	err := s.pool.QueryRow(ctx, `SELECT order_params FROM hikashop_order WHERE order_id = $1`, orderID).Scan(&params)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read params of order %d: %w", orderID, err)
	}
	return order.ParseMetadata([]byte(params)).DocumentID != 0, nil
}

// MarkProcessed writes the remote document id and the processing time into
// order_params, keeping every other key.
func (s *OrderStore) MarkProcessed(ctx context.Context, orderID, documentID int64) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var params string
		err := tx.QueryRow(ctx,
			`SELECT order_params FROM hikashop_order WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&params)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order %d: %w", orderID, err)
		}

		md := order.ParseMetadata([]byte(params))
		md.DocumentID = documentID
		md.Processed = s.now().In(s.loc).Format(processedLayout)
		blob, err := md.Encode()
		if err != nil {
			return fmt.Errorf("failed to encode params of order %d: %w", orderID, err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE hikashop_order SET order_params = $2 WHERE order_id = $1`, orderID, string(blob)); err != nil {
			return fmt.Errorf("failed to save params of order %d: %w", orderID, err)
		}
		return nil
	})
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

var _ idempotency.Guard = (*OrderStore)(nil)
