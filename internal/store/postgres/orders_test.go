package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pablop76/hikashop-fakturownia/internal/migrate"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

// newTestStore connects to TEST_DATABASE_URL, applies the schema and clears
// the tables. Tests are skipped when no database is configured.
func newTestStore(t *testing.T) *OrderStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, migrate.Up(dsn))

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE hikashop_history, hikashop_order_shipping, hikashop_order_product,
		hikashop_order, hikashop_payment, hikashop_address, hikashop_user, hikashop_zone RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return NewOrderStore(pool, loc)
}

func seedOrder(t *testing.T, s *OrderStore) int64 {
	t.Helper()
	ctx := context.Background()
	exec := func(sql string, args ...interface{}) {
		_, err := s.pool.Exec(ctx, sql, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO hikashop_zone (zone_namekey, zone_name) VALUES ('country_Poland_171', 'Polska')`)
	exec(`INSERT INTO hikashop_user (user_id, user_cms_id, user_email, invoice_request) VALUES (3, 44, 'jan@example.com', 0)`)
	exec(`INSERT INTO hikashop_address (address_id, address_user_id, address_company, address_firstname, address_lastname,
		address_vat, address_street, address_city, address_post_code, address_country, address_telephone, invoice_request)
		VALUES (10, 3, 'ACME', 'Jan', 'Kowalski', 'PL123', 'Prosta 1', 'Warszawa', '00-001', 'country_Poland_171', '555', 1)`)
	exec(`INSERT INTO hikashop_payment (payment_id, payment_name) VALUES (2, 'Przelew bankowy')`)
	exec(`INSERT INTO hikashop_order (order_id, order_user_id, order_status, order_created, order_invoice_created,
		order_currency_info, order_full_price, order_discount_code, order_discount_price, order_discount_tax,
		order_billing_address_id, order_shipping_address_id, order_payment_id, order_payment_price, order_params)
		VALUES (12, 3, 'confirmed', 1740787200, 0, $1, 135.30, 'SAVE10', 10, 1.87, 10, 10, 2, 0, '{"foreign":"keep"}')`,
		`O:8:"stdClass":1:{s:13:"currency_code";s:3:"EUR";}`)
	exec(`INSERT INTO hikashop_order_product (order_product_id, order_id, order_product_name, order_product_code,
		order_product_quantity, order_product_price, order_product_price_before_discount,
		order_product_tax_info, order_product_discount_info, order_product_option_parent_id)
		VALUES (7, 12, 'Kubek', 'K-1', 2, 50, 50, '{"VAT23":{"tax_rate":0.23}}', '', 0)`)
	exec(`INSERT INTO hikashop_order_shipping (order_id, shipping_name, shipping_price, order_shipping_tax, shipping_tax_info, shipping_tax)
		VALUES (12, 'Kurier', 10, NULL, '{"x":{"tax_namekey":"none"}}', NULL)`)
	return 12
}

func TestOrderStore_LoadSnapshot(t *testing.T) {
	s := newTestStore(t)
	id := seedOrder(t, s)
	ctx := context.Background()

	snap, err := s.LoadSnapshot(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, order.StatusConfirmed, snap.Status)
	assert.Equal(t, "EUR", snap.Currency)
	assert.Equal(t, time.Unix(1740787200, 0).UTC(), snap.CreatedAt)
	assert.True(t, snap.InvoiceCreatedAt.IsZero())
	assert.Equal(t, "SAVE10", snap.DiscountCode)
	assert.InDelta(t, 1.87, snap.DiscountTax, 1e-9)
	assert.Equal(t, "Przelew bankowy", snap.Payment.Name)
	assert.Equal(t, "jan@example.com", snap.Customer.Email)
	assert.Equal(t, "Polska", snap.Billing.CountryName)
	assert.True(t, snap.Billing.InvoiceRequested)
	assert.False(t, snap.AlreadyInvoiced())

	require.Len(t, snap.Products, 1)
	require.NotNil(t, snap.Products[0].TaxRate)
	assert.InDelta(t, 0.23, *snap.Products[0].TaxRate, 1e-9)
	assert.Nil(t, snap.Products[0].Discount)

	require.Len(t, snap.Shipments, 1)
	assert.Nil(t, snap.Shipments[0].ExplicitTax)
	require.NotNil(t, snap.Shipments[0].TaxInfoRate)
	assert.Zero(t, *snap.Shipments[0].TaxInfoRate)
}

func TestOrderStore_LoadSnapshotMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSnapshot(context.Background(), 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderStore_MarkProcessed(t *testing.T) {
	s := newTestStore(t)
	id := seedOrder(t, s)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

	done, err := s.HasProcessed(ctx, id)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkProcessed(ctx, id, 991))

	done, err = s.HasProcessed(ctx, id)
	require.NoError(t, err)
	assert.True(t, done)

	snap, err := s.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(991), snap.Metadata.DocumentID)
	assert.Equal(t, "2025-03-01 10:00:00", snap.Metadata.Processed)
	assert.Equal(t, "keep", snap.Metadata.Raw["foreign"])

	assert.ErrorIs(t, s.MarkProcessed(ctx, 999, 1), ErrOrderNotFound)
}

func TestOrderStore_AddHistory(t *testing.T) {
	s := newTestStore(t)
	id := seedOrder(t, s)
	ctx := context.Background()

	require.NoError(t, s.AddHistory(ctx, HistoryEntry{
		OrderID: id,
		Type:    "fakturownia_error",
		Data:    "BŁĄD FAKTUROWNIA: boom",
	}))

	var data, typ string
	var notified int32
	err := s.pool.QueryRow(ctx,
		`SELECT history_data, history_type, history_notified FROM hikashop_history WHERE history_order_id = $1`, id).
		Scan(&data, &typ, &notified)
	require.NoError(t, err)
	assert.Equal(t, "BŁĄD FAKTUROWNIA: boom", data)
	assert.Equal(t, "fakturownia_error", typ)
	assert.Zero(t, notified)
}
