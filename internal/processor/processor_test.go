package processor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	httpClient "github.com/pablop76/hikashop-fakturownia/internal/client/http"
	"github.com/pablop76/hikashop-fakturownia/internal/config"
	"github.com/pablop76/hikashop-fakturownia/internal/idempotency"
	"github.com/pablop76/hikashop-fakturownia/internal/invoicing"
	"github.com/pablop76/hikashop-fakturownia/internal/mocks"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

func validSettings() config.Settings {
	return config.Settings{
		APIToken:    "token",
		Subdomain:   "myshop",
		SellerName:  "Sklep Sp. z o.o.",
		SellerTaxNo: "5250000000",
		InvoiceMode: invoicing.ModeAuto,
		Location:    time.UTC,
	}
}

func rate(v float64) *float64 { return &v }

func confirmedSnapshot() *order.Snapshot {
	return &order.Snapshot{
		ID:        12,
		Status:    order.StatusConfirmed,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Currency:  "PLN",
		FullPrice: 123,
		Billing: order.Address{
			FirstName: "Jan",
			LastName:  "Kowalski",
			City:      "Kraków",
		},
		Customer: order.Customer{Email: "jan@example.com"},
		Products: []order.Product{
			{ID: 1, OrderID: 12, Name: "Kubek", Code: "K-1", Quantity: 2, Price: 50, PriceBeforeDiscount: 50, TaxRate: rate(0.23)},
			{ID: 2, OrderID: 12, Name: "Talerz", Quantity: 1, Price: 0, PriceBeforeDiscount: 0, OptionParentID: 1},
		},
		Payment: order.PaymentInfo{Name: "Przelew"},
	}
}

type fixture struct {
	loader   *mocks.MockSnapshotLoader
	marker   *mocks.MockGuard
	api      *mocks.MockAPI
	notifier *mocks.MockNotifier
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	return &fixture{
		loader:   mocks.NewMockSnapshotLoader(ctrl),
		marker:   mocks.NewMockGuard(ctrl),
		api:      mocks.NewMockAPI(ctrl),
		notifier: mocks.NewMockNotifier(ctrl),
	}
}

func (f *fixture) processor(settings config.Settings) *Processor {
	return New(Deps{Loader: f.loader, Marker: f.marker, API: f.api, Notifier: f.notifier}, settings, zap.NewNop())
}

func TestProcess_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	settings := validSettings()
	settings.AutoSendEmail = true
	p := f.processor(settings)

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)

	gomock.InOrder(
		f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c fakturownia.ClientData) (int64, error) {
				assert.Equal(t, "Jan Kowalski", c.Name)
				assert.Equal(t, "jan@example.com", c.Email)
				return 5, nil
			}),
		f.api.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, inv fakturownia.Invoice) (int64, error) {
				assert.Equal(t, fakturownia.KindVAT, inv.Kind, "invoice_request on the trigger wins")
				assert.Equal(t, int64(5), inv.ClientID)
				assert.Equal(t, "transfer", inv.PaymentType)
				require.Len(t, inv.Positions, 1)
				assert.Equal(t, 123.0, inv.Positions[0].TotalPriceGross)
				return 100, nil
			}),
		f.marker.EXPECT().MarkProcessed(gomock.Any(), int64(12), int64(100)).Return(nil),
		f.api.EXPECT().SendInvoiceByEmail(gomock.Any(), int64(100)).Return(nil),
		f.api.EXPECT().RegisterPayment(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, pay fakturownia.Payment) error {
				assert.Equal(t, int64(100), pay.InvoiceID)
				assert.Equal(t, "Płatność za zamówienie #12", pay.Name)
				return nil
			}),
		f.api.EXPECT().UpsertProduct(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, prod fakturownia.Product) error {
				assert.Equal(t, "K-1", prod.Code)
				return nil
			}),
		f.api.EXPECT().UpsertProduct(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, prod fakturownia.Product) error {
				assert.Equal(t, "order_12_prod_2", prod.Code)
				return nil
			}),
	)

	out := p.Process(ctx, Trigger{OrderID: 12, InvoiceRequested: true})
	require.NoError(t, out.Err)
	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, int64(100), out.InvoiceID)

	// same order again in the same process: no collaborator is touched
	again := p.Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateSkippedDuplicate, again.State)
	assert.True(t, again.Skipped())
}

func TestProcess_Skips(t *testing.T) {
	ctx := context.Background()

	t.Run("order not found", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(nil, order.ErrNotFound)

		out := f.processor(validSettings()).Process(ctx, Trigger{OrderID: 12})
		assert.Equal(t, StateSkippedNotFound, out.State)
		assert.NoError(t, out.Err)
	})

	t.Run("metadata already carries document id", func(t *testing.T) {
		f := newFixture(t)
		snap := confirmedSnapshot()
		snap.Metadata.DocumentID = 77
		f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(snap, nil)

		out := f.processor(validSettings()).Process(ctx, Trigger{OrderID: 12})
		assert.Equal(t, StateSkippedInvoiced, out.State)
		assert.Equal(t, int64(77), out.InvoiceID)
	})

	t.Run("durable marker says processed", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
		f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(true, nil)

		out := f.processor(validSettings()).Process(ctx, Trigger{OrderID: 12})
		assert.Equal(t, StateSkippedInvoiced, out.State)
	})

	t.Run("status not confirmed is retried on a later update", func(t *testing.T) {
		f := newFixture(t)
		pending := confirmedSnapshot()
		pending.Status = "created"
		f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(pending, nil).Times(2)
		f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil).Times(2)

		p := f.processor(validSettings())
		assert.Equal(t, StateSkippedNotConfirmed, p.Process(ctx, Trigger{OrderID: 12}).State)
		assert.Equal(t, StateSkippedNotConfirmed, p.Process(ctx, Trigger{OrderID: 12}).State)
	})
}

func TestProcess_ConfigurationError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	settings := validSettings()
	settings.APIToken = ""
	settings.SellerTaxNo = " "

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)
	f.notifier.EXPECT().Notify(gomock.Any(), int64(12),
		"Fakturownia - błąd konfiguracji (zamówienie #12): Brak API Token, Brak NIP sprzedawcy").Return(nil)

	out := f.processor(settings).Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, ErrConfiguration)

	var se *StepError
	require.True(t, errors.As(out.Err, &se))
	assert.Equal(t, StepValidateConfig, se.Step)
}

func TestProcess_ClientFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)
	f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("connection refused"))
	f.notifier.EXPECT().Notify(gomock.Any(), int64(12),
		"Fakturownia - błąd zamówienia #12: Nie udało się utworzyć/znaleźć klienta w Fakturowni: connection refused").Return(nil)

	out := f.processor(validSettings()).Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, ErrClientResolution)
	assert.False(t, errors.Is(out.Err, ErrInvoiceCreation))
}

func TestProcess_InvoiceFailureLeavesOrderUnmarked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)
	f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).Return(int64(5), nil)
	apiErr := &fakturownia.APIError{Op: "create invoice", StatusCode: 422, Message: "buyer_name is blank"}
	f.api.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(int64(0), apiErr)
	f.notifier.EXPECT().Notify(gomock.Any(), int64(12), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, msg string) error {
			assert.True(t, strings.HasPrefix(msg, "Fakturownia - błąd zamówienia #12: Błąd tworzenia faktury: "))
			assert.Contains(t, msg, "buyer_name is blank")
			return nil
		})
	// no MarkProcessed, SendInvoiceByEmail, RegisterPayment or UpsertProduct expected

	out := f.processor(validSettings()).Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateFailed, out.State)
	assert.ErrorIs(t, out.Err, ErrInvoiceCreation)

	var ae *fakturownia.APIError
	require.True(t, errors.As(out.Err, &ae))
	assert.Equal(t, 422, ae.StatusCode)
}

func TestProcess_SecondaryFailuresDoNotAbort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	settings := validSettings()
	settings.AutoSendEmail = true

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)
	f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).Return(int64(5), nil)
	f.api.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(int64(100), nil)
	f.marker.EXPECT().MarkProcessed(gomock.Any(), int64(12), int64(100)).Return(errors.New("deadlock"))
	f.notifier.EXPECT().Notify(gomock.Any(), int64(12), gomock.Any()).Return(errors.New("smtp down"))
	f.api.EXPECT().SendInvoiceByEmail(gomock.Any(), int64(100)).Return(errors.New("402"))
	f.api.EXPECT().RegisterPayment(gomock.Any(), gomock.Any()).Return(errors.New("500"))
	f.api.EXPECT().UpsertProduct(gomock.Any(), gomock.Any()).Return(errors.New("500")).Times(2)

	out := f.processor(settings).Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateDone, out.State)
	assert.NoError(t, out.Err)
	assert.Equal(t, int64(100), out.InvoiceID)
}

func TestProcess_FollowUpStepsOutliveCancelledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)
	settings := validSettings()
	settings.AutoSendEmail = true

	live := func(ctx context.Context) { assert.NoError(t, ctx.Err()) }

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)
	f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).Return(int64(5), nil)
	f.api.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, fakturownia.Invoice) (int64, error) {
			// the webhook client hangs up right after the invoice is created
			cancel()
			return 100, nil
		})
	f.marker.EXPECT().MarkProcessed(gomock.Any(), int64(12), int64(100)).
		DoAndReturn(func(ctx context.Context, _, _ int64) error {
			live(ctx)
			return nil
		})
	f.api.EXPECT().SendInvoiceByEmail(gomock.Any(), int64(100)).
		DoAndReturn(func(ctx context.Context, _ int64) error {
			live(ctx)
			return nil
		})
	f.api.EXPECT().RegisterPayment(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ fakturownia.Payment) error {
			live(ctx)
			return nil
		})
	f.api.EXPECT().UpsertProduct(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ fakturownia.Product) error {
			live(ctx)
			return nil
		}).Times(2)

	out := f.processor(settings).Process(ctx, Trigger{OrderID: 12})
	require.NoError(t, out.Err)
	assert.Equal(t, StateDone, out.State)
	assert.Error(t, ctx.Err())
}

func TestProcess_FailedOrderIsRetriedByLaterTrigger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.processor(validSettings())

	apiErr := &fakturownia.APIError{Op: "create invoice", StatusCode: 503, Message: "maintenance"}
	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil).Times(2)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil).Times(2)
	f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).Return(int64(5), nil).Times(2)
	gomock.InOrder(
		f.api.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(int64(0), apiErr),
		f.api.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(int64(100), nil),
	)
	f.notifier.EXPECT().Notify(gomock.Any(), int64(12), gomock.Any()).Return(nil)
	f.marker.EXPECT().MarkProcessed(gomock.Any(), int64(12), int64(100)).Return(nil)
	f.api.EXPECT().RegisterPayment(gomock.Any(), gomock.Any()).Return(nil)
	f.api.EXPECT().UpsertProduct(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first := p.Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateFailed, first.State)
	assert.ErrorIs(t, first.Err, ErrInvoiceCreation)

	second := p.Process(ctx, Trigger{OrderID: 12})
	require.NoError(t, second.Err)
	assert.Equal(t, StateDone, second.State)
	assert.Equal(t, int64(100), second.InvoiceID)

	third := p.Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateSkippedDuplicate, third.State)
}

func TestProcess_RecoversPanics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.loader.EXPECT().LoadSnapshot(gomock.Any(), int64(12)).Return(confirmedSnapshot(), nil)
	f.marker.EXPECT().HasProcessed(gomock.Any(), int64(12)).Return(false, nil)
	f.api.EXPECT().UpsertClient(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, fakturownia.ClientData) (int64, error) { panic("nil map") })
	f.notifier.EXPECT().Notify(gomock.Any(), int64(12), "Fakturownia - błąd zamówienia #12: panic: nil map").Return(nil)

	var out Outcome
	require.NotPanics(t, func() { out = f.processor(validSettings()).Process(ctx, Trigger{OrderID: 12}) })
	assert.Equal(t, StateFailed, out.State)
	assert.Contains(t, out.Err.Error(), "panic: nil map")
}

// staticLoader serves copies of a fixed snapshot.
type staticLoader struct {
	snap *order.Snapshot
}

func (l *staticLoader) LoadSnapshot(ctx context.Context, orderID int64) (*order.Snapshot, error) {
	if orderID != l.snap.ID {
		return nil, order.ErrNotFound
	}
	cp := *l.snap
	return &cp, nil
}

func TestProcess_EndToEndIsIdempotentAcrossProcessors(t *testing.T) {
	var (
		mu   sync.Mutex
		hits []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.Method+" "+r.URL.Path)
		mu.Unlock()
		_, _ = io.Copy(io.Discard, r.Body)

		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "GET /clients.json", "GET /products.json":
			_, _ = io.WriteString(w, `[]`)
		case "POST /clients.json":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id": 5}`)
		case "POST /invoices.json":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id": 100}`)
		default:
			_, _ = io.WriteString(w, `{"id": 1}`)
		}
	}))
	defer srv.Close()

	api := fakturownia.New("token", "myshop", httpClient.WithBaseURL(srv.URL), httpClient.WithRetryConfig(nil))
	durable := idempotency.NewMemoryGuard()
	loader := &staticLoader{snap: confirmedSnapshot()}
	deps := Deps{Loader: loader, Marker: durable, API: api}
	ctx := context.Background()

	first := New(deps, validSettings(), zap.NewNop()).Process(ctx, Trigger{OrderID: 12})
	require.NoError(t, first.Err)
	assert.Equal(t, StateDone, first.State)
	assert.Equal(t, int64(100), first.InvoiceID)

	mu.Lock()
	firstHits := len(hits)
	mu.Unlock()
	assert.Equal(t, []string{
		"GET /clients.json",
		"POST /clients.json",
		"POST /invoices.json",
		"POST /banking/payments.json",
		"GET /products.json",
		"POST /products.json",
		"GET /products.json",
		"POST /products.json",
	}, hits)

	// a fresh processor (new process) relies on the durable marker only
	second := New(deps, validSettings(), zap.NewNop()).Process(ctx, Trigger{OrderID: 12})
	assert.Equal(t, StateSkippedInvoiced, second.State)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, hits, firstHits, "second run makes no remote calls")
}
