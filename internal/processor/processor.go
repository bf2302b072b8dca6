// Package processor runs the invoicing pipeline for one confirmed order:
// client upsert, invoice creation, marker persistence, then the best effort
// e-mail, payment and product sync steps.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	"github.com/pablop76/hikashop-fakturownia/internal/config"
	"github.com/pablop76/hikashop-fakturownia/internal/helpers"
	"github.com/pablop76/hikashop-fakturownia/internal/idempotency"
	"github.com/pablop76/hikashop-fakturownia/internal/invoicing"
	"github.com/pablop76/hikashop-fakturownia/internal/notify"
	"github.com/pablop76/hikashop-fakturownia/internal/order"
)

//go:generate mockgen -source=processor.go -destination=../mocks/mock_processor.go -package=mocks

// SnapshotLoader hydrates an order. Unknown orders yield an error matching
// order.ErrNotFound.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, orderID int64) (*order.Snapshot, error)
}

// Trigger is one "order updated" notification.
type Trigger struct {
	OrderID int64
	// InvoiceRequested is the invoice_request flag carried by the event's
	// order object, if any.
	InvoiceRequested bool
	CorrelationID    string
}

// State is the terminal state of one invocation.
type State string

const (
	StateDone                State = "done"
	StateSkippedDuplicate    State = "skipped_duplicate"
	StateSkippedNotFound     State = "skipped_not_found"
	StateSkippedInvoiced     State = "skipped_already_invoiced"
	StateSkippedNotConfirmed State = "skipped_not_confirmed"
	StateFailed              State = "failed"
)

// Outcome reports how an invocation ended. Err is set only for StateFailed.
type Outcome struct {
	State     State
	OrderID   int64
	InvoiceID int64
	Err       error
}

// Skipped reports whether the order was left alone on purpose.
func (o Outcome) Skipped() bool {
	return strings.HasPrefix(string(o.State), "skipped")
}

// Processor is safe for use by concurrent triggers. Its seen set lives as
// long as the Processor.
type Processor struct {
	loader    SnapshotLoader
	marker    idempotency.Guard
	seen      *idempotency.MemoryGuard
	api       fakturownia.API
	notifier  notify.Notifier
	settings  config.Settings
	positions *invoicing.PositionBuilder
	logger    *zap.Logger
}

// Deps are the collaborators of a Processor. Notifier may be nil.
type Deps struct {
	Loader   SnapshotLoader
	Marker   idempotency.Guard
	API      fakturownia.API
	Notifier notify.Notifier
}

// New creates a Processor.
func New(deps Deps, settings config.Settings, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := deps.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	return &Processor{
		loader:    deps.Loader,
		marker:    deps.Marker,
		seen:      idempotency.NewMemoryGuard(),
		api:       deps.API,
		notifier:  n,
		settings:  settings,
		positions: invoicing.NewPositionBuilder(logger),
		logger:    logger,
	}
}

// Process handles one trigger. It never panics and never returns an error
// separately from the Outcome; fatal failures are logged and reported to the
// administrator before Process returns.
func (p *Processor) Process(ctx context.Context, t Trigger) (out Outcome) {
	log := p.logger.With(zap.Int64("order_id", t.OrderID))
	if t.CorrelationID != "" {
		log = log.With(zap.String("correlation_id", t.CorrelationID))
	}

	if p.seen.CheckAndMark(t.OrderID) {
		log.Debug("Order already handled by this process, skipping")
		return Outcome{State: StateSkippedDuplicate, OrderID: t.OrderID}
	}

	defer func() {
		if r := recover(); r != nil {
			err := stepError(StepRecover, t.OrderID, nil, fmt.Errorf("panic: %v", r))
			log.Error("Invoicing panicked", zap.Any("panic", r), zap.Stack("stack"))
			p.report(ctx, log, t.OrderID, err)
			out = Outcome{State: StateFailed, OrderID: t.OrderID, Err: err}
		}
		// Only a finished or already invoiced order stays claimed; anything
		// else may be retried by a later update of the same order.
		if out.State != StateDone && out.State != StateSkippedInvoiced && out.State != StateSkippedDuplicate {
			p.seen.Forget(t.OrderID)
		}
	}()

	out = p.run(ctx, log, t)
	if out.State == StateFailed {
		p.report(ctx, log, t.OrderID, out.Err)
	}
	return out
}

func (p *Processor) run(ctx context.Context, log *zap.Logger, t Trigger) Outcome {
	fail := func(err error) Outcome {
		return Outcome{State: StateFailed, OrderID: t.OrderID, Err: err}
	}

	snap, err := p.loader.LoadSnapshot(ctx, t.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		log.Info("Order not found, skipping")
		return Outcome{State: StateSkippedNotFound, OrderID: t.OrderID}
	}
	if err != nil {
		return fail(stepError(StepLoadOrder, t.OrderID, nil, err))
	}

	invoiced := snap.AlreadyInvoiced()
	if !invoiced && p.marker != nil {
		if invoiced, err = p.marker.HasProcessed(ctx, t.OrderID); err != nil {
			return fail(stepError(StepCheckMarker, t.OrderID, nil, err))
		}
	}
	if invoiced {
		log.Debug("Invoice already exists for order, skipping",
			zap.Int64("document_id", snap.Metadata.DocumentID))
		return Outcome{State: StateSkippedInvoiced, OrderID: t.OrderID, InvoiceID: snap.Metadata.DocumentID}
	}

	if p.settings.DebugOrder {
		dump := *snap
		dump.Customer.Email = helpers.MaskEmail(dump.Customer.Email)
		log.Debug("Order snapshot", zap.String("snapshot", spew.Sdump(dump)))
	}

	if snap.Status != order.StatusConfirmed {
		log.Debug("Order status is not confirmed, skipping", zap.String("status", snap.Status))
		return Outcome{State: StateSkippedNotConfirmed, OrderID: t.OrderID}
	}

	if err := p.settings.Validate(); err != nil {
		return p.configFailure(ctx, log, t.OrderID, err)
	}

	clientID, err := p.api.UpsertClient(ctx, invoicing.NewClient(snap))
	if err != nil {
		return fail(stepError(StepUpsertClient, t.OrderID, ErrClientResolution, err))
	}
	if clientID == 0 {
		return fail(stepError(StepUpsertClient, t.OrderID, ErrClientResolution, fakturownia.ErrMissingID))
	}
	log.Debug("Client resolved", zap.Int64("client_id", clientID))

	positions := p.positions.BuildForOrder(snap)
	kind := invoicing.KindFor(t.InvoiceRequested, snap, p.settings.InvoiceMode)

	invoice := invoicing.NewInvoice(snap, invoicing.InvoiceParams{
		Kind:      kind,
		Seller:    p.settings.Seller(),
		ClientID:  clientID,
		Positions: positions,
		Location:  p.settings.Location,
	})
	invoiceID, err := p.api.CreateInvoice(ctx, invoice)
	if err != nil {
		return fail(stepError(StepCreateInvoice, t.OrderID, ErrInvoiceCreation, err))
	}
	log.Info("Invoice created",
		zap.Int64("invoice_id", invoiceID),
		zap.String("kind", kind),
		zap.Int("positions", len(positions)))

	// The invoice exists remotely now; the follow-up steps must not be cut
	// short by the caller going away.
	ctx = context.WithoutCancel(ctx)

	p.persistMarker(ctx, log, t.OrderID, invoiceID)

	if p.settings.AutoSendEmail {
		if err := p.api.SendInvoiceByEmail(ctx, invoiceID); err != nil {
			log.Warn("Failed to e-mail invoice", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		} else {
			log.Debug("Invoice e-mailed", zap.Int64("invoice_id", invoiceID))
		}
	}

	payment := invoicing.NewPayment(snap, invoiceID, p.settings.Location)
	if err := p.api.RegisterPayment(ctx, payment); err != nil {
		log.Warn("Failed to register payment",
			zap.Int64("invoice_id", invoiceID),
			zap.String("payer", helpers.MaskEmail(snap.CustomerEmail())),
			zap.Error(err))
	}

	for _, prod := range snap.Products {
		if err := p.api.UpsertProduct(ctx, invoicing.NewProduct(prod)); err != nil {
			log.Warn("Failed to sync product",
				zap.Int64("order_product_id", prod.ID),
				zap.String("code", prod.CatalogCode()),
				zap.Error(err))
		}
	}

	log.Info("Order invoicing finished", zap.Int64("invoice_id", invoiceID))
	return Outcome{State: StateDone, OrderID: t.OrderID, InvoiceID: invoiceID}
}

// persistMarker records the invoice id on the order. A failure leaves a
// duplicate risk on the next update, so it is reported but does not stop the
// remaining steps.
func (p *Processor) persistMarker(ctx context.Context, log *zap.Logger, orderID, invoiceID int64) {
	if p.marker == nil {
		return
	}
	if err := p.marker.MarkProcessed(ctx, orderID, invoiceID); err != nil {
		log.Error("Failed to save invoice id on order", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		msg := fmt.Sprintf("Fakturownia - błąd zamówienia #%d: nie zapisano ID dokumentu %d: %v", orderID, invoiceID, err)
		if nErr := p.notifier.Notify(ctx, orderID, msg); nErr != nil {
			log.Warn("Failed to notify admin", zap.Error(nErr))
		}
	}
}

func (p *Processor) configFailure(ctx context.Context, log *zap.Logger, orderID int64, err error) Outcome {
	labels := []string{err.Error()}
	var missing *config.MissingSettingsError
	if errors.As(err, &missing) {
		labels = missing.Labels()
	}
	joined := strings.Join(labels, ", ")

	log.Error("Invoicing configuration incomplete", zap.Strings("missing", labels))
	msg := "Fakturownia - błąd konfiguracji (zamówienie #" + strconv.FormatInt(orderID, 10) + "): " + joined
	if nErr := p.notifier.Notify(ctx, orderID, msg); nErr != nil {
		log.Warn("Failed to notify admin", zap.Error(nErr))
	}
	return Outcome{
		State:   StateFailed,
		OrderID: orderID,
		Err:     stepError(StepValidateConfig, orderID, ErrConfiguration, err),
	}
}

// report logs a fatal failure and notifies the administrator. Configuration
// failures were already reported by configFailure.
func (p *Processor) report(ctx context.Context, log *zap.Logger, orderID int64, err error) {
	if errors.Is(err, ErrConfiguration) {
		return
	}
	log.Error("Invoicing failed", zap.Error(err))
	msg := "Fakturownia - błąd zamówienia #" + strconv.FormatInt(orderID, 10) + ": " + adminMessage(err)
	if nErr := p.notifier.Notify(ctx, orderID, msg); nErr != nil {
		log.Warn("Failed to notify admin", zap.Error(nErr))
	}
}
