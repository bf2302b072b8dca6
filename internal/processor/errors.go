package processor

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Each aborts processing of the order and leaves it
// unmarked.
var (
	ErrConfiguration    = errors.New("invoicing configuration incomplete")
	ErrClientResolution = errors.New("client could not be created or found")
	ErrInvoiceCreation  = errors.New("invoice could not be created")
)

// Steps that can fail fatally.
const (
	StepValidateConfig = "validate_config"
	StepUpsertClient   = "upsert_client"
	StepCreateInvoice  = "create_invoice"
	StepLoadOrder      = "load_order"
	StepCheckMarker    = "check_marker"
	StepRecover        = "recover"
)

// StepError is a fatal failure of one pipeline step.
type StepError struct {
	Step    string
	OrderID int64
	// Kind is one of the Err* sentinels, or nil for infrastructure failures.
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("order %d: %s: %v: %v", e.OrderID, e.Step, e.Kind, e.Err)
	}
	return fmt.Sprintf("order %d: %s: %v", e.OrderID, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches the error kind as well as the wrapped error.
func (e *StepError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func stepError(step string, orderID int64, kind, err error) *StepError {
	return &StepError{Step: step, OrderID: orderID, Kind: kind, Err: err}
}

// adminMessage is the text shown to the shop administrator for a fatal error.
func adminMessage(err error) string {
	var se *StepError
	if !errors.As(err, &se) {
		return err.Error()
	}
	switch se.Kind {
	case ErrClientResolution:
		return "Nie udało się utworzyć/znaleźć klienta w Fakturowni: " + se.Err.Error()
	case ErrInvoiceCreation:
		return "Błąd tworzenia faktury: " + se.Err.Error()
	default:
		return se.Err.Error()
	}
}
