// Package events decodes "order updated" notifications delivered by the
// shop, the queue or the topic into processor triggers.
package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pablop76/hikashop-fakturownia/internal/helpers"
	"github.com/pablop76/hikashop-fakturownia/internal/processor"
)

var (
	// ErrMalformed is returned for bodies that are not a JSON object.
	ErrMalformed = errors.New("malformed order event")
	// ErrMissingOrderID is returned when the event names no order. Such
	// events are ignored, not retried.
	ErrMissingOrderID = errors.New("order event carries no order id")
)

// OrderUpdated is a decoded "order updated" notification.
type OrderUpdated struct {
	OrderID          int64  `json:"order_id"`
	InvoiceRequested bool   `json:"invoice_request,omitempty"`
	CorrelationID    string `json:"correlation_id,omitempty"`
}

// Trigger converts the event for the processor.
func (e OrderUpdated) Trigger() processor.Trigger {
	return processor.Trigger{
		OrderID:          e.OrderID,
		InvoiceRequested: e.InvoiceRequested,
		CorrelationID:    e.CorrelationID,
	}
}

// Encode serializes the event in its flat form for queues and topics.
func (e OrderUpdated) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// orderObject is the order as the shop hands it over. Values arrive as
// numbers, strings or booleans depending on the sender.
type orderObject struct {
	OrderID        json.RawMessage `json:"order_id"`
	InvoiceRequest json.RawMessage `json:"invoice_request"`
}

type envelope struct {
	orderObject
	Order         *orderObject      `json:"order"`
	Arguments     []json.RawMessage `json:"arguments"`
	CorrelationID string            `json:"correlation_id"`
}

// Decode accepts a flat {"order_id":...}, a wrapped {"order":{...}} or an
// event {"arguments":[{...}]} whose first argument is the order. A missing
// correlation id is generated.
func Decode(body []byte) (OrderUpdated, error) {
	return DecodeWithCorrelation(body, "")
}

// DecodeWithCorrelation is Decode with fallback used as the correlation id
// when the body carries none.
func DecodeWithCorrelation(body []byte, fallback string) (OrderUpdated, error) {
	var ev OrderUpdated

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ev, ErrMalformed
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	obj := env.orderObject
	switch {
	case env.Order != nil:
		obj = *env.Order
	case len(env.Arguments) > 0:
		var first orderObject
		if err := json.Unmarshal(env.Arguments[0], &first); err != nil {
			return ev, fmt.Errorf("%w: first argument is not an order: %v", ErrMalformed, err)
		}
		obj = first
	}

	id, err := parseID(obj.OrderID)
	if err != nil {
		return ev, err
	}

	ev.OrderID = id
	ev.InvoiceRequested = parseFlag(obj.InvoiceRequest)
	ev.CorrelationID = env.CorrelationID
	if ev.CorrelationID == "" {
		ev.CorrelationID = fallback
	}
	if ev.CorrelationID == "" {
		ev.CorrelationID = uuid.New().String()
	}
	return ev, nil
}

func parseID(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, ErrMissingOrderID
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("%w: order_id has type %T", ErrMalformed, v)
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: order_id %q", ErrMalformed, s)
	}
	if id <= 0 {
		return 0, ErrMissingOrderID
	}
	return id, nil
}

func parseFlag(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return helpers.ParseBool(t)
	default:
		return false
	}
}
