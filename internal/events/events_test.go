package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantID  int64
		wantInv bool
		wantErr error
	}{
		{name: "flat", body: `{"order_id": 12}`, wantID: 12},
		{name: "flat string id", body: `{"order_id": "12", "invoice_request": "1"}`, wantID: 12, wantInv: true},
		{name: "wrapped order", body: `{"order": {"order_id": 7, "invoice_request": 1}}`, wantID: 7, wantInv: true},
		{name: "event arguments", body: `{"arguments": [{"order_id": 9, "invoice_request": false}, "ignored"]}`, wantID: 9},
		{name: "wrapped order wins over flat", body: `{"order_id": 1, "order": {"order_id": 2}}`, wantID: 2},
		{name: "bool flag", body: `{"order_id": 3, "invoice_request": true}`, wantID: 3, wantInv: true},
		{name: "missing id", body: `{"order": {}}`, wantErr: ErrMissingOrderID},
		{name: "zero id", body: `{"order_id": 0}`, wantErr: ErrMissingOrderID},
		{name: "null id", body: `{"order_id": null}`, wantErr: ErrMissingOrderID},
		{name: "empty arguments entry", body: `{"arguments": [{}]}`, wantErr: ErrMissingOrderID},
		{name: "non numeric id", body: `{"order_id": "abc"}`, wantErr: ErrMalformed},
		{name: "object id", body: `{"order_id": {"x": 1}}`, wantErr: ErrMalformed},
		{name: "argument not an object", body: `{"arguments": [5]}`, wantErr: ErrMalformed},
		{name: "not json", body: `order=12`, wantErr: ErrMalformed},
		{name: "empty body", body: ``, wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.body))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, ev.OrderID)
			assert.Equal(t, tt.wantInv, ev.InvoiceRequested)
			_, uuidErr := uuid.Parse(ev.CorrelationID)
			assert.NoError(t, uuidErr, "a correlation id is generated")
		})
	}
}

func TestDecodeKeepsCorrelationID(t *testing.T) {
	ev, err := Decode([]byte(`{"order_id": 5, "correlation_id": "req-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "req-1", ev.CorrelationID)

	ev, err = DecodeWithCorrelation([]byte(`{"order_id": 5}`), "req-2")
	require.NoError(t, err)
	assert.Equal(t, "req-2", ev.CorrelationID)

	ev, err = DecodeWithCorrelation([]byte(`{"order_id": 5, "correlation_id": "body"}`), "req-2")
	require.NoError(t, err)
	assert.Equal(t, "body", ev.CorrelationID)
}

func TestEncodeDecode(t *testing.T) {
	in := OrderUpdated{OrderID: 44, InvoiceRequested: true, CorrelationID: "abc"}
	body, err := in.Encode()
	require.NoError(t, err)

	out, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	tr := out.Trigger()
	assert.Equal(t, int64(44), tr.OrderID)
	assert.True(t, tr.InvoiceRequested)
	assert.Equal(t, "abc", tr.CorrelationID)
}
