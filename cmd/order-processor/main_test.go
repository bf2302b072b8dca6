package main

import (
	"context"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/processor"
)

type recordingProcessor struct {
	triggers []processor.Trigger
}

func (p *recordingProcessor) Process(_ context.Context, t processor.Trigger) processor.Outcome {
	p.triggers = append(p.triggers, t)
	return processor.Outcome{State: processor.StateDone, OrderID: t.OrderID}
}

func TestHandleSQSEvent(t *testing.T) {
	corr := "corr-1"
	proc := &recordingProcessor{}
	application := &Application{processor: proc, logger: zap.NewNop()}

	err := application.HandleSQSEvent(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: `{"order_id": 5}`, MessageAttributes: map[string]events.SQSMessageAttribute{
			"correlation_id": {StringValue: &corr, DataType: "String"},
		}},
		{MessageId: "m2", Body: `garbage`},
		{MessageId: "m3", Body: `{"order_id": 6, "invoice_request": true, "correlation_id": "body"}`},
	}})
	require.NoError(t, err)

	require.Len(t, proc.triggers, 2)
	assert.Equal(t, int64(5), proc.triggers[0].OrderID)
	assert.Equal(t, "corr-1", proc.triggers[0].CorrelationID)
	assert.Equal(t, int64(6), proc.triggers[1].OrderID)
	assert.True(t, proc.triggers[1].InvoiceRequested)
	assert.Equal(t, "body", proc.triggers[1].CorrelationID)
}
