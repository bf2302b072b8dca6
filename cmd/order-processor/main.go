package main

import (
	"context"
	"errors"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/app"
	orderevents "github.com/pablop76/hikashop-fakturownia/internal/events"
	"github.com/pablop76/hikashop-fakturownia/internal/handlers"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// Application holds the dependencies of the SQS handler.
type Application struct {
	processor handlers.OrderProcessor
	logger    *zap.Logger
}

// HandleSQSEvent processes each queued order event in turn. Every record is
// acknowledged: failures are reported to the shop administrator by the
// processor, and malformed records would never succeed on redelivery.
func (a *Application) HandleSQSEvent(ctx context.Context, event events.SQSEvent) error {
	a.logger.Info("Processing order events", zap.Int("record_count", len(event.Records)))

	failed := 0
	for _, record := range event.Records {
		log := a.logger.With(zap.String("message_id", record.MessageId))

		evt, err := orderevents.DecodeWithCorrelation([]byte(record.Body), correlationID(record))
		if err != nil {
			if errors.Is(err, orderevents.ErrMissingOrderID) {
				log.Debug("Order event without order id skipped")
			} else {
				log.Warn("Malformed order event skipped", zap.Error(err))
			}
			continue
		}

		out := a.processor.Process(ctx, evt.Trigger())
		if out.Err != nil {
			failed++
		}
		log.Info("Order event processed",
			zap.Int64("order_id", out.OrderID),
			zap.String("state", string(out.State)),
			zap.String("correlation_id", evt.CorrelationID))
	}

	a.logger.Info("Order events processed",
		zap.Int("total", len(event.Records)),
		zap.Int("failed", failed))
	return nil
}

func correlationID(record events.SQSMessage) string {
	if attr, ok := record.MessageAttributes["correlation_id"]; ok && attr.StringValue != nil {
		return *attr.StringValue
	}
	return ""
}

func main() {
	ctx := context.Background()

	cfg, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("order processor: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("order processor: %v", err)
	}
	// The pool is kept for the lifetime of the Lambda container.

	application := &Application{processor: a.Processor, logger: logger.Log}
	lambda.Start(application.HandleSQSEvent)
}
