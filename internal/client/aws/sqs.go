package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the part of the SQS client the publisher calls.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueuePublisher sends order events to an SQS queue.
type QueuePublisher struct {
	svc      SQSAPI
	queueURL string
}

// NewQueuePublisher creates a publisher for queueURL. endpoint overrides the
// SQS endpoint (e.g. a local emulator) when non-empty.
func NewQueuePublisher(cfg aws.Config, queueURL, endpoint string) *QueuePublisher {
	svc := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewQueuePublisherWithAPI(svc, queueURL)
}

// NewQueuePublisherWithAPI creates a publisher around an existing client.
func NewQueuePublisherWithAPI(svc SQSAPI, queueURL string) *QueuePublisher {
	return &QueuePublisher{svc: svc, queueURL: queueURL}
}

// Publish sends body with the correlation id as a message attribute and
// returns the SQS message id.
func (p *QueuePublisher) Publish(ctx context.Context, body []byte, correlationID string) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if correlationID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"correlation_id": {DataType: aws.String("String"), StringValue: aws.String(correlationID)},
		}
	}

	out, err := p.svc.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send message to queue: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
