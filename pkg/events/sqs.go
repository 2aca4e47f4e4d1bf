package events

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue publishes and consumes events through an SQS queue. A message is
// deleted only after its handler succeeds, so failures are redelivered once
// the visibility timeout expires.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	logger   *zap.Logger
}

func NewSQSQueue(ctx context.Context, region, queueURL string, logger *zap.Logger) (*SQSQueue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSQSQueue(sqs.NewFromConfig(cfg), queueURL, logger), nil
}

func newSQSQueue(client sqsAPI, queueURL string, logger *zap.Logger) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL, logger: logger}
}

func (q *SQSQueue) Publish(ctx context.Context, e *Event) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("send event %s: %w", e.ID, err)
	}
	return nil
}

func (q *SQSQueue) Consume(ctx context.Context, h Handler) error {
	q.logger.Info("Consuming events", zap.String("queue_url", q.queueURL))
	for {
		if ctx.Err() != nil {
			return nil
		}

		// Long polling: wait up to 20 seconds for messages
		result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   30,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			q.logger.Error("Error receiving messages", zap.Error(err))
			if !sleep(ctx, 5*time.Second) {
				return nil
			}
			continue
		}

		for _, msg := range result.Messages {
			e, err := Decode([]byte(aws.ToString(msg.Body)))
			if err != nil {
				q.logger.Warn("Dropping malformed event", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
				q.delete(ctx, msg.ReceiptHandle)
				continue
			}
			if err := h(ctx, e); err != nil {
				q.logger.Error("Event handler failed, leaving message for redelivery",
					zap.String("event_id", e.ID),
					zap.String("order_id", e.OrderID),
					zap.Error(err))
				continue
			}
			q.delete(ctx, msg.ReceiptHandle)
		}
	}
}

func (q *SQSQueue) delete(ctx context.Context, receiptHandle *string) {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		q.logger.Error("Failed to delete message", zap.Error(err))
	}
}
