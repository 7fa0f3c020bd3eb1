// Package queue receives and acknowledges messages on an SQS queue.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// maxWait is the SQS long-poll ceiling.
const maxWait = 20 * time.Second

// API is the subset of the SQS client used by Queue.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Queue is one SQS queue.
type Queue struct {
	API API
	URL string
}

// Receive long-polls for at most one message, waiting up to wait.
func (q *Queue) Receive(ctx context.Context, wait time.Duration) ([]models.InboundMessage, error) {
	if wait > maxWait {
		wait = maxWait
	}
	out, err := q.API.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.URL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receive %s: %w", q.URL, err)
	}
	msgs := make([]models.InboundMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, models.InboundMessage{
			ID:            aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete acknowledges the message identified by receiptHandle.
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.API.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.URL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", q.URL, err)
	}
	return nil
}
