package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// ErrPartialFailure means EventBridge accepted the call but rejected some entries.
var ErrPartialFailure = errors.New("event batch partially rejected")

// API is the subset of the EventBridge client used by Publisher.
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher sends event batches to one bus under one source name.
type Publisher struct {
	API     API
	BusName string
	Source  string
}

// PublishBatch sends batch in a single PutEvents call. Any rejected entry
// fails the whole batch.
func (p *Publisher) PublishBatch(ctx context.Context, batch []models.ProcessingEvent) error {
	if len(batch) == 0 {
		return nil
	}
	if len(batch) > MaxBatch {
		return fmt.Errorf("batch of %d exceeds %d entries", len(batch), MaxBatch)
	}

	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	for _, ev := range batch {
		detail, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.ProcessingType, err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			Source:       aws.String(p.Source),
			DetailType:   aws.String(ev.DetailType),
			Detail:       aws.String(string(detail)),
			EventBusName: aws.String(p.BusName),
		})
	}

	out, err := p.API.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("put events: %w", err)
	}
	if out.FailedEntryCount > 0 {
		return fmt.Errorf("%w: %d of %d failed (%s)", ErrPartialFailure, out.FailedEntryCount, len(entries), firstFailure(out.Entries))
	}
	return nil
}

func firstFailure(results []types.PutEventsResultEntry) string {
	for _, r := range results {
		if r.ErrorCode != nil {
			return aws.ToString(r.ErrorCode) + ": " + aws.ToString(r.ErrorMessage)
		}
	}
	return "no error detail"
}
