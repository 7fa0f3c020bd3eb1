package listener

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// HandleSQSEvent runs p over a Lambda SQS batch. Records that fail
// transiently are reported as batch item failures so that only they are
// redelivered. Malformed records count as handled.
func HandleSQSEvent(ctx context.Context, p Processor, log zerolog.Logger, ev events.SQSEvent) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		msg := models.InboundMessage{ID: rec.MessageId, Body: rec.Body, ReceiptHandle: rec.ReceiptHandle}
		l := log.With().Str("message_id", rec.MessageId).Logger()

		err := process(ctx, p, msg)
		switch {
		case err == nil:
			l.Info().Msg("processor: record handled")
		case errors.Is(err, ErrMalformed):
			l.Warn().Err(err).Msg("processor: dropping malformed record")
		default:
			l.Error().Err(err).Msg("processor: record failed")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp
}
