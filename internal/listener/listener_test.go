package listener

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/photo-ingest-pipeline/internal/metrics"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// receive is one scripted Receive result.
type receive struct {
	msgs []models.InboundMessage
	err  error
}

type fakeQueue struct {
	script    []receive
	receives  int
	deleted   []string
	deleteErr error
}

func (q *fakeQueue) Receive(_ context.Context, _ time.Duration) ([]models.InboundMessage, error) {
	q.receives++
	if len(q.script) == 0 {
		return nil, nil
	}
	r := q.script[0]
	q.script = q.script[1:]
	return r.msgs, r.err
}

func (q *fakeQueue) Delete(_ context.Context, receipt string) error {
	if q.deleteErr != nil {
		return q.deleteErr
	}
	q.deleted = append(q.deleted, receipt)
	return nil
}

type sleeps struct{ got []time.Duration }

func (s *sleeps) sleep(_ context.Context, d time.Duration) error {
	s.got = append(s.got, d)
	return nil
}

func msg(id string) models.InboundMessage {
	return models.InboundMessage{ID: id, Body: `{}`, ReceiptHandle: "rh-" + id}
}

func newTestListener(q Queue, p Processor, s *sleeps, opts ...Option) *Listener {
	opts = append([]Option{WithSleep(s.sleep)}, opts...)
	return New(q, p, zerolog.Nop(), opts...)
}

func ok() Processor {
	return ProcessorFunc(func(context.Context, models.InboundMessage) error { return nil })
}

func TestSuccessfulMessageIsDeleted(t *testing.T) {
	q := &fakeQueue{script: []receive{{msgs: []models.InboundMessage{msg("1")}}}}
	var seen []string
	p := ProcessorFunc(func(_ context.Context, m models.InboundMessage) error {
		seen = append(seen, m.ID)
		return nil
	})
	s := &sleeps{}
	l := newTestListener(q, p, s)

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, []string{"1"}, seen)
	assert.Equal(t, []string{"rh-1"}, q.deleted)
	assert.Equal(t, Polling, l.State())
	assert.Empty(t, s.got, "no sleep after a handled message")
}

func TestMalformedMessageIsDeleted(t *testing.T) {
	q := &fakeQueue{script: []receive{{msgs: []models.InboundMessage{msg("1")}}}}
	p := ProcessorFunc(func(context.Context, models.InboundMessage) error {
		return fmt.Errorf("missing photo_id: %w", ErrMalformed)
	})
	l := newTestListener(q, p, &sleeps{})

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, []string{"rh-1"}, q.deleted)
}

func TestFailedMessageIsLeftForRedelivery(t *testing.T) {
	q := &fakeQueue{script: []receive{{msgs: []models.InboundMessage{msg("1")}}}}
	p := ProcessorFunc(func(context.Context, models.InboundMessage) error { return errors.New("db down") })
	l := newTestListener(q, p, &sleeps{})

	require.NoError(t, l.Step(context.Background()))
	assert.Empty(t, q.deleted)
	assert.Equal(t, Polling, l.State())
}

func TestProcessorPanicDoesNotStopLoop(t *testing.T) {
	q := &fakeQueue{script: []receive{
		{msgs: []models.InboundMessage{msg("1")}},
		{msgs: []models.InboundMessage{msg("2")}},
	}}
	p := ProcessorFunc(func(_ context.Context, m models.InboundMessage) error {
		if m.ID == "1" {
			panic("boom")
		}
		return nil
	})
	l := newTestListener(q, p, &sleeps{})

	require.NoError(t, l.Step(context.Background()))
	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, []string{"rh-2"}, q.deleted)
}

func TestEmptyReceiveSleepsIdle(t *testing.T) {
	q := &fakeQueue{}
	s := &sleeps{}
	l := newTestListener(q, ok(), s, WithIdleSleep(5*time.Second))

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, []time.Duration{5 * time.Second}, s.got)
	assert.Equal(t, Polling, l.State())
}

func TestReceiveErrorEntersBackoffThenPolls(t *testing.T) {
	q := &fakeQueue{script: []receive{
		{err: errors.New("queue unreachable")},
		{msgs: []models.InboundMessage{msg("1")}},
	}}
	s := &sleeps{}
	l := newTestListener(q, ok(), s, WithBackoff(backoff.NewConstantBackOff(10*time.Second)))

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, Backoff, l.State())
	assert.Empty(t, s.got)

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, Polling, l.State())
	assert.Equal(t, []time.Duration{10 * time.Second}, s.got)

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, []string{"rh-1"}, q.deleted)
	assert.Equal(t, 2, q.receives)
}

func TestStoppedBackoffUsesDefault(t *testing.T) {
	q := &fakeQueue{script: []receive{{err: errors.New("x")}}}
	s := &sleeps{}
	l := newTestListener(q, ok(), s, WithBackoff(&backoff.StopBackOff{}))

	require.NoError(t, l.Step(context.Background()))
	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, []time.Duration{DefaultBackoff}, s.got)
}

func TestDeleteFailureKeepsPolling(t *testing.T) {
	q := &fakeQueue{
		script:    []receive{{msgs: []models.InboundMessage{msg("1")}}},
		deleteErr: errors.New("receipt expired"),
	}
	reg := prometheus.NewRegistry()
	l := newTestListener(q, ok(), &sleeps{}, WithMetrics(metrics.NewListener(reg, "test")))

	require.NoError(t, l.Step(context.Background()))
	assert.Equal(t, Polling, l.State())

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "photo_listener_messages_total" {
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "outcome" && lp.GetValue() == metrics.OutcomeDeleteFailed {
						found = true
						assert.Equal(t, 1.0, m.GetCounter().GetValue())
					}
				}
			}
		}
	}
	assert.True(t, found)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := &fakeQueue{}
	polls := 0
	s := func(context.Context, time.Duration) error {
		polls++
		if polls == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	l := New(q, ok(), zerolog.Nop(), WithSleep(s))

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, q.receives)
}

func TestSleepContextHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), 0))
}

func TestHandleSQSEventReportsOnlyTransientFailures(t *testing.T) {
	ev := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "good", Body: "ok"},
		{MessageId: "bad", Body: "malformed"},
		{MessageId: "retry", Body: "transient"},
		{MessageId: "boom", Body: "panic"},
	}}
	p := ProcessorFunc(func(_ context.Context, m models.InboundMessage) error {
		switch m.Body {
		case "malformed":
			return ErrMalformed
		case "transient":
			return errors.New("timeout")
		case "panic":
			panic("nil map")
		}
		return nil
	})

	resp := HandleSQSEvent(context.Background(), p, zerolog.Nop(), ev)
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Equal(t, "retry", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, "boom", resp.BatchItemFailures[1].ItemIdentifier)
}
