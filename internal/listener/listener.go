// Package listener consumes a queue: it long-polls, processes one message at a
// time, acknowledges on success and backs off when the queue is unreachable.
package listener

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/metrics"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// ErrMalformed marks a message that can never succeed. It is acknowledged
// (dropped) instead of being left for redelivery.
var ErrMalformed = errors.New("malformed message")

// Queue receives and acknowledges messages.
type Queue interface {
	Receive(ctx context.Context, wait time.Duration) ([]models.InboundMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Processor handles one message. Returning an error wrapping ErrMalformed
// drops the message; any other error leaves it for redelivery.
type Processor interface {
	Process(ctx context.Context, msg models.InboundMessage) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, msg models.InboundMessage) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, msg models.InboundMessage) error { return f(ctx, msg) }

// State is the consumer loop state.
type State int

// Loop states.
const (
	Polling State = iota
	Backoff
)

func (s State) String() string {
	if s == Backoff {
		return "backoff"
	}
	return "polling"
}

// Defaults.
const (
	DefaultWaitTime  = 10 * time.Second
	DefaultIdleSleep = 5 * time.Second
	DefaultBackoff   = 10 * time.Second
)

// Listener is a two-state consumer loop. It is not safe for concurrent use;
// run one Listener per goroutine.
type Listener struct {
	queue   Queue
	proc    Processor
	log     zerolog.Logger
	metrics *metrics.Listener

	wait    time.Duration
	idle    time.Duration
	backoff backoff.BackOff
	sleep   func(ctx context.Context, d time.Duration) error

	state State
}

// Option customizes a Listener.
type Option func(*Listener)

// WithWaitTime sets the long-poll wait.
func WithWaitTime(d time.Duration) Option { return func(l *Listener) { l.wait = d } }

// WithIdleSleep sets the pause after an empty receive.
func WithIdleSleep(d time.Duration) Option { return func(l *Listener) { l.idle = d } }

// WithBackoff sets the policy for the Backoff state.
func WithBackoff(b backoff.BackOff) Option { return func(l *Listener) { l.backoff = b } }

// WithSleep replaces the context-aware sleep, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Listener) { l.sleep = fn }
}

// WithMetrics records loop activity.
func WithMetrics(m *metrics.Listener) Option { return func(l *Listener) { l.metrics = m } }

// New builds a Listener in the Polling state.
func New(q Queue, p Processor, log zerolog.Logger, opts ...Option) *Listener {
	l := &Listener{
		queue:   q,
		proc:    p,
		log:     log,
		wait:    DefaultWaitTime,
		idle:    DefaultIdleSleep,
		backoff: backoff.NewConstantBackOff(DefaultBackoff),
		sleep:   sleepContext,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// State reports the current loop state.
func (l *Listener) State() State { return l.state }

// Run polls until ctx is cancelled and then returns ctx.Err().
func (l *Listener) Run(ctx context.Context) error {
	l.log.Info().Dur("wait", l.wait).Dur("idle", l.idle).Msg("listener: starting")
	for {
		if err := l.Step(ctx); err != nil {
			l.log.Info().Err(err).Msg("listener: stopped")
			return err
		}
	}
}

// Step performs one transition of the loop. It only returns an error when ctx
// is done.
func (l *Listener) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.state == Backoff {
		d := l.nextBackoff()
		l.log.Debug().Dur("sleep", d).Msg("listener: backing off")
		l.state = Polling
		return l.sleep(ctx, d)
	}

	msgs, err := l.queue.Receive(ctx, l.wait)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Error().Err(err).Msg("listener: receive failed")
		l.metrics.ReceiveError()
		l.state = Backoff
		return nil
	}
	l.backoff.Reset()

	if len(msgs) == 0 {
		l.log.Debug().Msg("listener: no messages, waiting")
		l.metrics.IdlePoll()
		return l.sleep(ctx, l.idle)
	}
	for _, m := range msgs {
		l.handle(ctx, m)
	}
	return nil
}

// handle processes msg and deletes it unless processing failed transiently.
// Errors stop here so one bad message never halts the loop.
func (l *Listener) handle(ctx context.Context, msg models.InboundMessage) {
	log := l.log.With().Str("message_id", msg.ID).Str("receipt", msg.ReceiptHandle).Logger()

	err := process(ctx, l.proc, msg)
	outcome := metrics.OutcomeAcked
	switch {
	case err == nil:
	case errors.Is(err, ErrMalformed):
		log.Warn().Err(err).Msg("listener: dropping malformed message")
		outcome = metrics.OutcomeMalformed
	default:
		log.Error().Err(err).Msg("listener: processing failed, leaving message for redelivery")
		l.metrics.Message(metrics.OutcomeFailed)
		return
	}

	if err := l.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		log.Error().Err(err).Msg("listener: delete failed, message will be redelivered")
		l.metrics.Message(metrics.OutcomeDeleteFailed)
		return
	}
	log.Info().Msg("listener: message deleted from queue")
	l.metrics.Message(outcome)
}

func process(ctx context.Context, p Processor, msg models.InboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return p.Process(ctx, msg)
}

func (l *Listener) nextBackoff() time.Duration {
	d := l.backoff.NextBackOff()
	if d == backoff.Stop {
		l.backoff.Reset()
		if d = l.backoff.NextBackOff(); d == backoff.Stop {
			d = DefaultBackoff
		}
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
