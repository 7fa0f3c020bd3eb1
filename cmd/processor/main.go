// Package main consumes a processing queue as an SQS-triggered Lambda.
// Records that fail transiently are returned as batch item failures.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/awsutil"
	"github.com/kylejryan/photo-ingest-pipeline/internal/config"
	"github.com/kylejryan/photo-ingest-pipeline/internal/consumer"
	"github.com/kylejryan/photo-ingest-pipeline/internal/listener"
	"github.com/kylejryan/photo-ingest-pipeline/internal/logging"
)

// App holds the processor selected by CONSUMER.
type App struct {
	proc listener.Processor
	log  zerolog.Logger
}

func main() {
	logger := logging.Init("processor")
	env := config.MustLoadProcessor()

	ctx := context.Background()
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	proc, release, err := consumer.FromEnv(ctx, env, cfg, endpoint, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build processor")
	}
	defer release()

	app := &App{proc: proc, log: logger.With().Str("consumer", env.Consumer).Logger()}
	lambda.Start(app.handler)
}

func (a *App) handler(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	return listener.HandleSQSEvent(ctx, a.proc, a.log, ev), nil
}
