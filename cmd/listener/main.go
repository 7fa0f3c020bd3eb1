// Package main runs the long-lived queue listener. It polls SQS until SIGINT
// or SIGTERM and serves Prometheus metrics on METRICS_ADDR.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	backoff "github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kylejryan/photo-ingest-pipeline/internal/awsutil"
	"github.com/kylejryan/photo-ingest-pipeline/internal/config"
	"github.com/kylejryan/photo-ingest-pipeline/internal/consumer"
	"github.com/kylejryan/photo-ingest-pipeline/internal/listener"
	"github.com/kylejryan/photo-ingest-pipeline/internal/logging"
	"github.com/kylejryan/photo-ingest-pipeline/internal/metrics"
	"github.com/kylejryan/photo-ingest-pipeline/internal/queue"
)

func main() {
	logger := logging.Init("listener")
	env := config.MustLoadListener()
	logger = logger.With().
		Str("worker", ulid.Make().String()).
		Str("consumer", env.Consumer).
		Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	proc, release, err := consumer.FromEnv(ctx, env, cfg, endpoint, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build processor")
	}
	defer release()

	l := listener.New(
		&queue.Queue{API: sqs.NewFromConfig(cfg), URL: env.QueueURL},
		proc,
		logger,
		listener.WithWaitTime(env.WaitTime),
		listener.WithIdleSleep(env.IdleSleep),
		listener.WithBackoff(backoff.NewConstantBackOff(env.Backoff)),
		listener.WithMetrics(metrics.NewListener(prometheus.DefaultRegisterer, path.Base(env.QueueURL))),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: env.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := l.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("listener exited")
		release()
		os.Exit(1)
	}
	logger.Info().Msg("listener shut down")
}
