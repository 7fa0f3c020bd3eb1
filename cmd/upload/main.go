// Package main is the photo upload endpoint behind API Gateway. It stores the
// metadata row, writes the photo to S3 and fans out processing events.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"

	"github.com/kylejryan/photo-ingest-pipeline/internal/awsutil"
	"github.com/kylejryan/photo-ingest-pipeline/internal/config"
	"github.com/kylejryan/photo-ingest-pipeline/internal/eventbus"
	"github.com/kylejryan/photo-ingest-pipeline/internal/httpx"
	"github.com/kylejryan/photo-ingest-pipeline/internal/ingest"
	"github.com/kylejryan/photo-ingest-pipeline/internal/logging"
	"github.com/kylejryan/photo-ingest-pipeline/internal/metadata"
	"github.com/kylejryan/photo-ingest-pipeline/internal/s3io"
)

// App holds the ingestion handler built at cold start.
type App struct {
	ingest *ingest.Handler
}

func main() {
	logger := logging.Init("upload")
	env := config.MustLoadUpload()

	ctx := context.Background()
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	photos, closeDB, err := metadata.Open(ctx, cfg, env.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("open metadata store")
	}
	defer closeDB()

	app := &App{
		ingest: ingest.New(
			&s3io.Store{API: s3io.NewClient(cfg, endpoint)},
			photos,
			&eventbus.Publisher{
				API:     eventbridge.NewFromConfig(cfg),
				BusName: env.EventBusName,
				Source:  env.EventSource,
			},
			env.Region,
			logger,
		),
	}
	lambda.Start(app.handler)
}

// handler adapts an API Gateway request to the ingestion pipeline.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp := a.ingest.Handle(ctx, ingest.Request{
		Headers:         req.Headers,
		Query:           req.QueryStringParameters,
		Body:            req.Body,
		IsBase64Encoded: req.IsBase64Encoded,
	})
	return httpx.JSON(resp.Status, resp.Body)
}
