package consumer

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/config"
	"github.com/kylejryan/photo-ingest-pipeline/internal/listener"
	"github.com/kylejryan/photo-ingest-pipeline/internal/metadata"
	"github.com/kylejryan/photo-ingest-pipeline/internal/s3io"
)

// FromEnv builds the processor selected by env.Consumer. The returned func
// releases whatever the processor holds open.
func FromEnv(ctx context.Context, env config.Env, cfg aws.Config, endpoint string, log zerolog.Logger) (listener.Processor, func(), error) {
	if env.Consumer == config.ConsumerBlob {
		return &Thumbnailer{
			Blobs:        &s3io.Store{API: s3io.NewClient(cfg, endpoint)},
			SourceBucket: env.SourceBucket,
			OutputBucket: env.OutputBucket,
			Log:          log,
		}, func() {}, nil
	}
	photos, closeFn, err := metadata.Open(ctx, cfg, env.DB)
	if err != nil {
		return nil, nil, err
	}
	return &PhotoLookup{Photos: photos, Log: log}, closeFn, nil
}
