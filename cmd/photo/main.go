// Package main serves a single photo's metadata by id.
package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/awsutil"
	"github.com/kylejryan/photo-ingest-pipeline/internal/config"
	"github.com/kylejryan/photo-ingest-pipeline/internal/httpx"
	"github.com/kylejryan/photo-ingest-pipeline/internal/logging"
	"github.com/kylejryan/photo-ingest-pipeline/internal/metadata"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// PhotoReader loads photo rows.
type PhotoReader interface {
	GetPhoto(ctx context.Context, photoID int64) (models.PhotoRecord, error)
	FindPhoto(ctx context.Context, companyID, photoID int64) (models.PhotoRecord, error)
}

// App holds the application state.
type App struct {
	photos PhotoReader
	log    zerolog.Logger
}

func main() {
	logger := logging.Init("photo")
	env := config.MustLoadReader()

	ctx := context.Background()
	cfg, _, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		logger.Fatal().Err(err).Msg("load aws config")
	}
	photos, closeDB, err := metadata.Open(ctx, cfg, env.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("open metadata store")
	}
	defer closeDB()

	app := &App{photos: photos, log: logger}
	lambda.Start(app.handler)
}

// handler answers GET /photos/{id}. An optional company_id query parameter
// scopes the lookup to that company.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := positiveInt(req.PathParameters["id"])
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "id must be a positive integer")
	}

	var rec models.PhotoRecord
	if c := req.QueryStringParameters["company_id"]; c != "" {
		companyID, perr := positiveInt(c)
		if perr != nil {
			return httpx.Error(http.StatusBadRequest, "company_id must be a positive integer")
		}
		rec, err = a.photos.FindPhoto(ctx, companyID, id)
	} else {
		rec, err = a.photos.GetPhoto(ctx, id)
	}

	switch {
	case errors.Is(err, metadata.ErrNotFound):
		return httpx.Error(http.StatusNotFound, "photo not found")
	case err != nil:
		a.log.Error().Err(err).Int64("photo_id", id).Msg("get photo")
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, rec)
}

func positiveInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
