package metadata

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kylejryan/photo-ingest-pipeline/internal/config"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// Store is implemented by DataAPIStore and PostgresStore.
type Store interface {
	InsertPhoto(ctx context.Context, p models.PhotoRecord) (int64, error)
	FindPhoto(ctx context.Context, companyID, photoID int64) (models.PhotoRecord, error)
	GetPhoto(ctx context.Context, photoID int64) (models.PhotoRecord, error)
}

// Open returns a Postgres store when db has a DSN and a Data API store
// otherwise. The returned func releases the connection pool, if any.
func Open(ctx context.Context, cfg aws.Config, db config.Database) (Store, func(), error) {
	if db.UsesDataAPI() {
		return &DataAPIStore{
			API:        rdsdata.NewFromConfig(cfg),
			ClusterARN: db.ClusterARN,
			SecretARN:  db.SecretARN,
			Database:   db.Name,
		}, func() {}, nil
	}
	pool, err := pgxpool.New(ctx, db.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	return &PostgresStore{DB: pool}, pool.Close, nil
}
