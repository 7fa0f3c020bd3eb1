package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// Querier abstracts the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore talks to Postgres directly. It is used for local development
// where no Data API endpoint exists.
type PostgresStore struct {
	DB Querier
}

// InsertPhoto inserts p and returns the generated id.
func (s *PostgresStore) InsertPhoto(ctx context.Context, p models.PhotoRecord) (int64, error) {
	params := insertParams(p)
	sql := insertSQL(params, func(i int, _ string) string { return "$" + strconv.Itoa(i+1) })
	args := make([]any, len(params))
	for i, prm := range params {
		args[i] = prm.value
	}

	var id int64
	if err := s.DB.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoRowReturned
		}
		return 0, fmt.Errorf("insert photo: %w", err)
	}
	return id, nil
}

// FindPhoto looks a photo up by its composite key.
func (s *PostgresStore) FindPhoto(ctx context.Context, companyID, photoID int64) (models.PhotoRecord, error) {
	return s.queryOne(ctx, "SELECT "+selectColumns+" FROM photos WHERE company_id = $1 AND id = $2", companyID, photoID)
}

// GetPhoto looks a photo up by id alone.
func (s *PostgresStore) GetPhoto(ctx context.Context, photoID int64) (models.PhotoRecord, error) {
	return s.queryOne(ctx, "SELECT "+selectColumns+" FROM photos WHERE id = $1", photoID)
}

func (s *PostgresStore) queryOne(ctx context.Context, sql string, args ...any) (models.PhotoRecord, error) {
	var (
		p   models.PhotoRecord
		mdl *string
	)
	err := s.DB.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.UserID, &p.CompanyID, &p.ProjectTableName, &p.ClientSideID, &p.Title,
		&p.Description, &p.Format, &p.Size, &p.SourceResolutionX, &p.SourceResolutionY, &p.DateTaken,
		&p.Latitude, &p.Longitude, &mdl, &p.S3Key, &p.S3URL, &p.ContentType, &p.DateUploaded,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PhotoRecord{}, ErrNotFound
	}
	if err != nil {
		return models.PhotoRecord{}, fmt.Errorf("select photo: %w", err)
	}
	p.Models = splitModels(mdl)
	p.DateUploaded = p.DateUploaded.UTC()
	return p, nil
}
