package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/metadata"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// PhotoFinder selects a photo row by company and id.
type PhotoFinder interface {
	FindPhoto(ctx context.Context, companyID, photoID int64) (models.PhotoRecord, error)
}

// PhotoLookup confirms that the photo a message refers to exists.
type PhotoLookup struct {
	Photos PhotoFinder
	Log    zerolog.Logger
}

// Process implements listener.Processor. A missing row is logged and the
// message is acknowledged.
func (p *PhotoLookup) Process(ctx context.Context, msg models.InboundMessage) error {
	body, err := decode(msg.Body)
	if err != nil {
		return err
	}
	companyID, err := id("company_id", body.CompanyID, body.ClientID)
	if err != nil {
		return err
	}
	photoID, err := id("photo_id", body.PhotoID, body.FileID)
	if err != nil {
		return err
	}

	log := p.Log.With().Int64("company_id", companyID).Int64("photo_id", photoID).Logger()
	rec, err := p.Photos.FindPhoto(ctx, companyID, photoID)
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		log.Warn().Msg("no photo found")
		return nil
	case err != nil:
		return fmt.Errorf("find photo %d: %w", photoID, err)
	}
	log.Info().Str("s3_key", rec.S3Key).Strs("models", rec.Models).Msg("photo processed")
	return nil
}
