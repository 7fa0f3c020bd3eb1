// Package eventbus builds fan-out event batches and publishes them to EventBridge.
package eventbus

import (
	"strings"
	"unicode"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// MaxBatch is the EventBridge PutEvents entry limit.
const MaxBatch = 10

// FanOut describes one ingested photo to announce.
type FanOut struct {
	RequestID        string
	Bucket           string
	Key              string
	PhotoID          int64
	PhotoURL         string
	Timestamp        int64
	CompanyID        int64
	UserID           int64
	ProjectTableName *string
	Models           []string
}

// BuildBatch returns the canonical upload event followed by one event per
// model, 1+len(f.Models) in total, all sharing RequestID and PhotoID.
func BuildBatch(f FanOut) []models.ProcessingEvent {
	batch := make([]models.ProcessingEvent, 0, 1+len(f.Models))
	batch = append(batch, f.event(models.ProcessingUpload, models.DetailTypeUploaded))
	for _, m := range f.Models {
		m = strings.TrimSpace(m)
		batch = append(batch, f.event(m, DetailType(m)))
	}
	return batch
}

func (f FanOut) event(processingType, detailType string) models.ProcessingEvent {
	return models.ProcessingEvent{
		RequestID:        f.RequestID,
		Bucket:           f.Bucket,
		Key:              f.Key,
		PhotoID:          f.PhotoID,
		PhotoS3Link:      f.PhotoURL,
		Timestamp:        f.Timestamp,
		Version:          models.EventVersion,
		ProcessingType:   processingType,
		CompanyID:        f.CompanyID,
		UserID:           f.UserID,
		ProjectTableName: f.ProjectTableName,
		DetailType:       detailType,
	}
}

// DetailType derives the detail-type of a model event, e.g.
// "face_detect" -> "FaceDetectProcessingRequested".
func DetailType(model string) string {
	var b strings.Builder
	upper := true
	for _, r := range model {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String() + models.DetailTypeProcessing
}
