// Package ingest is the upload pipeline: it validates a request, records the
// photo, stores the blob and fans processing events out to every pipeline.
package ingest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kylejryan/photo-ingest-pipeline/internal/api"
	"github.com/kylejryan/photo-ingest-pipeline/internal/eventbus"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
	"github.com/kylejryan/photo-ingest-pipeline/internal/s3io"
	"github.com/kylejryan/photo-ingest-pipeline/internal/validate"
)

// BlobStore writes objects.
type BlobStore interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string, meta map[string]string) error
}

// MetadataStore creates photo rows.
type MetadataStore interface {
	InsertPhoto(ctx context.Context, p models.PhotoRecord) (int64, error)
}

// EventPublisher publishes one batch atomically.
type EventPublisher interface {
	PublishBatch(ctx context.Context, batch []models.ProcessingEvent) error
}

// Response is the handler outcome: an HTTP status and a JSON-encodable body.
type Response struct {
	Status int
	Body   any
}

// Handler runs the ingestion pipeline. It holds no per-request state and is
// safe for concurrent use.
type Handler struct {
	blobs  BlobStore
	photos MetadataStore
	events EventPublisher
	region string
	log    zerolog.Logger

	now       func() time.Time
	requestID func() string
	steps     []step
}

// Option customizes a Handler.
type Option func(*Handler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

// WithRequestIDs replaces the UUID request id generator.
func WithRequestIDs(gen func() string) Option { return func(h *Handler) { h.requestID = gen } }

// New builds a Handler. region is used to derive object URLs.
func New(blobs BlobStore, photos MetadataStore, events EventPublisher, region string, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		blobs:     blobs,
		photos:    photos,
		events:    events,
		region:    region,
		log:       log,
		now:       time.Now,
		requestID: uuid.NewString,
	}
	for _, o := range opts {
		o(h)
	}
	// Order matters: the row must exist before the blob references it, and
	// events must only announce a stored blob.
	h.steps = []step{
		{name: "metadata", run: h.insertMetadata, terminal: true, failure: "Failed to save photo metadata"},
		{name: "blob", run: h.writeBlob, terminal: true, failure: "Failed to upload file"},
		{name: "events", run: h.publishEvents, terminal: false},
	}
	return h
}

// ingestion carries one request through the steps.
type ingestion struct {
	requestID string
	at        time.Time
	req       models.UploadRequest
	blob      models.StoredBlob
	photoID   int64
	warning   string
	log       zerolog.Logger
}

type step struct {
	name     string
	run      func(context.Context, *ingestion) error
	terminal bool
	failure  string
}

// Handle processes one upload. It never panics and never returns an error:
// every outcome is a Response.
func (h *Handler) Handle(ctx context.Context, r Request) (resp Response) {
	in := &ingestion{requestID: h.requestID(), at: h.now().UTC()}
	in.log = h.log.With().Str("request_id", in.requestID).Logger()

	defer func() {
		if p := recover(); p != nil {
			in.log.Error().Interface("panic", p).Int64("photo_id", in.photoID).Msg("ingest: unexpected panic")
			resp = errorResponse(http.StatusInternalServerError, "Internal server error", in)
		}
	}()

	req, err := ParseRequest(r)
	if err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			in.log.Info().Str("field", verr.Field).Msg("ingest: rejected request: " + verr.Error())
			return errorResponse(http.StatusBadRequest, verr.Error(), in)
		}
		in.log.Error().Err(err).Msg("ingest: parse request")
		return errorResponse(http.StatusInternalServerError, "Internal server error", in)
	}
	in.req = req
	in.blob = h.locate(req)
	in.log = in.log.With().Str("key", in.blob.Key).Logger()

	for _, s := range h.steps {
		if err := s.run(ctx, in); err != nil {
			if !s.terminal {
				in.log.Warn().Err(err).Str("step", s.name).Int64("photo_id", in.photoID).Msg("ingest: non-fatal step failed")
				in.warning = s.name + " step failed: " + err.Error()
				continue
			}
			in.log.Error().Err(err).Str("step", s.name).Int64("photo_id", in.photoID).Msg("ingest: step failed")
			return errorResponse(http.StatusInternalServerError, s.failure, in)
		}
	}

	in.log.Info().Int64("photo_id", in.photoID).Int("models", len(req.Models)).Msg("ingest: upload complete")
	return Response{Status: http.StatusOK, Body: api.UploadResponse{
		Message:   "Upload successful",
		RequestID: in.requestID,
		PhotoID:   in.photoID,
		Timestamp: in.at.Unix(),
		CompanyID: req.CompanyID,
		Warning:   in.warning,
	}}
}

// locate derives key, content type and URL without touching storage.
func (h *Handler) locate(req models.UploadRequest) models.StoredBlob {
	key := s3io.UploadKey(req.FileName)
	return models.StoredBlob{
		Bucket:      req.BucketName,
		Key:         key,
		ContentType: s3io.ContentTypeFor(req.MimeType, req.FileName),
		URL:         s3io.ObjectURL(req.BucketName, h.region, key),
	}
}

func (h *Handler) insertMetadata(ctx context.Context, in *ingestion) error {
	id, err := h.photos.InsertPhoto(ctx, models.NewPhotoRecord(in.req, in.blob, in.at))
	if err != nil {
		return err
	}
	in.photoID = id
	in.log = in.log.With().Int64("photo_id", id).Logger()
	return nil
}

func (h *Handler) writeBlob(ctx context.Context, in *ingestion) error {
	meta := map[string]string{
		"request_id": in.requestID,
		"photo_id":   strconv.FormatInt(in.photoID, 10),
		"user_id":    strconv.FormatInt(in.req.UserID, 10),
		"company_id": strconv.FormatInt(in.req.CompanyID, 10),
		"timestamp":  strconv.FormatInt(in.at.Unix(), 10),
	}
	return h.blobs.Put(ctx, in.blob.Bucket, in.blob.Key, in.req.Payload, in.blob.ContentType, meta)
}

// publishEvents is best effort: the blob and row are already committed, and
// redelivery is left to the platform.
func (h *Handler) publishEvents(ctx context.Context, in *ingestion) error {
	batch := eventbus.BuildBatch(eventbus.FanOut{
		RequestID:        in.requestID,
		Bucket:           in.blob.Bucket,
		Key:              in.blob.Key,
		PhotoID:          in.photoID,
		PhotoURL:         in.blob.URL,
		Timestamp:        in.at.Unix(),
		CompanyID:        in.req.CompanyID,
		UserID:           in.req.UserID,
		ProjectTableName: in.req.ProjectTableName,
		Models:           in.req.Models,
	})
	if err := h.events.PublishBatch(ctx, batch); err != nil {
		return err
	}
	in.log.Debug().Int("events", len(batch)).Msg("ingest: events published")
	return nil
}

func errorResponse(status int, msg string, in *ingestion) Response {
	body := api.ErrorResponse{Error: msg, RequestID: in.requestID}
	if in.photoID != 0 {
		id := in.photoID
		body.PhotoID = &id
	}
	return Response{Status: status, Body: body}
}
