package consumer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
	"github.com/kylejryan/photo-ingest-pipeline/internal/s3io"
)

// Thumbnail defaults.
const (
	DefaultThumbnailSize    = 300
	DefaultThumbnailQuality = 85
	ThumbnailPrefix         = "processed/"

	// MaxSourcePixels bounds the decoded size of a source image. The header
	// is checked before any pixel buffer is allocated.
	MaxSourcePixels = 89_478_485
)

// BlobStore reads source objects and writes thumbnails.
type BlobStore interface {
	Get(ctx context.Context, bucket, key string) (s3io.Object, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string, meta map[string]string) error
}

// Thumbnailer fetches an uploaded photo and writes a JPEG thumbnail that
// fits in a Size x Size box to the output bucket.
type Thumbnailer struct {
	Blobs        BlobStore
	SourceBucket string
	OutputBucket string
	Size         int
	Quality      int
	Log          zerolog.Logger
}

// ThumbnailKey is where the thumbnail of key is stored for a company.
func ThumbnailKey(companyID int64, key string) string {
	return ThumbnailPrefix + strconv.FormatInt(companyID, 10) + "/" + path.Base(key)
}

// Process implements listener.Processor. The bucket defaults to SourceBucket
// when the message does not name one. Bodies that are not decodable images
// are malformed.
func (t *Thumbnailer) Process(ctx context.Context, msg models.InboundMessage) error {
	body, err := decode(msg.Body)
	if err != nil {
		return err
	}
	if body.Key == "" {
		return malformed("key is required")
	}
	companyID, err := id("company_id", body.CompanyID, body.ClientID)
	if err != nil {
		return err
	}
	bucket := body.Bucket
	if bucket == "" {
		bucket = t.SourceBucket
	}
	if bucket == "" {
		return malformed("bucket is required")
	}

	obj, err := t.Blobs.Get(ctx, bucket, body.Key)
	if err != nil {
		return err
	}
	thumb, err := t.render(obj.Body)
	if err != nil {
		return malformed("s3://%s/%s: %v", bucket, body.Key, err)
	}

	out := ThumbnailKey(companyID, body.Key)
	meta := map[string]string{
		"company_id":   strconv.FormatInt(companyID, 10),
		"client_id":    strconv.FormatInt(companyID, 10),
		"source_image": body.Key,
		"processed":    "true",
	}
	if err := t.Blobs.Put(ctx, t.OutputBucket, out, thumb, s3io.ContentTypeJPEG, meta); err != nil {
		return err
	}
	t.Log.Info().
		Str("source", body.Key).
		Str("thumbnail", out).
		Int("source_bytes", len(obj.Body)).
		Int("thumbnail_bytes", len(thumb)).
		Msg("thumbnail written")
	return nil
}

func (t *Thumbnailer) render(src []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, MaxSourcePixels)
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	size := t.Size
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	quality := t.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbnailQuality
	}

	b := img.Bounds()
	w, h := fit(b.Dx(), b.Dy(), size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales w x h down to fit in a box x box square keeping the aspect
// ratio. Images that already fit are left at their size.
func fit(w, h, box int) (int, int) {
	if w <= box && h <= box {
		return w, h
	}
	if w >= h {
		return box, max(1, h*box/w)
	}
	return max(1, w*box/h), box
}
