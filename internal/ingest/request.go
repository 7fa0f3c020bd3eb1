package ingest

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/kylejryan/photo-ingest-pipeline/internal/api"
	"github.com/kylejryan/photo-ingest-pipeline/internal/httpx"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
	"github.com/kylejryan/photo-ingest-pipeline/internal/validate"
)

// Request is the transport-neutral view of one upload call.
type Request struct {
	Headers         map[string]string
	Query           map[string]string
	Body            string
	IsBase64Encoded bool
}

// ParseRequest turns the raw call into a validated UploadRequest. Every error
// it returns is a *validate.Error.
//
// bucket_name and file_name come from x-bucket-name / x-file-name headers or
// the bucket_name / file_name query parameters; the body's filename is a
// fallback for the file name. Metadata fields come from the JSON body or from
// x-* headers (user_id -> x-user-id), the body winning. A body that is not a
// JSON object is taken as the base64 payload itself, unless the gateway
// already base64-encoded it, in which case it is the raw file.
func ParseRequest(r Request) (models.UploadRequest, error) {
	var req models.UploadRequest
	if strings.TrimSpace(r.Body) == "" {
		return req, &validate.Error{Field: "body", Reason: "is required"}
	}

	raw := r.Body
	if r.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return req, &validate.Error{Field: "body", Reason: "is not valid base64"}
		}
		raw = string(b)
	}

	var body api.UploadBody
	payload := raw
	isJSON := strings.HasPrefix(strings.TrimSpace(raw), "{")
	if isJSON {
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return req, &validate.Error{Field: "body", Reason: "is not valid JSON"}
		}
		payload = body.FileContent
	}

	req.BucketName = firstNonEmpty(httpx.Header(r.Headers, "x-bucket-name"), r.Query["bucket_name"])
	if req.BucketName == "" {
		return req, &validate.Error{Field: "bucket_name", Reason: "is required"}
	}
	req.FileName = firstNonEmpty(httpx.Header(r.Headers, "x-file-name"), r.Query["file_name"], strings.TrimSpace(body.Filename))
	if req.FileName == "" {
		return req, &validate.Error{Field: "file_name", Reason: "is required"}
	}

	// A binary body already decoded from the gateway's base64 is the file
	// itself and is not decoded again.
	var mime string
	if r.IsBase64Encoded && !isJSON {
		req.Payload = []byte(raw)
	} else {
		decoded, m, err := decodePayload(payload)
		if err != nil {
			return req, err
		}
		req.Payload, mime = decoded, m
	}
	req.MimeType = firstNonEmpty(strings.TrimSpace(body.MimeType), httpx.Header(r.Headers, "x-mimetype"), mime)

	if err := coerceMetadata(&req, body, r.Headers); err != nil {
		return req, err
	}
	if err := validate.Upload(req); err != nil {
		return req, err
	}
	return req, nil
}

// coerceMetadata fills the typed metadata fields. Non-numeric values where a
// number is required are rejected rather than dropped.
func coerceMetadata(req *models.UploadRequest, body api.UploadBody, headers map[string]string) error {
	field := func(name string, f api.Field) api.Field {
		if f.Set {
			return f
		}
		if v := httpx.Header(headers, "x-"+strings.ReplaceAll(name, "_", "-")); v != "" {
			return api.Field{Value: v, Set: true}
		}
		return f
	}

	var err error
	if req.UserID, err = validate.RequiredInt("user_id", field("user_id", body.UserID)); err != nil {
		return err
	}
	if req.CompanyID, err = validate.RequiredInt("company_id", field("company_id", body.CompanyID)); err != nil {
		return err
	}
	if req.Size, err = validate.Int("size", field("size", body.Size)); err != nil {
		return err
	}
	if req.SourceResolutionX, err = validate.Int("source_resolution_x", field("source_resolution_x", body.SourceResolutionX)); err != nil {
		return err
	}
	if req.SourceResolutionY, err = validate.Int("source_resolution_y", field("source_resolution_y", body.SourceResolutionY)); err != nil {
		return err
	}
	if req.Latitude, err = validate.Float("latitude", field("latitude", body.Latitude)); err != nil {
		return err
	}
	if req.Longitude, err = validate.Float("longitude", field("longitude", body.Longitude)); err != nil {
		return err
	}
	if req.DateTaken, err = validate.Time("date_taken", field("date_taken", body.DateTaken)); err != nil {
		return err
	}

	req.ProjectTableName = validate.String(field("project_table_name", body.ProjectTableName))
	req.ClientSideID = validate.String(field("client_side_id", body.ClientSideID))
	req.Title = validate.String(field("title", body.Title))
	req.Description = validate.String(field("description", body.Description))
	req.Format = validate.String(field("format", body.Format))
	req.Models = validate.Models(field("models", body.Models).Value)
	return nil
}

// decodePayload base64-decodes the file content. A data URL prefix
// ("data:image/png;base64,") is stripped and its media type returned.
func decodePayload(s string) ([]byte, string, error) {
	var mime string
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return nil, "", &validate.Error{Field: "file_content", Reason: "is not valid base64"}
		}
		mime = strings.TrimSuffix(s[len("data:"):comma], ";base64")
		s = s[comma+1:]
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if b, err = base64.RawStdEncoding.DecodeString(s); err != nil {
			return nil, "", &validate.Error{Field: "file_content", Reason: "is not valid base64"}
		}
	}
	return b, mime, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
