// Package metadata persists PhotoRecords in a relational store, either through
// the Aurora Data API or a direct Postgres connection.
package metadata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

// Sentinel errors.
var (
	// ErrNoRowReturned means the insert succeeded at the transport level but
	// produced no id; the caller must not continue.
	ErrNoRowReturned = errors.New("insert returned no row")
	ErrNotFound      = errors.New("photo not found")
)

// param is one bound column value. A nil value binds SQL NULL.
type param struct {
	name  string
	value any
}

// insertParams lists the photos columns in insert order. Optional fields that
// are absent bind NULL, never an empty string.
func insertParams(p models.PhotoRecord) []param {
	return []param{
		{"user_id", p.UserID},
		{"company_id", p.CompanyID},
		{"project_table_name", optional(p.ProjectTableName)},
		{"client_side_id", optional(p.ClientSideID)},
		{"title", optional(p.Title)},
		{"description", optional(p.Description)},
		{"format", optional(p.Format)},
		{"size", optional(p.Size)},
		{"source_resolution_x", optional(p.SourceResolutionX)},
		{"source_resolution_y", optional(p.SourceResolutionY)},
		{"date_taken", optional(p.DateTaken)},
		{"latitude", optional(p.Latitude)},
		{"longitude", optional(p.Longitude)},
		{"models", joinModels(p.Models)},
		{"s3_key", p.S3Key},
		{"s3_url", p.S3URL},
		{"content_type", p.ContentType},
		{"date_uploaded", p.DateUploaded.UTC()},
	}
}

func optional[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func joinModels(m []string) any {
	if len(m) == 0 {
		return nil
	}
	return strings.Join(m, ",")
}

func splitModels(s *string) []string {
	if s == nil || *s == "" {
		return []string{}
	}
	return strings.Split(*s, ",")
}

// selectColumns is the column order every SELECT decodes.
const selectColumns = `id, user_id, company_id, project_table_name, client_side_id, title,
	description, format, size, source_resolution_x, source_resolution_y, date_taken,
	latitude, longitude, models, s3_key, s3_url, content_type, date_uploaded`

// insertSQL renders the insert for params, with placeholder producing the
// bind marker of the i-th (0-based) parameter.
func insertSQL(params []param, placeholder func(i int, name string) string) string {
	cols := make([]string, len(params))
	marks := make([]string, len(params))
	for i, p := range params {
		cols[i] = p.name
		marks[i] = placeholder(i, p.name)
	}
	return fmt.Sprintf("INSERT INTO photos (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// timestampLayout is the Data API TIMESTAMP literal format.
const timestampLayout = "2006-01-02 15:04:05.999999"

func formatTimestamp(t time.Time) string { return t.UTC().Format(timestampLayout) }
