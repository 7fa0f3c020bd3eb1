package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/photo-ingest-pipeline/internal/metadata"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

type fakeReader struct {
	rows  map[int64]models.PhotoRecord
	err   error
	scope int64
}

func (f *fakeReader) GetPhoto(_ context.Context, id int64) (models.PhotoRecord, error) {
	if f.err != nil {
		return models.PhotoRecord{}, f.err
	}
	rec, ok := f.rows[id]
	if !ok {
		return models.PhotoRecord{}, metadata.ErrNotFound
	}
	return rec, nil
}

func (f *fakeReader) FindPhoto(ctx context.Context, companyID, id int64) (models.PhotoRecord, error) {
	f.scope = companyID
	rec, err := f.GetPhoto(ctx, id)
	if err == nil && rec.CompanyID != companyID {
		return models.PhotoRecord{}, metadata.ErrNotFound
	}
	return rec, err
}

func newApp(r *fakeReader) *App { return &App{photos: r, log: zerolog.Nop()} }

func get(id string, query map[string]string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		PathParameters:        map[string]string{"id": id},
		QueryStringParameters: query,
	}
}

func TestGetPhoto(t *testing.T) {
	r := &fakeReader{rows: map[int64]models.PhotoRecord{5: {ID: 5, CompanyID: 3, S3Key: "uploads/a.jpg"}}}
	resp, err := newApp(r).handler(context.Background(), get("5", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec models.PhotoRecord
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &rec))
	assert.Equal(t, "uploads/a.jpg", rec.S3Key)
}

func TestGetPhotoScopedToCompany(t *testing.T) {
	r := &fakeReader{rows: map[int64]models.PhotoRecord{5: {ID: 5, CompanyID: 3}}}
	resp, _ := newApp(r).handler(context.Background(), get("5", map[string]string{"company_id": "4"}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int64(4), r.scope)
}

func TestGetPhotoErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    events.APIGatewayV2HTTPRequest
		err    error
		status int
	}{
		{"missing id", get("", nil), nil, http.StatusBadRequest},
		{"zero id", get("0", nil), nil, http.StatusBadRequest},
		{"bad company", get("1", map[string]string{"company_id": "x"}), nil, http.StatusBadRequest},
		{"not found", get("9", nil), nil, http.StatusNotFound},
		{"db error", get("1", nil), errors.New("paused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(&fakeReader{err: tt.err}).handler(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
