package ingest

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/photo-ingest-pipeline/internal/validate"
)

func TestParseRequestFullBody(t *testing.T) {
	body := `{
		"file_content": "` + base64.StdEncoding.EncodeToString([]byte("img")) + `",
		"filename": "body-name.heic",
		"mimetype": "image/heic",
		"user_id": "7",
		"company_id": 3,
		"project_table_name": "project_a",
		"client_side_id": "c-1",
		"size": 3,
		"source_resolution_x": "4032",
		"source_resolution_y": 3024,
		"date_taken": "2024-05-01 10:11:12",
		"latitude": 52.52,
		"longitude": "13.40",
		"description": null,
		"models": "face, tag,face"
	}`
	req, err := ParseRequest(Request{
		Headers: map[string]string{"x-bucket-name": "b", "x-user-id": "99"},
		Body:    body,
	})
	require.NoError(t, err)

	assert.Equal(t, "body-name.heic", req.FileName)
	assert.Equal(t, "image/heic", req.MimeType)
	assert.Equal(t, []byte("img"), req.Payload)
	assert.Equal(t, int64(7), req.UserID, "body wins over header")
	assert.Equal(t, int64(3), req.CompanyID)
	assert.Equal(t, "project_a", *req.ProjectTableName)
	assert.Equal(t, int64(4032), *req.SourceResolutionX)
	assert.Equal(t, int64(3024), *req.SourceResolutionY)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 11, 12, 0, time.UTC), *req.DateTaken)
	assert.InDelta(t, 13.40, *req.Longitude, 1e-9)
	assert.Nil(t, req.Description)
	assert.Nil(t, req.Title)
	assert.Equal(t, []string{"face", "tag"}, req.Models)
}

func TestParseRequestHeaderFileNameWins(t *testing.T) {
	req, err := ParseRequest(Request{
		Headers: map[string]string{"x-bucket-name": "b", "x-file-name": "hdr.jpg"},
		Body:    `{"file_content":"eA==","filename":"body.jpg","user_id":1,"company_id":1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "hdr.jpg", req.FileName)
}

func TestParseRequestDataURL(t *testing.T) {
	req, err := ParseRequest(Request{
		Query: map[string]string{"bucket_name": "b", "file_name": "p"},
		Body:  `{"file_content":"data:image/png;base64,eA==","user_id":1,"company_id":1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", req.MimeType)
	assert.Equal(t, []byte("x"), req.Payload)
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"empty", Request{}, "body"},
		{"bad outer base64", Request{Body: "%%%", IsBase64Encoded: true}, "body"},
		{"bucket", Request{Body: "eA=="}, "bucket_name"},
		{"file", Request{Body: "eA==", Query: map[string]string{"bucket_name": "b"}}, "file_name"},
		{"payload", Request{Body: "***", Query: map[string]string{"bucket_name": "b", "file_name": "f"}}, "file_content"},
		{"empty payload", Request{
			Body:  `{"file_content":"","user_id":1,"company_id":1}`,
			Query: map[string]string{"bucket_name": "b", "file_name": "f"},
		}, "file_content"},
		{"latitude", Request{
			Body:  `{"file_content":"eA==","user_id":1,"company_id":1,"latitude":"north"}`,
			Query: map[string]string{"bucket_name": "b", "file_name": "f"},
		}, "latitude"},
		{"date", Request{
			Body:  `{"file_content":"eA==","user_id":1,"company_id":1,"date_taken":"last week"}`,
			Query: map[string]string{"bucket_name": "b", "file_name": "f"},
		}, "date_taken"},
		{"boolean id", Request{
			Body:  `{"file_content":"eA==","user_id":true,"company_id":1}`,
			Query: map[string]string{"bucket_name": "b", "file_name": "f"},
		}, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(tt.req)
			var verr *validate.Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
