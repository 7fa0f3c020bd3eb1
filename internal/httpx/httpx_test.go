package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	resp, err := JSON(http.StatusOK, map[string]int{"photo_id": 12})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"photo_id":12}`, resp.Body)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestJSONUnencodable(t *testing.T) {
	resp, err := JSON(http.StatusOK, func() {})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestError(t *testing.T) {
	resp, _ := Error(http.StatusBadRequest, "bucket_name is required")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"bucket_name is required"}`, resp.Body)
}

func TestHeaderCaseInsensitive(t *testing.T) {
	h := map[string]string{"X-Bucket-Name": "photos"}
	assert.Equal(t, "photos", Header(h, "x-bucket-name"))
	assert.Equal(t, "", Header(h, "x-file-name"))
	assert.Equal(t, "", Header(nil, "x-file-name"))
}
