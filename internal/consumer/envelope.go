// Package consumer holds the processors run by the queue listener and the
// SQS-triggered Lambda: a metadata lookup and a thumbnail generator.
package consumer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kylejryan/photo-ingest-pipeline/internal/api"
	"github.com/kylejryan/photo-ingest-pipeline/internal/listener"
	"github.com/kylejryan/photo-ingest-pipeline/internal/validate"
)

// payload is the union of the fields the processors read. Older producers
// send client_id/file_id instead of company_id/photo_id.
type payload struct {
	CompanyID api.Field `json:"company_id"`
	ClientID  api.Field `json:"client_id"`
	PhotoID   api.Field `json:"photo_id"`
	FileID    api.Field `json:"file_id"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
}

// decode parses a message body. When the body is an EventBridge envelope the
// detail is used; it may be an object or a JSON-encoded string.
func decode(body string) (payload, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &outer); err != nil {
		return payload{}, malformed("body is not a JSON object: %v", err)
	}
	raw := []byte(body)
	if detail, ok := outer["detail"]; ok {
		raw = detail
		var s string
		if err := json.Unmarshal(detail, &s); err == nil {
			raw = []byte(s)
		}
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return payload{}, malformed("detail: %v", err)
	}
	p.Bucket = strings.TrimSpace(p.Bucket)
	p.Key = strings.TrimSpace(p.Key)
	return p, nil
}

// id reads a required integer from the first set field.
func id(name string, fields ...api.Field) (int64, error) {
	for _, f := range fields {
		if validate.String(f) == nil {
			continue
		}
		n, err := validate.RequiredInt(name, f)
		if err != nil {
			return 0, malformed("%v", err)
		}
		return n, nil
	}
	return 0, malformed("%s is required", name)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), listener.ErrMalformed)
}
