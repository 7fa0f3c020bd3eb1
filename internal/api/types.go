// Package api contains types for the API requests and responses.
package api

import (
	"encoding/json"
	"errors"
)

// Field is a scalar the caller may send as a JSON string or number. JSON null
// and an absent key both leave it unset.
type Field struct {
	Value string
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Field{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Field{Value: s, Set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("must be a string or number")
	}
	*f = Field{Value: n.String(), Set: true}
	return nil
}

// UploadBody is the JSON body of an upload request. Metadata fields may also
// arrive as x-* headers; the body wins when both are present.
type UploadBody struct {
	FileContent string `json:"file_content"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mimetype"`

	UserID            Field `json:"user_id"`
	CompanyID         Field `json:"company_id"`
	ProjectTableName  Field `json:"project_table_name"`
	ClientSideID      Field `json:"client_side_id"`
	Title             Field `json:"title"`
	Description       Field `json:"description"`
	Format            Field `json:"format"`
	Size              Field `json:"size"`
	SourceResolutionX Field `json:"source_resolution_x"`
	SourceResolutionY Field `json:"source_resolution_y"`
	DateTaken         Field `json:"date_taken"`
	Latitude          Field `json:"latitude"`
	Longitude         Field `json:"longitude"`
	Models            Field `json:"models"`
}

// UploadResponse is returned on a successful upload.
type UploadResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	PhotoID   int64  `json:"photo_id"`
	Timestamp int64  `json:"timestamp"`
	CompanyID int64  `json:"company_id"`
	Warning   string `json:"warning,omitempty"`
}

// ErrorResponse is returned for any failed request. PhotoID is set when a
// metadata row was created before the failure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	PhotoID   *int64 `json:"photo_id,omitempty"`
}
