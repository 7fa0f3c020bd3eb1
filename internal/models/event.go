package models

// Event schema constants.
const (
	EventVersion         = "1.0"
	ProcessingUpload     = "upload"
	DetailTypeUploaded   = "ImageUploaded"
	DetailTypeProcessing = "ProcessingRequested"
)

// ProcessingEvent is the detail of one fan-out event. Every event in a batch
// carries the same RequestID and PhotoID.
type ProcessingEvent struct {
	RequestID        string  `json:"request_id"`
	Bucket           string  `json:"bucket"`
	Key              string  `json:"key"`
	PhotoID          int64   `json:"photo_id"`
	PhotoS3Link      string  `json:"photo_s3_link"`
	Timestamp        int64   `json:"timestamp"`
	Version          string  `json:"version"`
	ProcessingType   string  `json:"processingType"`
	CompanyID        int64   `json:"company_id"`
	UserID           int64   `json:"user_id"`
	ProjectTableName *string `json:"project_table_name,omitempty"`

	DetailType string `json:"-"`
}

// InboundMessage is one message received from a queue.
type InboundMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}
