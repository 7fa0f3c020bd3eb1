// Package models defines the data models used in the application.
package models

import "time"

// UploadRequest is a fully validated upload. Pointer fields are optional and
// nil means the caller did not supply them.
type UploadRequest struct {
	BucketName string `name:"bucket_name" validate:"required,s3bucket"`
	FileName   string `name:"file_name" validate:"required,objectkey"`
	MimeType   string `name:"mimetype"`
	Payload    []byte `name:"file_content" validate:"min=1"`

	UserID    int64 `name:"user_id" validate:"gt=0"`
	CompanyID int64 `name:"company_id" validate:"gt=0"`

	ProjectTableName  *string    `name:"project_table_name" validate:"omitempty,max=128"`
	ClientSideID      *string    `name:"client_side_id" validate:"omitempty,max=128"`
	Title             *string    `name:"title" validate:"omitempty,max=512"`
	Description       *string    `name:"description"`
	Format            *string    `name:"format" validate:"omitempty,max=32"`
	Size              *int64     `name:"size" validate:"omitempty,gte=0"`
	SourceResolutionX *int64     `name:"source_resolution_x" validate:"omitempty,gte=0"`
	SourceResolutionY *int64     `name:"source_resolution_y" validate:"omitempty,gte=0"`
	DateTaken         *time.Time `name:"date_taken"`
	Latitude          *float64   `name:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude         *float64   `name:"longitude" validate:"omitempty,gte=-180,lte=180"`

	// Models lists the downstream pipelines to notify, trimmed and deduplicated.
	Models []string `name:"models" validate:"max=9,dive,modelname"`
}

// PhotoRecord is one row of the photos table.
type PhotoRecord struct {
	ID int64 `json:"id"`

	UserID            int64      `json:"user_id"`
	CompanyID         int64      `json:"company_id"`
	ProjectTableName  *string    `json:"project_table_name,omitempty"`
	ClientSideID      *string    `json:"client_side_id,omitempty"`
	Title             *string    `json:"title,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Format            *string    `json:"format,omitempty"`
	Size              *int64     `json:"size,omitempty"`
	SourceResolutionX *int64     `json:"source_resolution_x,omitempty"`
	SourceResolutionY *int64     `json:"source_resolution_y,omitempty"`
	DateTaken         *time.Time `json:"date_taken,omitempty"`
	Latitude          *float64   `json:"latitude,omitempty"`
	Longitude         *float64   `json:"longitude,omitempty"`
	Models            []string   `json:"models"`

	S3Key        string    `json:"s3_key"`
	S3URL        string    `json:"s3_url"`
	ContentType  string    `json:"content_type"`
	DateUploaded time.Time `json:"date_uploaded"`
}

// NewPhotoRecord copies the request metadata into a record for blob.
// The ID is left zero for the store to assign.
func NewPhotoRecord(req UploadRequest, blob StoredBlob, uploadedAt time.Time) PhotoRecord {
	return PhotoRecord{
		UserID:            req.UserID,
		CompanyID:         req.CompanyID,
		ProjectTableName:  req.ProjectTableName,
		ClientSideID:      req.ClientSideID,
		Title:             req.Title,
		Description:       req.Description,
		Format:            req.Format,
		Size:              req.Size,
		SourceResolutionX: req.SourceResolutionX,
		SourceResolutionY: req.SourceResolutionY,
		DateTaken:         req.DateTaken,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		Models:            req.Models,
		S3Key:             blob.Key,
		S3URL:             blob.URL,
		ContentType:       blob.ContentType,
		DateUploaded:      uploadedAt.UTC(),
	}
}

// StoredBlob addresses an immutable object in the blob store.
type StoredBlob struct {
	Bucket      string
	Key         string
	ContentType string
	URL         string
}
