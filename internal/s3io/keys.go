package s3io

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Content types stored on uploaded objects.
const (
	ContentTypeJPEG   = "image/jpeg"
	ContentTypePNG    = "image/png"
	ContentTypeHEIC   = "image/heic"
	ContentTypeBinary = "application/octet-stream"

	UploadPrefix = "uploads/"
)

var contentTypes = map[string]string{
	"jpg":        ContentTypeJPEG,
	"jpeg":       ContentTypeJPEG,
	"image/jpeg": ContentTypeJPEG,
	"image/jpg":  ContentTypeJPEG,
	"png":        ContentTypePNG,
	"image/png":  ContentTypePNG,
	"heic":       ContentTypeHEIC,
	"image/heic": ContentTypeHEIC,
}

// UploadKey builds the key of an original upload.
func UploadKey(fileName string) string {
	return UploadPrefix + fileName
}

// ObjectURL returns the virtual-hosted URL of bucket/key in region. It is
// derived, not queried, so it is valid before the object exists.
func ObjectURL(bucket, region, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, strings.Join(segs, "/"))
}

// ContentTypeFor resolves the stored content type from the declared mimetype,
// falling back to the file extension and finally to octet-stream.
func ContentTypeFor(mimeType, fileName string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if ct, ok := contentTypes[mt]; ok {
		return ct
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(fileName)), ".")
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return ContentTypeBinary
}
