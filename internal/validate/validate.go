// Package validate checks upload requests and coerces loosely typed caller
// input into typed values. Every failure is an *Error, a caller mistake.
package validate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kylejryan/photo-ingest-pipeline/internal/api"
	"github.com/kylejryan/photo-ingest-pipeline/internal/models"
)

var (
	bucketRx = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]{0,61}[a-z0-9])?$`)
	modelRx  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

	structValidator = newValidator()
)

// Error reports a malformed or missing request field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string { return e.Field + " " + e.Reason }

func invalid(field, reason string) *Error { return &Error{Field: field, Reason: reason} }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if n := f.Tag.Get("name"); n != "" {
			return n
		}
		return f.Name
	})
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Errorf("register validation %q: %w", tag, err))
		}
	}
	mustRegister("s3bucket", func(fl validator.FieldLevel) bool { return BucketName(fl.Field().String()) == nil })
	mustRegister("objectkey", func(fl validator.FieldLevel) bool { return FileName(fl.Field().String()) == nil })
	mustRegister("modelname", func(fl validator.FieldLevel) bool { return modelRx.MatchString(fl.Field().String()) })
	return v
}

// Upload validates an assembled request before any side effect happens.
func Upload(req models.UploadRequest) error {
	err := structValidator.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return invalid(fe.Field(), reason(fe))
	}
	return err
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "is required"
		}
	case "gt":
		return "must be a positive integer"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("allows at most %s entries", fe.Param())
		}
		return "is too long"
	case "gte", "lte":
		return "is out of range"
	}
	return "is invalid"
}

// BucketName checks the S3 bucket naming rules that matter for building URLs.
func BucketName(b string) error {
	if !bucketRx.MatchString(b) || strings.Contains(b, "..") {
		return invalid("bucket_name", "is invalid")
	}
	return nil
}

// FileName checks that fn is a relative object key without traversal segments.
func FileName(fn string) error {
	if fn == "" || len(fn) > 900 || strings.HasPrefix(fn, "/") {
		return invalid("file_name", "is invalid")
	}
	for _, seg := range strings.Split(fn, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return invalid("file_name", "is invalid")
		}
	}
	for _, r := range fn {
		if r < 0x20 || r == 0x7f {
			return invalid("file_name", "is invalid")
		}
	}
	return nil
}

// String returns the trimmed value of f, or nil when it is unset or blank.
func String(f api.Field) *string {
	s := strings.TrimSpace(f.Value)
	if !f.Set || s == "" {
		return nil
	}
	return &s
}

// Int parses an optional integer field. A present but non-integer value is an error.
func Int(name string, f api.Field) (*int64, error) {
	s := String(f)
	if s == nil {
		return nil, nil
	}
	n, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		return nil, invalid(name, "must be an integer")
	}
	return &n, nil
}

// RequiredInt parses a mandatory integer field.
func RequiredInt(name string, f api.Field) (int64, error) {
	n, err := Int(name, f)
	if err != nil {
		return 0, err
	}
	if n == nil {
		return 0, invalid(name, "is required")
	}
	return *n, nil
}

// Float parses an optional finite floating point field.
func Float(name string, f api.Field) (*float64, error) {
	s := String(f)
	if s == nil {
		return nil, nil
	}
	x, err := strconv.ParseFloat(*s, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, invalid(name, "must be a number")
	}
	return &x, nil
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

// Time parses an optional timestamp in RFC 3339 or "YYYY-MM-DD HH:MM:SS" form.
// Values without a zone are taken as UTC.
func Time(name string, f api.Field) (*time.Time, error) {
	s := String(f)
	if s == nil {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, invalid(name, "must be a timestamp")
}

// Models splits a comma-separated pipeline list. Entries are trimmed, blanks
// dropped, and repeats collapsed keeping first occurrence order.
func Models(csv string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range strings.Split(csv, ",") {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
