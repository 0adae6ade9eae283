package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrEmptyFile is returned when the upload has no lines at all.
	ErrEmptyFile = errors.New("empty file")

	// ErrInvalidRequest is returned for a malformed Request.
	ErrInvalidRequest = errors.New("invalid import request")

	// ErrUnsupportedWorkbook is returned when a spreadsheet cannot be opened.
	ErrUnsupportedWorkbook = errors.New("unsupported workbook")

	// ErrUnsupportedArchive is returned when a ZIP upload cannot be opened.
	ErrUnsupportedArchive = errors.New("unsupported archive")
)

// ColumnCountMismatchError reports a header row whose column count differs
// from the expected count. The whole import is rejected.
type ColumnCountMismatchError struct {
	Expected int `json:"expected"`
	Actual   int `json:"actual"`
}

func (e *ColumnCountMismatchError) Error() string {
	return fmt.Sprintf("column count mismatch: expected %d columns, got %d", e.Expected, e.Actual)
}

// RowShapeError reports a data row whose field count differs from the
// header count. Row is 1-based and counts data rows only.
type RowShapeError struct {
	Row      int `json:"row"`
	Expected int `json:"expected"`
	Actual   int `json:"actual"`
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("row %d: expected %d fields, got %d", e.Row, e.Expected, e.Actual)
}

// RowShapeErrors is every malformed row of one import, in row order.
type RowShapeErrors []*RowShapeError

func (e RowShapeErrors) Error() string {
	parts := make([]string, len(e))
	for i, re := range e {
		parts[i] = re.Error()
	}
	return fmt.Sprintf("invalid row shape in %d row(s): %s", len(e), strings.Join(parts, "; "))
}

// Unwrap exposes each row error to errors.Is and errors.As.
func (e RowShapeErrors) Unwrap() []error {
	out := make([]error, len(e))
	for i, re := range e {
		out[i] = re
	}
	return out
}

// Rows returns the 1-based row numbers that failed.
func (e RowShapeErrors) Rows() []int {
	rows := make([]int, len(e))
	for i, re := range e {
		rows[i] = re.Row
	}
	return rows
}

// MissingZipEntryError is returned when the expected CSV entry is absent
// from a ZIP upload.
type MissingZipEntryError struct {
	Name string `json:"name"`
}

func (e *MissingZipEntryError) Error() string {
	return fmt.Sprintf("zip entry %q not found", e.Name)
}

// UnderlyingIOError wraps a filesystem failure.
type UnderlyingIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *UnderlyingIOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *UnderlyingIOError) Unwrap() error {
	return e.Err
}

// RecordConversionError is returned when a parsed row cannot be decoded
// into the caller's record type.
type RecordConversionError struct {
	Row int
	Err error
}

func (e *RecordConversionError) Error() string {
	return fmt.Sprintf("row %d: record conversion failed: %v", e.Row, e.Err)
}

func (e *RecordConversionError) Unwrap() error {
	return e.Err
}

// ImportError is the single error shape returned by Import. Status is an
// HTTP-style code; Data is the underlying cause.
type ImportError struct {
	Status int
	Data   error
}

func (e *ImportError) Error() string {
	return e.Data.Error()
}

func (e *ImportError) Unwrap() error {
	return e.Data
}

// MarshalJSON renders the error as {"status": ..., "data": {...}}.
func (e *ImportError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status int            `json:"status"`
		Data   map[string]any `json:"data"`
	}{
		Status: e.Status,
		Data:   errorDetail(e.Data),
	})
}

// errorDetail builds the structured payload for an import failure.
func errorDetail(err error) map[string]any {
	detail := map[string]any{
		"kind":    Kind(err),
		"message": err.Error(),
	}

	var mismatch *ColumnCountMismatchError
	var rows RowShapeErrors
	var zipErr *MissingZipEntryError
	var convErr *RecordConversionError

	switch {
	case errors.As(err, &mismatch):
		detail["expected"] = mismatch.Expected
		detail["actual"] = mismatch.Actual
	case errors.As(err, &rows):
		detail["rows"] = []*RowShapeError(rows)
	case errors.As(err, &zipErr):
		detail["entry"] = zipErr.Name
	case errors.As(err, &convErr):
		detail["row"] = convErr.Row
	}

	return detail
}

// Kind returns a short machine-readable name for an import failure.
func Kind(err error) string {
	var mismatch *ColumnCountMismatchError
	var rows RowShapeErrors
	var row *RowShapeError
	var zipErr *MissingZipEntryError
	var ioErr *UnderlyingIOError
	var convErr *RecordConversionError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyFile):
		return "empty_file"
	case errors.As(err, &mismatch):
		return "column_count_mismatch"
	case errors.As(err, &rows), errors.As(err, &row):
		return "row_shape"
	case errors.As(err, &zipErr):
		return "missing_zip_entry"
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &convErr):
		return "record_conversion"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrUnsupportedWorkbook), errors.Is(err, ErrUnsupportedArchive):
		return "unsupported_format"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}

// statusFor maps a cause to its HTTP-style status.
func statusFor(err error) int {
	switch Kind(err) {
	case "empty_file":
		return http.StatusNotFound
	case "column_count_mismatch", "row_shape", "missing_zip_entry",
		"record_conversion", "invalid_request", "unsupported_format":
		return http.StatusBadRequest
	case "cancelled":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// wrapError converts any failure into an *ImportError, leaving existing
// ImportErrors untouched.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return err
	}
	return &ImportError{Status: statusFor(err), Data: err}
}

// StatusOf returns the HTTP-style status of err. Errors that did not come
// from Import are reported as 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie.Status
	}
	return http.StatusInternalServerError
}
