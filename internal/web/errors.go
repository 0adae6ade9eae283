package web

// errors.go provides unified error response handling for the web layer.
//
// Every failure goes through writeError, which:
//  1. Maps the error to a user-friendly message with core.MapError
//  2. Logs the technical error with the request ID for correlation
//  3. Renders an HTMX fragment or a JSON body depending on the caller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/hrm/internal/core"
	"github.com/JonMunkholm/hrm/internal/importer"
	"github.com/JonMunkholm/hrm/internal/logging"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
)

// requestError marks malformed client input.
type requestError struct{ msg string }

func (e *requestError) Error() string { return "invalid import request: " + e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		ie      *importer.ImportError
		unknown *core.UnknownColumnsError
		reqErr  *requestError
		tooBig  *http.MaxBytesError
	)

	switch {
	case errors.As(err, &ie):
		return importer.StatusOf(err)
	case errors.As(err, &unknown), errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownEntity), errors.Is(err, core.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyRolledBack), errors.Is(err, core.ErrRunNotComplete):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status statusFor selects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, statusFor(err))
}

// writeError logs err and writes a sanitized response.
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = errorAlert(msg, errorNotes(err)).Render(r.Context(), w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Details: details(err),
	})
}

// details returns the structured payload of import and column errors.
// ImportError marshals itself as {"status", "data"}.
func details(err error) any {
	var ie *importer.ImportError
	if errors.As(err, &ie) {
		return ie
	}
	var unknown *core.UnknownColumnsError
	if errors.As(err, &unknown) {
		return map[string]any{"columns": unknown.Columns}
	}
	return nil
}

// errorNotes lists the rows or columns an error refers to, for display.
func errorNotes(err error) []string {
	var rows importer.RowShapeErrors
	if errors.As(err, &rows) {
		notes := make([]string, len(rows))
		for i, re := range rows {
			notes[i] = re.Error()
		}
		return notes
	}
	var unknown *core.UnknownColumnsError
	if errors.As(err, &unknown) {
		notes := make([]string, len(unknown.Columns))
		for i, c := range unknown.Columns {
			notes[i] = "unknown column: " + c
		}
		return notes
	}
	return nil
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
