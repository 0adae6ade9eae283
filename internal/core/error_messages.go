// Package core provides the business logic for HR bulk imports.
//
// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes
// that users can quote to support staff.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Column count: the header row has the wrong number of columns
//	         Patterns: "column count mismatch"
//	IMP002 - Row shape: one or more rows have the wrong number of fields
//	         Patterns: "invalid row shape", "fields, got"
//	IMP003 - ZIP entry: the archive does not contain the expected CSV
//	         Patterns: "zip entry"
//	IMP004 - Unsupported format: the workbook or archive cannot be opened
//	         Patterns: "unsupported workbook", "unsupported archive"
//	IMP005 - Conversion: a row could not be mapped to a record
//	         Patterns: "record conversion failed"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date            Patterns: "invalid date"
//	VAL002 - Invalid number          Patterns: "invalid number"
//	VAL003 - Required field empty    Patterns: "required field"
//	VAL004 - Unknown column          Patterns: "column not found"
//	VAL005 - Invalid enum            Patterns: "invalid enum"
//	VAL006 - Invalid boolean         Patterns: "invalid boolean"
//	VAL007 - Invalid email           Patterns: "invalid email"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large         Patterns: "file too large"
//	FILE002 - No file                Patterns: "no file provided"
//	FILE003 - Empty file             Patterns: "empty file"
//	FILE004 - Read failure           Patterns: "io error"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key            Patterns: "duplicate key"
//	DB002 - Foreign key              Patterns: "foreign key constraint", "violates foreign key"
//	DB003 - Connection refused       Patterns: "connection refused"
//	DB004 - Connection reset         Patterns: "connection reset"
//	DB005 - Deadlock                 Patterns: "deadlock"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - System busy             Patterns: "too many concurrent imports"
//	REQ002 - Request cancelled       Patterns: "context canceled"
//	REQ003 - Request timeout         Patterns: "context deadline exceeded", "timeout"
//	REQ004 - Unknown entity          Patterns: "unknown entity"
//	REQ005 - Rate limited            Patterns: "rate limit"
//	REQ006 - Invalid request         Patterns: "invalid import request"
//	REQ007 - Run not found           Patterns: "import run not found"
//	REQ008 - Already rolled back     Patterns: "already rolled back"
//	REQ009 - Run not complete        Patterns: "did not complete"
//	REQ010 - Template format         Patterns: "unsupported template format"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Support staff should check the
// application logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains. The
// first match wins, so specific patterns come before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Import pipeline
	{"column count mismatch", UserMessage{
		Message: "The header row has the wrong number of columns",
		Action:  "Download the template and compare its header row with your file",
		Code:    "IMP001",
	}},
	{"invalid row shape", UserMessage{
		Message: "Some rows have a different number of fields than the header",
		Action:  "Check the listed rows for missing or extra commas",
		Code:    "IMP002",
	}},
	{"fields, got", UserMessage{
		Message: "Some rows have a different number of fields than the header",
		Action:  "Check the listed rows for missing or extra commas",
		Code:    "IMP002",
	}},
	{"zip entry", UserMessage{
		Message: "The archive does not contain the expected CSV file",
		Action:  "Name the CSV inside the archive data.csv or pass its name",
		Code:    "IMP003",
	}},
	{"unsupported workbook", UserMessage{
		Message: "The spreadsheet could not be opened",
		Action:  "Save the file as .xlsx and upload it again",
		Code:    "IMP004",
	}},
	{"unsupported archive", UserMessage{
		Message: "The archive could not be opened",
		Action:  "Upload a standard .zip file",
		Code:    "IMP004",
	}},
	{"record conversion failed", UserMessage{
		Message: "A row could not be converted to a record",
		Action:  "Check the row for unexpected values",
		Code:    "IMP005",
	}},

	// Validation
	{"invalid date", UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
		Code:    "VAL001",
	}},
	{"invalid number", UserMessage{
		Message: "Invalid number format detected",
		Action:  "Remove text from numeric columns",
		Code:    "VAL002",
	}},
	{"required field", UserMessage{
		Message: "Required field is empty",
		Action:  "Ensure all required columns have values",
		Code:    "VAL003",
	}},
	{"column not found", UserMessage{
		Message: "The file has columns this entity does not accept",
		Action:  "Verify column headers match the template exactly",
		Code:    "VAL004",
	}},
	{"invalid enum", UserMessage{
		Message: "Value is not in the allowed list",
		Action:  "Check the allowed values for this field",
		Code:    "VAL005",
	}},
	{"invalid boolean", UserMessage{
		Message: "Invalid yes/no value",
		Action:  "Use yes/no, true/false, or 1/0",
		Code:    "VAL006",
	}},
	{"invalid email", UserMessage{
		Message: "Invalid email address",
		Action:  "Use a full address such as name@example.com",
		Code:    "VAL007",
	}},

	// Files
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV, Excel or ZIP file to upload",
		Code:    "FILE002",
	}},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a file with a header row",
		Code:    "FILE003",
	}},
	{"io error", UserMessage{
		Message: "The uploaded file could not be read",
		Action:  "Please upload the file again",
		Code:    "FILE004",
	}},

	// Database
	{"duplicate key", UserMessage{
		Message: "A record with this key already exists",
		Action:  "Remove rows that were imported before",
		Code:    "DB001",
	}},
	{"foreign key constraint", UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Import parent records first (for example projects before tasks)",
		Code:    "DB002",
	}},
	{"violates foreign key", UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Import parent records first (for example projects before tasks)",
		Code:    "DB002",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB004",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB005",
	}},

	// Requests
	{"too many concurrent imports", UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "REQ001",
	}},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try importing a smaller file",
		Code:    "REQ003",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try importing a smaller file",
		Code:    "REQ003",
	}},
	{"unknown entity", UserMessage{
		Message: "Unknown import type",
		Action:  "Pick one of the listed entities",
		Code:    "REQ004",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "REQ005",
	}},
	{"invalid import request", UserMessage{
		Message: "The import request is incomplete",
		Action:  "Check the entity configuration",
		Code:    "REQ006",
	}},
	{"import run not found", UserMessage{
		Message: "That import run does not exist",
		Action:  "Pick a run from the import history",
		Code:    "REQ007",
	}},
	{"already rolled back", UserMessage{
		Message: "This import has already been rolled back",
		Action:  "No action needed",
		Code:    "REQ008",
	}},
	{"did not complete", UserMessage{
		Message: "This import failed and wrote no rows, so there is nothing to roll back",
		Action:  "Check the run's error and upload the file again",
		Code:    "REQ009",
	}},
	{"unsupported template format", UserMessage{
		Message: "That template format is not available",
		Action:  "Request format=csv or format=xlsx",
		Code:    "REQ010",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the ERR000 fallback when no pattern matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
