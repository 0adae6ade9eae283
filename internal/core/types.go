// Package core provides the business logic for HR bulk imports.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/hrm/internal/importer"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Pool is a DBTX that can also open transactions. *pgxpool.Pool satisfies it.
type Pool interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// FieldType represents the expected data type for an import column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldBool
	FieldEmail
)

// FieldSpec defines validation rules for a single import column.
type FieldSpec struct {
	Name       string              // Column header name (must match the file exactly)
	DBColumn   string              // Database column name (derived from Name if empty)
	Type       FieldType           // Expected data type
	Required   bool                // Value must be present on every row
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation function
}

// Column returns the database column for the field.
func (f FieldSpec) Column() string {
	if f.DBColumn != "" {
		return f.DBColumn
	}
	return toDBColumnName(f.Name)
}

// EntityInfo contains display information about an importable entity.
type EntityInfo struct {
	Key       string   `json:"key"`       // Unique identifier: "employees"
	Group     string   `json:"group"`     // Area of the app: "People", "Projects"
	Label     string   `json:"label"`     // Display name: "Employees"
	Table     string   `json:"table"`     // Destination table
	Columns   []string `json:"columns"`   // Declared header list, in order
	KeyColumn string   `json:"keyColumn"` // Header identifying a record; target of permission grants
	UniqueKey []string `json:"uniqueKey"` // Headers that together identify a row; defaults to KeyColumn
}

// BuildRowFunc converts a validated record into database values in the
// order of the entity's FieldSpecs.
type BuildRowFunc func(rec importer.ParsedRow) ([]any, error)

// InsertFunc inserts one built row. runID is the import run the row belongs to.
type InsertFunc func(ctx context.Context, db DBTX, runID string, values []any) error

// EntityDefinition contains everything needed to import one entity.
type EntityDefinition struct {
	Info       EntityInfo
	FieldSpecs []FieldSpec

	// BuildRow is optional; the default converts each field by its type.
	BuildRow BuildRowFunc

	// Insert is optional; the default is a plain INSERT into Info.Table
	// with an import_run_id column appended.
	Insert InsertFunc
}

// Headers returns the declared header list.
func (d EntityDefinition) Headers() []string {
	return d.Info.Columns
}

// ImportPhase indicates the stage an import run ended in.
type ImportPhase string

const (
	PhaseDecoding   ImportPhase = "decoding"
	PhaseInserting  ImportPhase = "inserting"
	PhaseComplete   ImportPhase = "complete"
	PhaseFailed     ImportPhase = "failed"
	PhaseRolledBack ImportPhase = "rolled_back"
)

// UploadedFile is a file received from a client and stored on local disk.
type UploadedFile struct {
	Path        string // Temporary file; removed by the caller
	Name        string // Original file name
	ContentType string // Declared or sniffed MIME type
	Size        int64
	ZipName     string // CSV entry for ZIP uploads; empty means data.csv
}

// FailedRow contains information about a row that was not inserted.
type FailedRow struct {
	Row    int               `json:"row"` // 1-based data row
	Key    string            `json:"key,omitempty"`
	Reason string            `json:"reason"`
	Data   map[string]string `json:"data,omitempty"`
}

// ImportSummary is the outcome of one import run.
type ImportSummary struct {
	RunID              string        `json:"runId"`
	Entity             string        `json:"entity"`
	FileName           string        `json:"fileName"`
	Format             string        `json:"format"`
	TotalRows          int           `json:"totalRows"`
	Inserted           int           `json:"inserted"`
	Skipped            int           `json:"skipped"`
	FailedRows         []FailedRow   `json:"failedRows,omitempty"`
	PermissionsGranted int           `json:"permissionsGranted"`
	PermissionsSkipped int           `json:"permissionsSkipped"`
	ArchiveKey         string        `json:"archiveKey,omitempty"`
	Duration           time.Duration `json:"duration"`
}

// ImportRun is a recorded import, as listed in the history view.
type ImportRun struct {
	ID                 string      `json:"id"`
	Entity             string      `json:"entity"`
	FileName           string      `json:"fileName"`
	Format             string      `json:"format"`
	Phase              string      `json:"phase"`
	TotalRows          int         `json:"totalRows"`
	Inserted           int         `json:"inserted"`
	Skipped            int         `json:"skipped"`
	PermissionsGranted int         `json:"permissionsGranted"`
	Error              string      `json:"error,omitempty"`
	ArchiveKey         string      `json:"archiveKey,omitempty"`
	IPAddress          string      `json:"ipAddress,omitempty"`
	UserAgent          string      `json:"userAgent,omitempty"`
	Actor              string      `json:"actor,omitempty"`
	StartedAt          time.Time   `json:"startedAt"`
	FinishedAt         time.Time   `json:"finishedAt"`
	FailedRows         []FailedRow `json:"failedRows,omitempty"`
}
