package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hrm/internal/importer"
	"github.com/JonMunkholm/hrm/internal/logging"
)

// DefaultImportTimeout is the maximum duration of one import, including
// the database work.
const DefaultImportTimeout = 10 * time.Minute

// ErrUnknownEntity is returned for an entity key that is not registered.
var ErrUnknownEntity = errors.New("unknown entity")

// Archiver keeps a copy of an uploaded file after a successful import.
// It returns the key the object was stored under.
type Archiver interface {
	Archive(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	Limiter       *ImportLimiter
	Archiver      Archiver // nil disables archiving
	ImportTimeout time.Duration
	ZipEntry      string // CSV entry read from ZIP uploads
}

// Service provides the core business logic for HR imports.
type Service struct {
	pool     Pool
	limiter  *ImportLimiter
	archiver Archiver
	timeout  time.Duration
	zipEntry string
	now      func() time.Time
}

// NewService creates a new Service instance.
func NewService(pool Pool, opts Options) *Service {
	if opts.Limiter == nil {
		opts.Limiter = NewImportLimiter(0, 0)
	}
	if opts.ImportTimeout <= 0 {
		opts.ImportTimeout = DefaultImportTimeout
	}
	if opts.ZipEntry == "" {
		opts.ZipEntry = importer.DefaultZipEntry
	}

	return &Service{
		pool:     pool,
		limiter:  opts.Limiter,
		archiver: opts.Archiver,
		timeout:  opts.ImportTimeout,
		zipEntry: opts.ZipEntry,
		now:      time.Now,
	}
}

// Limiter returns the import limiter, for graceful shutdown and health checks.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// ListEntities returns information about all registered entities.
func (s *Service) ListEntities() []EntityInfo {
	defs := All()
	infos := make([]EntityInfo, len(defs))
	for i, def := range defs {
		infos[i] = def.Info
	}
	return infos
}

// ListEntitiesByGroup returns entities organized by group.
func (s *Service) ListEntitiesByGroup() map[string][]EntityInfo {
	result := make(map[string][]EntityInfo)
	for _, group := range Groups() {
		for _, def := range ByGroup(group) {
			result[group] = append(result[group], def.Info)
		}
	}
	return result
}

func (s *Service) entity(key string) (EntityDefinition, error) {
	def, ok := Get(key)
	if !ok {
		return EntityDefinition{}, fmt.Errorf("%w: %s", ErrUnknownEntity, key)
	}
	return def, nil
}

// decode runs the import pipeline for an entity and maps the file's
// headers onto the declared ones.
func (s *Service) decode(ctx context.Context, def EntityDefinition, file UploadedFile) (*importer.Result[importer.ParsedRow], error) {
	zipName := file.ZipName
	if zipName == "" {
		zipName = s.zipEntry
	}

	headers := def.Headers()
	res, err := importer.Import[importer.ParsedRow](ctx, importer.Request{
		Path:    file.Path,
		Headers: headers,
		Type:    file.ContentType,
		ZipName: zipName,
		Options: importer.ParseOptions{ColumnLength: len(headers)},
	})
	if err != nil {
		return nil, err
	}

	rows, err := NormalizeColumns(res.Data, def.FieldSpecs)
	if err != nil {
		return nil, err
	}
	res.Data = rows
	return res, nil
}

// preparedRow is a validated record ready for insertion.
type preparedRow struct {
	row    int
	key    string // key column as uploaded
	dbKey  string // key column as stored, after normalization
	uniq   string // UniqueKey values joined by "|"; empty if any is missing
	values []any
	data   map[string]string
}

// prepare validates and builds every record. Invalid records become
// failed rows.
func prepare(def EntityDefinition, records []importer.ParsedRow) ([]preparedRow, []FailedRow) {
	validator := NewRecordValidator(def.FieldSpecs)
	build := def.BuildRow
	if build == nil {
		build = DefaultBuildRow(def.FieldSpecs)
	}

	var keyNormalizer func(string) string
	for _, spec := range def.FieldSpecs {
		if spec.Name == def.Info.KeyColumn {
			keyNormalizer = spec.Normalizer
		}
	}

	ready := make([]preparedRow, 0, len(records))
	var failed []FailedRow

	for i, rec := range records {
		key, _ := rec.Get(def.Info.KeyColumn)
		key = CleanCell(key)

		if v := validator.Validate(rec); !v.Valid {
			failed = append(failed, FailedRow{
				Row:    i + 1,
				Key:    key,
				Reason: strings.Join(v.Messages(), "; "),
				Data:   rec.Map(),
			})
			continue
		}

		values, err := build(rec)
		if err != nil {
			failed = append(failed, FailedRow{Row: i + 1, Key: key, Reason: err.Error(), Data: rec.Map()})
			continue
		}
		dbKey := key
		if keyNormalizer != nil && dbKey != "" {
			dbKey = keyNormalizer(dbKey)
		}
		ready = append(ready, preparedRow{
			row:    i + 1,
			key:    key,
			dbKey:  dbKey,
			uniq:   uniqueKey(rec, def.Info.UniqueKey, def.FieldSpecs),
			values: values,
			data:   rec.Map(),
		})
	}

	return ready, failed
}

// uniqueKey joins the normalized values of cols.
func uniqueKey(rec importer.ParsedRow, cols []string, specs []FieldSpec) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		v, _ := rec.Get(col)
		v = CleanCell(v)
		if v == "" {
			return ""
		}
		for _, spec := range specs {
			if spec.Name == col && spec.Normalizer != nil {
				v = spec.Normalizer(v)
			}
		}
		parts[i] = v
	}
	return strings.Join(parts, "|")
}

// ImportFile imports an uploaded file into an entity table.
//
// The file is decoded and validated in full first. Valid rows are then
// inserted in one transaction with a savepoint per row, so a rejected row
// is reported in the summary without aborting the others. Permission
// grants are applied for rows that were inserted. The run is recorded in
// import_runs whether it succeeds or fails.
func (s *Service) ImportFile(ctx context.Context, entityKey string, file UploadedFile) (*ImportSummary, error) {
	def, err := s.entity(entityKey)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runID := uuid.New().String()
	start := s.now()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.WithFields(ctx, "entity", entityKey, "file", file.Name)

	summary := &ImportSummary{
		RunID:    runID,
		Entity:   entityKey,
		FileName: file.Name,
		Format:   importer.FormatForMIME(file.ContentType).String(),
	}

	res, err := s.decode(ctx, def, file)
	if err != nil {
		log.Warn("import rejected", "error", err, "status", importer.StatusOf(err))
		s.recordFailure(ctx, summary, PhaseDecoding, err, start)
		return nil, err
	}
	summary.TotalRows = len(res.Data)
	log.Info("import decoded", "rows", len(res.Data), "permissions", len(res.Permissions))

	ready, failed := prepare(def, res.Data)
	summary.FailedRows = failed

	if err := s.insert(ctx, def, summary, ready, res.Permissions, start); err != nil {
		log.Error("import failed", "error", err)
		s.recordFailure(ctx, summary, PhaseInserting, err, start)
		return nil, err
	}

	if s.archiver != nil {
		if key, err := s.archive(ctx, file, summary); err != nil {
			log.Warn("archive upload failed", "error", err)
		} else {
			summary.ArchiveKey = key
		}
	}

	summary.Duration = s.now().Sub(start)
	log.Info("import complete",
		"inserted", summary.Inserted,
		"skipped", summary.Skipped,
		"permissions", summary.PermissionsGranted,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// insert writes rows, grants and the run record in one transaction.
func (s *Service) insert(ctx context.Context, def EntityDefinition, summary *ImportSummary, ready []preparedRow, perms []importer.ObjectPermissionImport, start time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := def.Insert
	if insert == nil {
		insert = defaultInsert(def)
	}

	// uploaded key -> stored key, for rows that were inserted
	inserted := make(map[string]string, len(ready))
	for i, p := range ready {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		rowErr, err := withSavepoint(ctx, tx, fmt.Sprintf("sp_%d", i), func() error {
			return insert(ctx, tx, summary.RunID, p.values)
		})
		if err != nil {
			return err
		}
		if rowErr != nil {
			summary.FailedRows = append(summary.FailedRows, FailedRow{
				Row:    p.row,
				Key:    p.key,
				Reason: rowReason(rowErr),
				Data:   p.data,
			})
			continue
		}
		summary.Inserted++
		if p.key != "" {
			inserted[p.key] = p.dbKey
		}
	}
	sortFailedRows(summary.FailedRows)
	summary.Skipped = len(summary.FailedRows)

	for i, perm := range perms {
		target, ok := inserted[CleanCell(perm.Target)]
		if !ok {
			summary.PermissionsSkipped++
			continue
		}
		perm.Target = target
		rowErr, err := withSavepoint(ctx, tx, fmt.Sprintf("perm_%d", i), func() error {
			return insertGrant(ctx, tx, summary.RunID, def.Info.Key, perm)
		})
		if err != nil {
			return err
		}
		if rowErr != nil {
			summary.PermissionsSkipped++
			continue
		}
		summary.PermissionsGranted++
	}

	if err := insertRun(ctx, tx, runRecord(ctx, summary, PhaseComplete, nil, start, s.now())); err != nil {
		return fmt.Errorf("record import run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rowReason describes an insert failure for the failed-row report.
func rowReason(err error) string {
	if IsUserFacing(err) {
		return "insert: " + FormatUserError(err)
	}
	return "insert: " + err.Error()
}

// archive copies the original upload to object storage and stores the
// key on the run record.
func (s *Service) archive(ctx context.Context, file UploadedFile, summary *ImportSummary) (string, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	name := path.Base(strings.ReplaceAll(file.Name, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	key := fmt.Sprintf("imports/%s/%s/%s", summary.Entity, summary.RunID, name)

	stored, err := s.archiver.Archive(ctx, key, f, file.Size, file.ContentType)
	if err != nil {
		return "", err
	}
	if err := setArchiveKey(ctx, s.pool, summary.RunID, stored); err != nil {
		return stored, fmt.Errorf("record archive key: %w", err)
	}
	return stored, nil
}

// recordFailure stores a failed run. It runs detached from ctx so
// cancelled and timed-out imports are still recorded.
func (s *Service) recordFailure(ctx context.Context, summary *ImportSummary, phase ImportPhase, cause error, start time.Time) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	run := runRecord(ctx, summary, PhaseFailed, cause, start, s.now())
	run.Phase = string(PhaseFailed) + ":" + string(phase)
	if err := insertRun(rctx, s.pool, run); err != nil {
		logging.FromContext(ctx).Warn("record failed import run", "error", err)
	}
}
