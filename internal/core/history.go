package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultHistoryLimit and MaxHistoryLimit bound ListImportRuns.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ErrRunNotFound is returned by GetImportRun for an unknown run id.
var ErrRunNotFound = errors.New("import run not found")

// runRecord builds the import_runs row for a finished or failed import.
func runRecord(ctx context.Context, summary *ImportSummary, phase ImportPhase, cause error, start, end time.Time) ImportRun {
	run := ImportRun{
		ID:                 summary.RunID,
		Entity:             summary.Entity,
		FileName:           summary.FileName,
		Format:             summary.Format,
		Phase:              string(phase),
		TotalRows:          summary.TotalRows,
		Inserted:           summary.Inserted,
		Skipped:            summary.Skipped,
		PermissionsGranted: summary.PermissionsGranted,
		IPAddress:          IPAddressFromContext(ctx),
		UserAgent:          UserAgentFromContext(ctx),
		Actor:              ActorFromContext(ctx),
		StartedAt:          start,
		FinishedAt:         end,
		FailedRows:         summary.FailedRows,
	}
	if cause != nil {
		run.Error = cause.Error()
	}
	return run
}

const insertRunSQL = `INSERT INTO import_runs (
	id, entity, file_name, format, phase, total_rows, inserted, skipped,
	permissions_granted, error, failed_rows, ip_address, user_agent, actor,
	started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

func insertRun(ctx context.Context, db DBTX, run ImportRun) error {
	failed, err := json.Marshal(run.FailedRows)
	if err != nil {
		return fmt.Errorf("marshal failed rows: %w", err)
	}

	_, err = db.Exec(ctx, insertRunSQL,
		ToPgUUID(run.ID),
		run.Entity,
		run.FileName,
		run.Format,
		run.Phase,
		run.TotalRows,
		run.Inserted,
		run.Skipped,
		run.PermissionsGranted,
		ToPgText(run.Error),
		failed,
		ToPgText(run.IPAddress),
		ToPgText(run.UserAgent),
		ToPgText(run.Actor),
		pgtype.Timestamptz{Time: run.StartedAt, Valid: true},
		pgtype.Timestamptz{Time: run.FinishedAt, Valid: true},
	)
	return err
}

func setArchiveKey(ctx context.Context, db DBTX, runID, key string) error {
	_, err := db.Exec(ctx, `UPDATE import_runs SET archive_key = $2 WHERE id = $1`, ToPgUUID(runID), key)
	return err
}

const runColumns = `id, entity, file_name, format, phase, total_rows, inserted, skipped,
	permissions_granted, error, archive_key, ip_address, user_agent, actor,
	started_at, finished_at`

// scanRun reads one import_runs row selected with runColumns.
func scanRun(row pgx.Row, extra ...any) (ImportRun, error) {
	var (
		run                         ImportRun
		id                          pgtype.UUID
		errText, archiveKey, ip, ua pgtype.Text
		actor                       pgtype.Text
		started, finished           pgtype.Timestamptz
	)

	dest := []any{
		&id, &run.Entity, &run.FileName, &run.Format, &run.Phase,
		&run.TotalRows, &run.Inserted, &run.Skipped, &run.PermissionsGranted,
		&errText, &archiveKey, &ip, &ua, &actor, &started, &finished,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return ImportRun{}, err
	}

	run.ID = PgUUIDToString(id)
	run.Error = errText.String
	run.ArchiveKey = archiveKey.String
	run.IPAddress = ip.String
	run.UserAgent = ua.String
	run.Actor = actor.String
	run.StartedAt = started.Time
	run.FinishedAt = finished.Time
	return run, nil
}

// ListImportRuns returns the most recent runs for an entity, newest first.
func (s *Service) ListImportRuns(ctx context.Context, entityKey string, limit int) ([]ImportRun, error) {
	if _, err := s.entity(entityKey); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM import_runs WHERE entity = $1 ORDER BY started_at DESC LIMIT $2`,
		entityKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	runs := make([]ImportRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}

// GetImportRun returns one run including its failed rows.
func (s *Service) GetImportRun(ctx context.Context, runID string) (*ImportRun, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var failed []byte
	run, err := scanRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+`, failed_rows FROM import_runs WHERE id = $1`,
		ToPgUUID(runID),
	), &failed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get import run: %w", err)
	}

	if len(failed) > 0 {
		if err := json.Unmarshal(failed, &run.FailedRows); err != nil {
			return nil, fmt.Errorf("decode failed rows: %w", err)
		}
	}
	return &run, nil
}

// sortFailedRows orders failed rows by row number. Validation and insert
// failures are collected separately.
func sortFailedRows(rows []FailedRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Row < rows[j].Row
	})
}
