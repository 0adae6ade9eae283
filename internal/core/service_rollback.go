package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	// ErrAlreadyRolledBack is returned when a run's rows were already removed.
	ErrAlreadyRolledBack = errors.New("import run already rolled back")

	// ErrRunNotComplete is returned for runs that failed and wrote no rows.
	ErrRunNotComplete = errors.New("import run did not complete")
)

// RollbackResult reports what a rollback removed.
type RollbackResult struct {
	RunID              string `json:"runId"`
	Entity             string `json:"entity"`
	RowsDeleted        int64  `json:"rowsDeleted"`
	PermissionsDeleted int64  `json:"permissionsDeleted"`
}

// RollbackImportRun deletes every row and grant written by a completed
// import run and marks the run rolled back. Rows a later run has
// overwritten carry that run's id and are left alone.
func (s *Service) RollbackImportRun(ctx context.Context, runID string) (*RollbackResult, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	id := ToPgUUID(runID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var entity, phase string
	err = tx.QueryRow(ctx, `SELECT entity, phase FROM import_runs WHERE id = $1 FOR UPDATE`, id).Scan(&entity, &phase)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get import run: %w", err)
	}

	switch ImportPhase(phase) {
	case PhaseComplete:
	case PhaseRolledBack:
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRolledBack, runID)
	default:
		return nil, fmt.Errorf("%w: %s ended in phase %q and wrote no rows", ErrRunNotComplete, runID, phase)
	}

	def, err := s.entity(entity)
	if err != nil {
		return nil, err
	}

	result := &RollbackResult{RunID: runID, Entity: entity}

	tag, err := tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE import_run_id = $1", quoteIdentifier(def.Info.Table)), id)
	if err != nil {
		return nil, fmt.Errorf("delete rows: %w", err)
	}
	result.RowsDeleted = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM object_permissions WHERE import_run_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete permissions: %w", err)
	}
	result.PermissionsDeleted = tag.RowsAffected()

	if _, err := tx.Exec(ctx, `UPDATE import_runs SET phase = $2 WHERE id = $1`, id, string(PhaseRolledBack)); err != nil {
		return nil, fmt.Errorf("mark rolled back: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}
