package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hrm/internal/importer"
)

// Re-granting the same subject on the same record replaces its codes.
const insertGrantSQL = `INSERT INTO object_permissions (id, import_run_id, entity, target_key, subject, codes)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (entity, target_key, subject)
DO UPDATE SET codes = EXCLUDED.codes, import_run_id = EXCLUDED.import_run_id`

// insertGrant stores one row-level permission extracted from an upload.
func insertGrant(ctx context.Context, db DBTX, runID, entity string, perm importer.ObjectPermissionImport) error {
	subject := strings.TrimSpace(perm.Subject)
	if subject == "" || len(perm.Codes) == 0 {
		return fmt.Errorf("grant for %q: subject and codes are required", perm.Target)
	}

	_, err := db.Exec(ctx, insertGrantSQL,
		ToPgUUID(uuid.New().String()),
		ToPgUUID(runID),
		entity,
		perm.Target,
		subject,
		perm.Codes,
	)
	return err
}
