package db

import (
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/hrm/internal/core"
	_ "github.com/JonMunkholm/hrm/internal/core/tables"
)

func TestMigrations_Paired(t *testing.T) {
	names, err := fs.Glob(Migrations(), "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", n)
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestMigrations_SourceOrder(t *testing.T) {
	src, err := iofs.New(Migrations(), "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	r, ident, err := src.ReadUp(next)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "import_runs", ident)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS object_permissions")
	assert.Contains(t, string(body), "UNIQUE (entity, target_key, subject)")
}

// Every registered entity needs a table with each declared column and
// an import_run_id for rollback.
func TestMigrations_CoverRegisteredEntities(t *testing.T) {
	up := readAll(t, "migrations/000001_entities.up.sql")
	tables := splitTables(up)

	defs := core.All()
	require.NotEmpty(t, defs)

	for _, def := range defs {
		t.Run(def.Info.Key, func(t *testing.T) {
			body, ok := tables[def.Info.Table]
			require.True(t, ok, "no CREATE TABLE for %s", def.Info.Table)

			for _, spec := range def.FieldSpecs {
				col := spec.DBColumn
				if col == "" {
					col = spec.Name
				}
				assert.Contains(t, body, "\n    "+col+" ", "table %s lacks column %s", def.Info.Table, col)
			}
			assert.Contains(t, body, "import_run_id")
		})
	}
}

func TestMigrations_NoRunForeignKey(t *testing.T) {
	for _, name := range []string{"migrations/000001_entities.up.sql", "migrations/000002_import_runs.up.sql"} {
		assert.NotContains(t, readAll(t, name), "REFERENCES import_runs", name)
	}
}

func readAll(t *testing.T, name string) string {
	t.Helper()
	b, err := fs.ReadFile(Migrations(), name)
	require.NoError(t, err)
	return string(b)
}

// splitTables maps table name to its CREATE TABLE body.
func splitTables(sql string) map[string]string {
	const marker = "CREATE TABLE IF NOT EXISTS "
	out := map[string]string{}
	for _, part := range strings.Split(sql, marker)[1:] {
		name, body, _ := strings.Cut(part, " (")
		body, _, _ = strings.Cut(body, ");")
		out[name] = "\n" + body
	}
	return out
}
