package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB is an in-memory Pool. It records every Exec and serves canned
// query results. Transactions share the same call log.
type fakeDB struct {
	mu    sync.Mutex
	execs []execCall

	execErr   func(sql string, args []any) error
	tag       func(sql string) string // command tag for Exec; default "INSERT 0 1"
	queryRows [][]any
	queryErr  error
	row       []any
	rowErr    error
	beginErr  error
	commitErr error

	began      int
	committed  bool
	rolledBack bool
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		if err := f.execErr(sql, args); err != nil {
			return pgconn.CommandTag{}, err
		}
	}
	if f.tag != nil {
		return pgconn.NewCommandTag(f.tag(sql)), nil
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &fakeRows{rows: f.queryRows, pos: -1}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return fakeRow{values: f.row, err: f.rowErr}
}

func (f *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.began++
	return &fakeTx{db: f}, nil
}

// calls returns the recorded statements containing substr.
func (f *fakeDB) calls(substr string) []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []execCall
	for _, c := range f.execs {
		if strings.Contains(c.sql, substr) {
			out = append(out, c)
		}
	}
	return out
}

// fakeTx implements the parts of pgx.Tx the service uses. Calling any
// other method panics on the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if t.db.commitErr != nil {
		return t.db.commitErr
	}
	t.db.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	if t.db.committed {
		return pgx.ErrTxClosed
	}
	t.db.rolledBack = true
	return nil
}

type fakeRows struct {
	pgx.Rows
	rows [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.rows[r.pos], dest)
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.values == nil {
		return pgx.ErrNoRows
	}
	return assign(r.values, dest)
}

// assign copies values into scan destinations of exactly matching types.
func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		vv := reflect.ValueOf(v)
		if !vv.Type().AssignableTo(dv.Elem().Type()) {
			return fmt.Errorf("scan: cannot assign %T to %s", v, dv.Elem().Type())
		}
		dv.Elem().Set(vv)
	}
	return nil
}

// fakeArchiver records archived objects in memory.
type fakeArchiver struct {
	mu   sync.Mutex
	keys []string
	data map[string]string
	err  error
}

func (a *fakeArchiver) Archive(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		a.data = make(map[string]string)
	}
	a.keys = append(a.keys, key)
	a.data[key] = string(b)
	return "archive/" + key, nil
}

var errUniqueViolation = &pgconn.PgError{
	Code:           "23505",
	Message:        `duplicate key value violates unique constraint "test_people_pkey"`,
	ConstraintName: "test_people_pkey",
}

// failInsertFor fails INSERTs into table whose first argument renders as key.
func failInsertFor(table, key string, err error) func(string, []any) error {
	return func(sql string, args []any) error {
		if !strings.Contains(sql, table) || !strings.HasPrefix(sql, "INSERT") || len(args) == 0 {
			return nil
		}
		if strings.Contains(fmt.Sprint(args[0]), key) {
			return err
		}
		return nil
	}
}

var errBoom = errors.New("boom")
