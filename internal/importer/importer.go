package importer

import (
	"context"
	"encoding/json"
	"os"
)

// Import decodes the file described by req into records of type T.
//
// The file is read once and fully materialized; the result is returned
// only after every row has been validated. Any failure is returned as an
// *ImportError. The file at req.Path is never removed.
//
// T is filled by a JSON round trip of each ParsedRow, so its fields should
// carry json tags matching the headers. All values are strings; use the
// ",string" tag option for numeric or boolean fields. ParsedRow and
// map[string]string work as T directly.
func Import[T any](ctx context.Context, req Request) (*Result[T], error) {
	if err := req.validate(); err != nil {
		return nil, wrapError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapError(err)
	}
	if _, err := os.Stat(req.Path); err != nil {
		return nil, wrapError(&UnderlyingIOError{Op: "stat", Path: req.Path, Err: err})
	}

	format := FormatForMIME(req.Type)
	dec, err := dispatch(format)(ctx, req)
	if err != nil {
		return nil, wrapError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapError(err)
	}

	rows := dec.rows
	var perms []ObjectPermissionImport
	if format.EmbedsPermissions() {
		rows, perms = ExtractPermissions(rows, req.Permissions, req.Headers[0])
	}

	data, err := toRecords[T](rows)
	if err != nil {
		return nil, wrapError(err)
	}

	return &Result[T]{Data: data, Permissions: perms}, nil
}

// toRecords rebuilds each row as a T through a JSON round trip, which
// yields plain values detached from the parser's row storage.
func toRecords[T any](rows []ParsedRow) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, &RecordConversionError{Row: i + 1, Err: err}
		}
		var rec T
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, &RecordConversionError{Row: i + 1, Err: err}
		}
		out = append(out, rec)
	}
	return out, nil
}
