package importer

import (
	"context"
	"mime"
	"strings"
)

// Format is the container format of an upload.
type Format int

const (
	FormatExcel Format = iota // spreadsheet, the default
	FormatCSV
	FormatZip // ZIP archive holding one CSV entry
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatZip:
		return "zip"
	default:
		return "excel"
	}
}

// EmbedsPermissions reports whether uploads of this format may carry
// permission columns.
func (f Format) EmbedsPermissions() bool {
	return f == FormatExcel || f == FormatZip
}

var mimeFormats = map[string]Format{
	"application/zip":              FormatZip,
	"application/x-zip":            FormatZip,
	"application/x-zip-compressed": FormatZip,
	"multipart/x-zip":              FormatZip,
	"text/csv":                     FormatCSV,
	"text/x-csv":                   FormatCSV,
	"application/csv":              FormatCSV,
	"text/plain":                   FormatCSV,
}

// FormatForMIME selects the format for a declared MIME type. Parameters
// such as charset are ignored. Unknown or empty types are treated as
// spreadsheets.
func FormatForMIME(mimeType string) Format {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if f, ok := mimeFormats[mt]; ok {
		return f
	}
	return FormatExcel
}

// decoded is the output every decoder produces before permission
// extraction and record conversion.
type decoded struct {
	headers []string
	rows    []ParsedRow
}

type decodeFunc func(ctx context.Context, req Request) (decoded, error)

// dispatch returns the decoder for f. It does not touch the filesystem.
func dispatch(f Format) decodeFunc {
	switch f {
	case FormatZip:
		return decodeZip
	case FormatCSV:
		return decodeCSV
	default:
		return decodeExcel
	}
}

// parseOptionsFor returns the row options for a format, reserving the
// permission columns when the format embeds them.
func parseOptionsFor(f Format, req Request) ParseOptions {
	opts := req.Options
	if f.EmbedsPermissions() {
		opts.Reserved = append(append([]string(nil), opts.Reserved...), req.Permissions.withDefaults().names()...)
	}
	return opts
}
