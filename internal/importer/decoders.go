package importer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelDataSheet is the preferred worksheet name; the first sheet is used
// when a workbook has no sheet with this name.
const ExcelDataSheet = "data"

// decodeCSV reads a plain CSV upload.
func decodeCSV(_ context.Context, req Request) (decoded, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return decoded{}, &UnderlyingIOError{Op: "open", Path: req.Path, Err: err}
	}
	defer f.Close()

	content, err := readText(f)
	if err != nil {
		return decoded{}, &UnderlyingIOError{Op: "read", Path: req.Path, Err: err}
	}

	headers, rows, err := ParseCSV(content, parseOptionsFor(FormatCSV, req))
	if err != nil {
		return decoded{}, err
	}
	return decoded{headers: headers, rows: rows}, nil
}

// decodeZip reads the named CSV entry from a ZIP upload.
func decodeZip(_ context.Context, req Request) (decoded, error) {
	zr, err := zip.OpenReader(req.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return decoded{}, &UnderlyingIOError{Op: "open", Path: req.Path, Err: err}
		}
		return decoded{}, fmt.Errorf("%w: %v", ErrUnsupportedArchive, err)
	}
	defer zr.Close()

	name := req.zipEntry()
	entry := findZipEntry(zr.File, name)
	if entry == nil {
		return decoded{}, &MissingZipEntryError{Name: name}
	}

	rc, err := entry.Open()
	if err != nil {
		return decoded{}, &UnderlyingIOError{Op: "open entry", Path: entry.Name, Err: err}
	}
	defer rc.Close()

	content, err := readText(rc)
	if err != nil {
		return decoded{}, &UnderlyingIOError{Op: "read entry", Path: entry.Name, Err: err}
	}

	headers, rows, err := ParseCSV(content, parseOptionsFor(FormatZip, req))
	if err != nil {
		return decoded{}, err
	}
	return decoded{headers: headers, rows: rows}, nil
}

// findZipEntry matches the entry name exactly first, then by base name so
// archives created from a folder still work.
func findZipEntry(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if path.Base(f.Name) == name {
			return f
		}
	}
	return nil
}

// decodeExcel reads the data sheet of a workbook.
func decodeExcel(_ context.Context, req Request) (decoded, error) {
	f, err := excelize.OpenFile(req.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return decoded{}, &UnderlyingIOError{Op: "open", Path: req.Path, Err: err}
		}
		return decoded{}, fmt.Errorf("%w: %v", ErrUnsupportedWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return decoded{}, ErrEmptyFile
	}
	sheet := pickSheet(sheets)

	raw, err := f.GetRows(sheet)
	if err != nil {
		return decoded{}, fmt.Errorf("%w: read sheet %q: %v", ErrUnsupportedWorkbook, sheet, err)
	}

	head := -1
	for i, r := range raw {
		if !isBlankRow(r) {
			head = i
			break
		}
	}
	if head < 0 {
		return decoded{}, ErrEmptyFile
	}

	opts := parseOptionsFor(FormatExcel, req)
	headers := unquoteAll(raw[head])
	if err := CheckHeaderCount(opts.ColumnLength, countDeclared(headers, opts.Reserved)); err != nil {
		return decoded{}, err
	}

	// excelize drops trailing empty cells, so short rows are padded.
	body := raw[head+1:]
	records := make([]record, 0, len(body))
	for i, r := range body {
		if isBlankRow(r) {
			continue
		}
		fields := unquoteAll(r)
		if len(fields) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, fields)
			fields = padded
		}
		records = append(records, record{line: i + 1, fields: fields})
	}

	rows, err := buildRows(headers, records, opts)
	if err != nil {
		return decoded{}, err
	}
	return decoded{headers: headers, rows: rows}, nil
}

func pickSheet(sheets []string) string {
	for _, s := range sheets {
		if strings.EqualFold(s, ExcelDataSheet) {
			return s
		}
	}
	return sheets[0]
}

func unquoteAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = unquote(c)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
