package importer

import (
	"strings"
)

// lineBreaks normalizes CRLF and bare CR to LF before splitting.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ParseCSV splits CSV text into a header row and parsed data rows.
//
// Fields are comma separated and may be wrapped in double quotes; one
// leading and one trailing quote is stripped from each field. Quoted
// commas and escaped quotes are not supported. Blank lines are skipped.
//
// Errors: ErrEmptyFile when there are no lines, *ColumnCountMismatchError
// when opts.ColumnLength is set and does not match the header, and
// RowShapeErrors listing every row whose field count differs from the
// header count. Row numbers count data lines below the header, blank
// lines included, so they match the line in the file.
func ParseCSV(content string, opts ParseOptions) ([]string, []ParsedRow, error) {
	lines := strings.Split(lineBreaks.Replace(content), "\n")

	head := -1
	for i, line := range lines {
		if !isBlankLine(line) {
			head = i
			break
		}
	}
	if head < 0 {
		return nil, nil, ErrEmptyFile
	}

	headers := splitFields(lines[head])
	if err := CheckHeaderCount(opts.ColumnLength, countDeclared(headers, opts.Reserved)); err != nil {
		return nil, nil, err
	}

	body := lines[head+1:]
	records := make([]record, 0, len(body))
	for i, line := range body {
		if isBlankLine(line) {
			continue
		}
		records = append(records, record{line: i + 1, fields: splitFields(line)})
	}

	rows, err := buildRows(headers, records, opts)
	if err != nil {
		return nil, nil, err
	}
	return headers, rows, nil
}

// record is one data line and its 1-based position below the header.
// Skipped blank lines still count toward line.
type record struct {
	line   int
	fields []string
}

func isBlankLine(line string) bool {
	return strings.TrimSpace(line) == ""
}

// splitFields splits one line on commas and unwraps each field.
func splitFields(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), ",")
	for i, p := range parts {
		parts[i] = unquote(p)
	}
	return parts
}

// unquote trims whitespace and strips one surrounding double quote on
// each side.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}

// buildRows zips each record against headers by position. Records with the
// wrong field count are collected and returned together; in that case no
// rows are returned.
func buildRows(headers []string, records []record, opts ParseOptions) ([]ParsedRow, error) {
	rows := make([]ParsedRow, 0, len(records))
	var shapeErrs RowShapeErrors

	for _, rec := range records {
		if err := CheckRowShape(rec.line, len(headers), len(rec.fields)); err != nil {
			shapeErrs = append(shapeErrs, err)
			continue
		}
		if shapeErrs != nil {
			continue
		}
		rows = append(rows, buildRow(headers, rec.fields, opts))
	}

	if len(shapeErrs) > 0 {
		return nil, shapeErrs
	}
	return rows, nil
}

func buildRow(headers, fields []string, opts ParseOptions) ParsedRow {
	row := NewParsedRow(len(headers))
	for i, h := range headers {
		v := fields[i]
		if !opts.KeepEmpty && strings.TrimSpace(v) == "" {
			if opts.EmptyValue != nil {
				row.Set(h, *opts.EmptyValue)
			}
			continue
		}
		row.Set(h, v)
	}
	return row
}
