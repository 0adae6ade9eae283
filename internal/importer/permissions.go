package importer

import (
	"strings"
)

// PermissionColumns names the reserved columns that carry a row-level
// permission grant in Excel and ZIP uploads.
type PermissionColumns struct {
	Subject string // user or group receiving the grant
	Codes   string // permission codes, separated by ';' or '|'
}

// DefaultPermissionColumns returns the column names used when a Request
// does not name its own.
func DefaultPermissionColumns() PermissionColumns {
	return PermissionColumns{
		Subject: "permission_subject",
		Codes:   "permission_codes",
	}
}

func (c PermissionColumns) withDefaults() PermissionColumns {
	def := DefaultPermissionColumns()
	if c.Subject == "" {
		c.Subject = def.Subject
	}
	if c.Codes == "" {
		c.Codes = def.Codes
	}
	return c
}

func (c PermissionColumns) names() []string {
	return []string{c.Subject, c.Codes}
}

// ExtractPermissions splits each row into a data row and an optional
// permission grant. The permission columns are removed from the data rows.
// A grant is produced for rows with both a subject and at least one code;
// its target is the row's value for key. Column names match without
// regard to case, so a file header of "Employee_ID" serves key
// "employee_id".
//
// The input rows are not modified. The returned permission slice is never
// nil so callers can tell "no grants" apart from "format has no grants".
func ExtractPermissions(rows []ParsedRow, cols PermissionColumns, key string) ([]ParsedRow, []ObjectPermissionImport) {
	cols = cols.withDefaults()

	data := make([]ParsedRow, 0, len(rows))
	perms := make([]ObjectPermissionImport, 0)

	for _, row := range rows {
		subjectCol, subject := lookupFold(row, cols.Subject)
		codesCol, rawCodes := lookupFold(row, cols.Codes)

		clean := row.Clone()
		clean.Delete(subjectCol)
		clean.Delete(codesCol)
		data = append(data, clean)

		subject = strings.TrimSpace(subject)
		codes := splitCodes(rawCodes)
		if subject == "" || len(codes) == 0 {
			continue
		}

		_, target := lookupFold(row, key)
		perms = append(perms, ObjectPermissionImport{
			Subject: subject,
			Target:  strings.TrimSpace(target),
			Codes:   codes,
		})
	}

	return data, perms
}

// lookupFold finds name in row, preferring an exact match over a
// case-insensitive one. It returns the row's own key and its value; the
// key is empty when nothing matches.
func lookupFold(row ParsedRow, name string) (string, string) {
	if v, ok := row.Get(name); ok {
		return name, v
	}
	for _, k := range row.Keys() {
		if strings.EqualFold(k, name) {
			v, _ := row.Get(k)
			return k, v
		}
	}
	return "", ""
}

// splitCodes splits a code list on ';' or '|', dropping blanks and
// duplicates while keeping first-seen order.
func splitCodes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == '|'
	})

	seen := make(map[string]bool, len(fields))
	codes := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		codes = append(codes, f)
	}
	return codes
}
