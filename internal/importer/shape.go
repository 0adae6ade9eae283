package importer

import "strings"

// CheckHeaderCount compares the parsed header count with the expected
// column count. A non-positive expected count disables the check.
func CheckHeaderCount(expected, actual int) error {
	if expected <= 0 || expected == actual {
		return nil
	}
	return &ColumnCountMismatchError{Expected: expected, Actual: actual}
}

// CheckRowShape returns a *RowShapeError when a row's field count differs
// from the header count. row is the 1-based data row number.
func CheckRowShape(row, expected, actual int) *RowShapeError {
	if expected == actual {
		return nil
	}
	return &RowShapeError{Row: row, Expected: expected, Actual: actual}
}

// countDeclared returns the number of headers that are not reserved.
// Reserved names match without regard to case.
func countDeclared(headers, reserved []string) int {
	if len(reserved) == 0 {
		return len(headers)
	}
	skip := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		skip[strings.ToLower(r)] = true
	}
	n := 0
	for _, h := range headers {
		if !skip[strings.ToLower(h)] {
			n++
		}
	}
	return n
}
