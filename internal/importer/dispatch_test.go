package importer

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForMIME(t *testing.T) {
	tests := []struct {
		mime string
		want Format
	}{
		{"text/csv", FormatCSV},
		{"TEXT/CSV; charset=utf-8", FormatCSV},
		{"application/csv", FormatCSV},
		{"text/plain", FormatCSV},
		{"application/zip", FormatZip},
		{"application/x-zip-compressed", FormatZip},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatExcel},
		{"application/vnd.ms-excel", FormatExcel},
		{"application/octet-stream", FormatExcel},
		{"", FormatExcel},
		{"garbage;;", FormatExcel},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatForMIME(tt.mime))
		})
	}
}

func TestFormat_EmbedsPermissions(t *testing.T) {
	assert.True(t, FormatExcel.EmbedsPermissions())
	assert.True(t, FormatZip.EmbedsPermissions())
	assert.False(t, FormatCSV.EmbedsPermissions())
}

func TestDispatch(t *testing.T) {
	same := func(a, b decodeFunc) bool {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	assert.True(t, same(decodeCSV, dispatch(FormatCSV)))
	assert.True(t, same(decodeZip, dispatch(FormatZip)))
	assert.True(t, same(decodeExcel, dispatch(FormatExcel)))
	assert.True(t, same(decodeExcel, dispatch(Format(99))))
}

func TestParseOptionsFor(t *testing.T) {
	req := Request{Options: ParseOptions{Reserved: []string{"x"}}}

	csvOpts := parseOptionsFor(FormatCSV, req)
	assert.Equal(t, []string{"x"}, csvOpts.Reserved)

	zipOpts := parseOptionsFor(FormatZip, req)
	assert.Equal(t, []string{"x", "permission_subject", "permission_codes"}, zipOpts.Reserved)

	// request options are not mutated
	assert.Equal(t, []string{"x"}, req.Options.Reserved)
}
