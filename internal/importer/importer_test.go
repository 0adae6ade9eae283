package importer

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	mimeCSV  = "text/csv"
	mimeZip  = "application/zip"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// writeWorkbook saves rows to the named sheet of a new workbook. The
// default sheet keeps a decoy row when another sheet is requested.
func writeWorkbook(t *testing.T, sheet string, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"decoy"}))
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "upload.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func requireImportError(t *testing.T, err error, status int, kind string) *ImportError {
	t.Helper()
	var ie *ImportError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, status, ie.Status)
	assert.Equal(t, kind, Kind(ie.Data))
	return ie
}

func TestImport_CSVScenario(t *testing.T) {
	path := writeFile(t, "people.csv", "\"id\",\"name\"\r\n\"1\",\"Alice\"\r\n\"2\",\"Bob\"\r")

	res, err := Import[map[string]string](context.Background(), Request{
		Path:    path,
		Headers: []string{"id", "name"},
		Type:    mimeCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"id": "1", "name": "Alice"},
		{"id": "2", "name": "Bob"},
	}, res.Data)
	assert.Nil(t, res.Permissions)

	// the upload is left for the caller to remove
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestImport_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id"}, Type: mimeCSV,
	})
	requireImportError(t, err, http.StatusNotFound, "empty_file")
	assert.ErrorIs(t, err, ErrEmptyFile)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestImport_ColumnCountMismatch(t *testing.T) {
	path := writeFile(t, "x.csv", "a,b,c\n1,2,3\n")

	_, err := Import[ParsedRow](context.Background(), Request{
		Path: path, Headers: []string{"a", "b"}, Type: mimeCSV,
		Options: ParseOptions{ColumnLength: 2},
	})
	requireImportError(t, err, http.StatusBadRequest, "column_count_mismatch")

	var mismatch *ColumnCountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
}

func TestImport_RowThreeShortOfFive(t *testing.T) {
	content := "\"a\",\"b\"\r\n\"1\",\"2\"\r\n\"3\",\"4\"\r\n\"5\"\r\n\"7\",\"8\"\r\n\"9\",\"10\"\r\n"
	path := writeFile(t, "x.csv", content)

	res, err := Import[ParsedRow](context.Background(), Request{
		Path: path, Headers: []string{"a", "b"}, Type: mimeCSV,
	})
	assert.Nil(t, res)
	requireImportError(t, err, http.StatusBadRequest, "row_shape")

	var rowErr *RowShapeError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Row)
	assert.Equal(t, 2, rowErr.Expected)
	assert.Equal(t, 1, rowErr.Actual)
}

func TestImport_WellFormedProperty(t *testing.T) {
	headers := []string{"code", "first", "last", "email"}
	for _, m := range []int{0, 1, 7, 250} {
		t.Run(fmt.Sprintf("rows=%d", m), func(t *testing.T) {
			records := make([]map[string]string, m)
			for i := range records {
				records[i] = map[string]string{
					"code":  fmt.Sprintf("E-%04d", i),
					"first": "First" + fmt.Sprint(i),
					"last":  "Last",
					"email": fmt.Sprintf("e%d@example.com", i),
				}
			}
			path := writeFile(t, "x.csv", EncodeCSV(headers, records))

			res, err := Import[ParsedRow](context.Background(), Request{
				Path: path, Headers: headers, Type: mimeCSV,
			})
			require.NoError(t, err)
			require.Len(t, res.Data, m)
			for _, row := range res.Data {
				assert.Equal(t, headers, row.Keys())
			}
		})
	}
}

func TestImport_RoundTrip(t *testing.T) {
	headers := []string{"id", "name", "dept"}
	records := []map[string]string{
		{"id": "1", "name": "Alice", "dept": "Ops"},
		{"id": "2", "name": "Bob"},
		{"id": "3", "name": "Chandra", "dept": "Eng"},
	}
	path := writeFile(t, "x.csv", EncodeCSV(headers, records))

	res, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: headers, Type: mimeCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, records, res.Data)
}

func TestImport_Idempotent(t *testing.T) {
	path := writeFile(t, "x.csv", "id,name\n1,Alice\n2,\n")
	req := Request{
		Path: path, Headers: []string{"id", "name"}, Type: mimeCSV,
		Options: ParseOptions{EmptyValue: strPtr("-")},
	}

	first, err := Import[ParsedRow](context.Background(), req)
	require.NoError(t, err)
	second, err := Import[ParsedRow](context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, map[string]string{"id": "2", "name": "-"}, second.Data[1].Map())
}

type employeeRecord struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Hours int    `json:"hours,string"`
}

func TestImport_TypedRecords(t *testing.T) {
	path := writeFile(t, "x.csv", "code,name,hours\nE-1,Ann,40\nE-2,Ben,32\n")

	res, err := Import[employeeRecord](context.Background(), Request{
		Path: path, Headers: []string{"code", "name", "hours"}, Type: mimeCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, []employeeRecord{
		{Code: "E-1", Name: "Ann", Hours: 40},
		{Code: "E-2", Name: "Ben", Hours: 32},
	}, res.Data)
}

func TestImport_RecordConversionError(t *testing.T) {
	path := writeFile(t, "x.csv", "code,name,hours\nE-1,Ann,40\nE-2,Ben,lots\n")

	_, err := Import[employeeRecord](context.Background(), Request{
		Path: path, Headers: []string{"code", "name", "hours"}, Type: mimeCSV,
	})
	requireImportError(t, err, http.StatusBadRequest, "record_conversion")

	var conv *RecordConversionError
	require.ErrorAs(t, err, &conv)
	assert.Equal(t, 2, conv.Row)
}

func TestImport_CSVKeepsPermissionColumnsAsData(t *testing.T) {
	path := writeFile(t, "x.csv", "id,permission_subject,permission_codes\n1,group:hr,view\n")

	res, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id"}, Type: mimeCSV,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Permissions)
	assert.Equal(t, "group:hr", res.Data[0]["permission_subject"])
}

func TestImport_Zip(t *testing.T) {
	csv := "\"code\",\"name\",\"permission_subject\",\"permission_codes\"\r\n" +
		"\"P-1\",\"Apollo\",\"group:pm\",\"view;change\"\r\n" +
		"\"P-2\",\"Zeus\",\"\",\"\"\r\n"
	path := writeZip(t, map[string]string{"data.csv": csv, "README.txt": "ignore"})

	res, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"code", "name"}, Type: mimeZip,
		Options: ParseOptions{ColumnLength: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"code": "P-1", "name": "Apollo"},
		{"code": "P-2", "name": "Zeus"},
	}, res.Data)
	assert.Equal(t, []ObjectPermissionImport{
		{Subject: "group:pm", Target: "P-1", Codes: []string{"view", "change"}},
	}, res.Permissions)
}

func TestImport_HeaderCaseKeepsGrantTarget(t *testing.T) {
	csv := "\"Employee_ID\",\"name\",\"permission_subject\",\"permission_codes\"\r\n" +
		"\"E-1\",\"Ann\",\"u1\",\"view\"\r\n"
	zipPath := writeZip(t, map[string]string{"data.csv": csv})
	xlsxPath := writeWorkbook(t, "data", [][]any{
		{"Employee_ID", "name", "Permission_Subject", "Permission_Codes"},
		{"E-1", "Ann", "u1", "view"},
	})

	tests := []struct {
		name string
		path string
		mime string
	}{
		{"zip", zipPath, mimeZip},
		{"excel", xlsxPath, mimeXLSX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Import[map[string]string](context.Background(), Request{
				Path: tt.path, Headers: []string{"employee_id", "name"}, Type: tt.mime,
				Options: ParseOptions{ColumnLength: 2},
			})
			require.NoError(t, err)
			assert.Equal(t, []map[string]string{{"Employee_ID": "E-1", "name": "Ann"}}, res.Data)
			assert.Equal(t, []ObjectPermissionImport{
				{Subject: "u1", Target: "E-1", Codes: []string{"view"}},
			}, res.Permissions)
		})
	}
}

func TestImport_ZipNamedEntryInFolder(t *testing.T) {
	path := writeZip(t, map[string]string{"export/tasks.csv": "id,title\n1,Plan\n"})

	res, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id", "title"}, Type: "application/x-zip-compressed",
		ZipName: "tasks.csv",
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.NotNil(t, res.Permissions)
	assert.Empty(t, res.Permissions)
}

func TestImport_ZipMissingEntry(t *testing.T) {
	path := writeZip(t, map[string]string{"other.csv": "id\n1\n"})

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id"}, Type: mimeZip,
	})
	ie := requireImportError(t, err, http.StatusBadRequest, "missing_zip_entry")

	var missing *MissingZipEntryError
	require.ErrorAs(t, ie, &missing)
	assert.Equal(t, DefaultZipEntry, missing.Name)
}

func TestImport_ZipCorrupt(t *testing.T) {
	path := writeFile(t, "bad.zip", "not a zip")

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id"}, Type: mimeZip,
	})
	requireImportError(t, err, http.StatusBadRequest, "unsupported_format")
	assert.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestImport_Excel(t *testing.T) {
	path := writeWorkbook(t, "data", [][]any{
		{"code", "name", "dept", "permission_subject", "permission_codes"},
		{"E-1", "Ann", "Ops", "user:4", "view|delete"},
		{},
		{"E-2", "Ben"},
	})

	res, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"code", "name", "dept"}, Type: mimeXLSX,
		Options: ParseOptions{ColumnLength: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{
		{"code": "E-1", "name": "Ann", "dept": "Ops"},
		{"code": "E-2", "name": "Ben"},
	}, res.Data)
	assert.Equal(t, []ObjectPermissionImport{
		{Subject: "user:4", Target: "E-1", Codes: []string{"view", "delete"}},
	}, res.Permissions)
}

func TestImport_ExcelFirstSheetFallback(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]any{
		{"id", "name"},
		{"1", "Alice"},
	})

	res, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id", "name"}, Type: "",
	})
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"id": "1", "name": "Alice"}}, res.Data)
}

func TestImport_ExcelRowNumbersCountBlankRows(t *testing.T) {
	path := writeWorkbook(t, "data", [][]any{
		{"code", "name"},
		{"E-1", "Ann"},
		{},
		{"E-3", "Cy", "extra"},
	})

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"code", "name"}, Type: mimeXLSX,
	})
	requireImportError(t, err, http.StatusBadRequest, "row_shape")

	var rowErr *RowShapeError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, &RowShapeError{Row: 3, Expected: 2, Actual: 3}, rowErr)
}

func TestImport_ExcelEmptySheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", nil)

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id"}, Type: mimeXLSX,
	})
	requireImportError(t, err, http.StatusNotFound, "empty_file")
}

func TestImport_ExcelCorrupt(t *testing.T) {
	path := writeFile(t, "bad.xlsx", "id,name\n1,x\n")

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"id"}, Type: mimeXLSX,
	})
	requireImportError(t, err, http.StatusBadRequest, "unsupported_format")
	assert.ErrorIs(t, err, ErrUnsupportedWorkbook)
}

func TestImport_MissingFile(t *testing.T) {
	_, err := Import[map[string]string](context.Background(), Request{
		Path: filepath.Join(t.TempDir(), "gone.csv"), Headers: []string{"id"}, Type: mimeCSV,
	})
	requireImportError(t, err, http.StatusInternalServerError, "io")

	var ioErr *UnderlyingIOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImport_InvalidRequest(t *testing.T) {
	_, err := Import[map[string]string](context.Background(), Request{Path: "/tmp/x"})
	requireImportError(t, err, http.StatusBadRequest, "invalid_request")
}

func TestImport_Cancelled(t *testing.T) {
	path := writeFile(t, "x.csv", "id\n1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Import[map[string]string](ctx, Request{Path: path, Headers: []string{"id"}, Type: mimeCSV})
	requireImportError(t, err, http.StatusRequestTimeout, "cancelled")
}

func TestImportError_JSON(t *testing.T) {
	path := writeFile(t, "x.csv", "a,b\n1\n2,3\n4\n")

	_, err := Import[map[string]string](context.Background(), Request{
		Path: path, Headers: []string{"a", "b"}, Type: mimeCSV,
	})
	require.Error(t, err)

	b, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var got struct {
		Status int `json:"status"`
		Data   struct {
			Kind string `json:"kind"`
			Rows []struct {
				Row int `json:"row"`
			} `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, http.StatusBadRequest, got.Status)
	assert.Equal(t, "row_shape", got.Data.Kind)
	require.Len(t, got.Data.Rows, 2)
	assert.Equal(t, 1, got.Data.Rows[0].Row)
	assert.Equal(t, 3, got.Data.Rows[1].Row)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("boom")))
	assert.Equal(t, http.StatusNotFound, StatusOf(wrapError(ErrEmptyFile)))
	assert.Equal(t, http.StatusBadRequest, StatusOf(fmt.Errorf("ctx: %w", wrapError(&MissingZipEntryError{Name: "x"}))))
}

func TestEncodeCSV(t *testing.T) {
	got := EncodeCSV([]string{"id", "name"}, []map[string]string{{"id": "1"}})
	assert.Equal(t, "\"id\",\"name\"\r\n\"1\",\"\"\r\n", got)
}
