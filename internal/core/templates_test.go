package core

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseTemplateFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    TemplateFormat
		wantErr bool
	}{
		{"", TemplateCSV, false},
		{"CSV", TemplateCSV, false},
		{"xlsx", TemplateXLSX, false},
		{"excel", TemplateXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTemplateFormat(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTemplateFormat(%q) = %q, %v", tt.input, got, err)
		}
	}
}

func TestHeaderTemplate_CSV(t *testing.T) {
	withRegistry(t, peopleEntity())
	svc := NewService(&fakeDB{}, Options{})

	tpl, err := svc.HeaderTemplate("test_people", TemplateCSV)
	if err != nil {
		t.Fatalf("HeaderTemplate() error: %v", err)
	}
	if want := "\"employee_id\",\"email\",\"salary\"\r\n"; string(tpl.Data) != want {
		t.Errorf("Data = %q, want %q", tpl.Data, want)
	}
	if tpl.FileName != "test_people_template.csv" || tpl.ContentType != "text/csv" {
		t.Errorf("template = %s %s", tpl.FileName, tpl.ContentType)
	}
}

func TestHeaderTemplate_XLSX(t *testing.T) {
	def := peopleEntity()
	def.FieldSpecs = append(def.FieldSpecs, FieldSpec{Name: "status", Type: FieldEnum, EnumValues: []string{"active", "left"}})
	withRegistry(t, def)
	svc := NewService(&fakeDB{}, Options{})

	tpl, err := svc.HeaderTemplate("test_people", TemplateXLSX)
	if err != nil {
		t.Fatalf("HeaderTemplate() error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(tpl.Data))
	if err != nil {
		t.Fatalf("open template: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("data")
	if err != nil {
		t.Fatalf("GetRows(data): %v", err)
	}
	want := []string{"employee_id", "email", "salary", "status", "permission_subject", "permission_codes"}
	if len(rows) != 1 || len(rows[0]) != len(want) {
		t.Fatalf("data rows = %v", rows)
	}
	for i, h := range want {
		if rows[0][i] != h {
			t.Errorf("header %d = %q, want %q", i, rows[0][i], h)
		}
	}

	fields, err := f.GetRows("fields")
	if err != nil {
		t.Fatalf("GetRows(fields): %v", err)
	}
	if len(fields) != 5 {
		t.Fatalf("fields rows = %d, want 5", len(fields))
	}
	if fields[2][1] != "email" || fields[2][2] != "yes" {
		t.Errorf("email row = %v", fields[2])
	}
	if fields[4][1] != "enum" || fields[4][3] != "active, left" {
		t.Errorf("status row = %v", fields[4])
	}
}

func TestHeaderTemplate_UnknownEntity(t *testing.T) {
	withRegistry(t)
	svc := NewService(&fakeDB{}, Options{})

	if _, err := svc.HeaderTemplate("nope", TemplateCSV); err == nil {
		t.Error("expected error for unknown entity")
	}
}
