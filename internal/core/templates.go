package core

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/hrm/internal/importer"
)

// TemplateFormat is the file format of a header template download.
type TemplateFormat string

const (
	TemplateCSV  TemplateFormat = "csv"
	TemplateXLSX TemplateFormat = "xlsx"
)

// ParseTemplateFormat maps a query value onto a TemplateFormat. Empty
// selects CSV.
func ParseTemplateFormat(s string) (TemplateFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return TemplateCSV, nil
	case "xlsx", "excel":
		return TemplateXLSX, nil
	default:
		return "", fmt.Errorf("unsupported template format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f TemplateFormat) ContentType() string {
	if f == TemplateXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Template is a downloadable file with the declared header row.
type Template struct {
	FileName    string
	ContentType string
	Data        []byte
}

// HeaderTemplate returns an empty upload file for an entity. The XLSX
// variant carries the permission columns and a second sheet describing
// each field.
func (s *Service) HeaderTemplate(entityKey string, format TemplateFormat) (*Template, error) {
	def, err := s.entity(entityKey)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case TemplateCSV:
		data = []byte(importer.EncodeCSV(def.Headers(), nil))
	case TemplateXLSX:
		data, err = xlsxTemplate(def)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported template format %q", format)
	}

	return &Template{
		FileName:    fmt.Sprintf("%s_template.%s", def.Info.Key, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func xlsxTemplate(def EntityDefinition) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), importer.ExcelDataSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	perms := importer.DefaultPermissionColumns()
	header := make([]any, 0, len(def.FieldSpecs)+2)
	for _, h := range def.Headers() {
		header = append(header, h)
	}
	header = append(header, perms.Subject, perms.Codes)
	if err := f.SetSheetRow(importer.ExcelDataSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	const fields = "fields"
	if _, err := f.NewSheet(fields); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}
	if err := f.SetSheetRow(fields, "A1", &[]any{"column", "type", "required", "allowed values"}); err != nil {
		return nil, fmt.Errorf("write fields header: %w", err)
	}
	for i, spec := range def.FieldSpecs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		required := "no"
		if spec.Required {
			required = "yes"
		}
		row := []any{spec.Name, fieldTypeName(spec.Type), required, strings.Join(spec.EnumValues, ", ")}
		if err := f.SetSheetRow(fields, cell, &row); err != nil {
			return nil, fmt.Errorf("write field %s: %w", spec.Name, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
