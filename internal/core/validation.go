package core

// validation.go checks decoded import records against an entity's fields.
//
// The importer guarantees every row has the same shape as the header, so
// this layer is about content: required values, types and enum values.
// Unknown columns are a header problem and reject the whole file.

import (
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/hrm/internal/importer"
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult contains the result of validating a record.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Messages returns the error strings.
func (r ValidationResult) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Error()
	}
	return out
}

// UnknownColumnsError is returned when a file has headers the entity does
// not declare.
type UnknownColumnsError struct {
	Columns []string
}

func (e *UnknownColumnsError) Error() string {
	return fmt.Sprintf("column not found in entity: %s", strings.Join(e.Columns, ", "))
}

// RecordValidator validates records against an entity's field specs.
type RecordValidator struct {
	specs []FieldSpec
}

// NewRecordValidator creates a validator for the given field specs.
func NewRecordValidator(specs []FieldSpec) *RecordValidator {
	return &RecordValidator{specs: specs}
}

// Validate checks a record and returns every problem found.
// A field absent from the record counts as empty.
func (v *RecordValidator) Validate(rec importer.ParsedRow) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, spec := range v.specs {
		raw, _ := rec.Get(spec.Name)
		raw = CleanCell(raw)

		if raw == "" {
			if spec.Required {
				result.Valid = false
				result.Errors = append(result.Errors, ValidationError{
					Field:   spec.Name,
					Message: "required field is empty",
				})
			}
			continue
		}

		if spec.Normalizer != nil {
			raw = spec.Normalizer(raw)
		}

		if err := ValidateCell(raw, spec); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   spec.Name,
				Value:   raw,
				Message: err.Error(),
			})
		}
	}

	return result
}

// ValidateFirst returns the first problem in a record, or nil.
func (v *RecordValidator) ValidateFirst(rec importer.ParsedRow) error {
	res := v.Validate(rec)
	if res.Valid {
		return nil
	}
	return res.Errors[0]
}

// ValidateCell validates a single non-empty value against a field spec.
func ValidateCell(value string, spec FieldSpec) error {
	if value == "" {
		return nil
	}

	switch spec.Type {
	case FieldNumeric:
		if !ToPgNumeric(value).Valid {
			return fmt.Errorf("invalid number format")
		}
	case FieldDate:
		if !ToPgDate(value).Valid {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD or similar)")
		}
	case FieldBool:
		if !ToPgBool(value).Valid {
			return fmt.Errorf("invalid boolean: must be yes/no, true/false, or 1/0")
		}
	case FieldEmail:
		if !ToPgEmail(value).Valid {
			return fmt.Errorf("invalid email address")
		}
	case FieldEnum:
		if len(spec.EnumValues) > 0 {
			for _, ev := range spec.EnumValues {
				if strings.EqualFold(ev, value) {
					return nil
				}
			}
			return fmt.Errorf("invalid enum: value must be one of: %s", strings.Join(spec.EnumValues, ", "))
		}
	}
	return nil
}

// NormalizeColumns renames record keys to the declared header spelling,
// matching case-insensitively, and returns an *UnknownColumnsError when any
// record carries a column the entity does not declare.
func NormalizeColumns(records []importer.ParsedRow, specs []FieldSpec) ([]importer.ParsedRow, error) {
	known := make(map[string]string, len(specs))
	for _, s := range specs {
		known[strings.ToLower(strings.TrimSpace(s.Name))] = s.Name
	}

	unknown := make(map[string]bool)
	out := make([]importer.ParsedRow, len(records))
	for i, rec := range records {
		row := importer.NewParsedRow(rec.Len())
		for _, k := range rec.Keys() {
			name, ok := known[strings.ToLower(strings.TrimSpace(k))]
			if !ok {
				unknown[k] = true
				continue
			}
			v, _ := rec.Get(k)
			row.Set(name, v)
		}
		out[i] = row
	}

	if len(unknown) == 0 {
		return out, nil
	}

	cols := make([]string, 0, len(unknown))
	for k := range unknown {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return nil, &UnknownColumnsError{Columns: cols}
}

// DefaultBuildRow converts each declared field by its type.
func DefaultBuildRow(specs []FieldSpec) BuildRowFunc {
	return func(rec importer.ParsedRow) ([]any, error) {
		values := make([]any, len(specs))
		for i, spec := range specs {
			raw, _ := rec.Get(spec.Name)
			raw = CleanCell(raw)
			if spec.Normalizer != nil && raw != "" {
				raw = spec.Normalizer(raw)
			}
			if spec.Type == FieldEnum {
				raw = canonicalEnum(raw, spec.EnumValues)
			}
			values[i] = ConvertValue(raw, spec.Type)
		}
		return values, nil
	}
}

// canonicalEnum returns the declared spelling of an enum value.
func canonicalEnum(value string, allowed []string) string {
	for _, ev := range allowed {
		if strings.EqualFold(ev, value) {
			return ev
		}
	}
	return value
}

// fieldTypeName returns a human-readable name for a field type.
func fieldTypeName(ft FieldType) string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldBool:
		return "bool"
	case FieldEmail:
		return "email"
	default:
		return "value"
	}
}
