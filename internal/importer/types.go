package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultZipEntry is the CSV entry read from ZIP uploads when no name is given.
const DefaultZipEntry = "data.csv"

// Request describes one import. It is created per upload and discarded
// once the import completes.
type Request struct {
	// Path is the uploaded temporary file. It is read, never deleted.
	Path string

	// Headers is the entity's declared column list. Order is significant
	// and names must be unique. The first header is the record key used
	// as the target of extracted permissions.
	Headers []string

	// Type is the declared MIME type of the upload.
	Type string

	// ZipName names the CSV entry inside a ZIP upload (default data.csv).
	ZipName string

	// Options controls row parsing.
	Options ParseOptions

	// Permissions names the reserved permission columns for formats that
	// embed them. Zero value means DefaultPermissionColumns.
	Permissions PermissionColumns
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	if len(r.Headers) == 0 {
		return fmt.Errorf("%w: at least one header is required", ErrInvalidRequest)
	}
	seen := make(map[string]bool, len(r.Headers))
	for _, h := range r.Headers {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("%w: header names must not be blank", ErrInvalidRequest)
		}
		if seen[h] {
			return fmt.Errorf("%w: duplicate header %q", ErrInvalidRequest, h)
		}
		seen[h] = true
	}
	return nil
}

func (r Request) zipEntry() string {
	if r.ZipName == "" {
		return DefaultZipEntry
	}
	return r.ZipName
}

// ParseOptions controls how rows are built.
type ParseOptions struct {
	// ColumnLength, when positive, is the exact number of columns the
	// header row must have. Reserved columns are not counted.
	ColumnLength int

	// KeepEmpty disables the empty-value replacement. By default a field
	// whose trimmed value is empty is replaced by EmptyValue.
	KeepEmpty bool

	// EmptyValue is the placeholder for empty fields. Nil means the field
	// is left out of the record entirely.
	EmptyValue *string

	// Reserved lists columns that may appear in the header without being
	// part of the declared schema (permission columns).
	Reserved []string
}

// ObjectPermissionImport is a row-scoped access grant extracted alongside
// a data record. Subject is a user or group identifier, Target is the
// record key the grant applies to.
type ObjectPermissionImport struct {
	Subject string   `json:"subject"`
	Target  string   `json:"target"`
	Codes   []string `json:"codes"`
}

// Result is the outcome of a successful import. Permissions is nil for
// formats that cannot carry permission columns.
type Result[T any] struct {
	Data        []T                      `json:"data"`
	Permissions []ObjectPermissionImport `json:"permissions,omitempty"`
}

// ParsedRow is one decoded data row: an ordered header to value mapping.
// A header that is absent from the row is treated as undefined.
type ParsedRow struct {
	keys   []string
	values map[string]string
}

// NewParsedRow returns an empty row with room for n fields.
func NewParsedRow(n int) ParsedRow {
	return ParsedRow{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Set assigns a value, keeping the first insertion position of the key.
func (r *ParsedRow) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key and whether it is present.
func (r ParsedRow) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Delete removes key from the row.
func (r *ParsedRow) Delete(key string) {
	if _, ok := r.values[key]; !ok {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (r ParsedRow) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields present.
func (r ParsedRow) Len() int {
	return len(r.keys)
}

// Map returns a copy of the row as a plain map.
func (r ParsedRow) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the row.
func (r ParsedRow) Clone() ParsedRow {
	c := NewParsedRow(len(r.keys))
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// MarshalJSON writes the row as a JSON object in key order.
func (r ParsedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat JSON object of strings, preserving key order.
func (r *ParsedRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("parsed row: expected object, got %v", tok)
	}

	*r = NewParsedRow(0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("parsed row: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("parsed row: field %q: %w", key, err)
		}
		r.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
