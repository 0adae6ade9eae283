package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/hrm/internal/importer"
)

// PreviewSummary contains the summary counts for an upload preview.
type PreviewSummary struct {
	TotalRows       int `json:"totalRows"`
	ValidRows       int `json:"validRows"`
	ErrorRows       int `json:"errorRows"`
	ExistingRows    int `json:"existingRows"`
	DuplicateInFile int `json:"duplicateInFile"`
	Permissions     int `json:"permissions"`
}

// RowPreview represents a single row for preview display.
type RowPreview struct {
	Row    int               `json:"row"`
	Key    string            `json:"key"`
	Values map[string]string `json:"values"`
}

// DuplicatePreview lists rows sharing one record key.
type DuplicatePreview struct {
	Key  string `json:"key"`
	Rows []int  `json:"rows"`
}

// PreviewResult is the outcome of a read-only import analysis.
type PreviewResult struct {
	Entity           string                            `json:"entity"`
	Format           string                            `json:"format"`
	Headers          []string                          `json:"headers"`
	Summary          PreviewSummary                    `json:"summary"`
	Samples          []RowPreview                      `json:"samples"`
	Errors           []FailedRow                       `json:"errors"`
	Duplicates       []DuplicatePreview                `json:"duplicates"`
	ExistingKeys     []string                          `json:"existingKeys,omitempty"`
	Permissions      []importer.ObjectPermissionImport `json:"permissions,omitempty"`
	ProcessingTimeMs int64                             `json:"processingTimeMs"`
}

// Sample limits
const (
	maxPreviewSamples    = 10
	maxPreviewErrors     = 20
	maxPreviewDuplicates = 10
	maxPreviewGrants     = 20
)

// PreviewFile decodes and validates an upload without writing anything.
// Decoding errors are returned exactly as ImportFile would return them.
func (s *Service) PreviewFile(ctx context.Context, entityKey string, file UploadedFile) (*PreviewResult, error) {
	start := s.now()

	def, err := s.entity(entityKey)
	if err != nil {
		return nil, err
	}

	res, err := s.decode(ctx, def, file)
	if err != nil {
		return nil, err
	}

	ready, failed := prepare(def, res.Data)

	out := &PreviewResult{
		Entity:  entityKey,
		Format:  importer.FormatForMIME(file.ContentType).String(),
		Headers: def.Headers(),
		Summary: PreviewSummary{
			TotalRows:   len(res.Data),
			ValidRows:   len(ready),
			ErrorRows:   len(failed),
			Permissions: len(res.Permissions),
		},
		Samples:    make([]RowPreview, 0),
		Errors:     make([]FailedRow, 0),
		Duplicates: make([]DuplicatePreview, 0),
	}

	for i := 0; i < len(failed) && i < maxPreviewErrors; i++ {
		out.Errors = append(out.Errors, failed[i])
	}
	for i := 0; i < len(ready) && i < maxPreviewSamples; i++ {
		out.Samples = append(out.Samples, RowPreview{Row: ready[i].row, Key: ready[i].key, Values: ready[i].data})
	}
	if len(res.Permissions) > maxPreviewGrants {
		out.Permissions = res.Permissions[:maxPreviewGrants]
	} else {
		out.Permissions = res.Permissions
	}

	seen := make(map[string][]int)
	var keys []string
	for _, p := range ready {
		if p.uniq == "" {
			continue
		}
		if _, ok := seen[p.uniq]; !ok {
			keys = append(keys, p.uniq)
		}
		seen[p.uniq] = append(seen[p.uniq], p.row)
	}
	for _, k := range keys {
		rows := seen[k]
		if len(rows) < 2 {
			continue
		}
		out.Summary.DuplicateInFile += len(rows) - 1
		if len(out.Duplicates) < maxPreviewDuplicates {
			out.Duplicates = append(out.Duplicates, DuplicatePreview{Key: k, Rows: rows})
		}
	}

	// A failed lookup only loses the "existing" hint. Composite keys are
	// not looked up.
	if len(def.Info.UniqueKey) != 1 {
		keys = nil
	}
	if existing, err := s.existingKeys(ctx, def, keys); err == nil {
		out.ExistingKeys = existing
		out.Summary.ExistingRows = len(existing)
	}

	out.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	return out, nil
}

// existingKeys returns which of keys are already stored for the entity.
// The entity must have a single-column unique key.
func (s *Service) existingKeys(ctx context.Context, def EntityDefinition, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	col := quoteIdentifier(resolveDBColumn(def.Info.UniqueKey[0], def.FieldSpecs))
	query := fmt.Sprintf("SELECT %s::text FROM %s WHERE %s::text = ANY($1)", col, quoteIdentifier(def.Info.Table), col)

	rows, err := s.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("lookup existing keys: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		found = append(found, strings.TrimSpace(k))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}
