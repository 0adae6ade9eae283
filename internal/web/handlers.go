package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/hrm/internal/core"
	"github.com/JonMunkholm/hrm/internal/importer"
	"github.com/JonMunkholm/hrm/internal/logging"
)

// EntitiesResponse lists importable entities and the optional permission
// columns spreadsheets and archives may carry.
type EntitiesResponse struct {
	Entities          []core.EntityInfo `json:"entities"`
	PermissionColumns []string          `json:"permissionColumns"`
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"imports": s.service.Limiter().Status(),
	})
}

// handleListEntities returns every registered entity with its headers.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	cols := importer.DefaultPermissionColumns()
	writeJSON(w, r, EntitiesResponse{
		Entities:          s.service.ListEntities(),
		PermissionColumns: []string{cols.Subject, cols.Codes},
	})
}

// handleDownloadTemplate returns an empty upload file for an entity.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	format, err := core.ParseTemplateFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, badRequest(err.Error()))
		return
	}

	tmpl, err := s.service.HeaderTemplate(entity, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", tmpl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, tmpl.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(tmpl.Data)))
	_, _ = w.Write(tmpl.Data)
}

// handleImport runs one upload end to end.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	file, cleanup, err := s.receiveUpload(w, r)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	logging.WithFields(ctx, "entity", entity, "file", file.Name, "content_type", file.ContentType).
		Info("import received", "bytes", file.Size)

	summary, err := s.service.ImportFile(ctx, entity, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderHTML(w, r, http.StatusOK, importResult(summary))
		return
	}
	writeJSON(w, r, summary)
}

// handlePreview decodes and validates an upload without writing it.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")

	file, cleanup, err := s.receiveUpload(w, r)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.PreviewFile(r.Context(), entity, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderHTML(w, r, http.StatusOK, previewResult(result))
		return
	}
	writeJSON(w, r, result)
}

// handleImportHistory lists recent runs for an entity, newest first.
func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)

	runs, err := s.service.ListImportRuns(r.Context(), entity, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		renderHTML(w, r, http.StatusOK, runHistory(runs))
		return
	}
	writeJSON(w, r, runs)
}

// handleGetRun returns one run including its failed rows.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetImportRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, run)
}

// handleRollback deletes the rows and grants a completed run wrote.
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := s.service.RollbackImportRun(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import rolled back",
		"run_id", id,
		"entity", result.Entity,
		"rows", result.RowsDeleted,
		"permissions", result.PermissionsDeleted,
	)
	writeJSON(w, r, result)
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
