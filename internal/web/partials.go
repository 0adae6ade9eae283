package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/hrm/internal/core"
	"github.com/JonMunkholm/hrm/internal/logging"
)

// HTMX fragments. Each writes a single root element so it can be swapped
// into the page as is.

// maxListedFailures bounds the failed rows shown in an import result.
const maxListedFailures = 25

func renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		logging.FromContext(r.Context()).Error("render partial", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// htmlWriter accumulates escaped markup and the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) tag(name, class, content string) {
	h.raw("<" + name)
	if class != "" {
		h.raw(` class="` + templ.EscapeString(class) + `"`)
	}
	h.raw(">")
	h.text(content)
	h.raw("</" + name + ">")
}

func errorAlert(msg core.UserMessage, notes []string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert alert-error" role="alert">`)
		h.tag("p", "alert-message", msg.Message)
		if msg.Action != "" {
			h.tag("p", "alert-action", msg.Action)
		}
		if len(notes) > 0 {
			h.raw(`<ul class="alert-notes">`)
			for _, n := range notes {
				h.tag("li", "", n)
			}
			h.raw(`</ul>`)
		}
		h.tag("span", "alert-code", "Reference: "+msg.Code)
		h.raw(`</div>`)
		return h.err
	})
}

func importResult(sum *core.ImportSummary) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		class := "import-result"
		if sum.Skipped > 0 {
			class += " has-failures"
		}
		h.raw(`<div class="` + class + `" data-run-id="` + templ.EscapeString(sum.RunID) + `">`)
		h.tag("h3", "", fmt.Sprintf("Imported %d of %d rows into %s", sum.Inserted, sum.TotalRows, sum.Entity))

		h.raw(`<dl class="import-stats">`)
		stat := func(label, value string) {
			h.tag("dt", "", label)
			h.tag("dd", "", value)
		}
		stat("File", sum.FileName)
		stat("Format", sum.Format)
		stat("Skipped", fmt.Sprint(sum.Skipped))
		stat("Permissions granted", fmt.Sprint(sum.PermissionsGranted))
		if sum.PermissionsSkipped > 0 {
			stat("Permissions skipped", fmt.Sprint(sum.PermissionsSkipped))
		}
		stat("Duration", sum.Duration.Round(time.Millisecond).String())
		h.raw(`</dl>`)

		if len(sum.FailedRows) > 0 {
			failedRowsTable(h, sum.FailedRows, maxListedFailures)
		}
		h.raw(`</div>`)
		return h.err
	})
}

func previewResult(p *core.PreviewResult) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="preview-result">`)
		h.tag("h3", "", fmt.Sprintf("%d rows: %d valid, %d with errors", p.Summary.TotalRows, p.Summary.ValidRows, p.Summary.ErrorRows))
		if p.Summary.ExistingRows > 0 {
			h.tag("p", "preview-existing", fmt.Sprintf("%d rows match existing records", p.Summary.ExistingRows))
		}
		if p.Summary.DuplicateInFile > 0 {
			h.tag("p", "preview-duplicates", fmt.Sprintf("%d rows repeat a key within the file", p.Summary.DuplicateInFile))
		}
		if p.Summary.Permissions > 0 {
			h.tag("p", "preview-permissions", fmt.Sprintf("%d permission grants", p.Summary.Permissions))
		}

		if len(p.Samples) > 0 {
			h.raw(`<table class="preview-samples"><thead><tr>`)
			h.tag("th", "", "Row")
			for _, col := range p.Headers {
				h.tag("th", "", col)
			}
			h.raw(`</tr></thead><tbody>`)
			for _, s := range p.Samples {
				h.raw(`<tr>`)
				h.tag("td", "", fmt.Sprint(s.Row))
				for _, col := range p.Headers {
					h.tag("td", "", s.Values[col])
				}
				h.raw(`</tr>`)
			}
			h.raw(`</tbody></table>`)
		}

		if len(p.Errors) > 0 {
			failedRowsTable(h, p.Errors, len(p.Errors))
		}
		h.raw(`</div>`)
		return h.err
	})
}

func runHistory(runs []core.ImportRun) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if len(runs) == 0 {
			h.tag("p", "history-empty", "No imports yet")
			return h.err
		}

		h.raw(`<table class="import-history"><thead><tr>`)
		for _, col := range []string{"Started", "File", "Phase", "Rows", "Inserted", "Skipped", "Grants"} {
			h.tag("th", "", col)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, run := range runs {
			h.raw(`<tr class="phase-` + templ.EscapeString(phaseClass(run.Phase)) + `">`)
			h.tag("td", "", run.StartedAt.Format("2006-01-02 15:04"))
			h.tag("td", "", run.FileName)
			h.tag("td", "", run.Phase)
			h.tag("td", "", fmt.Sprint(run.TotalRows))
			h.tag("td", "", fmt.Sprint(run.Inserted))
			h.tag("td", "", fmt.Sprint(run.Skipped))
			h.tag("td", "", fmt.Sprint(run.PermissionsGranted))
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
		return h.err
	})
}

func failedRowsTable(h *htmlWriter, rows []core.FailedRow, limit int) {
	h.raw(`<table class="failed-rows"><thead><tr>`)
	h.tag("th", "", "Row")
	h.tag("th", "", "Key")
	h.tag("th", "", "Reason")
	h.raw(`</tr></thead><tbody>`)
	for i, fr := range rows {
		if i == limit {
			break
		}
		h.raw(`<tr>`)
		h.tag("td", "", fmt.Sprint(fr.Row))
		h.tag("td", "", fr.Key)
		h.tag("td", "", fr.Reason)
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table>`)
	if len(rows) > limit {
		h.tag("p", "failed-rows-more", fmt.Sprintf("and %d more", len(rows)-limit))
	}
}

// phaseClass reduces "failed:decoding" to "failed".
func phaseClass(phase string) string {
	base, _, _ := strings.Cut(phase, ":")
	return base
}
