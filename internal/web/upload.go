package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/JonMunkholm/hrm/internal/core"
	"github.com/JonMunkholm/hrm/internal/logging"
)

// multipartMemory is the part of a multipart form kept in memory; the
// rest spills to disk.
const multipartMemory = 8 << 20

// genericTypes are client-declared MIME types that say nothing about the
// content. Browsers on Windows send application/vnd.ms-excel for .csv.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"application/vnd.ms-excel": true,
	"binary/octet-stream":      true,
}

// receiveUpload spools the "file" form field to a temporary file. The
// returned cleanup removes it and must always be called.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (core.UploadedFile, func(), error) {
	noop := func() {}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return core.UploadedFile{}, noop, fmt.Errorf("file too large: %w", err)
		}
		return core.UploadedFile{}, noop, badRequest("could not read multipart form")
	}
	cleanupForm := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		cleanupForm()
		return core.UploadedFile{}, noop, errNoFile
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.cfg.Import.TempDir, "hrm-upload-*"+safeExt(header.Filename))
	if err != nil {
		cleanupForm()
		return core.UploadedFile{}, noop, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = os.Remove(tmp.Name())
		cleanupForm()
	}

	size, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return core.UploadedFile{}, noop, fmt.Errorf("spool upload: %w", err)
	}

	file := core.UploadedFile{
		Path:        tmp.Name(),
		Name:        header.Filename,
		ContentType: s.contentType(r, header, tmp.Name()),
		Size:        size,
		ZipName:     strings.TrimSpace(r.FormValue("zipName")),
	}
	return file, cleanup, nil
}

// contentType returns the declared MIME type, or the sniffed one when the
// client sent a generic type.
func (s *Server) contentType(r *http.Request, header *multipart.FileHeader, path string) string {
	declared := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if base, _, ok := strings.Cut(declared, ";"); ok {
		declared = strings.TrimSpace(base)
	}
	if !genericTypes[declared] {
		return declared
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		logging.FromContext(r.Context()).Warn("mime sniffing failed", "file", header.Filename, "error", err)
		return declared
	}

	sniffed, _, _ := strings.Cut(mt.String(), ";")
	// Sniffing cannot tell CSV from arbitrary text; trust the extension.
	if mt.Is("text/plain") && strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		sniffed = "text/csv"
	}
	logging.FromContext(r.Context()).Debug("mime sniffed", "file", header.Filename, "declared", declared, "sniffed", sniffed)
	return sniffed
}

// safeExt keeps a short alphanumeric extension for the temp file name.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
