package importer

// reader.go cleans raw upload bytes before they are split into lines.
//
// Spreadsheet exports from Windows tools often start with a UTF-8 BOM and
// may contain bytes from legacy code pages. The BOM would otherwise end up
// glued to the first header name, and invalid UTF-8 would be carried into
// the records and later rejected by the database.

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// replacementChar is written in place of every invalid UTF-8 sequence.
const replacementChar = "\uFFFD"

// bomSkippingReader drops a leading UTF-8 BOM from the wrapped reader.
type bomSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The BOM check happens on the first call only.
func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if prefix, err := r.br.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
			if _, err := r.br.Discard(len(byteOrderMark)); err != nil {
				return 0, err
			}
		}
	}
	return r.br.Read(p)
}

// readText reads the whole upload as sanitized UTF-8 text.
// Imports are materialized before parsing, so there is no streaming here.
func readText(r io.Reader) (string, error) {
	data, err := io.ReadAll(newBOMSkippingReader(r))
	if err != nil {
		return "", err
	}
	return sanitizeUTF8(data), nil
}

// sanitizeUTF8 replaces each invalid byte with U+FFFD.
func sanitizeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	var b strings.Builder
	b.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			b.WriteString(replacementChar)
		} else {
			b.Write(data[:size])
		}
		data = data[size:]
	}
	return b.String()
}
