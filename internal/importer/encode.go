package importer

import (
	"strings"
)

// EncodeCSV renders records in the layout ParseCSV reads: every field
// wrapped in double quotes, comma separated, CRLF line endings, header
// first. Missing fields are written as empty strings.
//
// Values must not contain commas, quotes or line breaks; the format has
// no escaping.
func EncodeCSV(headers []string, records []map[string]string) string {
	var b strings.Builder
	writeLine(&b, headers)
	for _, rec := range records {
		fields := make([]string, len(headers))
		for i, h := range headers {
			fields[i] = rec[h]
		}
		writeLine(&b, fields)
	}
	return b.String()
}

func writeLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(f)
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}
