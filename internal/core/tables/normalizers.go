package tables

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// NormalizeCode upper-cases a record code and joins inner whitespace with '-'.
// "emp 001" -> "EMP-001"
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), "-"))
}

// NormalizeEnum lower-cases an enum value and maps spaces and dashes to
// underscores. "On Hold" -> "on_hold"
func NormalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// NormalizePhone keeps digits and a leading '+'.
// "(555) 123-4567" -> "5551234567"
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)

	var b strings.Builder
	for i, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return s
	}
	return b.String()
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04pm",
	"3:04 pm",
	"3pm",
	"3 pm",
}

// NormalizeClock converts a time of day to 24-hour "HH:MM".
// Unrecognized input is returned unchanged.
// "9:05 AM" -> "09:05"
func NormalizeClock(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, lower); err == nil {
			return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
		}
	}
	return s
}
