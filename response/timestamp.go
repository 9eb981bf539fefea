package response

import (
	"regexp"
	"time"
)

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
}

// FormatTimestamp renders ISO-like timestamps as "DD/MM/YYYY, HH:MM:SS" on a
// 24-hour clock. The wall time of the value's own offset is kept.
func FormatTimestamp(s string) (string, bool) {
	if !timestampPattern.MatchString(s) {
		return "", false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006, 15:04:05"), true
		}
	}
	return "", false
}
