package tasks

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// dateLayouts are the formats actually observed in the legacy date
// column, tried in order. The column is free text, so anything goes.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"2006_01_02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseMessageDate resolves a legacy date string to a concrete time.
//
// The fallback chain is: known layouts, then the auxiliary Unix
// timestamp, then the current time. Falling through to the current time
// is logged because it means the source row is effectively undated.
func ParseMessageDate(raw string, ts int64, logger *log.Logger) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t.UTC()
			}
		}
	}

	if ts > 0 {
		return time.Unix(ts, 0).UTC()
	}

	logger.Warn("unparseable date, using current time", "date", raw)
	return time.Now().UTC()
}
