package store

import (
	"fmt"
	"strings"
	"time"
)

// timestamp scans TIMESTAMPTZ values from PostgreSQL and the text form stored
// in SQLite.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(value string) error {
	value = strings.TrimSpace(value)
	// time.Time.String appends a monotonic reading and zone name.
	if i := strings.Index(value, " m="); i >= 0 {
		value = value[:i]
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", value); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	return fmt.Errorf("parse timestamp %q", value)
}
