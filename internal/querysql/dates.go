package querysql

import (
	"strings"
	"time"
)

// Canonical text forms written for date-like columns on engines that store
// them as text.
const (
	isoDate     = time.DateOnly
	isoDateTime = time.DateTime
	isoTime     = time.TimeOnly
)

var defaultDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

var defaultTimeLayouts = []string{
	time.TimeOnly,
	"15:04",
	"15:04:05.999999999",
}

// DateRewriter is implemented by builders whose engine cannot parse
// formatted date text itself. Values of the returned columns must be
// rewritten with NormalizeDate before the builder's statements run.
type DateRewriter interface {
	DateColumns(changes []ColumnChange) []ColumnChange
}

// GoDateLayout converts a strptime format to a time.Parse layout. Month,
// day and hour directives accept values with or without a leading zero.
func GoDateLayout(format string) string {
	r := strings.NewReplacer(
		"%Y", "2006",
		"%y", "06",
		"%m", "1",
		"%d", "2",
		"%H", "15",
		"%I", "3",
		"%M", "04",
		"%S", "05",
		"%p", "PM",
		"%b", "Jan",
		"%B", "January",
		"%%", "%",
	)
	return r.Replace(format)
}

// NormalizeDate parses value for a date, datetime or time column and
// returns its canonical ISO text. Values already in ISO form are accepted
// whatever the field's format. ok is false when value does not parse.
func NormalizeDate(ch ColumnChange, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	var layouts []string
	if hasDateFormat(ch) {
		layouts = append(layouts, GoDateLayout(ch.Format))
	}
	if ch.DictType == "time" {
		layouts = append(layouts, defaultTimeLayouts...)
	} else {
		layouts = append(layouts, defaultDateLayouts...)
	}

	out := isoDate
	switch ch.DictType {
	case "datetime":
		out = isoDateTime
	case "time":
		out = isoTime
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(out), true
		}
	}
	return "", false
}

// DateColumns returns the date, datetime and time changes. SQLite hands
// DATE and DATETIME columns back through the driver as time values, and
// text it cannot parse comes back as the zero time.
func (b *SQLiteAlterBuilder) DateColumns(changes []ColumnChange) []ColumnChange {
	var out []ColumnChange
	for _, ch := range changes {
		switch ch.DictType {
		case "date", "datetime", "time":
			out = append(out, ch)
		}
	}
	return out
}
