package timeseries

import (
	"fmt"
	"strings"
	"time"
)

var strftimeLayouts = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'f': "000000",
	'p': "PM",
	'b': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// GoLayout translates a strftime-style format such as "%Y-%m-%d %H:%M:%S"
// into a time.Parse layout.
func GoLayout(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(format) {
			return "", fmt.Errorf("date format %q ends with a lone %%", format)
		}
		i++
		layout, ok := strftimeLayouts[format[i]]
		if !ok {
			return "", fmt.Errorf("date format %q uses unsupported directive %%%c", format, format[i])
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}

// isoLayouts are the accepted subset_time forms, most detailed first, each
// with the span a value in that form covers.
var isoLayouts = []struct {
	layout string
	span   func(time.Time) time.Time
}{
	{"2006-01-02 15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
	{"2006-01-02T15:04:05", func(t time.Time) time.Time { return t.Add(time.Second) }},
	{"2006-01-02 15:04", func(t time.Time) time.Time { return t.Add(time.Minute) }},
	{"2006-01-02 15", func(t time.Time) time.Time { return t.Add(time.Hour) }},
	{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
	{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
}

// parseISO parses a possibly partial ISO datetime and returns the start of
// the period it names and the (exclusive) end of that period.
func parseISO(s string) (start, end time.Time, err error) {
	for _, l := range isoLayouts {
		if t, perr := time.Parse(l.layout, s); perr == nil {
			return t, l.span(t), nil
		}
	}
	return time.Time{}, time.Time{}, fmt.Errorf("cannot parse %q as a datetime up to the detail of `%%Y-%%m-%%d %%H:%%M:%%S`", s)
}
