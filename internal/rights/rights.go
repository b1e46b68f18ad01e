package rights

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayFirst = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// Layouts read in the evaluator's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Window is a usage-rights window. Empty strings mean the date is absent.
type Window struct {
	Start string `yaml:"start" json:"start,omitempty"`
	End   string `yaml:"end" json:"end,omitempty"`
}

// Unrestricted reports whether neither date is given.
func (w Window) Unrestricted() bool {
	return strings.TrimSpace(w.Start) == "" && strings.TrimSpace(w.End) == ""
}

// Evaluator evaluates rights windows.
type Evaluator struct {
	// Location is used for date-only and zone-less values.
	// Default: time.Local
	Location *time.Location

	// Now returns the current instant.
	// Default: time.Now
	Now func() time.Time

	// Logger receives debug output for unparseable dates.
	// Default: slog.Default()
	Logger *slog.Logger
}

// IsActive reports whether the window [start, end] contains now, using
// time.Local for zone-less dates.
func IsActive(start, end string, now time.Time) bool {
	var e Evaluator
	return e.ActiveAt(Window{Start: start, End: end}, now)
}

// Active reports whether w is active at e.Now().
func (e *Evaluator) Active(w Window) bool {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return e.ActiveAt(w, now())
}

// ActiveAt reports whether w is active at now. Presence is judged on the raw
// strings: only a window whose start and end are both blank is unrestricted.
// A non-blank value that does not parse makes the window inactive, so
// ("garbage", "garbage") is never active.
func (e *Evaluator) ActiveAt(w Window, now time.Time) bool {
	if w.Unrestricted() {
		return true
	}

	start, okStart := ParseDate(w.Start, e.location())
	end, okEnd := ParseDate(w.End, e.location())

	if !okStart && strings.TrimSpace(w.Start) != "" {
		e.logger().Debug("rights: unparseable start date", "value", w.Start)
	}
	if !okEnd && strings.TrimSpace(w.End) != "" {
		e.logger().Debug("rights: unparseable end date", "value", w.End)
	}

	if !okStart || !okEnd {
		return false
	}

	return !now.Before(start) && !now.After(end)
}

func (e *Evaluator) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// ParseDate parses s as DD/MM/YYYY first, then as ISO-8601. Zone-less values
// are interpreted in loc. ok is false when s is blank or matches neither form.
func ParseDate(s string, loc *time.Location) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	if t, ok := parseDayFirst(s, loc); ok {
		return t, true
	}
	return parseISO(s, loc)
}

// parseDayFirst accepts DD/MM/YYYY only when it names a real calendar day.
func parseDayFirst(s string, loc *time.Location) (time.Time, bool) {
	m := dayFirst.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	// time.Date normalises 31/02 into March; reject anything that moved.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

func parseISO(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
