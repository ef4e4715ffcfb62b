package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Month is a calendar month. It is always held as 00:00 UTC on the first day
// of the month, so two Months for the same calendar month compare equal.
type Month struct {
	t time.Time
}

// NewMonth builds a Month from a year and a month number.
func NewMonth(year int, m time.Month) Month {
	return Month{t: time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)}
}

// MonthOf truncates t to the first day of its month, in UTC.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return NewMonth(u.Year(), u.Month())
}

func (m Month) Time() time.Time { return m.t }
func (m Month) Year() int { return m.t.Year() }
func (m Month) Month() time.Month { return m.t.Month() }
func (m Month) IsZero() bool { return m.t.IsZero() }
func (m Month) Before(o Month) bool { return m.t.Before(o.t) }
func (m Month) Equal(o Month) bool { return m.t.Equal(o.t) }
func (m Month) AddMonths(n int) Month { return Month{t: m.t.AddDate(0, n, 0)} }

// String renders the month as YYYY-MM.
func (m Month) String() string {
	if m.t.IsZero() {
		return ""
	}
	return m.t.Format("2006-01")
}

// Date renders the canonical storage form, YYYY-MM-01.
func (m Month) Date() string {
	if m.t.IsZero() {
		return ""
	}
	return m.t.Format("2006-01-02")
}

func (m Month) MarshalJSON() ([]byte, error) {
	if m.t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.Date())
}

func (m *Month) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Month{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseQueryMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Month) MarshalText() ([]byte, error) { return []byte(m.Date()), nil }

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseQueryMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores the month as a DATE.
func (m Month) Value() (driver.Value, error) {
	if m.t.IsZero() {
		return nil, nil
	}
	return m.t, nil
}

// Scan accepts time.Time from pgx and string forms from other drivers.
func (m *Month) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Month{}
	case time.Time:
		*m = MonthOf(v)
	case string:
		return m.UnmarshalText([]byte(v))
	case []byte:
		return m.UnmarshalText(v)
	default:
		return fmt.Errorf("model.Month: cannot scan %T", src)
	}
	return nil
}

// MonthsBetween lists every month in [start, end).
func MonthsBetween(start, end Month) []Month {
	var out []Month
	for cur := start; cur.Before(end); cur = cur.AddMonths(1) {
		out = append(out, cur)
	}
	return out
}

var (
	// YYYY-M, YYYY/M, optionally followed by a day.
	yearFirstRe = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})(?:[-/](\d{1,2}))?$`)
	// M/YYYY
	monthYearRe = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	// D/M/YYYY
	dayMonthYearRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

	queryMonthRe = regexp.MustCompile(`^(\d{4})-(\d{2})(?:-(\d{2}))?$`)
)

// ParseMonthText recognizes the month shapes found in uploaded price sheets:
// YYYY-M, YYYY/M, YYYY-M-D, M/YYYY and D/M/YYYY. The day, when present, is
// ignored. A month number outside 1..12 is rejected.
func ParseMonthText(s string) (Month, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Month{}, false
	}
	if g := yearFirstRe.FindStringSubmatch(s); g != nil {
		return monthFromParts(g[1], g[2])
	}
	if g := monthYearRe.FindStringSubmatch(s); g != nil {
		return monthFromParts(g[2], g[1])
	}
	if g := dayMonthYearRe.FindStringSubmatch(s); g != nil {
		return monthFromParts(g[3], g[2])
	}
	return Month{}, false
}

// ParseQueryMonth accepts the stricter API shapes YYYY-MM and YYYY-MM-DD.
func ParseQueryMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	g := queryMonthRe.FindStringSubmatch(s)
	if g == nil {
		return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM or YYYY-MM-DD", s)
	}
	m, ok := monthFromParts(g[1], g[2])
	if !ok {
		return Month{}, fmt.Errorf("invalid month %q: month must be 01..12", s)
	}
	if g[3] != "" {
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return Month{}, fmt.Errorf("invalid date %q", s)
		}
	}
	return m, nil
}

func monthFromParts(year, month string) (Month, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Month{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return Month{}, false
	}
	return NewMonth(y, time.Month(mo)), true
}
