package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone. Dates of birth are
// compared with Date so a timestamp that drifted across midnight in another
// zone never produces a false mismatch.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "2006-01-02" or a timestamp whose leading component is a
// calendar date (e.g. "1984-03-07T00:00:00-05:00"). Only the literal date part
// is used; the zone suffix is ignored.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, s[:len(dateLayout)]); err == nil {
			rest := s[len(dateLayout):]
			if rest == "" || rest[0] == 'T' || rest[0] == ' ' {
				return DateOf(t), nil
			}
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// AsDate accepts the representations a date field may arrive in: a Date, a
// calendar-date string, or a time.Time. ok is false for empty or unparseable
// input.
func AsDate(v any) (d Date, ok bool) {
	switch x := v.(type) {
	case Date:
		return x, !x.IsZero()
	case *Date:
		if x == nil {
			return Date{}, false
		}
		return *x, !x.IsZero()
	case time.Time:
		if x.IsZero() {
			return Date{}, false
		}
		return DateOf(x), true
	case *time.Time:
		if x == nil || x.IsZero() {
			return Date{}, false
		}
		return DateOf(*x), true
	case string:
		d, err := ParseDate(x)
		return d, err == nil
	}
	return Date{}, false
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Equal compares two dates by calendar day.
func (d Date) Equal(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(dateLayout)
}

// MarshalJSON encodes d as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "" or any string ParseDate understands.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
