// Package calendar provides a date-only value type and day-granularity arithmetic.
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the ISO form used for date keys.
const Layout = "2006-01-02"

// ErrInvalidDate is returned when a raw value cannot be parsed into a Date.
var ErrInvalidDate = errors.New("invalid calendar date")

// Date is a calendar day without time-of-day or zone. The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a Date, normalising overflowing components the way time.Date does.
func New(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Parse reads an ISO "YYYY-MM-DD" string.
func Parse(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}
	t, err := time.ParseInLocation(Layout, raw, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return FromTime(t), nil
}

// MustParse is Parse for fixed literals; it panics on malformed input.
func MustParse(raw string) Date {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime takes the wall-clock date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in loc. A nil loc means the process-local zone.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns UTC midnight of d, the form used for database parameters.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return DayOffset(d, other) < 0 }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return DayOffset(d, other) > 0 }

// Equal reports whether both values name the same day.
func (d Date) Equal(other Date) bool { return d == other }

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date { return Date{Year: d.Year, Month: d.Month, Day: 1} }

// MonthEnd returns the last day of d's month.
func (d Date) MonthEnd() Date { return New(d.Year, d.Month+1, 0) }

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

const secondsPerDay = 24 * 60 * 60

// DayOffset returns the signed number of whole days from b to a.
// Both dates are anchored at UTC midnight so zone offsets and DST never leak in.
// It works on Unix seconds rather than time.Duration, which saturates at about 292 years.
func DayOffset(a, b Date) int {
	return int((a.Time().Unix() - b.Time().Unix()) / secondsPerDay)
}

// Range returns every date from from to to inclusive, oldest first.
// An inverted range yields nil.
func Range(from, to Date) []Date {
	n := DayOffset(to, from)
	if n < 0 {
		return nil
	}
	out := make([]Date, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, from.AddDays(i))
	}
	return out
}

// MarshalJSON encodes the date as an ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO string. An empty string leaves the zero Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	if raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan implements sql.Scanner for DATE, TIMESTAMP and TEXT columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidDate, src)
	}
}

func (d *Date) scanString(v string) error {
	if len(v) > len(Layout) {
		v = v[:len(Layout)]
	}
	parsed, err := Parse(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
