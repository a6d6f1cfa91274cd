package quarry

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// timestampLayout is the canonical textual form for timestamps.
// The trailing 9s trim zero fractions, dropping the dot entirely when
// the timestamp falls on a whole second.
const timestampLayout = "2006-01-02T15:04:05.999999999"

// ErrInvalidTimestamp indicates a string could not be read as a timestamp or date.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Date is a calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the date on which t falls, in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner for TEXT, BLOB and DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	}
	return fmt.Errorf("%w: cannot scan %T into Date", ErrTypeMismatch, src)
}

// FormatTimestamp renders t in UTC as YYYY-MM-DDTHH:MM:SS with an optional
// fractional second.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp reads an ISO-8601-like timestamp.
//
// RFC 3339 input (with a zone) is honored and converted to UTC. Anything
// else is read leniently: the string is split on runs of non-digits and the
// first seven components are taken as year, month, day, hour, minute,
// second and fraction of a second. At least year, month and day are
// required. The result is always UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return parseComponents(s)
}

// ParseDate reads the first three numeric components of s as a date.
// Any time of day or zone in s is ignored. "0000-00-00" is the zero Date.
func ParseDate(s string) (Date, error) {
	if s == (Date{}).String() {
		return Date{}, nil
	}
	t, err := parseComponents(s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func parseComponents(s string) (time.Time, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	if len(parts) > 7 {
		parts = parts[:7]
	}

	var comps [6]int
	for i := 0; i < len(parts) && i < 6; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		comps[i] = n
	}

	nanos := 0
	if len(parts) == 7 {
		frac := parts[6]
		if len(frac) > 9 {
			frac = frac[:9]
		}
		n, err := strconv.Atoi(frac)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		for i := len(frac); i < 9; i++ {
			n *= 10
		}
		nanos = n
	}

	year, month, day := comps[0], comps[1], comps[2]
	hour, minute, sec := comps[3], comps[4], comps[5]
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, s)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, nanos, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, s)
	}
	return t, nil
}
