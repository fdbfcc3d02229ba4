package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-day format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form, years 0001 to 9999. Inside
// that span lexicographic order equals chronological order. Arithmetic that
// may leave it (AddDays near 9999-12-31) must be checked with Valid.
//
// It implements sql.Scanner and driver.Valuer so the same model works against
// SQLite (TEXT) and Postgres (DATE, returned by pgx as time.Time).
type Date string

// ParseDate validates s as YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date { return Date(t.Format(DateLayout)) }

// Time returns midnight UTC of d. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// AddDays shifts d by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Valid reports whether d parses as YYYY-MM-DD. Shifts past year 9999
// format with five digits and are not valid.
func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// String implements fmt.Stringer.
func (d Date) String() string { return string(d) }

// DaysBetween returns the number of days from start to end, negative when
// end precedes start. Invalid bounds yield 0.
func DaysBetween(start, end Date) int {
	if !start.Valid() || !end.Valid() {
		return 0
	}
	return int((end.Time().Unix() - start.Time().Unix()) / 86400)
}

// Range returns every day from start to end inclusive. It returns nil when
// end precedes start or either bound is not a valid day.
func Range(start, end Date) []Date {
	if !start.Valid() || !end.Valid() {
		return nil
	}
	s, e := start.Time(), end.Time()
	if e.Before(s) {
		return nil
	}
	out := make([]Date, 0, DaysBetween(start, end)+1)
	for t := s; !t.After(e); t = t.AddDate(0, 0, 1) {
		out = append(out, DateOf(t))
	}
	return out
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case string:
		*d = Date(trimDay(v))
	case []byte:
		*d = Date(trimDay(string(v)))
	default:
		return fmt.Errorf("domain.Date: cannot scan %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

// trimDay keeps the YYYY-MM-DD prefix of timestamp-like strings.
func trimDay(s string) string {
	if len(s) > len(DateLayout) {
		return s[:len(DateLayout)]
	}
	return s
}
