package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-day format used in storage and backups.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day or zone. The embedded time is always
// midnight UTC so that comparisons and equality behave like day comparisons.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a yyyy-MM-dd string. Anything else is a validation error on field "date".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not a yyyy-MM-dd date", s)}
	}
	return Date{Time: t}, nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String returns the yyyy-MM-dd form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// Validate rejects the zero date.
func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	return nil
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves the date by n calendar months, clamping the day to the length of the
// target month (March 31 minus one month is the last day of February).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// AddYears moves the date by n years; February 29 becomes February 28 in non-leap years.
func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n)
}

// EndOfMonth returns the last day of d's month.
func (d Date) EndOfMonth() Date {
	return NewDate(d.Year(), d.Month(), daysIn(d.Year(), d.Time.Month()))
}

// TrailingMonthEnds returns the last day of each of the trailing n months ending with the
// month containing today, oldest first. The current month is included even though it is
// still in progress.
func TrailingMonthEnds(today Date, n int) []Date {
	if n <= 0 {
		return nil
	}
	out := make([]Date, n)
	for i := 0; i < n; i++ {
		out[i] = today.AddMonths(i - (n - 1)).EndOfMonth()
	}
	return out
}

// MarshalJSON encodes the date as "yyyy-MM-dd".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "yyyy-MM-dd" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ValidationError{Field: "date", Reason: "date must be a string"}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
