package domain

import (
	"fmt"
	"time"
)

// Date is a calendar date in YYYY-MM-DD form. It carries no time of day or
// zone, so it sorts and compares correctly as a string.
type Date string

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) Date {
	return Date(t.Format(time.DateOnly))
}

// ParseDate validates s as YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// AddDays returns the date n days later (or earlier for negative n)
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(time.DateOnly, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d == ""
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d < other
}

func (d Date) String() string {
	return string(d)
}
