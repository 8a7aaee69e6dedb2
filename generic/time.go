package generic

import (
	"time"
)

// =============================================================================
// CALENDAR DAYS - all profit arithmetic happens at UTC-midnight granularity
// =============================================================================

const DateLayout = "2006-01-02"

// NewDate returns UTC midnight of the given calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf normalises t to UTC midnight of its UTC calendar day.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween is the whole number of calendar days from one day to another.
// Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(DayOf(to).Sub(DayOf(from)).Hours() / 24)
}

// InclusiveDays counts calendar days in [start, end], both ends included.
// Same day yields 1, consecutive days yield 2, end before start yields 0.
func InclusiveDays(start, end time.Time) int {
	d := DaysBetween(start, end)
	if d < 0 {
		return 0
	}
	return d + 1
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, NewValidationError("date", "use YYYY-MM-DD or RFC3339")
	}
	return DayOf(t), nil
}

// =============================================================================
// CLOCK - business logic never calls time.Now() directly
// =============================================================================

type Clock interface {
	Now() time.Time
}

// RealClock reads the system time. Use at entry points only.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// FuncClock adapts a function, handy for tests that advance time.
type FuncClock func() time.Time

func (f FuncClock) Now() time.Time { return f() }
