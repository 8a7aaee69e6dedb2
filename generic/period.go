package generic

import "time"

// =============================================================================
// PERIOD - a closed range of calendar days
// =============================================================================

// Period is the [Start, End] range of a financial year. Both ends are
// calendar days and both are included when counting.
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31 (365 days)
//   - Project period:     Mar 15 - Sep 30
type Period struct {
	Start time.Time
	End   time.Time
}

// Validate requires End strictly after Start.
func (p Period) Validate() error {
	if !DayOf(p.End).After(DayOf(p.Start)) {
		return ErrInvalidPeriod
	}
	return nil
}

// Days is the inclusive day count of the period.
func (p Period) Days() int { return InclusiveDays(p.Start, p.End) }

// Contains reports whether t falls on a day inside the period.
func (p Period) Contains(t time.Time) bool {
	d := DayOf(t)
	return !d.Before(DayOf(p.Start)) && !d.After(DayOf(p.End))
}

// Ended reports whether now is on or after the period's last day.
func (p Period) Ended(now time.Time) bool {
	return !DayOf(now).Before(DayOf(p.End))
}

// Started reports whether now is on or after the period's first day.
func (p Period) Started(now time.Time) bool {
	return !DayOf(now).Before(DayOf(p.Start))
}

func (p Period) String() string {
	return "[" + p.Start.Format(DateLayout) + ", " + p.End.Format(DateLayout) + "]"
}

// =============================================================================
// CALCULATION MODE - how profit is derived for a run
// =============================================================================

type CalculationMode string

const (
	// ModeFullPeriod: profit = capital share x total profit.
	ModeFullPeriod CalculationMode = "full_period"
	// ModeElapsed: profit = capital x participation days x daily rate.
	ModeElapsed CalculationMode = "elapsed"
)

// ModeFor picks the calculation mode for a run at now.
func (p Period) ModeFor(now time.Time, forceFullPeriod bool) CalculationMode {
	if forceFullPeriod || p.Ended(now) {
		return ModeFullPeriod
	}
	return ModeElapsed
}

// ElapsedDays is the inclusive day count from the period start to now,
// capped at the full period once the period has ended or is forced.
// Zero when the period has not started.
func (p Period) ElapsedDays(now time.Time, forceFullPeriod bool) int {
	if p.ModeFor(now, forceFullPeriod) == ModeFullPeriod {
		return p.Days()
	}
	return InclusiveDays(p.Start, now)
}

// =============================================================================
// WINDOW - one investor's participation inside a period
// =============================================================================

type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// Empty reports a zero-length window; callers assign no profit for it.
func (w Window) Empty() bool { return w.Days == 0 }

// EffectiveWindow computes the span an investor participates in a period.
//
//	start = max(joinDate, period.Start)
//	end   = period.End when forced or the period has ended, otherwise now
//
// Days is inclusive of both calendar days; end before start yields an
// empty window.
func (p Period) EffectiveWindow(joinDate, now time.Time, forceFullPeriod bool) Window {
	start := DayOf(p.Start)
	if j := DayOf(joinDate); j.After(start) {
		start = j
	}

	end := DayOf(p.End)
	if p.ModeFor(now, forceFullPeriod) == ModeElapsed {
		end = DayOf(now)
	}

	return Window{Start: start, End: end, Days: InclusiveDays(start, end)}
}
