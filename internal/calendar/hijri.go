package calendar

import (
	"time"

	"github.com/hablullah/go-hijri"

	"github.com/nazhim/markaz-api/pkg/logger"
)

// Gregorian years the resolver accepts before falling back. Conversions
// landing outside this range are almost certainly caller typos (e.g. a
// Gregorian year passed where a Hijri one was expected).
const (
	MinGregorianYear = 1900
	MaxGregorianYear = 2200
)

// MonthWindow is a resolved Gregorian date range for one reporting month.
// Fallback is set when the requested lunar month could not be resolved and
// the current Gregorian month was substituted.
type MonthWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Fallback bool      `json:"fallback"`
}

// ResolveMonthWindow converts (lunarYear, lunarMonth) into a Gregorian range:
// start is day 1 of the Hijri month, end is the day before day 1 of the next
// Hijri month at 23:59:59.999. Resolution failures are absorbed, never
// returned: the window degrades to the current Gregorian month so reports
// always have a usable range.
func ResolveMonthWindow(lunarYear, lunarMonth int) MonthWindow {
	return resolveMonthWindowAt(lunarYear, lunarMonth, time.Now())
}

func resolveMonthWindowAt(lunarYear, lunarMonth int, now time.Time) MonthWindow {
	if lunarMonth < 1 || lunarMonth > 12 {
		return fallbackWindow(lunarYear, lunarMonth, now)
	}

	start := hijri.HijriDate{Year: int64(lunarYear), Month: int64(lunarMonth), Day: 1}.ToGregorian()

	nextYear, nextMonth := lunarYear, lunarMonth+1
	if nextMonth > 12 {
		nextYear, nextMonth = lunarYear+1, 1
	}
	nextStart := hijri.HijriDate{Year: int64(nextYear), Month: int64(nextMonth), Day: 1}.ToGregorian()

	if start.IsZero() || nextStart.IsZero() || !nextStart.After(start) {
		return fallbackWindow(lunarYear, lunarMonth, now)
	}

	end := nextStart.AddDate(0, 0, -1)

	if outOfBounds(start.Year()) || outOfBounds(end.Year()) {
		return fallbackWindow(lunarYear, lunarMonth, now)
	}

	return MonthWindow{
		Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		End:   time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC),
	}
}

func outOfBounds(year int) bool {
	return year < MinGregorianYear || year > MaxGregorianYear
}

// fallbackWindow returns the current Gregorian calendar month
func fallbackWindow(lunarYear, lunarMonth int, now time.Time) MonthWindow {
	logger.Warn("Hijri month window resolution failed, using current Gregorian month",
		"lunar_year", lunarYear, "lunar_month", lunarMonth)

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)

	return MonthWindow{
		Start:    first,
		End:      time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, int(999*time.Millisecond), now.Location()),
		Fallback: true,
	}
}

// GregorianMonthWindow returns the calendar window of a plain Gregorian month
func GregorianMonthWindow(year int, month time.Month) MonthWindow {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return MonthWindow{
		Start: first,
		End:   time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC),
	}
}
