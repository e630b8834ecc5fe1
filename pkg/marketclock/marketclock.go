// Package marketclock normalizes raw timestamps into the reference exchange
// timezone and classifies regular-session membership. All functions are pure
// and safe for concurrent use.
package marketclock

import (
	"time"
	_ "time/tzdata" // keep zone data available in scratch images
)

// Reference timezone for session logic. US equities trade on Eastern time,
// which shifts between EST and EDT; time.Location handles the transitions.
const zoneName = "America/New_York"

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		// tzdata is linked in, so this only fires on a corrupt build.
		panic("marketclock: load " + zoneName + ": " + err.Error())
	}
	eastern = loc
}

// Session boundaries, time-of-day in the reference zone.
const (
	sessionOpen  = "09:30:00"
	sessionClose = "16:00:00"
)

// Location returns the reference timezone.
func Location() *time.Location { return eastern }

// Normalize converts an absolute timestamp to its calendar date and
// time-of-day in the reference timezone, plus whether it falls inside the
// regular trading session.
func Normalize(ts time.Time) (date, timeOfDay string, regular bool) {
	et := ts.In(eastern)
	date = et.Format("2006-01-02")
	timeOfDay = et.Format("15:04:05")
	regular = isWeekday(et.Weekday()) && timeOfDay >= sessionOpen && timeOfDay < sessionClose
	return date, timeOfDay, regular
}

// IsRegularSession reports whether ts falls in [09:30, 16:00) Eastern on a
// weekday. No holiday calendar: exchange holidays are classified as regular
// weekdays, a documented limitation.
func IsRegularSession(ts time.Time) bool {
	_, _, regular := Normalize(ts)
	return regular
}

// TradingDate returns the calendar date of ts in the reference timezone.
func TradingDate(ts time.Time) string {
	return ts.In(eastern).Format("2006-01-02")
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}
