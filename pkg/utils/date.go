package utils

import (
	"time"
)

// LoadLocation returns the named location, falling back to the server
// timezone for an empty or unknown name.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// PrettyDate formats a timestamp for chat messages and the dashboard.
func PrettyDate(date time.Time, loc *time.Location) string {
	return date.In(loc).Format("02 Jan 2006 - 15:04 MST")
}

// YearsBack returns the same instant n years earlier.
func YearsBack(t time.Time, n int) time.Time {
	return t.AddDate(-n, 0, 0)
}
