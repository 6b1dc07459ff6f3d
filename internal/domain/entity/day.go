package entity

import (
	"fmt"
	"time"
)

// Day is a calendar date formatted as YYYY-MM-DD.
type Day string

// FormatDay renders a calendar date with zero-padded month and day.
func FormatDay(year, month, day int) Day {
	return Day(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	return FormatDay(t.Year(), int(t.Month()), t.Day())
}

// String implements fmt.Stringer.
func (d Day) String() string {
	return string(d)
}

// Time parses d as midnight UTC.
func (d Day) Time() (time.Time, error) {
	return time.Parse(time.DateOnly, string(d))
}

// PaydayTargets are the days of the month the countdown tracks.
var PaydayTargets = []int{1, 15, 25, 30}

// DaysUntil counts the days from d to the next date whose day of month is
// target, zero when d is that date. Months too short for target are skipped,
// so 30 counted from February lands on March 30th.
func DaysUntil(d Day, target int) (int, error) {
	if target < 1 || target > 31 {
		return 0, fmt.Errorf("day of month %d out of range", target)
	}
	from, err := d.Time()
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", d, err)
	}

	year, month := from.Year(), from.Month()
	if from.Day() > target {
		month++
	}
	for {
		// time.Date normalizes month overflow into the next year.
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if daysIn(first) >= target {
			next := first.AddDate(0, 0, target-1)
			return int(next.Sub(from).Hours() / 24), nil
		}
		month++
	}
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}
