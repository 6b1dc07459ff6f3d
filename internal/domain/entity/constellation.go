package entity

import (
	"log/slog"
	"strings"
)

// MonthDay is a (month, day) point in the calendar year.
type MonthDay struct {
	Month int
	Day   int
}

// Constellation describes one horoscope category.
type Constellation struct {
	DisplayName string
	APIKey      string
	Start       MonthDay
	End         MonthDay
}

// Constellations is the fixed category table in zodiac calendar order.
// The aggregator sweeps it in this order and lookups scan it in this order.
var Constellations = []Constellation{
	{DisplayName: "白羊座", APIKey: "Aries", Start: MonthDay{3, 21}, End: MonthDay{4, 19}},
	{DisplayName: "金牛座", APIKey: "Taurus", Start: MonthDay{4, 20}, End: MonthDay{5, 20}},
	{DisplayName: "双子座", APIKey: "Gemini", Start: MonthDay{5, 21}, End: MonthDay{6, 21}},
	{DisplayName: "巨蟹座", APIKey: "Cancer", Start: MonthDay{6, 22}, End: MonthDay{7, 22}},
	{DisplayName: "狮子座", APIKey: "Leo", Start: MonthDay{7, 23}, End: MonthDay{8, 22}},
	{DisplayName: "处女座", APIKey: "Virgo", Start: MonthDay{8, 23}, End: MonthDay{9, 22}},
	{DisplayName: "天秤座", APIKey: "Libra", Start: MonthDay{9, 23}, End: MonthDay{10, 23}},
	{DisplayName: "天蝎座", APIKey: "Scorpio", Start: MonthDay{10, 24}, End: MonthDay{11, 22}},
	{DisplayName: "射手座", APIKey: "Sagittarius", Start: MonthDay{11, 23}, End: MonthDay{12, 21}},
	{DisplayName: "摩羯座", APIKey: "Capricorn", Start: MonthDay{12, 22}, End: MonthDay{1, 19}},
	{DisplayName: "水瓶座", APIKey: "Aquarius", Start: MonthDay{1, 20}, End: MonthDay{2, 18}},
	{DisplayName: "双鱼座", APIKey: "Pisces", Start: MonthDay{2, 19}, End: MonthDay{3, 20}},
}

// Contains reports whether (month, day) falls inside the constellation's range.
func (c Constellation) Contains(month, day int) bool {
	start, end := c.Start, c.End
	switch {
	case start.Month == end.Month:
		return month == start.Month && day >= start.Day && day <= end.Day
	case start.Month < end.Month:
		return (month == start.Month && day >= start.Day) ||
			(month == end.Month && day <= end.Day) ||
			(month > start.Month && month < end.Month)
	default:
		// Wraps the year end, e.g. Dec 22 - Jan 19.
		return (month == start.Month && day >= start.Day) ||
			(month == end.Month && day <= end.Day)
	}
}

// LookupConstellation returns the first table entry whose range contains (month, day).
// When nothing matches, such as for an invalid month, it falls back to the first entry.
func LookupConstellation(month, day int) Constellation {
	for _, c := range Constellations {
		if c.Contains(month, day) {
			return c
		}
	}
	slog.Warn("no constellation matched, using default",
		slog.Int("month", month),
		slog.Int("day", day))
	return Constellations[0]
}

// FindConstellation finds a table entry by API key, ignoring case.
func FindConstellation(key string) (Constellation, bool) {
	for _, c := range Constellations {
		if strings.EqualFold(c.APIKey, key) {
			return c, true
		}
	}
	return Constellation{}, false
}
