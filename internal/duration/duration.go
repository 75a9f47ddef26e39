// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package duration provides the date arithmetic and formatting used underneath
// the dashboard charts. Every function is total: invalid input degrades to a
// placeholder string or an invalid Days value, never a panic.
package duration

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	daysPerMonth = 30.4375
	daysPerYear  = 365.25

	secondsPerDay = 24 * 60 * 60
)

// Days is a day count that may be missing, like sql.NullInt64.
type Days struct {
	N     int
	Valid bool
}

// Of returns a valid Days value.
func Of(n int) Days {
	return Days{N: n, Valid: true}
}

// ParseDate parses an ISO date ("2006-01-02") or an RFC3339 timestamp and
// returns its UTC calendar date at midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	// Accept a date followed by anything else, e.g. "2024-03-01T10:00:00"
	if len(s) > 10 {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the number of calendar days from start to end.
// Missing or unparseable input yields an invalid Days.
func DaysBetween(start, end string) Days {
	a, ok := ParseDate(start)
	if !ok {
		return Days{}
	}
	b, ok := ParseDate(end)
	if !ok {
		return Days{}
	}
	return Of(daysBetween(a, b))
}

// DaysSince returns the number of calendar days between date and now.
func DaysSince(date string, now time.Time) Days {
	a, ok := ParseDate(date)
	if !ok {
		return Days{}
	}
	return Of(daysBetween(a, truncateDay(now)))
}

// DaysSinceTime is DaysSince for a timestamp.
func DaysSinceTime(t time.Time, now time.Time) Days {
	if t.IsZero() {
		return Days{}
	}
	return Of(daysBetween(truncateDay(t), truncateDay(now)))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween works on UTC midnights, so the second difference is always a
// multiple of a day and the result is antisymmetric. Unix seconds do not
// saturate the way time.Duration does past about 292 years.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

// FormatDuration renders a day count as months below one year and as years
// otherwise. Non-positive counts render as zero months.
func FormatDuration(d Days, locale string) string {
	l := lookup(locale)
	if !d.Valid {
		return l.placeholder
	}
	if d.N <= 0 {
		return "0 " + l.months
	}

	months := float64(d.N) / daysPerMonth
	if months < 12 {
		v := strconv.FormatFloat(math.Round(months*10)/10, 'f', 1, 64)
		v = strings.TrimSuffix(v, ".0")
		if v == "1" {
			return v + " " + l.month
		}
		return v + " " + l.months
	}

	years := float64(d.N) / daysPerYear
	return strconv.FormatFloat(math.Round(years*10)/10, 'f', 1, 64) + " " + l.years
}

// FormatDate renders an ISO date as DD/Mon/YYYY using a fixed month table.
func FormatDate(iso string, locale string) string {
	l := lookup(locale)
	t, ok := ParseDate(iso)
	if !ok {
		return l.datePlaceholder
	}
	var b strings.Builder
	if t.Day() < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.Itoa(t.Day()))
	b.WriteByte('/')
	b.WriteString(l.monthNames[t.Month()-1])
	b.WriteByte('/')
	year := strconv.Itoa(t.Year())
	for i := len(year); i < 4; i++ {
		b.WriteByte('0')
	}
	b.WriteString(year)
	return b.String()
}

// Placeholder returns the locale placeholder used for missing values.
func Placeholder(locale string) string {
	return lookup(locale).placeholder
}
