package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	fullDateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	shortDateRe = regexp.MustCompile(`^\d{2}-\d{2}$`)
)

// Today returns the current UTC date as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.UTC().Format(dateLayout)
}

// NormalizeDate normalizes a user-supplied date token for ingestion.
// Accepted forms: "YYYY-MM-DD" (passed through), "MM-DD" (bound to the
// current year). Anything else, including garbage, falls back to today —
// lenient on purpose so a bad date never loses a spending entry.
func NormalizeDate(token string, now time.Time) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return Today(now)
	}
	if fullDateRe.MatchString(token) {
		return token
	}
	if shortDateRe.MatchString(token) {
		return now.UTC().Format("2006") + "-" + token
	}
	return Today(now)
}

// ISOWeekRange converts a year and ISO-like week number to a Monday-start
// date range. January 4 always falls in week 1, so the week's Monday is
// Jan4 - weekday(Jan4) + (week-1)*7 days.
func ISOWeekRange(year, week int) (start, end time.Time) {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	offset := (int(jan4.Weekday()) + 6) % 7
	start = jan4.AddDate(0, 0, -offset+(week-1)*7)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// ParseWeekToken parses a "YYYY-Www" token (e.g. "2025-W47") and returns the
// corresponding Monday..Sunday range as ISO date strings.
func ParseWeekToken(token string) (weekStart, weekEnd string, err error) {
	parts := strings.SplitN(strings.TrimSpace(token), "-W", 2)
	if len(parts) != 2 {
		return "", "", ErrInvalidWeekToken
	}
	year, yerr := strconv.Atoi(parts[0])
	week, werr := strconv.Atoi(parts[1])
	if yerr != nil || werr != nil || week < 1 || week > 53 {
		return "", "", ErrInvalidWeekToken
	}
	start, end := ISOWeekRange(year, week)
	return start.Format(dateLayout), end.Format(dateLayout), nil
}

// ShiftDate moves an ISO date string by the given number of days.
func ShiftDate(date string, days int) (string, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, days).Format(dateLayout), nil
}

// ValidateMonthToken checks a "YYYY-MM" token.
func ValidateMonthToken(token string) error {
	if len(token) != 7 || token[4] != '-' {
		return ErrInvalidMonthToken
	}
	if _, err := strconv.Atoi(token[:4]); err != nil {
		return ErrInvalidMonthToken
	}
	m, err := strconv.Atoi(token[5:])
	if err != nil || m < 1 || m > 12 {
		return ErrInvalidMonthToken
	}
	return nil
}

// MonthRange returns the inclusive scan bounds for a month token. The upper
// bound is a lexical "-31": dates are stored as zero-padded ISO strings, so
// string comparison is correct for every month length (day 31 matches
// nothing in shorter months).
func MonthRange(token string) (from, to string) {
	return token + "-01", token + "-31"
}

// WeekKey returns the "YYYY-Www" cache key for the ISO week containing t.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
