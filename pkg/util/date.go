package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Taipei is the exchange timezone. TWSE and TAIFEX publish everything in it.
var Taipei = time.FixedZone("Asia/Taipei", 8*3600)

// ParseROCDate parses a Republic-of-China era date such as "112/06/28"
// (ROC year 112 = AD 2023) as returned by TWSE after-trading endpoints.
func ParseROCDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("roc date %q: want yyy/mm/dd", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("roc date %q: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("roc date %q: %w", s, err)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("roc date %q: %w", s, err)
	}
	return time.Date(year+1911, time.Month(month), day, 0, 0, 0, 0, Taipei), nil
}

// ParseDate tries ISO "2006-01-02", slash "2006/01/02", compact "20060102",
// and ROC "112/06/28" in that order. Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation("2006-01-02", s, Taipei); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006/01/02", s, Taipei); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("20060102", s, Taipei); err == nil {
		return t, true
	}
	if t, err := ParseROCDate(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// TWSEDate formats t in the compact "20060102" form TWSE query strings take.
func TWSEDate(t time.Time) string {
	return t.In(Taipei).Format("20060102")
}

// ROCMonth formats t as "112/06" for TAIFEX monthly queries.
func ROCMonth(t time.Time) string {
	t = t.In(Taipei)
	return fmt.Sprintf("%d/%02d", t.Year()-1911, int(t.Month()))
}

// TradingDay truncates t to midnight Taipei time.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.In(Taipei).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Taipei)
}

// MonthStart returns the first day of t's month, Taipei time.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.In(Taipei).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, Taipei)
}
