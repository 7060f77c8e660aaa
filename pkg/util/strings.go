package util

import (
	"strconv"
	"strings"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// ParseFloatDefault parses string to float64 or returns default if empty/invalid.
func ParseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// CleanNumber strips the thousands separators and placeholder dashes TWSE
// puts in numeric cells ("1,234,567", "--", "X0.00").
func CleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "X")
	if s == "--" || s == "-" || s == "" {
		return ""
	}
	return s
}

// ParseTWSEFloat parses a TWSE numeric cell, treating placeholders as 0.
func ParseTWSEFloat(s string) float64 {
	return ParseFloatDefault(CleanNumber(s), 0)
}

// ParseTWSEInt parses a TWSE integer cell, treating placeholders as 0.
func ParseTWSEInt(s string) int64 {
	c := CleanNumber(s)
	if c == "" {
		return 0
	}
	v, err := strconv.ParseInt(c, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(c, 64)
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return v
}
