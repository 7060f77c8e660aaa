package util

import (
	"testing"
	"time"
)

func TestParseROCDate(t *testing.T) {
	got, err := ParseROCDate("112/06/28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2023, 6, 28, 0, 0, 0, 0, Taipei)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseROCDateInvalid(t *testing.T) {
	for _, s := range []string{"", "112/06", "abc/06/28", "112/xx/28"} {
		if _, err := ParseROCDate(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestParseDateForms(t *testing.T) {
	want := time.Date(2023, 6, 28, 0, 0, 0, 0, Taipei)
	for _, s := range []string{"2023-06-28", "2023/06/28", "20230628", "112/06/28"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("expected ok for %q", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v want %v", s, got, want)
		}
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, Taipei)
	got := ParseDateDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestTWSEDate(t *testing.T) {
	got := TWSEDate(time.Date(2023, 6, 28, 0, 0, 0, 0, Taipei))
	if got != "20230628" {
		t.Fatalf("got %q", got)
	}
}

func TestROCMonth(t *testing.T) {
	got := ROCMonth(time.Date(2023, 6, 28, 0, 0, 0, 0, Taipei))
	if got != "112/06" {
		t.Fatalf("got %q", got)
	}
}

func TestTradingDay(t *testing.T) {
	got := TradingDay(time.Date(2023, 6, 28, 14, 30, 0, 0, Taipei))
	want := time.Date(2023, 6, 28, 0, 0, 0, 0, Taipei)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
