package util

import "testing"

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1,234,567", "1234567"},
		{" 98.50 ", "98.50"},
		{"--", ""},
		{"-", ""},
		{"X0.00", "0.00"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanNumber(tt.in); got != tt.want {
			t.Fatalf("CleanNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTWSEFloat(t *testing.T) {
	if got := ParseTWSEFloat("1,234.50"); got != 1234.50 {
		t.Fatalf("got %v", got)
	}
	if got := ParseTWSEFloat("--"); got != 0 {
		t.Fatalf("placeholder should be 0, got %v", got)
	}
}

func TestParseTWSEInt(t *testing.T) {
	if got := ParseTWSEInt("12,345,678"); got != 12345678 {
		t.Fatalf("got %v", got)
	}
	if got := ParseTWSEInt("1234.0"); got != 1234 {
		t.Fatalf("got %v", got)
	}
	if got := ParseTWSEInt("--"); got != 0 {
		t.Fatalf("got %v", got)
	}
}
