package listing

import (
	"strings"
	"testing"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"49.99", 49.99, true},
		{"$1,000", 1000, true},
		{" 0.01", 0.01, true},
		{"1000000", 1000000, true},
		{"999.999", 1000, true},
		{"-5", 0, false},
		{"0", 0, false},
		{"1000000.01", 0, false},
		{"free", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParsePrice(%q): unexpected error %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParsePrice(%q): expected error, got %v", tc.in, got)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("ParsePrice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParsePriceBounded(t *testing.T) {
	if _, err := ParsePriceBounded("2", 5, 100); err == nil {
		t.Fatal("price below the lower bound must be rejected")
	}
	if _, err := ParsePriceBounded("250", 5, 100); err == nil {
		t.Fatal("price above the upper bound must be rejected")
	}
	got, err := ParsePriceBounded("$99.99", 5, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 99.99 {
		t.Fatalf("got %v, want 99.99", got)
	}
}

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("iPhone 14 Pro"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateTitle("  "); err == nil {
		t.Fatal("blank title must be rejected")
	}
	if err := ValidateTitle("ab"); err == nil {
		t.Fatal("short title must be rejected")
	}
	if err := ValidateTitle(strings.Repeat("x", 101)); err == nil {
		t.Fatal("long title must be rejected")
	}
}

func TestValidateDescription(t *testing.T) {
	if err := ValidateDescription(""); err != nil {
		t.Fatalf("empty description is allowed: %v", err)
	}
	if err := ValidateDescription(strings.Repeat("y", 2001)); err == nil {
		t.Fatal("long description must be rejected")
	}
}

func TestIsCategory(t *testing.T) {
	if !IsCategory("electronics") {
		t.Fatal("electronics is a category")
	}
	if IsCategory("weapons") {
		t.Fatal("unknown category accepted")
	}
}
