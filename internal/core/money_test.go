package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"5000", 500000, true},
		{" 1.5 ", 150, true},
		{"12.345", 1235, true}, // half-up
		{"12.344", 1234, true},
		{"0.01", 1, true},
		{"", 0, false},
		{"0", 0, false},
		{"-1.00", 0, false},
		{"+1.00", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: unexpected error %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("%q: got %d, want %d", tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error, got %d", tc.in, got)
		}
	}
}

func TestMoneyUnits(t *testing.T) {
	if got := (Money{Cents: 1234}).Units(); got != 12.34 {
		t.Fatalf("got %v, want 12.34", got)
	}
	if got := (Money{Cents: -150}).Units(); got != -1.5 {
		t.Fatalf("got %v, want -1.5", got)
	}
}
