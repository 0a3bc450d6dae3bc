package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"2.500", "2.50", true}, // trailing zero is still two decimals
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"0", "", false},
		{"1.005", "", false}, // sub-cent
		{"0.004", "", false}, // sub-cent
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(dec("12.34")); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateAmount(dec("0")); err != nil {
		t.Fatalf("zero is a valid stored amount, got %v", err)
	}
	if err := ValidateAmount(dec("-0.01")); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	if err := ValidateAmount(dec("1.005")); err == nil {
		t.Fatalf("expected error for sub-cent precision")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"0", "0.00"},
		{"1.5", "1.50"},
		{"100", "100.00"},
		{"-12.3", "-12.30"},
	}
	for _, tc := range cases {
		if got := FormatAmount(dec(tc.in)); got != tc.out {
			t.Fatalf("%q expected %q, got %q", tc.in, tc.out, got)
		}
	}
}
