package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestParseInt64Default(t *testing.T) {
	cases := []struct {
		s    string
		def  int64
		want int64
	}{
		{"", 0, 0},
		{"7", 0, 7},
		{" 12 ", 0, 12},
		{"9007199254740993", 0, 9007199254740993},
		{"1.5", -1, -1},
		{"abc", 3, 3},
	}
	for _, tc := range cases {
		if got := ParseInt64Default(tc.s, tc.def); got != tc.want {
			t.Fatalf("ParseInt64Default(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}
