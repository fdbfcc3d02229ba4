package aggregate

import "testing"

func TestCalculatePercentage(t *testing.T) {
	cases := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 4, 25},
		{3, 2, 150},
	}
	for _, c := range cases {
		if got := CalculatePercentage(c.part, c.total); got != c.want {
			t.Fatalf("CalculatePercentage(%d,%d) = %v; want %v", c.part, c.total, got, c.want)
		}
	}
}

func TestRateBand(t *testing.T) {
	cases := map[float64]string{100: BandHigh, 90: BandHigh, 89.9: BandMedium, 70: BandMedium, 69.99: BandLow, 0: BandLow}
	for rate, want := range cases {
		if got := RateBand(rate); got != want {
			t.Fatalf("RateBand(%v) = %q; want %q", rate, got, want)
		}
	}
}

func TestFormatDateRange(t *testing.T) {
	if got := FormatDateRange("2025-04-01", "2025-04-30"); got != "01/04/2025 a 30/04/2025" {
		t.Fatalf("FormatDateRange = %q", got)
	}
	if got := FormatDateRange("bad", "2025-12-31"); got != "bad a 31/12/2025" {
		t.Fatalf("FormatDateRange invalid = %q", got)
	}
}
