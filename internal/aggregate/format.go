package aggregate

import (
	"github.com/tbourn/go-sisub-backend/internal/domain"
)

// CalculatePercentage returns part/total*100, or 0 when total is not positive.
func CalculatePercentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Rate bands used to color attendance rates.
const (
	BandHigh   = "high"
	BandMedium = "medium"
	BandLow    = "low"
)

// RateBand classifies an attendance rate: >=90 high, >=70 medium, else low.
func RateBand(rate float64) string {
	switch {
	case rate >= 90:
		return BandHigh
	case rate >= 70:
		return BandMedium
	default:
		return BandLow
	}
}

// FormatDateRange renders "dd/mm/yyyy a dd/mm/yyyy". Unparseable bounds are
// echoed back unchanged.
func FormatDateRange(start, end domain.Date) string {
	return brDate(start) + " a " + brDate(end)
}

func brDate(d domain.Date) string {
	if !d.Valid() {
		return string(d)
	}
	return d.Time().Format("02/01/2006")
}
