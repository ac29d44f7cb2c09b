package ads

import (
	"math"
	"time"

	"github.com/grihome/grihome/internal/app/domain/ad"
)

// Day bounds for a single booking.
const (
	MinDays = 1
	MaxDays = 30
)

// PreLaunchMaxDays caps free bookings while the launch offer runs.
const PreLaunchMaxDays = 3

// discountPercent returns the tiered duration discount.
func discountPercent(days int) float64 {
	switch {
	case days >= 30:
		return 30
	case days >= 15:
		return 20
	case days >= 7:
		return 10
	case days >= 3:
		return 5
	default:
		return 0
	}
}

// PreLaunchWindow is the launch offer during which every slot is free.
type PreLaunchWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w PreLaunchWindow) Contains(t time.Time) bool {
	if w.Start.IsZero() || w.End.IsZero() {
		return false
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// PriceSelection prices one slot booking. During the pre-launch window the
// booking is free and capped at PreLaunchMaxDays; otherwise the duration
// discount applies to basePrice*days.
func PriceSelection(basePrice float64, days int, window PreLaunchWindow, now time.Time) ad.Quote {
	if window.Contains(now) {
		if days > PreLaunchMaxDays {
			days = PreLaunchMaxDays
		}
		return ad.Quote{
			Days:            days,
			BaseAmount:      round2(basePrice * float64(days)),
			DiscountPercent: 100,
			FinalAmount:     0,
		}
	}

	base := basePrice * float64(days)
	discount := discountPercent(days)
	return ad.Quote{
		Days:            days,
		BaseAmount:      round2(base),
		DiscountPercent: discount,
		FinalAmount:     round2(base * (100 - discount) / 100),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
