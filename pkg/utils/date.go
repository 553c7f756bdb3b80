package utils

import (
	"log"
	"time"
)

// TimeNowMarket returns the current time in the US market timezone.
func TimeNowMarket() time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return time.Now().In(loc)
}

// TodayMarket returns today's date (midnight) in the market timezone.
func TodayMarket() time.Time {
	now := TimeNowMarket()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// CalculateDTE returns the number of days from `from` until expiry, floored at zero.
func CalculateDTE(expiry, from time.Time) int {
	days := int(expiry.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DaysUntil returns the whole days from `from` until `target`, nil when target is nil.
// Negative values mean the target date is in the past.
func DaysUntil(target *time.Time, from time.Time) *int {
	if target == nil {
		return nil
	}
	days := int(target.Sub(from).Hours() / 24)
	return &days
}

// IsNearEarnings reports whether an earnings date falls within the exclusion window
// on either side of `from`. A nil earnings date is never near.
func IsNearEarnings(earnings *time.Time, exclusionDays int, from time.Time) bool {
	days := DaysUntil(earnings, from)
	if days == nil {
		return false
	}
	d := *days
	if d < 0 {
		d = -d
	}
	return d <= exclusionDays
}
