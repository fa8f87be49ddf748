package service

import (
	"fmt"
	"math"
	"time"
)

const (
	minutesInDay   = 24 * 60
	minutesInMonth = 30 * minutesInDay
	minutesInYear  = 365 * minutesInDay
)

// RelativeAge describes t relative to now in words, e.g. "5 minutes ago",
// "about 2 hours ago", "in 3 days". A zero t yields "".
func RelativeAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	future := d < 0
	if future {
		d = -d
	}
	phrase := distance(d)
	if future {
		return "in " + phrase
	}
	return phrase + " ago"
}

func distance(d time.Duration) string {
	seconds := d.Seconds()
	minutes := int(math.Round(seconds / 60))

	switch {
	case seconds < 30:
		return "less than a minute"
	case minutes < 2:
		return "1 minute"
	case minutes < 45:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 90:
		return "about 1 hour"
	case minutes < minutesInDay:
		return fmt.Sprintf("about %d hours", int(math.Round(float64(minutes)/60)))
	case minutes < 42*60:
		return "1 day"
	case minutes < minutesInMonth:
		return fmt.Sprintf("%d days", int(math.Round(float64(minutes)/minutesInDay)))
	case minutes < 2*minutesInMonth:
		return "about 1 month"
	case minutes < minutesInYear:
		return fmt.Sprintf("%d months", int(math.Round(float64(minutes)/minutesInMonth)))
	default:
		years := int(math.Round(float64(minutes) / minutesInYear))
		if years <= 1 {
			return "about 1 year"
		}
		return fmt.Sprintf("about %d years", years)
	}
}
