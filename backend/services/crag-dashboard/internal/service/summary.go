package service

import (
	"strings"
	"unicode"

	"cragwatch/backend/services/crag-dashboard/internal/models"
)

const (
	busyAbove     = 10
	moderateAbove = 5
)

// Classify maps a device count to an activity level: above 10 is busy, 6..10 moderate,
// anything lower quiet.
func Classify(deviceCount int) models.Activity {
	switch {
	case deviceCount > busyAbove:
		return models.ActivityBusy
	case deviceCount > moderateAbove:
		return models.ActivityModerate
	default:
		return models.ActivityQuiet
	}
}

// DeriveSummaries turns backend wall states into display summaries, one per input and
// in input order. An empty input yields an empty, non-nil result.
func DeriveSummaries(walls []models.WallState) []models.WallSummary {
	out := make([]models.WallSummary, 0, len(walls))
	for _, w := range walls {
		count := clampCount(w.DeviceCount)
		out = append(out, models.WallSummary{
			WallID:                 w.WallID,
			DisplayName:            DisplayName(w.WallID),
			DeviceCount:            count,
			LatestReadingTimestamp: w.LatestReadingTimestamp,
			Activity:               Classify(count),
		})
	}
	return out
}

// DisplayName de-slugifies a wall id: '_' and '-' become spaces and the first letter
// of every word is upper-cased ("north_face" -> "North Face"). Other letters keep
// their case.
func DisplayName(wallID string) string {
	var b strings.Builder
	b.Grow(len(wallID))
	prevWord := false
	for _, r := range wallID {
		if r == '_' || r == '-' {
			r = ' '
		}
		word := unicode.IsLetter(r) || unicode.IsDigit(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		prevWord = word
		b.WriteRune(r)
	}
	return b.String()
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
