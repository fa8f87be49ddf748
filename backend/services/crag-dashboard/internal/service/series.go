package service

import (
	"math"
	"time"

	"cragwatch/backend/services/crag-dashboard/internal/models"
)

const (
	pointLabelLayout   = "15:04"
	tooltipLabelLayout = "Jan 2, 15:04"
	latestTimeLayout   = "15:04:05"
	latestDateLayout   = "Jan 2, 2006"
)

// BuildSeries turns one wall's reading window into a plot series.
//
// readings must be newest first, as the backend returns them; the series comes out
// oldest first, one point per reading with no gap filling. Labels are hour:minute in
// loc (nil means UTC) and may repeat. Average is the rounded mean device count over the
// whole window, 0 for an empty window; Latest is the first (newest) input reading.
func BuildSeries(wallID string, readings []models.Reading, loc *time.Location) models.WallSeries {
	if loc == nil {
		loc = time.UTC
	}
	out := models.WallSeries{
		WallID:      wallID,
		DisplayName: DisplayName(wallID),
		Series:      make([]models.SeriesPoint, 0, len(readings)),
	}
	if len(readings) == 0 {
		return out
	}

	sum := 0
	for i := len(readings) - 1; i >= 0; i-- {
		r := readings[i]
		count := clampCount(r.DeviceCount)
		sum += count
		ts := r.ServerTimestamp.In(loc)
		out.Series = append(out.Series, models.SeriesPoint{
			Label:        ts.Format(pointLabelLayout),
			TooltipLabel: ts.Format(tooltipLabelLayout),
			Value:        count,
			TimestampRaw: r.ServerTimestamp,
		})
	}
	out.Average = roundHalfUp(float64(sum) / float64(len(readings)))

	latest := readings[0]
	out.Latest = &latest
	out.Current = clampCount(latest.DeviceCount)
	ts := latest.ServerTimestamp.In(loc)
	out.LatestTime = ts.Format(latestTimeLayout)
	out.LatestDate = ts.Format(latestDateLayout)
	return out
}

// roundHalfUp rounds .5 towards +Inf, so 1.5 -> 2 and 2.5 -> 3.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
