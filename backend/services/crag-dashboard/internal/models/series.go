package models

import "time"

// SeriesPoint is one plot point derived from a Reading.
type SeriesPoint struct {
	Label        string    `json:"label"`
	TooltipLabel string    `json:"tooltipLabel"`
	Value        int       `json:"value"`
	TimestampRaw time.Time `json:"timestamp"`
}

// WallSeries is the plot-ready view of one wall's reading window.
// Series is ordered oldest first.
type WallSeries struct {
	WallID      string        `json:"wallId"`
	DisplayName string        `json:"displayName"`
	Series      []SeriesPoint `json:"series"`
	Latest      *Reading      `json:"latest"`
	Current     int           `json:"current"`
	Average     int           `json:"average"`
	LatestTime  string        `json:"latestTime,omitempty"`
	LatestDate  string        `json:"latestDate,omitempty"`
}
