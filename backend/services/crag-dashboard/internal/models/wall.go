package models

import "time"

// WallState is the backend's per-wall aggregate.
type WallState struct {
	WallID                 string    `json:"wall_id"`
	LatestReadingTimestamp time.Time `json:"latest_reading"`
	DeviceCount            int       `json:"device_count"`
}

// Activity classifies how busy a wall is.
type Activity string

const (
	ActivityQuiet    Activity = "quiet"
	ActivityModerate Activity = "moderate"
	ActivityBusy     Activity = "busy"
)

// WallSummary is the display-ready form of a WallState.
type WallSummary struct {
	WallID                 string    `json:"wallId"`
	DisplayName            string    `json:"displayName"`
	DeviceCount            int       `json:"deviceCount"`
	LatestReadingTimestamp time.Time `json:"latestReadingTimestamp"`
	Activity               Activity  `json:"activity"`
	LastUpdate             string    `json:"lastUpdate,omitempty"`
}

// Health mirrors the backend's GET /health payload.
type Health struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Database  string  `json:"database"`
	Uptime    float64 `json:"uptime"`
}
