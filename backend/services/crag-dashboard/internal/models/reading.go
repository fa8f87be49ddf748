package models

import "time"

// Reading is one sensor observation as returned by the sensor backend.
// ServerTimestamp is authoritative for ordering.
type Reading struct {
	ID              string    `json:"_id,omitempty"`
	WallID          string    `json:"wall_id"`
	DeviceCount     int       `json:"device_count"`
	SourceTimestamp int64     `json:"timestamp,omitempty"`
	GatewayID       string    `json:"gateway_id,omitempty"`
	RSSI            *float64  `json:"rssi,omitempty"`
	SNR             *float64  `json:"snr,omitempty"`
	ReceivedAt      int64     `json:"received_at,omitempty"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReadingInput is the partial reading accepted by the submit endpoint.
type ReadingInput struct {
	WallID          string   `json:"wall_id"`
	DeviceCount     int      `json:"device_count"`
	SourceTimestamp int64    `json:"timestamp,omitempty"`
	GatewayID       string   `json:"gateway_id,omitempty"`
	RSSI            *float64 `json:"rssi,omitempty"`
	SNR             *float64 `json:"snr,omitempty"`
}

// ReadingsQuery bounds a readings fetch. Start is inclusive; a zero End means "up to now".
type ReadingsQuery struct {
	WallID string
	Start  time.Time
	End    time.Time
	Limit  int
}
