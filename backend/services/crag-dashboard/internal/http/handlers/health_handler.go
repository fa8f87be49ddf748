package handlers

import (
	"context"
	"net/http"
	"time"

	"cragwatch/backend/services/crag-dashboard/internal/clients"
	"cragwatch/backend/services/crag-dashboard/internal/models"
)

const upstreamHealthTimeout = 3 * time.Second

type healthResponse struct {
	Status        string         `json:"status"`
	Service       string         `json:"service"`
	Timestamp     time.Time      `json:"timestamp"`
	Uptime        float64        `json:"uptime"`
	Upstream      *models.Health `json:"upstream,omitempty"`
	UpstreamError string         `json:"upstreamError,omitempty"`
}

// NewHealthHandler reports this service and the sensor backend. An unhealthy backend
// degrades the status but still answers 200.
func NewHealthHandler(service string, dashboard Dashboard, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		resp := healthResponse{
			Status:    "ok",
			Service:   service,
			Timestamp: now.UTC(),
			Uptime:    now.Sub(started).Seconds(),
		}

		ctx, cancel := context.WithTimeout(r.Context(), upstreamHealthTimeout)
		defer cancel()
		upstream, err := dashboard.Health(ctx)
		switch {
		case err != nil:
			resp.Status = "degraded"
			resp.UpstreamError = clients.Kind(err)
		default:
			resp.Upstream = &upstream
			if upstream.Status != "ok" {
				resp.Status = "degraded"
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
