package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"cragwatch/backend/services/crag-dashboard/internal/models"
)

// Dashboard is the one-shot side of the dashboard pipeline.
type Dashboard interface {
	Health(ctx context.Context) (models.Health, error)
	Walls(ctx context.Context) ([]models.WallSummary, error)
	WallSeries(ctx context.Context, wallID string) (models.WallSeries, error)
	SubmitReading(ctx context.Context, in models.ReadingInput) (string, error)
}

// WallsHandlers serves wall list, wall detail and diagnostic readings.
type WallsHandlers struct {
	dashboard Dashboard
	logger    *zap.Logger
}

// NewWallsHandlers returns handler struct.
func NewWallsHandlers(dashboard Dashboard, logger *zap.Logger) *WallsHandlers {
	return &WallsHandlers{dashboard: dashboard, logger: logger}
}

// List handles GET /api/walls.
func (h *WallsHandlers) List(w http.ResponseWriter, r *http.Request) {
	walls, err := h.dashboard.Walls(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list walls", err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"walls": walls})
}

// Series handles GET /api/walls/{wallId}/series.
func (h *WallsHandlers) Series(w http.ResponseWriter, r *http.Request) {
	wallID := strings.TrimSpace(mux.Vars(r)["wallId"])
	if wallID == "" {
		writeError(w, http.StatusBadRequest, "wallId is required", nil)
		return
	}
	series, err := h.dashboard.WallSeries(r.Context(), wallID)
	if err != nil {
		writeServiceError(w, h.logger, "wall series", err)
		return
	}
	writeData(w, http.StatusOK, series)
}

// SubmitReading handles POST /api/readings.
func (h *WallsHandlers) SubmitReading(w http.ResponseWriter, r *http.Request) {
	var in models.ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	id, err := h.dashboard.SubmitReading(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, "submit reading", err)
		return
	}
	writeData(w, http.StatusCreated, map[string]string{"id": id})
}
