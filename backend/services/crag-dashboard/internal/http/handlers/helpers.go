package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cragwatch/backend/services/crag-dashboard/internal/clients"
	"cragwatch/backend/services/crag-dashboard/internal/service"
)

type errorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

type dataBody struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, dataBody{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, details interface{}) {
	writeJSON(w, status, errorBody{Error: message, Details: details})
}

// writeServiceError maps a pipeline error to a status code and the view error body.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	ve := service.DescribeError(err)

	status := http.StatusInternalServerError
	var netErr *clients.NetworkError
	var srvErr *clients.ServerError
	switch {
	case errors.Is(err, clients.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", map[string]string{"login": ve.Login})
		return
	case errors.Is(err, service.ErrInvalidReading):
		writeError(w, http.StatusBadRequest, ve.Message, nil)
		return
	case errors.As(err, &netErr):
		status = http.StatusBadGateway
		if netErr.Timeout {
			status = http.StatusGatewayTimeout
		}
	case errors.As(err, &srvErr):
		status = http.StatusBadGateway
	}

	logger.Warn(op+" failed", zap.String("kind", ve.Kind), zap.Error(err))
	var details interface{}
	if len(ve.Details) > 0 {
		details = ve.Details
	}
	writeError(w, status, ve.Message, details)
}
