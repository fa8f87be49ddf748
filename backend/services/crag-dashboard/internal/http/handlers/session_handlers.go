package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cragwatch/backend/services/crag-dashboard/internal/credentials"
)

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// SessionHandlers manages the backend credential.
type SessionHandlers struct {
	store  credentials.Store
	logger *zap.Logger
}

// NewSessionHandlers returns handler struct.
func NewSessionHandlers(store credentials.Store, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{store: store, logger: logger}
}

// Create handles POST /api/session.
func (h *SessionHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.store.Set(r.Context(), req.Token); err != nil {
		if errors.Is(err, credentials.ErrEmptyToken) || errors.Is(err, credentials.ErrExpiredToken) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.logger.Error("store credential failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store credential", nil)
		return
	}

	resp := sessionResponse{Authenticated: true}
	if exp, ok := credentials.ExpiresAt(req.Token); ok {
		resp.ExpiresAt = &exp
	}
	h.logger.Info("credential stored")
	writeData(w, http.StatusOK, resp)
}

// Delete handles DELETE /api/session.
func (h *SessionHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error("clear credential failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not clear credential", nil)
		return
	}
	h.logger.Info("credential cleared")
	w.WriteHeader(http.StatusNoContent)
}
