package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"cragwatch/backend/services/crag-dashboard/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	WallsHandlers   *handlers.WallsHandlers
	SessionHandlers *handlers.SessionHandlers
	HealthHandler   http.HandlerFunc
	Metrics         http.Handler
	LiveView        http.HandlerFunc
	// Instrument wraps REST handlers with request metrics; nil leaves them bare.
	Instrument func(route string, h http.Handler) http.Handler
}

// NewRouter wires HTTP routes.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	instrument := deps.Instrument
	if instrument == nil {
		instrument = func(_ string, h http.Handler) http.Handler { return h }
	}

	r.Handle("/health", deps.HealthHandler).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}

	// Full paths on the root router so a method mismatch answers 405, not 404.
	route := func(path string, h http.HandlerFunc, methods ...string) {
		r.Handle(path, instrument(path, h)).Methods(methods...)
	}
	route("/api/walls", deps.WallsHandlers.List, http.MethodGet)
	route("/api/walls/{wallId}/series", deps.WallsHandlers.Series, http.MethodGet)
	route("/api/readings", deps.WallsHandlers.SubmitReading, http.MethodPost)
	route("/api/session", deps.SessionHandlers.Create, http.MethodPost)
	route("/api/session", deps.SessionHandlers.Delete, http.MethodDelete)

	if deps.LiveView != nil {
		r.HandleFunc("/ws", deps.LiveView).Methods(http.MethodGet)
	}
	return r
}
