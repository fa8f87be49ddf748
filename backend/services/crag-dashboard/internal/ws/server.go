package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades HTTP connections to live dashboard views.
type Server struct {
	ctx          context.Context
	manager      *Manager
	dashboard    Dashboard
	logger       *zap.Logger
	writeTimeout time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server. ctx bounds every connection's lifetime. checkOrigin may
// be nil to accept any origin.
func NewServer(ctx context.Context, manager *Manager, dashboard Dashboard, writeTimeout time.Duration, checkOrigin func(*http.Request) bool, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		ctx:          ctx,
		manager:      manager,
		dashboard:    dashboard,
		logger:       logger,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// HandleWS is HTTP handler for the /ws endpoint. The initial view comes from the query
// (?view=wall&wallId=west-face), defaulting to the wall list.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	initial := Command{
		View:   r.URL.Query().Get("view"),
		WallID: r.URL.Query().Get("wallId"),
	}
	if initial.View == "" {
		initial.View = "walls"
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	id := uuid.NewString()
	connection := NewConnection(id, conn, s.writeTimeout, s.logger, func(id string) {
		s.manager.Remove(id)
		cancel()
	})
	// Subscriptions outlive the socket's context so a closed view's in-flight fetch is
	// ignored on arrival rather than aborted.
	connection.SetView(NewView(s.ctx, s.dashboard, connection.Push))
	s.manager.Add(connection)

	go connection.Start(ctx, initial)
	s.logger.Info("view connected", zap.String("connection_id", id), zap.String("view", initial.View))
}
