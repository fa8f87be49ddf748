package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit    = 4096
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// Connection is one browser WebSocket. It owns a View and streams its updates.
type Connection struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	view         *View
	writeTimeout time.Duration
	onClose      func(id string)
}

// NewConnection builds connection wrapper. The view is attached by SetView before Start.
func NewConnection(id string, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger, onClose func(string)) *Connection {
	return &Connection{
		id:           id,
		ws:           ws,
		send:         make(chan []byte, 16),
		logger:       logger.With(zap.String("connection_id", id)),
		writeTimeout: writeTimeout,
		onClose:      onClose,
	}
}

// ID returns identifier.
func (c *Connection) ID() string {
	return c.id
}

// SetView attaches the view driven by this connection.
func (c *Connection) SetView(v *View) {
	c.view = v
}

// Start launches read/write pumps and blocks until the connection closes.
func (c *Connection) Start(ctx context.Context, initial Command) {
	go c.writePump(ctx)
	if err := c.view.Handle(initial); err != nil {
		c.logger.Warn("initial view rejected", zap.Error(err))
		c.pushError(err)
	}
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("connection read closed", zap.Error(err))
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.logger.Warn("invalid command", zap.Error(err))
			c.pushError(err)
			continue
		}
		if err := c.view.Handle(cmd); err != nil {
			c.logger.Warn("command rejected", zap.String("view", cmd.View), zap.Error(err))
			c.pushError(err)
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.ws.Close()
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Push encodes and enqueues a view update.
func (c *Connection) Push(update ViewUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		c.logger.Error("failed to encode view update", zap.Error(err))
		return
	}
	c.Send(data)
}

// Send enqueues a message for writing. When the buffer is full the message is dropped;
// the next update carries the full state again.
func (c *Connection) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("attempted to send on closed connection")
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping outgoing message, buffer full")
	}
}

// Close closes the socket; the read pump then cleans up.
func (c *Connection) Close() error {
	return c.ws.Close()
}

func (c *Connection) pushError(err error) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"kind": "bad_request", "message": err.Error()},
	})
	c.Send(data)
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Connection) cleanup() {
	// Stop the subscription first so no update races the channel close.
	c.view.Close()
	close(c.send)
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c.id)
	}
}
