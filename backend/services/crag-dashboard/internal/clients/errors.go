package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// ErrUnauthorized is returned when the backend rejects the credential. The stored
// credential has already been cleared by the time a caller sees it.
var ErrUnauthorized = errors.New("telemetry: unauthorized")

// NetworkError covers transport failures: timeouts, refused connections, DNS.
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("telemetry: %s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("telemetry: %s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx answer (or success:false envelope) from the backend.
type ServerError struct {
	Op         string
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("telemetry: %s: server returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("telemetry: %s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
}

// Kind names the failure class of err for logs and metrics.
func Kind(err error) string {
	var netErr *NetworkError
	var srvErr *ServerError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &srvErr):
		return "server"
	default:
		return "error"
	}
}

func networkError(op string, err error) error {
	var ne net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
	return &NetworkError{Op: op, Timeout: timeout, Err: err}
}
