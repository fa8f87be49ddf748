package service

import (
	"encoding/json"
	"errors"

	"cragwatch/backend/services/crag-dashboard/internal/clients"
)

// LoginPath is where views send the user after the backend rejected the credential.
const LoginPath = "/login"

const retryLaterMessage = "Failed to load sensor data. Please try again later."

// ViewError is the presentation form of a pipeline failure.
type ViewError struct {
	Kind         string          `json:"kind"`
	Message      string          `json:"message"`
	Details      json.RawMessage `json:"details,omitempty"`
	AuthRequired bool            `json:"authRequired,omitempty"`
	Login        string          `json:"login,omitempty"`
}

// DescribeError maps a pipeline error to what a view shows: a generic retry-later
// message for transport failures, the backend's message for server failures and a
// login redirect for rejected credentials. nil maps to nil.
func DescribeError(err error) *ViewError {
	if err == nil {
		return nil
	}
	ve := &ViewError{Kind: clients.Kind(err)}

	var srvErr *clients.ServerError
	switch {
	case errors.Is(err, clients.ErrUnauthorized):
		ve.Message = "Sign in required."
		ve.AuthRequired = true
		ve.Login = LoginPath
	case clients.IsRetryLater(err):
		ve.Message = retryLaterMessage
	case errors.As(err, &srvErr):
		ve.Message = srvErr.Message
		ve.Details = srvErr.Details
	case errors.Is(err, ErrInvalidReading):
		ve.Kind = "invalid"
		ve.Message = err.Error()
	default:
		ve.Message = retryLaterMessage
	}
	return ve
}
