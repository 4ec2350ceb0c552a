package client

import (
	"errors"
	"fmt"
)

// Client-specific errors
var (
	ErrClientClosed    = errors.New("client is closed")
	ErrNoHello         = errors.New("server did not greet the viewer")
	ErrInvalidConfig   = errors.New("invalid client configuration")
	ErrInvalidResponse = errors.New("invalid server message")
)

// ServerError is a rejection reported by the feed, usually for a bad key
// message. The connection stays usable.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("feed error: %s", e.Message)
}
