package feed

import "errors"

// Feed server errors
var (
	ErrServerClosed         = errors.New("feed server is closed")
	ErrServerNotRunning     = errors.New("feed server is not running")
	ErrServerAlreadyRunning = errors.New("feed server is already running")
	ErrMaxViewersReached    = errors.New("maximum viewers reached")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrInvalidConfig        = errors.New("invalid feed configuration")
	ErrSlowViewer           = errors.New("viewer too slow, dropped")
)
