package presentation

import "errors"

var (
	ErrUnknownKey    = errors.New("unknown key")
	ErrRunnerRunning = errors.New("runner is already running")
	ErrNilCore       = errors.New("runner needs a core")
	ErrInvalidTick   = errors.New("tick interval must be positive")
)
