package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zeusync/diffsim/internal/presentation"
)

// Envelope types sent by the server.
const (
	TypeHello = "hello"
	TypeFrame = "frame"
	TypeError = "error"
)

// Envelope is every server-to-viewer message. Frame holds a JSON encoded
// presentation.Frame and is only set for TypeFrame.
type Envelope struct {
	Type     string          `json:"type"`
	ViewerID string          `json:"viewer_id,omitempty"`
	Frame    json.RawMessage `json:"frame,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Key actions a viewer may send.
const (
	ActionDown = "down"
	ActionUp   = "up"
	ActionTap  = "tap"
)

// KeyMessage is the only viewer-to-server message: a raw key transition.
type KeyMessage struct {
	Type   string `json:"type"` // always "key"
	Key    string `json:"key"`
	Action string `json:"action"`
}

// Apply validates the message and forwards it to input.
func (m KeyMessage) Apply(input presentation.KeyInput, at time.Time) error {
	if m.Type != "key" {
		return fmt.Errorf("%w: type %q", ErrInvalidMessage, m.Type)
	}
	key, err := presentation.ParseKey(m.Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	switch m.Action {
	case ActionDown:
		input.Press(key, at)
	case ActionUp:
		input.Release(key, at)
	case ActionTap:
		input.Tap(key, at)
	default:
		return fmt.Errorf("%w: action %q", ErrInvalidMessage, m.Action)
	}
	return nil
}

func mustEnvelope(e Envelope) []byte {
	data, err := json.Marshal(e)
	if err != nil {
		// Envelope holds only strings and pre-encoded JSON.
		panic(err)
	}
	return data
}
