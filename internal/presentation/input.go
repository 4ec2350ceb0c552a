package presentation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zeusync/diffsim/internal/core/differential"
)

type Key uint8

const (
	KeyShiftUp Key = iota
	KeyShiftDown
	KeySteerLeft
	KeySteerRight

	keyCount
)

func (k Key) String() string {
	switch k {
	case KeyShiftUp:
		return "up"
	case KeyShiftDown:
		return "down"
	case KeySteerLeft:
		return "left"
	case KeySteerRight:
		return "right"
	default:
		return fmt.Sprintf("key(%d)", uint8(k))
	}
}

// ParseKey accepts the arrow-key names used by keyboards and the feed protocol.
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(s) {
	case "up", "shift_up":
		return KeyShiftUp, nil
	case "down", "shift_down":
		return KeyShiftDown, nil
	case "left", "steer_left":
		return KeySteerLeft, nil
	case "right", "steer_right":
		return KeySteerRight, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
}

// KeyInput receives raw key transitions from a front end.
type KeyInput interface {
	Press(key Key, at time.Time)
	Release(key Key, at time.Time)
	// Tap is a press immediately followed by a release.
	Tap(key Key, at time.Time)
}

type keyState struct {
	down     bool
	lastSeen time.Time
}

// Latch turns raw key transitions into one Controls value per tick.
//
// Steering keys are levels: held from press until release. Gear keys are
// edges that fire on release, and releases that arrive between two samples
// are queued so every shift is delivered, one per tick.
//
// With a non-zero hold window a key that has not been pressed again within
// the window counts as released. Terminals report repeats but never key-up.
type Latch struct {
	mu          sync.Mutex
	holdWindow  time.Duration
	keys        [keyCount]keyState
	pendingUp   int
	pendingDown int
}

func NewLatch(holdWindow time.Duration) *Latch {
	return &Latch{holdWindow: holdWindow}
}

func (l *Latch) Press(key Key, at time.Time) {
	if key >= keyCount {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = keyState{down: true, lastSeen: at}
}

func (l *Latch) Release(key Key, at time.Time) {
	if key >= keyCount {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.release(key)
}

// Tap is a press immediately followed by a release, for front ends that only
// deliver key-down events for gear keys.
func (l *Latch) Tap(key Key, at time.Time) {
	if key >= keyCount {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = keyState{down: true, lastSeen: at}
	l.release(key)
}

// Sample returns the controls for the tick happening at the given time.
func (l *Latch) Sample(at time.Time) differential.Controls {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holdWindow > 0 {
		for k := range l.keys {
			s := l.keys[k]
			if s.down && at.Sub(s.lastSeen) > l.holdWindow {
				l.release(Key(k))
			}
		}
	}

	c := differential.Controls{
		SteerLeft:  l.keys[KeySteerLeft].down,
		SteerRight: l.keys[KeySteerRight].down,
	}
	if l.pendingUp > 0 {
		c.ShiftUp = true
		l.pendingUp--
	}
	if l.pendingDown > 0 {
		c.ShiftDown = true
		l.pendingDown--
	}
	return c
}

// Reset drops every held key and queued shift.
func (l *Latch) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = [keyCount]keyState{}
	l.pendingUp, l.pendingDown = 0, 0
}

func (l *Latch) release(key Key) {
	wasDown := l.keys[key].down
	l.keys[key].down = false
	if !wasDown {
		return
	}
	switch key {
	case KeyShiftUp:
		l.pendingUp++
	case KeyShiftDown:
		l.pendingDown++
	}
}
