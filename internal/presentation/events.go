package presentation

import (
	"github.com/zeusync/diffsim/internal/core/events/bus"
	"github.com/zeusync/diffsim/internal/core/observability/log"
)

// Event types published by the Runner.
const (
	EventGearShifted      = "gear.shifted"
	EventDirectionChanged = "steering.direction"
	EventPaused           = "runner.paused"
	EventResumed          = "runner.resumed"
)

const eventSource = "runner"

type GearShift struct {
	Tick      uint64 `json:"tick"`
	From      string `json:"from"`
	To        string `json:"to"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
}

type DirectionChange struct {
	Tick uint64    `json:"tick"`
	From Direction `json:"from"`
	To   Direction `json:"to"`
}

// LogEvents writes every bus event to logger. Cancel the returned
// subscription to stop.
func LogEvents(b bus.EventBus, logger log.Log) (bus.Subscription, error) {
	return b.Subscribe(bus.Wildcard, func(e bus.Event) error {
		switch data := e.Data().(type) {
		case GearShift:
			logger.Info("Gear shifted",
				log.String("from", data.From),
				log.String("to", data.To),
				log.Uint64("tick", data.Tick))
		case DirectionChange:
			logger.Info("Steering direction changed",
				log.Stringer("from", data.From),
				log.Stringer("to", data.To),
				log.Uint64("tick", data.Tick))
		default:
			logger.Debug("Event",
				log.String("type", e.Type()),
				log.String("source", e.Source()),
				log.Any("data", data))
		}
		return nil
	})
}
