// Package presentation is the adapter between front ends and the kinematic
// core. It converts raw key transitions into per-tick controls, drives the
// tick loop, and turns snapshots into renderable frames and status text.
// It never computes kinematics itself.
package presentation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/diffsim/internal/core/differential"
	"github.com/zeusync/diffsim/internal/core/events/bus"
	"github.com/zeusync/diffsim/internal/core/observability/log"
)

// Sink consumes frames. Render is called from the tick loop and must not block.
type Sink interface {
	Render(frame Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame) error

func (f SinkFunc) Render(frame Frame) error { return f(frame) }

type RunnerConfig struct {
	Interval time.Duration
	Layout   Layout
	Bus      bus.EventBus // optional
	Logger   log.Log      // optional
}

// Runner owns the core and advances it once per tick.
type Runner struct {
	latch    *Latch
	layout   Layout
	interval time.Duration
	bus      bus.EventBus
	logger   log.Log

	mu    sync.Mutex
	core  *differential.Core
	sinks []Sink
	last  Frame

	paused  atomic.Bool
	running atomic.Bool
}

func NewRunner(core *differential.Core, latch *Latch, cfg RunnerConfig) (*Runner, error) {
	if core == nil {
		return nil, ErrNilCore
	}
	if cfg.Interval <= 0 {
		return nil, ErrInvalidTick
	}
	if latch == nil {
		latch = NewLatch(0)
	}
	if cfg.Layout.TopSpeed <= 0 {
		cfg.Layout = DefaultLayout(core.Constants().Gears.TopSpeed())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	r := &Runner{
		latch:    latch,
		layout:   cfg.Layout,
		interval: cfg.Interval,
		bus:      cfg.Bus,
		logger:   logger.With(log.String("component", "runner")),
		core:     core,
	}
	r.last = Compose(core.Snapshot(), r.layout)
	return r, nil
}

// Input is where front ends deliver key transitions.
func (r *Runner) Input() KeyInput { return r.latch }

func (r *Runner) Interval() time.Duration { return r.interval }

// AddSink registers a frame consumer. Sinks added while running see the next tick.
func (r *Runner) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Last returns the most recent frame, or the initial state before any tick.
func (r *Runner) Last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Runner) Paused() bool { return r.paused.Load() }

// SetPaused stops or resumes stepping. While paused Tick returns the last
// frame and leaves queued input untouched.
func (r *Runner) SetPaused(paused bool) {
	if r.paused.Swap(paused) == paused {
		return
	}
	event := EventResumed
	if paused {
		event = EventPaused
	}
	r.publish(bus.NewEvent(event, eventSource, nil))
}

// Tick samples input, advances the core by one step and fans the frame out.
func (r *Runner) Tick(at time.Time) Frame {
	if r.paused.Load() {
		return r.Last()
	}

	r.mu.Lock()
	prev := r.last
	controls := r.latch.Sample(at)
	frame := Compose(r.core.Step(controls), r.layout)
	r.last = frame
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.Unlock()

	r.announce(prev, frame)

	for _, s := range sinks {
		if err := s.Render(frame); err != nil {
			r.logger.Warn("Sink rejected frame", log.Uint64("tick", frame.Snapshot.Tick), log.Error(err))
		}
	}
	return frame
}

// Run ticks at the configured interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunnerRunning
	}
	defer r.running.Store(false)

	r.logger.Info("Tick loop started", log.Duration("interval", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Tick loop stopped", log.Uint64("tick", r.Last().Snapshot.Tick))
			return nil
		case now := <-ticker.C:
			r.Tick(now)
		}
	}
}

func (r *Runner) announce(prev, next Frame) {
	if r.bus == nil {
		return
	}
	tick := next.Snapshot.Tick
	if prev.Snapshot.GearIndex != next.Snapshot.GearIndex {
		r.publish(bus.NewEvent(EventGearShifted, eventSource, GearShift{
			Tick:      tick,
			From:      prev.Snapshot.GearLabel,
			To:        next.Snapshot.GearLabel,
			FromIndex: prev.Snapshot.GearIndex,
			ToIndex:   next.Snapshot.GearIndex,
		}))
	}
	if prev.Status.Direction != next.Status.Direction {
		r.publish(bus.NewEvent(EventDirectionChanged, eventSource, DirectionChange{
			Tick: tick,
			From: prev.Status.Direction,
			To:   next.Status.Direction,
		}))
	}
}

func (r *Runner) publish(e bus.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(e); err != nil {
		r.logger.Warn("Event handler failed", log.String("event", e.Type()), log.Error(err))
	}
}
