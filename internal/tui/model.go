// Package tui is the terminal front end. It maps key presses onto the
// presentation latch, drives the runner from Bubble Tea ticks and draws the
// latest frame.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zeusync/diffsim/internal/presentation"
	"github.com/zeusync/diffsim/pkg/sequence"
)

// Driver is the part of presentation.Runner the terminal needs.
type Driver interface {
	Input() presentation.KeyInput
	Tick(at time.Time) presentation.Frame
	Last() presentation.Frame
	Paused() bool
	SetPaused(paused bool)
}

// TickMsg is sent to trigger a simulation tick.
type TickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

type Config struct {
	Interval    time.Duration
	HistorySize int
	// TopSpeed scales the speed bar and chart. Zero means 1.
	TopSpeed float64
	// LastGear is the highest gear index, used to size the gate. Zero means 3.
	LastGear int
}

// Model contains the latest frame, wheel speed history and UI context.
type Model struct {
	driver Driver
	config Config

	frame       presentation.Frame
	leftSpeeds  *sequence.Ring[float64]
	rightSpeeds *sequence.Ring[float64]

	width    int
	height   int
	showHelp bool
	quitting bool
}

func New(driver Driver, config Config) Model {
	if config.HistorySize <= 0 {
		config.HistorySize = 120
	}
	if config.TopSpeed <= 0 {
		config.TopSpeed = 1
	}
	if config.Interval <= 0 {
		config.Interval = 20 * time.Millisecond
	}
	if config.LastGear <= 0 {
		config.LastGear = 3
	}
	return Model{
		driver:      driver,
		config:      config,
		frame:       driver.Last(),
		leftSpeeds:  sequence.NewRing[float64](config.HistorySize),
		rightSpeeds: sequence.NewRing[float64](config.HistorySize),
		width:       80,
		height:      24,
		showHelp:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.config.Interval)
}

// Frame returns the frame currently on screen.
func (m Model) Frame() presentation.Frame { return m.frame }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case TickMsg:
		if m.quitting {
			return m, nil
		}
		m.step(time.Time(msg))
		return m, tickCmd(m.config.Interval)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	now := time.Now()
	input := m.driver.Input()

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case " ", "space", "p":
		m.driver.SetPaused(!m.driver.Paused())
	case "?":
		m.showHelp = !m.showHelp
	// Terminals only report presses, repeated while a key is held. The
	// latch hold window turns those into a continuous hold.
	case "left", "a":
		input.Press(presentation.KeySteerLeft, now)
	case "right", "d":
		input.Press(presentation.KeySteerRight, now)
	case "up", "w":
		input.Tap(presentation.KeyShiftUp, now)
	case "down", "s":
		input.Tap(presentation.KeyShiftDown, now)
	}
	return m, nil
}

func (m *Model) step(at time.Time) {
	if m.driver.Paused() {
		m.frame = m.driver.Last()
		return
	}
	m.frame = m.driver.Tick(at)
	m.leftSpeeds.Push(m.frame.Snapshot.LeftSpeed)
	m.rightSpeeds.Push(m.frame.Snapshot.RightSpeed)
}
