package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/diffsim/internal/core/differential"
	"github.com/zeusync/diffsim/internal/presentation"
)

func newModel(t *testing.T, holdWindow time.Duration) Model {
	t.Helper()
	core, err := differential.New(differential.DefaultConstants(), differential.WithInitialGear(1))
	require.NoError(t, err)
	runner, err := presentation.NewRunner(core, presentation.NewLatch(holdWindow), presentation.RunnerConfig{Interval: 20 * time.Millisecond})
	require.NoError(t, err)
	return New(runner, Config{Interval: 20 * time.Millisecond, HistorySize: 4, TopSpeed: 3.5})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModel_InitSchedulesTick(t *testing.T) {
	m := newModel(t, time.Second)
	assert.NotNil(t, m.Init())
	assert.EqualValues(t, 0, m.Frame().Snapshot.Tick)
	assert.Equal(t, "1", m.Frame().Snapshot.GearLabel)
}

func TestModel_SteerAndShift(t *testing.T) {
	m := newModel(t, time.Second)

	m, _ = update(t, m, key(tea.KeyLeft))
	m, cmd := update(t, m, TickMsg(time.Now()))
	assert.NotNil(t, cmd, "tick reschedules itself")
	assert.Equal(t, 5.0, m.Frame().Snapshot.SteeringAngle)

	m, _ = update(t, m, key(tea.KeyUp))
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Equal(t, "2", m.Frame().Snapshot.GearLabel)
	assert.Equal(t, 10.0, m.Frame().Snapshot.SteeringAngle, "left is still inside the hold window")

	m, _ = update(t, m, runes("s"))
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Equal(t, "1", m.Frame().Snapshot.GearLabel)
}

func TestModel_HoldWindowReleasesSteering(t *testing.T) {
	m := newModel(t, 200*time.Millisecond)

	m, _ = update(t, m, key(tea.KeyRight))
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Equal(t, -5.0, m.Frame().Snapshot.SteeringAngle)

	m, _ = update(t, m, TickMsg(time.Now().Add(time.Second)))
	assert.Equal(t, -3.0, m.Frame().Snapshot.SteeringAngle, "auto-centres once the key expires")
}

func TestModel_PauseFreezesFrame(t *testing.T) {
	m := newModel(t, time.Second)
	m, _ = update(t, m, TickMsg(time.Now()))
	frozen := m.Frame()

	m, _ = update(t, m, runes(" "))
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, TickMsg(time.Now()))
	}
	assert.Equal(t, frozen, m.Frame())
	assert.Contains(t, m.View(), "PAUSED")
	assert.Equal(t, 1, m.leftSpeeds.Len(), "history does not grow while paused")

	m, _ = update(t, m, runes(" "))
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.EqualValues(t, 2, m.Frame().Snapshot.Tick)
}

func TestModel_HistoryIsBounded(t *testing.T) {
	m := newModel(t, time.Second)
	m, _ = update(t, m, key(tea.KeyLeft))
	for i := 0; i < 10; i++ {
		m, _ = update(t, m, TickMsg(time.Now()))
	}
	require.Equal(t, 4, m.leftSpeeds.Len())
	require.Equal(t, 4, m.rightSpeeds.Len())
	last := m.Frame().Snapshot
	assert.Equal(t, last.LeftSpeed, m.leftSpeeds.Slice()[3])
	assert.Equal(t, last.RightSpeed, m.rightSpeeds.Slice()[3])
}

func TestModel_Quit(t *testing.T) {
	m := newModel(t, time.Second)
	m, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())

	_, cmd = update(t, m, TickMsg(time.Now()))
	assert.Nil(t, cmd, "no ticks after quitting")
}

func TestModel_View(t *testing.T) {
	m := newModel(t, time.Second)
	m, _ = update(t, m, key(tea.KeyLeft))
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, TickMsg(time.Now()))
	}

	view := m.View()
	assert.Contains(t, view, "gear: 1 | turning left")
	assert.Contains(t, view, "spider carrier")
	assert.Contains(t, view, "wheel speed")
	assert.Contains(t, view, "●")

	m, _ = update(t, m, runes("?"))
	assert.NotContains(t, m.View(), "q quit")
}

func TestArrow(t *testing.T) {
	cases := map[float64]string{
		0:    "→",
		22:   "→",
		23:   "↗",
		90:   "↑",
		180:  "←",
		270:  "↓",
		359:  "→",
		-90:  "↓",
		-135: "↙",
	}
	for deg, want := range cases {
		assert.Equal(t, want, Arrow(deg), "deg %v", deg)
	}
}

func TestGearGate(t *testing.T) {
	gate := gearGate(3, presentation.GearSlot(0))
	lines := strings.Split(gate, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "●", "neutral sits on the cross bar")
	assert.Equal(t, 2, strings.Count(lines[0], "│"))
}

func TestGearGate_SizedByTable(t *testing.T) {
	gate := gearGate(5, presentation.GearSlot(1))
	lines := strings.Split(gate, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, 3, strings.Count(lines[2], "│"), "slots for gears 4 and 5 are drawn before they are selected")
	assert.Contains(t, lines[0], "●")
}

type tapCounter struct {
	presentation.KeyInput
	taps []presentation.Key
}

func (c *tapCounter) Tap(k presentation.Key, at time.Time) {
	c.taps = append(c.taps, k)
	c.KeyInput.Tap(k, at)
}

type countingDriver struct {
	*presentation.Runner
	input *tapCounter
}

func (d countingDriver) Input() presentation.KeyInput { return d.input }

func TestModel_GearKeysTap(t *testing.T) {
	core, err := differential.New(differential.DefaultConstants(), differential.WithInitialGear(1))
	require.NoError(t, err)
	runner, err := presentation.NewRunner(core, presentation.NewLatch(time.Second), presentation.RunnerConfig{Interval: 20 * time.Millisecond})
	require.NoError(t, err)
	driver := countingDriver{Runner: runner, input: &tapCounter{KeyInput: runner.Input()}}
	m := New(driver, Config{Interval: 20 * time.Millisecond, HistorySize: 4, TopSpeed: 3.5})

	m, _ = update(t, m, key(tea.KeyUp))
	m, _ = update(t, m, runes("w"))
	m, _ = update(t, m, key(tea.KeyDown))
	assert.Equal(t, []presentation.Key{presentation.KeyShiftUp, presentation.KeyShiftUp, presentation.KeyShiftDown}, driver.input.taps)

	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Equal(t, "1", m.Frame().Snapshot.GearLabel, "up and down in the same tick cancel")
	m, _ = update(t, m, TickMsg(time.Now()))
	assert.Equal(t, "2", m.Frame().Snapshot.GearLabel, "the second up edge waits a tick")
}
