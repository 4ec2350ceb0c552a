package presentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/diffsim/internal/core/differential"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestLatch_SteerIsLevel(t *testing.T) {
	l := NewLatch(0)

	l.Press(KeySteerLeft, t0)
	for i := 0; i < 3; i++ {
		assert.Equal(t, differential.Controls{SteerLeft: true}, l.Sample(t0.Add(time.Duration(i)*time.Second)))
	}

	l.Release(KeySteerLeft, t0)
	assert.Equal(t, differential.Controls{}, l.Sample(t0))
}

func TestLatch_GearFiresOnRelease(t *testing.T) {
	l := NewLatch(0)

	l.Press(KeyShiftUp, t0)
	assert.False(t, l.Sample(t0).ShiftUp, "holding the key does not shift")

	l.Release(KeyShiftUp, t0)
	assert.True(t, l.Sample(t0).ShiftUp)
	assert.False(t, l.Sample(t0).ShiftUp, "edge fires once")
}

func TestLatch_QueuedShiftsDeliverOnePerTick(t *testing.T) {
	l := NewLatch(0)
	for i := 0; i < 3; i++ {
		l.Tap(KeyShiftDown, t0)
	}
	l.Tap(KeyShiftUp, t0)

	c := l.Sample(t0)
	assert.True(t, c.ShiftDown)
	assert.True(t, c.ShiftUp)
	assert.True(t, l.Sample(t0).ShiftDown)
	c = l.Sample(t0)
	assert.True(t, c.ShiftDown)
	assert.False(t, c.ShiftUp)
	assert.Equal(t, differential.Controls{}, l.Sample(t0))
}

func TestLatch_ReleaseWithoutPressIsIgnored(t *testing.T) {
	l := NewLatch(0)
	l.Release(KeyShiftUp, t0)
	l.Release(Key(42), t0)
	l.Press(Key(42), t0)
	assert.Equal(t, differential.Controls{}, l.Sample(t0))
}

func TestLatch_HoldWindowExpires(t *testing.T) {
	l := NewLatch(100 * time.Millisecond)

	l.Press(KeySteerRight, t0)
	assert.True(t, l.Sample(t0.Add(50*time.Millisecond)).SteerRight)

	// a key repeat refreshes the hold
	l.Press(KeySteerRight, t0.Add(90*time.Millisecond))
	assert.True(t, l.Sample(t0.Add(150*time.Millisecond)).SteerRight)

	assert.False(t, l.Sample(t0.Add(200*time.Millisecond)).SteerRight)
}

func TestLatch_HoldWindowExpiryShiftsGear(t *testing.T) {
	l := NewLatch(100 * time.Millisecond)

	l.Press(KeyShiftUp, t0)
	assert.False(t, l.Sample(t0).ShiftUp)
	assert.True(t, l.Sample(t0.Add(time.Second)).ShiftUp)
}

func TestLatch_Reset(t *testing.T) {
	l := NewLatch(0)
	l.Press(KeySteerLeft, t0)
	l.Tap(KeyShiftUp, t0)
	l.Reset()
	assert.Equal(t, differential.Controls{}, l.Sample(t0))
}

func TestParseKey(t *testing.T) {
	for _, k := range []Key{KeyShiftUp, KeyShiftDown, KeySteerLeft, KeySteerRight} {
		parsed, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	got, err := ParseKey("STEER_LEFT")
	require.NoError(t, err)
	assert.Equal(t, KeySteerLeft, got)

	_, err = ParseKey("space")
	assert.ErrorIs(t, err, ErrUnknownKey)
}
