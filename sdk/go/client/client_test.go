package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/diffsim/internal/core/differential"
	"github.com/zeusync/diffsim/internal/feed"
	"github.com/zeusync/diffsim/internal/presentation"
)

func startFeed(t *testing.T, input presentation.KeyInput) (*feed.Server, string) {
	t.Helper()
	s, err := feed.NewServer(feed.DefaultConfig(), input, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func frame(tick uint64, ring float64) presentation.Frame {
	return presentation.Compose(differential.Snapshot{
		Tick:      tick,
		GearLabel: "2",
		GearIndex: 2,
		Angles:    differential.AngleState{Ring: ring},
	}, presentation.DefaultLayout(3.5))
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_ReceivesFrames(t *testing.T) {
	s, url := startFeed(t, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()
	assert.NotEmpty(t, c.ViewerID())

	require.NoError(t, s.Render(frame(1, 10)))
	require.NoError(t, s.Render(frame(2, 20)))

	f, err := c.Next(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.Snapshot.Tick)
	f, err = c.Next(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.Snapshot.Tick)
	assert.Equal(t, "2", f.Status.Gear)
}

func TestClient_DrivesLatch(t *testing.T) {
	latch := presentation.NewLatch(0)
	_, url := startFeed(t, latch)
	ctx := testContext(t)

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Press(presentation.KeySteerRight))
	require.NoError(t, c.Tap(presentation.KeyShiftUp))

	want := differential.Controls{SteerRight: true, ShiftUp: true}
	require.Eventually(t, func() bool {
		// sampling consumes the shift edge, so only check once both arrived
		return latch.Sample(time.Now()) == want
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Release(presentation.KeySteerRight))
	require.Eventually(t, func() bool {
		return latch.Sample(time.Now()) == differential.Controls{}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReadOnlyFeedReportsServerError(t *testing.T) {
	_, url := startFeed(t, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Press(presentation.KeySteerLeft))
	_, err = c.Next(ctx)
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr), "got %v", err)
	assert.Contains(t, serverErr.Message, "read-only")
}

func TestClient_Close(t *testing.T) {
	_, url := startFeed(t, nil)
	ctx := testContext(t)

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	_, err = c.Next(ctx)
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, c.Press(presentation.KeyShiftUp), ErrClientClosed)
}

func TestClient_KeepsNewestFrames(t *testing.T) {
	s, url := startFeed(t, nil)
	ctx := testContext(t)

	cfg := DefaultClientConfig()
	cfg.FrameBuffer = 1
	c, err := DialConfig(ctx, url, cfg)
	require.NoError(t, err)
	defer c.Close()

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, s.Render(frame(i, float64(i))))
	}

	require.Eventually(t, func() bool {
		f, err := c.Next(ctx)
		return err == nil && f.Snapshot.Tick == 5
	}, 2*time.Second, time.Millisecond)
}

func TestDialConfig_Validates(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.FrameBuffer = 0
	_, err := DialConfig(context.Background(), "ws://127.0.0.1:1/ws", cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
