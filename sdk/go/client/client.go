// Package client is a Go SDK for watching a diffsim feed and driving it
// with key input.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/diffsim/internal/core/observability/log"
	"github.com/zeusync/diffsim/internal/feed"
	"github.com/zeusync/diffsim/internal/presentation"
)

// Config holds configuration for the client
type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// FrameBuffer is how many undelivered frames are kept. When it is full
	// the oldest frame is discarded.
	FrameBuffer int
	Logger      log.Log
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		DialTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Second,
		FrameBuffer:  8,
	}
}

type item struct {
	frame presentation.Frame
	err   error
}

// Client is one viewer connection.
type Client struct {
	conn     *websocket.Conn
	viewerID string
	config   Config
	logger   log.Log

	items   chan item
	readErr error // set before items is closed

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
}

// Dial connects to the feed at url (ws://host:port/ws) with default settings.
func Dial(ctx context.Context, url string) (*Client, error) {
	return DialConfig(ctx, url, DefaultClientConfig())
}

// DialConfig connects and waits for the server greeting.
func DialConfig(ctx context.Context, url string, config Config) (*Client, error) {
	if config.FrameBuffer <= 0 {
		return nil, fmt.Errorf("%w: frame buffer must be positive", ErrInvalidConfig)
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Nop()
	}

	if config.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.DialTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		logger.Error("Failed to connect to feed", log.String("url", url), log.Error(err))
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var hello feed.Envelope
	if err = conn.ReadJSON(&hello); err != nil || hello.Type != feed.TypeHello {
		_ = conn.Close()
		return nil, errors.Join(ErrNoHello, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:     conn,
		viewerID: hello.ViewerID,
		config:   config,
		logger:   logger.With(log.String("component", "client"), log.String("viewer_id", hello.ViewerID)),
		items:    make(chan item, config.FrameBuffer),
		done:     make(chan struct{}),
	}
	go c.receive()

	c.logger.Info("Connected to feed", log.String("url", url))
	return c, nil
}

// ViewerID is the id the server assigned to this connection.
func (c *Client) ViewerID() string { return c.viewerID }

// Next blocks until the next frame arrives. A *ServerError may be returned
// between frames; any other error means the connection is gone.
func (c *Client) Next(ctx context.Context) (presentation.Frame, error) {
	select {
	case <-ctx.Done():
		return presentation.Frame{}, ctx.Err()
	case it, ok := <-c.items:
		if !ok {
			return presentation.Frame{}, c.readErr
		}
		return it.frame, it.err
	}
}

// Press sends a key-down for one of up, down, left, right.
func (c *Client) Press(key presentation.Key) error {
	return c.send(key, feed.ActionDown)
}

// Release sends a key-up.
func (c *Client) Release(key presentation.Key) error {
	return c.send(key, feed.ActionUp)
}

// Tap sends a press and release in one message.
func (c *Client) Tap(key presentation.Key) error {
	return c.send(key, feed.ActionTap)
}

func (c *Client) send(key presentation.Key, action string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	msg := feed.KeyMessage{Type: "key", Key: key.String(), Action: action}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.logger.Error("Failed to send key", log.Stringer("key", key), log.Error(err))
		return err
	}
	return nil
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	c.logger.Info("Client closed")
	return err
}

// receive decodes envelopes until the connection fails.
func (c *Client) receive() {
	defer close(c.done)
	defer close(c.items)

	for {
		var env feed.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if c.closed.Load() {
				c.readErr = ErrClientClosed
			} else {
				c.readErr = err
				c.logger.Warn("Feed connection lost", log.Error(err))
			}
			return
		}

		switch env.Type {
		case feed.TypeFrame:
			var f presentation.Frame
			if err := json.Unmarshal(env.Frame, &f); err != nil {
				c.push(item{err: fmt.Errorf("%w: %w", ErrInvalidResponse, err)})
				continue
			}
			c.push(item{frame: f})
		case feed.TypeError:
			c.push(item{err: &ServerError{Message: env.Error}})
		default:
			c.logger.Debug("Ignoring feed message", log.String("type", env.Type))
		}
	}
}

// push never blocks: it evicts the oldest undelivered item instead.
func (c *Client) push(it item) {
	for {
		select {
		case c.items <- it:
			return
		default:
		}
		select {
		case dropped := <-c.items:
			if dropped.err == nil {
				c.logger.Debug("Dropped stale frame", log.Uint64("tick", dropped.frame.Snapshot.Tick))
			}
		default:
		}
	}
}
