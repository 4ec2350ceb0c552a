// Package feed publishes simulation frames to remote viewers over websocket
// and accepts their key input. The server is a presentation.Sink: the tick
// loop hands it every frame and it fans them out without blocking.
package feed

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/websocket"

	"github.com/zeusync/diffsim/internal/core/observability/log"
	"github.com/zeusync/diffsim/internal/presentation"
	"github.com/zeusync/diffsim/pkg/generic"
)

var encodeBuffers = generic.NewPool(func() *bytes.Buffer {
	return bytes.NewBuffer(make([]byte, 0, 2048))
}, (*bytes.Buffer).Reset)

// Config holds feed server configuration
type Config struct {
	Addr         string
	WriteTimeout time.Duration
	SendBuffer   int
	MaxViewers   int
	// MaxMessageSize bounds inbound viewer messages.
	MaxMessageSize int64
}

// DefaultConfig returns default feed configuration
func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8090",
		WriteTimeout:   2 * time.Second,
		SendBuffer:     16,
		MaxViewers:     64,
		MaxMessageSize: 1024,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: empty addr", ErrInvalidConfig)
	case c.SendBuffer <= 0:
		return fmt.Errorf("%w: send buffer must be positive", ErrInvalidConfig)
	case c.MaxViewers < 0:
		return fmt.Errorf("%w: negative max viewers", ErrInvalidConfig)
	case c.WriteTimeout < 0:
		return fmt.Errorf("%w: negative write timeout", ErrInvalidConfig)
	}
	return nil
}

// Server serves the viewer feed.
type Server struct {
	config   Config
	input    presentation.KeyInput
	hub      *Hub
	upgrader websocket.Upgrader
	logger   log.Log

	mu       sync.RWMutex // guards the frame state below and listener
	latest   []byte       // JSON encoded frame
	tick     uint64
	lastHash uint64
	hashed   bool
	skipped  atomic.Uint64

	httpServer *http.Server
	listener   net.Listener
	running    atomic.Bool
	closed     atomic.Bool
	serveDone  chan struct{}
}

// NewServer creates a feed server. input may be nil for a read-only feed.
func NewServer(config Config, input presentation.KeyInput, logger log.Log) (*Server, error) {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultConfig().MaxMessageSize
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With(log.String("component", "feed"))

	s := &Server{
		config: config,
		input:  input,
		hub:    NewHub(config.MaxViewers, config.SendBuffer, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
	return s, nil
}

// Handler exposes the feed routes so the server can be mounted or tested
// without Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Viewers returns the number of connected viewers.
func (s *Server) Viewers() int { return s.hub.Count() }

// Skipped returns how many frames were not broadcast because nothing visible changed.
func (s *Server) Skipped() uint64 { return s.skipped.Load() }

// Render implements presentation.Sink. Frames that look identical to the
// previous broadcast, ignoring the tick counter, are remembered for
// /snapshot but not sent.
func (s *Server) Render(frame presentation.Frame) error {
	buf := encodeBuffers.Get()
	defer encodeBuffers.Put(buf)
	if err := json.NewEncoder(buf).Encode(frame); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := bytes.Clone(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	hash := fingerprint(frame)

	s.mu.Lock()
	s.latest = data
	s.tick = frame.Snapshot.Tick
	duplicate := s.hashed && hash == s.lastHash
	s.lastHash, s.hashed = hash, true
	s.mu.Unlock()

	if duplicate {
		s.skipped.Add(1)
		return nil
	}
	s.hub.Broadcast(mustEnvelope(Envelope{Type: TypeFrame, Frame: data}))
	return nil
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		s.running.Store(false)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.serveDone = make(chan struct{})

	go func() {
		defer close(s.serveDone)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Feed server failed", log.Error(err))
		}
	}()

	s.logger.Info("Feed listening", log.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started. It is safe to poll from
// another goroutine while Start runs.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the HTTP server down and disconnects every viewer.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping feed")
	err := s.httpServer.Shutdown(ctx)
	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.CloseAll()
	<-s.serveDone

	s.logger.Info("Feed stopped")
	return err
}

// Close stops the server if running and prevents restarts.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.running.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(ctx)
	}
	return nil
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	v, err := s.hub.register(conn)
	if err != nil {
		s.logger.Warn("Rejecting viewer",
			log.String("remote_addr", conn.RemoteAddr().String()),
			log.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	go s.hub.writePump(v, s.config.WriteTimeout)
	s.readPump(v)
}

// readPump applies viewer key messages until the connection closes.
func (s *Server) readPump(v *viewer) {
	defer s.hub.unregister(v, nil)
	v.conn.SetReadLimit(s.config.MaxMessageSize)

	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Viewer read failed", log.String("viewer_id", v.id), log.Error(err))
			}
			return
		}

		if err = s.applyMessage(data); err != nil {
			s.logger.Debug("Invalid viewer message", log.String("viewer_id", v.id), log.Error(err))
			s.hub.reply(v, mustEnvelope(Envelope{Type: TypeError, Error: err.Error()}))
		}
	}
}

func (s *Server) applyMessage(data []byte) error {
	var msg KeyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if s.input == nil {
		return fmt.Errorf("%w: feed is read-only", ErrInvalidMessage)
	}
	return msg.Apply(s.input, time.Now())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	data := s.latest
	s.mu.RUnlock()

	if data == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

type health struct {
	Status  string `json:"status"`
	Tick    uint64 `json:"tick"`
	Viewers int    `json:"viewers"`
	Skipped uint64 `json:"skipped"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	tick := s.tick
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(health{
		Status:  "ok",
		Tick:    tick,
		Viewers: s.hub.Count(),
		Skipped: s.skipped.Load(),
	})
}

// fingerprint hashes what a viewer can see: gear, angles and speeds.
func fingerprint(f presentation.Frame) uint64 {
	s := f.Snapshot
	values := [...]float64{
		s.SteeringAngle,
		s.Angles.Ring,
		s.Angles.Pinion,
		s.Angles.SpiderCarrier,
		s.Angles.SpiderRotation,
		s.Angles.LeftSideGear,
		s.Angles.RightSideGear,
		s.BaseSpeed,
		s.LeftSpeed,
		s.RightSpeed,
	}

	var buf [8 + 8*len(values)]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(s.GearIndex))
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[8+8*i:], math.Float64bits(v))
	}
	return xxhash.Sum64(buf[:])
}
