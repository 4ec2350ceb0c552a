package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/diffsim/internal/core/observability/log"
)

// viewer is one websocket connection. Only writePump writes to conn.
type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (v *viewer) close() {
	v.closeOnce.Do(func() {
		close(v.done)
		_ = v.conn.Close()
	})
}

// Hub tracks connected viewers and fans payloads out to them without
// blocking the caller. A viewer whose queue is full is dropped.
type Hub struct {
	mu         sync.RWMutex
	viewers    map[string]*viewer
	latest     []byte
	maxViewers int
	sendBuffer int
	logger     log.Log
}

func NewHub(maxViewers, sendBuffer int, logger log.Log) *Hub {
	if logger == nil {
		logger = log.Nop()
	}
	return &Hub{
		viewers:    make(map[string]*viewer),
		maxViewers: maxViewers,
		sendBuffer: sendBuffer,
		logger:     logger,
	}
}

// Count returns the number of connected viewers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// register adds conn and queues the hello and the latest frame for it.
func (h *Hub) register(conn *websocket.Conn) (*viewer, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxViewers > 0 && len(h.viewers) >= h.maxViewers {
		return nil, ErrMaxViewersReached
	}

	v := &viewer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.sendBuffer+2),
		done: make(chan struct{}),
	}
	v.send <- mustEnvelope(Envelope{Type: TypeHello, ViewerID: v.id})
	if h.latest != nil {
		v.send <- h.latest
	}
	h.viewers[v.id] = v

	h.logger.Info("Viewer connected",
		log.String("viewer_id", v.id),
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int("total_viewers", len(h.viewers)))
	return v, nil
}

func (h *Hub) unregister(v *viewer, reason error) {
	h.mu.Lock()
	_, ok := h.viewers[v.id]
	delete(h.viewers, v.id)
	total := len(h.viewers)
	h.mu.Unlock()

	v.close()
	if !ok {
		return
	}
	fields := []log.Field{log.String("viewer_id", v.id), log.Int("total_viewers", total)}
	if reason != nil {
		fields = append(fields, log.ErrorWithKey("reason", reason))
	}
	h.logger.Info("Viewer disconnected", fields...)
}

// Broadcast queues payload for every viewer and remembers it for viewers
// that join later. It returns how many viewers accepted the payload.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.Lock()
	h.latest = payload
	var slow []*viewer
	sent := 0
	for _, v := range h.viewers {
		select {
		case v.send <- payload:
			sent++
		default:
			slow = append(slow, v)
		}
	}
	h.mu.Unlock()

	for _, v := range slow {
		h.unregister(v, ErrSlowViewer)
	}
	return sent
}

// reply queues a payload for a single viewer, dropping it if the queue is full.
func (h *Hub) reply(v *viewer, payload []byte) {
	select {
	case v.send <- payload:
	default:
	}
}

// CloseAll disconnects every viewer.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	viewers := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.Unlock()

	for _, v := range viewers {
		h.unregister(v, ErrServerClosed)
	}
}

// writePump drains the viewer queue onto the connection.
func (h *Hub) writePump(v *viewer, writeTimeout time.Duration) {
	defer h.unregister(v, nil)
	for {
		select {
		case <-v.done:
			return
		case payload := <-v.send:
			if writeTimeout > 0 {
				_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("Viewer write failed", log.String("viewer_id", v.id), log.Error(err))
				return
			}
		}
	}
}
