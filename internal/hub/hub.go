// Package hub fans events out to Server-Sent Events clients.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	broadcastBuffer  = 256
	clientBuffer     = 64
	defaultKeepAlive = 30 * time.Second
)

var sseHeaders = [][2]string{
	{"Content-Type", "text/event-stream"},
	{"Cache-Control", "no-cache"},
	{"Connection", "keep-alive"},
	{"Access-Control-Allow-Origin", "*"},
	{"X-Accel-Buffering", "no"},
}

type subscriber struct {
	id    string
	queue chan []byte
}

// Hub tracks SSE subscribers and delivers every broadcast value to each of
// them as a JSON data frame. A subscriber that falls behind loses frames.
type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*subscriber
	join      chan *subscriber
	leave     chan *subscriber
	broadcast chan any
	stopped   chan struct{}
	logger    *slog.Logger
	keepAlive time.Duration
}

// New creates a hub. Call Run to start delivering events.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:      make(map[string]*subscriber),
		join:      make(chan *subscriber),
		leave:     make(chan *subscriber),
		broadcast: make(chan any, broadcastBuffer),
		stopped:   make(chan struct{}),
		logger:    logger.With("component", "hub"),
		keepAlive: defaultKeepAlive,
	}
}

// Run owns subscriber membership until ctx is cancelled. On exit every
// subscriber queue is closed and later connections get 503.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	defer h.dropAll()

	for {
		select {
		case s := <-h.join:
			h.mu.Lock()
			h.subs[s.id] = s
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("subscriber joined", "client", s.id, "total", n)
		case s := <-h.leave:
			h.drop(s)
		case v := <-h.broadcast:
			h.fanOut(v)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) fanOut(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("event not encodable", "error", err)
		return
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		select {
		case s.queue <- frame:
		default:
			h.logger.Warn("subscriber behind, frame dropped", "client", s.id)
		}
	}
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		close(s.queue)
	}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("subscriber left", "client", s.id, "total", n)
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.queue)
	}
}

// Broadcast queues v for delivery without blocking. It is dropped when the
// hub is saturated.
func (h *Hub) Broadcast(v any) {
	select {
	case h.broadcast <- v:
	default:
		h.logger.Warn("broadcast queue full, event dropped")
	}
}

// Forward broadcasts every value received on events until ctx is done or
// the channel is closed
func Forward[T any](ctx context.Context, h *Hub, events <-chan T) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.Broadcast(ev)
		case <-ctx.Done():
			return
		}
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// ServeHTTP streams frames to one subscriber until the request ends or the
// hub stops
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	s := &subscriber{id: uuid.NewString(), queue: make(chan []byte, clientBuffer)}
	select {
	case h.join <- s:
	case <-h.stopped:
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}
	defer func() {
		select {
		case h.leave <- s:
		case <-h.stopped:
		}
	}()

	for _, kv := range sseHeaders {
		w.Header().Set(kv[0], kv[1])
	}
	h.stream(r.Context(), w, flusher, s)
}

func (h *Hub) stream(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, s *subscriber) {
	write := func(b []byte) bool {
		if _, err := w.Write(b); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !write([]byte(": connected\n\n")) {
		return
	}

	tick := time.NewTicker(h.keepAlive)
	defer tick.Stop()

	for {
		select {
		case frame, ok := <-s.queue:
			if !ok || !write(frame) {
				return
			}
		case <-tick.C:
			if !write([]byte(": keepalive\n\n")) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
