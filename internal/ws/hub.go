// Package ws fans out admin events (broadcast progress) to connected
// websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	queueSize  = 64
	outboxSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed sits behind the admin API key, not a browser session.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is the JSON frame sent to feed subscribers.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	conn   *websocket.Conn
	outbox chan []byte
}

// Hub keeps the connected admin feeds and the latest frame per event type,
// which is replayed to feeds that connect mid-broadcast.
type Hub struct {
	events  chan frame
	join    chan *subscriber
	leave   chan *subscriber
	stopped chan struct{}

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	latest map[string][]byte

	logger *slog.Logger
}

type frame struct {
	kind    string
	payload []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		events:  make(chan frame, queueSize),
		join:    make(chan *subscriber),
		leave:   make(chan *subscriber),
		stopped: make(chan struct{}),
		subs:    make(map[*subscriber]struct{}),
		latest:  make(map[string][]byte),
		logger:  logger.With(slog.String("component", "ws_hub")),
	}
}

// Run delivers published events until ctx is done, then disconnects every
// subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subs {
				h.drop(s)
			}
			h.mu.Unlock()
			return

		case s := <-h.join:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			for _, payload := range h.latest {
				s.outbox <- payload
			}
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("Feed subscriber joined", slog.Int("subscribers", n))

		case s := <-h.leave:
			h.mu.Lock()
			h.drop(s)
			h.mu.Unlock()

		case f := <-h.events:
			h.mu.Lock()
			h.latest[f.kind] = f.payload
			for s := range h.subs {
				select {
				case s.outbox <- f.payload:
				default:
					h.logger.Warn("Feed subscriber too slow, disconnecting")
					h.drop(s)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(s *subscriber) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.outbox)
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish queues an event for every subscriber. It never blocks the caller:
// when the queue is full the event is dropped.
func (h *Hub) Publish(eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("Marshal feed event", slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	select {
	case h.events <- frame{kind: eventType, payload: payload}:
	default:
		h.logger.Warn("Feed event dropped", slog.String("type", eventType))
	}
}

// ServeWs upgrades the request and subscribes the connection to the feed.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	s := &subscriber{conn: conn, outbox: make(chan []byte, outboxSize)}

	select {
	case h.join <- s:
	case <-h.stopped:
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go h.writeLoop(s)
	go h.readLoop(s)
}

// readLoop only watches for pongs and disconnects; subscribers never send.
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		select {
		case h.leave <- s:
		case <-h.stopped:
		}
		s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
