package replication

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/fruitmerge/config"
	"github.com/pthm-cable/fruitmerge/events"
	"github.com/pthm-cable/fruitmerge/telemetry"
)

// ErrHubClosed is returned by Serve after Close.
var ErrHubClosed = errors.New("replication hub closed")

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Hub broadcasts engine events to websocket viewers. OnEvent and SetBoard
// run on the engine goroutine; connections are served on their own.
type Hub struct {
	upgrader     websocket.Upgrader
	sendBuffer   int
	writeTimeout time.Duration

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	board   []byte // Latest encoded board, sent on join
	seq     uint64
	dropped int
	closed  bool
}

// NewHub creates a hub from the replication config.
func NewHub(cfg config.ReplicationConfig) *Hub {
	sendBuffer := cfg.SendBuffer
	if sendBuffer < 1 {
		sendBuffer = 64
	}
	writeTimeout := time.Duration(cfg.WriteTimeout * float64(time.Second))
	if writeTimeout <= 0 {
		writeTimeout = time.Second
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		subs:         make(map[*subscriber]struct{}),
	}
}

// Attach subscribes the hub to every event on bus.
func (h *Hub) Attach(bus *events.Bus) (detach func()) {
	return bus.Subscribe(h)
}

// OnEvent encodes ev and queues it for every subscriber.
func (h *Hub) OnEvent(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || len(h.subs) == 0 {
		return
	}
	h.seq++
	data, ok, err := EncodeEvent(h.seq, ev)
	if err != nil {
		slog.Error("replication_encode_failed", "type", ev.Type().String(), "error", err)
		return
	}
	if !ok {
		return
	}
	h.broadcastLocked(data)
}

// SetBoard stores the latest board snapshot for late joiners.
func (h *Hub) SetBoard(s *telemetry.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	data, err := EncodeBoard(h.seq, s)
	if err != nil {
		slog.Error("replication_encode_failed", "type", KindBoard, "error", err)
		return
	}
	h.board = data
}

func (h *Hub) broadcastLocked(data []byte) {
	for s := range h.subs {
		select {
		case s.send <- data:
		default:
			// Slow viewer; it will resync from the next board on reconnect.
			h.dropped++
			delete(h.subs, s)
			s.close()
			slog.Warn("replication_subscriber_dropped", "remote", s.conn.RemoteAddr().String())
		}
	}
}

// ServeHTTP upgrades the request and streams messages until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("replication_upgrade_failed", "error", err)
		return
	}

	s := &subscriber{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	if h.board != nil {
		s.send <- h.board
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()

	slog.Info("replication_subscriber_joined", "remote", conn.RemoteAddr().String(), "subscribers", n)

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop discards inbound frames; viewers cannot issue commands.
func (h *Hub) readLoop(s *subscriber) {
	defer h.remove(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	defer h.remove(s)
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				slog.Debug("replication_write_failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	s.close()
	if ok {
		slog.Info("replication_subscriber_left", "remote", s.conn.RemoteAddr().String(), "subscribers", n)
	}
}

// Subscribers returns the number of connected viewers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many viewers were disconnected for falling behind.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close disconnects every viewer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	clear(h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

// Serve listens on addr and serves the hub at /ws until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("replication_listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	h.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ErrHubClosed
}
