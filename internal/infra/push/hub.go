package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/logger"
)

const (
	defaultWriteTimeout = 5 * time.Second
	// events queued per subscriber before it counts as too slow
	defaultQueueSize = 32
)

var errSlowSubscriber = errors.New("subscriber queue full")

type subscriber struct {
	conn *websocket.Conn
	out  chan analysis.Event
	done chan struct{}
	once sync.Once
}

func newSubscriber(conn *websocket.Conn, queue int) *subscriber {
	return &subscriber{
		conn: conn,
		out:  make(chan analysis.Event, queue),
		done: make(chan struct{}),
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Hub fans progress events out to websocket subscribers, keyed by analysis id.
// It implements analysis.Notifier. Every subscriber has its own queue and
// writer goroutine, so Notify never waits on a client.
type Hub struct {
	mu           sync.RWMutex
	subs         map[analysis.AnalysisID]map[*subscriber]struct{}
	upgrader     websocket.Upgrader
	WriteTimeout time.Duration
	QueueSize    int
}

// NewHub creates a hub. checkOrigin nil accepts every origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		subs: make(map[analysis.AnalysisID]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		WriteTimeout: defaultWriteTimeout,
		QueueSize:    defaultQueueSize,
	}
}

// Notify implements analysis.Notifier. It only queues; a subscriber whose
// queue is full is dropped and reported in the returned error.
func (h *Hub) Notify(ctx context.Context, id analysis.AnalysisID, ev analysis.Event) error {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[id]))
	for s := range h.subs[id] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	var errs []error
	for _, s := range targets {
		if ctx.Err() != nil {
			break
		}
		select {
		case s.out <- ev:
		case <-s.done:
		default:
			errs = append(errs, fmt.Errorf("push to %s: %w", s.conn.RemoteAddr(), errSlowSubscriber))
			h.drop(id, s)
		}
	}
	return errors.Join(errs...)
}

// ServeWS upgrades the request and keeps the subscription until the client goes away
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, id analysis.AnalysisID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client
		logger.WithAnalysis(string(id)).WithError(err).Warn("websocket upgrade failed")
		return
	}
	// the server's ReadTimeout must not end the subscription
	_ = conn.SetReadDeadline(time.Time{})
	s := h.subscribe(id, conn)
	logger.WithAnalysis(string(id)).WithField("remote", conn.RemoteAddr().String()).Debug("push subscriber connected")

	defer func() {
		h.drop(id, s)
		logger.WithAnalysis(string(id)).Debug("push subscriber disconnected")
	}()

	// Drain client frames so close and ping control messages are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// subscribe registers conn and starts its writer
func (h *Hub) subscribe(id analysis.AnalysisID, conn *websocket.Conn) *subscriber {
	queue := h.QueueSize
	if queue <= 0 {
		queue = defaultQueueSize
	}
	s := newSubscriber(conn, queue)
	h.add(id, s)
	go h.writeLoop(id, s)
	return s
}

func (h *Hub) writeLoop(id analysis.AnalysisID, s *subscriber) {
	timeout := h.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.out:
			err := s.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err == nil {
				err = s.conn.WriteJSON(ev)
			}
			if err != nil {
				logger.WithAnalysis(string(id)).
					WithField("remote", s.conn.RemoteAddr().String()).
					WithError(err).
					Warn("push write failed, dropping subscriber")
				h.drop(id, s)
				return
			}
		}
	}
}

func (h *Hub) drop(id analysis.AnalysisID, s *subscriber) {
	h.remove(id, s)
	s.close()
}

// Subscribers returns the number of live subscribers for id
func (h *Hub) Subscribers(id analysis.AnalysisID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[id])
}

func (h *Hub) add(id analysis.AnalysisID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[id] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) remove(id analysis.AnalysisID, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[id]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, id)
	}
}
