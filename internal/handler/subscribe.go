package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/packsync/packsync/internal/docstore"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = pingPeriod + 10*time.Second
)

// Subscribe handles GET /v1/collections/{collection}/subscribe?filters=.
// Rule violations are reported as plain HTTP errors before the upgrade. After
// the upgrade the server pushes a snapshot frame on every change until the
// client disconnects.
func (s *Server) Subscribe(w http.ResponseWriter, r *http.Request) {
	collection, filters, ok := bindQuery(w, r)
	if !ok {
		return
	}

	box := newMailbox()
	sub, err := s.docs.Subscribe(caller(r), collection, filters,
		func(docs []docstore.Document) {
			box.put(docstore.Frame{Type: docstore.FrameSnapshot, Documents: docs})
		},
		func(err error) {
			s.log.WarnContext(r.Context(), "live query failed", "collection", collection, "err", err)
			box.put(docstore.Frame{Type: docstore.FrameError, Message: err.Error()})
		},
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer sub.Cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.WarnContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-box.ready:
			for _, frame := range box.take() {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(frame); err != nil {
					s.log.DebugContext(r.Context(), "websocket write failed", "err", err)
					return
				}
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readUntilClosed drains client messages (clients send nothing but control
// frames) so pongs and close frames are processed, and closes done when the
// connection ends.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// mailbox holds the newest undelivered snapshot and the newest undelivered
// error in separate slots. A slow client skips intermediate snapshots, but
// an error never displaces a snapshot it has not been sent yet.
type mailbox struct {
	mu       sync.Mutex
	seq      uint64
	snapshot *pending
	failure  *pending
	ready    chan struct{}
}

type pending struct {
	seq   uint64
	frame docstore.Frame
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(f docstore.Frame) {
	m.mu.Lock()
	m.seq++
	p := &pending{seq: m.seq, frame: f}
	if f.Type == docstore.FrameError {
		m.failure = p
	} else {
		m.snapshot = p
	}
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// take empties the mailbox and returns its frames in arrival order.
func (m *mailbox) take() []docstore.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var frames []docstore.Frame
	first, second := m.snapshot, m.failure
	if first != nil && second != nil && second.seq < first.seq {
		first, second = second, first
	}
	for _, p := range []*pending{first, second} {
		if p != nil {
			frames = append(frames, p.frame)
		}
	}
	m.snapshot, m.failure = nil, nil
	return frames
}
