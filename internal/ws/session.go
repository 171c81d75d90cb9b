package ws

import (
	"sync"

	"github.com/gorilla/websocket"

	"collab-chat-service/internal/auth"
	"collab-chat-service/internal/bus"
)

// sendBuffer is the per-connection outbound queue depth. A client that
// stops draining for this many events is disconnected rather than allowed
// to block publishers.
const sendBuffer = 256

// session is the per-connection state created on a successful handshake and
// released on every exit path. It implements bus.Subscriber; delivered
// events are queued for the write pump, which applies per-recipient
// filtering at forward time.
type session struct {
	conn     *websocket.Conn
	identity auth.Identity
	roomID   int
	roomName string
	info     ConnInfo

	send chan bus.Event
	done chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn, identity auth.Identity, roomID int, roomName string, info ConnInfo) *session {
	return &session{
		conn:     conn,
		identity: identity,
		roomID:   roomID,
		roomName: roomName,
		info:     info,
		send:     make(chan bus.Event, sendBuffer),
		done:     make(chan struct{}),
	}
}

// Deliver queues a bus event for forwarding. It never blocks a publisher:
// when the queue is full the connection is closed as a dead sink.
func (s *session) Deliver(evt bus.Event) {
	select {
	case s.send <- evt:
	case <-s.done:
	default:
		s.close()
	}
}

// deliverError queues a local error event for this connection only.
func (s *session) deliverError(message string) {
	s.Deliver(newErrorEvent(message))
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// writePump translates queued bus events to wire frames. Suppressed events
// (self-echo, unknown types) are dropped here, per recipient.
func (s *session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case evt := <-s.send:
			frame, ok := forwardFrame(evt, s.identity)
			if !ok {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}
