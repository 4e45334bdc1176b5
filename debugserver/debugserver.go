// Package debugserver pushes heap.Event values to connected WebSocket
// clients, the push-based generalization of the verbose stderr lines the
// collector this module generalizes prints at the end of every cycle.
package debugserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/tinygo-org/heapgc/heap"
)

// outboxSize bounds how many undelivered events a single client can fall
// behind by before HandleEvent starts dropping its events rather than
// waiting on it.
const outboxSize = 32

// writeTimeout bounds how long a single WebSocket write is allowed to
// take once a client's pump goroutine picks an event off its outbox.
const writeTimeout = 2 * time.Second

// client pumps its outbox to a WebSocket connection on its own goroutine,
// so a slow or wedged peer only ever backs up its own channel and never
// the collector thread calling HandleEvent.
type client struct {
	conn   *websocket.Conn
	outbox chan []byte
}

// Server fans out heap.Event values to every currently connected WebSocket
// client. It implements heap.EventSink directly so it can be attached to a
// Context with AttachEventSink.
type Server struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// New returns a ready-to-use Server.
func New() *Server {
	return &Server{clients: make(map[*client]struct{})}
}

// HandleEvent implements heap.EventSink. It never performs network I/O
// itself: it only ever enqueues onto each client's buffered outbox, and a
// client whose outbox is already full has its event dropped rather than
// block the collector thread that called Collect.
func (s *Server) HandleEvent(e heap.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("debugserver: encoding event: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.outbox <- payload:
		default:
			log.Printf("debugserver: client outbox full, dropping event")
		}
	}
}

// Handler returns an http.Handler serving the WebSocket endpoint; mount it
// at whatever path the embedder likes.
func (s *Server) Handler() http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		c := &client{conn: ws, outbox: make(chan []byte, outboxSize)}

		s.mu.Lock()
		s.clients[c] = struct{}{}
		s.mu.Unlock()

		done := make(chan struct{})
		go c.pump(done)

		// Block until the client disconnects; reads are discarded since
		// this endpoint is push-only.
		buf := make([]byte, 1)
		for {
			if _, err := ws.Read(buf); err != nil {
				break
			}
		}

		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		close(done)
	})
}

// pump drains c's outbox to its WebSocket connection until done is closed
// or a write fails. Each write gets its own bounded deadline so one stuck
// send can't wedge the pump goroutine forever.
func (c *client) pump(done <-chan struct{}) {
	for {
		select {
		case payload := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := c.conn.Write(payload); err != nil {
				c.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
