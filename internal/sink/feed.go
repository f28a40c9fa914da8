package sink

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pable/go-pitch-stream/internal/element"
)

var upgrader = websocket.Upgrader{
	// the feed is read-only; any origin may subscribe
	CheckOrigin: func(*http.Request) bool { return true },
}

// Feed pushes every emitted element to the connected websocket clients as
// one JSON message per element. A client that cannot keep up is dropped
// rather than allowed to backpressure the engine.
type Feed struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func NewFeed(log *slog.Logger) *Feed {
	return &Feed{log: log, clients: make(map[*websocket.Conn]chan []byte)}
}

// Emit serializes the element and queues it for every client.
func (f *Feed) Emit(e *element.Element) error {
	body, err := element.Marshal(e)
	if err != nil {
		return err
	}
	f.mu.Lock()
	for conn, ch := range f.clients {
		select {
		case ch <- body:
		default:
			delete(f.clients, conn)
			close(ch)
			f.log.Warn("dropping slow feed client", "remote", conn.RemoteAddr())
		}
	}
	f.mu.Unlock()
	return nil
}

// ServeHTTP upgrades the connection and streams elements until the client
// disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	ch := make(chan []byte, 256)
	f.mu.Lock()
	f.clients[conn] = ch
	f.mu.Unlock()

	go func() {
		defer conn.Close()
		for body := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
				f.remove(conn)
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()

	// drain reads to process control frames and notice disconnects
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				f.remove(conn)
				return
			}
		}
	}()
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	if ch, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(ch)
	}
	f.mu.Unlock()
}

// Close drops all clients.
func (f *Feed) Close() {
	f.mu.Lock()
	for conn, ch := range f.clients {
		delete(f.clients, conn)
		close(ch)
	}
	f.mu.Unlock()
}
