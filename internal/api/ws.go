package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// EventSummaryInvalidated tells connected dashboards that aggregate views
// are stale and should be re-fetched. Sent after a successful review toggle.
const EventSummaryInvalidated = "summary_invalidated"

const writeTimeout = 5 * time.Second

// Hub fans events out to connected dashboard websockets. Connections are
// push-only: inbound frames are read and discarded to service control
// messages.
type Hub struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is already CORS-open for the dashboard frontend.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// handleWS upgrades the request and registers the connection with the hub.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	s.hub.add(conn)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	clients := len(h.conns)
	h.mu.Unlock()

	h.logger.WithField("clients", clients).Debug("Websocket client connected")

	go h.drain(conn)
}

// drain consumes inbound frames until the peer goes away, then removes the
// connection.
func (h *Hub) drain(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends an event to every connected client, dropping connections
// that fail to accept the write.
func (h *Hub) Broadcast(event string) {
	payload := map[string]string{"event": event}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.WithError(err).Debug("Dropping unresponsive websocket client")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// CloseAll disconnects every client, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
