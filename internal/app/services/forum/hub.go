package forum

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/grihome/grihome/internal/app/domain/forum"
	"github.com/grihome/grihome/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	clientBacklog  = 16
	maxMessageSize = 512
)

// Hub fans new replies out to websocket subscribers. Each connection
// subscribes to a single post.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{} // postID -> connections
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan forum.Reply
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewDefault("forum-hub")
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens via the token middleware before the upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log,
		clients: map[string]map[*client]struct{}{},
	}
}

// Name implements system.Service.
func (h *Hub) Name() string { return "forum-hub" }

// Start implements system.Service.
func (h *Hub) Start(context.Context) error { return nil }

// Stop closes every connection.
func (h *Hub) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for postID, conns := range h.clients {
		for c := range conns {
			close(c.send)
		}
		delete(h.clients, postID)
	}
	return nil
}

// Subscribe upgrades the request and streams replies for postID until the
// peer disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, postID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan forum.Reply, clientBacklog)}
	if !h.add(postID, c) {
		conn.Close()
		return
	}
	h.log.WithField("post_id", postID).Debug("reply subscriber connected")

	go h.writeLoop(postID, c)
	h.readLoop(postID, c)
}

// Broadcast delivers a reply to every subscriber of its post. Slow clients
// are dropped rather than blocking the caller. Sends happen under the hub
// lock so a client channel can never be closed mid-send.
func (h *Hub) Broadcast(reply forum.Reply) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[reply.PostID] {
		select {
		case c.send <- reply:
		default:
			h.dropLocked(reply.PostID, c)
		}
	}
}

// SubscriberCount reports connections for one post.
func (h *Hub) SubscriberCount(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[postID])
}

func (h *Hub) add(postID string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	if h.clients[postID] == nil {
		h.clients[postID] = map[*client]struct{}{}
	}
	h.clients[postID][c] = struct{}{}
	return true
}

func (h *Hub) remove(postID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(postID, c)
}

// dropLocked unregisters a client and closes its channel. The channel is
// closed only here and in Stop, always under the write lock and only while
// the client is still registered, so it closes exactly once.
func (h *Hub) dropLocked(postID string, c *client) {
	conns, ok := h.clients[postID]
	if !ok {
		return
	}
	if _, present := conns[c]; !present {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, postID)
	}
}

func (h *Hub) writeLoop(postID string, c *client) {
	defer c.conn.Close()
	for reply := range c.send {
		payload, err := json.Marshal(map[string]interface{}{
			"id":         reply.ID,
			"post_id":    reply.PostID,
			"author_id":  reply.AuthorID,
			"body":       reply.Body,
			"created_at": reply.CreatedAt,
		})
		if err != nil {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(postID, c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards inbound frames; it exists to surface disconnects.
func (h *Hub) readLoop(postID string, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(postID, c)
			return
		}
	}
}
