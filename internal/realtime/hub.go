package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flipi-app/flipi/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Authorizer decides whether a user may subscribe to a filtered table.
type Authorizer interface {
	AuthorizeSubscription(ctx context.Context, userID int64, table string, f Filter) error
}

// AuthorizeFunc adapts a function to the Authorizer interface.
type AuthorizeFunc func(ctx context.Context, userID int64, table string, f Filter) error

func (fn AuthorizeFunc) AuthorizeSubscription(ctx context.Context, userID int64, table string, f Filter) error {
	return fn(ctx, userID, table, f)
}

// Hub fans events out to subscribed clients. All client bookkeeping happens
// on the goroutine running Run.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	direct     chan reply
	done       chan struct{}

	auth     Authorizer
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewHub creates a hub. Call Run before serving clients.
func NewHub(auth Authorizer, m *metrics.Metrics, checkOrigin func(*http.Request) bool) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		direct:     make(chan reply, 64),
		done:       make(chan struct{}),
		auth:       auth,
		metrics:    m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// reply is a control message addressed to a single client.
type reply struct {
	client  *Client
	payload []byte
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.metrics.ClientConnected()
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case ev := <-h.broadcast:
			h.deliver(ev)
		case r := <-h.direct:
			if _, ok := h.clients[r.client]; ok {
				select {
				case r.client.send <- r.payload:
				default:
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.metrics.ClientDisconnected()
}

// Publish queues an event for delivery. It never blocks; if the queue is
// full the event is dropped and logged.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
		h.metrics.EventPublished(ev.Table, ev.Type)
	default:
		slog.Warn("realtime queue full, dropping event", "table", ev.Table, "type", ev.Type)
	}
}

func (h *Hub) deliver(ev Event) {
	var payload []byte
	for client := range h.clients {
		if !client.subscribed(ev) {
			continue
		}
		if payload == nil {
			var err error
			payload, err = json.Marshal(ev)
			if err != nil {
				slog.Error("encoding realtime event", "table", ev.Table, "error", err)
				return
			}
		}
		select {
		case client.send <- payload:
		default:
			// Slow consumer.
			h.drop(client)
		}
	}
}

// ServeWS upgrades the request and attaches an authenticated client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		subs:   make(map[string]subscription),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Client is one websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte

	mu   sync.Mutex
	subs map[string]subscription
}

func (c *Client) subscribed(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if s.matches(ev) {
			return true
		}
	}
	return false
}

type clientMessage struct {
	Action string `json:"action"`
	Table  string `json:"table"`
	Filter string `json:"filter"`
}

type serverMessage struct {
	Type   string `json:"type"`
	Table  string `json:"table,omitempty"`
	Filter string `json:"filter,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("realtime read failed", "user_id", c.userID, "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg clientMessage) {
	filter, err := ParseFilter(msg.Table, msg.Filter)
	if err != nil {
		c.replyWith(serverMessage{Type: "ERROR", Table: msg.Table, Filter: msg.Filter, Error: err.Error()})
		return
	}
	sub := subscription{table: msg.Table, filter: filter}

	switch msg.Action {
	case "subscribe":
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.hub.auth.AuthorizeSubscription(ctx, c.userID, msg.Table, filter)
		cancel()
		if err != nil {
			c.replyWith(serverMessage{Type: "ERROR", Table: msg.Table, Filter: msg.Filter, Error: "subscription not allowed"})
			return
		}
		c.mu.Lock()
		c.subs[sub.key()] = sub
		c.mu.Unlock()
		c.replyWith(serverMessage{Type: "SUBSCRIBED", Table: msg.Table, Filter: filter.String()})
	case "unsubscribe":
		c.mu.Lock()
		delete(c.subs, sub.key())
		c.mu.Unlock()
		c.replyWith(serverMessage{Type: "UNSUBSCRIBED", Table: msg.Table, Filter: filter.String()})
	default:
		c.replyWith(serverMessage{Type: "ERROR", Error: "unknown action"})
	}
}

// replyWith hands a control message to the hub, which owns the send channel.
func (c *Client) replyWith(msg serverMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- reply{client: c, payload: payload}:
	case <-c.hub.done:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
