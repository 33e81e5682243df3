package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/townmap/game/engine"
	"github.com/wricardo/townmap/game/scheduler"
	"github.com/wricardo/townmap/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts before Publish starts dropping
	broadcastBuffer = 256
)

// Events sent to clients
const (
	EventMount   = "mount"
	EventUnmount = "unmount"
	EventClear   = "clear"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	StreamID string           `json:"stream_id"`
	Event    string           `json:"event"`
	FrameID  int              `json:"frame_id,omitempty"`
	Frame    *engine.Snapshot `json:"frame,omitempty"`
}

// ClientMessage is what clients send: a viewport change
type ClientMessage struct {
	Event     string  `json:"event"`
	SizeClass string  `json:"size_class,omitempty"`
	Wide      *bool   `json:"wide,omitempty"`
	WidthRem  float64 `json:"width_rem,omitempty"`
	Columns   int     `json:"columns,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	streamID  string
	onMessage func(ClientMessage)
}

type envelope struct {
	streamID string
	data     []byte
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by stream ID
	streams map[string]map[*Client]bool
	mu      sync.RWMutex

	// Pre-marshalled messages for a stream
	broadcast chan envelope

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		streams:    make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.broadcastMessage(env)
		}
	}
}

// ServeWS upgrades the request and attaches the client to a stream. initial,
// when set, is the first message the client receives; onMessage receives
// every decoded client message.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, streamID string, initial *Message, onMessage func(ClientMessage)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		streamID:  streamID,
		onMessage: onMessage,
	}

	if initial != nil {
		if data, err := json.Marshal(initial); err == nil {
			client.send <- data
		}
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Publish queues a message for every client of a stream. It never blocks:
// when the queue is full the message is dropped.
func (h *Hub) Publish(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Failed to marshal message: %v", err)
		return
	}

	select {
	case h.broadcast <- envelope{streamID: message.StreamID, data: data}:
	default:
		log.Printf("[WS] Broadcast queue full, dropping %s for stream %s", message.Event, message.StreamID)
	}
}

// ClientCount returns the number of clients attached to a stream
func (h *Hub) ClientCount(streamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[streamID])
}

// registerClient adds a client to a stream
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streams[client.streamID] == nil {
		h.streams[client.streamID] = make(map[*Client]bool)
	}
	h.streams[client.streamID][client] = true

	log.Printf("[WS] Client registered for stream %s (total clients: %d)",
		client.streamID, len(h.streams[client.streamID]))
}

// unregisterClient removes a client from a stream
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	if clients, ok := h.streams[client.streamID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty streams
			if len(clients) == 0 {
				delete(h.streams, client.streamID)
			}

			log.Printf("[WS] Client unregistered from stream %s (remaining clients: %d)",
				client.streamID, len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients of a stream
func (h *Hub) broadcastMessage(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.streams[env.streamID]; ok {
		for client := range clients {
			select {
			case client.send <- env.data:
			default:
				// Client's send channel is full, close it
				h.removeLocked(client)
			}
		}
	}
}

// readPump decodes client messages until the connection closes
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Error: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Ignoring malformed client message on stream %s: %v", c.streamID, err)
			continue
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// writePump writes one WebSocket message per hub message and keeps the
// connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// StreamPresenter publishes a stream's scheduler events on the hub
type StreamPresenter struct {
	hub      *Hub
	streamID string
}

// Presenter returns the presenter for one stream
func (h *Hub) Presenter(streamID string) scheduler.Presenter {
	return &StreamPresenter{hub: h, streamID: streamID}
}

// Mount publishes an owned copy of the frame
func (p *StreamPresenter) Mount(f *engine.Frame) {
	p.hub.Publish(&Message{StreamID: p.streamID, Event: EventMount, FrameID: f.ID, Frame: f.Snapshot()})
}

func (p *StreamPresenter) Unmount(id int) {
	p.hub.Publish(&Message{StreamID: p.streamID, Event: EventUnmount, FrameID: id})
}

func (p *StreamPresenter) Clear() {
	p.hub.Publish(&Message{StreamID: p.streamID, Event: EventClear})
}

// Viewport converts a viewport message to the service's viewport
func (m ClientMessage) Viewport() service.Viewport {
	v := service.Viewport{SizeClass: m.SizeClass, WidthRem: m.WidthRem, Columns: m.Columns}
	if m.Wide != nil {
		v.SizeClass = engine.Narrow.String()
		if *m.Wide {
			v.SizeClass = engine.Wide.String()
		}
	}
	return v
}
