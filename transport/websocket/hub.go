package websocket

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/wricardo/snake-engine/game/engine"
	"github.com/wricardo/snake-engine/game/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time allowed for the input handler to answer a key message.
	inputWait = 5 * time.Second
)

// Outbound event names
const (
	EventStateUpdate  = "state_update"
	EventNotification = "notification"
	EventInput        = "input"
	EventError        = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents an outbound WebSocket message
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// ClientMessage is sent by clients; the only type is "key"
type ClientMessage struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// InputHandler applies a key press from a client
type InputHandler func(ctx context.Context, sessionID, key string) (*service.InputResult, error)

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients by lower-cased session ID
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	// Outbound messages for a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	input  InputHandler
	logger *zap.Logger
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithInputHandler forwards client key messages to handler
func WithInputHandler(handler InputHandler) HubOption {
	return func(h *Hub) {
		h.input = handler
	}
}

// WithLogger sets the hub logger
func WithLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, engine.WebSocketBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, engine.WebSocketBufferSize),
		sessionID: sessionID,
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

// BroadcastState sends a game state update to all clients in a session
func (h *Hub) BroadcastState(sessionID string, state *engine.GameState) {
	h.enqueue(&Message{
		SessionID: sessionID,
		GameState: state,
		Event:     EventStateUpdate,
	})
}

// BroadcastTick sends a tick result followed by one message per notification
func (h *Hub) BroadcastTick(result *service.TickResult) {
	if result == nil {
		return
	}
	h.enqueue(&Message{
		SessionID: result.SessionID,
		GameState: result.GameState,
		Event:     EventStateUpdate,
		Data:      result,
	})
	for _, record := range result.Notifications {
		h.enqueue(&Message{
			SessionID: result.SessionID,
			Event:     EventNotification,
			Data:      record,
		})
	}
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data any) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

// ClientCount returns the number of clients watching a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[strings.ToLower(sessionID)])
}

// enqueue hands a message to the event loop without blocking the caller;
// a full queue drops the message, and the next state update supersedes it.
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("session", message.SessionID), zap.String("event", message.Event))
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	key := strings.ToLower(client.sessionID)

	h.mu.Lock()
	if h.sessions[key] == nil {
		h.sessions[key] = make(map[*Client]bool)
	}
	h.sessions[key][client] = true
	total := len(h.sessions[key])
	h.mu.Unlock()

	h.logger.Debug("websocket client registered",
		zap.String("session", client.sessionID), zap.Int("clients", total))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	key := strings.ToLower(client.sessionID)

	h.mu.Lock()
	clients, ok := h.sessions[key]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, key)
	}
	remaining := len(clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client unregistered",
		zap.String("session", client.sessionID), zap.Int("clients", remaining))
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Warn("failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*Client
	for client := range h.sessions[strings.ToLower(message.SessionID)] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is dropped
	for _, client := range slow {
		h.unregisterClient(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, clients := range h.sessions {
		for client := range clients {
			close(client.send)
		}
		delete(h.sessions, key)
	}
}

// reply sends a message to a single client, dropping it if the client is slow
func (c *Client) reply(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.sessions[strings.ToLower(c.sessionID)][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// handleMessage applies one inbound client message
func (c *Client) handleMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "invalid message: " + err.Error()})
		return
	}
	if msg.Type != "key" {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "unknown message type: " + msg.Type})
		return
	}
	if c.hub.input == nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: "input is not accepted on this connection"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inputWait)
	defer cancel()
	result, err := c.hub.input(ctx, c.sessionID, msg.Key)
	if err != nil {
		c.reply(&Message{SessionID: c.sessionID, Event: EventError, Error: err.Error()})
		return
	}
	c.reply(&Message{SessionID: c.sessionID, Event: EventInput, GameState: result.GameState, Data: result})
}

// readPump pumps messages from the WebSocket connection to the hub
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
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("session", c.sessionID), zap.Error(err))
			}
			break
		}
		c.handleMessage(raw)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
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

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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
