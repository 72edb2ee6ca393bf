package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Server-to-client message types
const (
	MsgScreenChanged MessageType = "screen_changed"
	MsgRunCompleted  MessageType = "run_completed"
	MsgError         MessageType = "error"
)

// Client-to-server message types
const (
	MsgSubmitResponses MessageType = "submit_responses"
	MsgResetRun        MessageType = "reset_run"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for interview runs. A run can have
// several connections at once (the respondent plus observers); every
// connection on a run receives every broadcast.
type Hub struct {
	runConns map[string]map[*Connection]bool // runID -> conns

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection following one run
type Connection struct {
	RunID string
	Send  chan []byte
	Hub   *Hub

	mu     sync.Mutex
	closed bool
}

// trySend queues a message without blocking; messages to a full or closed
// connection are dropped
func (c *Connection) trySend(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		// Drop message if buffer full
	}
}

func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	RunID      string
	Message    *Message
	Disconnect bool
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		runConns:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.runConns[conn.RunID] == nil {
				h.runConns[conn.RunID] = make(map[*Connection]bool)
			}
			h.runConns[conn.RunID][conn] = true
			log.Printf("Client connected to run %s (%d watching)", conn.RunID, len(h.runConns[conn.RunID]))
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.runConns[conn.RunID]; ok {
				if conns[conn] {
					delete(conns, conn)
					conn.closeSend()
					log.Printf("Client disconnected from run %s", conn.RunID)
				}
				if len(conns) == 0 {
					delete(h.runConns, conn.RunID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Disconnect {
				h.closeRun(msg.RunID)
				continue
			}

			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)
			for conn := range h.runConns[msg.RunID] {
				conn.trySend(data)
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeRun(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.runConns[runID] {
		conn.closeSend()
	}
	delete(h.runConns, runID)
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToRun sends a message to every connection following a run
// (implements service.Broadcaster)
func (h *Hub) BroadcastToRun(runID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RunID: runID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectRun drops every connection following a run (implements
// service.Broadcaster)
func (h *Hub) DisconnectRun(runID string) {
	h.broadcast <- &BroadcastMessage{
		RunID:      runID,
		Disconnect: true,
	}
}
