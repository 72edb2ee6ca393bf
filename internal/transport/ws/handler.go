package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yuiseki/data-gather/internal/model"
	"github.com/yuiseki/data-gather/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // screens with airtable records can be large
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub    *Hub
	runSvc *service.RunService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, runSvc *service.RunService) *Handler {
	return &Handler{
		hub:    hub,
		runSvc: runSvc,
	}
}

// submitPayload is the client payload for MsgSubmitResponses
type submitPayload struct {
	ScreenID  string                         `json:"screenId"`
	Responses map[string]model.ResponseValue `json:"responses"`
}

// RunWS handles GET /v1/ws/runs/{runId}. The connection receives
// screen_changed and run_completed events and may drive the run with
// submit_responses and reset_run messages.
func (h *Handler) RunWS(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["runId"]

	// Reject unknown runs before upgrading.
	if _, _, err := h.runSvc.GetState(r.Context(), runID); err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		RunID: runID,
		Send:  make(chan []byte, 256),
		Hub:   h.hub,
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "invalid message")
			continue
		}

		switch msg.Type {
		case MsgSubmitResponses:
			var payload submitPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				h.sendError(conn, "invalid submit_responses payload")
				continue
			}
			if payload.Responses == nil {
				payload.Responses = map[string]model.ResponseValue{}
			}
			// Advances are announced to every watcher via the broadcaster.
			if _, _, err := h.runSvc.SubmitResponses(context.Background(), conn.RunID, payload.ScreenID, payload.Responses); err != nil {
				h.sendError(conn, err.Error())
			}

		case MsgResetRun:
			if _, _, err := h.runSvc.ResetRun(context.Background(), conn.RunID); err != nil {
				h.sendError(conn, err.Error())
			}

		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

func (h *Handler) sendError(conn *Connection, message string) {
	data, _ := json.Marshal(&Message{
		Type:    MsgError,
		Payload: json.RawMessage(`{"error":` + strconv.Quote(message) + `}`),
	})
	conn.trySend(data)
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
