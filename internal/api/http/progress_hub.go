package apihttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"subtrans/internal/domain"
	"subtrans/internal/metrics"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsSendBuffer     = 32
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Progress streaming is read-only and carries no credentials, so
	// any origin may subscribe, matching the teacher's permissive hub.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope pushed to every subscribed client.
type wsMessage struct {
	Type string      `json:"type"` // "progress" | "warning" | "error"
	Data interface{} `json:"data"`
}

type wsClient struct {
	hub  *progressHub
	conn *websocket.Conn
	send chan wsMessage
}

// progressHub fans progress/warning/error events out to every connected
// websocket client, adapted from the teacher's ws_hub.go register/
// unregister/broadcast-channel design for torrent state broadcast.
type progressHub struct {
	logger *slog.Logger

	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan wsMessage
}

func newProgressHub(logger *slog.Logger) *progressHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &progressHub{
		logger:     logger,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan wsMessage, 256),
	}
}

func (h *progressHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			metrics.WSClientsConnected.Set(float64(len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.WSClientsConnected.Set(float64(len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer; drop it rather than block the hub
					delete(h.clients, c)
					close(c.send)
				}
			}
			metrics.WSClientsConnected.Set(float64(len(h.clients)))
		}
	}
}

// BroadcastProgress implements progress.Broadcaster.
func (h *progressHub) BroadcastProgress(evt domain.ProgressEvent) {
	h.broadcast <- wsMessage{Type: "progress", Data: evt}
}

// BroadcastWarning implements progress.Broadcaster.
func (h *progressHub) BroadcastWarning(evt domain.WarningEvent) {
	h.broadcast <- wsMessage{Type: "warning", Data: evt}
}

// BroadcastError implements progress.Broadcaster.
func (h *progressHub) BroadcastError(evt domain.ErrorEvent) {
	h.broadcast <- wsMessage{Type: "error", Data: evt}
}

func (h *progressHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan wsMessage, wsSendBuffer)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		// The stream is server-push only; any client frame just resets
		// the read deadline via the pong handler above, mirroring the
		// teacher's readPump which discards inbound client payloads.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
