package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"popcorn/internal/search"
	"popcorn/internal/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 4096
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is what the browser sends: input, clear or close.
type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type sessionFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type snapshotFrame struct {
	Type string `json:"type"`
	search.Snapshot
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

const wsErrorBacklog = 8

// wsClient owns one search socket. Only the latest pending snapshot is kept,
// so a slow reader skips intermediate snapshots instead of stalling the
// session that publishes them. Error frames travel separately and never
// replace a snapshot.
type wsClient struct {
	conn   *websocket.Conn
	logger *utils.Logger

	mu      sync.Mutex
	pending []byte
	notify  chan struct{}
	errs    chan []byte
	done    chan struct{}
	once    sync.Once
}

func newWSClient(conn *websocket.Conn, logger *utils.Logger) *wsClient {
	return &wsClient{
		conn:   conn,
		logger: logger,
		notify: make(chan struct{}, 1),
		errs:   make(chan []byte, wsErrorBacklog),
		done:   make(chan struct{}),
	}
}

// publish is handed to the session and runs under its lock; it never blocks.
func (c *wsClient) publish(snap search.Snapshot) {
	data, err := json.Marshal(snapshotFrame{Type: "snapshot", Snapshot: snap})
	if err != nil {
		c.logger.Error("Failed to encode websocket frame:", err)
		return
	}
	c.mu.Lock()
	c.pending = data
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// reject tells the client its last message was not accepted. Once the
// backlog is full further errors are dropped.
func (c *wsClient) reject(problem string) {
	data, err := json.Marshal(errorFrame{Type: "error", Error: problem})
	if err != nil {
		c.logger.Error("Failed to encode websocket frame:", err)
		return
	}
	select {
	case c.errs <- data:
	default:
		c.logger.Debug("Dropping websocket error frame:", problem)
	}
}

func (c *wsClient) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.pending
	c.pending = nil
	return data
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case <-c.notify:
			data := c.take()
			if data == nil {
				continue
			}
			if !c.write(data) {
				return
			}
		case data := <-c.errs:
			if !c.write(data) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return
			}
		}
	}
}

func (c *wsClient) write(data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("Websocket write failed:", err)
		c.stop()
		return false
	}
	return true
}

// readPump feeds client messages into the session until the socket closes.
func (c *wsClient) readPump(h *APIHandler, session *search.Session) {
	c.conn.SetReadLimit(wsReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("Websocket closed unexpectedly:", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		switch msg.Type {
		case "input":
			if strings.TrimSpace(msg.Text) != "" {
				if problem := h.validQuery(msg.Text); problem != "" {
					c.reject(problem)
					continue
				}
			}
			session.OnInput(msg.Text)
		case "clear":
			session.OnClear()
		case "close":
			session.OnClose()
		default:
			c.reject("unknown message type " + msg.Type)
		}
	}
}

// SearchSocket upgrades to a websocket bound to a fresh search session that
// lives as long as the connection.
func (h *APIHandler) SearchSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed:", err)
		return
	}

	client := newWSClient(conn, h.logger)
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	session := h.manager.NewSession(client.publish)
	if err := conn.WriteJSON(sessionFrame{Type: "session", ID: session.ID()}); err != nil {
		h.manager.CloseSession(session.ID())
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(h, session)

	h.manager.CloseSession(session.ID())
	client.stop()
}
