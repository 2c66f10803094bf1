package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"macroreel/internal/macro"
	"macroreel/internal/notify"
	"macroreel/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The server only binds loopback and /ws sits behind the token check.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasts notifications to
// them. It implements notify.Observer and never blocks the caller.
type WSManager struct {
	logger     *slog.Logger
	clients    map[*WebSocketClient]bool
	clientsMu  sync.Mutex
	broadcast  chan protocol.Message
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	closeOnce  sync.Once
}

var _ notify.Observer = (*WSManager)(nil)

// WebSocketClient represents a connected watcher
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(logger *slog.Logger) *WSManager {
	return &WSManager{
		logger:     logger,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message, sendBuffer),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			n := len(m.clients)
			m.clientsMu.Unlock()
			m.logger.Info("ws client connected", "remote", client.ip, "clients", n)

		case client := <-m.unregister:
			m.drop(client, "disconnected")

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) drop(client *WebSocketClient, reason string) {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	if _, ok := m.clients[client]; ok {
		delete(m.clients, client)
		close(client.send)
		m.logger.Info("ws client "+reason, "remote", client.ip, "clients", len(m.clients))
	}
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		m.logger.Error("marshal broadcast", "type", message.Type, "error", err)
		return
	}

	m.clientsMu.Lock()
	var slow []*WebSocketClient
	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMu.Unlock()

	for _, client := range slow {
		m.drop(client, "dropped (send buffer full)")
	}
}

// Clients returns the number of connected clients.
func (m *WSManager) Clients() int {
	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()
	return len(m.clients)
}

// Close disconnects every client and stops the manager.
func (m *WSManager) Close() {
	m.closeOnce.Do(func() { close(m.shutdown) })
}

// publish queues a message; when the queue is full the message is lost.
func (m *WSManager) publish(msg protocol.Message) {
	select {
	case <-m.shutdown:
		return
	default:
	}
	select {
	case m.broadcast <- msg:
	default:
		m.logger.Warn("ws broadcast queue full, message dropped", "type", msg.Type)
	}
}

func (m *WSManager) CaptureStatus(state notify.CaptureState) {
	m.publish(protocol.Message{Type: protocol.TypeCaptureStatus, Payload: protocol.CaptureStatusPayload{State: string(state)}})
}

func (m *WSManager) CaptureEvent(ev macro.InputEvent, keyCount, pointerCount uint64) {
	m.publish(protocol.Message{
		Type:    protocol.TypeCaptureEvent,
		Payload: protocol.CaptureEventPayload{Event: ev, KeyCount: keyCount, PointerCount: pointerCount},
	})
}

func (m *WSManager) CaptureError(err error) {
	m.publish(protocol.Message{Type: protocol.TypeCaptureError, Payload: protocol.CaptureErrorPayload{Message: err.Error()}})
}

func (m *WSManager) AutoClickTick(n uint64) {
	m.publish(protocol.Message{Type: protocol.TypeAutoClickTick, Payload: protocol.CountPayload{Count: n}})
}

func (m *WSManager) AutoClickDone(n uint64) {
	m.publish(protocol.Message{Type: protocol.TypeAutoClickDone, Payload: protocol.CountPayload{Count: n}})
}

func (m *WSManager) PlaybackDone(result macro.PlaybackResult) {
	m.publish(protocol.Message{Type: protocol.TypePlaybackDone, Payload: result})
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("ws upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		ip:      r.RemoteAddr,
	}

	select {
	case m.register <- client:
	case <-m.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so control frames are processed. Watchers
// never send application messages; anything received is ignored.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.logger.Debug("ws read error", "remote", c.ip, "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
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
				// The hub closed the channel.
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
