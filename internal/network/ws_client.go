package network

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"macroreel/internal/protocol"
)

// DefaultRetryDelay is the pause between reconnection attempts.
const DefaultRetryDelay = 5 * time.Second

// WSClient follows the notification stream of a running service and
// reconnects whenever the connection drops.
type WSClient struct {
	hostAddr string
	token    string
	logger   *slog.Logger
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
	started  atomic.Bool

	// RetryDelay overrides DefaultRetryDelay when non-zero.
	RetryDelay time.Duration

	// Callbacks
	OnMessage    func(msg protocol.Envelope)
	OnConnect    func()
	OnDisconnect func(err error)

	mu          sync.Mutex
	conn        *websocket.Conn
	isConnected bool
}

// NewWSClient creates a client for hostAddr ("127.0.0.1:18090").
func NewWSClient(hostAddr, token string, logger *slog.Logger) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSClient{
		hostAddr: hostAddr,
		token:    token,
		logger:   logger.With("component", "watch"),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins the client loop (connect & process)
func (c *WSClient) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.loop()
}

func (c *WSClient) loop() {
	defer close(c.stopped)
	delay := c.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	for {
		c.connect()

		// If connect returns, it means we disconnected. Wait a bit and retry.
		select {
		case <-c.done:
			return
		case <-time.After(delay):
			c.logger.Debug("attempting reconnection", "host", c.hostAddr)
		}
	}
}

func (c *WSClient) connect() {
	u := url.URL{Scheme: "ws", Host: c.hostAddr, Path: "/ws"}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		c.logger.Warn("connection failed", "url", u.String(), "error", err)
		if c.OnDisconnect != nil {
			c.OnDisconnect(err)
		}
		return
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("connected", "url", u.String())
	if c.OnConnect != nil {
		c.OnConnect()
	}

	// specific done channel for this connection
	connDone := make(chan struct{})
	readDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.pingPump(conn, readDone)
	}()

	err = c.readPump(conn)
	close(readDone)

	c.mu.Lock()
	c.isConnected = false
	c.conn = nil
	c.mu.Unlock()

	conn.Close()
	<-connDone

	if c.OnDisconnect != nil {
		c.OnDisconnect(err)
	}
}

func (c *WSClient) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(64 << 10)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(10*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return err
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("invalid message", "error", err)
			continue
		}
		if c.OnMessage != nil {
			c.OnMessage(msg)
		}
	}
}

// pingPump keeps the connection alive until it fails or the client closes.
func (c *WSClient) pingPump(conn *websocket.Conn, readDone <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-readDone:
			return
		case <-c.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		}
	}
}

// IsConnected returns true if client is connected to the service
func (c *WSClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected
}

// Close stops the client and waits for its loop to exit.
func (c *WSClient) Close() {
	c.once.Do(func() { close(c.done) })
	if c.started.Load() {
		<-c.stopped
	}
}
