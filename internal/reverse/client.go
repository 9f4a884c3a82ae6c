// Package reverse maintains a persistent outbound WebSocket session to a
// configured remote. The roles are inverted relative to the socket: the
// remote peer is the JSON-RPC client (it initiates the handshake and calls
// tools), this client answers in the server role.
package reverse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/rpc"
	"github.com/agentix/droidportal/internal/version"
	"github.com/agentix/droidportal/internal/wsrpc"
)

// State is the connection lifecycle phase.
type State int32

const (
	Disconnected State = iota
	Connecting
	AwaitingHandshake
	Ready
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingHandshake:
		return "awaiting_handshake"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const (
	initialBackoff = time.Second
	maxBackoff     = 60 * time.Second
	// disabledPoll is how often a disabled client re-checks its config.
	disabledPoll = time.Second

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is the reverse-connection state machine. Create with New, then
// call Run once; the loop reconnects with exponential backoff until ctx is
// cancelled or the feature is disabled in configuration.
type Client struct {
	cfg    *config.Store
	router *wsrpc.Router
	log    *slog.Logger
	dialer *websocket.Dialer

	// deviceID identifies this portal instance across reconnects.
	deviceID string

	state atomic.Int32
	bo    *backoff
	queue *pendingQueue

	writeMu sync.Mutex

	// onFirstConnect fires once per client lifetime, on the first
	// transition to Ready. Later silent reconnects do not re-fire.
	onFirstConnect func()
	notified       bool
}

// New creates a reverse-connection client. onFirstConnect may be nil.
func New(cfg *config.Store, router *wsrpc.Router, log *slog.Logger, onFirstConnect func()) *Client {
	return &Client{
		cfg:            cfg,
		router:         router,
		log:            log,
		dialer:         websocket.DefaultDialer,
		deviceID:       uuid.NewString(),
		bo:             newBackoff(initialBackoff, maxBackoff),
		queue:          newPendingQueue(),
		onFirstConnect: onFirstConnect,
	}
}

// State returns the current lifecycle phase.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s {
		c.log.Debug("reverse connection state", "from", old, "to", s)
	}
}

// Run drives the connect/serve/backoff loop until ctx is cancelled. The
// enabled flag is re-checked before every attempt, so disabling the feature
// in configuration stops reconnection without restarting the process.
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		cfg := c.cfg.Get()
		if !cfg.ReverseEnabled || cfg.ReverseURL == "" {
			c.setState(Disconnected)
			if !sleep(ctx, disabledPoll) {
				return
			}
			continue
		}

		c.setState(Connecting)
		conn, _, err := c.dialer.DialContext(ctx, cfg.ReverseURL, nil)
		if err != nil {
			c.setState(Disconnected)
			delay := c.bo.Next()
			c.log.Debug("reverse dial failed", "url", cfg.ReverseURL, "error", err, "retry_in", delay)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		c.bo.Reset()
		c.setState(AwaitingHandshake)
		c.log.Info("reverse connection open", "url", cfg.ReverseURL)
		c.serve(ctx, conn)
		conn.Close()
		c.setState(Disconnected)

		// A dropped session restarts the schedule from the initial delay;
		// only consecutive dial failures grow it.
		if !sleep(ctx, initialBackoff) {
			return
		}
	}
}

// serve runs one session: announce, then read and answer until the
// connection drops or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.keepAlive(ctx, conn, done)

	c.announce(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Debug("reverse read closed", "error", err)
			return
		}
		c.handleMessage(ctx, conn, data)
	}
}

// keepAlive pings the remote until the session ends.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				conn.Close()
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// announce sends a one-way identification notification so the remote can
// associate the socket with a device before the handshake.
func (c *Client) announce(conn *websocket.Conn) {
	note := rpc.Request{
		JSONRPC: rpc.Version,
		Method:  "notifications/device_connected",
		Params:  mustMarshal(map[string]any{"deviceId": c.deviceID, "version": version.Version}),
	}
	c.write(conn, note)
}

// handleMessage routes one inbound frame. Before the handshake completes,
// tool calls are queued instead of dispatched; everything else is answered
// immediately.
func (c *Client) handleMessage(ctx context.Context, conn *websocket.Conn, data []byte) {
	var req rpc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		c.write(conn, rpc.NewErrorResponse(nil, rpc.ErrParseError, "parse error", err.Error()))
		return
	}

	ready := c.State() == Ready
	switch {
	case req.Method == "initialize":
		if resp := c.router.Handle(ctx, &req); resp != nil {
			c.write(conn, resp)
		}
		if !ready {
			c.setState(Ready)
			c.fireFirstConnect()
			c.drain(ctx, conn)
		}
	case req.Method == "tools/call" && !ready:
		c.enqueue(conn, req)
	default:
		if resp := c.router.Handle(ctx, &req); resp != nil {
			c.write(conn, resp)
		}
	}
}

// enqueue holds a pre-handshake tool call and tells the caller what
// happened: queued for automatic processing, or rejected because the queue
// is full.
func (c *Client) enqueue(conn *websocket.Conn, req rpc.Request) {
	if !c.queue.Push(req) {
		c.write(conn, rpc.NewErrorResponse(req.ID, rpc.ErrQueueFull,
			"request queue full, retry later", nil))
		return
	}
	c.write(conn, rpc.NewErrorResponse(req.ID, rpc.ErrNotReady,
		"connection not ready, request queued and will process automatically", nil))
}

// drain processes queued requests in arrival order. Expired entries were
// already answered with a queued notice, so they are dropped silently.
func (c *Client) drain(ctx context.Context, conn *websocket.Conn) {
	reqs := c.queue.Drain()
	if len(reqs) == 0 {
		return
	}
	c.log.Info("draining queued requests", "count", len(reqs))
	for i := range reqs {
		if resp := c.router.Handle(ctx, &reqs[i]); resp != nil {
			c.write(conn, resp)
		}
	}
}

func (c *Client) fireFirstConnect() {
	if c.notified {
		return
	}
	c.notified = true
	if c.onFirstConnect != nil {
		c.onFirstConnect()
	}
}

func (c *Client) write(conn *websocket.Conn, v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(v); err != nil {
		c.log.Debug("reverse write failed", "error", err)
	}
}

// sleep waits for d or until ctx is cancelled. It reports false on
// cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
