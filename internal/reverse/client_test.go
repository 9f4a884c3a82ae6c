package reverse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/device"
	"github.com/agentix/droidportal/internal/dispatch"
	"github.com/agentix/droidportal/internal/model"
	"github.com/agentix/droidportal/internal/rpc"
	"github.com/agentix/droidportal/internal/wsrpc"
)

type stubAutomation struct {
	taps atomic.Int32
}

func (s *stubAutomation) SnapshotTree(ctx context.Context) (*model.Node, error) {
	return &model.Node{Class: "android.widget.FrameLayout"}, nil
}
func (s *stubAutomation) ScreenBounds(ctx context.Context) (model.Rect, error) {
	return model.Rect{Right: 1080, Bottom: 1920}, nil
}
func (s *stubAutomation) PerformGesture(ctx context.Context, path []device.Point, d time.Duration) error {
	s.taps.Add(1)
	return nil
}
func (s *stubAutomation) PerformGlobalAction(ctx context.Context, a device.GlobalAction) error {
	return nil
}
func (s *stubAutomation) SetFocusedText(ctx context.Context, text string, clear bool) error {
	return nil
}
func (s *stubAutomation) ClearFocusedText(ctx context.Context) error     { return nil }
func (s *stubAutomation) SendKey(ctx context.Context, keyCode int) error { return nil }
func (s *stubAutomation) LaunchApp(ctx context.Context, pkg, activity string) error {
	return nil
}
func (s *stubAutomation) CaptureScreenshot(ctx context.Context, hideOverlay bool) ([]byte, error) {
	return []byte("png"), nil
}
func (s *stubAutomation) ListPackages(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (s *stubAutomation) PhoneState(ctx context.Context) (device.PhoneState, error) {
	return device.PhoneState{}, nil
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// remote is the test stand-in for the server the portal dials out to.
type remote struct {
	conns chan *websocket.Conn
}

func startRemote(t *testing.T) (*remote, string) {
	t.Helper()
	r := &remote{conns: make(chan *websocket.Conn, 4)}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.conns <- conn
	}))
	t.Cleanup(ts.Close)
	return r, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (r *remote) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-r.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(5 * time.Second):
		t.Fatal("no reverse connection arrived")
		return nil
	}
}

func readResponse(t *testing.T, conn *websocket.Conn) rpc.Response {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp rpc.Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func startClient(t *testing.T, url string, onFirst func()) (*Client, *stubAutomation) {
	t.Helper()
	cfg := config.Defaults()
	cfg.ReverseEnabled = true
	cfg.ReverseURL = url
	store := config.NewStore(cfg)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auto := &stubAutomation{}
	router := wsrpc.NewRouter(dispatch.New(auto, store, log), store, log)
	c := New(store, router, log, onFirst)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)
	return c, auto
}

func waitState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func TestClient_HandshakeAndQueueDrain(t *testing.T) {
	rem, url := startRemote(t)
	var connected atomic.Int32
	c, auto := startClient(t, url, func() { connected.Add(1) })

	conn := rem.accept(t)
	waitState(t, c, AwaitingHandshake)

	// The client announces itself before the handshake.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var note rpc.Request
	if err := conn.ReadJSON(&note); err != nil {
		t.Fatalf("read announce: %v", err)
	}
	if note.Method != "notifications/device_connected" {
		t.Fatalf("announce method = %q", note.Method)
	}

	// A tool call before initialize is acknowledged as queued, not run.
	conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0", "id": "early", "method": "tools/call",
		"params": map[string]any{"name": "tap", "arguments": map[string]any{"x": 1, "y": 2}},
	})
	resp := readResponse(t, conn)
	if resp.Error == nil || resp.Error.Code != rpc.ErrNotReady {
		t.Fatalf("expected queued notice, got %+v", resp)
	}
	if auto.taps.Load() != 0 {
		t.Fatal("queued tap ran before handshake")
	}

	// initialize completes the handshake, then the queue drains in order.
	conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize"})
	resp = readResponse(t, conn)
	if resp.Error != nil {
		t.Fatalf("initialize error: %+v", resp.Error)
	}
	resp = readResponse(t, conn)
	if resp.ID != "early" || resp.Error != nil {
		t.Fatalf("drained response = %+v", resp)
	}

	waitState(t, c, Ready)
	if auto.taps.Load() != 1 {
		t.Errorf("taps = %d, want 1", auto.taps.Load())
	}
	if connected.Load() != 1 {
		t.Errorf("first-connect callback fired %d times, want 1", connected.Load())
	}
}

func TestClient_ToolCallAfterReady(t *testing.T) {
	rem, url := startRemote(t)
	c, auto := startClient(t, url, nil)

	conn := rem.accept(t)
	var note rpc.Request
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	conn.ReadJSON(&note)

	conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": 1, "method": "initialize"})
	readResponse(t, conn)
	waitState(t, c, Ready)

	conn.WriteJSON(map[string]any{
		"jsonrpc": "2.0", "id": 2, "method": "tools/call",
		"params": map[string]any{"name": "tap", "arguments": map[string]any{"x": 5, "y": 5}},
	})
	resp := readResponse(t, conn)
	if resp.Error != nil {
		t.Fatalf("tool call error: %+v", resp.Error)
	}
	if auto.taps.Load() != 1 {
		t.Errorf("taps = %d, want 1", auto.taps.Load())
	}
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	rem, url := startRemote(t)
	c, _ := startClient(t, url, nil)

	first := rem.accept(t)
	waitState(t, c, AwaitingHandshake)
	first.Close()

	// A new connection arrives after the initial backoff delay.
	second := rem.accept(t)
	if second == nil {
		t.Fatal("no reconnect")
	}
	waitState(t, c, AwaitingHandshake)
}

func TestClient_DisabledStaysDisconnected(t *testing.T) {
	_, url := startRemote(t)
	cfg := config.Defaults()
	cfg.ReverseEnabled = false
	cfg.ReverseURL = url
	store := config.NewStore(cfg)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auto := &stubAutomation{}
	router := wsrpc.NewRouter(dispatch.New(auto, store, log), store, log)
	c := New(store, router, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if c.State() != Disconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
}
