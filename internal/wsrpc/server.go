package wsrpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentix/droidportal/internal/config"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a session may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so pings keep the read
	// deadline fed.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames.
	maxMessageSize = 1 << 20
	// sendBuffer is the per-session outbound queue.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The portal is addressed by tools, not browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server accepts WebSocket sessions and answers JSON-RPC over them. One
// session is active at a time; a newer connection displaces the current one.
type Server struct {
	router *Router
	cfg    *config.Store
	log    *slog.Logger

	mu      sync.Mutex
	current *session
	ln      net.Listener
}

// NewServer creates a WebSocket server over the given router.
func NewServer(router *Router, cfg *config.Store, log *slog.Logger) *Server {
	return &Server{router: router, cfg: cfg, log: log}
}

// Listen binds addr and returns the bound address.
func (s *Server) Listen(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return ln.Addr(), nil
}

// Serve runs the HTTP upgrade endpoint until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("wsrpc: Serve before Listen")
	}

	srv := &http.Server{Handler: s}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		s.closeCurrent()
	}()
	err := srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ServeHTTP upgrades the connection and runs the session pumps.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := newSession(conn, s.router, s.log)
	s.mu.Lock()
	if s.current != nil {
		s.log.Info("displacing existing session", "remote", conn.RemoteAddr())
		s.current.close()
	}
	s.current = sess
	s.mu.Unlock()

	sess.run(r.Context())

	s.mu.Lock()
	if s.current == sess {
		s.current = nil
	}
	s.mu.Unlock()
}

func (s *Server) authorized(r *http.Request) bool {
	cfg := s.cfg.Get()
	if !cfg.AuthNeeded {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		token = r.URL.Query().Get("token")
	}
	return cfg.AuthToken != "" && token == cfg.AuthToken
}

func (s *Server) closeCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.close()
		s.current = nil
	}
}

// session is one live WebSocket connection. Requests are handled strictly
// in arrival order; responses go through a bounded send queue drained by a
// single writer goroutine.
type session struct {
	conn   *websocket.Conn
	router *Router
	log    *slog.Logger
	send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn, router *Router, log *slog.Logger) *session {
	return &session{
		conn:   conn,
		router: router,
		log:    log,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (s *session) run(ctx context.Context) {
	go s.writePump()
	s.readPump(ctx)
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *session) readPump(ctx context.Context) {
	defer s.close()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("session read error", "error", err)
			}
			return
		}
		if resp := s.router.HandleRaw(ctx, data); resp != nil {
			select {
			case s.send <- resp:
			case <-s.done:
				return
			}
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
