// Package httpapi is the request/response transport: a line-oriented HTTP
// server over raw TCP with a bounded worker pool. Each accepted connection
// carries exactly one request and is closed after the response.
package httpapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/dispatch"
)

// numWorkers is the size of the connection-handling pool. Device calls
// block, so more workers would only pile up behind the gesture mutex.
const numWorkers = 5

// connTimeout bounds one full request-response cycle.
const connTimeout = 30 * time.Second

// Server serves the HTTP-style surface over a dispatcher.
type Server struct {
	disp *dispatch.Dispatcher
	cfg  *config.Store
	log  *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

// New creates an HTTP adapter over the given dispatcher and config store.
func New(disp *dispatch.Dispatcher, cfg *config.Store, log *slog.Logger) *Server {
	return &Server{disp: disp, cfg: cfg, log: log}
}

// Listen binds the configured port and returns the bound address, so
// callers (and tests using port 0) know where the server landed.
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

// Serve accepts connections until ctx is cancelled. Listen must have been
// called first. Connections are fanned out to a fixed worker pool; a full
// pool delays accept rather than growing unbounded.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("httpapi: Serve before Listen")
	}

	conns := make(chan net.Conn)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for conn := range conns {
				s.handleConn(ctx, conn)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var acceptErr error
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() == nil {
				acceptErr = err
			}
			break
		}
		conns <- conn
	}
	close(conns)
	wg.Wait()
	return acceptErr
}

// handleConn runs one full request-response cycle on a pool worker.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	req, err := readRequest(bufio.NewReader(conn))
	if err != nil {
		s.log.Debug("bad request", "remote", conn.RemoteAddr(), "error", err)
		writeJSON(conn, 400, failure(err.Error()))
		return
	}

	if !s.authorized(req) {
		writeJSON(conn, 401, failure("unauthorized"))
		return
	}

	s.handleRequest(ctx, conn, req)
}

// authorized checks the bearer token when auth is enabled. /ping is always
// exempt so monitors can probe without credentials.
func (s *Server) authorized(req *request) bool {
	cfg := s.cfg.Get()
	if !cfg.AuthNeeded || req.Path == "/ping" {
		return true
	}
	token, ok := strings.CutPrefix(req.Headers["authorization"], "Bearer ")
	return ok && cfg.AuthToken != "" && token == cfg.AuthToken
}

// getActions maps read-only GET paths onto dispatcher actions.
var getActions = map[string]string{
	"/a11y_tree":      "a11y_tree",
	"/a11y_tree_full": "a11y_tree_full",
	"/state":          "state",
	"/state_full":     "state_full",
	"/phone_state":    "phone_state",
	"/version":        "version",
	"/packages":       "packages",
	"/screenshot":     "screenshot",
}

// postActions maps POST paths onto dispatcher actions. Paths under /action/
// pass through name normalization instead.
var postActions = map[string]string{
	"/keyboard/input": "input",
	"/keyboard/clear": "clear",
	"/keyboard/key":   "key",
	"/overlay_offset": "overlay_offset",
	"/socket_port":    "socket_port",
}

func (s *Server) handleRequest(ctx context.Context, conn net.Conn, req *request) {
	if req.Method == "GET" && req.Path == "/ping" {
		writeJSON(conn, 200, map[string]any{"success": true, "message": "pong"})
		return
	}

	var action string
	switch req.Method {
	case "GET":
		action = getActions[req.Path]
	case "POST":
		if a, ok := postActions[req.Path]; ok {
			action = a
		} else if strings.HasPrefix(req.Path, "/action/") {
			action = req.Path
		}
	default:
		writeJSON(conn, 400, failure(fmt.Sprintf("unsupported method %s", req.Method)))
		return
	}
	if action == "" {
		writeJSON(conn, 404, failure(fmt.Sprintf("no route for %s %s", req.Method, req.Path)))
		return
	}

	res, err := s.disp.Dispatch(ctx, action, req.Params)
	if err != nil {
		// Application-level failures ride on a 200 with an embedded body.
		writeJSON(conn, 200, failure(err.Error()))
		return
	}
	if res.IsBinary() {
		writeBinary(conn, res.MIME, res.Binary)
		return
	}
	writeJSON(conn, 200, res.Data)
}
