// Package wsrpc exposes the command surface over a WebSocket JSON-RPC
// session. The same method router also backs the reverse connection, where
// the portal dials out but still plays the server role.
package wsrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/dispatch"
	"github.com/agentix/droidportal/internal/rpc"
	"github.com/agentix/droidportal/internal/version"
)

// protocolVersion is the tool-protocol revision reported by initialize.
const protocolVersion = "2024-11-05"

// Router answers JSON-RPC requests against the dispatcher.
type Router struct {
	disp *dispatch.Dispatcher
	cfg  *config.Store
	log  *slog.Logger
}

// NewRouter creates a method router over the given dispatcher.
func NewRouter(disp *dispatch.Dispatcher, cfg *config.Store, log *slog.Logger) *Router {
	return &Router{disp: disp, cfg: cfg, log: log}
}

// HandleRaw decodes one wire message and returns the encoded response, or
// nil when the message is a notification and gets no answer.
func (r *Router) HandleRaw(ctx context.Context, data []byte) []byte {
	var req rpc.Request
	if err := json.Unmarshal(data, &req); err != nil {
		out, _ := json.Marshal(rpc.NewErrorResponse(nil, rpc.ErrParseError, "parse error", err.Error()))
		return out
	}
	resp := r.Handle(ctx, &req)
	if resp == nil {
		return nil
	}
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(rpc.NewErrorResponse(req.ID, rpc.ErrInternalError, "response serialization failed", nil))
	}
	return out
}

// Handle answers one request. Notifications return nil.
func (r *Router) Handle(ctx context.Context, req *rpc.Request) *rpc.Response {
	if req.IsNotification() {
		// Lifecycle notifications (notifications/initialized and friends)
		// are accepted and dropped.
		return nil
	}
	if req.JSONRPC != rpc.Version {
		return rpc.NewErrorResponse(req.ID, rpc.ErrInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
	}

	switch req.Method {
	case "initialize":
		return rpc.NewResponse(req.ID, r.initializeResult())
	case "ping":
		return rpc.NewResponse(req.ID, map[string]any{})
	case "tools/list":
		return rpc.NewResponse(req.ID, map[string]any{"tools": r.listTools()})
	case "tools/call":
		return r.callTool(ctx, req)
	default:
		return rpc.NewErrorResponse(req.ID, rpc.ErrMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

func (r *Router) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]any{
			"name":    "droidportal",
			"version": version.Version,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
	}
}

// listTools renders the tool table, filtered by the enabled set.
func (r *Router) listTools() []map[string]any {
	tools := make([]map[string]any, 0)
	for _, t := range dispatch.Tools() {
		if !r.cfg.ToolEnabled(t.Name) {
			continue
		}
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema(),
		})
	}
	return tools
}

// callParams is the tools/call parameter shape.
type callParams struct {
	Name      string          `json:"name"`
	Arguments dispatch.Params `json:"arguments"`
}

func (r *Router) callTool(ctx context.Context, req *rpc.Request) *rpc.Response {
	var p callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return rpc.NewErrorResponse(req.ID, rpc.ErrInvalidParams, "malformed tools/call params", err.Error())
		}
	}
	if p.Name == "" {
		return rpc.NewErrorResponse(req.ID, rpc.ErrInvalidParams, "missing tool name", nil)
	}
	if !r.cfg.ToolEnabled(p.Name) || !r.disp.Has(p.Name) {
		return rpc.NewErrorResponse(req.ID, rpc.ErrInvalidParams, fmt.Sprintf("unknown tool %q", p.Name), nil)
	}
	if p.Arguments == nil {
		p.Arguments = dispatch.Params{}
	}

	res, err := r.disp.Dispatch(ctx, p.Name, p.Arguments)
	if err != nil {
		// Tool execution failures stay inside the result: the call itself
		// succeeded at the protocol level.
		r.log.Debug("tool failed", "tool", p.Name, "error", err)
		return rpc.NewResponse(req.ID, map[string]any{
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		})
	}
	return rpc.NewResponse(req.ID, map[string]any{"content": resultContent(res)})
}

// resultContent wraps a dispatcher result into content blocks.
func resultContent(res dispatch.Result) []map[string]any {
	if res.IsBinary() {
		return []map[string]any{{
			"type":     "image",
			"data":     base64.StdEncoding.EncodeToString(res.Binary),
			"mimeType": res.MIME,
		}}
	}
	var text string
	switch v := res.Data.(type) {
	case string:
		text = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			text = fmt.Sprint(v)
		} else {
			text = string(b)
		}
	}
	return []map[string]any{{"type": "text", "text": text}}
}
