package cmd

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentix/droidportal/internal/config"
	"github.com/agentix/droidportal/internal/dispatch"
	"github.com/agentix/droidportal/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the portal's tools over an MCP transport",
	Long: `Start a Model Context Protocol (MCP) server exposing every portal
action as a tool, sharing the device binding with the network surfaces.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  droidportal mcp
  droidportal mcp --transport streamable-http --port 8082`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	mcpCmd.Flags().Int("port", 8082, "HTTP port for streamable-http transport")
}

func runMCP(cmd *cobra.Command, args []string) error {
	store, _, disp, _, err := setup(cmd)
	if err != nil {
		return err
	}

	srv := mcpserver.NewMCPServer("droidportal", version.Version)
	registerMCPTools(srv, disp, store)

	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")
	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(srv)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(srv)
		return httpServer.Start(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
}

// registerMCPTools converts the canonical tool table into MCP registrations.
func registerMCPTools(srv *mcpserver.MCPServer, disp *dispatch.Dispatcher, store *config.Store) {
	for _, def := range dispatch.Tools() {
		if !store.ToolEnabled(def.Name) {
			continue
		}
		opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
		for _, p := range def.Params {
			var propOpts []mcp.PropertyOption
			propOpts = append(propOpts, mcp.Description(p.Description))
			if p.Required {
				propOpts = append(propOpts, mcp.Required())
			}
			switch p.Type {
			case "number":
				opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
			case "boolean":
				opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
			default:
				opts = append(opts, mcp.WithString(p.Name, propOpts...))
			}
		}
		srv.AddTool(mcp.NewTool(def.Name, opts...), mcpHandler(disp, def.Name))
	}
}

// mcpHandler bridges one MCP tool call into the dispatcher. Action failures
// become tool error results, not protocol errors.
func mcpHandler(disp *dispatch.Dispatcher, name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := disp.Dispatch(ctx, name, dispatch.Params(req.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if res.IsBinary() {
			return mcp.NewToolResultImage("screenshot",
				base64.StdEncoding.EncodeToString(res.Binary), res.MIME), nil
		}
		switch v := res.Data.(type) {
		case string:
			return mcp.NewToolResultText(v), nil
		default:
			// Structured results render as YAML text.
			b, err := yaml.Marshal(v)
			if err != nil {
				return mcp.NewToolResultError("result serialization failed"), nil
			}
			return mcp.NewToolResultText(string(b)), nil
		}
	}
}
