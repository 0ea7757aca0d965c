// Package mcpserver exposes the dispatcher over MCP stdio. Every
// registered tool callable in the active mode becomes an MCP tool; calls
// run through the same pipeline as HTTP.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dbmcp/sql-gateway/internal/dispatch"
)

// stdioClient identifies stdio callers to the rate limiter. Stdio serves
// a single client, so one bucket is correct.
const stdioClient = "stdio"

// New builds an MCP server backed by the dispatcher.
func New(name, version string, d *dispatch.Dispatcher) *server.MCPServer {
	srv := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)

	for _, t := range d.Tools() {
		tool := mcp.NewToolWithRawSchema(t.Name, t.Description, t.InputSchema)
		toolName := t.Name
		srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			resp := d.Dispatch(ctx, dispatch.Request{
				Tool:      toolName,
				Arguments: req.GetArguments(),
				ClientID:  stdioClient,
			})
			body, err := json.Marshal(resp)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if !resp.Success {
				return mcp.NewToolResultError(string(body)), nil
			}
			return mcp.NewToolResultText(string(body)), nil
		})
	}

	return srv
}

// ServeStdio blocks serving MCP over stdin/stdout.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}
