// Package inspect exposes the window manager over the Model Context
// Protocol so agents and tooling can observe and drive windows. The server
// speaks MCP on stdio and forwards every tool call to the daemon through
// the IPC socket, so it can run as a separate process.
package inspect

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/embery/winman/internal/ipc"
)

const (
	ServerName    = "winman"
	ServerVersion = "0.1.0"
)

// Server is the MCP inspection server.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
}

// NewServer creates an MCP server that proxies to the daemon socket.
func NewServer(socketPath string) *Server {
	s := &Server{
		client: ipc.NewClientWithPath(socketPath),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List all managed windows with their view id, archetype (regular or popup), title, state, logical client size, owner, and owned popup count.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Look up a single managed window by its view id.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_displays",
		Description: "List connected displays with their bounds, usable work area, and DPI.",
	}, s.handleGetDisplays)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_window",
		Description: "Create and show a window. Regular windows are top level; popups attach to an owner window and are placed against its frame using anchor and popup gravities.",
	}, s.handleCreateWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_window_state",
		Description: "Restore, maximize, or minimize a regular window.",
	}, s.handleSetWindowState)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_popups",
		Description: "Close every popup owned by a window. Returns how many were closed.",
	}, s.handleClosePopups)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "destroy_window",
		Description: "Destroy a window. Owned popups are closed first; destroying the last window does not stop the daemon.",
	}, s.handleDestroyWindow)
}
