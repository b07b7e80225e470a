// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes sync operations for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fleetingnotes/fleeting-sync/internal/apperr"
	"github.com/fleetingnotes/fleeting-sync/internal/state"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
	"github.com/fleetingnotes/fleeting-sync/internal/vault"
)

// Server wraps the MCP server with sync tools.
type Server struct {
	mcp    *server.MCPServer
	syncer *syncengine.Syncer
	states *state.Store
	store  storage.Provider
}

// New creates a new MCP server with all sync tools registered.
func New(syncer *syncengine.Syncer, states *state.Store, store storage.Provider) *Server {
	s := &Server{syncer: syncer, states: states, store: store}

	s.mcp = server.NewMCPServer(
		"fleeting-sync",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Run one sync cycle against the remote note store and report the file operations performed."),
	), s.syncNow)

	s.mcp.AddTool(mcp.NewTool("sync_status",
		mcp.WithDescription("Report the sync configuration, last successful sync time, and recent run history."),
	), s.syncStatus)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the synced notes in the local vault folder (id and path per note)."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a synced note file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path to the note (e.g. notes/idea.md)")),
	), s.readNote)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) syncNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.syncer.Sync(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrSyncInProgress) {
			return mcp.NewToolResultError("a sync cycle is already running"), nil
		}
		return mcp.NewToolResultError(syncengine.UserMessage(err)), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.states.RecentRuns(5)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	last, err := s.states.LastSync()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status := map[string]any{
		"mode":      string(s.syncer.Settings().Mode),
		"folder":    s.syncer.Settings().Folder,
		"in_flight": s.syncer.InFlight(),
		"runs":      runs,
	}
	if !last.IsZero() {
		status["last_sync"] = last
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := vault.Scan(s.store, s.syncer.Settings().Folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(idx) == 0 {
		return mcp.NewToolResultText("no synced notes"), nil
	}

	lines := make([]string, 0, len(idx))
	for id, rec := range idx {
		lines = append(lines, fmt.Sprintf("%s\t%s", id, rec.File.Path))
	}
	sort.Strings(lines)
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
