// Package mcpserver exposes the retrieval engine over the Model
// Context Protocol (SSE transport) alongside a plain HTTP query
// endpoint for the web front-end.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/andrew/mcp-finder-rag/pkg/retrieval"
)

const (
	serverName    = "mcp-finder"
	serverVersion = "1.0.0"

	retrieveToolName = "reterive_mcp_data"
)

// Config wires the server's dependencies. Engine is required, the
// rest have working defaults.
type Config struct {
	Engine retrieval.Engine
	Logger *log.Logger

	// AllowOrigin is echoed in CORS headers on /rag_query.
	AllowOrigin string

	// ExecEnabled registers the run_command tool. Off by default
	// since it executes arbitrary shell in WorkspaceDir.
	ExecEnabled  bool
	WorkspaceDir string
}

// Server holds the MCP server and its HTTP front.
type Server struct {
	cfg Config
	mcp *server.MCPServer
	sse *server.SSEServer
}

// NewServer builds the MCP server and registers its tools.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("retrieval engine is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.AllowOrigin == "" {
		cfg.AllowOrigin = "http://localhost:3000"
	}
	if cfg.WorkspaceDir == "" {
		cfg.WorkspaceDir = "."
	}

	s := &Server{cfg: cfg}

	mcpServer := server.NewMCPServer(serverName, serverVersion,
		server.WithToolCapabilities(true))

	mcpServer.AddTool(retrieveTool(), s.handleRetrieve)
	mcpServer.AddTool(addNumbersTool(), s.handleAddNumbers)

	if cfg.ExecEnabled {
		cfg.Logger.Warn("run_command tool enabled, shell execution is exposed over MCP",
			"workspace", cfg.WorkspaceDir)
		mcpServer.AddTool(runCommandTool(), s.handleRunCommand)
	}

	s.mcp = mcpServer
	s.sse = server.NewSSEServer(mcpServer,
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/messages/"),
	)
	return s, nil
}

// Handler returns the full HTTP mux: the SSE transport plus the
// /rag_query JSON endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/sse", s.sse.SSEHandler())
	mux.Handle("/messages/", s.sse.MessageHandler())
	mux.HandleFunc("/rag_query", s.handleRAGQuery)
	return mux
}

func retrieveTool() mcp.Tool {
	return mcp.NewTool(retrieveToolName,
		mcp.WithDescription("Search the indexed MCP server catalog and return the best match with its metadata"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language description of the MCP server you need"),
		),
	)
}

func (s *Server) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.cfg.Engine.Query(ctx, query)
	if err != nil {
		s.cfg.Logger.Error("retrieval failed", "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	return mcp.NewToolResultText(res.Text()), nil
}

func addNumbersTool() mcp.Tool {
	return mcp.NewTool("add_numbers",
		mcp.WithDescription("Add two numbers and return the sum"),
		mcp.WithNumber("a", mcp.Required(), mcp.Description("First number")),
		mcp.WithNumber("b", mcp.Required(), mcp.Description("Second number")),
	)
}

func (s *Server) handleAddNumbers(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := request.RequireFloat("a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := request.RequireFloat("b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%g", a+b)), nil
}

func runCommandTool() mcp.Tool {
	return mcp.NewTool("run_command",
		mcp.WithDescription("Run a shell command in the configured workspace directory and return its combined output"),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Shell command to execute"),
		),
	)
}

func (s *Server) handleRunCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := request.RequireString("command")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.cfg.Logger.Info("executing workspace command", "command", command)

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = s.cfg.WorkspaceDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("command failed: %v\n%s", err, out)), nil
	}

	return mcp.NewToolResultText(string(out)), nil
}

type ragQueryRequest struct {
	Query string `json:"query"`
}

// handleRAGQuery serves the web front-end. A query that matches
// nothing is still a 200 with the sentinel message, only malformed
// requests and engine failures are error statuses.
func (s *Server) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ragQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	res, err := s.cfg.Engine.Query(r.Context(), req.Query)
	if err != nil {
		s.cfg.Logger.Error("retrieval failed", "err", err)
		http.Error(w, "retrieval backend error", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.cfg.Logger.Error("writing response", "err", err)
	}
}
