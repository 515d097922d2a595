package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/stepflow/internal/streaming"
)

// ServerDeps holds the optional dependencies of a StepflowServer.
type ServerDeps struct {
	// Hub, when set, receives the trace events of every run.
	Hub    streaming.EventHub
	Logger *slog.Logger
	// Version is reported to clients during initialization.
	Version string
}

// StepflowServer wraps an MCP server with the workflow-language tools.
type StepflowServer struct {
	hub       streaming.EventHub
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewStepflowServer creates a new StepflowServer with all 5 tools registered.
func NewStepflowServer(deps ServerDeps) *StepflowServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &StepflowServer{
		hub:    deps.Hub,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"stepflow",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Stepflow interprets a small workflow language of numbered steps. Use stepflow.check to validate a program, stepflow.run to execute it and read its trace, stepflow.describe to outline or diagram it, stepflow.tokenize to inspect its tokens and stepflow.commands to list the available commands."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *StepflowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *StepflowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 5 registered MCP tools as ServerTool entries.
func (s *StepflowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: checkTool(), Handler: s.handleCheck},
		{Tool: tokenizeTool(), Handler: s.handleTokenize},
		{Tool: describeTool(), Handler: s.handleDescribe},
		{Tool: commandsTool(), Handler: s.handleCommands},
	}
}

// --- Tool definitions ---

func runTool() mcp.Tool {
	return mcp.NewTool("stepflow.run",
		mcp.WithDescription("Execute a workflow program and return its trace and step results"),
		mcp.WithString("source", mcp.Required(), mcp.Description("Program source text")),
		mcp.WithString("run_id", mcp.Description("Run identifier (default: generated)")),
	)
}

func checkTool() mcp.Tool {
	return mcp.NewTool("stepflow.check",
		mcp.WithDescription("Validate a workflow program without running it"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("source", mcp.Required(), mcp.Description("Program source text")),
		mcp.WithBoolean("strict", mcp.Description("Report lint warnings as errors")),
	)
}

func tokenizeTool() mcp.Tool {
	return mcp.NewTool("stepflow.tokenize",
		mcp.WithDescription("List the tokens of a workflow program"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("source", mcp.Required(), mcp.Description("Program source text")),
	)
}

func describeTool() mcp.Tool {
	return mcp.NewTool("stepflow.describe",
		mcp.WithDescription("Describe a workflow program as a step outline, Mermaid flowchart, ASCII diagram or PNG image"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("source", mcp.Required(), mcp.Description("Program source text")),
		mcp.WithString("format",
			mcp.Enum("steps", "mermaid", "ascii", "image"),
			mcp.Description("Output format (default: steps)"),
		),
	)
}

func commandsTool() mcp.Tool {
	return mcp.NewTool("stepflow.commands",
		mcp.WithDescription("List the commands a step can call"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}
