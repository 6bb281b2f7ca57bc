// Package mcp exposes lookups and MPV checks as tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/maypok86/otter/v2"

	"github.com/zhaobenny/mpvwatch/internal/aggregator"
	"github.com/zhaobenny/mpvwatch/internal/policy"
	"github.com/zhaobenny/mpvwatch/internal/report"
	"github.com/zhaobenny/mpvwatch/internal/risk"
)

const pathsTTL = 2 * time.Minute

// Fetcher is the report surface the tools need; report.Client satisfies it
type Fetcher interface {
	FetchTimeDetails(ctx context.Context, employeeID string) (report.TimeDetailsResult, error)
	FetchPathSummary(ctx context.Context) (report.PathSummaryResult, error)
	TestConnection(ctx context.Context) report.ConnectionResult
}

// Tool describes the contract for MCP tool implementations
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Deps are the engine pieces shared by every tool
type Deps struct {
	Fetcher      Fetcher
	Policy       policy.Policy
	Consolidator *aggregator.Consolidator
	Evaluator    *risk.Evaluator
	// Persist stores a cookie that was renewed during a fetch. Optional.
	Persist func(cookie string) error
	Logger  *slog.Logger
}

// Server wires the MCP runtime to the report tools
type Server struct {
	deps      Deps
	tools     map[string]Tool
	paths     *otter.Cache[string, pathsPayload]
	mcpServer *mcpserver.MCPServer
}

// NewServer constructs the server and registers all tools
func NewServer(name, version string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		deps:  deps,
		tools: make(map[string]Tool),
		paths: otter.Must(&otter.Options[string, pathsPayload]{
			MaximumSize:      16,
			ExpiryCalculator: otter.ExpiryWriting[string, pathsPayload](pathsTTL),
		}),
		mcpServer: mcpserver.NewMCPServer(name, version,
			mcpserver.WithToolCapabilities(true),
			mcpserver.WithLogging(),
			mcpserver.WithRecovery(),
		),
	}

	s.registerTool(&lookupTool{s})
	s.registerTool(&checkRiskTool{s})
	s.registerTool(&syncPathsTool{s})
	s.registerTool(&testConnectionTool{s})
	return s
}

// Start serves tools on stdin/stdout until ctx is done
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ExecuteTool runs a tool directly
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, ok := s.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(ctx, args)
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema), s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(fmt.Sprintf(`{"error":"tool %s returned an unencodable result"}`, tool.Name()))
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
		}, nil
	}
}

// persist saves a renewed cookie after the fetch that produced it returned
func (s *Server) persist(cookie string) {
	if cookie == "" || s.deps.Persist == nil {
		return
	}
	if err := s.deps.Persist(cookie); err != nil {
		s.deps.Logger.Warn("failed to save refreshed cookie", "error", err)
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}
