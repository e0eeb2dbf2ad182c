// Package mcpserver provides an MCP (Model Context Protocol) server for
// replan, adapted from cortex's internal/mcp/server.go shape: a single
// long-lived process registering one or more mcp.NewTool definitions
// against a mcp-go server.MCPServer and serving them over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/anthropics/replan/internal/env"
	"github.com/anthropics/replan/internal/events"
	"github.com/anthropics/replan/internal/planio"
	"github.com/anthropics/replan/internal/planrun"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

// Server wraps the MCP server with replan-specific functionality.
type Server struct {
	mcpServer    *server.MCPServer
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration.
type Config struct {
	Timeout time.Duration // Inactivity timeout (0 = no timeout)
}

// New creates a new MCP server for replan and registers the
// replan_plan tool.
func New(cfg Config) (*Server, error) {
	mcpServer := server.NewMCPServer(
		"replan",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcpServer:    mcpServer,
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	if err := s.registerPlanTool(); err != nil {
		return nil, fmt.Errorf("failed to register replan_plan tool: %w", err)
	}

	return s, nil
}

// ServeStdio starts the server using stdio transport.
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker()
	}
	return server.ServeStdio(s.mcpServer)
}

// timeoutChecker monitors for inactivity and exits if timeout exceeded.
func (s *Server) timeoutChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.RLock()
		elapsed := time.Since(s.lastActivity)
		s.mu.RUnlock()

		if elapsed > s.timeout {
			fmt.Fprintf(os.Stderr, "replan mcp: timeout after %v of inactivity\n", s.timeout)
			os.Exit(0)
		}
	}
}

func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// registerPlanTool registers the replan_plan tool.
func (s *Server) registerPlanTool() error {
	tool := mcp.NewTool("replan_plan",
		mcp.WithDescription("Compute a parse plan from a saved-manifest snapshot and a fresh-file-map snapshot. Returns the project -> parser -> [file_id] plan plus the full-parse bailout signal."),
		mcp.WithString("saved_path",
			mcp.Required(),
			mcp.Description("Path to the saved-manifest YAML snapshot"),
		),
		mcp.WithString("fresh_path",
			mcp.Required(),
			mcp.Description("Path to the fresh-file-map YAML snapshot"),
		),
	)

	s.mcpServer.AddTool(tool, s.handlePlan)
	return nil
}

func (s *Server) handlePlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.updateActivity()

	args := req.GetArguments()
	savedPath, _ := args["saved_path"].(string)
	freshPath, _ := args["fresh_path"].(string)
	if savedPath == "" {
		return mcp.NewToolResultError("saved_path parameter is required"), nil
	}
	if freshPath == "" {
		return mcp.NewToolResultError("fresh_path parameter is required"), nil
	}

	result, err := s.executePlan(savedPath, freshPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(result), nil
}

// executePlan runs one planning pass and renders the result as YAML
// text, the same rendering the CLI's plan subcommand uses.
func (s *Server) executePlan(savedPath, freshPath string) (string, error) {
	saved, err := planio.Load(savedPath)
	if err != nil {
		return "", fmt.Errorf("loading saved manifest: %w", err)
	}
	fresh, err := planio.Load(freshPath)
	if err != nil {
		return "", fmt.Errorf("loading fresh file map: %w", err)
	}

	var accessor env.Accessor = env.Process{}
	if static := mergeStaticEnv(saved.Env, fresh.Env); len(static) > 0 {
		accessor = env.Static(static)
	}
	result, err := planrun.Run(saved.Saved, fresh.Fresh, accessor, events.NopSink{})
	if err != nil {
		return "", fmt.Errorf("planning run failed: %w", err)
	}

	out := map[string]interface{}{
		"project_parser_files":           result.ProjectParserFiles,
		"deleted_special_override_macro": result.DeletedSpecialOverride,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("rendering result: %w", err)
	}
	return string(data), nil
}

// mergeStaticEnv layers static env-var overrides, later maps winning.
// Returns nil if every source is empty, signaling the caller should
// use the live process environment instead.
func mergeStaticEnv(sources ...map[string]string) map[string]string {
	var merged map[string]string
	for _, src := range sources {
		for k, v := range src {
			if merged == nil {
				merged = make(map[string]string)
			}
			merged[k] = v
		}
	}
	return merged
}
