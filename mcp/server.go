// Package mcp exposes the composition operations as Model Context Protocol
// tools for AI assistants.
//
// Tools read and write files by path. The special input "shelf:" takes the
// previous tool's output instead of a file, and a tool called without an
// output path leaves its result on the shelf, so operations can be chained
// without touching the disk:
//
//	merge_pdfs   {"inputs": ["a.pdf", "b.pdf"]}
//	rotate_pages {"input": "shelf:", "rotations": "1:90", "output": "out.pdf"}
//
// # Usage with Claude Desktop
//
// Add to your claude_desktop_config.json:
//
//	{
//	  "mcpServers": {
//	    "pdfcompose": {
//	      "command": "pdfcompose",
//	      "args": ["mcp"]
//	    }
//	  }
//	}
package mcp

import (
	"context"
	"encoding/json"
	"io"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/lvillar/pdfcompose/dispatch"
	"github.com/lvillar/pdfcompose/handoff"
	"github.com/lvillar/pdfcompose/pageops"
	"github.com/lvillar/pdfcompose/progress"
)

// ShelfInput is the input path that takes the previous tool's output.
const ShelfInput = "shelf:"

// Server serves the PDF tools over MCP.
type Server struct {
	mcp       *server.MCPServer
	dispatch  *dispatch.Dispatcher
	shelf     handoff.Slot[pageops.File]
	log       *logrus.Logger
	outputDir string
	handlers  map[string]server.ToolHandlerFunc
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. MCP over stdio owns stdout, so the
// logger must write elsewhere.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithOutputDir sets where split_pdf writes when no directory is given.
func WithOutputDir(dir string) Option {
	return func(s *Server) {
		s.outputDir = dir
	}
}

// NewServer creates a Server running every tool through d.
func NewServer(d *dispatch.Dispatcher, version string, opts ...Option) *Server {
	s := &Server{
		mcp:       server.NewMCPServer("pdfcompose", version, server.WithToolCapabilities(false), server.WithResourceCapabilities(false, false)),
		dispatch:  d,
		outputDir: ".",
		handlers:  make(map[string]server.ToolHandlerFunc),
	}
	s.log = logrus.New()
	s.log.SetOutput(io.Discard)
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves MCP on stdin and stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// HandleMessage processes one JSON-RPC message and returns the response.
func (s *Server) HandleMessage(ctx context.Context, msg json.RawMessage) mcplib.JSONRPCMessage {
	return s.mcp.HandleMessage(ctx, msg)
}

func (s *Server) addTool(tool mcplib.Tool, h server.ToolHandlerFunc) {
	name := tool.Name
	wrapped := func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		log := s.log.WithField("tool", name)
		log.Debug("tool called")
		res, err := h(ctx, req)
		if err != nil {
			log.WithError(err).Info("tool failed")
			return mcplib.NewToolResultError(err.Error()), nil
		}
		return res, nil
	}
	s.handlers[name] = wrapped
	s.mcp.AddTool(tool, wrapped)
}

// progressFunc forwards progress to the client when the request carries a
// progress token.
func (s *Server) progressFunc(ctx context.Context, req mcplib.CallToolRequest) progress.Func {
	var token mcplib.ProgressToken
	if req.Params.Meta != nil {
		token = req.Params.Meta.ProgressToken
	}
	srv := server.ServerFromContext(ctx)

	return func(e progress.Event) {
		s.log.WithFields(logrus.Fields{
			"progress": e.Progress,
			"status":   e.Status,
		}).Debug(e.Message)

		if token == nil || srv == nil {
			return
		}
		params := map[string]any{
			"progressToken": token,
			"progress":      e.Progress,
			"total":         100,
			"message":       e.Message,
		}
		if err := srv.SendNotificationToClient(ctx, "notifications/progress", params); err != nil {
			s.log.WithError(err).Debug("sending progress")
		}
	}
}
