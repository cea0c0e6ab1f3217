package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"otc-analytics/internal/source"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// ServerName is announced to MCP clients during initialization.
const ServerName = "otc-analytics"

// Server exposes order-cycle analyses as MCP tools.
type Server struct {
	data                *source.Dataset
	enableMermaidCharts bool
	version             string
}

// NewServer creates a new MCP server over a dataset.
func NewServer(data *source.Dataset, enableMermaidCharts bool, version string) *Server {
	return &Server{data: data, enableMermaidCharts: enableMermaidCharts, version: version}
}

// Build returns the SDK server with every tool registered.
func (s *Server) Build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the server over stdin/stdout until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", s.version).Msg("MCP server listening on stdio")
	return s.Build().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) formatResult(data any) (*mcp.CallToolResult, any, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
	}, nil, nil
}
