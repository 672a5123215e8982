// Package mcp exposes registered skills as MCP tools over stdio, so MCP
// clients can invoke them directly without the HTTP surface.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cadenza-ai/cadenza/pkg/schema"
	"github.com/cadenza-ai/cadenza/pkg/skill"
)

// Server wraps the mcp-go server around a skill registry.
type Server struct {
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server exposing every skill in the registry as a
// tool named after the skill.
func NewServer(name, version string, skills *skill.Registry) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(name, version),
	}
	for _, sk := range skills.List() {
		s.addSkill(sk)
	}
	return s
}

func (s *Server) addSkill(sk *skill.Skill) {
	opts := []mcp.ToolOption{mcp.WithDescription(sk.Description)}
	for _, name := range sk.InputSchema.Names() {
		opts = append(opts, fieldOption(name, sk.InputSchema[name])...)
	}
	tool := mcp.NewTool(sk.Name, opts...)

	handler := sk.Handler
	inputSchema := sk.InputSchema
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		validated, err := inputSchema.Validate(args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		output, err := handler.Invoke(ctx, validated)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		encoded, err := json.Marshal(output)
		if err != nil {
			return nil, fmt.Errorf("encode tool result: %w", err)
		}
		return mcp.NewToolResultText(string(encoded)), nil
	})
}

// fieldOption maps one schema field to mcp tool options.
func fieldOption(name string, field schema.Field) []mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if field.Description != "" {
		propOpts = append(propOpts, mcp.Description(field.Description))
	}
	if field.Required {
		propOpts = append(propOpts, mcp.Required())
	}

	switch field.Type {
	case schema.TypeInteger, schema.TypeNumber:
		return []mcp.ToolOption{mcp.WithNumber(name, propOpts...)}
	case schema.TypeBoolean:
		return []mcp.ToolOption{mcp.WithBoolean(name, propOpts...)}
	case schema.TypeArray:
		return []mcp.ToolOption{mcp.WithArray(name, propOpts...)}
	case schema.TypeObject:
		return []mcp.ToolOption{mcp.WithObject(name, propOpts...)}
	default:
		return []mcp.ToolOption{mcp.WithString(name, propOpts...)}
	}
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
