package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

type StreamableHTTPConfig struct {
	// URL must be a valid http/https URL.
	URL string `json:"url"`

	// Headers are sent with every request to the MCP server.
	Headers map[string]string `json:"headers,omitempty"`
}

type StdioConfig struct {
	// Command is the executable that runs the stdio MCP server.
	Command string `json:"command"`

	Args []string          `json:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
}

type SSEConfig struct {
	// URL must be a valid http/https URL.
	URL string `json:"url"`

	Headers map[string]string `json:"headers,omitempty"`
}

// McpServer is the catalog entry of an MCP server declared in the user's mcp.json.
type McpServer struct {
	gorm.Model

	// Name is the key of the server in the mcpServers object.
	Name      string                   `json:"name" gorm:"uniqueIndex;not null"`
	Transport types.McpServerTransport `json:"transport" gorm:"type:varchar(30);not null"`

	// Config holds the JSON form of StdioConfig, StreamableHTTPConfig or SSEConfig.
	Config datatypes.JSON `json:"config" gorm:"type:jsonb;not null"`

	Status types.ServerStatus `json:"status" gorm:"type:varchar(30);default:'not-connected'"`

	// LastError is the reason of the last failed connection attempt.
	LastError string `json:"last_error"`

	Tools   []Tool   `json:"tools" gorm:"foreignKey:ServerID"`
	Prompts []Prompt `json:"prompts" gorm:"foreignKey:ServerID"`
}

// NewStreamableHTTPServer creates an MCP server reached over streamable HTTP.
func NewStreamableHTTPServer(name, url string, headers map[string]string) (*McpServer, error) {
	if url == "" {
		return nil, errors.New("url is required for streamable HTTP transport")
	}
	configJSON, err := json.Marshal(StreamableHTTPConfig{URL: url, Headers: headers})
	if err != nil {
		return nil, err
	}
	return &McpServer{
		Name:      name,
		Transport: types.TransportStreamableHTTP,
		Config:    configJSON,
		Status:    types.StatusNotConnected,
	}, nil
}

// NewStdioServer creates an MCP server run as a sub-process.
func NewStdioServer(name, command string, args []string, env map[string]string) (*McpServer, error) {
	if command == "" {
		return nil, errors.New("command is required for stdio transport")
	}
	configJSON, err := json.Marshal(StdioConfig{Command: command, Args: args, Env: env})
	if err != nil {
		return nil, err
	}
	return &McpServer{
		Name:      name,
		Transport: types.TransportStdio,
		Config:    datatypes.JSON(configJSON),
		Status:    types.StatusNotConnected,
	}, nil
}

// NewSSEServer creates an MCP server reached over the legacy SSE transport.
func NewSSEServer(name, url string, headers map[string]string) (*McpServer, error) {
	if url == "" {
		return nil, errors.New("url is required for SSE transport")
	}
	configJSON, err := json.Marshal(SSEConfig{URL: url, Headers: headers})
	if err != nil {
		return nil, err
	}
	return &McpServer{
		Name:      name,
		Transport: types.TransportSSE,
		Config:    configJSON,
		Status:    types.StatusNotConnected,
	}, nil
}

// NewServerFromFileConfig creates the catalog entry for an mcp.json entry.
func NewServerFromFileConfig(name string, c *types.McpServerFileConfig) (*McpServer, error) {
	transport, err := c.ResolveTransport()
	if err != nil {
		return nil, fmt.Errorf("invalid config for MCP server %s: %w", name, err)
	}
	switch transport {
	case types.TransportStdio:
		return NewStdioServer(name, c.Command, c.Args, c.Env)
	case types.TransportSSE:
		return NewSSEServer(name, c.URL, c.Headers)
	default:
		return NewStreamableHTTPServer(name, c.URL, c.Headers)
	}
}

// GetStreamableHTTPConfig returns the configuration if this is a streamable HTTP server
func (s *McpServer) GetStreamableHTTPConfig() (*StreamableHTTPConfig, error) {
	if s.Transport != types.TransportStreamableHTTP {
		return nil, errors.New("server is not a streamable HTTP transport type")
	}
	var config StreamableHTTPConfig
	if err := json.Unmarshal(s.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetStdioConfig returns the configuration if this is a stdio server
func (s *McpServer) GetStdioConfig() (*StdioConfig, error) {
	if s.Transport != types.TransportStdio {
		return nil, errors.New("server is not a stdio transport type")
	}
	var config StdioConfig
	if err := json.Unmarshal(s.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// GetSSEConfig returns the configuration if this is an SSE server
func (s *McpServer) GetSSEConfig() (*SSEConfig, error) {
	if s.Transport != types.TransportSSE {
		return nil, errors.New("server is not a SSE transport type")
	}
	var config SSEConfig
	if err := json.Unmarshal(s.Config, &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ToAPI converts the catalog entry into its wire form.
// Tools and Prompts must be preloaded; they are returned in insertion order.
func (s *McpServer) ToAPI() types.McpServer {
	out := types.McpServer{
		ID:      s.Name,
		Status:  s.Status,
		Tools:   make([]types.Tool, len(s.Tools)),
		Prompts: make([]types.Prompt, len(s.Prompts)),
	}
	if out.Status == "" {
		out.Status = types.StatusNotConnected
	}
	for i, t := range s.Tools {
		out.Tools[i] = types.Tool{Name: t.Name, Description: t.Description}
	}
	for i, p := range s.Prompts {
		out.Prompts[i] = types.Prompt{Name: p.Name, Description: p.Description}
	}
	return out
}
