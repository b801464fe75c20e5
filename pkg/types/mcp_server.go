package types

import (
	"encoding/json"
	"fmt"
)

// McpServerTransport represents the transport protocol used to reach an MCP server.
type McpServerTransport string

const (
	TransportStdio          McpServerTransport = "stdio"
	TransportStreamableHTTP McpServerTransport = "streamable_http"
	TransportSSE            McpServerTransport = "sse"
)

// ServerStatus is the connection status reported for an MCP server in the catalog.
type ServerStatus string

const (
	StatusConnecting      ServerStatus = "connecting"
	StatusConnected       ServerStatus = "connected"
	StatusFailedToConnect ServerStatus = "failed-to-connect"
	StatusNotConnected    ServerStatus = "not-connected"
)

// McpServer is an MCP server as reported by the configuration service.
// ID is unique within a listing.
type McpServer struct {
	ID      string       `json:"id"`
	Status  ServerStatus `json:"status"`
	Tools   []Tool       `json:"tools"`
	Prompts []Prompt     `json:"prompts"`
}

// ToolNames returns the names of the server's tools in catalog order.
func (s *McpServer) ToolNames() []string {
	names := make([]string, len(s.Tools))
	for i, t := range s.Tools {
		names[i] = t.Name
	}
	return names
}

// HasTool reports whether the server exposes a tool with the given name.
func (s *McpServer) HasTool(name string) bool {
	for _, t := range s.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Tool is a callable tool exposed by an MCP server. Name is unique within a server.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Prompt is a prompt template exposed by an MCP server.
type Prompt struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// McpServerSetting is the persisted per-server setting.
// A server without an entry in McpServerSettings is fully enabled.
type McpServerSetting struct {
	Disabled bool `json:"disabled"`

	// DisabledTools lists tools of an enabled server that the user switched off.
	// A nil slice is omitted from the JSON form, an empty one is written as [].
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

type mcpServerSettingJSON struct {
	Disabled      bool      `json:"disabled"`
	DisabledTools *[]string `json:"disabled_tools,omitempty"`
}

func (s McpServerSetting) MarshalJSON() ([]byte, error) {
	out := mcpServerSettingJSON{Disabled: s.Disabled}
	if s.DisabledTools != nil {
		out.DisabledTools = &s.DisabledTools
	}
	return json.Marshal(out)
}

func (s *McpServerSetting) UnmarshalJSON(data []byte) error {
	var in mcpServerSettingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Disabled = in.Disabled
	s.DisabledTools = nil
	if in.DisabledTools != nil {
		s.DisabledTools = *in.DisabledTools
	}
	return nil
}

// McpServerSettings maps a server id to its persisted setting.
type McpServerSettings map[string]McpServerSetting

// McpServerFileConfig is one entry of the "mcpServers" object in the user's mcp.json.
type McpServerFileConfig struct {
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Transport is only consulted for url-based servers; "sse" selects the legacy
	// SSE transport, anything else means streamable http.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// McpFileConfig is the document stored in the user's mcp.json.
type McpFileConfig struct {
	McpServers map[string]McpServerFileConfig `json:"mcpServers" yaml:"mcpServers"`
}

// ResolveTransport works out the transport of a server described in mcp.json.
func (c *McpServerFileConfig) ResolveTransport() (McpServerTransport, error) {
	switch {
	case c.Command != "":
		return TransportStdio, nil
	case c.URL != "" && c.Transport == string(TransportSSE):
		return TransportSSE, nil
	case c.URL != "":
		return TransportStreamableHTTP, nil
	default:
		return "", fmt.Errorf("either command or url is required")
	}
}

// ServerMetadata represents the server metadata response
type ServerMetadata struct {
	Version string `json:"version"`
}
