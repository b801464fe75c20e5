// Package mcpstate converts between the persisted, sparse "disabled" form of MCP
// server settings and the dense, in-memory "enabled" form used by the settings
// panel, and provides the copy-on-write operations that mutate the latter.
//
// The persisted form (types.McpServerSettings) maps a server id to
// {disabled, disabled_tools}; a missing entry means fully enabled.
// The in-memory form (EnabledState) maps an enabled server id to the set of its
// enabled tool names; a missing id means the server is disabled.
package mcpstate
