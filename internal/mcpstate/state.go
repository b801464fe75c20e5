package mcpstate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// ErrServerDisabled is returned when a tool of a disabled server is toggled.
// Callers are expected to check IsServerEnabled first, so this signals a broken caller invariant.
var ErrServerDisabled = errors.New("mcp server is disabled")

// ToolSet is a set of tool names.
type ToolSet map[string]struct{}

// NewToolSet returns a set holding the given names.
func NewToolSet(names ...string) ToolSet {
	s := make(ToolSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s ToolSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s ToolSet) clone() ToolSet {
	c := make(ToolSet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// EnabledState holds the enabled servers and, per server, the enabled tools.
// It is immutable: every mutation returns a new value and leaves the receiver untouched,
// so a reader holding an EnabledState never observes a partial update.
// The zero value is a valid state with every server disabled.
type EnabledState struct {
	servers map[string]ToolSet
}

// NewEnabledState builds a state from a map of server id to enabled tool names.
func NewEnabledState(enabled map[string][]string) EnabledState {
	servers := make(map[string]ToolSet, len(enabled))
	for id, tools := range enabled {
		servers[id] = NewToolSet(tools...)
	}
	return EnabledState{servers: servers}
}

// IsServerEnabled reports whether the server id is present in the state.
func (s EnabledState) IsServerEnabled(id string) bool {
	_, ok := s.servers[id]
	return ok
}

// IsToolEnabled reports whether the server is enabled and the tool is in its set.
func (s EnabledState) IsToolEnabled(serverID, toolName string) bool {
	tools, ok := s.servers[serverID]
	return ok && tools.Has(toolName)
}

// EnabledTools returns the sorted names of the enabled tools of a server.
// It returns nil when the server is disabled.
func (s EnabledState) EnabledTools(serverID string) []string {
	tools, ok := s.servers[serverID]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(tools))
	for n := range tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ServerIDs returns the sorted ids of the enabled servers.
func (s EnabledState) ServerIDs() []string {
	ids := make([]string, 0, len(s.servers))
	for id := range s.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of enabled servers.
func (s EnabledState) Len() int {
	return len(s.servers)
}

// Map returns a copy of the state as server id -> sorted enabled tool names.
func (s EnabledState) Map() map[string][]string {
	m := make(map[string][]string, len(s.servers))
	for id := range s.servers {
		m[id] = s.EnabledTools(id)
	}
	return m
}

// Equal reports whether both states enable the same servers and tools.
func (s EnabledState) Equal(o EnabledState) bool {
	if len(s.servers) != len(o.servers) {
		return false
	}
	for id, tools := range s.servers {
		other, ok := o.servers[id]
		if !ok || len(other) != len(tools) {
			return false
		}
		for n := range tools {
			if !other.Has(n) {
				return false
			}
		}
	}
	return true
}

// shallowCopy copies the outer map only. Tool sets are shared until replaced.
func (s EnabledState) shallowCopy() map[string]ToolSet {
	m := make(map[string]ToolSet, len(s.servers)+1)
	for id, tools := range s.servers {
		m[id] = tools
	}
	return m
}

// SetServerEnabled enables or disables a server.
//
// Enabling a disabled server resets its tool set to every tool the catalog currently
// lists for it; earlier per-tool choices are not restored. Enabling an already enabled
// server, or a server the catalog does not know, returns the state unchanged.
// Disabling drops the server together with its per-tool choices.
func (s EnabledState) SetServerEnabled(catalog []types.McpServer, id string, enabled bool) EnabledState {
	if !enabled {
		if !s.IsServerEnabled(id) {
			return s
		}
		m := s.shallowCopy()
		delete(m, id)
		return EnabledState{servers: m}
	}

	if s.IsServerEnabled(id) {
		return s
	}
	server, ok := findServer(catalog, id)
	if !ok {
		return s
	}
	m := s.shallowCopy()
	m[id] = NewToolSet(server.ToolNames()...)
	return EnabledState{servers: m}
}

// SetToolEnabled adds or removes a tool from an enabled server's set.
// It returns ErrServerDisabled if the server is not enabled.
func (s EnabledState) SetToolEnabled(serverID, toolName string, enabled bool) (EnabledState, error) {
	tools, ok := s.servers[serverID]
	if !ok {
		return s, fmt.Errorf("cannot set tool %s enabled=%t: %w: %s", toolName, enabled, ErrServerDisabled, serverID)
	}
	if tools.Has(toolName) == enabled {
		return s, nil
	}

	updated := tools.clone()
	if enabled {
		updated[toolName] = struct{}{}
	} else {
		delete(updated, toolName)
	}

	m := s.shallowCopy()
	m[serverID] = updated
	return EnabledState{servers: m}, nil
}

func findServer(catalog []types.McpServer, id string) (*types.McpServer, bool) {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i], true
		}
	}
	return nil, false
}
