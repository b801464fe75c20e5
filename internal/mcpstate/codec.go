package mcpstate

import "github.com/notebook-intelligence/nbi-settings/pkg/types"

// ToEnabledState derives the in-memory state from the persisted settings.
//
// A server without a settings entry is enabled with all of its tools.
// A server whose entry is disabled is left out.
// Otherwise the server is enabled with all tools except those listed in disabled_tools;
// names in disabled_tools that the server no longer exposes are ignored.
// Settings for ids missing from the catalog are ignored.
func ToEnabledState(servers []types.McpServer, settings types.McpServerSettings) EnabledState {
	m := make(map[string]ToolSet, len(servers))
	for i := range servers {
		server := &servers[i]
		setting, ok := settings[server.ID]
		if ok && setting.Disabled {
			continue
		}

		tools := make(ToolSet, len(server.Tools))
		disabled := NewToolSet(setting.DisabledTools...)
		for _, t := range server.Tools {
			if disabled.Has(t.Name) {
				continue
			}
			tools[t.Name] = struct{}{}
		}
		m[server.ID] = tools
	}
	return EnabledState{servers: m}
}

// ToSettings derives the persisted settings from the in-memory state.
//
// Every catalog server gets an entry: {disabled: true} when it is absent from the state,
// otherwise {disabled: false, disabled_tools: [...]} where disabled_tools holds the
// catalog tools missing from the server's set, in catalog order.
func ToSettings(servers []types.McpServer, state EnabledState) types.McpServerSettings {
	settings := make(types.McpServerSettings, len(servers))
	for i := range servers {
		server := &servers[i]
		tools, ok := state.servers[server.ID]
		if !ok {
			settings[server.ID] = types.McpServerSetting{Disabled: true}
			continue
		}

		disabledTools := make([]string, 0)
		for _, t := range server.Tools {
			if !tools.Has(t.Name) {
				disabledTools = append(disabledTools, t.Name)
			}
		}
		settings[server.ID] = types.McpServerSetting{
			Disabled:      false,
			DisabledTools: disabledTools,
		}
	}
	return settings
}
