package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// ConfigFileNames are the names mcp.json may have in the user config dir, in lookup order.
var ConfigFileNames = []string{"mcp.json", "mcp.yaml", "mcp.yml"}

// ConfigFilePath returns the path of the mcp config file in use, or the default
// mcp.json path when none exists yet.
func (m *MCPService) ConfigFilePath() string {
	for _, name := range ConfigFileNames {
		p := filepath.Join(m.userConfigDir, name)
		if ok, _ := afero.Exists(m.fs, p); ok {
			return p
		}
	}
	return filepath.Join(m.userConfigDir, ConfigFileNames[0])
}

// ReadFileConfig reads the MCP server declarations. A missing file is an empty config.
func (m *MCPService) ReadFileConfig() (*types.McpFileConfig, error) {
	path := m.ConfigFilePath()
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &types.McpFileConfig{McpServers: map[string]types.McpServerFileConfig{}}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseFileConfig(path, data)
}

func parseFileConfig(path string, data []byte) (*types.McpFileConfig, error) {
	var c types.McpFileConfig
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if c.McpServers == nil {
		c.McpServers = map[string]types.McpServerFileConfig{}
	}
	return &c, nil
}

// activeServerNames returns the names of the servers not disabled in the file, sorted.
func activeServerNames(c *types.McpFileConfig) []string {
	names := make([]string, 0, len(c.McpServers))
	for name, sc := range c.McpServers {
		if sc.Disabled {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
