// Package settingsync keeps a locally held MCP enabled state in sync with the
// configuration service.
//
// Local toggles are written back as mcp_server_settings right away. Change
// notifications from the service trigger a full re-read of the config, unless the
// notification is the echo of one of our own writes. Every write on the service
// side bumps a revision, which is what makes echoes recognizable.
package settingsync

import (
	"context"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// ConfigService is the configuration service as seen by the settings surfaces.
type ConfigService interface {
	GetConfig(ctx context.Context) (*types.Config, error)
	SetConfig(ctx context.Context, update *types.ConfigUpdate) (*types.SetConfigResult, error)
	UpdateOllamaModelList(ctx context.Context) error
	ReloadMCPServers(ctx context.Context) error
	ReloadMCPServerList(ctx context.Context) error
}

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a short message shown to the user without blocking.
type Notice struct {
	Level   Level
	Message string
}

// Notifier shows notices to the user. Implementations must not block.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }
