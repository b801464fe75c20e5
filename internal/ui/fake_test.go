package ui

import (
	"context"
	"sync"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

type fakeConfigService struct {
	mu      sync.Mutex
	cfg     types.Config
	updates []*types.ConfigUpdate
	setErr  error
	reloads int
}

func newFakeConfigService(cfg types.Config) *fakeConfigService {
	if cfg.Revision == 0 {
		cfg.Revision = 1
	}
	if cfg.McpServerSettings == nil {
		cfg.McpServerSettings = types.McpServerSettings{}
	}
	return &fakeConfigService{cfg: cfg}
}

func (f *fakeConfigService) GetConfig(_ context.Context) (*types.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.cfg
	cfg.McpServerSettings = make(types.McpServerSettings, len(f.cfg.McpServerSettings))
	for k, v := range f.cfg.McpServerSettings {
		cfg.McpServerSettings[k] = v
	}
	return &cfg, nil
}

func (f *fakeConfigService) SetConfig(_ context.Context, u *types.ConfigUpdate) (*types.SetConfigResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	if f.setErr != nil {
		return nil, f.setErr
	}
	if u.McpServerSettings != nil {
		f.cfg.McpServerSettings = u.McpServerSettings
	}
	if u.DefaultChatMode != nil {
		f.cfg.DefaultChatMode = *u.DefaultChatMode
	}
	f.cfg.Revision++
	return &types.SetConfigResult{Revision: f.cfg.Revision}, nil
}

func (f *fakeConfigService) UpdateOllamaModelList(_ context.Context) error { return f.bump() }

func (f *fakeConfigService) ReloadMCPServers(_ context.Context) error { return f.bump() }

func (f *fakeConfigService) ReloadMCPServerList(_ context.Context) error { return f.bump() }

func (f *fakeConfigService) bump() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	f.cfg.Revision++
	return nil
}

// change simulates a write made by another client.
func (f *fakeConfigService) change(fn func(cfg *types.Config)) types.ConfigChangedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.cfg)
	f.cfg.Revision++
	return types.ConfigChangedEvent{Type: types.ConfigChangedEventType, Revision: f.cfg.Revision}
}

func (f *fakeConfigService) lastUpdate() *types.ConfigUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil
	}
	return f.updates[len(f.updates)-1]
}

func testServers() []types.McpServer {
	return []types.McpServer{
		{
			ID:      "filesystem",
			Status:  types.StatusConnected,
			Tools:   []types.Tool{{Name: "read_file"}, {Name: "write_file"}},
			Prompts: []types.Prompt{{Name: "summarize"}},
		},
		{ID: "github", Status: types.StatusFailedToConnect},
	}
}
