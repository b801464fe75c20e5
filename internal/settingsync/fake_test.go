package settingsync

import (
	"context"
	"sync"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// fakeService is an in-memory ConfigService that bumps a revision on every write.
type fakeService struct {
	mu       sync.Mutex
	cfg      types.Config
	updates  []*types.ConfigUpdate
	getCalls int

	setErr    error
	getErr    error
	reloadErr error

	// hooks run without the lock held, before the call takes effect
	onSet func()
	onGet func()
}

func newFakeService(servers ...types.McpServer) *fakeService {
	return &fakeService{cfg: types.Config{
		Revision:          1,
		McpServers:        servers,
		McpServerSettings: types.McpServerSettings{},
	}}
}

func (f *fakeService) GetConfig(_ context.Context) (*types.Config, error) {
	if f.onGet != nil {
		hook := f.onGet
		f.onGet = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	cfg := f.cfg
	cfg.McpServers = append([]types.McpServer(nil), f.cfg.McpServers...)
	cfg.McpServerSettings = make(types.McpServerSettings, len(f.cfg.McpServerSettings))
	for k, v := range f.cfg.McpServerSettings {
		cfg.McpServerSettings[k] = v
	}
	return &cfg, nil
}

func (f *fakeService) SetConfig(_ context.Context, u *types.ConfigUpdate) (*types.SetConfigResult, error) {
	if f.onSet != nil {
		hook := f.onSet
		f.onSet = nil
		hook()
	}
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

func (f *fakeService) UpdateOllamaModelList(_ context.Context) error {
	return f.bump()
}

func (f *fakeService) ReloadMCPServers(_ context.Context) error {
	return f.bump()
}

func (f *fakeService) ReloadMCPServerList(_ context.Context) error {
	return f.bump()
}

func (f *fakeService) bump() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.cfg.Revision++
	return nil
}

// external simulates a change made by someone else and returns its notification.
func (f *fakeService) external(fn func(cfg *types.Config)) types.ConfigChangedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.cfg)
	f.cfg.Revision++
	return types.ConfigChangedEvent{Type: types.ConfigChangedEventType, Revision: f.cfg.Revision}
}

func (f *fakeService) lastUpdate() *types.ConfigUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return nil
	}
	return f.updates[len(f.updates)-1]
}

func (f *fakeService) gets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
