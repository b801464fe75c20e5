package settingsync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/mcpstate"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var fsServer = types.McpServer{
	ID:     "fs",
	Status: types.StatusConnected,
	Tools:  []types.Tool{{Name: "read"}, {Name: "write"}},
}

func newLoaded(t *testing.T, svc *fakeService) (*Synchronizer, *noticeRecorder) {
	t.Helper()
	rec := &noticeRecorder{}
	s := New(Options{Service: svc, Notifier: rec, Logger: zap.NewNop()})
	require.NoError(t, s.Load(context.Background()))
	return s, rec
}

func TestLoad(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	v := s.View()
	require.NotNil(t, v.Config)
	assert.Equal(t, map[string][]string{"fs": {"read", "write"}}, v.State.Map())
}

func TestMutationsBeforeLoad(t *testing.T) {
	t.Parallel()

	s := New(Options{Service: newFakeService(fsServer)})
	assert.ErrorIs(t, s.SetServerEnabled(context.Background(), "fs", false), ErrNotLoaded)
	assert.ErrorIs(t, s.SetToolEnabled(context.Background(), "fs", "read", false), ErrNotLoaded)
}

func TestSetServerEnabled_SubmitsSettings(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, rec := newLoaded(t, svc)

	var views []View
	s.OnChange(func(v View) { views = append(views, v) })

	require.NoError(t, s.SetServerEnabled(context.Background(), "fs", false))

	u := svc.lastUpdate()
	require.NotNil(t, u)
	assert.Equal(t, []string{"mcp_server_settings"}, u.Keys())
	assert.Equal(t, types.McpServerSettings{"fs": {Disabled: true}}, u.McpServerSettings)

	require.Len(t, views, 1)
	assert.False(t, views[0].State.IsServerEnabled("fs"))
	assert.Empty(t, rec.all())

	// re-enable resets to the full tool set
	require.NoError(t, s.SetServerEnabled(context.Background(), "fs", true))
	assert.Equal(t, []string{"read", "write"}, s.View().State.EnabledTools("fs"))
	assert.Equal(t, types.McpServerSettings{"fs": {DisabledTools: []string{}}}, svc.lastUpdate().McpServerSettings)
}

func TestSetServerEnabled_NoChangeNoSubmit(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	require.NoError(t, s.SetServerEnabled(context.Background(), "fs", true))
	require.NoError(t, s.SetServerEnabled(context.Background(), "unknown", true))
	assert.Nil(t, svc.lastUpdate())
}

func TestSetToolEnabled(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	svc.cfg.McpServerSettings = types.McpServerSettings{
		"fs": {DisabledTools: []string{"write"}},
	}
	s, _ := newLoaded(t, svc)
	require.Equal(t, []string{"read"}, s.View().State.EnabledTools("fs"))

	require.NoError(t, s.SetToolEnabled(context.Background(), "fs", "write", true))
	assert.Equal(t, types.McpServerSettings{"fs": {Disabled: false, DisabledTools: []string{}}}, svc.lastUpdate().McpServerSettings)
}

func TestSetToolEnabled_DisabledServer(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	svc.cfg.McpServerSettings = types.McpServerSettings{"fs": {Disabled: true}}
	s, _ := newLoaded(t, svc)

	err := s.SetToolEnabled(context.Background(), "fs", "read", true)
	assert.ErrorIs(t, err, mcpstate.ErrServerDisabled)
	assert.Nil(t, svc.lastUpdate())
}

func TestOwnEchoIsIgnored(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)
	require.Equal(t, 1, svc.gets())

	require.NoError(t, s.SetServerEnabled(context.Background(), "fs", false))

	echo := types.ConfigChangedEvent{Type: types.ConfigChangedEventType, Revision: svc.cfg.Revision}
	require.NoError(t, s.HandleConfigChanged(context.Background(), echo))

	assert.Equal(t, 1, svc.gets())
	assert.False(t, s.View().State.IsServerEnabled("fs"))
}

func TestExternalChangeWins(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	ev := svc.external(func(cfg *types.Config) {
		cfg.McpServerSettings = types.McpServerSettings{"fs": {DisabledTools: []string{"read"}}}
		cfg.McpServers = append(cfg.McpServers, types.McpServer{ID: "git", Tools: []types.Tool{{Name: "log"}}})
	})
	require.NoError(t, s.HandleConfigChanged(context.Background(), ev))

	assert.Equal(t, map[string][]string{
		"fs":  {"write"},
		"git": {"log"},
	}, s.View().State.Map())

	// the same revision again is already applied
	require.NoError(t, s.HandleConfigChanged(context.Background(), ev))
	assert.Equal(t, 2, svc.gets())
}

func TestExternalChangeDuringSubmitIsDeferred(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	svc.onSet = func() {
		ev := svc.external(func(cfg *types.Config) {
			cfg.McpServers = append(cfg.McpServers, types.McpServer{ID: "git", Tools: []types.Tool{{Name: "log"}}})
		})
		require.NoError(t, s.HandleConfigChanged(context.Background(), ev))
		// nothing fetched while our write is in flight
		assert.Equal(t, 1, svc.gets())
	}

	require.NoError(t, s.SetServerEnabled(context.Background(), "fs", false))

	assert.Equal(t, 2, svc.gets())
	state := s.View().State
	assert.False(t, state.IsServerEnabled("fs"), "local edit must not be overwritten")
	assert.True(t, state.IsToolEnabled("git", "log"))
}

func TestOverlappingSubmitsKeepLatestSettings(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	inService := make(chan struct{})
	release := make(chan struct{})
	svc.onSet = func() {
		close(inService)
		<-release
	}

	var views int32
	queued := make(chan struct{}, 1)
	s.OnChange(func(v View) {
		if atomic.AddInt32(&views, 1) == 2 {
			queued <- struct{}{}
		}
	})

	errs := make(chan error, 2)
	go func() { errs <- s.SetToolEnabled(context.Background(), "fs", "read", false) }()
	<-inService
	go func() { errs <- s.SetToolEnabled(context.Background(), "fs", "write", false) }()
	<-queued

	// the second write waits for the first one instead of racing it
	svc.mu.Lock()
	assert.Empty(t, svc.updates)
	svc.mu.Unlock()

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	for _, rev := range []uint64{2, 3} {
		ev := types.ConfigChangedEvent{Type: types.ConfigChangedEventType, Revision: rev}
		require.NoError(t, s.HandleConfigChanged(context.Background(), ev))
	}

	svc.mu.Lock()
	require.Len(t, svc.updates, 2)
	assert.Equal(t, []string{"read"}, svc.updates[0].McpServerSettings["fs"].DisabledTools)
	assert.Equal(t, []string{"read", "write"}, svc.cfg.McpServerSettings["fs"].DisabledTools)
	svc.mu.Unlock()

	assert.Empty(t, s.View().State.EnabledTools("fs"))
}

func TestLocalEditDuringFetchRefetches(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	ev := svc.external(func(cfg *types.Config) {})
	svc.onGet = func() {
		require.NoError(t, s.SetServerEnabled(context.Background(), "fs", false))
	}
	require.NoError(t, s.HandleConfigChanged(context.Background(), ev))

	assert.Equal(t, 3, svc.gets())
	assert.False(t, s.View().State.IsServerEnabled("fs"))
}

func TestSaveFailureIsNotified(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, rec := newLoaded(t, svc)
	svc.setErr = errors.New("boom")

	err := s.SetServerEnabled(context.Background(), "fs", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	notices := rec.all()
	require.Len(t, notices, 1)
	assert.Equal(t, LevelError, notices[0].Level)
	assert.Equal(t, "Failed to save MCP server settings: boom", notices[0].Message)

	// no retry
	assert.Len(t, svc.updates, 1)
}

func TestSaveGeneral(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	require.NoError(t, s.SaveGeneral(context.Background(), &types.ConfigUpdate{}))
	assert.Nil(t, svc.lastUpdate())

	mode := types.ChatModeAgent
	require.NoError(t, s.SaveGeneral(context.Background(), &types.ConfigUpdate{DefaultChatMode: &mode}))
	assert.Equal(t, types.ChatModeAgent, svc.cfg.DefaultChatMode)

	echo := types.ConfigChangedEvent{Revision: svc.cfg.Revision}
	require.NoError(t, s.HandleConfigChanged(context.Background(), echo))
	assert.Equal(t, 1, svc.gets())
}

func TestActions(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, rec := newLoaded(t, svc)

	require.NoError(t, s.ReloadServers(context.Background()))
	require.NoError(t, s.ReloadServerList(context.Background()))
	require.NoError(t, s.RefreshOllamaModels(context.Background()))
	assert.Equal(t, 4, svc.gets())
	assert.Equal(t, svc.cfg.Revision, s.View().Config.Revision)

	svc.reloadErr = errors.New("unreachable")
	require.Error(t, s.ReloadServers(context.Background()))
	require.Error(t, s.RefreshOllamaModels(context.Background()))

	notices := rec.all()
	require.Len(t, notices, 2)
	assert.Equal(t, "Failed to reload MCP servers: unreachable", notices[0].Message)
	assert.Equal(t, "Failed to update Ollama model list: unreachable", notices[1].Message)
}

func TestLoadFailureIsNotified(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	svc.getErr = errors.New("offline")
	rec := &noticeRecorder{}
	s := New(Options{Service: svc, Notifier: rec})

	require.Error(t, s.Load(context.Background()))
	require.Len(t, rec.all(), 1)
	assert.Nil(t, s.View().Config)
}

func TestCloseDropsCompletions(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, rec := newLoaded(t, svc)

	calls := 0
	s.OnChange(func(View) { calls++ })

	svc.setErr = errors.New("late failure")
	svc.onSet = func() { s.Close() }

	// the local edit is shown before the write starts
	_ = s.SetServerEnabled(context.Background(), "fs", false)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.all())

	ev := svc.external(func(cfg *types.Config) {})
	require.NoError(t, s.HandleConfigChanged(context.Background(), ev))
	assert.Equal(t, 1, svc.gets())
	assert.ErrorIs(t, s.SetServerEnabled(context.Background(), "fs", true), ErrClosed)
}

func TestRun(t *testing.T) {
	t.Parallel()

	svc := newFakeService(fsServer)
	s, _ := newLoaded(t, svc)

	events := make(chan types.ConfigChangedEvent, 1)
	events <- svc.external(func(cfg *types.Config) {
		cfg.McpServerSettings = types.McpServerSettings{"fs": {Disabled: true}}
	})
	close(events)

	require.NoError(t, s.Run(context.Background(), events))
	assert.False(t, s.View().State.IsServerEnabled("fs"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, make(chan types.ConfigChangedEvent))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
