package settingsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/mcpstate"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var (
	// ErrNotLoaded is returned by mutations issued before the first successful Load.
	ErrNotLoaded = errors.New("settings not loaded")
	// ErrClosed is returned by operations on a closed Synchronizer.
	ErrClosed = errors.New("synchronizer closed")
)

// View is what the settings surfaces render: the last applied config snapshot and
// the enabled state derived from it plus any local edits.
// Config must be treated as read-only.
type View struct {
	Config *types.Config
	State  mcpstate.EnabledState
}

// Options configures a Synchronizer.
type Options struct {
	Service  ConfigService
	Notifier Notifier
	Logger   *zap.Logger
}

// Synchronizer owns the EnabledState of one settings surface.
type Synchronizer struct {
	svc      ConfigService
	notifier Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	cfg   *types.Config
	state mcpstate.EnabledState

	// applied is the revision of the last applied snapshot.
	applied uint64
	// own holds revisions produced by our own writes that were not yet applied.
	own map[uint64]struct{}
	// inflight counts writes that have not completed yet.
	inflight int
	// localSeq increases with every local edit.
	localSeq uint64
	// pending is set when a change notification was deferred.
	pending bool

	// Writes reach the service one at a time in the order they were issued.
	// nextTicket is handed to the next write, serving is the ticket allowed to send.
	nextTicket uint64
	serving    uint64
	turn       *sync.Cond

	listeners []func(View)
	closed    bool
}

// New creates a Synchronizer. Call Load before issuing mutations.
func New(opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{
		svc:      opts.Service,
		notifier: opts.Notifier,
		logger:   logger,
		own:      make(map[uint64]struct{}),
	}
	s.turn = sync.NewCond(&s.mu)
	return s
}

// OnChange registers a listener that receives every new View.
func (s *Synchronizer) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// View returns the current view.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{Config: s.cfg, State: s.state}
}

// Close tears the synchronizer down. Completions of calls still outstanding are dropped.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
}

// Load fetches the config and derives the enabled state from it.
func (s *Synchronizer) Load(ctx context.Context) error {
	return s.refresh(ctx)
}

// SetServerEnabled enables or disables an MCP server and saves the resulting settings.
func (s *Synchronizer) SetServerEnabled(ctx context.Context, id string, enabled bool) error {
	return s.mutate(ctx, func(cfg *types.Config, state mcpstate.EnabledState) (mcpstate.EnabledState, error) {
		return state.SetServerEnabled(cfg.McpServers, id, enabled), nil
	})
}

// SetToolEnabled enables or disables a tool of an enabled MCP server and saves the
// resulting settings. Toggling a tool of a disabled server fails with
// mcpstate.ErrServerDisabled and nothing is saved.
func (s *Synchronizer) SetToolEnabled(ctx context.Context, id, tool string, enabled bool) error {
	return s.mutate(ctx, func(_ *types.Config, state mcpstate.EnabledState) (mcpstate.EnabledState, error) {
		return state.SetToolEnabled(id, tool, enabled)
	})
}

func (s *Synchronizer) mutate(
	ctx context.Context,
	fn func(*types.Config, mcpstate.EnabledState) (mcpstate.EnabledState, error),
) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cfg == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}

	next, err := fn(s.cfg, s.state)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("invalid MCP setting change", zap.Error(err))
		return err
	}
	if next.Equal(s.state) {
		s.mu.Unlock()
		return nil
	}

	s.state = next
	s.localSeq++
	s.inflight++
	ticket := s.takeTicketLocked()
	view, listeners := s.snapshotLocked()
	s.mu.Unlock()

	emit(listeners, view)

	// The settings are derived when the write gets its turn, so a write queued
	// behind another one always carries every local edit made so far.
	build := func() *types.ConfigUpdate {
		return &types.ConfigUpdate{McpServerSettings: mcpstate.ToSettings(s.cfg.McpServers, s.state)}
	}
	return s.submit(ctx, ticket, build, "Failed to save MCP server settings")
}

// SaveGeneral writes a general settings update.
func (s *Synchronizer) SaveGeneral(ctx context.Context, update *types.ConfigUpdate) error {
	if update == nil || update.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.localSeq++
	s.inflight++
	ticket := s.takeTicketLocked()
	s.mu.Unlock()

	return s.submit(ctx, ticket, func() *types.ConfigUpdate { return update }, "Failed to save settings")
}

func (s *Synchronizer) takeTicketLocked() uint64 {
	t := s.nextTicket
	s.nextTicket++
	return t
}

// submit waits for the write's turn, sends the update returned by build and settles
// the in-flight bookkeeping when it completes. build runs with s.mu held.
// The caller must have counted the write in s.inflight.
func (s *Synchronizer) submit(
	ctx context.Context,
	ticket uint64,
	build func() *types.ConfigUpdate,
	failure string,
) error {
	s.mu.Lock()
	for s.serving != ticket {
		s.turn.Wait()
	}
	update := build()
	s.mu.Unlock()

	res, err := s.svc.SetConfig(ctx, update)

	s.mu.Lock()
	s.serving++
	s.turn.Broadcast()
	s.inflight--
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if err == nil && res != nil && res.Revision > s.applied {
		s.own[res.Revision] = struct{}{}
	}
	refetch := s.inflight == 0 && s.pending
	if refetch {
		s.pending = false
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to save config", zap.Strings("keys", update.Keys()), zap.Error(err))
		s.notify(LevelError, fmt.Sprintf("%s: %v", failure, err))
		err = fmt.Errorf("failed to save config: %w", err)
	}

	if refetch {
		if ferr := s.refresh(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

// HandleConfigChanged reacts to a change notification from the configuration service.
// Echoes of our own writes and already applied revisions are ignored. While writes are
// in flight the notification is deferred and the config is re-read once they settle.
func (s *Synchronizer) HandleConfigChanged(ctx context.Context, ev types.ConfigChangedEvent) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if _, ok := s.own[ev.Revision]; ok {
		delete(s.own, ev.Revision)
		s.mu.Unlock()
		s.logger.Debug("ignoring echo of own config change", zap.Uint64("revision", ev.Revision))
		return nil
	}
	if ev.Revision != 0 && ev.Revision <= s.applied {
		s.mu.Unlock()
		return nil
	}
	if s.inflight > 0 {
		s.pending = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Debug("config changed",
		zap.Uint64("revision", ev.Revision),
		zap.String("reason", string(ev.Reason)),
	)
	return s.refresh(ctx)
}

// Run consumes change notifications until ctx is done or events is closed.
func (s *Synchronizer) Run(ctx context.Context, events <-chan types.ConfigChangedEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.HandleConfigChanged(ctx, ev); err != nil {
				s.logger.Warn("failed to apply config change", zap.Error(err))
			}
		}
	}
}

// ReloadServers asks the service to reconnect to all MCP servers and re-reads the config.
func (s *Synchronizer) ReloadServers(ctx context.Context) error {
	return s.action(ctx, s.svc.ReloadMCPServers, "Failed to reload MCP servers")
}

// ReloadServerList asks the service to re-read the MCP server list and re-reads the config.
func (s *Synchronizer) ReloadServerList(ctx context.Context) error {
	return s.action(ctx, s.svc.ReloadMCPServerList, "Failed to reload MCP server list")
}

// RefreshOllamaModels asks the service to refresh the Ollama model list and re-reads the config.
func (s *Synchronizer) RefreshOllamaModels(ctx context.Context) error {
	return s.action(ctx, s.svc.UpdateOllamaModelList, "Failed to update Ollama model list")
}

func (s *Synchronizer) action(ctx context.Context, call func(context.Context) error, failure string) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := call(ctx); err != nil {
		if s.isClosed() {
			return err
		}
		s.logger.Error(failure, zap.Error(err))
		s.notify(LevelError, fmt.Sprintf("%s: %v", failure, err))
		return err
	}
	return s.refresh(ctx)
}

// refresh re-reads the config and replaces the local state. A snapshot fetched while
// a local edit happened is dropped: it is fetched again right away, or after the
// writes settle when some are still in flight.
func (s *Synchronizer) refresh(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		seq := s.localSeq
		s.mu.Unlock()

		cfg, err := s.svc.GetConfig(ctx)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		if err != nil {
			s.mu.Unlock()
			s.logger.Error("failed to fetch config", zap.Error(err))
			s.notify(LevelError, fmt.Sprintf("Failed to load settings: %v", err))
			return fmt.Errorf("failed to fetch config: %w", err)
		}
		if s.inflight > 0 {
			s.pending = true
			s.mu.Unlock()
			return nil
		}
		if s.localSeq != seq {
			s.mu.Unlock()
			continue
		}
		if s.cfg != nil && cfg.Revision != 0 && cfg.Revision <= s.applied {
			s.mu.Unlock()
			return nil
		}

		s.apply(cfg)
		view, listeners := s.snapshotLocked()
		s.mu.Unlock()

		emit(listeners, view)
		return nil
	}
}

func (s *Synchronizer) apply(cfg *types.Config) {
	s.cfg = cfg
	s.state = mcpstate.ToEnabledState(cfg.McpServers, cfg.McpServerSettings)
	s.applied = cfg.Revision
	for rev := range s.own {
		if rev <= s.applied {
			delete(s.own, rev)
		}
	}
}

func (s *Synchronizer) snapshotLocked() (View, []func(View)) {
	listeners := make([]func(View), len(s.listeners))
	copy(listeners, s.listeners)
	return View{Config: s.cfg, State: s.state}, listeners
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Synchronizer) notify(level Level, msg string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Notice{Level: level, Message: msg})
}

func emit(listeners []func(View), v View) {
	for _, fn := range listeners {
		fn(v)
	}
}
