// Package config implements the configuration service: the user's settings document,
// its revision counter and the change feed, plus the snapshot that combines them with
// the provider registry and the MCP server catalog.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/notebook-intelligence/nbi-settings/internal/model"
	"github.com/notebook-intelligence/nbi-settings/internal/service/mcp"
	"github.com/notebook-intelligence/nbi-settings/internal/service/provider"
	"github.com/notebook-intelligence/nbi-settings/internal/telemetry"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// ConfigFileName is the name of the settings file mirrored to the user config dir.
const ConfigFileName = "config.json"

// subscriberBuffer is the number of change events a slow subscriber may lag behind
// before the oldest ones are dropped.
const subscriberBuffer = 16

// ErrInvalidConfig is returned when an update carries a value the service does not accept.
var ErrInvalidConfig = errors.New("invalid config")

// ServiceConfig holds the dependencies of the ConfigService.
type ServiceConfig struct {
	DB *gorm.DB

	Fs            afero.Fs
	UserConfigDir string

	Providers *provider.Registry
	MCP       *mcp.MCPService

	Logger  *zap.Logger
	Metrics telemetry.CustomMetrics
}

// ConfigService owns the user config document and notifies subscribers of every change.
type ConfigService struct {
	db            *gorm.DB
	fs            afero.Fs
	userConfigDir string

	providers *provider.Registry
	mcp       *mcp.MCPService

	logger  *zap.Logger
	metrics telemetry.CustomMetrics

	// writeMu serializes revision bumps so events go out in revision order.
	writeMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]chan types.ConfigChangedEvent
	nextSubID   int
}

// NewConfigService creates a new instance of ConfigService.
func NewConfigService(c *ServiceConfig) (*ConfigService, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if c.Providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if c.MCP == nil {
		return nil, fmt.Errorf("MCP service is required")
	}
	s := &ConfigService{
		db:            c.DB,
		fs:            c.Fs,
		userConfigDir: c.UserConfigDir,
		providers:     c.Providers,
		mcp:           c.MCP,
		logger:        c.Logger,
		metrics:       c.Metrics,
		subscribers:   make(map[int]chan types.ConfigChangedEvent),
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	return s, nil
}

// ConfigFilePath returns the path of the mirrored settings file.
func (s *ConfigService) ConfigFilePath() string {
	return filepath.Join(s.userConfigDir, ConfigFileName)
}

// Init creates the user config row on first start. An existing config.json in the
// user config dir is imported as the initial document.
func (s *ConfigService) Init(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.UserConfig{}).Where("id = ?", model.UserConfigID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check user config: %w", err)
	}
	if count > 0 {
		return nil
	}

	doc, err := s.readConfigFile()
	if err != nil {
		return err
	}
	row := model.UserConfig{ID: model.UserConfigID}
	if err := row.Encode(doc); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create user config: %w", err)
	}
	s.logger.Info("initialized user config", zap.String("path", s.ConfigFilePath()))
	return nil
}

func (s *ConfigService) readConfigFile() (*model.UserConfigDocument, error) {
	doc := &model.UserConfigDocument{}
	data, err := afero.ReadFile(s.fs, s.ConfigFilePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.ConfigFilePath(), err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.ConfigFilePath(), err)
	}
	return doc, nil
}

// writeConfigFile mirrors the document to config.json. Failures are logged only,
// the database stays the source of truth.
func (s *ConfigService) writeConfigFile(doc *model.UserConfigDocument) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode config file", zap.Error(err))
		return
	}
	if err := s.fs.MkdirAll(s.userConfigDir, 0o755); err != nil {
		s.logger.Warn("failed to create user config dir", zap.String("dir", s.userConfigDir), zap.Error(err))
		return
	}
	if err := afero.WriteFile(s.fs, s.ConfigFilePath(), data, 0o644); err != nil {
		s.logger.Warn("failed to write config file", zap.String("path", s.ConfigFilePath()), zap.Error(err))
	}
}

// loadRow returns the user config row, creating an empty one if it is missing.
func loadRow(tx *gorm.DB) (*model.UserConfig, error) {
	row := model.UserConfig{ID: model.UserConfigID}
	if err := tx.FirstOrCreate(&row, model.UserConfig{ID: model.UserConfigID}).Error; err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	return &row, nil
}

// GetConfig assembles a full snapshot of the configuration.
func (s *ConfigService) GetConfig(ctx context.Context) (*types.Config, error) {
	row, err := loadRow(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	doc, err := row.Decode()
	if err != nil {
		return nil, err
	}
	servers, err := s.mcp.ListServers(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &types.Config{
		Revision:               row.Revision,
		DefaultChatMode:        doc.DefaultChatMode,
		ChatModel:              doc.ChatModel,
		InlineCompletionModel:  doc.InlineCompletionModel,
		StoreGitHubAccessToken: doc.StoreGitHubAccessToken,
		LLMProviders:           s.providers.Providers(),
		ChatModels:             overlayProperties(s.providers.ChatModels(), doc.ChatModel),
		InlineCompletionModels: overlayProperties(s.providers.InlineCompletionModels(), doc.InlineCompletionModel),
		McpServers:             servers,
		McpServerSettings:      doc.McpServerSettings,
		UserConfigDir:          s.userConfigDir,
	}
	if cfg.DefaultChatMode == "" {
		cfg.DefaultChatMode = types.ChatModeAsk
	}
	if cfg.McpServerSettings == nil {
		cfg.McpServerSettings = types.McpServerSettings{}
	}
	return cfg, nil
}

// overlayProperties copies the saved property values onto the catalog entry of the
// saved model, so a picker restoring the saved model shows the saved values.
func overlayProperties(catalog []types.Model, saved types.ModelConfig) []types.Model {
	if saved.Model == "" || len(saved.Properties) == 0 {
		return catalog
	}
	values := make(map[string]string, len(saved.Properties))
	for _, p := range saved.Properties {
		values[p.ID] = p.Value
	}
	for i := range catalog {
		m := &catalog[i]
		if m.Provider != saved.Provider || m.ID != saved.Model {
			continue
		}
		props := make([]types.ModelProperty, len(m.Properties))
		for j, p := range m.Properties {
			if v, ok := values[p.ID]; ok {
				p.Value = v
			}
			props[j] = p
		}
		m.Properties = props
	}
	return catalog
}

func validateUpdate(u *types.ConfigUpdate) error {
	if u.DefaultChatMode != nil {
		switch *u.DefaultChatMode {
		case types.ChatModeAsk, types.ChatModeAgent:
		default:
			return fmt.Errorf("%w: unknown chat mode %q", ErrInvalidConfig, *u.DefaultChatMode)
		}
	}
	for id := range u.McpServerSettings {
		if id == "" {
			return fmt.Errorf("%w: empty MCP server id in mcp_server_settings", ErrInvalidConfig)
		}
	}
	return nil
}

// SetConfig merges the update into the stored document and bumps the revision.
// Every accepted write produces a new revision, even if nothing changed.
func (s *ConfigService) SetConfig(ctx context.Context, update *types.ConfigUpdate) (*types.SetConfigResult, error) {
	if update == nil {
		update = &types.ConfigUpdate{}
	}
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		revision uint64
		doc      *model.UserConfigDocument
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadRow(tx)
		if err != nil {
			return err
		}
		doc, err = row.Decode()
		if err != nil {
			return err
		}
		doc.Merge(update)
		if err := row.Encode(doc); err != nil {
			return err
		}
		row.Revision++
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to save user config: %w", err)
		}
		revision = row.Revision
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.writeConfigFile(doc)
	s.logger.Info("config updated", zap.Uint64("revision", revision), zap.Strings("keys", update.Keys()))
	s.publish(ctx, revision, types.ReasonSetConfig)
	return &types.SetConfigResult{Revision: revision}, nil
}

// UpdateOllamaModelList re-discovers the models of the local Ollama server.
func (s *ConfigService) UpdateOllamaModelList(ctx context.Context) error {
	if _, err := s.providers.UpdateOllamaModelList(ctx); err != nil {
		return err
	}
	_, err := s.bumpRevision(ctx, types.ReasonOllamaModelList)
	return err
}

// ReloadMCPServers reconnects to every MCP server and refreshes the catalog.
// Subscribers are notified even when the reload fails part way, since statuses may
// already have changed.
func (s *ConfigService) ReloadMCPServers(ctx context.Context) error {
	reloadErr := s.mcp.Reload(ctx)
	if _, err := s.bumpRevision(ctx, types.ReasonMcpReload); err != nil && reloadErr == nil {
		return err
	}
	return reloadErr
}

// ReloadMCPServerList re-reads mcp.json without contacting the servers.
func (s *ConfigService) ReloadMCPServerList(ctx context.Context) error {
	if err := s.mcp.ReloadServerList(ctx); err != nil {
		return err
	}
	_, err := s.bumpRevision(ctx, types.ReasonMcpServerListing)
	return err
}

// bumpRevision records a change that did not touch the settings document.
func (s *ConfigService) bumpRevision(ctx context.Context, reason types.ConfigChangedReason) (uint64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var revision uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := loadRow(tx)
		if err != nil {
			return err
		}
		row.Revision++
		if err := tx.Model(row).Update("revision", row.Revision).Error; err != nil {
			return fmt.Errorf("failed to bump config revision: %w", err)
		}
		revision = row.Revision
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, revision, reason)
	return revision, nil
}

// Subscribe registers for change events. The returned function unsubscribes and
// closes the channel. A subscriber that falls behind loses its oldest events; since
// events only say that something changed, the newest one is all that matters.
func (s *ConfigService) Subscribe() (<-chan types.ConfigChangedEvent, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan types.ConfigChangedEvent, subscriberBuffer)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *ConfigService) publish(ctx context.Context, revision uint64, reason types.ConfigChangedReason) {
	s.metrics.RecordConfigChange(ctx, reason)

	ev := types.ConfigChangedEvent{
		Type:     types.ConfigChangedEventType,
		Revision: revision,
		Reason:   reason,
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// full: drop the oldest event to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}
