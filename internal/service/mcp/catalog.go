package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/notebook-intelligence/nbi-settings/internal/model"
	"github.com/notebook-intelligence/nbi-settings/internal/telemetry"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// ErrServerNotFound is returned when an MCP server id is not in the catalog.
var ErrServerNotFound = errors.New("MCP server not found")

// ListServers returns the catalog with tools and prompts, sorted by server id.
// Tools and prompts keep the order the server reported them in.
func (m *MCPService) ListServers(ctx context.Context) ([]types.McpServer, error) {
	var rows []model.McpServer
	err := m.db.WithContext(ctx).
		Preload("Tools", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Prompts", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list MCP servers: %w", err)
	}

	servers := make([]types.McpServer, len(rows))
	for i := range rows {
		servers[i] = rows[i].ToAPI()
	}
	return servers, nil
}

// GetMcpServer returns the catalog row of a server.
func (m *MCPService) GetMcpServer(ctx context.Context, name string) (*model.McpServer, error) {
	var s model.McpServer
	if err := m.db.WithContext(ctx).Where("name = ?", name).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
		}
		return nil, fmt.Errorf("failed to get MCP server %s: %w", name, err)
	}
	return &s, nil
}

// ReloadServerList re-reads mcp.json and brings the catalog in line with it without
// contacting any server. New servers are added as not-connected, removed or disabled
// ones are dropped together with their tools and prompts, and servers whose launch
// config changed are reset to not-connected.
func (m *MCPService) ReloadServerList(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	_, err := m.syncServerList(ctx)
	return err
}

// Reload re-reads mcp.json and connects to every declared server to refresh its
// status, tools and prompts. A server that cannot be reached is recorded as
// failed-to-connect; only database failures make Reload fail.
func (m *MCPService) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	servers, err := m.syncServerList(ctx)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		return nil
	}

	names := make([]string, len(servers))
	for i := range servers {
		names[i] = servers[i].Name
	}
	if err := m.db.WithContext(ctx).Model(&model.McpServer{}).
		Where("name IN ?", names).
		Update("status", types.StatusConnecting).Error; err != nil {
		return fmt.Errorf("failed to mark MCP servers as connecting: %w", err)
	}

	results := make([]fetchResult, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.maxConcurrentConnections)
	for i := range servers {
		g.Go(func() error {
			results[i] = m.fetchServer(gctx, &servers[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := range servers {
		if err := m.storeFetchResult(ctx, &servers[i], &results[i]); err != nil {
			return err
		}
	}
	return nil
}

type fetchResult struct {
	tools   []mcp.Tool
	prompts []mcp.Prompt
	err     error
}

// fetchServer connects to one server and lists its tools and prompts.
func (m *MCPService) fetchServer(ctx context.Context, s *model.McpServer) fetchResult {
	started := time.Now()
	logger := m.logger.With(zap.String("mcp_server", s.Name), zap.String("transport", string(s.Transport)))

	res := m.doFetchServer(ctx, s, logger)

	outcome := telemetry.OutcomeSuccess
	if res.err != nil {
		outcome = telemetry.OutcomeError
		logger.Warn("failed to connect to MCP server", zap.Error(res.err))
	} else {
		logger.Info("connected to MCP server",
			zap.Int("tools", len(res.tools)),
			zap.Int("prompts", len(res.prompts)),
			zap.Duration("elapsed", time.Since(started)),
		)
	}
	m.metrics.RecordServerConnection(ctx, s.Name, s.Transport, outcome, time.Since(started))
	return res
}

func (m *MCPService) doFetchServer(ctx context.Context, s *model.McpServer, logger *zap.Logger) fetchResult {
	c, err := m.newSession(ctx, s)
	if err != nil {
		return fetchResult{err: err}
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Debug("failed to close MCP session", zap.Error(err))
		}
	}()

	toolsResp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fetchResult{err: fmt.Errorf("failed to fetch tools from MCP server %s: %w", s.Name, err)}
	}

	res := fetchResult{tools: toolsResp.Tools}

	// prompts are optional, a server without the prompts capability rejects the request
	promptsResp, err := c.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		logger.Debug("MCP server did not list prompts", zap.Error(err))
	} else {
		res.prompts = promptsResp.Prompts
	}
	return res
}

// storeFetchResult replaces the tools and prompts of a server and records its status.
func (m *MCPService) storeFetchResult(ctx context.Context, s *model.McpServer, res *fetchResult) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteServerChildren(tx, s.ID); err != nil {
			return err
		}

		updates := map[string]any{"status": types.StatusConnected, "last_error": ""}
		if res.err != nil {
			updates = map[string]any{"status": types.StatusFailedToConnect, "last_error": res.err.Error()}
		}
		if err := tx.Model(&model.McpServer{}).Where("id = ?", s.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update status of MCP server %s: %w", s.Name, err)
		}
		if res.err != nil {
			return nil
		}

		seenTools := make(map[string]bool, len(res.tools))
		tools := make([]model.Tool, 0, len(res.tools))
		for _, t := range res.tools {
			if seenTools[t.Name] {
				continue
			}
			seenTools[t.Name] = true
			tools = append(tools, toolToModel(s.ID, t))
		}
		if len(tools) > 0 {
			if err := tx.Create(&tools).Error; err != nil {
				return fmt.Errorf("failed to store tools of MCP server %s: %w", s.Name, err)
			}
		}

		prompts := make([]model.Prompt, 0, len(res.prompts))
		for _, p := range res.prompts {
			prompts = append(prompts, promptToModel(s.ID, p))
		}
		if len(prompts) > 0 {
			if err := tx.Create(&prompts).Error; err != nil {
				return fmt.Errorf("failed to store prompts of MCP server %s: %w", s.Name, err)
			}
		}
		return nil
	})
}

// syncServerList makes the catalog rows match mcp.json and returns the active servers.
func (m *MCPService) syncServerList(ctx context.Context) ([]model.McpServer, error) {
	fileConfig, err := m.ReadFileConfig()
	if err != nil {
		return nil, err
	}

	declared := make(map[string]*model.McpServer)
	for _, name := range activeServerNames(fileConfig) {
		sc := fileConfig.McpServers[name]
		s, err := model.NewServerFromFileConfig(name, &sc)
		if err != nil {
			m.logger.Warn("skipping invalid MCP server declaration", zap.String("mcp_server", name), zap.Error(err))
			continue
		}
		declared[name] = s
	}

	var active []model.McpServer
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []model.McpServer
		if err := tx.Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load MCP server catalog: %w", err)
		}

		known := make(map[string]bool, len(existing))
		for i := range existing {
			row := &existing[i]
			known[row.Name] = true

			want, ok := declared[row.Name]
			if !ok {
				if err := deleteServerChildren(tx, row.ID); err != nil {
					return err
				}
				if err := tx.Unscoped().Delete(row).Error; err != nil {
					return fmt.Errorf("failed to remove MCP server %s: %w", row.Name, err)
				}
				m.logger.Info("removed MCP server from catalog", zap.String("mcp_server", row.Name))
				continue
			}

			if row.Transport != want.Transport || !slices.Equal(row.Config, want.Config) {
				if err := deleteServerChildren(tx, row.ID); err != nil {
					return err
				}
				row.Transport = want.Transport
				row.Config = want.Config
				row.Status = types.StatusNotConnected
				row.LastError = ""
				if err := tx.Save(row).Error; err != nil {
					return fmt.Errorf("failed to update MCP server %s: %w", row.Name, err)
				}
			}
			active = append(active, *row)
		}

		for _, name := range activeServerNames(fileConfig) {
			s, ok := declared[name]
			if !ok || known[name] {
				continue
			}
			if err := tx.Create(s).Error; err != nil {
				return fmt.Errorf("failed to add MCP server %s: %w", name, err)
			}
			m.logger.Info("added MCP server to catalog", zap.String("mcp_server", name))
			active = append(active, *s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(active, func(a, b model.McpServer) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return active, nil
}

func deleteServerChildren(tx *gorm.DB, serverID uint) error {
	if err := tx.Unscoped().Where("server_id = ?", serverID).Delete(&model.Tool{}).Error; err != nil {
		return fmt.Errorf("failed to delete tools: %w", err)
	}
	if err := tx.Unscoped().Where("server_id = ?", serverID).Delete(&model.Prompt{}).Error; err != nil {
		return fmt.Errorf("failed to delete prompts: %w", err)
	}
	return nil
}
