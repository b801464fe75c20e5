// Package mcp maintains the catalog of MCP servers declared in the user's mcp.json:
// which servers exist, whether they could be reached and which tools and prompts they expose.
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/notebook-intelligence/nbi-settings/internal/model"
	"github.com/notebook-intelligence/nbi-settings/internal/telemetry"
)

// DefaultMaxConcurrentConnections caps the number of MCP servers contacted at once during a reload.
const DefaultMaxConcurrentConnections = 4

// ServiceConfig holds the configuration parameters for initializing the MCPService.
type ServiceConfig struct {
	DB *gorm.DB

	// Fs is the filesystem mcp.json is read from.
	Fs afero.Fs
	// UserConfigDir is the directory that holds mcp.json.
	UserConfigDir string

	Logger  *zap.Logger
	Metrics telemetry.CustomMetrics

	McpServerInitReqTimeout  int
	MaxConcurrentConnections int
}

// session is the part of an MCP client connection the catalog needs.
type session interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	Close() error
}

// MCPService keeps the MCP server catalog in the database in sync with mcp.json and
// with what the servers report when contacted.
type MCPService struct {
	db            *gorm.DB
	fs            afero.Fs
	userConfigDir string

	logger  *zap.Logger
	metrics telemetry.CustomMetrics

	mcpServerInitReqTimeoutSec int
	maxConcurrentConnections   int

	// reloadMu serializes reloads so two of them never interleave their catalog writes.
	reloadMu sync.Mutex

	newSession func(ctx context.Context, s *model.McpServer) (session, error)
}

// NewMCPService creates a new instance of MCPService.
func NewMCPService(c *ServiceConfig) (*MCPService, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	s := &MCPService{
		db:            c.DB,
		fs:            c.Fs,
		userConfigDir: c.UserConfigDir,

		logger:  c.Logger,
		metrics: c.Metrics,

		mcpServerInitReqTimeoutSec: c.McpServerInitReqTimeout,
		maxConcurrentConnections:   c.MaxConcurrentConnections,
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
	if s.mcpServerInitReqTimeoutSec <= 0 {
		s.mcpServerInitReqTimeoutSec = 10
	}
	if s.maxConcurrentConnections <= 0 {
		s.maxConcurrentConnections = DefaultMaxConcurrentConnections
	}
	s.newSession = func(ctx context.Context, srv *model.McpServer) (session, error) {
		return newMcpServerSession(ctx, srv, s.mcpServerInitReqTimeoutSec, s.logger)
	}
	return s, nil
}
