// Package api provides the HTTP API of the nbi-settings configuration service.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/service/config"
	"github.com/notebook-intelligence/nbi-settings/internal/service/mcp"
	"github.com/notebook-intelligence/nbi-settings/internal/telemetry"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
	"github.com/notebook-intelligence/nbi-settings/pkg/version"
)

const (
	V0PathPrefix    = "/v0"
	V0ApiPathPrefix = "/api" + V0PathPrefix
)

type ServerOptions struct {
	// Port is the HTTP port to bind the server to
	Port string

	// AccessToken guards the /api/v0 endpoints. An empty token disables authentication.
	AccessToken string

	ConfigService *config.ConfigService
	MCPService    *mcp.MCPService

	Logger        *zap.Logger
	OtelProviders *telemetry.Providers
}

// Server serves the configuration API and the change feed.
type Server struct {
	port        string
	accessToken string
	router      *gin.Engine

	configService *config.ConfigService
	mcpService    *mcp.MCPService

	logger        *zap.Logger
	otelProviders *telemetry.Providers

	upgrader websocket.Upgrader
}

// NewServer initializes a new Gin server for the configuration API
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.ConfigService == nil {
		return nil, fmt.Errorf("config service is required")
	}
	s := &Server{
		port:          opts.Port,
		accessToken:   opts.AccessToken,
		configService: opts.ConfigService,
		mcpService:    opts.MCPService,
		logger:        opts.Logger,
		otelProviders: opts.OtelProviders,
		upgrader: websocket.Upgrader{
			// the notebook frontend connects from its own origin; the token is what authenticates it
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	// Set up the router after the server is fully initialized
	r, err := s.setupRouter()
	if err != nil {
		return nil, err
	}
	s.router = r

	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the Gin server (blocking call)
func (s *Server) Start() error {
	if err := s.router.Run(":" + s.port); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

// setupRouter sets up the Gin router with the API endpoints.
func (s *Server) setupRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		// instrument gin
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))

		// expose prometheus metrics endpoint
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET(
		"/health",
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		},
	)

	r.GET(
		"/metadata",
		func(c *gin.Context) {
			m := &types.ServerMetadata{
				Version: version.GetVersion(),
			}
			c.JSON(http.StatusOK, m)
		},
	)

	apiV0 := r.Group(V0ApiPathPrefix, s.requireAccessToken())
	{
		apiV0.GET("/config", s.getConfigHandler())
		apiV0.POST("/config", s.setConfigHandler())

		apiV0.POST("/ollama/update-models", s.updateOllamaModelsHandler())

		apiV0.GET("/mcp/servers", s.listServersHandler())
		apiV0.POST("/mcp/reload", s.reloadServersHandler())
		apiV0.POST("/mcp/reload-list", s.reloadServerListHandler())

		apiV0.GET("/events", s.eventsHandler())
	}

	return r, nil
}
