package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/notebook-intelligence/nbi-settings/internal/model"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
	"github.com/notebook-intelligence/nbi-settings/pkg/version"
)

const clientName = "nbi-settings"

// isLoopbackURL returns true if rawURL resolves to a loopback address.
// It assumes that rawURL is a valid URL.
func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()

	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// envSlice converts an environment map to KEY=VALUE pairs.
func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func newInitializeRequest() mcp.InitializeRequest {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: version.GetVersion(),
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}
	return initRequest
}

// initialize performs the MCP handshake within the configured timeout.
func initialize(ctx context.Context, c *client.Client, target string, initReqTimeoutSec int) error {
	initCtx, cancel := context.WithTimeout(ctx, time.Duration(initReqTimeoutSec)*time.Second)
	defer cancel()

	_, err := c.Initialize(initCtx, newInitializeRequest())
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("initialization request to MCP server timed out after %d seconds", initReqTimeoutSec)
	}
	if errors.Is(err, syscall.ECONNREFUSED) && isLoopbackURL(target) {
		return fmt.Errorf(
			"connection to the MCP server %s was refused. "+
				"If the notebook server runs inside Docker, use 'host.docker.internal' as the MCP server's hostname",
			target,
		)
	}
	return fmt.Errorf("failed to initialize connection with MCP server: %w", err)
}

// createHTTPMcpServerConn creates a new connection with a streamable http MCP server and returns the client.
func createHTTPMcpServerConn(ctx context.Context, s *model.McpServer, initReqTimeoutSec int) (*client.Client, error) {
	conf, err := s.GetStreamableHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get streamable HTTP config for MCP server %s: %w", s.Name, err)
	}

	var opts []transport.StreamableHTTPCOption
	if len(conf.Headers) > 0 {
		opts = append(opts, transport.WithHTTPHeaders(conf.Headers))
	}

	c, err := client.NewStreamableHttpClient(conf.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create streamable HTTP client for MCP server: %w", err)
	}
	if err := initialize(ctx, c, conf.URL, initReqTimeoutSec); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// createSSEMcpServerConn creates a new connection with an SSE transport-based MCP server and returns the client.
func createSSEMcpServerConn(ctx context.Context, s *model.McpServer, initReqTimeoutSec int) (*client.Client, error) {
	conf, err := s.GetSSEConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get SSE transport config for MCP server %s: %w", s.Name, err)
	}

	var opts []transport.ClientOption
	if len(conf.Headers) > 0 {
		opts = append(opts, transport.WithHeaders(conf.Headers))
	}

	c, err := client.NewSSEMCPClient(conf.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSE client for MCP server: %w", err)
	}
	if err = c.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start SSE transport for MCP server: %w", err)
	}
	if err := initialize(ctx, c, conf.URL, initReqTimeoutSec); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// captureStdioServerStderr forwards the stderr output of a stdio MCP server to the log.
func captureStdioServerStderr(name string, c *client.Client, logger *zap.Logger) {
	stdioTransport, ok := c.GetTransport().(*transport.Stdio)
	if !ok {
		return
	}
	logger = logger.With(zap.String("mcp_server", name))

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := stdioTransport.Stderr().Read(buf)
			if err != nil {
				if err == io.EOF || errors.Is(err, os.ErrClosed) {
					logger.Debug("server process has exited")
				} else {
					logger.Warn("error reading stderr", zap.Error(err))
				}
				return
			}
			if n > 0 {
				logger.Info("stderr", zap.String("output", string(buf[:n])))
			}
		}
	}()
}

// runStdioServer runs a stdio MCP server and returns the client.
func runStdioServer(ctx context.Context, s *model.McpServer, initReqTimeoutSec int, logger *zap.Logger) (*client.Client, error) {
	conf, err := s.GetStdioConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdio config for MCP server %s: %w", s.Name, err)
	}

	c, err := client.NewStdioMCPClient(conf.Command, envSlice(conf.Env), conf.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdio client for MCP server: %w", err)
	}
	captureStdioServerStderr(s.Name, c, logger)

	if err := initialize(ctx, c, "", initReqTimeoutSec); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func newMcpServerSession(ctx context.Context, s *model.McpServer, initReqTimeoutSec int, logger *zap.Logger) (session, error) {
	switch s.Transport {
	case types.TransportStreamableHTTP:
		c, err := createHTTPMcpServerConn(ctx, s, initReqTimeoutSec)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection to streamable http MCP server %s: %w", s.Name, err)
		}
		return c, nil
	case types.TransportSSE:
		c, err := createSSEMcpServerConn(ctx, s, initReqTimeoutSec)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection to SSE MCP server %s: %w", s.Name, err)
		}
		return c, nil
	case types.TransportStdio:
		c, err := runStdioServer(ctx, s, initReqTimeoutSec, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to run stdio MCP server %s: %w", s.Name, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported transport %q for MCP server %s", s.Transport, s.Name)
	}
}

// toolToModel converts a tool listed by an MCP server into its catalog row.
// The input schema is stored on a best-effort basis.
func toolToModel(serverID uint, t mcp.Tool) model.Tool {
	schema, _ := json.Marshal(t.InputSchema)
	return model.Tool{
		ServerID:    serverID,
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}
}

// promptToModel converts a prompt listed by an MCP server into its catalog row.
func promptToModel(serverID uint, p mcp.Prompt) model.Prompt {
	args, _ := json.Marshal(p.Arguments)
	return model.Prompt{
		ServerID:    serverID,
		Name:        p.Name,
		Description: p.Description,
		Arguments:   args,
	}
}
