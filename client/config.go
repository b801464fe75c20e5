package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// GetConfig fetches the full configuration snapshot.
func (c *Client) GetConfig(ctx context.Context) (*types.Config, error) {
	var cfg types.Config
	if err := c.do(ctx, http.MethodGet, "/config", nil, http.StatusOK, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetConfig sends a partial configuration update and returns the new revision.
func (c *Client) SetConfig(ctx context.Context, update *types.ConfigUpdate) (*types.SetConfigResult, error) {
	var res types.SetConfigResult
	if err := c.do(ctx, http.MethodPost, "/config", update, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateOllamaModelList asks the server to re-discover the local Ollama models.
func (c *Client) UpdateOllamaModelList(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/ollama/update-models", nil, http.StatusNoContent, nil)
}

// ReloadMCPServers asks the server to reconnect to every MCP server.
func (c *Client) ReloadMCPServers(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/mcp/reload", nil, http.StatusNoContent, nil)
}

// ReloadMCPServerList asks the server to re-read mcp.json.
func (c *Client) ReloadMCPServerList(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/mcp/reload-list", nil, http.StatusNoContent, nil)
}

// ListMcpServers returns the MCP server catalog.
func (c *Client) ListMcpServers(ctx context.Context) ([]types.McpServer, error) {
	var servers []types.McpServer
	if err := c.do(ctx, http.MethodGet, "/mcp/servers", nil, http.StatusOK, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// do sends a JSON request to the API and decodes the response into out, if given.
func (c *Client) do(ctx context.Context, method, path string, in any, wantStatus int, out any) error {
	u, err := c.constructAPIEndpoint(path)
	if err != nil {
		return fmt.Errorf("failed to construct API endpoint: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(c.newRequest(req))
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
