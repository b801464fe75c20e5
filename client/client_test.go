package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-intelligence/nbi-settings/internal/settingsync"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

var _ settingsync.ConfigService = (*Client)(nil)

func TestConstructAPIEndpoint(t *testing.T) {
	c := NewClient("http://localhost:8080/", "", nil)
	u, err := c.constructAPIEndpoint("/config")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/v0/config", u)
}

func TestGetConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if r.URL.Path != "/api/v0/config" {
			t.Errorf("Expected path /api/v0/config, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected Authorization header 'Bearer test-token', got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.Config{
			Revision:        4,
			DefaultChatMode: types.ChatModeAgent,
			McpServers:      []types.McpServer{{ID: "fs", Status: types.StatusConnected}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-token", &http.Client{})
	cfg, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), cfg.Revision)
	assert.Equal(t, types.ChatModeAgent, cfg.DefaultChatMode)
	require.Len(t, cfg.McpServers, 1)
	assert.Equal(t, "fs", cfg.McpServers[0].ID)
}

func TestSetConfig(t *testing.T) {
	t.Run("successful update", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST method, got %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", ct)
			}
			var update types.ConfigUpdate
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				t.Fatalf("Failed to decode request body: %v", err)
			}
			if update.McpServerSettings["fs"].DisabledTools[0] != "write" {
				t.Errorf("unexpected settings: %+v", update.McpServerSettings)
			}
			_ = json.NewEncoder(w).Encode(&types.SetConfigResult{Revision: 9})
		}))
		defer server.Close()

		c := NewClient(server.URL, "", nil)
		res, err := c.SetConfig(context.Background(), &types.ConfigUpdate{
			McpServerSettings: types.McpServerSettings{"fs": {DisabledTools: []string{"write"}}},
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(9), res.Revision)
	})

	t.Run("server error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "invalid config: unknown chat mode \"yell\""}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "", nil)
		_, err := c.SetConfig(context.Background(), &types.ConfigUpdate{})
		require.Error(t, err)
		assert.Equal(t, `request failed with status: 400, message: invalid config: unknown chat mode "yell"`, err.Error())
	})

	t.Run("plain text error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down\n"))
		}))
		defer server.Close()

		c := NewClient(server.URL, "", nil)
		_, err := c.SetConfig(context.Background(), &types.ConfigUpdate{})
		require.Error(t, err)
		assert.Equal(t, "request failed with status: 502, message: upstream down", err.Error())
	})
}

func TestActions(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/reload") {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": "database is locked"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", nil)
	ctx := context.Background()

	require.NoError(t, c.UpdateOllamaModelList(ctx))
	require.NoError(t, c.ReloadMCPServerList(ctx))
	err := c.ReloadMCPServers(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	assert.Equal(t, []string{
		"/api/v0/ollama/update-models",
		"/api/v0/mcp/reload-list",
		"/api/v0/mcp/reload",
	}, paths)
}

func TestSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "invalid access token"}`))
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(types.ConfigChangedEvent{Type: "unknown"})
		_ = conn.WriteJSON(types.ConfigChangedEvent{Type: types.ConfigChangedEventType, Revision: 3, Reason: types.ReasonMcpReload})
		// keep the connection open until the client goes away
		_, _, _ = conn.ReadMessage()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewClient(server.URL, "test-token", nil)
	events, err := c.Subscribe(ctx)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, uint64(3), ev.Revision)
		assert.Equal(t, types.ReasonMcpReload, ev.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSubscribeUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "missing access token"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", nil)
	_, err := c.Subscribe(context.Background())
	require.Error(t, err)
	assert.Equal(t, "request failed with status: 401, message: missing access token", err.Error())
}
