package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notebook-intelligence/nbi-settings/internal/api"
	"github.com/notebook-intelligence/nbi-settings/internal/service/config"
	mcpservice "github.com/notebook-intelligence/nbi-settings/internal/service/mcp"
	"github.com/notebook-intelligence/nbi-settings/internal/service/provider"
	"github.com/notebook-intelligence/nbi-settings/internal/ui"
	"github.com/notebook-intelligence/nbi-settings/pkg/testhelpers"
	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

const (
	testToken     = "test-access-token"
	testConfigDir = "/home/user/.jupyter/nbi"
)

type testEnv struct {
	url    string
	config *config.ConfigService
}

// newTestEnv runs an API server backed by an in-memory database. mcpJSON is written
// to the user config dir when not empty.
func newTestEnv(t *testing.T, mcpJSON string) *testEnv {
	t.Helper()
	setup := testhelpers.SetupTestDB(t)
	t.Cleanup(setup.Cleanup)

	fs := afero.NewMemMapFs()
	if mcpJSON != "" {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(testConfigDir, "mcp.json"), []byte(mcpJSON), 0o644))
	}

	mcpService, err := mcpservice.NewMCPService(&mcpservice.ServiceConfig{DB: setup.DB, Fs: fs, UserConfigDir: testConfigDir})
	require.NoError(t, err)
	configService, err := config.NewConfigService(&config.ServiceConfig{
		DB:            setup.DB,
		Fs:            fs,
		UserConfigDir: testConfigDir,
		Providers:     provider.NewRegistry(provider.Options{OllamaHost: "http://127.0.0.1:1"}),
		MCP:           mcpService,
	})
	require.NoError(t, err)
	require.NoError(t, configService.Init(context.Background()))
	require.NoError(t, configService.ReloadMCPServerList(context.Background()))

	s, err := api.NewServer(&api.ServerOptions{
		AccessToken:   testToken,
		ConfigService: configService,
		MCPService:    mcpService,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{url: srv.URL, config: configService}
}

// resetFlags restores the flag variables that persist between executions.
func resetFlags() {
	configShowCmdJSON = false
	modelSetCmdProvider = ""
	modelSetCmdModel = ""
	modelSetCmdProperties = nil
	askCmdOutput = ""
	renderCmdWidth = 80
	renderCmdPlain = false
	renderCmdActiveDocument = ""
	renderCmdBlock = 0
	renderCmdAction = ""
	rootCmdLogLevel = "warn"
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--server-url", e.url, "--access-token", testToken}, args...))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newFilesystemMCPServer(t *testing.T) string {
	t.Helper()
	s := server.NewMCPServer("files", "1.0.0", server.WithToolCapabilities(false))
	for _, name := range []string{"read_file", "write_file"} {
		s.AddTool(mcp.NewTool(name), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})
	}
	srv := httptest.NewServer(server.NewStreamableHTTPServer(s))
	t.Cleanup(srv.Close)
	return srv.URL + "/mcp"
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Default chat mode:   ask")
	assert.Contains(t, out, "Chat model:          none")
	assert.Contains(t, out, filepath.Join(testConfigDir, "config.json"))
	assert.Contains(t, out, ui.NoMCPServersMessage)

	out, err = env.run(t, "config", "show", "--json")
	require.NoError(t, err)
	var cfg types.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, testConfigDir, cfg.UserConfigDir)
	assert.NotEmpty(t, cfg.LLMProviders)
}

func TestConfigShowUnauthorized(t *testing.T) {
	env := newTestEnv(t, "")
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--server-url", env.url, "--access-token", "wrong-token", "config", "show"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestMcpEnableDisable(t *testing.T) {
	url := newFilesystemMCPServer(t)
	env := newTestEnv(t, `{"mcpServers": {"files": {"url": "`+url+`"}}}`)

	out, err := env.run(t, "mcp", "reload")
	require.NoError(t, err)
	assert.Contains(t, out, "[x] files (connected)")
	assert.Contains(t, out, "[x] read_file")

	out, err = env.run(t, "mcp", "disable", "files", "write_file")
	require.NoError(t, err)
	assert.Contains(t, out, "Tool 'write_file' of MCP server 'files' disabled")

	cfg, err := env.config.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"write_file"}, cfg.McpServerSettings["files"].DisabledTools)

	out, err = env.run(t, "mcp", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "[ ] write_file")

	_, err = env.run(t, "mcp", "disable", "files")
	require.NoError(t, err)

	_, err = env.run(t, "mcp", "enable", "files", "write_file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enable it first")

	_, err = env.run(t, "mcp", "enable", "files")
	require.NoError(t, err)
	cfg, err = env.config.GetConfig(context.Background())
	require.NoError(t, err)
	assert.False(t, cfg.McpServerSettings["files"].Disabled)
	assert.Empty(t, cfg.McpServerSettings["files"].DisabledTools)

	_, err = env.run(t, "mcp", "enable", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = env.run(t, "mcp", "disable", "files", "delete_everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no tool")
}

func TestMcpReloadList(t *testing.T) {
	env := newTestEnv(t, `{"mcpServers": {"local": {"command": "does-not-exist"}}}`)

	out, err := env.run(t, "mcp", "reload-list")
	require.NoError(t, err)
	assert.Contains(t, out, "[x] local (not-connected)")
}

func TestModelSet(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run(t, "model", "set", "chat", "--provider", "github-copilot")
	require.NoError(t, err)
	assert.Contains(t, out, "chat model set to github-copilot")

	cfg, err := env.config.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "github-copilot", cfg.ChatModel.Provider)
	assert.NotEmpty(t, cfg.ChatModel.Model)

	_, err = env.run(t, "model", "set", "chat", "--provider", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")

	_, err = env.run(t, "model", "set", "inline-completion", "--provider", "openai-compatible", "--property", "nonsense=1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no property")

	_, err = env.run(t, "model", "set", "chat")
	require.Error(t, err)
}

func TestModelChatMode(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run(t, "model", "chat-mode", "agent")
	require.NoError(t, err)
	assert.Contains(t, out, "Default chat mode set to agent")

	out, err = env.run(t, "model", "chat-mode", "agent")
	require.NoError(t, err)
	assert.Contains(t, out, "already agent")

	_, err = env.run(t, "model", "chat-mode", "chatty")
	require.Error(t, err)
}

func TestModelRefreshOllamaUnreachable(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "model", "refresh-ollama")
	require.Error(t, err)
}

func TestParseProperty(t *testing.T) {
	id, value, err := parseProperty("api_key=abc=def")
	require.NoError(t, err)
	assert.Equal(t, "api_key", id)
	assert.Equal(t, "abc=def", value)

	_, _, err = parseProperty("=x")
	assert.Error(t, err)
	_, _, err = parseProperty("novalue")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	fileSystem = afero.NewMemMapFs()
	defer func() { fileSystem = afero.NewOsFs() }()

	msg := "Try this:\n\n```python\nprint('hi')\n```\n"
	require.NoError(t, afero.WriteFile(fileSystem, "/tmp/message.md", []byte(msg), 0o644))
	env := newTestEnv(t, "")

	out, err := env.run(t, "render", "/tmp/message.md", "--width", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "Try this")
	assert.Contains(t, out, "[1] python")

	out, err = env.run(t, "render", "/tmp/message.md", "--block", "1", "--action", "new-notebook")
	require.NoError(t, err)
	var sent struct {
		Command string         `json:"command"`
		Args    map[string]any `json:"args"`
	}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &sent))
	assert.Equal(t, ui.CommandCreateNewNotebookFromPy, sent.Command)
	assert.Equal(t, "print('hi')", sent.Args["code"])
	assert.Equal(t, "python", sent.Args["language"])

	_, err = env.run(t, "render", "/tmp/message.md", "--block", "1", "--action", "add-as-new-cell")
	require.Error(t, err)

	_, err = env.run(t, "render", "/tmp/message.md", "--block", "2", "--action", "copy")
	require.Error(t, err)
}

func TestLoadQuestions(t *testing.T) {
	q, err := loadQuestions([]byte(`{
		"title": "Setup",
		"questions": [{"question": "Language?", "multiSelect": false, "options": [{"label": "Python"}]}],
		"submitLabel": "Go",
		"cancelLabel": "Stop"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Setup", q.Title)
	assert.Equal(t, "Go", q.SubmitLabel)

	_, err = loadQuestions([]byte(`{"questions": []}`))
	assert.Error(t, err)
	_, err = loadQuestions([]byte(`{"questions": [{"question": "Empty?", "options": []}]}`))
	assert.Error(t, err)
	_, err = loadQuestions([]byte(`not json`))
	assert.Error(t, err)
}

func TestWriteAnswers(t *testing.T) {
	fileSystem = afero.NewMemMapFs()
	defer func() { fileSystem = afero.NewOsFs() }()
	resetFlags()
	askCmdOutput = "/tmp/answers.json"
	defer func() { askCmdOutput = "" }()

	require.NoError(t, writeAnswers(askCmd, map[string][]string{"Language?": {"Python"}}))

	data, err := afero.ReadFile(fileSystem, "/tmp/answers.json")
	require.NoError(t, err)
	var got map[string][]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"Python"}, got["Language?"])
}
