package model

import (
	"testing"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

func TestUserConfigDocumentMerge(t *testing.T) {
	doc := &UserConfigDocument{
		DefaultChatMode: types.ChatModeAsk,
		ChatModel:       types.ModelConfig{Provider: "github-copilot", Model: "gpt-4o"},
		McpServerSettings: types.McpServerSettings{
			"fs": {Disabled: true},
		},
	}

	mode := types.ChatModeAgent
	store := true
	doc.Merge(&types.ConfigUpdate{
		DefaultChatMode:        &mode,
		StoreGitHubAccessToken: &store,
	})

	if doc.DefaultChatMode != types.ChatModeAgent {
		t.Errorf("expected chat mode agent, got %q", doc.DefaultChatMode)
	}
	if !doc.StoreGitHubAccessToken {
		t.Errorf("expected store_github_access_token to be set")
	}
	if doc.ChatModel.Model != "gpt-4o" {
		t.Errorf("absent chat_model must be left untouched, got %q", doc.ChatModel.Model)
	}
	if !doc.McpServerSettings["fs"].Disabled {
		t.Errorf("absent mcp_server_settings must be left untouched")
	}

	doc.Merge(&types.ConfigUpdate{McpServerSettings: types.McpServerSettings{"git": {}}})
	if _, ok := doc.McpServerSettings["fs"]; ok {
		t.Errorf("mcp_server_settings must be replaced as a whole")
	}
}

func TestUserConfigEncodeDecode(t *testing.T) {
	c := &UserConfig{ID: UserConfigID}

	doc, err := c.Decode()
	if err != nil {
		t.Fatalf("unexpected error decoding empty document: %v", err)
	}
	if doc.DefaultChatMode != "" {
		t.Errorf("expected zero document, got %+v", doc)
	}

	doc.DefaultChatMode = types.ChatModeAgent
	doc.McpServerSettings = types.McpServerSettings{"fs": {DisabledTools: []string{}}}
	if err := c.Encode(doc); err != nil {
		t.Fatalf("unexpected error encoding: %v", err)
	}

	got, err := c.Decode()
	if err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}
	if got.DefaultChatMode != types.ChatModeAgent {
		t.Errorf("expected chat mode agent, got %q", got.DefaultChatMode)
	}
	if got.McpServerSettings["fs"].DisabledTools == nil {
		t.Errorf("expected empty disabled_tools to survive as a non-nil slice")
	}

	c.Document = []byte("{not json")
	if _, err := c.Decode(); err == nil {
		t.Errorf("expected error for malformed document")
	}
}
