package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/notebook-intelligence/nbi-settings/pkg/types"
)

// UserConfigID is the primary key of the single user config row.
const UserConfigID = 1

// UserConfigDocument is the settings object the user edits.
// Its JSON form is also what gets mirrored to <user config dir>/config.json.
type UserConfigDocument struct {
	DefaultChatMode        string                  `json:"default_chat_mode,omitempty"`
	ChatModel              types.ModelConfig       `json:"chat_model"`
	InlineCompletionModel  types.ModelConfig       `json:"inline_completion_model"`
	StoreGitHubAccessToken bool                    `json:"store_github_access_token"`
	McpServerSettings      types.McpServerSettings `json:"mcp_server_settings"`
}

// Merge applies the fields present in u.
func (d *UserConfigDocument) Merge(u *types.ConfigUpdate) {
	if u.DefaultChatMode != nil {
		d.DefaultChatMode = *u.DefaultChatMode
	}
	if u.ChatModel != nil {
		d.ChatModel = *u.ChatModel
	}
	if u.InlineCompletionModel != nil {
		d.InlineCompletionModel = *u.InlineCompletionModel
	}
	if u.StoreGitHubAccessToken != nil {
		d.StoreGitHubAccessToken = *u.StoreGitHubAccessToken
	}
	if u.McpServerSettings != nil {
		d.McpServerSettings = u.McpServerSettings
	}
}

// UserConfig stores the user config document together with the revision counter.
// There is exactly one row, with ID UserConfigID.
type UserConfig struct {
	ID       uint           `gorm:"primaryKey"`
	Revision uint64         `gorm:"not null;default:0"`
	Document datatypes.JSON `gorm:"type:jsonb"`

	UpdatedAt time.Time
}

// Decode parses the stored document. An empty document decodes to the zero value.
func (c *UserConfig) Decode() (*UserConfigDocument, error) {
	doc := &UserConfigDocument{}
	if len(c.Document) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(c.Document, doc); err != nil {
		return nil, fmt.Errorf("failed to decode user config document: %w", err)
	}
	return doc, nil
}

// Encode replaces the stored document.
func (c *UserConfig) Encode(doc *UserConfigDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode user config document: %w", err)
	}
	c.Document = data
	return nil
}
