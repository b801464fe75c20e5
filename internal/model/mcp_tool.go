package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tool represents a tool provided by an MCP server.
type Tool struct {
	gorm.Model

	// Name is unique only within the server that provides the tool.
	Name string `json:"name" gorm:"not null"`

	Description string `json:"description"`

	// InputSchema is a JSON schema that describes the input parameters for the tool.
	InputSchema datatypes.JSON `json:"input_schema" gorm:"type:jsonb"`

	ServerID uint `json:"-" gorm:"not null;index"`
}

// Prompt represents a prompt template provided by an MCP server.
type Prompt struct {
	gorm.Model

	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description"`

	// Arguments is the JSON form of the prompt's argument list.
	Arguments datatypes.JSON `json:"arguments" gorm:"type:jsonb"`

	ServerID uint `json:"-" gorm:"not null;index"`
}
