// Package migrations keeps the database schema up to date.
package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/notebook-intelligence/nbi-settings/internal/model"
)

// Migrate creates or updates the tables of every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.UserConfig{},
		&model.McpServer{},
		&model.Tool{},
		&model.Prompt{},
	); err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
