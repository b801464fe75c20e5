// Package db opens the database that backs the configuration service.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLiteFile is used when no DSN is supplied.
const DefaultSQLiteFile = "nbi-settings.db"

// NewDBConnection opens a gorm connection for the given DSN.
// Postgres URLs (postgres:// or postgresql://) use the postgres driver. Anything else is
// treated as a SQLite file path, defaulting to DefaultSQLiteFile in the working directory.
func NewDBConnection(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch {
	case isPostgresDSN(dsn):
		dialector = postgres.Open(dsn)
	case dsn == "":
		dialector = sqlite.Open(DefaultSQLiteFile)
	default:
		dialector = sqlite.Open(dsn)
	}

	conn, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}
	return conn, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
