// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/internal/paths"
	"github.com/SuiteSpot/extension/internal/storage/memory"
	"github.com/SuiteSpot/extension/internal/storage/postgres"
	sqlitestorage "github.com/SuiteSpot/extension/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration.
// The sqlite backend defaults to the pack index file in the training directory.
func NewBackend(cfg config.StorageConfig, layout paths.Layout, sessionID string, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Config{DSN: cfg.Postgres.DSN(), SessionID: sessionID}, log), nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = layout.PackIndexDB()
		}
		return sqlitestorage.New(sqlitestorage.Config{Path: path, SessionID: sessionID}, log), nil
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
