// Package sqlitestorage keeps the pack index in a local SQLite file next to
// the training catalog. It wraps the GORM backend via composition; the only
// SQLite-specific concern is opening the file.
package sqlitestorage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/SuiteSpot/extension/internal/database"
	gormstorage "github.com/SuiteSpot/extension/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path      string // empty for an in-memory database
	SessionID string
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg Config
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Backend {
	log = log.With().Str("backend", "sqlite").Logger()
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{SessionID: cfg.SessionID, Logger: log}),
		cfg:     cfg,
		log:     log,
	}
}

// Init opens the database file, creating its directory, then migrates.
func (b *Backend) Init() error {
	if b.cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(b.cfg.Path), 0755); err != nil {
			return fmt.Errorf("creating pack index directory: %w", err)
		}
	}

	db, err := database.GetSqliteDB(b.cfg.Path, b.log)
	if err != nil {
		return fmt.Errorf("failed to open SQLite pack index: %w", err)
	}
	b.SetDB(db)

	return b.Backend.Init()
}
