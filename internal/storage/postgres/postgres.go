// Package postgres shares one pack index between installs through a
// PostgreSQL database. It wraps the GORM backend and opens its own connection
// unless one was injected.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/SuiteSpot/extension/internal/database"
	gormstorage "github.com/SuiteSpot/extension/internal/storage/gorm"
)

type Config struct {
	DSN       string
	SessionID string
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	cfg Config
	db  *gorm.DB
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Backend {
	log = log.With().Str("backend", "postgres").Logger()
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{SessionID: cfg.SessionID, Logger: log}),
		cfg:     cfg,
		log:     log,
	}
}

// WithDB injects an existing connection, skipping the DSN dial in Init.
func (b *Backend) WithDB(db *gorm.DB) *Backend {
	b.db = db
	return b
}

// Init connects (unless a DB was injected) and migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		db, err := database.GetPostgresDB(b.cfg.DSN, b.log)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.db = db
	}
	b.SetDB(b.db)

	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}
