// Package gormstorage implements the pack index on top of any gorm dialect.
// The sqlite and postgres backends embed it and only differ in how they open
// the connection.
package gormstorage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/SuiteSpot/extension/internal/database"
	"github.com/SuiteSpot/extension/internal/model"
	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
)

const batchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB        *gorm.DB
	SessionID string
	Logger    zerolog.Logger
}

// Backend implements storage.Backend with gorm.
type Backend struct {
	deps Dependencies
}

func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init migrates the schema. The connection must already be set.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database connection")
	}
	return database.Migrate(b.deps.DB, b.deps.Logger)
}

// Close closes the underlying connection.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// SetDB injects the connection opened by the wrapping backend.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// ReplacePacks swaps the stored index inside one transaction.
func (b *Backend) ReplacePacks(runID string, packs []core.TrainingEntry) error {
	rows := make([]model.Pack, 0, len(packs))
	seen := make(map[string]struct{}, len(packs))
	for _, p := range packs {
		if _, dup := seen[p.Code]; dup {
			continue
		}
		seen[p.Code] = struct{}{}
		rows = append(rows, model.PackFromCore(p, runID))
	}

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Pack{}).Error; err != nil {
			return fmt.Errorf("clearing pack index: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("writing pack index: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.deps.Logger.Debug().Str("runId", runID).Int("packs", len(rows)).Msg("Replaced pack index")
	return nil
}

// Packs returns the whole index sorted by name, ignoring case.
func (b *Backend) Packs() ([]core.TrainingEntry, error) {
	var rows []model.Pack
	if err := b.deps.DB.Order("code").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading pack index: %w", err)
	}

	out := make([]core.TrainingEntry, len(rows))
	for i, r := range rows {
		out[i] = model.PackToCore(r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return util.CompareFold(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

func (b *Backend) FindPack(code string) (core.TrainingEntry, error) {
	var row model.Pack
	err := b.deps.DB.Where("code = ?", code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.TrainingEntry{}, fmt.Errorf("pack %q: %w", code, core.ErrPackNotFound)
	}
	if err != nil {
		return core.TrainingEntry{}, fmt.Errorf("reading pack %q: %w", code, err)
	}
	return model.PackToCore(row), nil
}

func (b *Backend) RecordMapLoad(ev core.MapLoadEvent) error {
	row := model.MapLoadFromCore(ev, b.deps.SessionID)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("recording map load: %w", err)
	}
	return nil
}

// RecentLoads returns up to limit loads, newest first. limit <= 0 returns all.
func (b *Backend) RecentLoads(limit int) ([]core.MapLoadEvent, error) {
	q := b.deps.DB.Order("loaded_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.MapLoad
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading map loads: %w", err)
	}
	out := make([]core.MapLoadEvent, len(rows))
	for i, r := range rows {
		out[i] = model.MapLoadToCore(r)
	}
	return out, nil
}
