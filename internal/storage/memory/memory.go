// internal/storage/memory/memory.go
package memory

import (
	"fmt"

	"github.com/SuiteSpot/extension/internal/cache"
	"github.com/SuiteSpot/extension/pkg/core"
)

const historySize = 200

// Backend keeps the pack index and recent map loads in memory only.
type Backend struct {
	packs   *cache.PackCache
	history *cache.LoadHistory
}

func New() *Backend {
	return &Backend{
		packs:   cache.NewPackCache(),
		history: cache.NewLoadHistory(historySize),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) ReplacePacks(_ string, packs []core.TrainingEntry) error {
	b.packs.Replace(packs)
	return nil
}

func (b *Backend) Packs() ([]core.TrainingEntry, error) {
	return b.packs.All(), nil
}

func (b *Backend) FindPack(code string) (core.TrainingEntry, error) {
	if p, ok := b.packs.Get(code); ok {
		return p, nil
	}
	return core.TrainingEntry{}, fmt.Errorf("pack %q: %w", code, core.ErrPackNotFound)
}

func (b *Backend) RecordMapLoad(ev core.MapLoadEvent) error {
	b.history.Add(ev)
	return nil
}

func (b *Backend) RecentLoads(limit int) ([]core.MapLoadEvent, error) {
	return b.history.Recent(limit), nil
}
