// internal/storage/storage.go
package storage

import "github.com/SuiteSpot/extension/pkg/core"

// ErrNotFound is returned by FindPack for unknown codes.
var ErrNotFound = core.ErrPackNotFound

// Backend is the interface all pack index implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Pack index. ReplacePacks swaps the whole index; runID tags the import.
	ReplacePacks(runID string, packs []core.TrainingEntry) error
	Packs() ([]core.TrainingEntry, error)
	FindPack(code string) (core.TrainingEntry, error)

	// Map load history
	RecordMapLoad(ev core.MapLoadEvent) error
	RecentLoads(limit int) ([]core.MapLoadEvent, error)
}
