// Package paths resolves the on-disk layout used by SuiteSpot under the
// BakkesMod data directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	TrainingDirName      = "SuiteTraining"
	TrainingFileName     = "SuiteSpotTrainingMaps.txt"
	ShuffleBagFileName   = "SuiteShuffleBag.txt"
	ReadmeFileName       = "README.txt"
	PackCacheFileName    = "prejump_packs.json"
	PackIndexDBFileName  = "packs.db"
	ConfigDirName        = "SuiteSpot"
	WorkshopLoaderDir    = "WorkshopMapLoader"
	WorkshopLoaderConfig = "workshopmaploader.cfg"
)

// DataRoot returns %APPDATA%\bakkesmod\bakkesmod\data, or "" when APPDATA is unset.
func DataRoot() string {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return ""
	}
	return filepath.Join(appData, "bakkesmod", "bakkesmod", "data")
}

// Layout resolves every SuiteSpot file relative to a data root.
type Layout struct {
	Root string
}

// NewLayout returns a layout rooted at root, or at DataRoot() when root is empty.
func NewLayout(root string) Layout {
	if root == "" {
		root = DataRoot()
	}
	return Layout{Root: root}
}

func (l Layout) TrainingDir() string    { return filepath.Join(l.Root, TrainingDirName) }
func (l Layout) TrainingFile() string   { return filepath.Join(l.TrainingDir(), TrainingFileName) }
func (l Layout) ShuffleBagFile() string { return filepath.Join(l.TrainingDir(), ShuffleBagFileName) }
func (l Layout) ReadmeFile() string     { return filepath.Join(l.TrainingDir(), ReadmeFileName) }
func (l Layout) PackCacheFile() string  { return filepath.Join(l.TrainingDir(), PackCacheFileName) }
func (l Layout) PackIndexDB() string    { return filepath.Join(l.TrainingDir(), PackIndexDBFileName) }
func (l Layout) ConfigDir() string      { return filepath.Join(l.Root, ConfigDirName) }

// WorkshopLoaderConfig is the config file written by the Workshop Map Loader plugin.
func (l Layout) WorkshopLoaderConfig() string {
	return filepath.Join(l.Root, WorkshopLoaderDir, WorkshopLoaderConfig)
}

// EnsureDirs creates the data root and the training directory if missing.
func (l Layout) EnsureDirs(fs afero.Fs) error {
	if l.Root == "" {
		return fmt.Errorf("data root not set")
	}
	if err := fs.MkdirAll(l.TrainingDir(), 0755); err != nil {
		return fmt.Errorf("creating training dir: %w", err)
	}
	return nil
}
