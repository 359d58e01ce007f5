// Package catalog persists the training-pack catalog as a flat CSV-like file
// and migrates the legacy name-embedded shot count format on load.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/pkg/core"
)

const readmeText = `SuiteTraining\SuiteSpotTrainingMaps.txt
CSV format:
    <training_code>,<display_name>,Shots:<count>
One entry per line. Older files using <display_name (count)> are upgraded automatically.
This file is read on game start and rewritten when you add or remove a pack in SuiteSpot.

SuiteTraining\SuiteShuffleBag.txt
    <training_code>,<display_name>
One entry per line, in rotation order.
`

// Store reads and writes one training catalog file.
type Store struct {
	fs         afero.Fs
	path       string
	readmePath string
	log        *slog.Logger
}

// NewStore creates a catalog store for path. readmePath may be empty to skip
// README creation.
func NewStore(fs afero.Fs, path, readmePath string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{fs: fs, path: path, readmePath: readmePath, log: log}
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Load parses the catalog file. A missing file is an empty catalog.
// When legacy lines were seen the file is rewritten in canonical form.
func (s *Store) Load() ([]core.TrainingEntry, Report) {
	s.ensureLayout()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Error("Failed to open training maps file", "path", s.path, "error", err)
		}
		return nil, Report{}
	}

	entries, report := Parse(bytes.NewReader(data))
	for _, w := range report.Warnings {
		s.log.Warn(w, "path", s.path)
	}

	if report.LegacySeen {
		s.log.Info("Upgrading legacy training file format", "path", s.path, "entries", len(entries))
		if err := s.Save(entries); err != nil {
			s.log.Error("Failed to upgrade training file", "path", s.path, "error", err)
		} else {
			report.Upgraded = true
		}
	}

	return entries, report
}

// Save sorts a copy of entries and truncates the file with the canonical form.
func (s *Store) Save(entries []core.TrainingEntry) error {
	s.ensureLayout()

	sorted := slices.Clone(entries)
	SortByName(sorted)

	if err := afero.WriteFile(s.fs, s.path, Format(sorted), 0644); err != nil {
		return fmt.Errorf("writing training maps file: %w", err)
	}
	return nil
}

// ensureLayout creates the catalog directory and README. Failures are logged
// only; the following read or write reports its own error.
func (s *Store) ensureLayout() {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.log.Warn("Failed to create training directory", "path", filepath.Dir(s.path), "error", err)
		return
	}
	if s.readmePath == "" {
		return
	}
	if exists, err := afero.Exists(s.fs, s.readmePath); err != nil || exists {
		return
	}
	if err := afero.WriteFile(s.fs, s.readmePath, []byte(readmeText), 0644); err != nil {
		s.log.Warn("Failed to write README", "path", s.readmePath, "error", err)
	}
}
