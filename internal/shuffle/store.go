// Package shuffle persists the user's shuffle bag and draws random training
// packs from it.
//
// The bag, keyed by pack code, is the only persisted selection. Catalog
// indices are derived from it on demand so a catalog reload never leaves a
// stale index set behind.
package shuffle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
)

type Store struct {
	fs   afero.Fs
	path string
	log  *slog.Logger
}

func NewStore(fs afero.Fs, path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{fs: fs, path: path, log: log}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the bag in file order and resolves each code against catalog.
// Codes missing from the catalog stay in the bag but get no index.
func (s *Store) Load(catalog []core.TrainingEntry) ([]core.TrainingEntry, []int) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Error("Failed to open shuffle bag", "path", s.path, "error", err)
		}
		return nil, nil
	}

	var bag []core.TrainingEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		code, name, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		code, name = util.Trim(code), util.Trim(name)
		if code == "" || name == "" {
			continue
		}
		bag = append(bag, core.TrainingEntry{Code: code, Name: name})
	}

	return bag, Indices(bag, catalog)
}

// Save writes the bag verbatim in bag order.
func (s *Store) Save(bag []core.TrainingEntry) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating shuffle bag directory: %w", err)
	}

	var b strings.Builder
	for _, e := range bag {
		b.WriteString(e.Code)
		b.WriteByte(',')
		b.WriteString(e.Name)
		b.WriteByte('\n')
	}

	if err := afero.WriteFile(s.fs, s.path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing shuffle bag: %w", err)
	}
	return nil
}

// Indices returns the ascending, de-duplicated catalog positions of every bag
// code present in catalog.
func Indices(bag []core.TrainingEntry, catalog []core.TrainingEntry) []int {
	if len(bag) == 0 {
		return nil
	}
	selected := make(map[int]struct{}, len(bag))
	for _, e := range bag {
		if i := core.IndexOfCode(catalog, e.Code); i >= 0 {
			selected[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(selected))
	for i := range catalog {
		if _, ok := selected[i]; ok {
			out = append(out, i)
		}
	}
	return out
}
