// Package workshop discovers workshop maps installed under the Rocket League
// mods folders.
package workshop

import (
	"bufio"
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
)

const (
	mapExtension  = ".upk"
	mapsFolderKey = "MapsFolderPath"
	commentPrefix = "#"
)

// DefaultFallbackRoots are the Epic and Steam install mods folders.
var DefaultFallbackRoots = []string{
	`C:\Program Files\Epic Games\rocketleague\TAGame\CookedPCConsole\mods`,
	`C:\Program Files (x86)\Steam\steamapps\common\rocketleague\TAGame\CookedPCConsole\mods`,
}

type Discoverer struct {
	fs  afero.Fs
	log *slog.Logger
}

func NewDiscoverer(fs afero.Fs, log *slog.Logger) *Discoverer {
	if log == nil {
		log = slog.Default()
	}
	return &Discoverer{fs: fs, log: log}
}

// Roots returns the configured root (if any) followed by the fallbacks.
func Roots(configured string, fallbacks []string) []string {
	roots := make([]string, 0, len(fallbacks)+1)
	if configured != "" {
		roots = append(roots, configured)
	}
	for _, r := range fallbacks {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

// Discover scans each root one level deep. Every subdirectory holding a .upk
// file yields one entry named after the subdirectory. Which .upk wins when a
// folder holds several depends on directory enumeration order.
func (d *Discoverer) Discover(roots []string) []core.WorkshopEntry {
	var found []core.WorkshopEntry
	for _, root := range roots {
		found = append(found, d.scanRoot(root)...)
	}

	seen := make(map[string]struct{}, len(found))
	unique := found[:0]
	for _, e := range found {
		if _, ok := seen[e.FilePath]; ok {
			continue
		}
		seen[e.FilePath] = struct{}{}
		unique = append(unique, e)
	}

	SortEntries(unique)
	return unique
}

func (d *Discoverer) scanRoot(root string) []core.WorkshopEntry {
	if ok, err := afero.DirExists(d.fs, root); err != nil || !ok {
		return nil
	}

	dirs, err := afero.ReadDir(d.fs, root)
	if err != nil {
		d.log.Debug("Skipping unreadable workshop root", "root", root, "error", err)
		return nil
	}

	var entries []core.WorkshopEntry
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		sub := filepath.Join(root, dir.Name())
		if mapFile := d.firstMapFile(sub); mapFile != "" {
			entries = append(entries, core.WorkshopEntry{FilePath: mapFile, Name: dir.Name()})
		}
	}
	return entries
}

func (d *Discoverer) firstMapFile(dir string) string {
	files, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		d.log.Debug("Skipping unreadable workshop folder", "dir", dir, "error", err)
		return ""
	}
	for _, f := range files {
		if !f.Mode().IsRegular() {
			continue
		}
		if filepath.Ext(f.Name()) == mapExtension {
			return filepath.Join(dir, f.Name())
		}
	}
	return ""
}

// SortEntries orders by name ignoring case, then by path.
func SortEntries(entries []core.WorkshopEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if c := util.CompareFold(entries[i].Name, entries[j].Name); c != 0 {
			return c < 0
		}
		return entries[i].FilePath < entries[j].FilePath
	})
}

// ResolveConfiguredRoot reads the workshop map loader config and returns the
// first MapsFolderPath value that names an existing directory, or "".
func (d *Discoverer) ResolveConfiguredRoot(cfgPath string) string {
	data, err := afero.ReadFile(d.fs, cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.log.Warn("Failed to read workshop loader config", "path", cfgPath, "error", err)
		}
		return ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := util.Trim(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		keyPos := strings.Index(line, mapsFolderKey)
		if keyPos < 0 {
			continue
		}
		eq := strings.IndexByte(line[keyPos:], '=')
		if eq < 0 {
			continue
		}

		value := util.ExpandEnvAndHome(util.StripQuotes(util.Trim(line[keyPos+eq+1:])))
		if value == "" {
			continue
		}

		if ok, err := afero.DirExists(d.fs, value); err == nil && ok {
			return value
		}
		d.log.Info("Configured workshop path not found", "path", value)
	}
	return ""
}
