package packdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/pkg/core"
)

const (
	// DefaultMaxAge is how long a cached pack database stays fresh.
	DefaultMaxAge = 168 * time.Hour

	lastUpdatedLayout = "2006-01-02 15:04 UTC"
	neverUpdated      = "Never"
)

var (
	ErrRefreshInProgress = errors.New("pack refresh already in progress")
	ErrNoScraper         = errors.New("no pack scraper script configured")
)

// Index receives every successfully loaded pack list.
type Index interface {
	ReplacePacks(runID string, packs []core.TrainingEntry) error
}

// Runner runs an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
		}
		return err
	}
	return nil
}

// Options configures a Library.
type Options struct {
	Fs            afero.Fs
	CachePath     string
	ScraperScript string
	Index         Index
	Runner        Runner
	Logger        *slog.Logger
	Now           func() time.Time
}

// Status summarizes the pack database for the UI.
type Status struct {
	Count       int    `json:"count"`
	LastUpdated string `json:"lastUpdated"`
	Stale       bool   `json:"stale"`
	Refreshing  bool   `json:"refreshing"`
	RunID       string `json:"runId,omitempty"`
}

// Library holds the pack database loaded from the cache file.
type Library struct {
	opts Options
	log  *slog.Logger

	mu    sync.RWMutex
	packs []core.TrainingEntry
	runID string

	refreshing atomic.Bool
}

func New(opts Options) *Library {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Library{opts: opts, log: opts.Logger.With("component", "packdb")}
}

// Load reads the cache file. A missing file leaves the library empty without
// error. A malformed file also empties the library and returns the error.
func (l *Library) Load() (int, error) {
	return l.load(uuid.NewString())
}

func (l *Library) load(runID string) (int, error) {
	data, err := afero.ReadFile(l.opts.Fs, l.opts.CachePath)
	if err != nil {
		l.setPacks(nil, "")
		if errors.Is(err, os.ErrNotExist) {
			l.log.Info("Pack database not found", "path", l.opts.CachePath)
			return 0, nil
		}
		l.log.Error("Failed to open pack database", "path", l.opts.CachePath, "error", err)
		return 0, fmt.Errorf("reading pack database: %w", err)
	}

	packs, err := Decode(bytes.NewReader(data))
	if err != nil {
		l.setPacks(nil, "")
		l.log.Error("Error loading pack database", "path", l.opts.CachePath, "error", err)
		return 0, err
	}

	l.setPacks(packs, runID)
	l.log.Info("Loaded pack database", "packs", len(packs), "runId", runID)

	if l.opts.Index != nil {
		if err := l.opts.Index.ReplacePacks(runID, packs); err != nil {
			l.log.Error("Failed to index packs", "runId", runID, "error", err)
		}
	}
	return len(packs), nil
}

func (l *Library) setPacks(packs []core.TrainingEntry, runID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.packs = packs
	l.runID = runID
}

func (l *Library) Packs() []core.TrainingEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.packs)
}

func (l *Library) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.packs)
}

// Find looks a pack up by code.
func (l *Library) Find(code string) (core.TrainingEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := core.IndexOfCode(l.packs, code); i >= 0 {
		return l.packs[i], true
	}
	return core.TrainingEntry{}, false
}

func (l *Library) Filter(opts FilterOptions) []core.TrainingEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Filter(l.packs, opts)
}

func (l *Library) AvailableTags() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return AvailableTags(l.packs)
}

// IsStale reports whether the cache file is missing or older than maxAge.
// maxAge <= 0 uses DefaultMaxAge.
func (l *Library) IsStale(maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	info, err := l.opts.Fs.Stat(l.opts.CachePath)
	if err != nil {
		return true
	}
	return l.opts.Now().Sub(info.ModTime()) > maxAge
}

// LastUpdated formats the cache file's modification time, or "Never".
func (l *Library) LastUpdated() string {
	info, err := l.opts.Fs.Stat(l.opts.CachePath)
	if err != nil {
		return neverUpdated
	}
	return info.ModTime().UTC().Format(lastUpdatedLayout)
}

func (l *Library) Refreshing() bool {
	return l.refreshing.Load()
}

func (l *Library) Status(maxAge time.Duration) Status {
	l.mu.RLock()
	count, runID := len(l.packs), l.runID
	l.mu.RUnlock()
	return Status{
		Count:       count,
		LastUpdated: l.LastUpdated(),
		Stale:       l.IsStale(maxAge),
		Refreshing:  l.Refreshing(),
		RunID:       runID,
	}
}

// Refresh runs the scraper script to rewrite the cache file, then reloads it.
// Only one refresh runs at a time.
func (l *Library) Refresh(ctx context.Context) (int, error) {
	script := l.opts.ScraperScript
	if script == "" {
		return 0, ErrNoScraper
	}
	if ok, _ := afero.Exists(l.opts.Fs, script); !ok {
		return 0, fmt.Errorf("pack scraper script not found at %s", script)
	}

	if !l.refreshing.CompareAndSwap(false, true) {
		return 0, ErrRefreshInProgress
	}
	defer l.refreshing.Store(false)

	runID := uuid.NewString()
	log := l.log.With("runId", runID)
	log.Info("Started pack scraper", "script", script)

	start := l.opts.Now()
	err := l.opts.Runner.Run(ctx, "powershell",
		"-NoProfile", "-ExecutionPolicy", "Bypass",
		"-File", script,
		"-OutputPath", l.opts.CachePath,
		"-QuietMode:$true",
	)
	if err != nil {
		log.Error("Pack scraper failed", "error", err)
		return 0, fmt.Errorf("pack scraper failed: %w", err)
	}
	log.Info("Pack scraper completed", "duration", l.opts.Now().Sub(start))

	return l.load(runID)
}
