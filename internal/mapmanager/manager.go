// Package mapmanager owns the training catalog, the workshop catalog, the
// shuffle bag and the current selection for each map type.
package mapmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/internal/catalog"
	"github.com/SuiteSpot/extension/internal/paths"
	"github.com/SuiteSpot/extension/internal/shuffle"
	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/internal/workshop"
	"github.com/SuiteSpot/extension/pkg/core"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidEntry = errors.New("invalid training entry")
)

// fieldBreakers cannot appear in a catalog field without splitting the line.
const fieldBreakers = ",\r\n"

// Options configures a Manager. Zero values fall back to the OS filesystem,
// the default data root, the default workshop roots and a time-seeded source.
type Options struct {
	Fs            afero.Fs
	Layout        paths.Layout
	FallbackRoots []string
	Source        rand.Source
	Logger        *slog.Logger
}

// Indices holds the current selection per map type.
type Indices struct {
	Freeplay int `json:"freeplay"`
	Training int `json:"training"`
	Workshop int `json:"workshop"`
}

// Snapshot is a copy of the manager state.
type Snapshot struct {
	Training []core.TrainingEntry `json:"training"`
	Workshop []core.WorkshopEntry `json:"workshop"`
	Bag      []core.TrainingEntry `json:"bag"`
	Selected []int                `json:"selected"`
	Current  Indices              `json:"current"`
}

type Manager struct {
	mu sync.RWMutex

	layout     paths.Layout
	fallbacks  []string
	catalog    *catalog.Store
	bagStore   *shuffle.Store
	discoverer *workshop.Discoverer
	selector   *shuffle.Selector
	log        *slog.Logger

	training []core.TrainingEntry
	workshop []core.WorkshopEntry
	bag      []core.TrainingEntry
	current  Indices
}

func New(opts Options) *Manager {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Layout.Root == "" {
		opts.Layout = paths.NewLayout("")
	}
	if opts.FallbackRoots == nil {
		opts.FallbackRoots = workshop.DefaultFallbackRoots
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("component", "mapmanager")

	return &Manager{
		layout:     opts.Layout,
		fallbacks:  opts.FallbackRoots,
		catalog:    catalog.NewStore(opts.Fs, opts.Layout.TrainingFile(), opts.Layout.ReadmeFile(), log),
		bagStore:   shuffle.NewStore(opts.Fs, opts.Layout.ShuffleBagFile(), log),
		discoverer: workshop.NewDiscoverer(opts.Fs, log),
		selector:   shuffle.NewSelector(opts.Source),
		log:        log,
	}
}

// LoadTraining reloads the training catalog from disk. The current pack is
// kept by code when it survives the reload, otherwise the index is clamped.
func (m *Manager) LoadTraining() catalog.Report {
	entries, report := m.catalog.Load()

	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.currentTrainingCode()
	m.training = entries
	if i := core.IndexOfCode(m.training, previous); previous != "" && i >= 0 {
		m.current.Training = i
	}
	m.clamp()

	m.log.Info("Loaded training catalog", "entries", len(entries), "upgraded", report.Upgraded)
	return report
}

func (m *Manager) SaveTraining() error {
	m.mu.RLock()
	entries := slices.Clone(m.training)
	m.mu.RUnlock()
	return m.catalog.Save(entries)
}

// AddTraining inserts a pack or replaces the one with the same code, persists
// the catalog and selects the pack. It returns the pack's catalog index.
// Codes and names must fit on one catalog line, so commas and line breaks are
// rejected. Memory is only updated once the catalog is saved.
func (m *Manager) AddTraining(code, name string, shots int) (int, error) {
	code, name = util.Trim(code), util.Trim(name)
	if code == "" || name == "" {
		return 0, ErrInvalidEntry
	}
	if strings.ContainsAny(code, fieldBreakers) || strings.ContainsAny(name, fieldBreakers) {
		return 0, fmt.Errorf("%w: %q, %q contains a comma or line break", ErrInvalidEntry, code, name)
	}
	if shots < 0 {
		shots = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := slices.Clone(m.training)
	entry := core.TrainingEntry{Code: code, Name: name, ShotCount: shots}
	if i := core.IndexOfCode(next, code); i >= 0 {
		next[i] = entry
	} else {
		next = append(next, entry)
	}
	catalog.SortByName(next)

	if err := m.catalog.Save(next); err != nil {
		return 0, err
	}

	m.training = next
	m.current.Training = core.IndexOfCode(m.training, code)
	m.clamp()
	return m.current.Training, nil
}

// RemoveTraining drops a pack from the catalog and persists it. Bag entries
// with that code are left in place as orphans.
func (m *Manager) RemoveTraining(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := core.IndexOfCode(m.training, code)
	if i < 0 {
		return fmt.Errorf("training pack %q: %w", code, ErrNotFound)
	}
	next := slices.Delete(slices.Clone(m.training), i, i+1)
	if err := m.catalog.Save(next); err != nil {
		return err
	}

	previous := m.currentTrainingCode()
	m.training = next
	if j := core.IndexOfCode(m.training, previous); j >= 0 {
		m.current.Training = j
	}
	m.clamp()
	return nil
}

// LoadWorkshop rediscovers workshop maps and returns how many were found.
func (m *Manager) LoadWorkshop() int {
	configured := m.discoverer.ResolveConfiguredRoot(m.layout.WorkshopLoaderConfig())
	entries := m.discoverer.Discover(workshop.Roots(configured, m.fallbacks))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.workshop = entries
	m.clamp()

	m.log.Info("Discovered workshop maps", "entries", len(entries), "configuredRoot", configured)
	return len(entries)
}

// LoadShuffleBag reloads the bag from disk and returns its catalog indices.
func (m *Manager) LoadShuffleBag() []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	bag, indices := m.bagStore.Load(m.training)
	m.bag = bag
	return indices
}

func (m *Manager) SaveShuffleBag() error {
	m.mu.RLock()
	bag := slices.Clone(m.bag)
	m.mu.RUnlock()
	return m.bagStore.Save(bag)
}

// AddToBag copies a catalog pack into the bag and persists the bag.
// Adding a pack that is already in the bag is a no-op.
func (m *Manager) AddToBag(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := core.IndexOfCode(m.training, code)
	if i < 0 {
		return fmt.Errorf("training pack %q: %w", code, ErrNotFound)
	}
	if core.IndexOfCode(m.bag, code) >= 0 {
		return nil
	}
	m.bag = append(m.bag, m.training[i])
	return m.bagStore.Save(m.bag)
}

// RemoveFromBag removes every bag entry with code and persists the bag.
func (m *Manager) RemoveFromBag(code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.bag)
	m.bag = slices.DeleteFunc(m.bag, func(e core.TrainingEntry) bool { return e.Code == code })
	if len(m.bag) == n {
		return fmt.Errorf("shuffle bag entry %q: %w", code, ErrNotFound)
	}
	return m.bagStore.Save(m.bag)
}

// ToggleAllInBag empties the bag when it already covers the whole catalog,
// otherwise fills it with every catalog pack. It returns the new bag size.
func (m *Manager) ToggleAllInBag() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.training) > 0 && len(shuffle.Indices(m.bag, m.training)) == len(m.training) {
		m.bag = nil
	} else {
		m.bag = slices.Clone(m.training)
	}
	return len(m.bag), m.bagStore.Save(m.bag)
}

// EnsureBag fills an empty bag with the whole catalog, as happens when
// shuffle is switched on with nothing selected.
func (m *Manager) EnsureBag() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.bag) > 0 {
		return len(m.bag), nil
	}
	m.bag = slices.Clone(m.training)
	return len(m.bag), m.bagStore.Save(m.bag)
}

// SelectedIndices derives the bag's catalog indices from the current catalog.
func (m *Manager) SelectedIndices() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return shuffle.Indices(m.bag, m.training)
}

// PickNext draws a random catalog index from the bag.
func (m *Manager) PickNext() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selector.PickNext(m.bag, m.training)
}

// DrawFromBag returns a random bag entry.
func (m *Manager) DrawFromBag() (core.TrainingEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selector.Draw(m.bag)
}

func (m *Manager) Training() []core.TrainingEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.training)
}

func (m *Manager) Workshop() []core.WorkshopEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.workshop)
}

func (m *Manager) Bag() []core.TrainingEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.bag)
}

// CurrentFreeplay returns the selected freeplay arena. The freeplay index is
// never clamped, so ok is false when it points outside the arena list.
func (m *Manager) CurrentFreeplay() (core.MapEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.current.Freeplay
	if i < 0 || i >= len(core.FreeplayMaps) {
		return core.MapEntry{}, false
	}
	return core.FreeplayMaps[i], true
}

func (m *Manager) CurrentTraining() (core.TrainingEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.training) == 0 {
		return core.TrainingEntry{}, false
	}
	return m.training[core.ClampIndex(m.current.Training, len(m.training))], true
}

func (m *Manager) CurrentWorkshop() (core.WorkshopEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.workshop) == 0 {
		return core.WorkshopEntry{}, false
	}
	return m.workshop[core.ClampIndex(m.current.Workshop, len(m.workshop))], true
}

// SetIndex stores the selection for t and returns the stored value. Training
// and workshop indices are clamped to their catalogs.
func (m *Manager) SetIndex(t core.MapType, i int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch t {
	case core.MapTypeFreeplay:
		m.current.Freeplay = i
		return i, nil
	case core.MapTypeTraining:
		m.current.Training = core.ClampIndex(i, len(m.training))
		return m.current.Training, nil
	case core.MapTypeWorkshop:
		m.current.Workshop = core.ClampIndex(i, len(m.workshop))
		return m.current.Workshop, nil
	default:
		return 0, fmt.Errorf("map type %d: %w", t, ErrNotFound)
	}
}

// SetIndices restores saved selections as-is, typically before the catalogs
// are loaded. The next load clamps them.
func (m *Manager) SetIndices(idx Indices) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = idx
}

func (m *Manager) Indices() Indices {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Training: slices.Clone(m.training),
		Workshop: slices.Clone(m.workshop),
		Bag:      slices.Clone(m.bag),
		Selected: shuffle.Indices(m.bag, m.training),
		Current:  m.current,
	}
}

// clamp must be called with mu held.
func (m *Manager) clamp() {
	m.current.Training = core.ClampIndex(m.current.Training, len(m.training))
	m.current.Workshop = core.ClampIndex(m.current.Workshop, len(m.workshop))
}

func (m *Manager) currentTrainingCode() string {
	if m.current.Training >= 0 && m.current.Training < len(m.training) {
		return m.training[m.current.Training].Code
	}
	return ""
}
