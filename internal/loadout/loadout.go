// Package loadout caches the car presets reported by the plugin and switches
// between them by name or index.
package loadout

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/SuiteSpot/extension/pkg/hostbridge"
)

var (
	ErrEmptyName = errors.New("loadout name is required")
	ErrNotFound  = errors.New("loadout not found")
	ErrNoHost    = errors.New("host cannot switch loadouts")
)

// Manager holds the last preset list the plugin synced. The plugin owns the
// presets; the cache only resolves names and indices before asking the host
// to equip one.
type Manager struct {
	mu      sync.RWMutex
	names   []string
	current string

	host hostbridge.LoadoutHost
	log  *slog.Logger
}

// New returns an empty Manager. host may be nil, in which case Switch fails
// with ErrNoHost.
func New(host hostbridge.LoadoutHost, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{host: host, log: log.With("component", "loadout")}
}

// Sync replaces the cached preset names and the equipped one. Blank names
// are dropped.
func (m *Manager) Sync(current string, names []string) {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}

	m.mu.Lock()
	m.names = kept
	m.current = strings.TrimSpace(current)
	m.mu.Unlock()

	m.log.Info("Synced loadouts", "count", len(kept), "current", current)
}

func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.names)
}

func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Switch equips the preset named target. A target that names no preset but
// parses as an integer selects by cache index. It returns the equipped name.
func (m *Manager) Switch(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", ErrEmptyName
	}
	if m.host == nil {
		return "", ErrNoHost
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := m.resolve(target)
	if err != nil {
		return "", err
	}
	m.host.EquipLoadout(name)
	m.current = name
	m.log.Info("Switched loadout", "loadout", name)
	return name, nil
}

func (m *Manager) resolve(target string) (string, error) {
	if slices.Contains(m.names, target) {
		return target, nil
	}
	i, err := strconv.Atoi(target)
	if err != nil {
		return "", fmt.Errorf("%q: %w", target, ErrNotFound)
	}
	if i < 0 || i >= len(m.names) {
		return "", fmt.Errorf("index %d of %d: %w", i, len(m.names), ErrNotFound)
	}
	return m.names[i], nil
}
