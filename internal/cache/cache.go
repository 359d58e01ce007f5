package cache

import (
	"sort"
	"sync"

	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
)

// PackCache holds the training pack index keyed by code.
// Reads dominate: the pack browser filters the whole index on every change.
type PackCache struct {
	m     sync.RWMutex
	packs map[string]core.TrainingEntry
}

func NewPackCache() *PackCache {
	return &PackCache{
		packs: make(map[string]core.TrainingEntry),
	}
}

func (c *PackCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.packs = make(map[string]core.TrainingEntry)
}

// Replace swaps the whole index in one step.
func (c *PackCache) Replace(entries []core.TrainingEntry) {
	packs := make(map[string]core.TrainingEntry, len(entries))
	for _, e := range entries {
		packs[e.Code] = e
	}
	c.m.Lock()
	c.packs = packs
	c.m.Unlock()
}

func (c *PackCache) Add(e core.TrainingEntry) {
	c.m.Lock()
	defer c.m.Unlock()
	c.packs[e.Code] = e
}

func (c *PackCache) Get(code string) (core.TrainingEntry, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	e, ok := c.packs[code]
	return e, ok
}

// All returns every pack sorted by name, ignoring case.
func (c *PackCache) All() []core.TrainingEntry {
	c.m.RLock()
	out := make([]core.TrainingEntry, 0, len(c.packs))
	for _, e := range c.packs {
		out = append(out, e)
	}
	c.m.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if cmp := util.CompareFold(out[i].Name, out[j].Name); cmp != 0 {
			return cmp < 0
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func (c *PackCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.packs)
}
