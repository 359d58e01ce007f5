package cache

import (
	"sync"

	"github.com/SuiteSpot/extension/pkg/core"
)

// LoadHistory keeps the most recent map loads, oldest dropped first.
type LoadHistory struct {
	mu    sync.RWMutex
	size  int
	loads []core.MapLoadEvent
}

// NewLoadHistory keeps at most size loads. size < 1 is treated as 1.
func NewLoadHistory(size int) *LoadHistory {
	if size < 1 {
		size = 1
	}
	return &LoadHistory{size: size}
}

func (h *LoadHistory) Add(ev core.MapLoadEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads = append(h.loads, ev)
	if over := len(h.loads) - h.size; over > 0 {
		h.loads = append(h.loads[:0], h.loads[over:]...)
	}
}

// Recent returns up to limit loads, newest first. limit <= 0 returns all.
func (h *LoadHistory) Recent(limit int) []core.MapLoadEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := len(h.loads)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]core.MapLoadEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.loads[i])
	}
	return out
}

func (h *LoadHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.loads)
}
