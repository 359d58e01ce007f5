package shuffle

import (
	"math/rand"
	"sync"
	"time"

	"github.com/SuiteSpot/extension/pkg/core"
)

// Selector draws uniformly from a shuffle bag. The source is seeded once and
// shared by every draw.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector uses src, or a time-seeded source when src is nil.
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{rng: rand.New(src)}
}

// Draw returns a uniformly chosen bag entry. ok is false for an empty bag.
func (s *Selector) Draw(bag []core.TrainingEntry) (core.TrainingEntry, bool) {
	if len(bag) == 0 {
		return core.TrainingEntry{}, false
	}
	s.mu.Lock()
	i := s.rng.Intn(len(bag))
	s.mu.Unlock()
	return bag[i], true
}

// PickNext draws from bag and maps the entry back to its catalog index.
// An empty bag or an orphaned code yields 0.
func (s *Selector) PickNext(bag, catalog []core.TrainingEntry) int {
	entry, ok := s.Draw(bag)
	if !ok {
		return 0
	}
	if i := core.IndexOfCode(catalog, entry.Code); i >= 0 {
		return i
	}
	return 0
}
