package autoload

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/pkg/core"
)

type timeout struct {
	fn    func()
	delay time.Duration
}

type fakeHost struct {
	executed []string
	timeouts []timeout
}

func (h *fakeHost) ExecuteCommand(cmd string) { h.executed = append(h.executed, cmd) }

func (h *fakeHost) SetTimeout(fn func(), delay time.Duration) {
	h.timeouts = append(h.timeouts, timeout{fn: fn, delay: delay})
}

func (h *fakeHost) fireAll() {
	for _, t := range h.timeouts {
		t.fn()
	}
	h.timeouts = nil
}

type fakeCatalog struct {
	freeplay    *core.MapEntry
	training    *core.TrainingEntry
	workshop    *core.WorkshopEntry
	bag         []core.TrainingEntry
	bagDraws    int
	drawPointer int
}

func (c *fakeCatalog) CurrentFreeplay() (core.MapEntry, bool) {
	if c.freeplay == nil {
		return core.MapEntry{}, false
	}
	return *c.freeplay, true
}

func (c *fakeCatalog) CurrentTraining() (core.TrainingEntry, bool) {
	if c.training == nil {
		return core.TrainingEntry{}, false
	}
	return *c.training, true
}

func (c *fakeCatalog) CurrentWorkshop() (core.WorkshopEntry, bool) {
	if c.workshop == nil {
		return core.WorkshopEntry{}, false
	}
	return *c.workshop, true
}

func (c *fakeCatalog) DrawFromBag() (core.TrainingEntry, bool) {
	c.bagDraws++
	if len(c.bag) == 0 {
		return core.TrainingEntry{}, false
	}
	e := c.bag[c.drawPointer%len(c.bag)]
	c.drawPointer++
	return e, true
}

type recorder struct {
	loads  []core.MapLoadEvent
	queues []core.QueueEvent
}

func (r *recorder) MapLoaded(_ context.Context, ev core.MapLoadEvent) error {
	r.loads = append(r.loads, ev)
	return nil
}

func (r *recorder) QueueScheduled(_ context.Context, ev core.QueueEvent) error {
	r.queues = append(r.queues, ev)
	return nil
}

var (
	stadium = &core.MapEntry{Code: "Stadium_P", Name: "DFH Stadium"}
	ceiling = &core.TrainingEntry{Code: "A503-264C-A7EF-D7D4", Name: "Ceiling Shots"}
	course  = &core.WorkshopEntry{FilePath: `C:\mods\Obstacle Course\course.upk`, Name: "Obstacle Course"}
	at      = time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC)
)

func newFeature(cat *fakeCatalog) (*Feature, *fakeHost, *recorder) {
	host := &fakeHost{}
	rec := &recorder{}
	f := New(host, cat, rec, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.now = func() time.Time { return at }
	return f, host, rec
}

func TestOnMatchEnded_Disabled(t *testing.T) {
	f, host, rec := newFeature(&fakeCatalog{freeplay: stadium})

	res := f.OnMatchEnded(context.Background(), config.Settings{Enabled: false, AutoQueue: true})

	assert.Equal(t, "disabled", res.Skipped)
	assert.Empty(t, host.executed)
	assert.Empty(t, host.timeouts)
	assert.Empty(t, rec.loads)
}

func TestOnMatchEnded_ImmediateLoads(t *testing.T) {
	tests := []struct {
		name    string
		mapType core.MapType
		cat     *fakeCatalog
		want    string
		code    string
	}{
		{"freeplay", core.MapTypeFreeplay, &fakeCatalog{freeplay: stadium}, "load_freeplay Stadium_P", "Stadium_P"},
		{"training", core.MapTypeTraining, &fakeCatalog{training: ceiling}, "load_training A503-264C-A7EF-D7D4", "A503-264C-A7EF-D7D4"},
		{"workshop", core.MapTypeWorkshop, &fakeCatalog{workshop: course}, `load_workshop "C:\mods\Obstacle Course\course.upk"`, course.FilePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, host, rec := newFeature(tt.cat)

			res := f.OnMatchEnded(context.Background(), config.Settings{Enabled: true, MapType: int(tt.mapType)})

			assert.Equal(t, []string{tt.want}, host.executed)
			assert.Empty(t, host.timeouts)
			require.NotNil(t, res.Load)
			assert.Nil(t, res.Queue, "auto-queue off")
			require.Len(t, rec.loads, 1)
			assert.Equal(t, core.MapLoadEvent{Type: tt.mapType, Code: tt.code, Name: res.Load.Name, Command: tt.want, Time: at}, rec.loads[0])
		})
	}
}

func TestOnMatchEnded_DelayedLoadAndQueue(t *testing.T) {
	f, host, rec := newFeature(&fakeCatalog{training: ceiling})

	res := f.OnMatchEnded(context.Background(), config.Settings{
		Enabled:   true,
		MapType:   int(core.MapTypeTraining),
		AutoQueue: true,
		Delays:    config.DelayConfig{Training: 3 * time.Second, Queue: 5 * time.Second},
	})

	assert.Empty(t, host.executed, "nothing runs before the timers fire")
	require.Len(t, host.timeouts, 2)
	assert.Equal(t, 3*time.Second, host.timeouts[0].delay)
	assert.Equal(t, 5*time.Second, host.timeouts[1].delay)

	host.fireAll()
	assert.Equal(t, []string{"load_training A503-264C-A7EF-D7D4", "queue"}, host.executed)

	require.NotNil(t, res.Queue)
	assert.Equal(t, 5*time.Second, res.Queue.Delay)
	require.Len(t, rec.queues, 1)
	assert.Equal(t, 3*time.Second, rec.loads[0].Delay)
}

func TestOnMatchEnded_QueueWithoutLoad(t *testing.T) {
	f, host, rec := newFeature(&fakeCatalog{})

	res := f.OnMatchEnded(context.Background(), config.Settings{
		Enabled:   true,
		MapType:   int(core.MapTypeFreeplay),
		AutoQueue: true,
	})

	assert.Equal(t, "freeplay index out of range", res.Skipped)
	assert.Nil(t, res.Load)
	assert.Equal(t, []string{"queue"}, host.executed)
	assert.Empty(t, rec.loads)
	assert.Len(t, rec.queues, 1)
}

func TestOnMatchEnded_SkipReasons(t *testing.T) {
	tests := []struct {
		name    string
		mapType int
		want    string
	}{
		{"empty training", int(core.MapTypeTraining), "no training maps configured"},
		{"empty workshop", int(core.MapTypeWorkshop), "no workshop maps configured"},
		{"unknown type", 7, "unknown map type 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, host, _ := newFeature(&fakeCatalog{})
			res := f.OnMatchEnded(context.Background(), config.Settings{Enabled: true, MapType: tt.mapType, TrainingShuffle: true})
			assert.Equal(t, tt.want, res.Skipped)
			assert.Empty(t, host.executed)
		})
	}
}

func TestOnMatchEnded_ShuffleDrawsFromBag(t *testing.T) {
	orphan := core.TrainingEntry{Code: "ORPH-AN00-0000-0000", Name: "Removed pack"}
	cat := &fakeCatalog{training: ceiling, bag: []core.TrainingEntry{orphan}}
	f, host, rec := newFeature(cat)

	res := f.OnMatchEnded(context.Background(), config.Settings{
		Enabled:         true,
		MapType:         int(core.MapTypeTraining),
		TrainingShuffle: true,
	})

	assert.Equal(t, []string{"load_training ORPH-AN00-0000-0000"}, host.executed, "bag entries load even when not in the catalog")
	require.NotNil(t, res.Load)
	assert.True(t, res.Load.Shuffled)
	assert.True(t, rec.loads[0].Shuffled)
}

func TestOnMatchEnded_ShuffleWithEmptyBagFallsBack(t *testing.T) {
	cat := &fakeCatalog{training: ceiling}
	f, host, _ := newFeature(cat)

	res := f.OnMatchEnded(context.Background(), config.Settings{
		Enabled:         true,
		MapType:         int(core.MapTypeTraining),
		TrainingShuffle: true,
	})

	assert.Equal(t, 1, cat.bagDraws)
	assert.Equal(t, []string{"load_training A503-264C-A7EF-D7D4"}, host.executed)
	assert.False(t, res.Load.Shuffled)
}

func TestOnMatchEnded_ShuffleOffIgnoresBag(t *testing.T) {
	cat := &fakeCatalog{training: ceiling, bag: []core.TrainingEntry{{Code: "OTHER", Name: "x"}}}
	f, host, _ := newFeature(cat)

	f.OnMatchEnded(context.Background(), config.Settings{Enabled: true, MapType: int(core.MapTypeTraining)})

	assert.Zero(t, cat.bagDraws)
	assert.Equal(t, []string{"load_training A503-264C-A7EF-D7D4"}, host.executed)
}

func TestOnMatchEnded_NilNotifier(t *testing.T) {
	host := &fakeHost{}
	f := New(host, &fakeCatalog{freeplay: stadium}, nil, nil)

	res := f.OnMatchEnded(context.Background(), config.Settings{Enabled: true, AutoQueue: true})

	require.NotNil(t, res.Load)
	assert.Equal(t, []string{"load_freeplay Stadium_P", "queue"}, host.executed)
}
