// Package autoload schedules the next map and the auto-queue when a match
// ends.
package autoload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/pkg/core"
	"github.com/SuiteSpot/extension/pkg/hostbridge"
)

// Catalog is the read side of the map manager used at match end.
type Catalog interface {
	CurrentFreeplay() (core.MapEntry, bool)
	CurrentTraining() (core.TrainingEntry, bool)
	CurrentWorkshop() (core.WorkshopEntry, bool)
	DrawFromBag() (core.TrainingEntry, bool)
}

// Notifier receives the scheduled loads and queue requests.
type Notifier interface {
	MapLoaded(ctx context.Context, ev core.MapLoadEvent) error
	QueueScheduled(ctx context.Context, ev core.QueueEvent) error
}

// Result describes what a match end scheduled.
type Result struct {
	Load    *core.MapLoadEvent `json:"load,omitempty"`
	Queue   *core.QueueEvent   `json:"queue,omitempty"`
	Skipped string             `json:"skipped,omitempty"`
}

type Feature struct {
	host    hostbridge.Host
	catalog Catalog
	notify  Notifier
	log     *slog.Logger
	now     func() time.Time
}

// New builds the feature. notify may be nil.
func New(host hostbridge.Host, catalog Catalog, notify Notifier, log *slog.Logger) *Feature {
	if log == nil {
		log = slog.Default()
	}
	return &Feature{
		host:    host,
		catalog: catalog,
		notify:  notify,
		log:     log.With("component", "autoload"),
		now:     time.Now,
	}
}

// OnMatchEnded loads the next map for the selected map type and schedules
// the auto-queue. A skipped load does not prevent the queue.
func (f *Feature) OnMatchEnded(ctx context.Context, s config.Settings) Result {
	if !s.Enabled {
		return Result{Skipped: "disabled"}
	}

	var res Result
	load, skipped := f.nextLoad(s)
	if load != nil {
		f.execute(load.Delay, load.Command)
		f.log.Info("Loading map", "type", load.Type.String(), "name", load.Name, "code", load.Code, "delay", load.Delay)
		if f.notify != nil {
			_ = f.notify.MapLoaded(ctx, *load)
		}
		res.Load = load
	} else {
		f.log.Info("Skipping map load", "reason", skipped)
		res.Skipped = skipped
	}

	if s.AutoQueue {
		q := &core.QueueEvent{Delay: s.Delays.Queue, Time: f.now()}
		f.execute(q.Delay, "queue")
		f.log.Info("Auto-queue scheduled", "delay", q.Delay)
		if f.notify != nil {
			_ = f.notify.QueueScheduled(ctx, *q)
		}
		res.Queue = q
	}
	return res
}

func (f *Feature) nextLoad(s config.Settings) (*core.MapLoadEvent, string) {
	ev := &core.MapLoadEvent{Type: core.MapType(s.MapType), Time: f.now()}

	switch ev.Type {
	case core.MapTypeFreeplay:
		m, ok := f.catalog.CurrentFreeplay()
		if !ok {
			return nil, "freeplay index out of range"
		}
		ev.Code, ev.Name = m.Code, m.Name
		ev.Command = "load_freeplay " + m.Code
		ev.Delay = s.Delays.Freeplay

	case core.MapTypeTraining:
		var pack core.TrainingEntry
		ok := false
		if s.TrainingShuffle {
			pack, ok = f.catalog.DrawFromBag()
			ev.Shuffled = ok
		}
		if !ok {
			pack, ok = f.catalog.CurrentTraining()
		}
		if !ok || pack.Code == "" {
			return nil, "no training maps configured"
		}
		ev.Code, ev.Name = pack.Code, pack.Name
		ev.Command = "load_training " + pack.Code
		ev.Delay = s.Delays.Training

	case core.MapTypeWorkshop:
		m, ok := f.catalog.CurrentWorkshop()
		if !ok {
			return nil, "no workshop maps configured"
		}
		ev.Code, ev.Name = m.FilePath, m.Name
		ev.Command = `load_workshop "` + m.FilePath + `"`
		ev.Delay = s.Delays.Workshop

	default:
		return nil, fmt.Sprintf("unknown map type %d", s.MapType)
	}
	return ev, ""
}

// execute runs cmd now when delay <= 0, otherwise through the host timer.
func (f *Feature) execute(delay time.Duration, cmd string) {
	if delay <= 0 {
		f.host.ExecuteCommand(cmd)
		return
	}
	f.host.SetTimeout(func() { f.host.ExecuteCommand(cmd) }, delay)
}
