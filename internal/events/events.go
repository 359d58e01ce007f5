// Package events fans map-load notifications out to the storage, telemetry
// and overlay sinks.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SuiteSpot/extension/pkg/core"
)

// Sink receives map-load events after the host command has been scheduled.
type Sink interface {
	MapLoaded(ctx context.Context, ev core.MapLoadEvent) error
}

// QueueSink is implemented by sinks that also track auto-queue requests.
type QueueSink interface {
	QueueScheduled(ctx context.Context, ev core.QueueEvent) error
}

// Recorder is the subset of a storage backend that keeps load history.
type Recorder interface {
	RecordMapLoad(ev core.MapLoadEvent) error
}

// Bus delivers each event to every registered sink. A failing sink is
// logged and does not stop delivery to the others.
type Bus struct {
	sinks []Sink
	log   *slog.Logger
}

func NewBus(log *slog.Logger, sinks ...Sink) *Bus {
	if log == nil {
		log = slog.Default()
	}
	b := &Bus{log: log.With("component", "events")}
	for _, s := range sinks {
		b.Add(s)
	}
	return b
}

// Add registers a sink. Nil sinks are ignored.
func (b *Bus) Add(s Sink) {
	if s != nil {
		b.sinks = append(b.sinks, s)
	}
}

func (b *Bus) MapLoaded(ctx context.Context, ev core.MapLoadEvent) error {
	var errs []error
	for _, s := range b.sinks {
		if err := s.MapLoaded(ctx, ev); err != nil {
			b.log.Warn("Map load sink failed", "sink", sinkName(s), "code", ev.Code, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) QueueScheduled(ctx context.Context, ev core.QueueEvent) error {
	var errs []error
	for _, s := range b.sinks {
		qs, ok := s.(QueueSink)
		if !ok {
			continue
		}
		if err := qs.QueueScheduled(ctx, ev); err != nil {
			b.log.Warn("Queue sink failed", "sink", sinkName(s), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HistorySink stores every load through a storage backend.
type HistorySink struct {
	rec Recorder
}

func NewHistorySink(rec Recorder) *HistorySink {
	return &HistorySink{rec: rec}
}

func (h *HistorySink) MapLoaded(_ context.Context, ev core.MapLoadEvent) error {
	return h.rec.RecordMapLoad(ev)
}

// Func adapts a plain function to a Sink.
type Func func(ctx context.Context, ev core.MapLoadEvent) error

func (f Func) MapLoaded(ctx context.Context, ev core.MapLoadEvent) error {
	return f(ctx, ev)
}

func sinkName(s Sink) string {
	switch s.(type) {
	case *HistorySink:
		return "history"
	case Func:
		return "func"
	default:
		return "sink"
	}
}
