package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/SuiteSpot/extension/internal/dispatcher"

type instruments struct {
	processedTotal metric.Int64Counter
	droppedTotal   metric.Int64Counter
}

// newInstruments registers the dispatcher metrics on the global meter.
// depths is polled for the queue gauge on every collection.
func newInstruments(depths func(observe func(command string, depth int))) (*instruments, error) {
	m := otel.Meter(instrumentationName)

	gauge, err := m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a command queue"))
	if err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		depths(func(command string, depth int) {
			o.ObserveInt64(gauge, int64(depth), metric.WithAttributes(attribute.String("command", command)))
		})
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("registering queue gauge: %w", err)
	}

	inst := &instruments{}
	if inst.processedTotal, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Queued events handled")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if inst.droppedTotal, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events rejected by a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return inst, nil
}

func (i *instruments) processed(command string) {
	i.processedTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (i *instruments) dropped(command string) {
	i.droppedTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}
