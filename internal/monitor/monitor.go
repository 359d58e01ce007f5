// Package monitor periodically publishes the module status and keeps the
// pack database fresh.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/internal/packdb"
)

const MeasurementStatus = "status"

// Packs is the part of the pack library the monitor drives.
type Packs interface {
	Count() int
	IsStale(maxAge time.Duration) bool
	Refreshing() bool
	Refresh(ctx context.Context) (int, error)
}

// MetricWriter receives one status point per tick.
type MetricWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Fs         afero.Fs
	StatusPath string
	// Status returns the value written to StatusPath each tick.
	Status func() any
	Packs  Packs
	// Metrics is optional.
	Metrics MetricWriter
	Logger  *slog.Logger

	Interval    time.Duration
	PacksMaxAge time.Duration
	AutoRefresh bool
}

// Service manages status monitoring
type Service struct {
	deps Dependencies
	log  *slog.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	return &Service{deps: deps, log: deps.Logger.With("component", "monitor")}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start runs the monitor loop until ctx is done or Stop is called. The first
// tick runs immediately.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.isRunning = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			close(s.done)
			s.mu.Unlock()
		}()

		s.log.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			s.Tick(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the monitor and waits for the loop to exit.
func (s *Service) Stop() {
	s.mu.RLock()
	cancel, done := s.cancel, s.done
	s.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Tick writes the status file and the status metric, then refreshes the
// pack database when it is stale and auto-refresh is on.
func (s *Service) Tick(ctx context.Context) {
	if s.deps.Status != nil && s.deps.StatusPath != "" {
		if err := s.writeStatus(s.deps.Status()); err != nil {
			s.log.Error("Error writing status file", "error", err, "path", s.deps.StatusPath)
		}
	}

	if s.deps.Packs == nil {
		return
	}
	stale := s.deps.Packs.IsStale(s.deps.PacksMaxAge)

	if s.deps.Metrics != nil {
		point := influxdb2_write.NewPointWithMeasurement(MeasurementStatus).
			AddField("packs", s.deps.Packs.Count()).
			AddField("packs_stale", stale).
			SetTime(time.Now())
		if err := s.deps.Metrics.WritePoint(point); err != nil {
			s.log.Debug("Error writing status point", "error", err)
		}
	}

	if stale && s.deps.AutoRefresh && !s.deps.Packs.Refreshing() {
		s.log.Info("Pack database is stale, refreshing", "maxAge", s.deps.PacksMaxAge)
		n, err := s.deps.Packs.Refresh(ctx)
		switch {
		case errors.Is(err, packdb.ErrRefreshInProgress), errors.Is(err, context.Canceled):
		case err != nil:
			s.log.Error("Automatic pack refresh failed", "error", err)
		default:
			s.log.Info("Automatic pack refresh complete", "packs", n)
		}
	}
}

func (s *Service) writeStatus(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(s.deps.Fs, s.deps.StatusPath, append(data, '\n'), 0644)
}
