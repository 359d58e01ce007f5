package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/pkg/core"
)

const (
	MeasurementMapLoad = "map_load"
	MeasurementQueue   = "auto_queue"

	retentionSeconds = 60 * 60 * 24 * 90 // 90 days
)

var ErrDisabled = errors.New("influx is disabled")

// Manager writes map-load telemetry to InfluxDB, falling back to a gzipped
// line-protocol file when the server is unreachable.
type Manager struct {
	cfg        config.InfluxConfig
	fs         afero.Fs
	backupPath string
	sessionID  string
	log        zerolog.Logger

	mu           sync.Mutex
	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupFile   io.Closer
	backupWriter *gzip.Writer
	valid        bool
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, fs afero.Fs, backupPath, sessionID string, log zerolog.Logger) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{
		cfg:        cfg,
		fs:         fs,
		backupPath: backupPath,
		sessionID:  sessionID,
		log:        log,
	}
}

// Connect establishes a connection to InfluxDB. When the ping fails it opens
// the backup file instead and returns nil.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		m.log.Info().Err(err).Str("backupPath", m.backupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.valid = true
	m.log.Info().Str("url", m.cfg.URL()).Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.backupWriter != nil {
		return nil
	}
	file, err := m.fs.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	org, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.log.Info().Str("org", orgName).Msg("Organization not found, creating")
		org, err = m.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.log.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.log.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			m.log.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriter() {
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.log.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())
}

// Valid reports whether points go to the server rather than the backup file.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// MapLoaded records a map_load point.
func (m *Manager) MapLoaded(_ context.Context, ev core.MapLoadEvent) error {
	return m.WritePoint(MapLoadPoint(ev, m.sessionID))
}

// QueueScheduled records an auto_queue point.
func (m *Manager) QueueScheduled(_ context.Context, ev core.QueueEvent) error {
	return m.WritePoint(QueuePoint(ev, m.sessionID))
}

// Close flushes pending writes and closes the client or backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		errs = append(errs, m.backupFile.Close())
		m.backupWriter, m.backupFile = nil, nil
	}
	m.valid = false
	return errors.Join(errs...)
}

// MapLoadPoint converts a load event into a point tagged by map type.
func MapLoadPoint(ev core.MapLoadEvent, sessionID string) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementMapLoad,
		map[string]string{
			"session":  sessionID,
			"map_type": ev.Type.String(),
			"shuffled": strconv.FormatBool(ev.Shuffled),
		},
		map[string]any{
			"code":          ev.Code,
			"name":          ev.Name,
			"delay_seconds": ev.Delay.Seconds(),
		},
		ev.Time,
	)
}

func QueuePoint(ev core.QueueEvent, sessionID string) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementQueue,
		map[string]string{"session": sessionID},
		map[string]any{"delay_seconds": ev.Delay.Seconds()},
		ev.Time,
	)
}

// ParseMetric builds a point from host-submitted metric fields:
// measurement name first, then "tag::name::value" and
// "field::type::name::value" entries where type is string, int or float.
func ParseMetric(data []string, at time.Time) (*influxdb2_write.Point, error) {
	if len(data) == 0 || strings.TrimSpace(data[0]) == "" {
		return nil, errors.New("metric needs a measurement name")
	}

	point := influxdb2_write.NewPointWithMeasurement(strings.TrimSpace(data[0])).SetTime(at)

	fields := 0
	for _, entry := range data[1:] {
		parts := strings.Split(strings.TrimSpace(entry), "::")
		switch {
		case parts[0] == "tag" && len(parts) >= 3:
			point.AddTag(parts[1], parts[2])
		case parts[0] == "field" && len(parts) >= 4:
			fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]
			switch fieldType {
			case "string":
				point.AddField(fieldName, fieldValue)
			case "int":
				intVal, err := strconv.Atoi(fieldValue)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
				}
				point.AddField(fieldName, intVal)
			case "float":
				floatVal, err := strconv.ParseFloat(fieldValue, 64)
				if err != nil {
					return nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
				}
				point.AddField(fieldName, floatVal)
			default:
				continue
			}
			fields++
		}
	}

	if fields == 0 {
		return nil, errors.New("metric has no fields")
	}
	return point, nil
}
