// Command suitespot is the out-of-process half of the SuiteSpot plugin. The
// plugin shim starts it and exchanges one command per line over stdin and
// stdout; game commands flow back the same way.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/SuiteSpot/extension/internal/autoload"
	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/internal/dispatcher"
	"github.com/SuiteSpot/extension/internal/events"
	"github.com/SuiteSpot/extension/internal/handlers"
	"github.com/SuiteSpot/extension/internal/influx"
	"github.com/SuiteSpot/extension/internal/loadout"
	"github.com/SuiteSpot/extension/internal/logging"
	"github.com/SuiteSpot/extension/internal/mapmanager"
	"github.com/SuiteSpot/extension/internal/monitor"
	intOtel "github.com/SuiteSpot/extension/internal/otel"
	"github.com/SuiteSpot/extension/internal/packdb"
	"github.com/SuiteSpot/extension/internal/paths"
	"github.com/SuiteSpot/extension/internal/storage"
	"github.com/SuiteSpot/extension/internal/storage/memory"
	"github.com/SuiteSpot/extension/internal/stream"
	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
	"github.com/SuiteSpot/extension/pkg/hostbridge"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion = "2.0.0"
	BuildDate      = "unknown"
)

const (
	appName         = "suitespot"
	shutdownTimeout = 5 * time.Second
)

// app holds everything started for one session so shutdown can unwind it.
type app struct {
	sessionID string
	start     time.Time
	fs        afero.Fs
	layout    paths.Layout

	slog    *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	logFile *os.File
	gelf    *logging.GELFSink
	otel    *intOtel.Provider

	backend storage.Backend
	influx  *influx.Manager
	feed    *stream.Feed
	host    *hostbridge.PipeHost
	d       *dispatcher.Dispatcher
	monitor *monitor.Service
}

func main() {
	if len(os.Args) > 1 {
		os.Exit(runCLI(os.Args[1:], os.Stdout))
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "suitespot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		sessionID: uuid.NewString(),
		start:     time.Now(),
		fs:        afero.NewOsFs(),
	}
	a.setupLogging()
	defer a.shutdown()

	if err := a.setupStorage(); err != nil {
		return err
	}

	manager := a.loadCatalogs()
	packs := packdb.New(packdb.Options{
		Fs:            a.fs,
		CachePath:     a.layout.PackCacheFile(),
		ScraperScript: util.ExpandEnvAndHome(config.GetPacksConfig().ScraperScript),
		Index:         a.backend,
		Logger:        a.logger,
	})
	if n, err := packs.Load(); err != nil {
		a.logger.Error("Failed to load pack database", "error", err)
	} else {
		a.logger.Info("Loaded pack database", "packs", n)
	}

	a.host = hostbridge.NewPipeHost(os.Stdout, a.logger)
	bus := events.NewBus(a.logger, events.NewHistorySink(a.backend))

	deps := handlers.Dependencies{
		Manager:     manager,
		Packs:       packs,
		Backend:     a.backend,
		Host:        a.host,
		Events:      bus,
		Loadouts:    loadout.New(a.host, a.logger),
		LogManager:  a.slog,
		Version:     CurrentVersion,
		BuildDate:   BuildDate,
		SessionID:   a.sessionID,
		PacksMaxAge: config.GetPacksConfig().MaxAge,
	}
	if m := a.connectInflux(ctx); m != nil {
		bus.Add(m)
		deps.Metrics = m
	}
	if f := a.connectStream(); f != nil {
		bus.Add(f)
		deps.Selection = f
		deps.PostMatch = f
	}
	deps.AutoLoad = autoload.New(a.host, manager, bus, a.logger)

	var err error
	a.d, err = dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	svc := handlers.NewService(ctx, deps)
	svc.Register(a.d)
	a.logger.Info("Dispatcher initialized", "commands", len(a.d.Commands()))

	packsCfg := config.GetPacksConfig()
	a.monitor = monitor.NewService(monitor.Dependencies{
		Fs:          a.fs,
		StatusPath:  filepath.Join(util.ExpandEnvAndHome(config.GetString("logsDir")), "status.json"),
		Status:      func() any { return svc.Status() },
		Packs:       packs,
		Metrics:     deps.Metrics,
		Logger:      a.logger,
		Interval:    config.GetDuration("statusInterval"),
		PacksMaxAge: packsCfg.MaxAge,
		AutoRefresh: packsCfg.AutoRefresh,
	})
	a.monitor.Start(ctx)

	a.logger.Info("Serving host pipe", "session", a.sessionID, "version", CurrentVersion)
	err = hostbridge.Serve(ctx, os.Stdin, a.host, hostbridge.NewBridge(a.d))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("Host pipe closed")
	return nil
}

// configDir resolves where suitespot.cfg.json lives. SUITESPOT_CONFIG_DIR
// overrides the BakkesMod data layout.
func configDir() string {
	if dir := os.Getenv("SUITESPOT_CONFIG_DIR"); dir != "" {
		return dir
	}
	if root := paths.DataRoot(); root != "" {
		return paths.NewLayout(root).ConfigDir()
	}
	return "."
}

func (a *app) setupLogging() {
	// Console output goes to stderr until the log file is open.
	a.slog = logging.NewSlogManager()
	a.slog.Setup(nil, "info", nil)
	a.logger = a.slog.Logger()

	if err := config.Load(configDir()); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config", "path", config.FileUsed())
	}

	a.layout = paths.NewLayout(util.ExpandEnvAndHome(config.GetString("dataRoot")))
	if a.layout.Root == "" {
		a.layout = paths.NewLayout(".")
	}
	if err := a.layout.EnsureDirs(a.fs); err != nil {
		a.logger.Error("Failed to create data directories", "error", err)
	}

	level := config.GetString("logLevel")
	logsDir := util.ExpandEnvAndHome(config.GetString("logsDir"))
	var logWriter io.Writer
	f, logPath, err := logging.OpenSessionLog(logsDir, appName, a.start)
	if err != nil {
		a.logger.Error("Failed to open log file", "error", err, "path", logPath)
	} else {
		a.logFile = f
		logWriter = f
	}

	otelCfg := intOtel.FromSettings(config.GetOTelConfig(), logWriter)
	otelCfg.ServiceVersion = CurrentVersion
	otelCfg.SessionID = a.sessionID
	if otelCfg.Enabled {
		p, err := intOtel.New(otelCfg)
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.otel = p
			a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}
	var otelLogProvider *sdklog.LoggerProvider
	if a.otel != nil {
		otelLogProvider = a.otel.LoggerProvider()
	}

	var sinks []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		sink, err := logging.NewGELFSink(gl.Address, appName, level)
		if err != nil {
			a.logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			a.gelf = sink
			sinks = append(sinks, sink.Handler())
		}
	}

	a.slog.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", a.sessionID),
			slog.String("mapType", core.MapType(config.GetInt("mapType")).String()),
		}
	})
	a.slog.Setup(logWriter, level, otelLogProvider, sinks...)
	a.logger = a.slog.Logger()
	a.zlog = logging.NewZerolog(logWriter, level)
	a.logger.Info("Logging to file", "path", logPath)
}

// setupStorage opens the configured pack index. A backend that fails to
// initialize is replaced by the in-memory one.
func (a *app) setupStorage() error {
	cfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(cfg, a.layout, a.sessionID, a.zlog)
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend, using memory", "type", cfg.Type, "error", err)
		backend = memory.New()
		if err := backend.Init(); err != nil {
			return err
		}
	} else {
		a.logger.Info("Storage backend initialized", "type", cfg.Type)
	}
	a.backend = backend
	return nil
}

// loadCatalogs restores the saved selection, then loads every catalog so the
// indices are clamped against what is actually on disk.
func (a *app) loadCatalogs() *mapmanager.Manager {
	m := mapmanager.New(mapmanager.Options{
		Fs:            a.fs,
		Layout:        a.layout,
		FallbackRoots: config.GetWorkshopConfig().FallbackRoots,
		Logger:        a.logger,
	})
	s := config.GetSettings()
	m.SetIndices(mapmanager.Indices{
		Freeplay: s.Current.Freeplay,
		Training: s.Current.Training,
		Workshop: s.Current.Workshop,
	})

	report := m.LoadTraining()
	for _, w := range report.Warnings {
		a.logger.Warn("Training catalog", "warning", w)
	}
	m.LoadWorkshop()
	m.LoadShuffleBag()
	if s.TrainingShuffle {
		if _, err := m.EnsureBag(); err != nil {
			a.logger.Warn("Failed to fill shuffle bag", "error", err)
		}
	}
	return m
}

func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(
		util.ExpandEnvAndHome(config.GetString("logsDir")),
		fmt.Sprintf("%s_influx_%s.gz", appName, a.start.Format("20060102_150405")),
	)
	m := influx.NewManager(cfg, a.fs, backup, a.sessionID, a.zlog)
	if err := m.Connect(ctx); err != nil {
		a.logger.Error("Failed to set up InfluxDB", "error", err)
		return nil
	}
	a.influx = m
	return m
}

func (a *app) connectStream() *stream.Feed {
	cfg := config.GetStreamConfig()
	if !cfg.Enabled {
		return nil
	}
	f := stream.New(cfg, a.logger)
	if err := f.Start(a.sessionID, CurrentVersion); err != nil {
		a.logger.Warn("Overlay feed unavailable", "url", cfg.URL, "error", err)
		return nil
	}
	a.feed = f
	return f
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.host != nil {
		a.host.Stop()
	}
	if a.d != nil {
		if err := a.d.Close(ctx); err != nil {
			a.logger.Warn("Dispatcher did not drain", "error", err)
		}
	}
	if a.feed != nil {
		if err := a.feed.Close(); err != nil {
			a.logger.Warn("Failed to close overlay feed", "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Warn("Failed to close InfluxDB", "error", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("Failed to close storage backend", "error", err)
		}
	}
	if err := config.Save(); err != nil {
		a.logger.Warn("Failed to save settings", "error", err)
	}

	a.logger.Info("Shut down", "uptime", time.Since(a.start))
	if a.otel != nil {
		_ = a.otel.Shutdown(ctx)
	}
	_ = a.slog.Flush(ctx)
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
