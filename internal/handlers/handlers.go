// Package handlers exposes the map catalog, shuffle bag, pack database and
// auto-load settings as dispatcher commands.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/SuiteSpot/extension/internal/autoload"
	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/internal/dispatcher"
	"github.com/SuiteSpot/extension/internal/events"
	"github.com/SuiteSpot/extension/internal/influx"
	"github.com/SuiteSpot/extension/internal/loadout"
	"github.com/SuiteSpot/extension/internal/logging"
	"github.com/SuiteSpot/extension/internal/mapmanager"
	"github.com/SuiteSpot/extension/internal/packdb"
	"github.com/SuiteSpot/extension/internal/storage"
	"github.com/SuiteSpot/extension/internal/util"
	"github.com/SuiteSpot/extension/pkg/core"
	"github.com/SuiteSpot/extension/pkg/hostbridge"
	"github.com/SuiteSpot/extension/pkg/streaming"
)

const defaultHistoryLimit = 20

// MetricWriter accepts ad-hoc metric points forwarded from the plugin.
type MetricWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// SelectionPublisher is told whenever the selected maps change.
type SelectionPublisher interface {
	PublishSelection(sel streaming.SelectionPayload) error
}

// PostMatchPublisher receives the ranked scoreboard when a match ends.
type PostMatchPublisher interface {
	PublishPostMatch(pm streaming.PostMatchPayload) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Manager    *mapmanager.Manager
	Packs      *packdb.Library
	Backend    storage.Backend
	AutoLoad   *autoload.Feature
	Host       hostbridge.Host
	Events     *events.Bus
	Loadouts   *loadout.Manager
	LogManager *logging.SlogManager

	// Optional sinks. Leave nil when disabled.
	Metrics   MetricWriter
	Selection SelectionPublisher
	PostMatch PostMatchPublisher

	Version     string
	BuildDate   string
	SessionID   string
	PacksMaxAge time.Duration
}

// Service provides the handler methods behind each command.
type Service struct {
	deps Dependencies
	// ctx bounds background work such as pack refreshes.
	ctx          context.Context
	log          *slog.Logger
	writeLogFunc func(source, data, level string)
}

// NewService creates a new handler service. ctx is cancelled on shutdown.
func NewService(ctx context.Context, deps Dependencies) *Service {
	if ctx == nil {
		ctx = context.Background()
	}
	log := slog.Default()
	if deps.LogManager != nil {
		log = deps.LogManager.Logger()
	}
	s := &Service{
		deps: deps,
		ctx:  ctx,
		log:  log.With("component", "handlers"),
	}
	s.writeLogFunc = func(source, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(source, data, level)
		}
	}
	return s
}

func (s *Service) writeLog(source, data, level string) {
	s.writeLogFunc(source, data, level)
}

// Register wires every command into d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{s.deps.Version, s.deps.BuildDate}, nil
	})
	d.Register(":STATUS:", func(e dispatcher.Event) (any, error) {
		return s.Status(), nil
	})
	d.Register(":COMMANDS:", func(e dispatcher.Event) (any, error) {
		return d.Commands(), nil
	})

	// training catalog
	d.Register(":CATALOG:LOAD:", s.LoadCatalog, dispatcher.Logged())
	d.Register(":CATALOG:LIST:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.Training(), nil
	})
	d.Register(":CATALOG:ADD:", s.AddTraining, dispatcher.Logged())
	d.Register(":CATALOG:REMOVE:", s.RemoveTraining, dispatcher.Logged())

	// workshop
	d.Register(":WORKSHOP:REFRESH:", func(e dispatcher.Event) (any, error) {
		n := s.deps.Manager.LoadWorkshop()
		s.persistIndices()
		return n, nil
	}, dispatcher.Logged())
	d.Register(":WORKSHOP:LIST:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.Workshop(), nil
	})

	// shuffle bag
	d.Register(":SHUFFLE:LOAD:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.LoadShuffleBag(), nil
	}, dispatcher.Logged())
	d.Register(":SHUFFLE:ADD:", s.AddToBag, dispatcher.Logged())
	d.Register(":SHUFFLE:REMOVE:", s.RemoveFromBag, dispatcher.Logged())
	d.Register(":SHUFFLE:PICK:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.PickNext(), nil
	})
	d.Register(":SHUFFLE:SELECTED:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.SelectedIndices(), nil
	})
	d.Register(":SHUFFLE:LIST:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.Bag(), nil
	})
	d.Register(":SHUFFLE:TOGGLEALL:", func(e dispatcher.Event) (any, error) {
		n, err := s.deps.Manager.ToggleAllInBag()
		s.publishSelection()
		return n, err
	}, dispatcher.Logged())
	d.Register(":SHUFFLE:ENSURE:", func(e dispatcher.Event) (any, error) {
		return s.deps.Manager.EnsureBag()
	})

	// pack database
	d.Register(":PACKS:LOAD:", func(e dispatcher.Event) (any, error) {
		return s.deps.Packs.Load()
	}, dispatcher.Logged())
	d.Register(":PACKS:REFRESH:", s.RefreshPacks, dispatcher.Buffered(1))
	d.Register(":PACKS:FILTER:", s.FilterPacks)
	d.Register(":PACKS:TAGS:", func(e dispatcher.Event) (any, error) {
		return s.deps.Packs.AvailableTags(), nil
	})
	d.Register(":PACKS:STATUS:", func(e dispatcher.Event) (any, error) {
		return s.deps.Packs.Status(s.deps.PacksMaxAge), nil
	})
	d.Register(":PACKS:PLAY:", s.PlayPack, dispatcher.Logged())

	// selection and settings
	d.Register(":INDEX:SET:", s.SetIndex, dispatcher.Logged())
	d.Register(":SETTINGS:GET:", func(e dispatcher.Event) (any, error) {
		return config.GetSettings(), nil
	})
	d.Register(":SETTINGS:SET:", s.SetSetting, dispatcher.Logged())

	d.Register(":MATCH:ENDED:", s.MatchEnded, dispatcher.Logged())
	d.Register(":OVERLAY:GET:", func(e dispatcher.Event) (any, error) {
		return config.GetOverlayConfig(), nil
	})

	// car presets
	d.Register(":LOADOUT:SYNC:", s.SyncLoadouts)
	d.Register(":LOADOUT:LIST:", s.ListLoadouts)
	d.Register(":LOADOUT:SWITCH:", s.SwitchLoadout, dispatcher.Logged())

	d.Register(":HISTORY:", s.History)
	d.Register(":LOG:", s.Log)
	d.Register(":METRIC:", s.Metric, dispatcher.Buffered(1000))
}

// StatusReport summarizes the module state for the settings window.
type StatusReport struct {
	Version   string             `json:"version"`
	SessionID string             `json:"sessionId"`
	Settings  config.Settings    `json:"settings"`
	Current   mapmanager.Indices `json:"current"`
	Training  int                `json:"training"`
	Workshop  int                `json:"workshop"`
	Bag       int                `json:"bag"`
	Packs     packdb.Status      `json:"packs"`
}

func (s *Service) Status() StatusReport {
	snap := s.deps.Manager.Snapshot()
	return StatusReport{
		Version:   s.deps.Version,
		SessionID: s.deps.SessionID,
		Settings:  config.GetSettings(),
		Current:   snap.Current,
		Training:  len(snap.Training),
		Workshop:  len(snap.Workshop),
		Bag:       len(snap.Bag),
		Packs:     s.deps.Packs.Status(s.deps.PacksMaxAge),
	}
}

// CatalogReport is the result of :CATALOG:LOAD:.
type CatalogReport struct {
	Entries  int      `json:"entries"`
	Upgraded bool     `json:"upgraded"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Service) LoadCatalog(e dispatcher.Event) (any, error) {
	report := s.deps.Manager.LoadTraining()
	for _, w := range report.Warnings {
		s.writeLog(e.Command, w, "WARN")
	}
	s.persistIndices()
	return CatalogReport{
		Entries:  len(s.deps.Manager.Training()),
		Upgraded: report.Upgraded,
		Warnings: report.Warnings,
	}, nil
}

// AddTraining handles :CATALOG:ADD:|code|name|shots. A missing or malformed
// shot count is stored as 0.
func (s *Service) AddTraining(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("expected code and name, got %d args", len(e.Args))
	}
	shots, _ := strconv.Atoi(arg(e, 2))

	i, err := s.deps.Manager.AddTraining(arg(e, 0), arg(e, 1), shots)
	if err != nil {
		return nil, err
	}
	s.persistIndices()
	s.publishSelection()
	return i, nil
}

func (s *Service) RemoveTraining(e dispatcher.Event) (any, error) {
	code := arg(e, 0)
	if code == "" {
		return nil, errors.New("expected pack code")
	}
	if err := s.deps.Manager.RemoveTraining(code); err != nil {
		return nil, err
	}
	s.persistIndices()
	s.publishSelection()
	return nil, nil
}

func (s *Service) AddToBag(e dispatcher.Event) (any, error) {
	code := arg(e, 0)
	if code == "" {
		return nil, errors.New("expected pack code")
	}
	if err := s.deps.Manager.AddToBag(code); err != nil {
		return nil, err
	}
	s.publishSelection()
	return len(s.deps.Manager.Bag()), nil
}

func (s *Service) RemoveFromBag(e dispatcher.Event) (any, error) {
	code := arg(e, 0)
	if code == "" {
		return nil, errors.New("expected pack code")
	}
	if err := s.deps.Manager.RemoveFromBag(code); err != nil {
		return nil, err
	}
	s.publishSelection()
	return len(s.deps.Manager.Bag()), nil
}

// RefreshPacks runs the pack scraper. It is registered buffered, so the
// result only reaches the log.
func (s *Service) RefreshPacks(e dispatcher.Event) (any, error) {
	n, err := s.deps.Packs.Refresh(s.ctx)
	if err != nil {
		s.writeLog(e.Command, fmt.Sprintf("Pack refresh failed: %v", err), "ERROR")
		return nil, err
	}
	s.writeLog(e.Command, fmt.Sprintf("Pack database refreshed with %d packs", n), "INFO")
	return n, nil
}

// FilterPacks handles :PACKS:FILTER:|search|difficulty|tag|minShots|sortBy|asc.
// Every argument is optional.
func (s *Service) FilterPacks(e dispatcher.Event) (any, error) {
	sortBy, err := packdb.ParseSortField(arg(e, 4))
	if err != nil {
		return nil, err
	}
	minShots, _ := strconv.Atoi(arg(e, 3))
	ascending := true
	if v := arg(e, 5); v != "" {
		ascending, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid sort direction %q", v)
		}
	}
	return s.deps.Packs.Filter(packdb.FilterOptions{
		Search:     arg(e, 0),
		Difficulty: arg(e, 1),
		Tag:        arg(e, 2),
		MinShots:   minShots,
		SortBy:     sortBy,
		Ascending:  ascending,
	}), nil
}

// PlayPack loads a pack from the database immediately. Codes missing from
// the loaded database are looked up in the storage backend.
func (s *Service) PlayPack(e dispatcher.Event) (any, error) {
	code := arg(e, 0)
	if code == "" {
		return nil, errors.New("expected pack code")
	}
	pack, ok := s.deps.Packs.Find(code)
	if !ok && s.deps.Backend != nil {
		found, err := s.deps.Backend.FindPack(code)
		if err != nil {
			return nil, fmt.Errorf("pack %q: %w", code, err)
		}
		pack, ok = found, true
	}
	if !ok {
		return nil, fmt.Errorf("pack %q: %w", code, core.ErrPackNotFound)
	}

	cmd := "load_training " + pack.Code
	s.deps.Host.SetTimeout(func() { s.deps.Host.ExecuteCommand(cmd) }, 0)
	s.writeLog(e.Command, "Loading pack: "+pack.Name, "INFO")

	ev := core.MapLoadEvent{
		Type:    core.MapTypeTraining,
		Code:    pack.Code,
		Name:    pack.Name,
		Command: cmd,
		Time:    e.Timestamp,
	}
	if s.deps.Events != nil {
		// Sink failures are logged by the bus.
		_ = s.deps.Events.MapLoaded(s.ctx, ev)
	}
	return ev, nil
}

// SetIndex handles :INDEX:SET:|type|index and returns the stored index.
func (s *Service) SetIndex(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("expected map type and index, got %d args", len(e.Args))
	}
	t, err := core.ParseMapType(arg(e, 0))
	if err != nil {
		return nil, err
	}
	i, err := strconv.Atoi(arg(e, 1))
	if err != nil {
		return nil, fmt.Errorf("invalid index %q", arg(e, 1))
	}

	stored, err := s.deps.Manager.SetIndex(t, i)
	if err != nil {
		return nil, err
	}
	s.persistIndices()
	s.publishSelection()
	return stored, nil
}

// MatchEnded handles :MATCH:ENDED:|stats. The optional stats argument is the
// final scoreboard as JSON and is published before the auto-loader runs; bad
// stats are logged and never block the map load. The manager may have
// clamped indices since they were saved, so they are saved again.
func (s *Service) MatchEnded(e dispatcher.Event) (any, error) {
	if raw := firstArg(e); raw != "" {
		if err := s.publishPostMatch(raw); err != nil {
			s.log.Warn("Failed to publish post-match stats", "error", err)
		}
	}

	res := s.deps.AutoLoad.OnMatchEnded(s.ctx, config.GetSettings())
	if res.Skipped != "" {
		s.writeLog(e.Command, "Map load skipped: "+res.Skipped, "INFO")
	}
	s.persistIndices()
	return res, nil
}

// publishPostMatch decodes the scoreboard JSON sent with :MATCH:ENDED:,
// ranks it and forwards it with the overlay layout.
func (s *Service) publishPostMatch(raw string) error {
	var pm core.PostMatch
	if err := json.Unmarshal([]byte(raw), &pm); err != nil {
		return fmt.Errorf("decoding match stats: %w", err)
	}
	if pm.Time.IsZero() {
		pm.Time = time.Now().UTC()
	}
	pm.Rank()

	if s.deps.PostMatch == nil {
		return nil
	}
	o := config.GetOverlayConfig()
	return s.deps.PostMatch.PublishPostMatch(streaming.PostMatchPayload{
		Match: pm,
		Overlay: streaming.OverlayLayout{
			Width:     o.Width,
			Height:    o.Height,
			Alpha:     o.Alpha,
			Duration:  o.Duration,
			BlueHue:   o.BlueHue,
			OrangeHue: o.OrangeHue,
		},
	})
}

// SyncLoadouts handles :LOADOUT:SYNC:|current|name... sent by the plugin
// whenever its preset list changes.
func (s *Service) SyncLoadouts(e dispatcher.Event) (any, error) {
	if s.deps.Loadouts == nil {
		return nil, loadout.ErrNoHost
	}
	var names []string
	for i := 1; i < len(e.Args); i++ {
		names = append(names, arg(e, i))
	}
	s.deps.Loadouts.Sync(arg(e, 0), names)
	return len(s.deps.Loadouts.Names()), nil
}

// LoadoutList is the :LOADOUT:LIST: result.
type LoadoutList struct {
	Current string   `json:"current"`
	Names   []string `json:"names"`
}

func (s *Service) ListLoadouts(e dispatcher.Event) (any, error) {
	if s.deps.Loadouts == nil {
		return LoadoutList{Names: []string{}}, nil
	}
	return LoadoutList{Current: s.deps.Loadouts.Current(), Names: s.deps.Loadouts.Names()}, nil
}

// SwitchLoadout handles :LOADOUT:SWITCH:|name-or-index.
func (s *Service) SwitchLoadout(e dispatcher.Event) (any, error) {
	if s.deps.Loadouts == nil {
		return nil, loadout.ErrNoHost
	}
	return s.deps.Loadouts.Switch(arg(e, 0))
}

// History handles :HISTORY:|limit.
func (s *Service) History(e dispatcher.Event) (any, error) {
	if s.deps.Backend == nil {
		return []core.MapLoadEvent{}, nil
	}
	limit := defaultHistoryLimit
	if v := arg(e, 0); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		limit = n
	}
	return s.deps.Backend.RecentLoads(limit)
}

// Log handles :LOG:|level|source|message from the plugin.
func (s *Service) Log(e dispatcher.Event) (any, error) {
	if len(e.Args) < 3 {
		return nil, fmt.Errorf("expected level, source and message, got %d args", len(e.Args))
	}
	s.writeLog(arg(e, 1), strings.Join(e.Args[2:], "|"), strings.ToUpper(arg(e, 0)))
	return nil, nil
}

// Metric forwards a plugin metric to InfluxDB. Without a metrics sink the
// point is dropped.
func (s *Service) Metric(e dispatcher.Event) (any, error) {
	if s.deps.Metrics == nil {
		return nil, nil
	}
	point, err := influx.ParseMetric(e.Args, e.Timestamp)
	if err != nil {
		return nil, err
	}
	return nil, s.deps.Metrics.WritePoint(point)
}

// persistIndices writes the manager's selection back to the config file.
// Failures are logged, the in-memory state stays authoritative.
func (s *Service) persistIndices() {
	idx := s.deps.Manager.Indices()
	for kind, i := range map[string]int{
		"freeplay": idx.Freeplay,
		"training": idx.Training,
		"workshop": idx.Workshop,
	} {
		if err := config.SetIndex(kind, i); err != nil {
			s.log.Error("Failed to store index", "mapType", kind, "error", err)
		}
	}
	s.save()
}

func (s *Service) save() {
	if err := config.Save(); err != nil {
		s.log.Warn("Failed to save settings", "error", err)
	}
}

func (s *Service) publishSelection() {
	if s.deps.Selection == nil {
		return
	}
	sel := streaming.SelectionPayload{
		MapType: core.MapType(config.GetSettings().MapType),
		BagSize: len(s.deps.Manager.Bag()),
	}
	if m, ok := s.deps.Manager.CurrentFreeplay(); ok {
		sel.Freeplay = m.Name
	}
	if m, ok := s.deps.Manager.CurrentTraining(); ok {
		sel.Training = m.Name
	}
	if m, ok := s.deps.Manager.CurrentWorkshop(); ok {
		sel.Workshop = m.Name
	}
	if err := s.deps.Selection.PublishSelection(sel); err != nil {
		s.log.Debug("Failed to publish selection", "error", err)
	}
}

// firstArg returns the first argument trimmed but with quotes kept, for
// arguments that carry JSON.
func firstArg(e dispatcher.Event) string {
	if len(e.Args) == 0 {
		return ""
	}
	return util.Trim(e.Args[0])
}

// arg returns the i-th argument with surrounding whitespace and quotes removed.
func arg(e dispatcher.Event, i int) string {
	if i >= len(e.Args) {
		return ""
	}
	return util.Trim(util.StripQuotes(util.Trim(e.Args[i])))
}
