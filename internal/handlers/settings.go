package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SuiteSpot/extension/internal/config"
	"github.com/SuiteSpot/extension/internal/dispatcher"
	"github.com/SuiteSpot/extension/pkg/core"
)

type settingKind int

const (
	kindBool settingKind = iota
	kindMapType
	kindDelay
	kindIndex
	kindLevel
	kindOverlay
)

// settingKinds lists the keys :SETTINGS:SET: accepts and how their values
// are parsed.
var settingKinds = map[string]settingKind{
	"enabled":          kindBool,
	"autoQueue":        kindBool,
	"training.shuffle": kindBool,
	"mapType":          kindMapType,
	"delays.queue":     kindDelay,
	"delays.freeplay":  kindDelay,
	"delays.training":  kindDelay,
	"delays.workshop":  kindDelay,
	"current.freeplay": kindIndex,
	"current.training": kindIndex,
	"current.workshop": kindIndex,
	"logLevel":         kindLevel,

	"overlay.width":     kindOverlay,
	"overlay.height":    kindOverlay,
	"overlay.alpha":     kindOverlay,
	"overlay.duration":  kindOverlay,
	"overlay.blueHue":   kindOverlay,
	"overlay.orangeHue": kindOverlay,
}

// overlayRange bounds a numeric overlay setting. Durations are in seconds.
type overlayRange struct {
	min, max float64
	integer  bool
}

var overlayRanges = map[string]overlayRange{
	"overlay.width":     {400, 1600, true},
	"overlay.height":    {200, 800, true},
	"overlay.alpha":     {0, 1, false},
	"overlay.duration":  {5, 60, false},
	"overlay.blueHue":   {0, 360, false},
	"overlay.orangeHue": {0, 360, false},
}

// parseOverlay validates raw against the key's range and returns the value in
// the form config stores it.
func parseOverlay(key, raw string) (any, error) {
	r := overlayRanges[key]

	if key == "overlay.duration" {
		d, err := ParseDelay(raw)
		if err != nil {
			return nil, err
		}
		if d.Seconds() < r.min || d.Seconds() > r.max {
			return nil, fmt.Errorf("%s must be between %gs and %gs", key, r.min, r.max)
		}
		return d.String(), nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid value %q for %s", raw, key)
	}
	if v < r.min || v > r.max {
		return nil, fmt.Errorf("%s must be between %g and %g", key, r.min, r.max)
	}
	if r.integer {
		if v != float64(int(v)) {
			return nil, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	}
	return v, nil
}

// ParseDelay reads a delay as whole seconds ("20") or a Go duration ("1m30s").
// Negative delays are rejected.
func ParseDelay(s string) (time.Duration, error) {
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid delay %q", s)
		}
	}
	if d < 0 {
		return 0, fmt.Errorf("delay must not be negative: %s", s)
	}
	return d, nil
}

// SetSetting handles :SETTINGS:SET:|key|value and returns the updated
// settings.
func (s *Service) SetSetting(e dispatcher.Event) (any, error) {
	if len(e.Args) < 2 {
		return nil, fmt.Errorf("expected key and value, got %d args", len(e.Args))
	}
	key, raw := arg(e, 0), arg(e, 1)
	kind, ok := settingKinds[key]
	if !ok {
		return nil, fmt.Errorf("setting %q is not writable", key)
	}

	switch kind {
	case kindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s", raw, key)
		}
		if err := config.Set(key, v); err != nil {
			return nil, err
		}
		if key == "training.shuffle" && v {
			// Switching shuffle on with an empty bag shuffles the whole catalog.
			if _, err := s.deps.Manager.EnsureBag(); err != nil {
				s.log.Warn("Failed to fill shuffle bag", "error", err)
			}
		}

	case kindMapType:
		t, err := core.ParseMapType(raw)
		if err != nil {
			return nil, err
		}
		if err := config.Set(key, int(t)); err != nil {
			return nil, err
		}

	case kindDelay:
		d, err := ParseDelay(raw)
		if err != nil {
			return nil, err
		}
		if err := config.Set(key, d.String()); err != nil {
			return nil, err
		}

	case kindIndex:
		i, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", raw)
		}
		t, err := core.ParseMapType(strings.TrimPrefix(key, "current."))
		if err != nil {
			return nil, err
		}
		if _, err := s.deps.Manager.SetIndex(t, i); err != nil {
			return nil, err
		}
		s.persistIndices()

	case kindLevel:
		switch strings.ToUpper(raw) {
		case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		default:
			return nil, errors.New("log level must be DEBUG, INFO, WARN or ERROR")
		}
		if err := config.Set(key, strings.ToUpper(raw)); err != nil {
			return nil, err
		}

	case kindOverlay:
		v, err := parseOverlay(key, raw)
		if err != nil {
			return nil, err
		}
		if err := config.Set(key, v); err != nil {
			return nil, err
		}
	}

	s.save()
	s.publishSelection()
	return config.GetSettings(), nil
}
