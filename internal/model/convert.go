package model

import (
	"slices"

	"gorm.io/datatypes"

	"github.com/SuiteSpot/extension/pkg/core"
)

// PackFromCore converts a training entry to its database row.
func PackFromCore(e core.TrainingEntry, runID string) Pack {
	return Pack{
		Code:          e.Code,
		Name:          e.Name,
		Creator:       e.Creator,
		CreatorSlug:   e.CreatorSlug,
		Difficulty:    e.Difficulty,
		Tags:          datatypes.NewJSONSlice(slices.Clone(e.Tags)),
		ShotCount:     e.ShotCount,
		StaffComments: e.StaffComments,
		Notes:         e.Notes,
		VideoURL:      e.VideoURL,
		Likes:         e.Likes,
		Plays:         e.Plays,
		Status:        e.Status,
		RunID:         runID,
	}
}

// PackToCore converts a database row back to a training entry.
func PackToCore(p Pack) core.TrainingEntry {
	var tags []string
	if len(p.Tags) > 0 {
		tags = slices.Clone([]string(p.Tags))
	}
	return core.TrainingEntry{
		Code:          p.Code,
		Name:          p.Name,
		Creator:       p.Creator,
		CreatorSlug:   p.CreatorSlug,
		Difficulty:    p.Difficulty,
		Tags:          tags,
		ShotCount:     p.ShotCount,
		StaffComments: p.StaffComments,
		Notes:         p.Notes,
		VideoURL:      p.VideoURL,
		Likes:         p.Likes,
		Plays:         p.Plays,
		Status:        p.Status,
	}
}

// MapLoadFromCore converts a map load event to its database row.
func MapLoadFromCore(ev core.MapLoadEvent, sessionID string) MapLoad {
	return MapLoad{
		SessionID: sessionID,
		MapType:   ev.Type.String(),
		Code:      ev.Code,
		Name:      ev.Name,
		Command:   ev.Command,
		Delay:     ev.Delay,
		Shuffled:  ev.Shuffled,
		LoadedAt:  ev.Time,
	}
}

// MapLoadToCore converts a stored map load back to an event.
func MapLoadToCore(m MapLoad) core.MapLoadEvent {
	t, _ := core.ParseMapType(m.MapType)
	return core.MapLoadEvent{
		Type:     t,
		Code:     m.Code,
		Name:     m.Name,
		Command:  m.Command,
		Delay:    m.Delay,
		Shuffled: m.Shuffled,
		Time:     m.LoadedAt,
	}
}
