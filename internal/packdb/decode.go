// Package packdb loads the training pack database produced by the pack
// scraper and answers the pack browser's filter queries.
package packdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/SuiteSpot/extension/pkg/core"
)

// ErrInvalidFormat is returned when the document has no "packs" array.
var ErrInvalidFormat = errors.New("invalid pack database format: missing 'packs' array")

// Decode reads a pack database document. Packs without a code or name are
// skipped and fields of the wrong type are ignored.
func Decode(r io.Reader) ([]core.TrainingEntry, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding pack database: %w", err)
	}

	raw, ok := doc["packs"]
	if !ok {
		return nil, ErrInvalidFormat
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, ErrInvalidFormat
	}

	entries := make([]core.TrainingEntry, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		p := pack(fields)

		entry := core.TrainingEntry{
			Code:   p.str("code"),
			Name:   p.str("name"),
			Status: 1,
		}
		if entry.Code == "" || entry.Name == "" {
			continue
		}

		entry.Creator = p.str("creator")
		entry.CreatorSlug = p.str("creatorSlug")
		entry.Difficulty = p.str("difficulty")
		entry.StaffComments = p.str("staffComments")
		entry.Notes = p.str("notes")
		entry.VideoURL = p.str("videoUrl")
		entry.ShotCount = p.num("shotCount", 0)
		entry.Likes = p.num("likes", 0)
		entry.Plays = p.num("plays", 0)
		entry.Status = p.num("status", 1)
		entry.Tags = p.strings("tags")

		entries = append(entries, entry)
	}
	return entries, nil
}

type pack map[string]any

func (p pack) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p pack) num(key string, def int) int {
	f, ok := p[key].(float64)
	if !ok || math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(f)
}

func (p pack) strings(key string) []string {
	list, ok := p[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
