// pkg/core/maps.go
package core

import (
	"fmt"
	"strings"
)

// MapType selects which catalog the auto-loader draws from.
type MapType int

const (
	MapTypeFreeplay MapType = iota
	MapTypeTraining
	MapTypeWorkshop
)

func (t MapType) String() string {
	switch t {
	case MapTypeFreeplay:
		return "freeplay"
	case MapTypeTraining:
		return "training"
	case MapTypeWorkshop:
		return "workshop"
	default:
		return "unknown"
	}
}

// ParseMapType accepts a map type name ("freeplay", "training", "workshop")
// or its numeric value.
func ParseMapType(s string) (MapType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "freeplay", "0":
		return MapTypeFreeplay, nil
	case "training", "1":
		return MapTypeTraining, nil
	case "workshop", "2":
		return MapTypeWorkshop, nil
	default:
		return MapTypeFreeplay, fmt.Errorf("unknown map type %q", s)
	}
}

// MarshalText encodes the map type by name.
func (t MapType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *MapType) UnmarshalText(b []byte) error {
	v, err := ParseMapType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MapEntry is a built-in freeplay arena
type MapEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TrainingEntry is a custom training pack. Code is the identity key.
type TrainingEntry struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Creator       string   `json:"creator,omitempty"`
	CreatorSlug   string   `json:"creatorSlug,omitempty"`
	Difficulty    string   `json:"difficulty,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	ShotCount     int      `json:"shotCount"`
	StaffComments string   `json:"staffComments,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	VideoURL      string   `json:"videoUrl,omitempty"`
	Likes         int      `json:"likes,omitempty"`
	Plays         int      `json:"plays,omitempty"`
	Status        int      `json:"status,omitempty"`
}

// WorkshopEntry is a discovered workshop map. FilePath is the identity key.
type WorkshopEntry struct {
	FilePath string `json:"filePath"`
	Name     string `json:"name"`
}

// ClampIndex clamps i into [0, n-1]. An empty list always yields 0.
func ClampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// IndexOfCode returns the position of the entry with the given code, or -1.
func IndexOfCode(entries []TrainingEntry, code string) int {
	for i, e := range entries {
		if e.Code == code {
			return i
		}
	}
	return -1
}
