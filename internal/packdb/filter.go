package packdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SuiteSpot/extension/pkg/core"
)

const (
	// AllTags is the first entry of AvailableTags and means no tag filter.
	AllTags = "All Tags"
	// AllDifficulties means no difficulty filter.
	AllDifficulties = "All"
)

// SortField selects the column packs are ordered by.
type SortField int

const (
	SortByName SortField = iota
	SortByCreator
	SortByDifficulty
	SortByShots
	SortByLikes
	SortByPlays
)

var sortFieldNames = map[string]SortField{
	"name":       SortByName,
	"creator":    SortByCreator,
	"difficulty": SortByDifficulty,
	"shots":      SortByShots,
	"likes":      SortByLikes,
	"plays":      SortByPlays,
}

// ParseSortField accepts a column name; empty means name.
func ParseSortField(s string) (SortField, error) {
	if s == "" {
		return SortByName, nil
	}
	f, ok := sortFieldNames[strings.ToLower(s)]
	if !ok {
		return SortByName, fmt.Errorf("unknown sort field %q", s)
	}
	return f, nil
}

// FilterOptions narrows and orders the pack list.
type FilterOptions struct {
	Search     string    `json:"search"`
	Difficulty string    `json:"difficulty"`
	Tag        string    `json:"tag"`
	MinShots   int       `json:"minShots"`
	SortBy     SortField `json:"sortBy"`
	Ascending  bool      `json:"ascending"`
}

// Filter returns the packs matching opts. The search text is matched,
// ignoring case, against name, creator and tags.
func Filter(packs []core.TrainingEntry, opts FilterOptions) []core.TrainingEntry {
	search := strings.ToLower(opts.Search)
	tag := opts.Tag
	if tag == AllTags {
		tag = ""
	}
	difficulty := opts.Difficulty
	if difficulty == AllDifficulties {
		difficulty = ""
	}

	out := make([]core.TrainingEntry, 0, len(packs))
	for _, p := range packs {
		if search != "" && !matchesSearch(p, search) {
			continue
		}
		if difficulty != "" && p.Difficulty != difficulty {
			continue
		}
		if tag != "" && !hasTag(p, tag) {
			continue
		}
		if p.ShotCount < opts.MinShots {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], opts.SortBy)
		if opts.Ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}

func matchesSearch(p core.TrainingEntry, search string) bool {
	if strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Creator), search) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), search) {
			return true
		}
	}
	return false
}

func hasTag(p core.TrainingEntry, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func compare(a, b core.TrainingEntry, field SortField) int {
	switch field {
	case SortByCreator:
		return strings.Compare(a.Creator, b.Creator)
	case SortByDifficulty:
		return strings.Compare(a.Difficulty, b.Difficulty)
	case SortByShots:
		return a.ShotCount - b.ShotCount
	case SortByLikes:
		return a.Likes - b.Likes
	case SortByPlays:
		return a.Plays - b.Plays
	default:
		return strings.Compare(a.Name, b.Name)
	}
}

// AvailableTags returns AllTags followed by every distinct tag, sorted.
func AvailableTags(packs []core.TrainingEntry) []string {
	unique := make(map[string]struct{})
	for _, p := range packs {
		for _, t := range p.Tags {
			unique[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(unique))
	for t := range unique {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return append([]string{AllTags}, tags...)
}
