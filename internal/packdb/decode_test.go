package packdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuiteSpot/extension/pkg/core"
)

func TestDecode_FullPack(t *testing.T) {
	doc := `{"packs": [{
		"code": "A503-264C-A7EB-D868",
		"name": "Ceiling Shots",
		"creator": "Wayprotein",
		"creatorSlug": "wayprotein",
		"difficulty": "Diamond",
		"shotCount": 10,
		"staffComments": "great",
		"notes": "n",
		"videoUrl": "https://example.com/v",
		"likes": 12,
		"plays": 340,
		"status": 2,
		"tags": ["ceiling", 5, "aerial", null]
	}]}`

	packs, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, core.TrainingEntry{
		Code:          "A503-264C-A7EB-D868",
		Name:          "Ceiling Shots",
		Creator:       "Wayprotein",
		CreatorSlug:   "wayprotein",
		Difficulty:    "Diamond",
		Tags:          []string{"ceiling", "aerial"},
		ShotCount:     10,
		StaffComments: "great",
		Notes:         "n",
		VideoURL:      "https://example.com/v",
		Likes:         12,
		Plays:         340,
		Status:        2,
	}, packs[0])
}

func TestDecode_DefaultsAndSkips(t *testing.T) {
	doc := `{"packs": [
		{"code": "A", "name": "minimal"},
		{"code": "B"},
		{"name": "no code"},
		{"code": "", "name": "empty code"},
		{"code": 7, "name": "numeric code"},
		"not an object",
		{"code": "C", "name": "wrong types", "shotCount": "ten", "likes": true, "tags": "solo", "creator": 3}
	]}`

	packs, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, packs, 2)

	assert.Equal(t, core.TrainingEntry{Code: "A", Name: "minimal", Status: 1}, packs[0])
	assert.Equal(t, core.TrainingEntry{Code: "C", Name: "wrong types", Status: 1}, packs[1])
}

func TestDecode_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{{{`},
		{"missing packs", `{"other": []}`},
		{"packs not array", `{"packs": {"code": "A"}}`},
		{"top level array", `[{"code": "A", "name": "a"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packs, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Empty(t, packs)
		})
	}
}

func TestDecode_EmptyPacks(t *testing.T) {
	packs, err := Decode(strings.NewReader(`{"packs": []}`))
	require.NoError(t, err)
	assert.Empty(t, packs)
}
