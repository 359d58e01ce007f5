package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Pack{},
	&MapLoad{},
}

// Pack is one training pack from the pack database, keyed by its code.
type Pack struct {
	Code          string                      `json:"code" gorm:"primaryKey;size:32"`
	Name          string                      `json:"name" gorm:"size:255;index"`
	Creator       string                      `json:"creator" gorm:"size:127;index"`
	CreatorSlug   string                      `json:"creatorSlug" gorm:"size:127"`
	Difficulty    string                      `json:"difficulty" gorm:"size:32;index"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	ShotCount     int                         `json:"shotCount"`
	StaffComments string                      `json:"staffComments"`
	Notes         string                      `json:"notes"`
	VideoURL      string                      `json:"videoUrl" gorm:"size:255"`
	Likes         int                         `json:"likes"`
	Plays         int                         `json:"plays"`
	Status        int                         `json:"status" gorm:"default:1"`
	RunID         string                      `json:"runId" gorm:"size:36;index"` // import that last wrote this row
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func (*Pack) TableName() string {
	return "packs"
}

// MapLoad is one map load scheduled by the auto-loader.
type MapLoad struct {
	gorm.Model
	SessionID string        `json:"sessionId" gorm:"size:36;index"`
	MapType   string        `json:"mapType" gorm:"size:16;index"`
	Code      string        `json:"code" gorm:"size:255"`
	Name      string        `json:"name" gorm:"size:255"`
	Command   string        `json:"command" gorm:"size:512"`
	Delay     time.Duration `json:"delay"`
	Shuffled  bool          `json:"shuffled"`
	LoadedAt  time.Time     `json:"loadedAt" gorm:"index"`
}

func (*MapLoad) TableName() string {
	return "map_loads"
}
