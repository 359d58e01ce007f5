package gormstorage

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SuiteSpot/extension/pkg/core"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection so every query sees the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	b := New(Dependencies{DB: db, SessionID: "session-1", Logger: zerolog.Nop()})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{Logger: zerolog.Nop()})
	require.Error(t, b.Init())
	require.NoError(t, b.Close())
}

func TestReplacePacks(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.ReplacePacks("run-1", []core.TrainingEntry{
		{Code: "OLD", Name: "old"},
	}))
	require.NoError(t, b.ReplacePacks("run-2", []core.TrainingEntry{
		{Code: "B", Name: "bravo", Tags: []string{"air"}, Status: 1},
		{Code: "A", Name: "Alpha", Difficulty: "Gold", ShotCount: 8, Status: 1},
		{Code: "A", Name: "duplicate code dropped"},
	}))

	packs, err := b.Packs()
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "Alpha", packs[0].Name)
	assert.Equal(t, 8, packs[0].ShotCount)
	assert.Equal(t, []string{"air"}, packs[1].Tags)

	_, err = b.FindPack("OLD")
	assert.ErrorIs(t, err, core.ErrPackNotFound)
}

func TestReplacePacks_Empty(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.ReplacePacks("run-1", []core.TrainingEntry{{Code: "A", Name: "a"}}))
	require.NoError(t, b.ReplacePacks("run-2", nil))

	packs, err := b.Packs()
	require.NoError(t, err)
	assert.Empty(t, packs)
}

func TestFindPack(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.ReplacePacks("run-1", []core.TrainingEntry{
		{Code: "A503-264C-A7EB-D868", Name: "Ceiling Shots", Creator: "Wayprotein", Tags: []string{"ceiling"}},
	}))

	got, err := b.FindPack("A503-264C-A7EB-D868")
	require.NoError(t, err)
	assert.Equal(t, "Wayprotein", got.Creator)
	assert.Equal(t, []string{"ceiling"}, got.Tags)
}

func TestMapLoads(t *testing.T) {
	b := newTestBackend(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, code := range []string{"first", "second", "third"} {
		require.NoError(t, b.RecordMapLoad(core.MapLoadEvent{
			Type:  core.MapTypeTraining,
			Code:  code,
			Delay: time.Second,
			Time:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	recent, err := b.RecentLoads(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Code)
	assert.Equal(t, "second", recent[1].Code)
	assert.Equal(t, core.MapTypeTraining, recent[0].Type)
	assert.Equal(t, time.Second, recent[0].Delay)

	all, err := b.RecentLoads(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
