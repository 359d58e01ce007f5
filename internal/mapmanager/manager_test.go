package mapmanager

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuiteSpot/extension/internal/paths"
	"github.com/SuiteSpot/extension/pkg/core"
)

const (
	trainingFile = "/data/SuiteTraining/SuiteSpotTrainingMaps.txt"
	bagFile      = "/data/SuiteTraining/SuiteShuffleBag.txt"
)

func newTestManager(t *testing.T) (*Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	m := New(Options{
		Fs:            fs,
		Layout:        paths.NewLayout("/data"),
		FallbackRoots: []string{"/mods"},
		Source:        rand.NewSource(1),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return m, fs
}

func write(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func read(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestLoadTraining_ClampsIndex(t *testing.T) {
	m, fs := newTestManager(t)
	m.SetIndices(Indices{Training: 10, Workshop: -3})

	m.LoadTraining()
	assert.Equal(t, 0, m.Indices().Training, "empty catalog forces 0")

	write(t, fs, trainingFile, "A,a,Shots:1\nB,b,Shots:1\nC,c,Shots:1\n")
	m.SetIndices(Indices{Training: 10})
	m.LoadTraining()

	assert.Equal(t, 2, m.Indices().Training)
	assert.Equal(t, 0, m.Indices().Workshop)
}

func TestLoadTraining_KeepsSelectionByCode(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "B,bravo,Shots:1\nC,charlie,Shots:1\n")
	m.LoadTraining()
	_, err := m.SetIndex(core.MapTypeTraining, 1)
	require.NoError(t, err)

	write(t, fs, trainingFile, "A,alpha,Shots:1\nB,bravo,Shots:1\nC,charlie,Shots:1\n")
	m.LoadTraining()

	current, ok := m.CurrentTraining()
	require.True(t, ok)
	assert.Equal(t, "C", current.Code)
	assert.Equal(t, 2, m.Indices().Training)
}

func TestLoadTraining_LegacyUpgrade(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "5A21-0000-0000-0001,Wall Reads (10)\n")

	report := m.LoadTraining()

	assert.True(t, report.Upgraded)
	assert.Equal(t, "5A21-0000-0000-0001,Wall Reads,Shots:10\n", read(t, fs, trainingFile))
}

func TestAddTraining(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "B,bravo,Shots:1\nD,delta,Shots:1\n")
	m.LoadTraining()

	idx, err := m.AddTraining(" C ", "charlie", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 1, m.Indices().Training)
	assert.Equal(t, "B,bravo,Shots:1\nC,charlie,Shots:4\nD,delta,Shots:1\n", read(t, fs, trainingFile))

	idx, err = m.AddTraining("C", "aardvark", -1)
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "re-adding a code replaces and re-sorts")
	assert.Len(t, m.Training(), 3)
	assert.Equal(t, 0, m.Training()[0].ShotCount)

	_, err = m.AddTraining("", "x", 1)
	assert.ErrorIs(t, err, ErrInvalidEntry)
	_, err = m.AddTraining("X", "  ", 1)
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestRemoveTraining(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "A,a,Shots:1\nB,b,Shots:1\nC,c,Shots:1\n")
	write(t, fs, bagFile, "A,a\n")
	m.LoadTraining()
	m.LoadShuffleBag()
	_, err := m.SetIndex(core.MapTypeTraining, 2)
	require.NoError(t, err)

	require.NoError(t, m.RemoveTraining("A"))

	assert.Equal(t, "B,b,Shots:1\nC,c,Shots:1\n", read(t, fs, trainingFile))
	current, _ := m.CurrentTraining()
	assert.Equal(t, "C", current.Code, "selection follows the pack")
	assert.Len(t, m.Bag(), 1, "bag keeps the orphan")
	assert.Empty(t, m.SelectedIndices())

	assert.ErrorIs(t, m.RemoveTraining("A"), ErrNotFound)
}

func TestAddTraining_RejectsFieldBreakers(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "B,bravo,Shots:1\n")
	m.LoadTraining()

	for _, tc := range []struct{ code, name string }{
		{"AAAA-1", "Reads, Part 2"},
		{"AAAA-1", "Reads\nPart 2"},
		{"AAAA-1", "Reads\r"},
		{"AA,AA-1", "Reads"},
	} {
		_, err := m.AddTraining(tc.code, tc.name, 12)
		assert.ErrorIs(t, err, ErrInvalidEntry, "%q %q", tc.code, tc.name)
	}

	assert.Len(t, m.Training(), 1)
	assert.Equal(t, "B,bravo,Shots:1\n", read(t, fs, trainingFile))
}

func newReadOnlyManager(t *testing.T, base afero.Fs) *Manager {
	t.Helper()
	return New(Options{
		Fs:     afero.NewReadOnlyFs(base),
		Layout: paths.NewLayout("/data"),
		Source: rand.NewSource(1),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestAddTraining_SaveFailureKeepsCatalog(t *testing.T) {
	base := afero.NewMemMapFs()
	write(t, base, trainingFile, "B,bravo,Shots:1\nD,delta,Shots:1\n")
	m := newReadOnlyManager(t, base)
	m.LoadTraining()
	_, err := m.SetIndex(core.MapTypeTraining, 1)
	require.NoError(t, err)

	_, err = m.AddTraining("C", "charlie", 4)
	require.Error(t, err)

	assert.Equal(t, []string{"B", "D"}, codes(m.Training()))
	assert.Equal(t, 1, m.Indices().Training)
	assert.Equal(t, "B,bravo,Shots:1\nD,delta,Shots:1\n", read(t, base, trainingFile))
}

func TestRemoveTraining_SaveFailureKeepsCatalog(t *testing.T) {
	base := afero.NewMemMapFs()
	write(t, base, trainingFile, "A,a,Shots:1\nB,b,Shots:1\n")
	m := newReadOnlyManager(t, base)
	m.LoadTraining()
	_, err := m.SetIndex(core.MapTypeTraining, 1)
	require.NoError(t, err)

	require.Error(t, m.RemoveTraining("A"))

	assert.Equal(t, []string{"A", "B"}, codes(m.Training()))
	current, _ := m.CurrentTraining()
	assert.Equal(t, "B", current.Code)
}

func codes(entries []core.TrainingEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Code)
	}
	return out
}

func TestShuffleBag_LoadAndDerive(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "ABCD-1,PackOne,Shots:1\nEFGH-2,PackTwo,Shots:1\nZZZZ-9,Another,Shots:1\n")
	write(t, fs, bagFile, "ABCD-1,PackOne\nEFGH-2,PackTwo\n")
	m.LoadTraining()

	indices := m.LoadShuffleBag()

	assert.Equal(t, []int{1, 2}, indices)
	assert.Equal(t, indices, m.SelectedIndices())

	// Reloading the catalog in a different order keeps the bag consistent.
	write(t, fs, trainingFile, "ZZZZ-9,zzz,Shots:1\nEFGH-2,PackTwo,Shots:1\nABCD-1,PackOne,Shots:1\n")
	m.LoadTraining()
	assert.Equal(t, []int{0, 1}, m.SelectedIndices())
}

func TestShuffleBag_AddRemove(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, trainingFile, "A,a,Shots:1\nB,b,Shots:1\n")
	m.LoadTraining()

	require.NoError(t, m.AddToBag("B"))
	require.NoError(t, m.AddToBag("B"))
	require.NoError(t, m.AddToBag("A"))
	assert.Equal(t, "B,b\nA,a\n", read(t, fs, bagFile))
	assert.ErrorIs(t, m.AddToBag("NOPE"), ErrNotFound)

	require.NoError(t, m.RemoveFromBag("B"))
	assert.Equal(t, "A,a\n", read(t, fs, bagFile))
	assert.ErrorIs(t, m.RemoveFromBag("B"), ErrNotFound)
}

func TestToggleAllInBag(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.AddTraining("A", "a", 1)
	require.NoError(t, err)
	_, err = m.AddTraining("B", "b", 1)
	require.NoError(t, err)
	require.NoError(t, m.AddToBag("A"))

	n, err := m.ToggleAllInBag()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.ToggleAllInBag()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEnsureBag(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.AddTraining("A", "a", 1)
	require.NoError(t, err)
	_, err = m.AddTraining("B", "b", 1)
	require.NoError(t, err)

	n, err := m.EnsureBag()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.RemoveFromBag("A"))
	n, err = m.EnsureBag()
	require.NoError(t, err)
	assert.Equal(t, 1, n, "non-empty bag is left alone")
}

func TestPickNext(t *testing.T) {
	m, fs := newTestManager(t)
	assert.Equal(t, 0, m.PickNext(), "empty bag")

	write(t, fs, trainingFile, "A,a,Shots:1\nB,b,Shots:1\nC,c,Shots:1\n")
	write(t, fs, bagFile, "C,c\n")
	m.LoadTraining()
	m.LoadShuffleBag()

	for i := 0; i < 10; i++ {
		assert.Equal(t, 2, m.PickNext())
	}

	entry, ok := m.DrawFromBag()
	require.True(t, ok)
	assert.Equal(t, "C", entry.Code)
}

func TestLoadWorkshop(t *testing.T) {
	m, fs := newTestManager(t)
	write(t, fs, "/mods/Zeta/z.upk", "x")
	write(t, fs, "/custom/alpha/a.upk", "x")
	write(t, fs, "/data/WorkshopMapLoader/workshopmaploader.cfg", "MapsFolderPath=/custom\n")
	m.SetIndices(Indices{Workshop: 9})

	n := m.LoadWorkshop()

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, m.Indices().Workshop)
	current, ok := m.CurrentWorkshop()
	require.True(t, ok)
	assert.Equal(t, "/mods/Zeta/z.upk", current.FilePath)
}

func TestSetIndex(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.AddTraining("A", "a", 1)
	require.NoError(t, err)

	got, err := m.SetIndex(core.MapTypeTraining, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, got)

	got, err = m.SetIndex(core.MapTypeFreeplay, 500)
	require.NoError(t, err)
	assert.Equal(t, 500, got)
	_, ok := m.CurrentFreeplay()
	assert.False(t, ok, "freeplay index is not clamped")

	_, err = m.SetIndex(core.MapTypeFreeplay, 0)
	require.NoError(t, err)
	arena, ok := m.CurrentFreeplay()
	require.True(t, ok)
	assert.Equal(t, core.FreeplayMaps[0], arena)

	_, err = m.SetIndex(core.MapType(9), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshot_IsACopy(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.AddTraining("A", "a", 1)
	require.NoError(t, err)
	require.NoError(t, m.AddToBag("A"))

	snap := m.Snapshot()
	snap.Training[0].Name = "mutated"

	assert.Equal(t, "a", m.Training()[0].Name)
	assert.Equal(t, []int{0}, snap.Selected)
	_, ok := m.CurrentWorkshop()
	assert.False(t, ok)
}
