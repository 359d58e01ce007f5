package shuffle

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuiteSpot/extension/pkg/core"
)

const bagPath = "/data/SuiteTraining/SuiteShuffleBag.txt"

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewStore(fs, bagPath, slog.New(slog.NewTextHandler(io.Discard, nil))), fs
}

func catalogWith(codes map[int]string, size int) []core.TrainingEntry {
	catalog := make([]core.TrainingEntry, size)
	for i := range catalog {
		catalog[i] = core.TrainingEntry{Code: "FILL-" + string(rune('A'+i)), Name: "Filler"}
	}
	for i, code := range codes {
		catalog[i].Code = code
	}
	return catalog
}

func TestLoad_ResolvesIndices(t *testing.T) {
	s, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, bagPath, []byte("ABCD-1,PackOne\nEFGH-2,PackTwo"), 0644))
	catalog := catalogWith(map[int]string{3: "ABCD-1", 7: "EFGH-2"}, 10)

	bag, indices := s.Load(catalog)

	assert.Equal(t, []core.TrainingEntry{
		{Code: "ABCD-1", Name: "PackOne"},
		{Code: "EFGH-2", Name: "PackTwo"},
	}, bag)
	assert.Equal(t, []int{3, 7}, indices)
}

func TestLoad_KeepsOrphansAndSkipsJunk(t *testing.T) {
	s, fs := newTestStore(t)
	content := "GONE-1,Deleted Pack\n\nno comma\n,no code\nABCD-1, Name, with comma \n"
	require.NoError(t, afero.WriteFile(fs, bagPath, []byte(content), 0644))
	catalog := catalogWith(map[int]string{1: "ABCD-1"}, 2)

	bag, indices := s.Load(catalog)

	require.Len(t, bag, 2)
	assert.Equal(t, "GONE-1", bag[0].Code)
	assert.Equal(t, "Name, with comma", bag[1].Name, "split happens at the first comma only")
	assert.Equal(t, []int{1}, indices)
}

func TestLoad_MissingFile(t *testing.T) {
	s, _ := newTestStore(t)
	bag, indices := s.Load(nil)
	assert.Empty(t, bag)
	assert.Empty(t, indices)
}

func TestSave_VerbatimOrder(t *testing.T) {
	s, fs := newTestStore(t)
	require.NoError(t, afero.WriteFile(fs, bagPath, []byte("OLD,old\nOLD2,old2\nOLD3,old3\n"), 0644))

	bag := []core.TrainingEntry{
		{Code: "Z", Name: "zulu", ShotCount: 9},
		{Code: "A", Name: "alpha"},
	}
	require.NoError(t, s.Save(bag))

	data, err := afero.ReadFile(fs, bagPath)
	require.NoError(t, err)
	assert.Equal(t, "Z,zulu\nA,alpha\n", string(data))

	loaded, _ := s.Load(nil)
	assert.Equal(t, []core.TrainingEntry{{Code: "Z", Name: "zulu"}, {Code: "A", Name: "alpha"}}, loaded)
}

func TestIndices(t *testing.T) {
	catalog := catalogWith(map[int]string{0: "A", 2: "B", 4: "C"}, 5)

	tests := []struct {
		name string
		bag  []core.TrainingEntry
		want []int
	}{
		{"empty bag", nil, nil},
		{"ascending regardless of bag order", []core.TrainingEntry{{Code: "C"}, {Code: "A"}}, []int{0, 4}},
		{"duplicates collapse", []core.TrainingEntry{{Code: "B"}, {Code: "B"}}, []int{2}},
		{"orphans ignored", []core.TrainingEntry{{Code: "X"}, {Code: "B"}}, []int{2}},
		{"all orphans", []core.TrainingEntry{{Code: "X"}}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Indices(tt.bag, catalog))
		})
	}
}

func TestIndices_FollowCatalogReload(t *testing.T) {
	bag := []core.TrainingEntry{{Code: "B"}}
	before := catalogWith(map[int]string{1: "B"}, 3)
	after := catalogWith(map[int]string{2: "B"}, 3)

	assert.Equal(t, []int{1}, Indices(bag, before))
	assert.Equal(t, []int{2}, Indices(bag, after))
}

func TestPickNext_EmptyBag(t *testing.T) {
	sel := NewSelector(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, sel.PickNext(nil, catalogWith(nil, 5)))
	}
}

func TestPickNext_Orphan(t *testing.T) {
	sel := NewSelector(rand.NewSource(1))
	bag := []core.TrainingEntry{{Code: "NOT-IN-CATALOG"}}
	assert.Equal(t, 0, sel.PickNext(bag, catalogWith(nil, 5)))
}

func TestPickNext_MapsBackToCatalog(t *testing.T) {
	sel := NewSelector(rand.NewSource(42))
	catalog := catalogWith(map[int]string{3: "ABCD-1", 7: "EFGH-2"}, 10)
	bag := []core.TrainingEntry{{Code: "ABCD-1"}, {Code: "EFGH-2"}}

	for i := 0; i < 50; i++ {
		assert.Contains(t, []int{3, 7}, sel.PickNext(bag, catalog))
	}
}

func TestPickNext_Uniform(t *testing.T) {
	const (
		size  = 5
		draws = 50000
	)
	catalog := catalogWith(map[int]string{0: "A", 1: "B", 2: "C", 3: "D", 4: "E"}, size)
	sel := NewSelector(rand.NewSource(7))

	counts := make([]int, size)
	for i := 0; i < draws; i++ {
		counts[sel.PickNext(catalog, catalog)]++
	}

	expected := draws / size
	for i, c := range counts {
		assert.InDelta(t, expected, c, float64(expected)*0.1, "index %d drawn %d times", i, c)
	}
}

func TestSelector_Deterministic(t *testing.T) {
	catalog := catalogWith(map[int]string{0: "A", 1: "B", 2: "C"}, 3)
	a := NewSelector(rand.NewSource(99))
	b := NewSelector(rand.NewSource(99))

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.PickNext(catalog, catalog), b.PickNext(catalog, catalog))
	}
}

func TestDraw(t *testing.T) {
	sel := NewSelector(nil)

	_, ok := sel.Draw(nil)
	assert.False(t, ok)

	entry, ok := sel.Draw([]core.TrainingEntry{{Code: "ONLY"}})
	require.True(t, ok)
	assert.Equal(t, "ONLY", entry.Code)
}
