package workshop

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SuiteSpot/extension/pkg/core"
)

func newTestDiscoverer(t *testing.T) (*Discoverer, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewDiscoverer(fs, slog.New(slog.NewTextHandler(io.Discard, nil))), fs
}

func touch(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte("x"), 0644))
}

func TestDiscover_OneEntryPerFolder(t *testing.T) {
	d, fs := newTestDiscoverer(t)
	touch(t, fs, "/mods/Obstacle Course/course.upk")
	touch(t, fs, "/mods/Obstacle Course/readme.txt")
	touch(t, fs, "/mods/dribble/Dribble.upk")
	touch(t, fs, "/mods/empty/notes.txt")
	touch(t, fs, "/mods/nested/deeper/hidden.upk")
	touch(t, fs, "/mods/loose.upk")

	entries := d.Discover([]string{"/mods"})

	assert.Equal(t, []core.WorkshopEntry{
		{FilePath: "/mods/dribble/Dribble.upk", Name: "dribble"},
		{FilePath: "/mods/Obstacle Course/course.upk", Name: "Obstacle Course"},
	}, entries)
}

func TestDiscover_FirstMapFileOnly(t *testing.T) {
	d, fs := newTestDiscoverer(t)
	touch(t, fs, "/mods/pack/a.upk")
	touch(t, fs, "/mods/pack/b.upk")

	entries := d.Discover([]string{"/mods"})

	// Enumeration order decides which file wins; only the count is fixed.
	require.Len(t, entries, 1)
	assert.Equal(t, "pack", entries[0].Name)
}

func TestDiscover_ExtensionIsExact(t *testing.T) {
	d, fs := newTestDiscoverer(t)
	touch(t, fs, "/mods/upper/MAP.UPK")
	touch(t, fs, "/mods/suffix/map.upk.bak")

	assert.Empty(t, d.Discover([]string{"/mods"}))
}

func TestDiscover_DedupesAcrossRoots(t *testing.T) {
	d, fs := newTestDiscoverer(t)
	touch(t, fs, "/mods/alpha/alpha.upk")
	touch(t, fs, "/other/alpha/alpha.upk")

	entries := d.Discover([]string{"/mods", "/mods", "/other", "/missing"})

	require.Len(t, entries, 2)
	assert.Equal(t, "/mods/alpha/alpha.upk", entries[0].FilePath, "equal names tie-break by path")
	assert.Equal(t, "/other/alpha/alpha.upk", entries[1].FilePath)

	paths := map[string]bool{}
	for _, e := range entries {
		assert.False(t, paths[e.FilePath], "duplicate path %s", e.FilePath)
		paths[e.FilePath] = true
	}
}

func TestDiscover_NoRoots(t *testing.T) {
	d, _ := newTestDiscoverer(t)
	assert.Empty(t, d.Discover(nil))
}

func TestSortEntries(t *testing.T) {
	entries := []core.WorkshopEntry{
		{FilePath: "/b/x.upk", Name: "beta"},
		{FilePath: "/z/x.upk", Name: "Alpha"},
		{FilePath: "/a/x.upk", Name: "alpha"},
	}

	SortEntries(entries)

	assert.Equal(t, []string{"/a/x.upk", "/z/x.upk", "/b/x.upk"}, []string{
		entries[0].FilePath, entries[1].FilePath, entries[2].FilePath,
	})
}

func TestRoots(t *testing.T) {
	assert.Equal(t, []string{"/cfg", "/a", "/b"}, Roots("/cfg", []string{"/a", "", "/b"}))
	assert.Equal(t, DefaultFallbackRoots, Roots("", DefaultFallbackRoots))
	assert.Empty(t, Roots("", nil))
}

func TestResolveConfiguredRoot(t *testing.T) {
	t.Setenv("SUITESPOT_TEST_MODS", "/custom")
	t.Setenv("USERPROFILE", "/home/player")

	tests := []struct {
		name   string
		config string
		want   string
	}{
		{
			name:   "plain value",
			config: "MapsFolderPath=/custom/maps\n",
			want:   "/custom/maps",
		},
		{
			name:   "quoted with spaces",
			config: "  MapsFolderPath = \"/custom/maps\"  \n",
			want:   "/custom/maps",
		},
		{
			name:   "env expansion",
			config: "MapsFolderPath=%SUITESPOT_TEST_MODS%/maps\n",
			want:   "/custom/maps",
		},
		{
			name:   "home expansion",
			config: "MapsFolderPath=~/workshop\n",
			want:   "/home/player/workshop",
		},
		{
			name:   "comments and blanks skipped",
			config: "# MapsFolderPath=/home/player/workshop\n\nOther=1\nMapsFolderPath=/custom/maps\n",
			want:   "/custom/maps",
		},
		{
			name:   "missing candidate falls through to next",
			config: "MapsFolderPath=/nope\nMapsFolderPath=/home/player/workshop\n",
			want:   "/home/player/workshop",
		},
		{
			name:   "file is not a directory",
			config: "MapsFolderPath=/custom/file.txt\n",
			want:   "",
		},
		{
			name:   "no equals sign",
			config: "MapsFolderPath /custom/maps\n",
			want:   "",
		},
		{
			name:   "empty value",
			config: "MapsFolderPath=\"\"\n",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, fs := newTestDiscoverer(t)
			require.NoError(t, fs.MkdirAll("/custom/maps", 0755))
			require.NoError(t, fs.MkdirAll("/home/player/workshop", 0755))
			touch(t, fs, "/custom/file.txt")
			touch(t, fs, "/cfg/workshopmaploader.cfg")
			require.NoError(t, afero.WriteFile(fs, "/cfg/workshopmaploader.cfg", []byte(tt.config), 0644))

			assert.Equal(t, tt.want, d.ResolveConfiguredRoot("/cfg/workshopmaploader.cfg"))
		})
	}
}

func TestResolveConfiguredRoot_MissingConfig(t *testing.T) {
	d, _ := newTestDiscoverer(t)
	assert.Equal(t, "", d.ResolveConfiguredRoot("/cfg/absent.cfg"))
}
