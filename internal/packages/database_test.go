package packages

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrefix(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// Layouts
// =============================================================================

func TestDatabase_DirectoryLayout(t *testing.T) {
	t.Parallel()
	prefix := newTestPrefix(t)
	dir := filepath.Join(prefix, "share", "ECM", "cmake")
	version := writeFile(t, filepath.Join(dir, "ECMConfigVersion.cmake"), `set(PACKAGE_VERSION "6.5.0")`)
	config := writeFile(t, filepath.Join(dir, "ECMConfig.cmake"), "")
	writeFile(t, filepath.Join(prefix, "share", "NoConfig", "cmake", "helpers.cmake"), "")

	db := New([]Prefix{{Path: prefix}})
	rec, ok := db.Lookup("ECM")
	require.True(t, ok)
	assert.Equal(t, Directory, rec.Kind)
	assert.Equal(t, dir, rec.Location)
	assert.Equal(t, ptr("6.5.0"), rec.Version)
	assert.Equal(t, []string{config, version}, rec.JumpTargets)
	assert.Equal(t, config, rec.ConfigFile())
	assert.Equal(t, System, rec.Origin)

	_, ok = db.Lookup("NoConfig")
	assert.False(t, ok, "a directory without a config file is not a package")
}

func TestDatabase_FlatLayout(t *testing.T) {
	t.Parallel()
	prefix := newTestPrefix(t)
	qt := filepath.Join(prefix, "lib", "x86_64-linux-gnu", "cmake", "Qt5Core")
	cfg := writeFile(t, filepath.Join(qt, "Qt5CoreConfig.cmake"), "")
	writeFile(t, filepath.Join(qt, "Qt5CoreConfigExtras.cmake"), "")
	writeFile(t, filepath.Join(qt, "Qt5CoreConfigVersion.cmake"), "SET(PACKAGE_VERSION 5.15.6)\n")
	writeFile(t, filepath.Join(prefix, "lib", "cmake", "boost_system-1.83.0", "boost_system-config.cmake"), "")
	single := writeFile(t, filepath.Join(prefix, "share", "cmake", "FooConfig.cmake"), "")
	writeFile(t, filepath.Join(prefix, "lib64", "cmake", "README"), "")

	db := New([]Prefix{{Path: prefix}})

	rec, ok := db.Lookup("Qt5Core")
	require.True(t, ok)
	assert.Equal(t, Directory, rec.Kind)
	assert.Equal(t, ptr("5.15.6"), rec.Version)
	assert.Equal(t, cfg, rec.ConfigFile())
	assert.Len(t, rec.JumpTargets, 3)

	rec, ok = db.Lookup("boost_system")
	require.True(t, ok)
	assert.Equal(t, ptr("1.83.0"), rec.Version)

	rec, ok = db.Lookup("Foo")
	require.True(t, ok)
	assert.Equal(t, File, rec.Kind)
	assert.Equal(t, []string{single}, rec.JumpTargets)
	assert.Nil(t, rec.Version)

	assert.Equal(t, []string{"Foo", "Qt5Core", "boost_system"}, db.Names())
}

// =============================================================================
// Priority and overlay
// =============================================================================

func TestDatabase_FirstPrefixWins(t *testing.T) {
	t.Parallel()
	first := newTestPrefix(t)
	second := newTestPrefix(t)
	writeFile(t, filepath.Join(first, "lib", "cmake", "Zlib", "ZlibConfig.cmake"), "")
	writeFile(t, filepath.Join(second, "lib", "cmake", "Zlib", "ZlibConfig.cmake"), "")

	db := New([]Prefix{{Path: first}, {Path: second}})
	rec, ok := db.Lookup("Zlib")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(first, "lib", "cmake", "Zlib"), rec.Location)
	assert.Equal(t, 1, db.Len())
}

func TestPrefixes_VcpkgOverlay(t *testing.T) {
	t.Parallel()
	root := newTestPrefix(t)
	writeFile(t, filepath.Join(root, "vcpkg.json"), "{}")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vcpkg_installed", "x64-linux"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vcpkg_installed", "vcpkg"), 0o755))

	got := Prefixes([]string{"/usr"}, root)
	assert.Equal(t, []Prefix{
		{Path: "/usr", Origin: System},
		{Path: filepath.Join(root, "vcpkg_installed", "x64-linux"), Origin: Overlay},
	}, got)

	plain := newTestPrefix(t)
	assert.Equal(t, []Prefix{{Path: "/usr", Origin: System}}, Prefixes([]string{"/usr"}, plain))
}

func TestDatabase_OverlayPackages(t *testing.T) {
	t.Parallel()
	root := newTestPrefix(t)
	writeFile(t, filepath.Join(root, "vcpkg.json"), "{}")
	triplet := filepath.Join(root, "vcpkg_installed", "x64-linux")
	writeFile(t, filepath.Join(triplet, "share", "fmt", "cmake", "fmt-config.cmake"), "")

	db := New(Prefixes(nil, root))
	rec, ok := db.Lookup("fmt")
	require.True(t, ok)
	assert.Equal(t, Overlay, rec.Origin)
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestDatabase_BuiltOnce(t *testing.T) {
	t.Parallel()
	prefix := newTestPrefix(t)
	writeFile(t, filepath.Join(prefix, "lib", "cmake", "A", "AConfig.cmake"), "")

	db := New([]Prefix{{Path: prefix}})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := db.Lookup("A")
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	writeFile(t, filepath.Join(prefix, "lib", "cmake", "B", "BConfig.cmake"), "")
	_, ok := db.Lookup("B")
	assert.False(t, ok, "the database never changes after it is built")

	first, _ := db.Lookup("A")
	second, _ := db.Lookup("A")
	assert.Same(t, first, second)
}

func TestFromRecords(t *testing.T) {
	t.Parallel()
	db := FromRecords([]Record{
		{Name: "Qt5", Location: "/a"},
		{Name: "Boost", Location: "/b"},
		{Name: "Qt5", Location: "/c"},
	})
	rec, ok := db.Lookup("Qt5")
	require.True(t, ok)
	assert.Equal(t, "/a", rec.Location)
	assert.Equal(t, []string{"Boost", "Qt5"}, db.Names())
	assert.Len(t, db.Records(), 2)
}

func TestParseVersion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, ptr("5.11"), ParseVersion([]byte("set(PACKAGE_VERSION 5.11)")))
	assert.Equal(t, ptr("1.3.295"), ParseVersion([]byte(`set(PACKAGE_VERSION "1.3.295")`)))
	assert.Equal(t, ptr("2.0"), ParseVersion([]byte("# header\nSet(OTHER 1)\nset(PACKAGE_VERSION 2.0)")))
	assert.Nil(t, ParseVersion([]byte("set(PACKAGE_VERSION_MAJOR 5)")))
}

// =============================================================================
// pkg-config
// =============================================================================

func TestPkgConfig(t *testing.T) {
	t.Parallel()
	dir := newTestPrefix(t)
	gtk := writeFile(t, filepath.Join(dir, "a", "gtk4.pc"), "")
	writeFile(t, filepath.Join(dir, "b", "gtk4.pc"), "")
	writeFile(t, filepath.Join(dir, "b", "glib-2.0.pc"), "")

	pc := NewPkgConfig([]string{filepath.Join(dir, "a", "*.pc"), filepath.Join(dir, "b", "*.pc")})
	rec, ok := pc.Lookup("gtk4")
	require.True(t, ok)
	assert.Equal(t, gtk, rec.Path)

	_, ok = pc.Lookup("glib-2")
	assert.True(t, ok)
	assert.Equal(t, []string{"glib-2", "gtk4"}, pc.Names())
}
