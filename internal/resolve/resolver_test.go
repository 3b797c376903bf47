package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jward/cmakels/internal/packages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func newTestResolver(t *testing.T, recs ...packages.Record) (*Resolver, string) {
	t.Helper()
	root := newTestDir(t)
	modules := filepath.Join(root, "share", "cmake-3.28", "Modules")
	touch(t, filepath.Join(modules, "GNUInstallDirs.cmake"))
	touch(t, filepath.Join(modules, "CTest.cmake"))
	r := New(packages.FromRecords(recs), nil, []string{filepath.Join(root, "share", "cmake*", "Modules")})
	return r, root
}

// =============================================================================
// include
// =============================================================================

func TestIsModule(t *testing.T) {
	t.Parallel()
	assert.True(t, IsModule("GNUInstallDirs"))
	assert.False(t, IsModule("cmake/helpers.cmake"))
	assert.False(t, IsModule("helpers.cmake"))
	assert.False(t, IsModule("sub/Thing"))
}

func TestInclude_RelativeFile(t *testing.T) {
	t.Parallel()
	r, root := newTestResolver(t)
	top := touch(t, filepath.Join(root, "proj", "CMakeLists.txt"))
	helper := touch(t, filepath.Join(root, "proj", "cmake", "helpers.cmake"))

	got, ok := r.Include("cmake/helpers.cmake", top)
	require.True(t, ok)
	assert.Equal(t, Target{Path: helper}, got)

	got, ok = r.Include("cmake/missing.cmake", top)
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(root, "proj", "cmake", "missing.cmake"), got.Path)
}

func TestInclude_AbsoluteAndDirectory(t *testing.T) {
	t.Parallel()
	r, root := newTestResolver(t)
	helper := touch(t, filepath.Join(root, "abs", "x.cmake"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "proj", "dir.cmake"), 0o755))

	got, ok := r.Include(helper, "/elsewhere/CMakeLists.txt")
	require.True(t, ok)
	assert.Equal(t, helper, got.Path)

	got, ok = r.Include("dir.cmake", filepath.Join(root, "proj", "CMakeLists.txt"))
	require.True(t, ok)
	assert.True(t, got.Dir)
}

func TestInclude_Module(t *testing.T) {
	t.Parallel()
	r, root := newTestResolver(t)

	got, ok := r.Include("GNUInstallDirs", filepath.Join(root, "CMakeLists.txt"))
	require.True(t, ok)
	assert.True(t, got.Module)
	assert.Equal(t, filepath.Join(root, "share", "cmake-3.28", "Modules", "GNUInstallDirs.cmake"), got.Path)

	_, ok = r.Include("NoSuchModule", filepath.Join(root, "CMakeLists.txt"))
	assert.False(t, ok)

	assert.Equal(t, []string{"CTest", "GNUInstallDirs"}, r.Modules())
}

func TestInclude_FollowsSymlinks(t *testing.T) {
	t.Parallel()
	r, root := newTestResolver(t)
	target := touch(t, filepath.Join(root, "real.cmake"))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link.cmake")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.cmake"), filepath.Join(root, "dangling.cmake")))

	_, ok := r.Include("link.cmake", filepath.Join(root, "CMakeLists.txt"))
	assert.True(t, ok)
	_, ok = r.Include("dangling.cmake", filepath.Join(root, "CMakeLists.txt"))
	assert.False(t, ok)
}

// =============================================================================
// add_subdirectory
// =============================================================================

func TestSubdirectory(t *testing.T) {
	t.Parallel()
	r, root := newTestResolver(t)
	top := filepath.Join(root, "CMakeLists.txt")
	child := touch(t, filepath.Join(root, "src", "CMakeLists.txt"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	got, ok := r.Subdirectory("src", top)
	assert.True(t, ok)
	assert.Equal(t, child, got)

	got, ok = r.Subdirectory("empty", top)
	assert.False(t, ok)
	assert.Equal(t, filepath.Join(root, "empty", "CMakeLists.txt"), got)
}

// =============================================================================
// find_package
// =============================================================================

func TestFindPackage(t *testing.T) {
	t.Parallel()
	r, _ := newTestResolver(t,
		packages.Record{Name: "Qt5Core", Location: "/qt5core"},
		packages.Record{Name: "boost", Location: "/boost"},
		packages.Record{Name: "KF6::Config", Location: "/kf6config"},
	)

	rec, ok := r.FindPackage("Boost")
	require.True(t, ok, "lower-cased fallback")
	assert.Equal(t, "/boost", rec.Location)

	_, ok = r.FindPackage("Qt5")
	assert.False(t, ok)

	rec, ok = r.FindPackageComponent("Qt5", "Core")
	require.True(t, ok)
	assert.Equal(t, "/qt5core", rec.Location)

	rec, ok = r.FindPackageComponent("KF6", "Config")
	require.True(t, ok)
	assert.Equal(t, "/kf6config", rec.Location)

	_, ok = r.FindPackageComponent("Qt5", "Widgets")
	assert.False(t, ok)
}

func TestFindPackage_NilDatabase(t *testing.T) {
	t.Parallel()
	r := New(nil, nil, []string{})
	_, ok := r.FindPackage("Anything")
	assert.False(t, ok)
	_, ok = r.PkgConfig("gtk4")
	assert.False(t, ok)
}
