package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jward/cmakels/internal/config"
	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/packages"
	"github.com/jward/cmakels/internal/resolve"
	"github.com/jward/cmakels/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	root    string
	scanner *Scanner
	files   *index.FileCache
	modules *index.ModuleCache
	graph   *index.Graph
}

func newTestEnv(t *testing.T, recs []packages.Record, opts ...Option) *testEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	env := &testEnv{
		root:    root,
		files:   index.NewFileCache(),
		modules: index.NewModuleCache(),
		graph:   index.NewGraph(),
	}
	r := resolve.New(packages.FromRecords(recs), nil, []string{filepath.Join(root, "modules")})
	env.scanner = New(r, env.files, env.modules, env.graph, opts...)
	return env
}

func (e *testEnv) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(e.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *testEnv) scan(t *testing.T, rel string, opts Options) []index.Definition {
	t.Helper()
	path := filepath.Join(e.root, rel)
	src, err := os.ReadFile(path)
	require.NoError(t, err)
	return e.scanner.Scan(context.Background(), syntax.Parse(src), path, opts, nil)
}

func names(defs []index.Definition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	sort.Strings(out)
	return out
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// Local definitions
// =============================================================================

func TestScan_SetVariable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	path := env.write(t, "CMakeLists.txt", `set(ABC "1")`)

	defs := env.scan(t, "CMakeLists.txt", Options{})
	require.Len(t, defs, 1)
	assert.Equal(t, index.Definition{
		Name: "ABC",
		Kind: index.Variable,
		Location: index.Location{
			Path:  path,
			Range: syntax.Range{Start: syntax.Point{Line: 0, Column: 4}, End: syntax.Point{Line: 0, Column: 7}},
		},
	}, defs[0])
}

func TestScan_FunctionAndMacro(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "CMakeLists.txt", "function(foo)\nendfunction()\nMACRO(bar x)\n  option(OPT \"doc\" ON)\nENDMACRO()\n")

	defs := env.scan(t, "CMakeLists.txt", Options{})
	require.Len(t, defs, 3)
	assert.Equal(t, "foo", defs[0].Name)
	assert.Equal(t, index.Function, defs[0].Kind)
	assert.Equal(t, "bar", defs[1].Name)
	assert.Equal(t, index.Macro, defs[1].Kind)
	assert.Equal(t, "OPT", defs[2].Name)
	assert.Equal(t, index.Variable, defs[2].Kind)
}

func TestScan_SkipsDynamicAndMultilineNames(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "CMakeLists.txt", "set(${PREFIX}_DIR x)\nset([[multi\nline]] y)\nset(OK 1)\nset()\n")

	assert.Equal(t, []string{"OK"}, names(env.scan(t, "CMakeLists.txt", Options{})))
}

func TestScan_NestedBlocksAndErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "CMakeLists.txt", "if(WIN32)\n  foreach(x a b)\n    set(IN_LOOP 1)\n  endforeach()\nendif()\nset(BROKEN 1\nfunction(after)\nendfunction()\n")

	assert.Equal(t, []string{"BROKEN", "IN_LOOP", "after"}, names(env.scan(t, "CMakeLists.txt", Options{})))
}

func TestScan_Bound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "late.cmake", "set(LATE 1)\n")
	env.write(t, "CMakeLists.txt", "set(EARLY 1)\nif(X)\n  set(INSIDE 1)\nendif()\ninclude(late.cmake)\nset(AFTER 1)\n")

	defs := env.scan(t, "CMakeLists.txt", Options{Bound: ptr(2)})
	assert.Equal(t, []string{"EARLY", "INSIDE"}, names(defs))
}

// =============================================================================
// include()
// =============================================================================

func TestScan_IncludeChain(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	a := env.write(t, "a.cmake", "include(b.cmake)\nset(A_VAR 1)\n")
	b := env.write(t, "b.cmake", "include(sub/c.cmake)\nfunction(b_fn)\nendfunction()\n")
	c := env.write(t, "sub/c.cmake", "set(C_VAR 1)\n")

	defs := env.scan(t, "a.cmake", Options{})
	assert.Equal(t, []string{"A_VAR", "C_VAR", "b_fn"}, names(defs))

	parent, ok := env.graph.Parent(b)
	require.True(t, ok)
	assert.Equal(t, a, parent)
	parent, ok = env.graph.Parent(c)
	require.True(t, ok)
	assert.Equal(t, b, parent)

	sum, ok := env.files.Get(b)
	require.True(t, ok)
	assert.Equal(t, []index.Include{{Path: c}}, sum.Includes)
}

func TestScan_SelfAndCyclicIncludesTerminate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "self.cmake", "include(self.cmake)\nset(SELF 1)\n")
	env.write(t, "x.cmake", "include(y.cmake)\nset(X 1)\n")
	env.write(t, "y.cmake", "include(x.cmake)\nset(Y 1)\n")

	assert.Equal(t, []string{"SELF"}, names(env.scan(t, "self.cmake", Options{})))
	assert.Equal(t, []string{"X", "Y"}, names(env.scan(t, "x.cmake", Options{})))
}

func TestScanFile_SharesVisited(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "a.cmake", "include(b.cmake)\nset(A_VAR 1)\n")
	b := env.write(t, "b.cmake", "set(B_VAR 1)\n")

	visited := NewVisited()
	visited.Includes[b] = true
	defs := env.scanner.ScanFile(context.Background(), filepath.Join(env.root, "a.cmake"), Options{}, visited)
	assert.Equal(t, []string{"A_VAR"}, names(defs))

	_, cached := env.files.Get(filepath.Join(env.root, "a.cmake"))
	assert.True(t, cached)
	assert.Empty(t, env.scanner.ScanFile(context.Background(), filepath.Join(env.root, "missing.cmake"), Options{}, nil))
}

func TestScan_MissingIncludeContributesNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.write(t, "CMakeLists.txt", "include(nope.cmake)\ninclude(NoModule)\nset(HERE 1)\n")

	assert.Equal(t, []string{"HERE"}, names(env.scan(t, "CMakeLists.txt", Options{})))
	assert.Zero(t, env.graph.Len())
}

func TestScan_ModuleIncludeUsesModuleCache(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	mod := env.write(t, "modules/MyModule.cmake", "function(my_module_fn)\nendfunction()\n")
	env.write(t, "CMakeLists.txt", "include(MyModule)\n")

	assert.Equal(t, []string{"my_module_fn"}, names(env.scan(t, "CMakeLists.txt", Options{})))
	_, ok := env.modules.Get(mod)
	assert.True(t, ok)
	_, ok = env.files.Get(mod)
	assert.False(t, ok)
}

func TestScan_ReaderOverride(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil, WithReader(func(path string) ([]byte, error) {
		if filepath.Base(path) == "open.cmake" {
			return []byte("set(UNSAVED 1)\n"), nil
		}
		return os.ReadFile(path)
	}))
	env.write(t, "open.cmake", "set(ON_DISK 1)\n")
	env.write(t, "CMakeLists.txt", "include(open.cmake)\n")

	assert.Equal(t, []string{"UNSAVED"}, names(env.scan(t, "CMakeLists.txt", Options{})))
}

// =============================================================================
// find_package()
// =============================================================================

func packageEnv(t *testing.T, mode config.ComponentMode) *testEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	qt5 := filepath.Join(root, "Qt5Config.cmake")
	core := filepath.Join(root, "Qt5CoreConfig.cmake")
	require.NoError(t, os.WriteFile(qt5, []byte("set(Qt5_FOUND 1)\n"), 0o644))
	require.NoError(t, os.WriteFile(core, []byte("set(Qt5Core_FOUND 1)\nfunction(qt5_core_helper)\nendfunction()\n"), 0o644))

	env := newTestEnv(t, []packages.Record{
		{Name: "Qt5", JumpTargets: []string{qt5}},
		{Name: "Qt5Core", JumpTargets: []string{core}},
	}, WithComponents(mode))
	env.write(t, "CMakeLists.txt", "find_package(Qt5 REQUIRED COMPONENTS Core)\n")
	return env
}

func TestScan_FindPackageExpand(t *testing.T) {
	t.Parallel()
	env := packageEnv(t, config.ExpandComponents)
	defs := env.scan(t, "CMakeLists.txt", Options{Follow: true})
	assert.Equal(t, []string{"Qt5Core_FOUND", "qt5_core_helper"}, names(defs))
	assert.Equal(t, 1, env.modules.Len())
}

func TestScan_FindPackageBoth(t *testing.T) {
	t.Parallel()
	env := packageEnv(t, config.BothComponents)
	defs := env.scan(t, "CMakeLists.txt", Options{Follow: true})
	assert.Equal(t, []string{"Qt5Core_FOUND", "Qt5_FOUND", "qt5_core_helper"}, names(defs))
}

func TestScan_FindPackageIgnore(t *testing.T) {
	t.Parallel()
	env := packageEnv(t, config.IgnoreComponents)
	defs := env.scan(t, "CMakeLists.txt", Options{Follow: true})
	assert.Equal(t, []string{"Qt5_FOUND"}, names(defs))
}

func TestScan_FindPackageNotFollowed(t *testing.T) {
	t.Parallel()
	env := packageEnv(t, config.BothComponents)
	assert.Empty(t, env.scan(t, "CMakeLists.txt", Options{}))
}

func TestScan_PackageVisitedOnce(t *testing.T) {
	t.Parallel()
	env := packageEnv(t, config.IgnoreComponents)
	env.write(t, "CMakeLists.txt", "find_package(Qt5)\nfind_package(Qt5 5.15)\n")
	defs := env.scan(t, "CMakeLists.txt", Options{Follow: true})
	assert.Equal(t, []string{"Qt5_FOUND"}, names(defs))
}

func TestPackageRefOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want index.PackageRef
	}{
		{"find_package(Boost)", index.PackageRef{Name: "Boost"}},
		{"find_package(Boost 1.80 REQUIRED)", index.PackageRef{Name: "Boost"}},
		{"find_package(Qt5 COMPONENTS Core Widgets)", index.PackageRef{Name: "Qt5", Components: []string{"Core", "Widgets"}}},
		{"find_package(Qt6 REQUIRED Gui OPTIONAL_COMPONENTS Svg)", index.PackageRef{Name: "Qt6", Components: []string{"Gui", "Svg"}}},
		{"find_package(Foo CONFIG REQUIRED PATHS /opt/foo)", index.PackageRef{Name: "Foo"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			tree := syntax.Parse([]byte(tt.src))
			ref, ok := PackageRefOf(tree, tree.Child(tree.Root(), 0))
			require.True(t, ok)
			assert.Equal(t, tt.want, ref)
		})
	}

	tree := syntax.Parse([]byte("find_package()"))
	_, ok := PackageRefOf(tree, tree.Child(tree.Root(), 0))
	assert.False(t, ok)
}
