package position

import (
	"context"
	"strings"
	"testing"

	"github.com/jward/cmakels/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// at returns the point of the first occurrence of marker in src, offset by
// delta columns.
func at(t *testing.T, src, marker string, delta int) syntax.Point {
	t.Helper()
	off := strings.Index(src, marker)
	require.GreaterOrEqual(t, off, 0, "marker %q not found", marker)
	line := strings.Count(src[:off], "\n")
	col := off - (strings.LastIndex(src[:off], "\n") + 1)
	return syntax.Point{Line: line, Column: col + delta}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		marker string
		want   Category
	}{
		{"find_package name", "find_package(Qt5 COMPONENTS Core)", "Qt5", FindPackageName},
		{"find_package component", "find_package(Qt5 COMPONENTS Core)", "Core", FindPackageComponent{Package: "Qt5"}},
		{"find_package keyword arg", "find_package(Qt5 COMPONENTS Core)", "COMPONENTS", FindPackageComponent{Package: "Qt5"}},
		{"find_package quoted name", `find_package("Boost" REQUIRED)`, "REQUIRED", FindPackageComponent{Package: "Boost"}},
		{"include first", "include(GNUInstallDirs OPTIONAL)", "GNUInstall", IncludeArgument},
		{"include rest", "include(GNUInstallDirs OPTIONAL)", "OPTIONAL", ArgumentGeneric},
		{"subdirectory first", "add_subdirectory(src bin)", "src", SubdirectoryArgument},
		{"subdirectory rest", "add_subdirectory(src bin)", "bin", ArgumentGeneric},
		{"target link all args", "target_link_libraries(app PRIVATE Qt5::Core)", "Qt5::", TargetLinkArgument},
		{"target include", "target_include_directories(app PUBLIC inc)", " inc)", TargetIncludeArgument},
		{"pkg_check_modules", "pkg_check_modules(GTK REQUIRED IMPORTED_TARGET gtk4)", "gtk4", PkgConfigArgument},
		{"keyword case insensitive", "FIND_PACKAGE(Foo)", "Foo", FindPackageName},
		{"keyword command name", "find_package(Foo)", "find_", Unclassified},
		{"other command name", "my_helper(a b)", "my_helper", VariableOrFunctionReference},
		{"other command args", "set(ABC 1)", "ABC", VariableOrFunctionReference},
		{"variable ref in keyword command", "include(${DIR}/x.cmake)", "DIR", VariableOrFunctionReference},
		{"function name", "function(foo a)\nendfunction()", "foo", FunctionOrMacroNameDeclaration},
		{"function param", "function(foo a)\nendfunction()", " a)", VariableOrFunctionReference},
		{"macro name", "macro(bar)\nendmacro()", "bar", FunctionOrMacroNameDeclaration},
		{"if args", "if(WIN32)\nendif()", "WIN32", VariableOrFunctionReference},
		{"elseif args", "if(A)\nelseif(MY_OPT)\nendif()", "MY_OPT", VariableOrFunctionReference},
		{"while args", "while(COUNT)\nendwhile()", "COUNT", VariableOrFunctionReference},
		{"foreach args", "foreach(x IN LISTS MY_LIST)\nendforeach()", "MY_LIST", VariableOrFunctionReference},
		{"comment", "# find_package(Foo)\n", "Foo", Comment},
		{"bracket comment", "#[[ note ]]\n", "note", Comment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tree := syntax.Parse([]byte(tt.src))
			delta := 0
			if strings.HasPrefix(tt.marker, " ") {
				delta = 1
			}
			assert.Equal(t, tt.want, Classify(tree, at(t, tt.src, tt.marker, delta)))
		})
	}
}

func TestClassify_EmptyArgumentList(t *testing.T) {
	t.Parallel()
	tree, err := syntax.NewParser().Parse(context.Background(), []byte("find_package()"))
	require.NoError(t, err)
	assert.Equal(t, FindPackageName, Classify(tree, syntax.Point{Line: 0, Column: 13}))
}

func TestClassify_OutsideAllNodes(t *testing.T) {
	t.Parallel()
	tree := syntax.Parse([]byte("set(A 1)\n"))
	assert.Equal(t, Unclassified, Classify(tree, syntax.Point{Line: 40, Column: 2}))
	assert.Equal(t, Unclassified, Classify(&syntax.Tree{}, syntax.Point{}))
}

func TestClassify_InsideErrorNode(t *testing.T) {
	t.Parallel()
	src := "find_package(Boost\nmessage(hi)\n"
	tree := syntax.Parse([]byte(src))
	assert.Equal(t, FindPackageName, Classify(tree, at(t, src, "Boost", 1)))
}

func TestIsPackage(t *testing.T) {
	t.Parallel()
	assert.True(t, IsPackage(FindPackageName))
	assert.True(t, IsPackage(FindPackageComponent{Package: "Qt5"}))
	assert.True(t, IsPackage(TargetLinkArgument))
	assert.False(t, IsPackage(IncludeArgument))
	assert.False(t, IsPackage(Comment))
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "include_argument", IncludeArgument.String())
	assert.Equal(t, "find_package_component(Qt5)", FindPackageComponent{Package: "Qt5"}.String())
}
