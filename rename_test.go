package cmakels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func span(line, start, end protocol.UInteger) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: end},
	}
}

func renameProject(t *testing.T) (*testEnv, string, string) {
	t.Helper()
	env := newTestEnv(t)
	util := env.write(t, "util.cmake", "function(my_fn)\nendfunction()\nset(SHARED 1)\n")
	path := env.write(t, "CMakeLists.txt", "include(util.cmake)\n"+
		"MY_FN()\n"+
		"message(${SHARED} \"SHARED\")\n"+
		"set(SHARED 2)\n")
	return env, util, path
}

// =============================================================================
// Rename
// =============================================================================

func TestRename_Variable(t *testing.T) {
	t.Parallel()
	env, util, path := renameProject(t)

	edit, err := env.e.Rename(context.Background(), path, Point{Line: 2, Column: 10}, "COMMON")
	require.NoError(t, err)
	require.NotNil(t, edit)
	assert.Equal(t, map[protocol.DocumentUri][]protocol.TextEdit{
		fileURI(path): {
			{Range: span(2, 10, 16), NewText: "COMMON"},
			{Range: span(2, 19, 25), NewText: "COMMON"},
			{Range: span(3, 4, 10), NewText: "COMMON"},
		},
		fileURI(util): {
			{Range: span(2, 4, 10), NewText: "COMMON"},
		},
	}, edit.Changes)
}

func TestRename_FunctionIgnoresCase(t *testing.T) {
	t.Parallel()
	env, util, path := renameProject(t)

	edit, err := env.e.Rename(context.Background(), path, Point{Line: 1, Column: 0}, "helper")
	require.NoError(t, err)
	require.NotNil(t, edit)
	assert.Equal(t, map[protocol.DocumentUri][]protocol.TextEdit{
		fileURI(path): {{Range: span(1, 0, 5), NewText: "helper"}},
		fileURI(util): {{Range: span(0, 9, 14), NewText: "helper"}},
	}, edit.Changes)
}

func TestRename_NothingToRename(t *testing.T) {
	t.Parallel()
	env, _, path := renameProject(t)
	ctx := context.Background()

	edit, err := env.e.Rename(ctx, path, Point{Line: 0, Column: 10}, "other.cmake")
	require.NoError(t, err)
	assert.Nil(t, edit, "include paths are not symbols")

	edit, err = env.e.Rename(ctx, path, Point{Line: 2, Column: 2}, "log")
	require.NoError(t, err)
	assert.Nil(t, edit, "builtin commands have no definition")
}

func TestRename_InvalidName(t *testing.T) {
	t.Parallel()
	env, _, path := renameProject(t)

	for _, name := range []string{"", "two words", "a(b)", "${X}"} {
		_, err := env.e.Rename(context.Background(), path, Point{Line: 3, Column: 5}, name)
		assert.ErrorContains(t, err, "invalid name", name)
	}
}
