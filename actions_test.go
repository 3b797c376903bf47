package cmakels

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestCodeActions_WrapsLongLine(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := env.write(t, "CMakeLists.txt", "set(A 1)\ntarget_link_libraries(app PRIVATE alpha beta gamma)\n")
	diag := protocol.Diagnostic{Range: span(1, 0, 51), Message: "line length 51 exceeds 40"}

	actions, err := env.e.CodeActions(context.Background(), path, []protocol.Diagnostic{diag})
	require.NoError(t, err)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, protocol.CodeActionKindQuickFix, *a.Kind)
	assert.Equal(t, []protocol.Diagnostic{diag}, a.Diagnostics)
	require.NotNil(t, a.Edit)
	assert.Equal(t, map[protocol.DocumentUri][]protocol.TextEdit{
		fileURI(path): {{
			Range:   span(1, 22, 50),
			NewText: "app PRIVATE alpha\n" + strings.Repeat(" ", 22) + "beta gamma",
		}},
	}, a.Edit.Changes)
}

func TestCodeActions_ExternalLintMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := env.write(t, "CMakeLists.txt", "set(SOURCES one.c two.c three.c)\n")
	diag := protocol.Diagnostic{Range: span(0, 0, 0), Message: "[C0301] Line too long (32/20)"}

	actions, err := env.e.CodeActions(context.Background(), path, []protocol.Diagnostic{diag})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	edits := actions[0].Edit.Changes[fileURI(path)]
	require.Len(t, edits, 1)
	assert.Equal(t, "SOURCES one.c\n    two.c three.c", edits[0].NewText)
}

func TestCodeActions_NoFix(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := env.write(t, "CMakeLists.txt", "set(A 1)\nset(B # note\n  2)\n")
	ctx := context.Background()

	actions, err := env.e.CodeActions(ctx, path, []protocol.Diagnostic{
		{Range: span(0, 0, 8), Message: "grammar error"},
		{Range: span(0, 0, 8), Message: "line length 8 exceeds 80"},
		{Range: span(1, 0, 12), Message: "line length 12 exceeds 10"},
	})
	require.NoError(t, err)
	assert.Empty(t, actions, "unrelated, already fitting and commented lists are left alone")
}
