package syntax

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := NewParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

func kinds(t *Tree, ids []NodeID) []Kind {
	out := make([]Kind, len(ids))
	for i, id := range ids {
		out[i] = t.Kind(id)
	}
	return out
}

func argValues(t *Tree, cmd NodeID) []string {
	var out []string
	for _, a := range Arguments(t, cmd) {
		out = append(out, ArgumentValue(t, a))
	}
	return out
}

// =============================================================================
// Commands
// =============================================================================

func TestParse_NormalCommand(t *testing.T) {
	t.Parallel()
	tree := parse(t, `set(ABC "1")`)

	root := tree.Root()
	assert.Equal(t, KindSourceFile, tree.Kind(root))
	require.Equal(t, 1, tree.ChildCount(root))

	cmd := tree.Child(root, 0)
	assert.Equal(t, KindNormalCommand, tree.Kind(cmd))
	name, nameID := CommandName(tree, cmd)
	assert.Equal(t, "set", name)
	assert.Equal(t, Range{Start: Point{0, 0}, End: Point{0, 3}}, tree.Range(nameID))
	assert.Equal(t, []string{"ABC", "1"}, argValues(tree, cmd))
	assert.False(t, tree.HasError(root))
	assert.Empty(t, tree.ErrorNodes())
}

func TestParse_MultiLineArguments(t *testing.T) {
	t.Parallel()
	tree := parse(t, "add_executable(app\n    main.cpp\n    util.cpp\n)\n")

	cmd := tree.Child(tree.Root(), 0)
	assert.Equal(t, []string{"app", "main.cpp", "util.cpp"}, argValues(tree, cmd))
	assert.Equal(t, 0, tree.Range(cmd).Start.Line)
	assert.Equal(t, 3, tree.Range(cmd).End.Line)
	assert.False(t, tree.HasError(tree.Root()))
}

func TestParse_NestedParensAreFlattened(t *testing.T) {
	t.Parallel()
	tree := parse(t, "if(A AND (B OR C))\nendif()")

	ifCond := tree.Child(tree.Root(), 0)
	require.Equal(t, KindIfCondition, tree.Kind(ifCond))
	header := tree.Child(ifCond, 0)
	assert.Equal(t, []string{"A", "AND", "B", "OR", "C"}, argValues(tree, header))
	assert.False(t, tree.HasError(tree.Root()))
}

func TestParse_BracketArgument(t *testing.T) {
	t.Parallel()
	tree := parse(t, "message([==[\nraw ${NOT_A_REF}]==])")

	cmd := tree.Child(tree.Root(), 0)
	assert.Equal(t, []string{"raw ${NOT_A_REF}"}, argValues(tree, cmd))
	var refs int
	tree.Walk(tree.Root(), func(id NodeID) bool {
		if tree.Kind(id) == KindVariableRef {
			refs++
		}
		return true
	})
	assert.Zero(t, refs)
}

func TestParse_Comments(t *testing.T) {
	t.Parallel()
	tree := parse(t, "# heading\nset(A 1) #[[ block\ncomment ]]\n")

	children := tree.Children(tree.Root())
	assert.Equal(t, []Kind{KindLineComment, KindNormalCommand, KindBracketComment}, kinds(tree, children))
	assert.Equal(t, "# heading", tree.Text(children[0]))
	assert.False(t, tree.HasError(tree.Root()))
}

func TestParse_VariableReferences(t *testing.T) {
	t.Parallel()
	tree := parse(t, `message(${FOO}_bar "x${BAR}" $ENV{HOME} ${A_${B}})`)

	var names []string
	var varKinds []Kind
	tree.Walk(tree.Root(), func(id NodeID) bool {
		switch tree.Kind(id) {
		case KindVariable:
			names = append(names, tree.Text(id))
		case KindNormalVar, KindEnvVar, KindCacheVar:
			varKinds = append(varKinds, tree.Kind(id))
		}
		return true
	})
	assert.Equal(t, []string{"FOO", "BAR", "HOME", "A_${B}", "B"}, names)
	assert.Equal(t, []Kind{KindNormalVar, KindNormalVar, KindEnvVar, KindNormalVar, KindNormalVar}, varKinds)
}

// =============================================================================
// Blocks
// =============================================================================

func TestParse_FunctionDef(t *testing.T) {
	t.Parallel()
	tree := parse(t, "function(foo)\nendfunction()")

	def := tree.Child(tree.Root(), 0)
	assert.Equal(t, KindFunctionDef, tree.Kind(def))
	assert.Equal(t, []Kind{KindFunctionCommand, KindEndFunctionCommand}, kinds(tree, tree.Children(def)))
	assert.Equal(t, []string{"foo"}, argValues(tree, tree.Child(def, 0)))
	assert.False(t, tree.HasError(tree.Root()))
}

func TestParse_BlockNamesAreCaseInsensitive(t *testing.T) {
	t.Parallel()
	tree := parse(t, "MACRO(bar x)\n  SET(Y 1)\nENDMACRO()")

	def := tree.Child(tree.Root(), 0)
	assert.Equal(t, KindMacroDef, tree.Kind(def))
	assert.Equal(t, []Kind{KindMacroCommand, KindBody, KindEndMacroCommand}, kinds(tree, tree.Children(def)))
	assert.False(t, tree.HasError(tree.Root()))
}

func TestParse_IfElseChain(t *testing.T) {
	t.Parallel()
	tree := parse(t, "if(A)\nset(X 1)\nelseif(B)\nset(X 2)\nelse()\nset(X 3)\nendif()")

	def := tree.Child(tree.Root(), 0)
	require.Equal(t, KindIfCondition, tree.Kind(def))
	assert.Equal(t, []Kind{
		KindIfCommand, KindBody,
		KindElseIfCommand, KindBody,
		KindElseCommand, KindBody,
		KindEndIfCommand,
	}, kinds(tree, tree.Children(def)))
	assert.False(t, tree.HasError(tree.Root()))
}

func TestParse_NestedBlocks(t *testing.T) {
	t.Parallel()
	tree := parse(t, "foreach(x IN LISTS L)\n  while(C)\n    set(Y 1)\n  endwhile()\nendforeach()")

	loop := tree.Child(tree.Root(), 0)
	require.Equal(t, KindForeachLoop, tree.Kind(loop))
	body := tree.Child(loop, 1)
	require.Equal(t, KindBody, tree.Kind(body))
	assert.Equal(t, KindWhileLoop, tree.Kind(tree.Child(body, 0)))
	assert.False(t, tree.HasError(tree.Root()))
}

// =============================================================================
// Error recovery
// =============================================================================

func TestParse_UnterminatedCommandStopsAtNextCommand(t *testing.T) {
	t.Parallel()
	tree := parse(t, "set(A 1\nmessage(hi)\n")

	cmds := Commands(tree, tree.Root())
	require.Len(t, cmds, 2)
	assert.True(t, tree.IsError(cmds[0]))
	assert.False(t, tree.HasError(cmds[1]))
	assert.Equal(t, []NodeID{cmds[0]}, tree.ErrorNodes())

	name, _ := CommandName(tree, cmds[1])
	assert.Equal(t, "message", name)
}

func TestParse_ParenthesisedContinuationLine(t *testing.T) {
	t.Parallel()
	tree := parse(t, "if(FOO\n   AND (BAR OR BAZ))\n  set(X 1)\nendif()\n")

	assert.False(t, tree.HasError(tree.Root()))
	assert.Empty(t, tree.ErrorNodes())

	def := tree.Child(tree.Root(), 0)
	require.Equal(t, KindIfCondition, tree.Kind(def))
	assert.Equal(t, []Kind{KindIfCommand, KindBody, KindEndIfCommand}, kinds(tree, tree.Children(def)))
	assert.Equal(t, []string{"FOO", "AND", "BAR", "OR", "BAZ"}, argValues(tree, tree.Child(def, 0)))

	cmds := Commands(tree, tree.Child(def, 1))
	require.Len(t, cmds, 1)
	name, _ := CommandName(tree, cmds[0])
	assert.Equal(t, "set", name)
}

func TestParse_ContinuationSkipsQuotesAndComments(t *testing.T) {
	t.Parallel()
	tree := parse(t, "message(STATUS\n  fmt(\")\" # )\n  [[)]]))\nset(A 1)\n")

	assert.Empty(t, tree.ErrorNodes())
	cmds := Commands(tree, tree.Root())
	require.Len(t, cmds, 2)
	name, _ := CommandName(tree, cmds[1])
	assert.Equal(t, "set", name)
}

func TestParse_GarbageLineBecomesErrorNode(t *testing.T) {
	t.Parallel()
	tree := parse(t, ") oops\nset(A 1)")

	children := tree.Children(tree.Root())
	assert.Equal(t, []Kind{KindError, KindNormalCommand}, kinds(tree, children))
	assert.Equal(t, ") oops", tree.Text(children[0]))
	assert.Equal(t, []NodeID{children[0]}, tree.ErrorNodes())
}

func TestParse_StrayTerminatorIsWrapped(t *testing.T) {
	t.Parallel()
	tree := parse(t, "endif()\nset(A 1)")

	children := tree.Children(tree.Root())
	require.Len(t, children, 2)
	assert.Equal(t, KindError, tree.Kind(children[0]))
	assert.Equal(t, KindEndIfCommand, tree.Kind(tree.Child(children[0], 0)))
	assert.False(t, tree.HasError(children[1]))
}

func TestParse_UnclosedInnerBlockDoesNotBreakOuter(t *testing.T) {
	t.Parallel()
	tree := parse(t, "if(A)\nfunction(f)\nendif()\nset(B 1)")

	children := tree.Children(tree.Root())
	require.Equal(t, []Kind{KindIfCondition, KindNormalCommand}, kinds(tree, children))
	ifCond := children[0]
	assert.False(t, tree.IsError(ifCond))
	assert.Equal(t, []Kind{KindIfCommand, KindBody, KindEndIfCommand}, kinds(tree, tree.Children(ifCond)))

	errs := tree.ErrorNodes()
	require.Len(t, errs, 1)
	assert.Equal(t, KindFunctionDef, tree.Kind(errs[0]))
}

func TestParse_UnclosedBlockAtEOF(t *testing.T) {
	t.Parallel()
	tree := parse(t, "function(f)\n  set(A 1)\n")

	def := tree.Child(tree.Root(), 0)
	assert.Equal(t, KindFunctionDef, tree.Kind(def))
	assert.True(t, tree.IsError(def))
	assert.Len(t, Commands(tree, def), 2)
}

func TestParse_UnterminatedQuote(t *testing.T) {
	t.Parallel()
	tree := parse(t, `message("abc)`)

	assert.True(t, tree.HasError(tree.Root()))
	assert.NotEmpty(t, tree.ErrorNodes())
}

// =============================================================================
// Lookup
// =============================================================================

func TestNodeAt(t *testing.T) {
	t.Parallel()
	tree := parse(t, "set(ABC 1)\n")

	id := tree.NodeAt(Point{Line: 0, Column: 5})
	assert.Equal(t, KindUnquotedArgument, tree.Kind(id))
	assert.Equal(t, "ABC", tree.Text(id))

	assert.Equal(t, NoNode, tree.NodeAt(Point{Line: 9, Column: 0}))
	// Past the end of a line but before EOF only the root contains the point.
	assert.Equal(t, tree.Root(), tree.NodeAt(Point{Line: 0, Column: 500}))
}

func TestNodeAt_TokenStartBeatsPreviousEnd(t *testing.T) {
	t.Parallel()
	tree := parse(t, "include(cmake/util.cmake)\nset(FOO 1)\n")

	id := tree.NodeAt(Point{Line: 0, Column: 8})
	assert.Equal(t, KindUnquotedArgument, tree.Kind(id))
	assert.Equal(t, "cmake/util.cmake", tree.Text(id))

	id = tree.NodeAt(Point{Line: 1, Column: 4})
	assert.Equal(t, "FOO", tree.Text(id))

	// The end of the last token still hits it when nothing starts there.
	id = tree.NodeAt(Point{Line: 1, Column: 7})
	assert.Equal(t, "FOO", tree.Text(id))
}

func TestEnclosingCommand(t *testing.T) {
	t.Parallel()
	tree := parse(t, "include(foo.cmake)")

	id := tree.NodeAt(Point{Line: 0, Column: 10})
	cmd := EnclosingCommand(tree, id)
	name, _ := CommandName(tree, cmd)
	assert.Equal(t, "include", name)
	assert.Equal(t, NoNode, EnclosingCommand(tree, tree.Root()))
}

func TestLines(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b", ""}, Lines([]byte("a\r\nb\n")))
}
