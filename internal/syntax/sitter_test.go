package syntax

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The CMake grammar is not bundled with go-tree-sitter, so the adapter is
// exercised with the bash grammar: the conversion is grammar independent.

func sitterRoot(t *testing.T, src string) (*sitter.Tree, *sitter.Node) {
	t.Helper()
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(bash.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	require.NoError(t, err)
	return tree, tree.RootNode()
}

func assertSameShape(t *testing.T, tree *Tree, id NodeID, n *sitter.Node) {
	t.Helper()
	assert.Equal(t, Kind(n.Type()), tree.Kind(id))
	assert.Equal(t, int(n.StartPoint().Row), tree.Range(id).Start.Line)
	assert.Equal(t, int(n.StartPoint().Column), tree.Range(id).Start.Column)
	assert.Equal(t, int(n.EndPoint().Row), tree.Range(id).End.Line)
	assert.Equal(t, int(n.EndPoint().Column), tree.Range(id).End.Column)
	require.Equal(t, int(n.ChildCount()), tree.ChildCount(id))
	for i := 0; i < int(n.ChildCount()); i++ {
		assertSameShape(t, tree, tree.Child(id, i), n.Child(i))
	}
}

func TestSitterParser_MatchesSitterTree(t *testing.T) {
	t.Parallel()
	src := "echo hello\nfor f in *.txt; do\n  cat \"$f\"\ndone\n"

	tree, err := NewSitterParser(bash.GetLanguage()).Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	st, root := sitterRoot(t, src)
	defer st.Close()

	assertSameShape(t, tree, tree.Root(), root)
	assert.Equal(t, src, tree.Text(tree.Root()))
	assert.Equal(t, root.HasError(), tree.HasError(tree.Root()))
}

func TestSitterParser_ErrorFlags(t *testing.T) {
	t.Parallel()
	src := "if then fi fi ((\n"

	tree, err := NewSitterParser(bash.GetLanguage()).Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	st, root := sitterRoot(t, src)
	defer st.Close()

	assert.Equal(t, root.HasError(), tree.HasError(tree.Root()))
	if root.HasError() {
		assert.NotEmpty(t, tree.ErrorNodes())
	}
}

func TestFromSitter_NilRoot(t *testing.T) {
	t.Parallel()
	tree := FromSitter(nil, nil)
	assert.Equal(t, NoNode, tree.Root())
	assert.Equal(t, NoNode, tree.NodeAt(Point{}))
}
