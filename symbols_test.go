package cmakels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestDocumentSymbols(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := env.write(t, "CMakeLists.txt", "project(demo)\n"+
		"option(WITH_TESTS \"tests\" ON)\n"+
		"function(my_fn arg)\n"+
		"  set(LOCAL 1)\n"+
		"endfunction()\n"+
		"if(WITH_TESTS)\n"+
		"  macro(check)\n"+
		"  endmacro()\n"+
		"endif()\n"+
		"message(done)\n")

	syms, err := env.e.DocumentSymbols(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, syms, 4)

	assert.Equal(t, "demo", syms[0].Name)
	assert.Equal(t, protocol.SymbolKindModule, syms[0].Kind)

	assert.Equal(t, "WITH_TESTS", syms[1].Name)
	assert.Equal(t, protocol.SymbolKindVariable, syms[1].Kind)
	assert.Equal(t, "option", *syms[1].Detail)
	assert.Equal(t, span(1, 7, 17), syms[1].SelectionRange)

	fn := syms[2]
	assert.Equal(t, "my_fn", fn.Name)
	assert.Equal(t, protocol.SymbolKindFunction, fn.Kind)
	assert.Equal(t, "function", *fn.Detail)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 0},
		End:   protocol.Position{Line: 4, Character: 13},
	}, fn.Range)
	assert.Equal(t, span(2, 9, 14), fn.SelectionRange)
	require.Len(t, fn.Children, 1)
	assert.Equal(t, "LOCAL", fn.Children[0].Name)

	block := syms[3]
	assert.Equal(t, "if", block.Name)
	assert.Equal(t, "WITH_TESTS", *block.Detail)
	assert.Equal(t, protocol.SymbolKindNamespace, block.Kind)
	require.Len(t, block.Children, 1)
	assert.Equal(t, "check", block.Children[0].Name)
	assert.Equal(t, "macro", *block.Children[0].Detail)
}

func TestDocumentSymbols_UnclosedFunction(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	path := env.write(t, "CMakeLists.txt", "function(broken)\n  set(A 1)\n")

	syms, err := env.e.DocumentSymbols(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "broken", syms[0].Name)
	assert.Len(t, syms[0].Children, 1)
}
