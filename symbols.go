package cmakels

import (
	"context"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/syntax"
)

// symbolCommands maps the commands shown in the outline to their symbol
// kind. The first argument names the symbol.
var symbolCommands = map[string]protocol.SymbolKind{
	"set":                        protocol.SymbolKindVariable,
	"option":                     protocol.SymbolKindVariable,
	"project":                    protocol.SymbolKindModule,
	"add_executable":             protocol.SymbolKindObject,
	"add_library":                protocol.SymbolKindObject,
	"target_link_libraries":      protocol.SymbolKindObject,
	"target_include_directories": protocol.SymbolKindObject,
}

// DocumentSymbols returns the outline of path. Functions and macros nest
// their bodies; if, foreach, while and block constructs appear as
// namespaces around theirs.
func (e *Engine) DocumentSymbols(ctx context.Context, path string) ([]protocol.DocumentSymbol, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	return documentSymbols(d.Tree, d.Tree.Root()), nil
}

func documentSymbols(t *syntax.Tree, parent syntax.NodeID) []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, id := range t.Children(parent) {
		switch t.Kind(id) {
		case syntax.KindBody:
			out = append(out, documentSymbols(t, id)...)
		case syntax.KindFunctionDef, syntax.KindMacroDef:
			header := t.Child(id, 0)
			name, ok := firstArgument(t, header)
			if !ok {
				continue
			}
			detail := "function"
			if t.Kind(id) == syntax.KindMacroDef {
				detail = "macro"
			}
			out = append(out, protocol.DocumentSymbol{
				Name:           syntax.ArgumentValue(t, name),
				Detail:         &detail,
				Kind:           protocol.SymbolKindFunction,
				Range:          t.ProtocolRange(t.Range(id)),
				SelectionRange: t.ProtocolRange(t.Range(name)),
				Children:       documentSymbols(t, id),
			})
		case syntax.KindIfCondition, syntax.KindForeachLoop, syntax.KindWhileLoop, syntax.KindBlockDef:
			header := t.Child(id, 0)
			cmd, ident := syntax.CommandName(t, header)
			var args []string
			for _, a := range syntax.Arguments(t, header) {
				args = append(args, t.Text(a))
			}
			detail := strings.Join(args, " ")
			out = append(out, protocol.DocumentSymbol{
				Name:           strings.ToLower(cmd),
				Detail:         &detail,
				Kind:           protocol.SymbolKindNamespace,
				Range:          t.ProtocolRange(t.Range(id)),
				SelectionRange: t.ProtocolRange(t.Range(ident)),
				Children:       documentSymbols(t, id),
			})
		case syntax.KindNormalCommand:
			cmd, _ := syntax.CommandName(t, id)
			lower := strings.ToLower(cmd)
			kind, ok := symbolCommands[lower]
			if !ok {
				continue
			}
			name, ok := firstArgument(t, id)
			if !ok {
				continue
			}
			out = append(out, protocol.DocumentSymbol{
				Name:           syntax.ArgumentValue(t, name),
				Detail:         &lower,
				Kind:           kind,
				Range:          t.ProtocolRange(t.Range(id)),
				SelectionRange: t.ProtocolRange(t.Range(name)),
			})
		}
	}
	return out
}

// firstArgument returns the first argument of cmd when it fits on one line.
func firstArgument(t *syntax.Tree, cmd syntax.NodeID) (syntax.NodeID, bool) {
	args := syntax.Arguments(t, cmd)
	if len(args) == 0 || !t.Range(args[0]).SingleLine() || syntax.ArgumentValue(t, args[0]) == "" {
		return syntax.NoNode, false
	}
	return args[0], true
}
