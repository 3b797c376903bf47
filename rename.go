package cmakels

import (
	"context"
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/position"
	"github.com/jward/cmakels/internal/syntax"
)

// Rename returns the edits that rename the variable, function or macro at p
// to newName. Every occurrence in path and in the files holding one of its
// visible definitions is rewritten. Positions that name nothing renameable
// return nil.
func (e *Engine) Rename(ctx context.Context, path string, p Point, newName string) (*protocol.WorkspaceEdit, error) {
	if !validName(newName) {
		return nil, fmt.Errorf("cmakels: rename: invalid name %q", newName)
	}
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	name, _ := tokenAt(d.Tree, p)
	if name == "" {
		return nil, nil
	}
	switch position.Classify(d.Tree, p) {
	case position.VariableOrFunctionReference, position.FunctionOrMacroNameDeclaration:
	default:
		return nil, nil
	}
	defs := matchName(e.visible(ctx, d, nil), name)
	if len(defs) == 0 {
		return nil, nil
	}

	fold := true
	files := []string{d.Path}
	seen := map[string]bool{d.Path: true}
	for _, def := range defs {
		if def.Kind == index.Variable {
			fold = false
		}
		if !seen[def.Location.Path] {
			seen[def.Location.Path] = true
			files = append(files, def.Location.Path)
		}
	}

	changes := make(map[protocol.DocumentUri][]protocol.TextEdit)
	for _, file := range files {
		doc, err := e.document(ctx, file)
		if err != nil {
			e.logger.Warn("rename skipped file", "path", file, "err", err)
			continue
		}
		t := doc.Tree
		var edits []protocol.TextEdit
		for _, id := range occurrences(t, name, fold) {
			if rng, ok := editRange(t, id); ok {
				edits = append(edits, protocol.TextEdit{Range: t.ProtocolRange(rng), NewText: newName})
			}
		}
		if len(edits) > 0 {
			changes[fileURI(doc.Path)] = edits
		}
	}
	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// validName reports whether s can stand as an unquoted name.
func validName(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\r\n()\"#$;{}[]\\")
}

// occurrences returns the command names, variables and argument values of t
// equal to name, in source order. fold compares case-insensitively.
func occurrences(t *syntax.Tree, name string, fold bool) []syntax.NodeID {
	var out []syntax.NodeID
	t.Walk(t.Root(), func(id syntax.NodeID) bool {
		var text string
		switch t.Kind(id) {
		case syntax.KindIdentifier, syntax.KindVariable:
			text = t.Text(id)
		case syntax.KindArgument:
			text = syntax.ArgumentValue(t, id)
		default:
			return true
		}
		if text == name || (fold && strings.EqualFold(text, name)) {
			out = append(out, id)
		}
		return true
	})
	return out
}

// editRange returns the span replaced when renaming id: the inside of a
// quoted argument, the whole of anything else. Bracket arguments are left
// alone.
func editRange(t *syntax.Tree, id syntax.NodeID) (syntax.Range, bool) {
	if t.Kind(id) != syntax.KindArgument {
		return t.Range(id), true
	}
	inner := t.Child(id, 0)
	switch t.Kind(inner) {
	case syntax.KindQuotedArgument:
		elem := t.ChildOfKind(inner, syntax.KindQuotedElement)
		if elem == syntax.NoNode {
			return syntax.Range{}, false
		}
		return t.Range(elem), true
	case syntax.KindBracketArgument:
		return syntax.Range{}, false
	}
	return t.Range(id), true
}
