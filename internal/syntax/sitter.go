package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SitterParser adapts a tree-sitter grammar to the Parser interface. The
// resulting sitter tree is copied into an arena Tree and released, so no
// sitter handles escape the call.
type SitterParser struct {
	lang *sitter.Language
}

// NewSitterParser returns a Parser backed by the given tree-sitter grammar,
// typically tree-sitter-cmake.
func NewSitterParser(lang *sitter.Language) *SitterParser {
	return &SitterParser{lang: lang}
}

// Parse implements Parser. A fresh sitter parser is created per call since
// sitter parsers are not safe for concurrent use.
func (p *SitterParser) Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: tree-sitter parse: %w", err)
	}
	defer tree.Close()

	own := make([]byte, len(src))
	copy(own, src)
	return FromSitter(tree.RootNode(), own), nil
}

// FromSitter copies a sitter node and its descendants into a new Tree. src
// must be the source the node was parsed from.
func FromSitter(root *sitter.Node, src []byte) *Tree {
	t := &Tree{src: src}
	if root == nil {
		return t
	}
	var visit func(n *sitter.Node, parent NodeID)
	visit = func(n *sitter.Node, parent NodeID) {
		id := NodeID(len(t.nodes))
		sp, ep := n.StartPoint(), n.EndPoint()
		t.nodes = append(t.nodes, node{
			kind:      Kind(n.Type()),
			startByte: int(n.StartByte()),
			endByte:   int(n.EndByte()),
			rng: Range{
				Start: Point{Line: int(sp.Row), Column: int(sp.Column)},
				End:   Point{Line: int(ep.Row), Column: int(ep.Column)},
			},
			parent:   parent,
			isError:  n.IsError() || n.IsMissing(),
			hasError: n.HasError() || n.IsMissing(),
		})
		if parent != NoNode {
			t.nodes[parent].children = append(t.nodes[parent].children, id)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i), id)
		}
	}
	visit(root, NoNode)
	return t
}
