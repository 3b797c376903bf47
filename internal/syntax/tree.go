package syntax

import (
	"fmt"
	"strings"
)

// Kind is a node kind. The names mirror tree-sitter-cmake so that trees built
// by the native parser and by SitterParser can be walked by the same code.
type Kind string

const (
	KindSourceFile       Kind = "source_file"
	KindNormalCommand    Kind = "normal_command"
	KindIdentifier       Kind = "identifier"
	KindArgumentList     Kind = "argument_list"
	KindArgument         Kind = "argument"
	KindUnquotedArgument Kind = "unquoted_argument"
	KindQuotedArgument   Kind = "quoted_argument"
	KindQuotedElement    Kind = "quoted_element"
	KindBracketArgument  Kind = "bracket_argument"
	KindVariableRef      Kind = "variable_ref"
	KindNormalVar        Kind = "normal_var"
	KindEnvVar           Kind = "env_var"
	KindCacheVar         Kind = "cache_var"
	KindVariable         Kind = "variable"
	KindLineComment      Kind = "line_comment"
	KindBracketComment   Kind = "bracket_comment"
	KindBody             Kind = "body"
	KindLParen           Kind = "("
	KindRParen           Kind = ")"
	KindError            Kind = "ERROR"

	KindFunctionDef        Kind = "function_def"
	KindFunctionCommand    Kind = "function_command"
	KindEndFunctionCommand Kind = "endfunction_command"
	KindMacroDef           Kind = "macro_def"
	KindMacroCommand       Kind = "macro_command"
	KindEndMacroCommand    Kind = "endmacro_command"
	KindIfCondition        Kind = "if_condition"
	KindIfCommand          Kind = "if_command"
	KindElseIfCommand      Kind = "elseif_command"
	KindElseCommand        Kind = "else_command"
	KindEndIfCommand       Kind = "endif_command"
	KindForeachLoop        Kind = "foreach_loop"
	KindForeachCommand     Kind = "foreach_command"
	KindEndForeachCommand  Kind = "endforeach_command"
	KindWhileLoop          Kind = "while_loop"
	KindWhileCommand       Kind = "while_command"
	KindEndWhileCommand    Kind = "endwhile_command"
	KindBlockDef           Kind = "block_def"
	KindBlockCommand       Kind = "block_command"
	KindEndBlockCommand    Kind = "endblock_command"
)

// IsCommand reports whether k is a command invocation: a normal command or
// the header/footer command of a block.
func (k Kind) IsCommand() bool {
	return strings.HasSuffix(string(k), "_command")
}

// IsComment reports whether k is a line or bracket comment.
func (k Kind) IsComment() bool {
	return k == KindLineComment || k == KindBracketComment
}

// Point is a zero-based line/column position. Columns count bytes.
type Point struct {
	Line   int
	Column int
}

// Before reports whether p sorts strictly before o.
func (p Point) Before(o Point) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open source span. Contains treats the end as inclusive so a
// cursor sitting right after a token still hits it; NodeAt prefers a node
// starting at the cursor over one ending there.
type Range struct {
	Start Point
	End   Point
}

// Contains reports whether p lies within r, end inclusive.
func (r Range) Contains(p Point) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// SingleLine reports whether r starts and ends on the same line.
func (r Range) SingleLine() bool {
	return r.Start.Line == r.End.Line
}

// NodeID indexes a node inside its Tree.
type NodeID int32

// NoNode is returned where a lookup finds nothing.
const NoNode NodeID = -1

type node struct {
	kind      Kind
	rng       Range
	startByte int
	endByte   int
	parent    NodeID
	children  []NodeID
	isError   bool // ERROR or MISSING node
	hasError  bool // self or any descendant is an error
}

// Tree is an arena-owned syntax tree. Nodes are addressed by NodeID and the
// tree owns a copy of the source it was built from; it is immutable once
// returned by a parser and safe for concurrent reads.
type Tree struct {
	src   []byte
	nodes []node
}

// Root returns the root node, or NoNode for an empty tree.
func (t *Tree) Root() NodeID {
	if t == nil || len(t.nodes) == 0 {
		return NoNode
	}
	return 0
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Source returns the source bytes the tree was built from.
func (t *Tree) Source() []byte { return t.src }

func (t *Tree) valid(id NodeID) bool {
	return t != nil && id >= 0 && int(id) < len(t.nodes)
}

// Kind returns the kind of id, or "" for an invalid id.
func (t *Tree) Kind(id NodeID) Kind {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].kind
}

// Range returns the span of id.
func (t *Tree) Range(id NodeID) Range {
	if !t.valid(id) {
		return Range{}
	}
	return t.nodes[id].rng
}

// Parent returns the parent of id, or NoNode for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return NoNode
	}
	return t.nodes[id].parent
}

// Children returns the children of id in source order. The slice must not
// be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].children
}

// ChildCount returns the number of children of id.
func (t *Tree) ChildCount(id NodeID) int {
	return len(t.Children(id))
}

// Child returns the i-th child of id, or NoNode when out of range.
func (t *Tree) Child(id NodeID, i int) NodeID {
	children := t.Children(id)
	if i < 0 || i >= len(children) {
		return NoNode
	}
	return children[i]
}

// ChildOfKind returns the first child of id with kind k.
func (t *Tree) ChildOfKind(id NodeID, k Kind) NodeID {
	for _, c := range t.Children(id) {
		if t.nodes[c].kind == k {
			return c
		}
	}
	return NoNode
}

// Text returns the source text covered by id.
func (t *Tree) Text(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	n := t.nodes[id]
	if n.startByte < 0 || n.endByte > len(t.src) || n.startByte > n.endByte {
		return ""
	}
	return string(t.src[n.startByte:n.endByte])
}

// IsError reports whether id is itself an ERROR or MISSING node.
func (t *Tree) IsError(id NodeID) bool {
	return t.valid(id) && t.nodes[id].isError
}

// HasError reports whether id or any of its descendants is an error.
func (t *Tree) HasError(id NodeID) bool {
	return t.valid(id) && t.nodes[id].hasError
}

// Walk visits id and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (t *Tree) Walk(id NodeID, fn func(NodeID) bool) {
	if !t.valid(id) {
		return
	}
	if !fn(id) {
		return
	}
	for _, c := range t.nodes[id].children {
		t.Walk(c, fn)
	}
}

// NodeAt returns the smallest node containing p, or NoNode when p lies
// outside the root. Where one sibling ends at p and the next starts there,
// the later sibling wins.
func (t *Tree) NodeAt(p Point) NodeID {
	cur := t.Root()
	if cur == NoNode || !t.nodes[cur].rng.Contains(p) {
		return NoNode
	}
	for {
		next := NoNode
		for _, c := range t.nodes[cur].children {
			r := t.nodes[c].rng
			if !r.Contains(p) {
				continue
			}
			if r.End != p {
				next = c
				break
			}
			if next == NoNode {
				next = c
			}
		}
		if next == NoNode {
			return cur
		}
		cur = next
	}
}

// ErrorNodes returns the outermost error nodes. Subtrees without errors are
// skipped and an error node's own descendants are not reported again.
func (t *Tree) ErrorNodes() []NodeID {
	var out []NodeID
	t.Walk(t.Root(), func(id NodeID) bool {
		n := t.nodes[id]
		if !n.hasError {
			return false
		}
		if n.isError {
			out = append(out, id)
			return false
		}
		return true
	})
	return out
}

// builder appends nodes to a Tree. Parents are always added before their
// children, so a reverse sweep can propagate error flags upward.
type builder struct {
	t          *Tree
	lineStarts []int
}

func newBuilder(src []byte) *builder {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &builder{t: &Tree{src: src}, lineStarts: starts}
}

func (b *builder) point(off int) Point {
	lo, hi := 0, len(b.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if b.lineStarts[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Point{Line: lo, Column: off - b.lineStarts[lo]}
}

func (b *builder) open(kind Kind, parent NodeID, start int) NodeID {
	id := NodeID(len(b.t.nodes))
	b.t.nodes = append(b.t.nodes, node{
		kind:      kind,
		parent:    parent,
		startByte: start,
		endByte:   start,
		rng:       Range{Start: b.point(start), End: b.point(start)},
	})
	if parent != NoNode {
		b.t.nodes[parent].children = append(b.t.nodes[parent].children, id)
	}
	return id
}

func (b *builder) close(id NodeID, end int) {
	n := &b.t.nodes[id]
	if end < n.startByte {
		end = n.startByte
	}
	n.endByte = end
	n.rng.End = b.point(end)
}

func (b *builder) leaf(kind Kind, parent NodeID, start, end int) NodeID {
	id := b.open(kind, parent, start)
	b.close(id, end)
	return id
}

func (b *builder) markError(id NodeID) {
	b.t.nodes[id].isError = true
}

// dropIfEmpty removes id when it is the most recently added node and has no
// children.
func (b *builder) dropIfEmpty(id NodeID) bool {
	if int(id) != len(b.t.nodes)-1 || len(b.t.nodes[id].children) > 0 {
		return false
	}
	parent := b.t.nodes[id].parent
	if parent != NoNode {
		kids := b.t.nodes[parent].children
		b.t.nodes[parent].children = kids[:len(kids)-1]
	}
	b.t.nodes = b.t.nodes[:id]
	return true
}

func (b *builder) finish() *Tree {
	nodes := b.t.nodes
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].isError {
			nodes[i].hasError = true
		}
		if nodes[i].hasError && nodes[i].parent != NoNode {
			nodes[nodes[i].parent].hasError = true
		}
	}
	return b.t
}
