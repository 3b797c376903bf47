package syntax

import (
	"bytes"
	"context"
	"strings"
)

// Parser turns source text into a Tree. Implementations never fail on
// malformed input; syntax problems surface as error nodes in the tree.
type Parser interface {
	Parse(ctx context.Context, src []byte) (*Tree, error)
}

// CMakeParser is the native CMake parser. The zero value is ready to use.
type CMakeParser struct{}

// NewParser returns the native CMake parser.
func NewParser() *CMakeParser {
	return &CMakeParser{}
}

// Parse implements Parser.
func (*CMakeParser) Parse(_ context.Context, src []byte) (*Tree, error) {
	return Parse(src), nil
}

// blockSpec describes a block construct such as function()...endfunction().
type blockSpec struct {
	def     Kind
	header  Kind
	inner   map[string]Kind // else/elseif style separators
	end     string
	endKind Kind
}

func (s *blockSpec) closes(name string) bool {
	if name == s.end {
		return true
	}
	_, ok := s.inner[name]
	return ok
}

var blockSpecs = map[string]*blockSpec{
	"function": {def: KindFunctionDef, header: KindFunctionCommand, end: "endfunction", endKind: KindEndFunctionCommand},
	"macro":    {def: KindMacroDef, header: KindMacroCommand, end: "endmacro", endKind: KindEndMacroCommand},
	"foreach":  {def: KindForeachLoop, header: KindForeachCommand, end: "endforeach", endKind: KindEndForeachCommand},
	"while":    {def: KindWhileLoop, header: KindWhileCommand, end: "endwhile", endKind: KindEndWhileCommand},
	"block":    {def: KindBlockDef, header: KindBlockCommand, end: "endblock", endKind: KindEndBlockCommand},
	"if": {
		def:    KindIfCondition,
		header: KindIfCommand,
		inner: map[string]Kind{
			"elseif": KindElseIfCommand,
			"else":   KindElseCommand,
		},
		end:     "endif",
		endKind: KindEndIfCommand,
	},
}

// strayKinds maps separator and terminator names to their kinds, used when
// one shows up without a matching open block.
var strayKinds = func() map[string]Kind {
	m := make(map[string]Kind)
	for _, spec := range blockSpecs {
		m[spec.end] = spec.endKind
		for name, k := range spec.inner {
			m[name] = k
		}
	}
	return m
}()

// Parse parses CMake source into a Tree. It always returns a tree: unknown
// tokens, unterminated commands and unbalanced blocks become error nodes
// while the surrounding statements parse normally.
func Parse(src []byte) *Tree {
	own := make([]byte, len(src))
	copy(own, src)
	p := &parser{src: own, b: newBuilder(own)}
	root := p.b.open(KindSourceFile, NoNode, 0)
	p.statements(root, nil)
	p.b.close(root, len(own))
	return p.b.finish()
}

type parser struct {
	src     []byte
	pos     int
	lastEnd int
	b       *builder
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) leaf(kind Kind, parent NodeID, start, end int) NodeID {
	id := p.b.leaf(kind, parent, start, end)
	p.lastEnd = end
	return id
}

func (p *parser) closeAt(id NodeID, end int) {
	p.b.close(id, end)
	if end > p.lastEnd {
		p.lastEnd = end
	}
}

// skipSpace skips blanks and newlines and reports whether a newline was seen.
func (p *parser) skipSpace() bool {
	newline := false
	for !p.eof() {
		switch p.peek() {
		case '\n':
			newline = true
		case ' ', '\t', '\r':
		default:
			return newline
		}
		p.pos++
	}
	return newline
}

func (p *parser) skipBlanks() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// peekCommand reports whether the input at pos is an identifier followed by
// optional blanks and an opening parenthesis.
func (p *parser) peekCommand() (string, bool) {
	i := p.pos
	if i >= len(p.src) || !isIdentStart(p.src[i]) {
		return "", false
	}
	j := i
	for j < len(p.src) && isIdentChar(p.src[j]) {
		j++
	}
	k := j
	for k < len(p.src) && (p.src[k] == ' ' || p.src[k] == '\t') {
		k++
	}
	if k < len(p.src) && p.src[k] == '(' {
		return string(p.src[i:j]), true
	}
	return "", false
}

// statements parses statements into parent until EOF or until a command
// closing one of the open blocks is reached. The closing command is left
// unconsumed and its lower-cased name returned.
func (p *parser) statements(parent NodeID, open []*blockSpec) string {
	for {
		p.skipSpace()
		if p.eof() {
			return ""
		}
		c := p.peek()
		if c == '#' {
			p.comment(parent)
			continue
		}
		name, ok := p.peekCommand()
		if !ok {
			p.garbage(parent)
			continue
		}
		lower := strings.ToLower(name)
		for i := len(open) - 1; i >= 0; i-- {
			if open[i].closes(lower) {
				return lower
			}
		}
		if spec, ok := blockSpecs[lower]; ok {
			if stop := p.block(parent, spec, open); stop != "" {
				return stop
			}
			continue
		}
		if kind, ok := strayKinds[lower]; ok {
			errID := p.b.open(KindError, parent, p.pos)
			p.b.markError(errID)
			p.command(errID, kind)
			p.closeAt(errID, p.lastEnd)
			continue
		}
		p.command(parent, KindNormalCommand)
	}
}

// block parses a block construct. A block cut short by EOF or by the
// terminator of an enclosing block is flagged as an error; in the latter case
// the terminator name is returned for the enclosing block to consume.
func (p *parser) block(parent NodeID, spec *blockSpec, open []*blockSpec) string {
	def := p.b.open(spec.def, parent, p.pos)
	p.command(def, spec.header)
	nested := append(open[:len(open):len(open)], spec)
	for {
		p.skipSpace()
		body := p.b.open(KindBody, def, p.pos)
		stop := p.statements(body, nested)
		p.b.close(body, p.lastEnd)
		p.b.dropIfEmpty(body)

		switch {
		case stop == "":
			p.b.markError(def)
			p.closeAt(def, p.lastEnd)
			return ""
		case stop == spec.end:
			p.command(def, spec.endKind)
			p.closeAt(def, p.lastEnd)
			return ""
		case spec.inner[stop] != "":
			p.command(def, spec.inner[stop])
		default:
			p.b.markError(def)
			p.closeAt(def, p.lastEnd)
			return stop
		}
	}
}

// command parses `name ( args... )` into a node of the given kind. The caller
// has already checked the input with peekCommand.
func (p *parser) command(parent NodeID, kind Kind) NodeID {
	start := p.pos
	cmd := p.b.open(kind, parent, start)
	end := start
	for end < len(p.src) && isIdentChar(p.src[end]) {
		end++
	}
	p.leaf(KindIdentifier, cmd, start, end)
	p.pos = end
	p.skipBlanks()
	p.leaf(KindLParen, cmd, p.pos, p.pos+1)
	p.pos++

	if p.arguments(cmd) {
		p.leaf(KindRParen, cmd, p.pos, p.pos+1)
		p.pos++
	} else {
		p.b.markError(cmd)
	}
	p.closeAt(cmd, p.lastEnd)
	return cmd
}

// arguments parses the argument list of cmd and reports whether the closing
// parenthesis was found. An unterminated list stops at EOF or at a line that
// starts a new command, so one missing parenthesis does not swallow the rest
// of the file. A line that only looks like a command, such as `AND (B OR C)`
// inside a condition, is kept when the list still closes further on.
func (p *parser) arguments(cmd NodeID) bool {
	list := NoNode
	ensure := func() NodeID {
		if list == NoNode {
			list = p.b.open(KindArgumentList, cmd, p.pos)
		}
		return list
	}
	finish := func() {
		if list != NoNode {
			p.closeAt(list, p.lastEnd)
		}
	}

	depth := 0
	for {
		newline := p.skipSpace()
		if p.eof() {
			finish()
			return false
		}
		if newline && depth == 0 {
			if _, ok := p.peekCommand(); ok && !p.listCloses() {
				finish()
				return false
			}
		}
		switch c := p.peek(); {
		case c == ')':
			if depth == 0 {
				finish()
				return true
			}
			depth--
			p.leaf(KindRParen, ensure(), p.pos, p.pos+1)
			p.pos++
		case c == '(':
			depth++
			p.leaf(KindLParen, ensure(), p.pos, p.pos+1)
			p.pos++
		case c == '#':
			p.comment(ensure())
		case c == '"':
			p.quoted(ensure())
		case c == '[' && p.bracketLevel(p.pos) >= 0:
			p.bracket(ensure())
		default:
			p.unquoted(ensure())
		}
	}
}

// listCloses reports whether a parenthesis closing the current argument list
// follows pos. Quoted strings, bracket arguments, comments and escapes are
// skipped; nested parentheses must balance first.
func (p *parser) listCloses() bool {
	depth := 0
	atToken := true
	for i := p.pos; i < len(p.src); {
		c := p.src[i]
		switch {
		case c == '\\':
			i += 2
			atToken = false
			continue
		case c == '"':
			i++
			for i < len(p.src) && p.src[i] != '"' {
				if p.src[i] == '\\' {
					i++
				}
				i++
			}
		case c == '[' && atToken && p.bracketLevel(i) >= 0:
			level := p.bracketLevel(i)
			end, ok := p.bracketClose(i+level+2, level)
			if !ok {
				return false
			}
			i = end
			atToken = false
			continue
		case c == '#' && atToken:
			if level := p.bracketLevel(i + 1); level >= 0 {
				end, ok := p.bracketClose(i+level+3, level)
				if !ok {
					return false
				}
				i = end
				continue
			}
			for i < len(p.src) && p.src[i] != '\n' {
				i++
			}
			continue
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return true
			}
			depth--
		}
		atToken = c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')'
		i++
	}
	return false
}

// bracketLevel returns the number of '=' in a bracket opener `[==[` at i, or
// -1 if there is none.
func (p *parser) bracketLevel(i int) int {
	if i >= len(p.src) || p.src[i] != '[' {
		return -1
	}
	j := i + 1
	for j < len(p.src) && p.src[j] == '=' {
		j++
	}
	if j < len(p.src) && p.src[j] == '[' {
		return j - i - 1
	}
	return -1
}

// bracketClose returns the offset just past the bracket closer for level
// starting the search at from, and whether it was found.
func (p *parser) bracketClose(from, level int) (int, bool) {
	closer := "]" + strings.Repeat("=", level) + "]"
	if from > len(p.src) {
		return len(p.src), false
	}
	idx := bytes.Index(p.src[from:], []byte(closer))
	if idx < 0 {
		return len(p.src), false
	}
	return from + idx + len(closer), true
}

func (p *parser) bracket(parent NodeID) {
	start := p.pos
	level := p.bracketLevel(start)
	end, ok := p.bracketClose(start+level+2, level)
	arg := p.b.open(KindArgument, parent, start)
	br := p.leaf(KindBracketArgument, arg, start, end)
	if !ok {
		p.b.markError(br)
	}
	p.pos = end
	p.closeAt(arg, end)
}

func (p *parser) comment(parent NodeID) {
	start := p.pos
	if level := p.bracketLevel(start + 1); level >= 0 {
		end, ok := p.bracketClose(start+level+3, level)
		id := p.leaf(KindBracketComment, parent, start, end)
		if !ok {
			p.b.markError(id)
		}
		p.pos = end
		return
	}
	end := start
	for end < len(p.src) && p.src[end] != '\n' {
		end++
	}
	p.pos = end
	for end > start && p.src[end-1] == '\r' {
		end--
	}
	p.leaf(KindLineComment, parent, start, end)
}

// garbage consumes the rest of the line as a single error node.
func (p *parser) garbage(parent NodeID) {
	start := p.pos
	end := start
	for end < len(p.src) && p.src[end] != '\n' {
		end++
	}
	p.pos = end
	for end > start+1 && (p.src[end-1] == ' ' || p.src[end-1] == '\t' || p.src[end-1] == '\r') {
		end--
	}
	id := p.leaf(KindError, parent, start, end)
	p.b.markError(id)
}

func (p *parser) quoted(parent NodeID) {
	start := p.pos
	arg := p.b.open(KindArgument, parent, start)
	q := p.b.open(KindQuotedArgument, arg, start)
	p.pos++
	elemStart := p.pos
	elem := p.b.open(KindQuotedElement, q, elemStart)
	closed := false
	for !p.eof() {
		c := p.peek()
		if c == '\\' {
			p.pos = min(p.pos+2, len(p.src))
			continue
		}
		if c == '"' {
			closed = true
			break
		}
		if c == '$' && p.varRef(elem) {
			continue
		}
		p.pos++
	}
	if p.pos > elemStart {
		p.b.close(elem, p.pos)
	} else {
		p.b.dropIfEmpty(elem)
	}
	if closed {
		p.pos++
	} else {
		p.b.markError(q)
	}
	p.closeAt(q, p.pos)
	p.closeAt(arg, p.pos)
}

func (p *parser) unquoted(parent NodeID) {
	start := p.pos
	arg := p.b.open(KindArgument, parent, start)
	u := p.b.open(KindUnquotedArgument, arg, start)
loop:
	for !p.eof() {
		switch c := p.peek(); c {
		case ' ', '\t', '\n', '\r', '(', ')':
			break loop
		case '\\':
			p.pos = min(p.pos+2, len(p.src))
		case '$':
			if !p.varRef(u) {
				p.pos++
			}
		case '"':
			// legacy quoting inside an unquoted argument: a"b c"d
			end := p.pos + 1
			for end < len(p.src) && p.src[end] != '"' && p.src[end] != '\n' {
				end++
			}
			if end < len(p.src) && p.src[end] == '"' {
				p.pos = end + 1
			} else {
				p.pos++
			}
		default:
			p.pos++
		}
	}
	p.closeAt(u, p.pos)
	p.closeAt(arg, p.pos)
}

// refPrefix returns the kind and prefix length of a variable reference
// opener at i.
func (p *parser) refPrefix(i int) (Kind, int) {
	rest := p.src[i:]
	switch {
	case len(rest) >= 2 && rest[0] == '$' && rest[1] == '{':
		return KindNormalVar, 2
	case bytes.HasPrefix(rest, []byte("$ENV{")):
		return KindEnvVar, 5
	case bytes.HasPrefix(rest, []byte("$CACHE{")):
		return KindCacheVar, 7
	}
	return "", 0
}

// matchBrace returns the offset of the '}' closing a reference whose body
// starts at from, or -1 when the reference is not closed on its own token.
func (p *parser) matchBrace(from int) int {
	depth := 1
	for i := from; i < len(p.src); i++ {
		switch c := p.src[i]; c {
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '$':
			if _, n := p.refPrefix(i); n > 0 {
				depth++
				i += n - 1
			}
		case ' ', '\t', '\n', '\r', '"', '(', ')':
			return -1
		}
	}
	return -1
}

// varRef parses a ${...}, $ENV{...} or $CACHE{...} reference at pos into
// parent. It reports false and consumes nothing when the text is not a
// well-formed reference.
func (p *parser) varRef(parent NodeID) bool {
	start := p.pos
	kind, n := p.refPrefix(start)
	if n == 0 {
		return false
	}
	closeIdx := p.matchBrace(start + n)
	if closeIdx < 0 {
		return false
	}
	ref := p.b.open(KindVariableRef, parent, start)
	v := p.b.open(kind, ref, start)
	name := p.b.open(KindVariable, v, start+n)
	p.pos = start + n
	for p.pos < closeIdx {
		if p.src[p.pos] == '$' && p.varRef(name) {
			continue
		}
		p.pos++
	}
	p.b.close(name, closeIdx)
	p.pos = closeIdx + 1
	p.b.close(v, p.pos)
	p.closeAt(ref, p.pos)
	return true
}
