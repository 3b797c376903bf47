package cmakels

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/syntax"
)

// longLine matches the line-length warnings of the built-in style check
// ("line length 92 exceeds 80") and of cmake-lint ("Line too long (92/80)").
var longLine = regexp.MustCompile(`line length \d+ exceeds (\d+)|\(\d+/(\d+)\)`)

// CodeActions returns the quick fixes for diags in path. A line-length
// warning is fixed by rewrapping the argument list of the command on that
// line so each line stays within the limit.
func (e *Engine) CodeActions(ctx context.Context, path string, diags []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []protocol.CodeAction
	for _, diag := range diags {
		m := longLine.FindStringSubmatch(diag.Message)
		if m == nil {
			continue
		}
		limit, err := strconv.Atoi(m[1] + m[2])
		if err != nil || limit <= 0 {
			continue
		}
		edit, ok := wrapArguments(d.Tree, int(diag.Range.Start.Line), limit)
		if !ok {
			continue
		}
		kind := protocol.CodeActionKindQuickFix
		out = append(out, protocol.CodeAction{
			Title:       "Wrap arguments to fit the line length",
			Kind:        &kind,
			Diagnostics: []protocol.Diagnostic{diag},
			Edit: &protocol.WorkspaceEdit{Changes: map[protocol.DocumentUri][]protocol.TextEdit{
				fileURI(d.Path): {edit},
			}},
		})
	}
	return out, nil
}

// wrapArguments rewrites the argument list of the first command touching
// line. Arguments keep their order and text; a new line, indented to the
// list's opening column, starts wherever the next argument would cross
// limit. Lists holding comments or multi-line arguments are not touched.
func wrapArguments(t *syntax.Tree, line, limit int) (protocol.TextEdit, bool) {
	list := syntax.NoNode
	for _, cmd := range syntax.Commands(t, t.Root()) {
		r := t.Range(cmd)
		if r.Start.Line <= line && line <= r.End.Line {
			list = t.ChildOfKind(cmd, syntax.KindArgumentList)
			break
		}
	}
	if list == syntax.NoNode {
		return protocol.TextEdit{}, false
	}

	rng := t.Range(list)
	prefix := lineAt(t, rng.Start.Line)
	if rng.Start.Column > len(prefix) {
		return protocol.TextEdit{}, false
	}
	indent := utf8.RuneCount(prefix[:rng.Start.Column])

	var b strings.Builder
	width := indent
	prev := syntax.KindLParen
	for _, c := range t.Children(list) {
		k := t.Kind(c)
		if k.IsComment() || !t.Range(c).SingleLine() {
			return protocol.TextEdit{}, false
		}
		text := t.Text(c)
		n := utf8.RuneCountInString(text)
		switch {
		case b.Len() == 0:
		case prev == syntax.KindLParen || k == syntax.KindRParen:
			if width+n > limit {
				b.WriteString("\n" + strings.Repeat(" ", indent))
				width = indent
			}
		case width+1+n > limit:
			b.WriteString("\n" + strings.Repeat(" ", indent))
			width = indent
		default:
			b.WriteByte(' ')
			width++
		}
		b.WriteString(text)
		width += n
		prev = k
	}

	newText := b.String()
	if newText == t.Text(list) {
		return protocol.TextEdit{}, false
	}
	return protocol.TextEdit{Range: t.ProtocolRange(rng), NewText: newText}, true
}

// lineAt returns the text of a zero-based line of t's source.
func lineAt(t *syntax.Tree, line int) []byte {
	lines := syntax.Lines(t.Source())
	if line < 0 || line >= len(lines) {
		return nil
	}
	return []byte(lines[line])
}
