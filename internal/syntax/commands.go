package syntax

import "strings"

// CommandName returns the name token of a command node and its ID. Block
// headers produced by tree-sitter grammars carry the keyword as an anonymous
// first child, which is handled the same way.
func CommandName(t *Tree, cmd NodeID) (string, NodeID) {
	id := t.Child(cmd, 0)
	if id == NoNode {
		return "", NoNode
	}
	return t.Text(id), id
}

// Arguments returns the argument nodes of a command in source order.
// Parenthesised groups are flattened. Grammars that attach arguments directly
// to the command node, without an argument_list, are supported too.
func Arguments(t *Tree, cmd NodeID) []NodeID {
	var out []NodeID
	var collect func(NodeID)
	collect = func(id NodeID) {
		for _, c := range t.Children(id) {
			switch t.Kind(c) {
			case KindArgument:
				out = append(out, c)
			case KindArgumentList:
				collect(c)
			}
		}
	}
	collect(cmd)
	return out
}

// ArgumentValue returns the textual value of an argument with quoting
// removed. Escapes and variable references are left as written.
func ArgumentValue(t *Tree, arg NodeID) string {
	inner := t.Child(arg, 0)
	if inner == NoNode {
		return t.Text(arg)
	}
	text := t.Text(inner)
	switch t.Kind(inner) {
	case KindQuotedArgument:
		return Unquote(text)
	case KindBracketArgument:
		return unbracket(text)
	}
	return text
}

// Unquote strips one pair of surrounding double quotes, if present.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.TrimPrefix(s, `"`)
}

func unbracket(s string) string {
	if !strings.HasPrefix(s, "[") {
		return s
	}
	level := 0
	for level+1 < len(s) && s[level+1] == '=' {
		level++
	}
	open := level + 2
	closer := "]" + strings.Repeat("=", level) + "]"
	if len(s) < open {
		return s
	}
	body := s[open:]
	body = strings.TrimSuffix(body, closer)
	return strings.TrimPrefix(body, "\n")
}

// Commands returns every command node under id in pre-order, including block
// headers and terminators.
func Commands(t *Tree, id NodeID) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID) bool {
		if t.Kind(n).IsCommand() {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// EnclosingCommand returns the nearest command node at or above id.
func EnclosingCommand(t *Tree, id NodeID) NodeID {
	for cur := id; cur != NoNode; cur = t.Parent(cur) {
		if t.Kind(cur).IsCommand() {
			return cur
		}
	}
	return NoNode
}

// Lines splits source into lines without their terminators.
func Lines(src []byte) []string {
	lines := strings.Split(string(src), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
