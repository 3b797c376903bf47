package position

import (
	"strings"

	"github.com/jward/cmakels/internal/syntax"
)

// keywordCommands maps the lower-cased names of commands whose arguments have
// a known meaning to the category of their first argument.
var keywordCommands = map[string]Kind{
	"find_package":               FindPackageName,
	"include":                    IncludeArgument,
	"add_subdirectory":           SubdirectoryArgument,
	"target_include_directories": TargetIncludeArgument,
	"target_link_libraries":      TargetLinkArgument,
	"pkg_check_modules":          PkgConfigArgument,
}

// KeywordCategory returns the category of the first argument of the named
// command, if the command is a keyword command.
func KeywordCategory(command string) (Kind, bool) {
	k, ok := keywordCommands[strings.ToLower(command)]
	return k, ok
}

// Classify returns the category of the token at p. It never fails: positions
// outside every node, or in places with no meaning, are Unclassified.
func Classify(t *syntax.Tree, p syntax.Point) Category {
	id := t.NodeAt(p)
	if id == syntax.NoNode {
		return Unclassified
	}
	for cur := id; cur != syntax.NoNode; cur = t.Parent(cur) {
		k := t.Kind(cur)
		if k.IsComment() {
			return Comment
		}
		if k == syntax.KindVariableRef {
			return VariableOrFunctionReference
		}
		if k.IsCommand() {
			break
		}
	}

	cmd := syntax.EnclosingCommand(t, id)
	if cmd == syntax.NoNode {
		return Unclassified
	}
	name, nameID := syntax.CommandName(t, cmd)
	keyword, isKeyword := KeywordCategory(name)

	if id == nameID {
		if isKeyword || t.Kind(cmd) != syntax.KindNormalCommand {
			return Unclassified
		}
		return VariableOrFunctionReference
	}

	idx := argumentIndex(t, cmd, id, p)

	switch t.Kind(cmd) {
	case syntax.KindNormalCommand:
	case syntax.KindFunctionCommand, syntax.KindMacroCommand:
		if idx == 0 {
			return FunctionOrMacroNameDeclaration
		}
		return VariableOrFunctionReference
	default:
		// if, elseif, while, foreach and the other block commands.
		return VariableOrFunctionReference
	}

	if !isKeyword {
		return VariableOrFunctionReference
	}
	if idx == 0 {
		return keyword
	}
	switch keyword {
	case FindPackageName:
		args := syntax.Arguments(t, cmd)
		return FindPackageComponent{Package: syntax.ArgumentValue(t, args[0])}
	case IncludeArgument, SubdirectoryArgument:
		return ArgumentGeneric
	}
	return keyword
}

// argumentIndex returns the index of the argument containing id. A position
// between arguments counts as the argument about to be typed, so an empty
// argument list yields 0.
func argumentIndex(t *syntax.Tree, cmd, id syntax.NodeID, p syntax.Point) int {
	args := syntax.Arguments(t, cmd)
	for i, a := range args {
		if isAncestor(t, a, id) {
			return i
		}
	}
	n := 0
	for _, a := range args {
		if t.Range(a).End.Before(p) {
			n++
		}
	}
	return n
}

func isAncestor(t *syntax.Tree, anc, id syntax.NodeID) bool {
	for cur := id; cur != syntax.NoNode; cur = t.Parent(cur) {
		if cur == anc {
			return true
		}
	}
	return false
}
