// Package index holds the per-file summaries produced by the definition
// scanner, the caches they live in and the include graph used for
// cross-file visibility.
package index

import "github.com/jward/cmakels/internal/syntax"

// DefKind classifies a definition.
type DefKind int

const (
	Function DefKind = iota
	Macro
	Variable
)

func (k DefKind) String() string {
	switch k {
	case Function:
		return "function"
	case Macro:
		return "macro"
	case Variable:
		return "variable"
	}
	return "unknown"
}

// Location is a span in a file.
type Location struct {
	Path  string
	Range syntax.Range
}

// Definition is a named function, macro or variable.
type Definition struct {
	Name     string
	Kind     DefKind
	Location Location
}

// Include is an include() edge out of a file, already resolved.
type Include struct {
	Path string
	// Module marks a built-in module, cached in the ModuleCache.
	Module bool
}

// PackageRef is a find_package() call.
type PackageRef struct {
	Name       string
	Components []string
}

// Summary is what a single file contributes on its own: its definitions,
// the files it includes and the packages it finds. Included content is not
// merged in.
type Summary struct {
	Definitions []Definition
	Includes    []Include
	Packages    []PackageRef
}
