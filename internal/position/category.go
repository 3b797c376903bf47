// Package position classifies a cursor position in a CMake syntax tree by
// the role the token under it plays: a package name, an include target, a
// variable reference, and so on. Editor features dispatch on the result.
package position

import "fmt"

// Category is the semantic role of a position. It is a closed set: the
// variants are the Kind constants and FindPackageComponent.
type Category interface {
	isCategory()
	String() string
}

// Kind enumerates the categories that carry no payload.
type Kind int

const (
	Unclassified Kind = iota
	VariableOrFunctionReference
	FunctionOrMacroNameDeclaration
	ArgumentGeneric
	FindPackageName
	PkgConfigArgument
	IncludeArgument
	SubdirectoryArgument
	TargetIncludeArgument
	TargetLinkArgument
	Comment
)

var kindNames = [...]string{
	Unclassified:                   "unclassified",
	VariableOrFunctionReference:    "variable_or_function_reference",
	FunctionOrMacroNameDeclaration: "function_or_macro_name_declaration",
	ArgumentGeneric:                "argument_generic",
	FindPackageName:                "find_package_name",
	PkgConfigArgument:              "pkg_config_argument",
	IncludeArgument:                "include_argument",
	SubdirectoryArgument:           "subdirectory_argument",
	TargetIncludeArgument:          "target_include_argument",
	TargetLinkArgument:             "target_link_argument",
	Comment:                        "comment",
}

func (Kind) isCategory() {}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FindPackageComponent is a find_package argument after the package name.
// Package is the package the component belongs to.
type FindPackageComponent struct {
	Package string
}

func (FindPackageComponent) isCategory() {}

func (c FindPackageComponent) String() string {
	return "find_package_component(" + c.Package + ")"
}

// IsPackage reports whether c refers to a CMake package: a find_package
// argument or a target_* argument that may name one.
func IsPackage(c Category) bool {
	switch c {
	case FindPackageName, TargetIncludeArgument, TargetLinkArgument:
		return true
	}
	_, ok := c.(FindPackageComponent)
	return ok
}
