package main

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels"
)

// CLIResult is the top-level JSON envelope for all commands that print
// results.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLILocation is a JSON-friendly source range.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIDefinition is a JSON-friendly definition.
type CLIDefinition struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	CLILocation
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Severity string `json:"severity"`
	Source   string `json:"source,omitempty"`
	Message  string `json:"message"`
}

// CLIPackage is a JSON-friendly installed package.
type CLIPackage struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Origin   string  `json:"origin"`
	Location string  `json:"location"`
	Version  *string `json:"version,omitempty"`
	Config   string  `json:"config,omitempty"`
}

// CLILink is a JSON-friendly document link.
type CLILink struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Target  string `json:"target"`
	Tooltip string `json:"tooltip,omitempty"`
}

// CLIClassification is the category of one cursor position.
type CLIClassification struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Category string `json:"category"`
}

// CLITreeDir is a JSON-friendly add_subdirectory tree node.
type CLITreeDir struct {
	Name     string       `json:"name"`
	ListFile string       `json:"list_file"`
	Children []CLITreeDir `json:"children,omitempty"`
}

// CLITree wraps the tree so the text formatter can render it with
// connectors.
type CLITree struct {
	Root *cmakels.TreeDir `json:"-"`
	CLITreeDir
}

func toCLIDefinition(d cmakels.Definition) CLIDefinition {
	r := d.Location.Range
	return CLIDefinition{
		Name: d.Name,
		Kind: d.Kind.String(),
		CLILocation: CLILocation{
			File:      d.Location.Path,
			StartLine: r.Start.Line,
			StartCol:  r.Start.Column,
			EndLine:   r.End.Line,
			EndCol:    r.End.Column,
		},
	}
}

func toCLIDefinitions(defs []cmakels.Definition) []CLIDefinition {
	out := make([]CLIDefinition, len(defs))
	for i, d := range defs {
		out[i] = toCLIDefinition(d)
	}
	return out
}

func severityName(s *protocol.DiagnosticSeverity) string {
	if s == nil {
		return "error"
	}
	switch *s {
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityInformation:
		return "info"
	case protocol.DiagnosticSeverityHint:
		return "hint"
	default:
		return "error"
	}
}

func toCLIDiagnostics(path string, diags []protocol.Diagnostic) []CLIDiagnostic {
	out := make([]CLIDiagnostic, len(diags))
	for i, d := range diags {
		out[i] = CLIDiagnostic{
			File:     path,
			Line:     int(d.Range.Start.Line),
			Col:      int(d.Range.Start.Character),
			Severity: severityName(d.Severity),
			Message:  d.Message,
		}
		if d.Source != nil {
			out[i].Source = *d.Source
		}
	}
	return out
}

func toCLIPackages(recs []*cmakels.PackageRecord) []CLIPackage {
	out := make([]CLIPackage, len(recs))
	for i, r := range recs {
		out[i] = CLIPackage{
			Name:     r.Name,
			Kind:     r.Kind.String(),
			Origin:   r.Origin.String(),
			Location: r.Location,
			Version:  r.Version,
			Config:   r.ConfigFile(),
		}
	}
	return out
}

func toCLILinks(links []protocol.DocumentLink) []CLILink {
	out := make([]CLILink, len(links))
	for i, l := range links {
		out[i] = CLILink{
			Line: int(l.Range.Start.Line),
			Col:  int(l.Range.Start.Character),
		}
		if l.Target != nil {
			out[i].Target = uriPath(string(*l.Target))
		}
		if l.Tooltip != nil {
			out[i].Tooltip = *l.Tooltip
		}
	}
	return out
}

func toCLITree(t *cmakels.TreeDir) CLITreeDir {
	out := CLITreeDir{Name: t.Name, ListFile: t.ListFile}
	for _, c := range t.Children {
		out.Children = append(out.Children, toCLITree(c))
	}
	return out
}
