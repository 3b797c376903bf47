package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// formatDefinitionsText formats CLIDefinition results as aligned columns.
func formatDefinitionsText(w io.Writer, defs []CLIDefinition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE\tCOL")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", d.Name, d.Kind, d.File, d.StartLine, d.StartCol)
	}
	tw.Flush()
}

// formatDiagnosticsText formats CLIDiagnostic results as
// "file:line:col: severity: message" lines.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", d.File, d.Line, d.Col, d.Severity, d.Message)
	}
}

// formatPackagesText formats CLIPackage results as aligned columns.
func formatPackagesText(w io.Writer, pkgs []CLIPackage) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tKIND\tORIGIN\tLOCATION")
	for _, p := range pkgs {
		version := "-"
		if p.Version != nil {
			version = *p.Version
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, version, p.Kind, p.Origin, p.Location)
	}
	tw.Flush()
}

// formatLinksText formats CLILink results as aligned columns.
func formatLinksText(w io.Writer, links []CLILink) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tCOL\tTARGET\tTOOLTIP")
	for _, l := range links {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", l.Line, l.Col, l.Target, l.Tooltip)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDefinition:
		formatDefinitionsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIPackage:
		formatPackagesText(w, v)
	case []CLILink:
		formatLinksText(w, v)
	case CLIClassification:
		fmt.Fprintf(w, "%s:%d:%d: %s\n", v.File, v.Line, v.Col, v.Category)
	case CLITree:
		fmt.Fprint(w, v.Root.String())
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
