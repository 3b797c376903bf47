package cmakels

import (
	"context"
	"fmt"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/position"
)

// Hover returns markdown describing the token at p, or nil when there is
// nothing to say about it.
func (e *Engine) Hover(ctx context.Context, path string, p Point) (*protocol.Hover, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	name, id := tokenAt(d.Tree, p)
	if name == "" {
		return nil, nil
	}
	cat := position.Classify(d.Tree, p)

	var text string
	switch {
	case cat == position.PkgConfigArgument:
		if rec, ok := e.pkgConfigRecord(name); ok {
			text = fmt.Sprintf("Packagename: %s\nPackagepath: %s\n", rec.Name, rec.Path)
		}
	case position.IsPackage(cat):
		if rec, ok := e.packageRecord(cat, name); ok {
			version := "Undefined"
			if rec.Version != nil {
				version = *rec.Version
			}
			loc := rec.ConfigFile()
			if loc == "" {
				loc = rec.Location
			}
			text = fmt.Sprintf("Packagename: %s\nPackagepath: %s\nPackageVersion: %s\n", rec.Name, loc, version)
		}
	case cat == position.VariableOrFunctionReference, cat == position.FunctionOrMacroNameDeclaration:
		text = e.describe(ctx, d, name)
	}
	if text == "" {
		return nil, nil
	}
	rng := d.Tree.ProtocolRange(d.Tree.Range(id))
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: text},
		Range:    &rng,
	}, nil
}

// describe lists the visible definitions of name. Names with no definition
// fall back to the build cache and then to cmake's own help.
func (e *Engine) describe(ctx context.Context, d *Document, name string) string {
	defs := matchName(e.visible(ctx, d, nil), name)
	if len(defs) > 0 {
		var b strings.Builder
		for i, def := range defs {
			if i > 0 {
				b.WriteString("\n")
			}
			loc := def.Location
			fmt.Fprintf(&b, "%s `%s`\n\ndefined in %s:%d\n", def.Kind, def.Name, loc.Path, loc.Range.Start.Line+1)
		}
		return b.String()
	}
	if ent, ok := e.buildCache().Lookup(name); ok {
		return fmt.Sprintf("cache entry `%s`\n\ntype: %s, value: %s\n", ent.Name, ent.Type, ent.Value)
	}
	if e.isBuiltinCommand(ctx, name) {
		return e.commandHelp(ctx, name)
	}
	return ""
}

// commandHelp returns `cmake --help-command name`, memoized per command.
func (e *Engine) commandHelp(ctx context.Context, name string) string {
	name = strings.ToLower(name)
	e.helpMu.Lock()
	doc, ok := e.help[name]
	e.helpMu.Unlock()
	if ok {
		return doc
	}
	out, err := e.runner.Run(ctx, "cmake", "--help-command", name)
	if err != nil {
		e.logger.Debug("command help unavailable", "name", name, "err", err)
		return ""
	}
	doc = "```\n" + strings.TrimSpace(string(out)) + "\n```\n"
	e.helpMu.Lock()
	e.help[name] = doc
	e.helpMu.Unlock()
	return doc
}
