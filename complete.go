package cmakels

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/position"
	"github.com/jward/cmakels/internal/scan"
	"github.com/jward/cmakels/internal/syntax"
)

// Complete returns completion items for the position p in path, chosen by
// the category of the position.
func (e *Engine) Complete(ctx context.Context, path string, p Point) ([]protocol.CompletionItem, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	cat := position.Classify(d.Tree, p)

	if c, ok := cat.(position.FindPackageComponent); ok {
		return e.componentItems(c.Package), nil
	}
	switch cat {
	case position.VariableOrFunctionReference:
		line := p.Line
		items := definitionItems(e.visible(ctx, d, &line))
		items = append(items, e.cacheItems()...)
		return append(items, e.builtinItems(ctx)...), nil
	case position.TargetLinkArgument, position.TargetIncludeArgument:
		return e.targetItems(d.Tree, cat == position.TargetLinkArgument), nil
	case position.FindPackageName:
		return e.packageItems(), nil
	case position.PkgConfigArgument:
		return namedItems(e.pkgconfig.Names(), protocol.CompletionItemKindModule, "pkg-config module"), nil
	case position.IncludeArgument:
		return namedItems(e.resolver.Modules(), protocol.CompletionItemKindModule, "builtin module"), nil
	}
	return nil, nil
}

// definitionItems turns definitions into items, one per name and kind.
func definitionItems(defs []index.Definition) []protocol.CompletionItem {
	type key struct {
		name string
		kind index.DefKind
	}
	seen := make(map[key]bool)
	var out []protocol.CompletionItem
	for _, d := range defs {
		k := key{d.Name, d.Kind}
		if seen[k] {
			continue
		}
		seen[k] = true
		kind := protocol.CompletionItemKindFunction
		if d.Kind == index.Variable {
			kind = protocol.CompletionItemKindVariable
		}
		detail := fmt.Sprintf("defined %s\nfrom: %s", d.Kind, filepath.Base(d.Location.Path))
		out = append(out, protocol.CompletionItem{Label: d.Name, Kind: &kind, Detail: &detail})
	}
	return out
}

func (e *Engine) cacheItems() []protocol.CompletionItem {
	entries := e.buildCache().Entries()
	out := make([]protocol.CompletionItem, 0, len(entries))
	kind := protocol.CompletionItemKindValue
	detail := "Cached Values"
	for _, ent := range entries {
		out = append(out, protocol.CompletionItem{
			Label:         ent.Name,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: fmt.Sprintf("type: %s, value: %s", ent.Type, ent.Value),
		})
	}
	return out
}

func (e *Engine) builtinItems(ctx context.Context) []protocol.CompletionItem {
	return namedItems(e.builtinCommands(ctx), protocol.CompletionItemKindFunction, "builtin command")
}

// builtinCommands lists the commands cmake knows about. The list is fetched
// once; a failing cmake leaves it empty for the life of the Engine. The fetch
// ignores cancellation of the request that happens to trigger it.
func (e *Engine) builtinCommands(ctx context.Context) []string {
	e.builtinsOnce.Do(func() {
		out, err := e.runner.Run(context.WithoutCancel(ctx), "cmake", "--help-command-list")
		if err != nil {
			e.logger.Debug("builtin command list unavailable", "err", err)
			return
		}
		for _, line := range strings.Split(string(out), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				e.builtins = append(e.builtins, line)
			}
		}
		sort.Strings(e.builtins)
	})
	return e.builtins
}

// isBuiltinCommand reports whether name is a cmake command.
func (e *Engine) isBuiltinCommand(ctx context.Context, name string) bool {
	lower := strings.ToLower(name)
	cmds := e.builtinCommands(ctx)
	i := sort.SearchStrings(cmds, lower)
	return i < len(cmds) && cmds[i] == lower
}

// targetItems offers the variables and imported targets of the packages
// found in t: Name::comp for component packages, otherwise
// Name_LIBRARIES or Name_INCLUDE_DIRS. pkg_check_modules prefixes follow
// the same rule, with PkgConfig::prefix for IMPORTED_TARGET links.
func (e *Engine) targetItems(t *syntax.Tree, link bool) []protocol.CompletionItem {
	kind := protocol.CompletionItemKindVariable
	suffix := "_INCLUDE_DIRS"
	if link {
		suffix = "_LIBRARIES"
	}
	var out []protocol.CompletionItem
	add := func(label, detail string) {
		out = append(out, protocol.CompletionItem{Label: label, Kind: &kind, Detail: &detail})
	}

	for _, cmd := range syntax.Commands(t, t.Root()) {
		name, _ := syntax.CommandName(t, cmd)
		switch strings.ToLower(name) {
		case "find_package":
			ref, ok := scan.PackageRefOf(t, cmd)
			if !ok {
				continue
			}
			if len(ref.Components) == 0 {
				add(ref.Name+suffix, "package: "+ref.Name)
				continue
			}
			for _, comp := range ref.Components {
				add(ref.Name+"::"+comp, "package from: "+ref.Name)
			}
		case "pkg_check_modules":
			args := syntax.Arguments(t, cmd)
			if len(args) == 0 {
				continue
			}
			prefix := syntax.ArgumentValue(t, args[0])
			imported := false
			for _, a := range args[1:] {
				if syntax.ArgumentValue(t, a) == "IMPORTED_TARGET" {
					imported = true
				}
			}
			switch {
			case imported && link:
				add("PkgConfig::"+prefix, "package: "+prefix)
			case !imported:
				add(prefix+suffix, "package: "+prefix)
			}
		}
	}
	return out
}

// packageItems offers every base package name. Component records are left
// to component completion.
func (e *Engine) packageItems() []protocol.CompletionItem {
	kind := protocol.CompletionItemKindModule
	var out []protocol.CompletionItem
	for _, rec := range e.db.Records() {
		if strings.Contains(rec.Name, "::") {
			continue
		}
		detail := rec.Location
		doc := "Undefined"
		if rec.Version != nil {
			doc = *rec.Version
		}
		out = append(out, protocol.CompletionItem{
			Label:         rec.Name,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: "version: " + doc,
		})
	}
	return out
}

// componentItems offers the components of pkg, recorded either as
// pkg::comp or as a split package such as Qt5Core.
func (e *Engine) componentItems(pkg string) []protocol.CompletionItem {
	kind := protocol.CompletionItemKindModule
	detail := "component of " + pkg
	seen := make(map[string]bool)
	var out []protocol.CompletionItem
	for _, rec := range e.db.Records() {
		comp, ok := strings.CutPrefix(rec.Name, pkg+"::")
		if !ok {
			comp, ok = strings.CutPrefix(rec.Name, pkg)
			ok = ok && comp != "" && comp[0] >= 'A' && comp[0] <= 'Z'
		}
		if !ok || comp == "" || seen[comp] {
			continue
		}
		seen[comp] = true
		out = append(out, protocol.CompletionItem{Label: comp, Kind: &kind, Detail: &detail})
	}
	return out
}

func namedItems(names []string, kind protocol.CompletionItemKind, detail string) []protocol.CompletionItem {
	out := make([]protocol.CompletionItem, 0, len(names))
	for _, n := range names {
		out = append(out, protocol.CompletionItem{Label: n, Kind: &kind, Detail: &detail})
	}
	return out
}
