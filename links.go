package cmakels

import (
	"context"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/diagnostics"
	"github.com/jward/cmakels/internal/syntax"
)

// DocumentLinks returns a link for every include() and add_subdirectory()
// argument in path that resolves to a file.
func (e *Engine) DocumentLinks(ctx context.Context, path string) ([]protocol.DocumentLink, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	t := d.Tree
	var out []protocol.DocumentLink
	for _, cmd := range syntax.Commands(t, t.Root()) {
		name, _ := syntax.CommandName(t, cmd)
		args := syntax.Arguments(t, cmd)
		if len(args) == 0 {
			continue
		}
		text := syntax.ArgumentValue(t, args[0])

		var target, tooltip string
		switch strings.ToLower(name) {
		case "include":
			res, ok := e.includeTarget(d.Path, text)
			if !ok || res.Dir {
				continue
			}
			target, tooltip = res.Path, "link: "+res.Path
			if res.Module {
				tooltip = "builtin module, " + tooltip
			}
		case "add_subdirectory":
			list, ok := e.subdirectoryTarget(d.Path, text)
			if !ok {
				continue
			}
			target, tooltip = list, "link: "+list
		default:
			continue
		}
		uri := fileURI(target)
		out = append(out, protocol.DocumentLink{
			Range:   t.ProtocolRange(t.Range(args[0])),
			Target:  &uri,
			Tooltip: &tooltip,
		})
	}
	return out, nil
}

// Diagnose runs every check on path. The build cache supplies placeholder
// values and the packages it failed to find.
func (e *Engine) Diagnose(ctx context.Context, path string) ([]protocol.Diagnostic, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.checker.Check(ctx, diagnostics.Input{
		Path:     d.Path,
		Tree:     d.Tree,
		Lint:     e.cfg.Lint,
		Vars:     e.vars(d.Path),
		NotFound: e.buildCache().NotFound(),
	}), nil
}
