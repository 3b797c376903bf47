package cmakels

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/packages"
	"github.com/jward/cmakels/internal/position"
	"github.com/jward/cmakels/internal/resolve"
	"github.com/jward/cmakels/internal/scan"
	"github.com/jward/cmakels/internal/syntax"
)

// Classify returns the category of the token at p in path.
func (e *Engine) Classify(ctx context.Context, path string, p Point) (Category, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	return position.Classify(d.Tree, p), nil
}

// Definitions returns the definitions visible in path up to bound, merged
// with those of the files it includes and, when enabled, the packages it
// finds. A nil bound scans the whole file.
func (e *Engine) Definitions(ctx context.Context, path string, bound *int) ([]Definition, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.scanner.Scan(ctx, d.Tree, d.Path, e.scanOptions(bound), nil), nil
}

// VisibleDefinitions returns the definitions named name that are visible
// from path: its own, those of the files it includes, and those of every
// ancestor in the include graph. An empty name matches everything.
func (e *Engine) VisibleDefinitions(ctx context.Context, path, name string) ([]Definition, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	return matchName(e.visible(ctx, d, nil), name), nil
}

func (e *Engine) scanOptions(bound *int) scan.Options {
	return scan.Options{Bound: bound, Follow: e.cfg.Scan.Packages}
}

// visible walks parent pointers upward from d. One Visited is shared by the
// whole walk, so a file reached twice contributes once and cycles end.
func (e *Engine) visible(ctx context.Context, d *Document, bound *int) []index.Definition {
	opts := e.scanOptions(bound)
	visited := scan.NewVisited()
	defs := e.scanner.Scan(ctx, d.Tree, d.Path, opts, visited)

	opts.Bound = nil
	for _, anc := range e.graph.Ancestors(d.Path) {
		defs = append(defs, e.scanner.ScanFile(ctx, anc, opts, visited)...)
	}
	return defs
}

// matchName filters defs by name. Function and macro names compare
// case-insensitively, variables exactly.
func matchName(defs []index.Definition, name string) []index.Definition {
	if name == "" {
		return defs
	}
	var out []index.Definition
	for _, d := range defs {
		if d.Name == name || (d.Kind != index.Variable && strings.EqualFold(d.Name, name)) {
			out = append(out, d)
		}
	}
	return out
}

// GotoDefinition returns the targets of the token at p.
func (e *Engine) GotoDefinition(ctx context.Context, path string, p Point) ([]protocol.Location, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	name, _ := tokenAt(d.Tree, p)
	if name == "" {
		return nil, nil
	}
	cat := position.Classify(d.Tree, p)

	switch cat {
	case position.IncludeArgument:
		if target, ok := e.includeTarget(d.Path, name); ok && !target.Dir {
			return []protocol.Location{fileLocation(target.Path)}, nil
		}
		return nil, nil
	case position.SubdirectoryArgument:
		if list, ok := e.subdirectoryTarget(d.Path, name); ok {
			return []protocol.Location{fileLocation(list)}, nil
		}
		return nil, nil
	case position.PkgConfigArgument:
		if rec, ok := e.pkgConfigRecord(name); ok {
			return []protocol.Location{fileLocation(rec.Path)}, nil
		}
		return nil, nil
	case position.VariableOrFunctionReference, position.FunctionOrMacroNameDeclaration:
		var out []protocol.Location
		for _, def := range matchName(e.visible(ctx, d, nil), name) {
			out = append(out, e.definitionLocation(def))
		}
		return out, nil
	}
	if position.IsPackage(cat) {
		rec, ok := e.packageRecord(cat, name)
		if !ok {
			return nil, nil
		}
		out := make([]protocol.Location, 0, len(rec.JumpTargets))
		for _, target := range rec.JumpTargets {
			out = append(out, fileLocation(target))
		}
		return out, nil
	}
	return nil, nil
}

// References returns every token in path whose text equals the token at p.
func (e *Engine) References(ctx context.Context, path string, p Point) ([]protocol.Location, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return nil, err
	}
	name, _ := tokenAt(d.Tree, p)
	if name == "" {
		return nil, nil
	}
	var out []protocol.Location
	t := d.Tree
	for _, id := range occurrences(t, name, false) {
		out = append(out, protocol.Location{URI: fileURI(d.Path), Range: t.ProtocolRange(t.Range(id))})
	}
	return out, nil
}

// tokenAt returns the name under p: a variable inside a reference, a
// command name or an argument value. A cursor just past a token, as in
// `foo|)`, still names it.
func tokenAt(t *syntax.Tree, p syntax.Point) (string, syntax.NodeID) {
	if name, id := tokenUnder(t, p); name != "" || p.Column == 0 {
		return name, id
	}
	return tokenUnder(t, syntax.Point{Line: p.Line, Column: p.Column - 1})
}

func tokenUnder(t *syntax.Tree, p syntax.Point) (string, syntax.NodeID) {
	for cur := t.NodeAt(p); cur != syntax.NoNode; cur = t.Parent(cur) {
		switch t.Kind(cur) {
		case syntax.KindVariable, syntax.KindIdentifier:
			return t.Text(cur), cur
		case syntax.KindNormalVar, syntax.KindEnvVar, syntax.KindCacheVar:
			if v := t.ChildOfKind(cur, syntax.KindVariable); v != syntax.NoNode {
				return t.Text(v), v
			}
		case syntax.KindVariableRef:
			if v := t.Child(cur, 0); v != syntax.NoNode {
				if name := t.ChildOfKind(v, syntax.KindVariable); name != syntax.NoNode {
					return t.Text(name), name
				}
			}
		case syntax.KindArgument:
			return syntax.ArgumentValue(t, cur), cur
		}
		if t.Kind(cur).IsCommand() {
			break
		}
	}
	return "", syntax.NoNode
}

func (e *Engine) includeTarget(file, text string) (resolve.Target, bool) {
	text, complete := resolve.Substitute(text, e.vars(file))
	if !complete || text == "" {
		return resolve.Target{}, false
	}
	return e.resolver.Include(text, file)
}

func (e *Engine) subdirectoryTarget(file, text string) (string, bool) {
	text, complete := resolve.Substitute(text, e.vars(file))
	if !complete || text == "" {
		return "", false
	}
	return e.resolver.Subdirectory(text, file)
}

// packageRecord resolves the package named at a package position. Variable
// suffixes such as _LIBRARIES are stripped first.
func (e *Engine) packageRecord(cat position.Category, name string) (*packages.Record, bool) {
	name = strings.TrimSuffix(name, "_LIBRARIES")
	name = strings.TrimSuffix(name, "_INCLUDE_DIRS")
	if c, ok := cat.(position.FindPackageComponent); ok {
		return e.resolver.FindPackageComponent(c.Package, name)
	}
	return e.resolver.FindPackage(name)
}

func (e *Engine) pkgConfigRecord(name string) (*packages.PkgConfigRecord, bool) {
	if rec, ok := e.resolver.PkgConfig(name); ok {
		return rec, true
	}
	base, _, _ := strings.Cut(name, "_")
	return e.resolver.PkgConfig(base)
}

func fileURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return protocol.DocumentUri(u.String())
}

func fileLocation(path string) protocol.Location {
	return protocol.Location{URI: fileURI(path)}
}

// definitionLocation converts the byte range of d against the text of its
// file. An unreadable file leaves the columns as bytes.
func (e *Engine) definitionLocation(d index.Definition) protocol.Location {
	src, err := e.read(d.Location.Path)
	if err != nil {
		e.logger.Debug("definition source", "path", d.Location.Path, "err", err)
	}
	return protocol.Location{URI: fileURI(d.Location.Path), Range: syntax.RangeIn(src, d.Location.Range)}
}

// PointAt converts a protocol position in path, counted in UTF-16 code
// units, to a Point.
func (e *Engine) PointAt(ctx context.Context, path string, pos protocol.Position) (Point, error) {
	d, err := e.document(ctx, path)
	if err != nil {
		return Point{}, err
	}
	return d.Tree.PointAt(pos), nil
}
