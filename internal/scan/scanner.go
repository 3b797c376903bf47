// Package scan extracts definitions from CMake syntax trees and follows
// include() and find_package() into other files.
package scan

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/cmakels/internal/config"
	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/packages"
	"github.com/jward/cmakels/internal/resolve"
	"github.com/jward/cmakels/internal/syntax"
)

// Options controls a single Scan call.
type Options struct {
	// Bound, when set, skips nodes starting after this zero-based line.
	Bound *int
	// Follow resolves find_package calls through the package database.
	Follow bool
}

// Visited tracks the files and packages already merged by one call chain.
// It is owned by that chain and must not be shared between goroutines.
type Visited struct {
	Includes map[string]bool
	Packages map[string]bool
}

// NewVisited returns an empty Visited.
func NewVisited() *Visited {
	return &Visited{Includes: make(map[string]bool), Packages: make(map[string]bool)}
}

// Scanner extracts definitions. It is safe for concurrent use.
type Scanner struct {
	resolver   *resolve.Resolver
	parser     syntax.Parser
	files      *index.FileCache
	modules    *index.ModuleCache
	graph      *index.Graph
	components config.ComponentMode
	read       func(string) ([]byte, error)
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithParser sets the parser used for files read from disk.
func WithParser(p syntax.Parser) Option {
	return func(s *Scanner) { s.parser = p }
}

// WithReader replaces os.ReadFile, typically to serve open documents
// before falling back to disk.
func WithReader(read func(string) ([]byte, error)) Option {
	return func(s *Scanner) { s.read = read }
}

// WithComponents sets how find_package components are resolved.
func WithComponents(mode config.ComponentMode) Option {
	return func(s *Scanner) { s.components = mode }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// New returns a Scanner that resolves through r and caches summaries in
// files and modules. Include edges are recorded in graph.
func New(r *resolve.Resolver, files *index.FileCache, modules *index.ModuleCache, graph *index.Graph, opts ...Option) *Scanner {
	s := &Scanner{
		resolver:   r,
		parser:     syntax.NewParser(),
		files:      files,
		modules:    modules,
		graph:      graph,
		components: config.ExpandComponents,
		read:       os.ReadFile,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// local is what one walk over a tree yields.
type local struct {
	defs     []index.Definition
	includes []index.Include
	packages []index.PackageRef
}

func (s *Scanner) walk(t *syntax.Tree, path string, bound *int) local {
	var out local
	t.Walk(t.Root(), func(id syntax.NodeID) bool {
		if bound != nil && t.Range(id).Start.Line > *bound {
			return false
		}
		k := t.Kind(id)
		if !k.IsCommand() {
			return true
		}
		switch k {
		case syntax.KindFunctionCommand, syntax.KindMacroCommand:
			kind := index.Function
			if k == syntax.KindMacroCommand {
				kind = index.Macro
			}
			if def, ok := definitionAt(t, id, path, kind); ok {
				out.defs = append(out.defs, def)
			}
		case syntax.KindNormalCommand:
			name, _ := syntax.CommandName(t, id)
			switch strings.ToLower(name) {
			case "set", "option":
				if def, ok := definitionAt(t, id, path, index.Variable); ok {
					out.defs = append(out.defs, def)
				}
			case "include":
				if inc, ok := s.resolveInclude(t, id, path); ok {
					out.includes = append(out.includes, inc)
				}
			case "find_package":
				if ref, ok := PackageRefOf(t, id); ok {
					out.packages = append(out.packages, ref)
				}
			}
		}
		return false
	})
	return out
}

// definitionAt builds a definition from the first argument of cmd. Names
// spanning lines or built from variable references are skipped.
func definitionAt(t *syntax.Tree, cmd syntax.NodeID, path string, kind index.DefKind) (index.Definition, bool) {
	args := syntax.Arguments(t, cmd)
	if len(args) == 0 {
		return index.Definition{}, false
	}
	rng := t.Range(args[0])
	name := syntax.ArgumentValue(t, args[0])
	if !rng.SingleLine() || name == "" || strings.Contains(name, "${") {
		return index.Definition{}, false
	}
	return index.Definition{
		Name:     name,
		Kind:     kind,
		Location: index.Location{Path: path, Range: rng},
	}, true
}

func (s *Scanner) resolveInclude(t *syntax.Tree, cmd syntax.NodeID, path string) (index.Include, bool) {
	args := syntax.Arguments(t, cmd)
	if len(args) == 0 {
		return index.Include{}, false
	}
	text := syntax.ArgumentValue(t, args[0])
	target, ok := s.resolver.Include(text, path)
	if !ok || target.Dir {
		s.logger.Debug("unresolved include", "path", path, "name", text)
		return index.Include{}, false
	}
	if !filepath.IsAbs(target.Path) {
		s.logger.Warn("include resolved to a relative path", "path", path, "name", target.Path, "invariant", true)
	}
	return index.Include{Path: target.Path, Module: target.Module}, true
}

// PackageRefOf reads a find_package command. Arguments after COMPONENTS,
// OPTIONAL_COMPONENTS or REQUIRED are components; other keywords and the
// version are skipped.
func PackageRefOf(t *syntax.Tree, cmd syntax.NodeID) (index.PackageRef, bool) {
	args := syntax.Arguments(t, cmd)
	if len(args) == 0 {
		return index.PackageRef{}, false
	}
	ref := index.PackageRef{Name: syntax.ArgumentValue(t, args[0])}
	if ref.Name == "" {
		return index.PackageRef{}, false
	}
	inComponents := false
	for _, a := range args[1:] {
		v := syntax.ArgumentValue(t, a)
		switch v {
		case "COMPONENTS", "OPTIONAL_COMPONENTS", "REQUIRED":
			inComponents = true
			continue
		case "QUIET", "EXACT", "CONFIG", "MODULE", "NO_MODULE", "GLOBAL", "NO_POLICY_SCOPE", "BYPASS_PROVIDER":
			continue
		case "NAMES", "CONFIGS", "HINTS", "PATHS", "PATH_SUFFIXES":
			inComponents = false
			continue
		}
		if inComponents && v != "" && !strings.HasPrefix(v, "NO_") {
			ref.Components = append(ref.Components, v)
		}
	}
	return ref, true
}

// Summarize returns the file's own definitions, resolved includes and
// find_package calls.
func (s *Scanner) Summarize(t *syntax.Tree, path string) *index.Summary {
	l := s.walk(t, path, nil)
	return &index.Summary{Definitions: l.defs, Includes: l.includes, Packages: l.packages}
}

// Scan returns the definitions visible in t up to opts.Bound, merged with
// those of every file it transitively includes. visited may be nil.
func (s *Scanner) Scan(ctx context.Context, t *syntax.Tree, path string, opts Options, visited *Visited) []index.Definition {
	if visited == nil {
		visited = NewVisited()
	}
	visited.Includes[path] = true

	l := s.walk(t, path, opts.Bound)
	defs := l.defs
	for _, inc := range l.includes {
		defs = s.followInclude(ctx, inc, path, opts, visited, defs)
	}
	if opts.Follow {
		for _, ref := range l.packages {
			defs = s.followPackage(ctx, ref, opts, visited, defs)
		}
	}
	return defs
}

// ScanFile is Scan for a file known only by its path. Its summary comes
// from the file cache, which is filled on a miss.
func (s *Scanner) ScanFile(ctx context.Context, path string, opts Options, visited *Visited) []index.Definition {
	if visited == nil {
		visited = NewVisited()
	}
	return s.followInclude(ctx, index.Include{Path: path}, "", opts, visited, nil)
}

func (s *Scanner) followInclude(ctx context.Context, inc index.Include, parent string, opts Options, visited *Visited, defs []index.Definition) []index.Definition {
	if visited.Includes[inc.Path] {
		return defs
	}
	visited.Includes[inc.Path] = true
	if parent != "" {
		s.graph.SetParent(inc.Path, parent)
	}

	sum := s.Summary(ctx, inc.Path, inc.Module)
	if sum == nil {
		return defs
	}
	defs = append(defs, sum.Definitions...)
	for _, child := range sum.Includes {
		defs = s.followInclude(ctx, child, inc.Path, opts, visited, defs)
	}
	if opts.Follow {
		for _, ref := range sum.Packages {
			defs = s.followPackage(ctx, ref, opts, visited, defs)
		}
	}
	return defs
}

func (s *Scanner) followPackage(ctx context.Context, ref index.PackageRef, opts Options, visited *Visited, defs []index.Definition) []index.Definition {
	for _, rec := range s.PackageRecords(ref) {
		if visited.Packages[rec.Name] {
			continue
		}
		visited.Packages[rec.Name] = true
		cfg := rec.ConfigFile()
		if cfg == "" {
			continue
		}
		defs = s.followInclude(ctx, index.Include{Path: cfg, Module: true}, "", opts, visited, defs)
	}
	return defs
}

// PackageRecords resolves a find_package call to package records according
// to the component mode.
func (s *Scanner) PackageRecords(ref index.PackageRef) []*packages.Record {
	var out []*packages.Record
	base := s.components != config.ExpandComponents || len(ref.Components) == 0
	if base {
		if rec, ok := s.resolver.FindPackage(ref.Name); ok {
			out = append(out, rec)
		} else {
			s.logger.Debug("unresolved package", "name", ref.Name)
		}
	}
	if s.components == config.IgnoreComponents {
		return out
	}
	for _, comp := range ref.Components {
		if rec, ok := s.resolver.FindPackageComponent(ref.Name, comp); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Summary returns the cached summary of path, reading and parsing it on a
// miss. Modules go to the insert-once module cache. It returns nil when the
// file cannot be read.
func (s *Scanner) Summary(ctx context.Context, path string, module bool) *index.Summary {
	if module {
		if sum, ok := s.modules.Get(path); ok {
			return sum
		}
	} else if sum, ok := s.files.Get(path); ok {
		return sum
	}

	src, err := s.read(path)
	if err != nil {
		s.logger.Debug("unreadable file", "path", path, "err", err)
		return nil
	}
	tree, err := s.parser.Parse(ctx, src)
	if err != nil {
		s.logger.Debug("unparseable file", "path", path, "err", err)
		return nil
	}
	sum := s.Summarize(tree, path)
	if module {
		return s.modules.Add(path, sum)
	}
	s.files.Set(path, sum)
	return sum
}

// Refresh re-summarizes a workspace file from t and replaces its cache
// entry.
func (s *Scanner) Refresh(t *syntax.Tree, path string) *index.Summary {
	sum := s.Summarize(t, path)
	s.files.Set(path, sum)
	return sum
}
