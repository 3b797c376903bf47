// Package runtime embeds a Risor VM that runs lint rules written as .risor
// scripts against parsed CMake files.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/syntax"
)

// RulesDir is the directory inside the rules fs.FS holding lint scripts.
const RulesDir = "lint"

// Script is a loaded lint rule.
type Script struct {
	Name   string
	Source string
}

// Runtime runs lint scripts. Scripts see these globals:
//
//	path        the file being linted
//	commands    list of {name, lower, kind, line, col, end_line, end_col, args}
//	lines       the file's lines
//	report      report(line, col, severity, message[, end_col])
//	parse       parse(path) returns the commands of another file
//	definitions definitions(name) returns visible {name, kind, path, line, col}
//	log         log.Info/Warn/Error
type Runtime struct {
	fsys        fs.FS
	scriptsDir  string
	parser      syntax.Parser
	read        func(string) ([]byte, error)
	definitions func(name string) []index.Definition
	logger      *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads built-in rules from fsys under RulesDir. Imports
// inside those scripts resolve against fsys too.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) { r.fsys = fsys }
}

// WithScriptsDir adds user rules from dir. A user rule replaces a built-in
// rule of the same name.
func WithScriptsDir(dir string) RuntimeOption {
	return func(r *Runtime) { r.scriptsDir = dir }
}

// WithParser sets the parser behind the parse host function.
func WithParser(p syntax.Parser) RuntimeOption {
	return func(r *Runtime) { r.parser = p }
}

// WithReader replaces os.ReadFile for the parse host function.
func WithReader(read func(string) ([]byte, error)) RuntimeOption {
	return func(r *Runtime) { r.read = read }
}

// WithDefinitions supplies the lookup behind the definitions host function.
func WithDefinitions(fn func(name string) []index.Definition) RuntimeOption {
	return func(r *Runtime) { r.definitions = fn }
}

// WithLogger sets the logger used by the runtime and by scripts' log object.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = l }
}

// NewRuntime creates a Runtime. With no fs.FS and no scripts directory it
// has no rules and Lint reports nothing.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		parser: syntax.NewParser(),
		read:   os.ReadFile,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scripts returns the rules in name order: built-in rules first overlaid by
// user rules.
func (r *Runtime) Scripts() ([]Script, error) {
	byName := make(map[string]string)
	if r.fsys != nil {
		matches, err := fs.Glob(r.fsys, path.Join(RulesDir, "*.risor"))
		if err != nil {
			return nil, fmt.Errorf("runtime: listing rules: %w", err)
		}
		for _, m := range matches {
			data, err := fs.ReadFile(r.fsys, m)
			if err != nil {
				return nil, fmt.Errorf("runtime: loading rule %s from fs: %w", m, err)
			}
			byName[ruleName(m)] = string(data)
		}
	}
	if r.scriptsDir != "" {
		matches, err := filepath.Glob(filepath.Join(r.scriptsDir, "*.risor"))
		if err != nil {
			return nil, fmt.Errorf("runtime: listing rules: %w", err)
		}
		for _, m := range matches {
			data, err := os.ReadFile(m)
			if err != nil {
				return nil, fmt.Errorf("runtime: loading rule %s: %w", m, err)
			}
			byName[ruleName(m)] = string(data)
		}
	}

	scripts := make([]Script, 0, len(byName))
	for name, src := range byName {
		scripts = append(scripts, Script{Name: name, Source: src})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

func ruleName(p string) string {
	return strings.TrimSuffix(filepath.Base(filepath.FromSlash(p)), ".risor")
}

// Lint runs every rule over t. A rule that fails is logged and skipped; its
// partial reports are dropped. Only failing to load the rules is an error.
func (r *Runtime) Lint(ctx context.Context, filePath string, t *syntax.Tree) ([]protocol.Diagnostic, error) {
	scripts, err := r.Scripts()
	if err != nil {
		return nil, err
	}
	var out []protocol.Diagnostic
	for _, s := range scripts {
		diags, err := r.RunRule(ctx, s, filePath, t)
		if err != nil {
			r.logger.Warn("lint rule failed", "rule", s.Name, "path", filePath, "err", err)
			continue
		}
		out = append(out, diags...)
	}
	return out, nil
}

// RunRule runs one rule over t and returns what it reported.
func (r *Runtime) RunRule(ctx context.Context, s Script, filePath string, t *syntax.Tree) ([]protocol.Diagnostic, error) {
	rep := &reporter{source: "cmakels/" + s.Name, src: t.Source()}
	globals := map[string]any{
		"path":     object.NewString(filePath),
		"commands": commandsList(t),
		"lines":    linesList(t.Source()),
		"report":   makeReportFn(rep),
	}
	if err := r.eval(ctx, s.Source, s.Name, globals); err != nil {
		return nil, err
	}
	return rep.diags, nil
}

// RunSource executes Risor source with the standard globals plus any extra
// globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter resolves import statements against the built-in rules, or
// the user rules directory when there is no fs.FS.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		sub, err := fs.Sub(r.fsys, RulesDir)
		if err != nil {
			return nil
		}
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    sub,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"parse":       makeParseFn(r.parser, r.read),
		"definitions": makeDefinitionsFn(r.definitions),
		"log":         mustProxy(&logObject{logger: r.logger}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
