// Package diagnostics checks a CMake file and reports problems as protocol
// diagnostics. Every check works on partially invalid trees and runs
// independently of the others.
package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/config"
	"github.com/jward/cmakels/internal/resolve"
	"github.com/jward/cmakels/internal/syntax"
)

// Source is the diagnostic source for built-in checks.
const Source = "cmakels"

// Rules runs user lint rules over a parsed file.
type Rules interface {
	Lint(ctx context.Context, path string, t *syntax.Tree) ([]protocol.Diagnostic, error)
}

// Input is one file to check.
type Input struct {
	Path string
	Tree *syntax.Tree
	Lint config.Lint
	// Vars supplies placeholder values. CurrentFile is set from Path.
	Vars resolve.Vars
	// NotFound lists packages the build cache failed to find.
	NotFound []string
}

// Engine runs the checks.
type Engine struct {
	resolver *resolve.Resolver
	parser   syntax.Parser
	read     func(string) ([]byte, error)
	runner   CommandRunner
	rules    Rules
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner replaces the runner used for the external linter.
func WithRunner(r CommandRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithRules adds user lint rules.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithParser sets the parser used for included files.
func WithParser(p syntax.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithReader replaces os.ReadFile for included files.
func WithReader(read func(string) ([]byte, error)) Option {
	return func(e *Engine) { e.read = read }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an Engine resolving include targets through r.
func New(r *resolve.Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: r,
		parser:   syntax.NewParser(),
		read:     os.ReadFile,
		runner:   ExecRunner{},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Check runs every check on in and returns the diagnostics found.
func (e *Engine) Check(ctx context.Context, in Input) []protocol.Diagnostic {
	out := []protocol.Diagnostic{}
	if in.Tree == nil {
		return out
	}
	out = append(out, grammar(in.Tree)...)
	if in.Lint.Enable {
		out = append(out, commandCase(in.Tree, in.Lint.Case)...)
		out = append(out, lineLength(in.Tree.Source(), in.Lint.MaxLineLength)...)
		if in.Lint.External {
			out = append(out, e.external(ctx, in.Path, in.Lint.Command)...)
		}
	}
	out = append(out, e.existence(ctx, in)...)
	out = append(out, unresolvedPackages(in.Tree, in.NotFound)...)
	if in.Lint.Enable && e.rules != nil {
		diags, err := e.rules.Lint(ctx, in.Path, in.Tree)
		if err != nil {
			e.logger.Warn("lint rules failed", "path", in.Path, "err", err)
		} else {
			out = append(out, diags...)
		}
	}
	return out
}

// diagnostic builds a diagnostic over rng, a byte range in src.
func diagnostic(src []byte, rng syntax.Range, sev protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := Source
	return protocol.Diagnostic{
		Range:    syntax.RangeIn(src, rng),
		Severity: &sev,
		Source:   &source,
		Message:  msg,
	}
}

// grammar reports one error per outermost error node.
func grammar(t *syntax.Tree) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, id := range t.ErrorNodes() {
		out = append(out, diagnostic(t.Source(), t.Range(id), protocol.DiagnosticSeverityError, "grammar error"))
	}
	return out
}

func commandCase(t *syntax.Tree, policy config.CasePolicy) []protocol.Diagnostic {
	if policy == config.IgnoreCase || policy == "" {
		return nil
	}
	var out []protocol.Diagnostic
	for _, cmd := range syntax.Commands(t, t.Root()) {
		name, id := syntax.CommandName(t, cmd)
		if name == "" {
			continue
		}
		want := strings.ToLower(name)
		if policy == config.Upcase {
			want = strings.ToUpper(name)
		}
		if name != want {
			out = append(out, diagnostic(t.Source(), t.Range(id), protocol.DiagnosticSeverityHint,
				fmt.Sprintf("command %s should be %s", name, policy)))
		}
	}
	return out
}

func lineLength(src []byte, limit int) []protocol.Diagnostic {
	if limit <= 0 {
		return nil
	}
	var out []protocol.Diagnostic
	for i, line := range syntax.Lines(src) {
		n := utf8.RuneCountInString(line)
		if n <= limit {
			continue
		}
		rng := syntax.Range{
			Start: syntax.Point{Line: i, Column: 0},
			End:   syntax.Point{Line: i, Column: len(line)},
		}
		out = append(out, diagnostic(src, rng, protocol.DiagnosticSeverityWarning,
			fmt.Sprintf("line length %d exceeds %d", n, limit)))
	}
	return out
}

// existence checks the targets of include() and add_subdirectory().
func (e *Engine) existence(ctx context.Context, in Input) []protocol.Diagnostic {
	t := in.Tree
	vars := in.Vars
	vars.CurrentFile = in.Path
	var out []protocol.Diagnostic
	for _, cmd := range syntax.Commands(t, t.Root()) {
		name, _ := syntax.CommandName(t, cmd)
		lower := strings.ToLower(name)
		if lower != "include" && lower != "add_subdirectory" {
			continue
		}
		args := syntax.Arguments(t, cmd)
		if len(args) == 0 {
			continue
		}
		rng := t.Range(args[0])
		text, complete := resolve.Substitute(t.Text(args[0]), vars)
		if strings.TrimSpace(text) == "" {
			out = append(out, diagnostic(t.Source(), rng, protocol.DiagnosticSeverityError,
				fmt.Sprintf("%s requires a non-empty path", lower)))
			continue
		}
		if !complete {
			continue
		}
		if lower == "add_subdirectory" {
			if path, ok := e.resolver.Subdirectory(text, in.Path); !ok {
				out = append(out, diagnostic(t.Source(), rng, protocol.DiagnosticSeverityWarning,
					fmt.Sprintf("%s does not exist", path)))
			}
			continue
		}
		if hasArg(t, args[1:], "OPTIONAL") {
			continue
		}
		target, ok := e.resolver.Include(text, in.Path)
		switch {
		case !ok && target.Module:
			out = append(out, diagnostic(t.Source(), rng, protocol.DiagnosticSeverityWarning,
				fmt.Sprintf("module %s not found", text)))
		case !ok:
			out = append(out, diagnostic(t.Source(), rng, protocol.DiagnosticSeverityWarning,
				fmt.Sprintf("%s does not exist", target.Path)))
		case target.Dir:
			out = append(out, diagnostic(t.Source(), rng, protocol.DiagnosticSeverityError,
				fmt.Sprintf("%s is a directory", target.Path)))
		case e.broken(ctx, target.Path):
			out = append(out, diagnostic(t.Source(), rng, protocol.DiagnosticSeverityError, "error in include file"))
		}
	}
	return out
}

func (e *Engine) broken(ctx context.Context, path string) bool {
	src, err := e.read(path)
	if err != nil {
		e.logger.Debug("unreadable include", "path", path, "err", err)
		return false
	}
	tree, err := e.parser.Parse(ctx, src)
	if err != nil {
		return true
	}
	return tree.HasError(tree.Root())
}

func hasArg(t *syntax.Tree, args []syntax.NodeID, want string) bool {
	for _, a := range args {
		if syntax.ArgumentValue(t, a) == want {
			return true
		}
	}
	return false
}

// unresolvedPackages flags find_package calls naming a package the build
// cache recorded as not found.
func unresolvedPackages(t *syntax.Tree, notFound []string) []protocol.Diagnostic {
	if len(notFound) == 0 {
		return nil
	}
	missing := make(map[string]bool, len(notFound))
	for _, n := range notFound {
		missing[n] = true
	}
	var out []protocol.Diagnostic
	for _, cmd := range syntax.Commands(t, t.Root()) {
		name, _ := syntax.CommandName(t, cmd)
		if !strings.EqualFold(name, "find_package") {
			continue
		}
		args := syntax.Arguments(t, cmd)
		if len(args) == 0 {
			continue
		}
		pkg := syntax.ArgumentValue(t, args[0])
		if missing[pkg] {
			out = append(out, diagnostic(t.Source(), t.Range(args[0]), protocol.DiagnosticSeverityError,
				fmt.Sprintf("cannot find package %s", pkg)))
		}
	}
	return out
}
