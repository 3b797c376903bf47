package runtime

import (
	"context"
	"log/slog"
	"strings"

	"github.com/risor-io/risor/object"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/syntax"
)

// commandsList converts every command in t, nested ones included, into
// Risor maps. Positions are 0-based.
func commandsList(t *syntax.Tree) object.Object {
	var items []object.Object
	for _, cmd := range syntax.Commands(t, t.Root()) {
		name, _ := syntax.CommandName(t, cmd)
		if name == "" {
			continue
		}
		var args []object.Object
		for _, a := range syntax.Arguments(t, cmd) {
			args = append(args, object.NewString(syntax.ArgumentValue(t, a)))
		}
		if args == nil {
			args = []object.Object{}
		}
		rng := t.Range(cmd)
		items = append(items, object.NewMap(map[string]object.Object{
			"name":     object.NewString(name),
			"lower":    object.NewString(strings.ToLower(name)),
			"kind":     object.NewString(string(t.Kind(cmd))),
			"line":     object.NewInt(int64(rng.Start.Line)),
			"col":      object.NewInt(int64(rng.Start.Column)),
			"end_line": object.NewInt(int64(rng.End.Line)),
			"end_col":  object.NewInt(int64(rng.End.Column)),
			"error":    object.NewBool(t.HasError(cmd)),
			"args":     object.NewList(args),
		}))
	}
	if items == nil {
		items = []object.Object{}
	}
	return object.NewList(items)
}

func linesList(src []byte) object.Object {
	lines := syntax.Lines(src)
	items := make([]object.Object, len(lines))
	for i, l := range lines {
		items[i] = object.NewString(l)
	}
	return object.NewList(items)
}

// makeParseFn creates the "parse" host function.
//
// parse(path) → list of command maps
func makeParseFn(p syntax.Parser, read func(string) ([]byte, error)) *object.Builtin {
	return object.NewBuiltin("parse", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("parse", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("parse: path: %v", err)
		}
		src, err := read(path)
		if err != nil {
			return object.Errorf("parse: reading %s: %v", path, err)
		}
		t, err := p.Parse(ctx, src)
		if err != nil {
			return object.Errorf("parse: %v", err)
		}
		return commandsList(t)
	})
}

// makeDefinitionsFn creates "definitions".
//
// definitions(name) → list of {name, kind, path, line, col}
func makeDefinitionsFn(lookup func(string) []index.Definition) *object.Builtin {
	return object.NewBuiltin("definitions", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("definitions", 1, len(args))
		}
		name, err := toString(args[0])
		if err != nil {
			return object.Errorf("definitions: name: %v", err)
		}
		items := []object.Object{}
		if lookup == nil {
			return object.NewList(items)
		}
		for _, d := range lookup(name) {
			items = append(items, object.NewMap(map[string]object.Object{
				"name": object.NewString(d.Name),
				"kind": object.NewString(d.Kind.String()),
				"path": object.NewString(d.Location.Path),
				"line": object.NewInt(int64(d.Location.Range.Start.Line)),
				"col":  object.NewInt(int64(d.Location.Range.Start.Column)),
			}))
		}
		return object.NewList(items)
	})
}

type reporter struct {
	source string
	src    []byte
	diags  []protocol.Diagnostic
}

// makeReportFn creates "report".
//
// report(line, col, severity, message[, end_col])
//
// severity is one of "error", "warning", "info" or "hint". Columns are byte
// offsets, as in commands.
func makeReportFn(rep *reporter) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 4 && len(args) != 5 {
			return object.Errorf("report: expected 4 or 5 arguments, got %d", len(args))
		}
		line, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("report: line: %v", err)
		}
		col, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("report: col: %v", err)
		}
		sevName, err := toString(args[2])
		if err != nil {
			return object.Errorf("report: severity: %v", err)
		}
		sev, ok := severities[sevName]
		if !ok {
			return object.Errorf("report: unknown severity %q", sevName)
		}
		msg, err := toString(args[3])
		if err != nil {
			return object.Errorf("report: message: %v", err)
		}
		if line < 0 || col < 0 {
			return object.Errorf("report: negative position %d:%d", line, col)
		}
		endCol := col
		if len(args) == 5 {
			if endCol, err = toInt64(args[4]); err != nil || endCol < col {
				return object.Errorf("report: bad end_col")
			}
		}
		source := rep.source
		rep.diags = append(rep.diags, protocol.Diagnostic{
			Range: syntax.RangeIn(rep.src, syntax.Range{
				Start: syntax.Point{Line: int(line), Column: int(col)},
				End:   syntax.Point{Line: int(line), Column: int(endCol)},
			}),
			Severity: &sev,
			Source:   &source,
			Message:  msg,
		})
		return object.Nil
	})
}

var severities = map[string]protocol.DiagnosticSeverity{
	"error":   protocol.DiagnosticSeverityError,
	"warning": protocol.DiagnosticSeverityWarning,
	"info":    protocol.DiagnosticSeverityInformation,
	"hint":    protocol.DiagnosticSeverityHint,
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string)  { l.logger.Info(msg, "source", "lint") }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg, "source", "lint") }
func (l *logObject) Error(msg string) { l.logger.Error(msg, "source", "lint") }
