package diagnostics

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run implements CommandRunner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

var lintLine = regexp.MustCompile(`^(\d+)(?:,(\d+))?: \[([A-Z])(\d+)\] (.*)$`)

// external runs the configured linter on path. Linters exit non-zero when
// they report findings, so output is parsed whenever there is some; a run
// with no output and an error contributes nothing.
func (e *Engine) external(ctx context.Context, path, command string) []protocol.Diagnostic {
	if command == "" {
		return nil
	}
	out, err := e.runner.Run(ctx, command, path)
	if err != nil && len(out) == 0 {
		e.logger.Debug("external linter failed", "path", path, "name", command, "err", err)
		return nil
	}
	return ParseLintOutput(out, command)
}

// ParseLintOutput converts cmake-lint style output lines of the form
// "12,04: [C0301] message" into diagnostics. Input lines and columns are
// 1-based. Lines that do not match are ignored.
func ParseLintOutput(out []byte, source string) []protocol.Diagnostic {
	var diags []protocol.Diagnostic
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := lintLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		line := oneBased(m[1])
		col := 0
		if m[2] != "" {
			col = oneBased(m[2])
		}
		sev := protocol.DiagnosticSeverityInformation
		switch m[3] {
		case "E":
			sev = protocol.DiagnosticSeverityError
		case "W":
			sev = protocol.DiagnosticSeverityWarning
		}
		src := source
		pos := protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
		diags = append(diags, protocol.Diagnostic{
			Range:    protocol.Range{Start: pos, End: pos},
			Severity: &sev,
			Code:     &protocol.IntegerOrString{Value: m[3] + m[4]},
			Source:   &src,
			Message:  m[5],
		})
	}
	return diags
}

func oneBased(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}
