package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/cmakels"
	"github.com/jward/cmakels/internal/workspace"
)

// --- Helpers ---

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return filepath.Clean(file), nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// uriPath returns the filesystem path of a file:// URI, or the URI itself
// when it does not parse.
func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// scanForVisibility walks the add_subdirectory tree so definitions made by
// parent list files are visible. A workspace without a root CMakeLists.txt
// is not an error.
func scanForVisibility(ctx context.Context, engine *cmakels.Engine) {
	if _, err := os.Stat(filepath.Join(engine.Root(), workspace.ListFile)); err != nil {
		return
	}
	if _, err := engine.ScanWorkspace(ctx, engine.Root()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
}

// --- diagnose ---

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <file>",
	Short: "Report diagnostics for a CMake file",
	Long:  "Runs the grammar, style, existence and lint rule checks on a file. With lint.external set in .cmakels.yaml the external linter runs too.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, path, err := openFileEngine(args[0], false)
		if err != nil {
			return outputError("diagnose", err)
		}
		defer engine.Shutdown()

		diags, err := engine.Diagnose(context.Background(), path)
		if err != nil {
			return outputError("diagnose", err)
		}
		return outputResult(CLIResult{Command: "diagnose", Results: toCLIDiagnostics(path, diags)})
	},
}

// --- defs ---

var (
	flagName    string
	flagFromDB  bool
	flagOwnOnly bool
)

var defsCmd = &cobra.Command{
	Use:   "defs <file>",
	Short: "List the definitions visible from a file",
	Long: "Lists the functions, macros and variables visible from a file: its own, those of included files and those of the list files that added its directory. " +
		"With --db, looks the name up in the workspace index instead.",
	Args: cobra.RangeArgs(0, 1),
	RunE: runDefs,
}

func init() {
	defsCmd.Flags().StringVar(&flagName, "name", "", "only definitions with this name")
	defsCmd.Flags().BoolVar(&flagFromDB, "db-lookup", false, "query the workspace index by --name instead of resolving from a file")
	defsCmd.Flags().BoolVar(&flagOwnOnly, "own", false, "only the file's own definitions and its includes")
}

func runDefs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if flagFromDB {
		if flagName == "" {
			return outputError("defs", fmt.Errorf("--db-lookup requires --name"))
		}
		cwd, err := os.Getwd()
		if err != nil {
			return outputError("defs", fmt.Errorf("getting cwd: %w", err))
		}
		root, err := workspace.FindRoot(cwd)
		if err != nil {
			return outputError("defs", err)
		}
		engine, err := openEngine(root, true)
		if err != nil {
			return outputError("defs", err)
		}
		defer engine.Shutdown()
		defs, err := engine.Store().DefinitionsByName(flagName)
		if err != nil {
			return outputError("defs", err)
		}
		return outputResult(CLIResult{Command: "defs", Results: toCLIDefinitions(defs)})
	}

	if len(args) != 1 {
		return outputError("defs", fmt.Errorf("requires a <file> argument or --db-lookup"))
	}
	engine, path, err := openFileEngine(args[0], false)
	if err != nil {
		return outputError("defs", err)
	}
	defer engine.Shutdown()

	var defs []cmakels.Definition
	if flagOwnOnly {
		defs, err = engine.Definitions(ctx, path, nil)
		if err == nil && flagName != "" {
			defs = filterByName(defs, flagName)
		}
	} else {
		scanForVisibility(ctx, engine)
		defs, err = engine.VisibleDefinitions(ctx, path, flagName)
	}
	if err != nil {
		return outputError("defs", err)
	}
	return outputResult(CLIResult{Command: "defs", Results: toCLIDefinitions(defs)})
}

func filterByName(defs []cmakels.Definition, name string) []cmakels.Definition {
	var out []cmakels.Definition
	for _, d := range defs {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify <file> <line> <col>",
	Short: "Classify the cursor position in a file",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := parseIntArg(args[1], "line")
		if err != nil {
			return outputError("classify", err)
		}
		col, err := parseIntArg(args[2], "col")
		if err != nil {
			return outputError("classify", err)
		}
		engine, path, err := openFileEngine(args[0], false)
		if err != nil {
			return outputError("classify", err)
		}
		defer engine.Shutdown()

		cat, err := engine.Classify(context.Background(), path, cmakels.Point{Line: line, Column: col})
		if err != nil {
			return outputError("classify", err)
		}
		return outputResult(CLIResult{Command: "classify", Results: CLIClassification{
			File:     path,
			Line:     line,
			Col:      col,
			Category: cat.String(),
		}})
	},
}

// --- packages ---

var packagesCmd = &cobra.Command{
	Use:   "packages [path]",
	Short: "List the installed CMake packages",
	Long:  "Lists the packages found under the configured install prefixes, including packages.modules overlays.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveTargetDir(args)
		if err != nil {
			return outputError("packages", err)
		}
		root, err := workspace.FindRoot(dir)
		if err != nil {
			return outputError("packages", err)
		}
		engine, err := openEngine(root, false)
		if err != nil {
			return outputError("packages", err)
		}
		defer engine.Shutdown()
		return outputResult(CLIResult{Command: "packages", Results: toCLIPackages(engine.Packages())})
	},
}

// --- tree ---

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the add_subdirectory tree of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveTargetDir(args)
		if err != nil {
			return outputError("tree", err)
		}
		engine, err := openEngine(dir, false)
		if err != nil {
			return outputError("tree", err)
		}
		defer engine.Shutdown()

		tree, err := engine.ProjectTree(context.Background(), dir)
		if err != nil {
			return outputError("tree", err)
		}
		return outputResult(CLIResult{Command: "tree", Results: CLITree{Root: tree, CLITreeDir: toCLITree(tree)}})
	},
}

// --- links ---

var linksCmd = &cobra.Command{
	Use:   "links <file>",
	Short: "List the include() and add_subdirectory() targets of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, path, err := openFileEngine(args[0], false)
		if err != nil {
			return outputError("links", err)
		}
		defer engine.Shutdown()

		links, err := engine.DocumentLinks(context.Background(), path)
		if err != nil {
			return outputError("links", err)
		}
		return outputResult(CLIResult{Command: "links", Results: toCLILinks(links)})
	},
}
