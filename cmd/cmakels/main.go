package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/cmakels"
	"github.com/jward/cmakels/internal/buildcache"
	"github.com/jward/cmakels/internal/config"
	"github.com/jward/cmakels/internal/store"
	"github.com/jward/cmakels/internal/workspace"
)

// version is reported in SCIP tool info.
var version = "dev"

var (
	flagDB       string
	flagFormat   string
	flagBuildDir string
	flagVerbose  bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "cmakels",
	Short:         "Language intelligence for CMake projects",
	Long:          "cmakels resolves definitions, packages and includes across a CMake project and reports diagnostics. All line and column numbers are 0-based.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(flagVerbose)
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: index.db from .cmakels.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagBuildDir, "build-dir", "", "build directory holding CMakeCache.txt")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(defsCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(linksCmd)
}

func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

var (
	flagForce bool
	flagSCIP  string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index every CMake file of a workspace",
	Long:  "Parses each CMake file under the workspace root, writes definitions and include edges to the SQLite database and scans the add_subdirectory tree.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagSCIP, "scip", "", "also write a SCIP index to this path")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	target, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	root, err := workspace.FindRoot(target)
	if err != nil {
		return err
	}

	if flagForce {
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		dbPath := resolveDBPath(root, cfg)
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	engine, err := openEngine(root, true)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Shutdown()

	stats, err := engine.IndexWorkspace(context.Background())
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (files: %d, changed: %d, unchanged: %d, affected: %d)\n",
		root,
		time.Since(start).Round(time.Millisecond),
		stats.Files, stats.Indexed, stats.Skipped, len(stats.Affected),
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", resolveDBPath(root, engine.Config()))

	if flagSCIP != "" {
		if err := writeSCIP(engine.Store(), root, flagSCIP); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "SCIP: %s\n", flagSCIP)
	}
	return nil
}

func writeSCIP(s *store.Store, root, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := s.ExportSCIP(f, root, version); err != nil {
		f.Close()
		return fmt.Errorf("writing SCIP: %w", err)
	}
	return f.Close()
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// resolveDBPath returns the database path from the --db flag or the
// configuration.
func resolveDBPath(root string, cfg config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(root, flagDB)
	}
	return cfg.DBPath(root)
}

// openEngine loads the engine for root, honoring --build-dir. With persist
// set the index database is opened too, honoring --db.
func openEngine(root string, persist bool) (*cmakels.Engine, error) {
	opts := []cmakels.Option{cmakels.WithLogger(slog.Default())}
	if w, ok := loadBuildCache(); ok {
		opts = append(opts, cmakels.WithBuildCache(w))
	}
	if persist && flagDB == "" {
		return cmakels.Load(root, opts...)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	opts = append(opts, cmakels.WithConfig(cfg))
	if !persist {
		return cmakels.New(root, opts...), nil
	}

	dbPath := resolveDBPath(root, cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	opts = append(opts, cmakels.WithStore(s))
	return cmakels.New(root, opts...), nil
}

// loadBuildCache reads CMakeCache.txt from --build-dir. A missing or
// unreadable cache is logged and ignored.
func loadBuildCache() (*buildcache.Watcher, bool) {
	if flagBuildDir == "" {
		return nil, false
	}
	w := buildcache.NewWatcher(filepath.Join(flagBuildDir, "CMakeCache.txt"), slog.Default())
	if err := w.Reload(); err != nil {
		slog.Warn("build cache not loaded", "path", w.Path(), "err", err)
		return nil, false
	}
	return w, true
}

// openFileEngine resolves file to an absolute path and loads the engine for
// its workspace.
func openFileEngine(file string, persist bool) (*cmakels.Engine, string, error) {
	path, err := resolveFilePath(file)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("file not found: %s", path)
	}
	root, err := workspace.FindRoot(path)
	if err != nil {
		return nil, "", err
	}
	engine, err := openEngine(root, persist)
	if err != nil {
		return nil, "", err
	}
	return engine, path, nil
}
