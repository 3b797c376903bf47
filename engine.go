package cmakels

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cmakels/internal/buildcache"
	"github.com/jward/cmakels/internal/config"
	"github.com/jward/cmakels/internal/diagnostics"
	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/packages"
	"github.com/jward/cmakels/internal/resolve"
	"github.com/jward/cmakels/internal/runtime"
	"github.com/jward/cmakels/internal/scan"
	"github.com/jward/cmakels/internal/store"
	"github.com/jward/cmakels/internal/syntax"
	"github.com/jward/cmakels/scripts"
)

// Engine is the process-wide context shared by every request: open
// documents, the package databases, the summary caches and the include
// graph. It is safe for concurrent use.
type Engine struct {
	root       string
	cfg        config.Config
	parser     syntax.Parser
	logger     *slog.Logger
	runner     diagnostics.CommandRunner
	store      *store.Store
	watcher    *buildcache.Watcher
	db         *packages.Database
	pkgconfig  *packages.PkgConfig
	moduleDirs []string
	rulesFS    fs.FS

	resolver *resolve.Resolver
	files    *index.FileCache
	modules  *index.ModuleCache
	graph    *index.Graph
	scanner  *scan.Scanner
	checker  *diagnostics.Engine
	rules    *runtime.Runtime

	mu   sync.RWMutex
	docs map[string]*Document

	builtinsOnce sync.Once
	builtins     []string

	helpMu sync.Mutex
	help   map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithParser sets the parser for every document and included file. The
// default is the hand-written CMake parser.
func WithParser(p syntax.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithGrammar parses with a tree-sitter grammar instead of the hand-written
// parser, typically tree-sitter-cmake. Its node kinds must follow that
// grammar's names for the queries to find anything.
func WithGrammar(lang *sitter.Language) Option {
	return WithParser(syntax.NewSitterParser(lang))
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRunner replaces the runner used for cmake and the external linter.
func WithRunner(r diagnostics.CommandRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithStore persists workspace scans to s. The Engine takes ownership and
// closes it on Shutdown.
func WithStore(s *store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithBuildCache supplies CMakeCache.txt entries for placeholder
// substitution, cache completion and unresolved package diagnostics.
func WithBuildCache(w *buildcache.Watcher) Option {
	return func(e *Engine) { e.watcher = w }
}

// WithPackages replaces the package database built from the configured
// prefixes.
func WithPackages(db *packages.Database) Option {
	return func(e *Engine) { e.db = db }
}

// WithPkgConfig replaces the pkg-config database built from the configured
// globs.
func WithPkgConfig(pc *packages.PkgConfig) Option {
	return func(e *Engine) { e.pkgconfig = pc }
}

// WithModuleDirs replaces the configured built-in module directories.
func WithModuleDirs(dirs ...string) Option {
	return func(e *Engine) { e.moduleDirs = dirs }
}

// WithRulesFS replaces the embedded built-in lint rules. fsys must hold a
// lint/ directory of .risor scripts.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) { e.rulesFS = fsys }
}

// New returns an Engine for the workspace rooted at root.
func New(root string, opts ...Option) *Engine {
	e := &Engine{
		root:    filepath.Clean(root),
		cfg:     config.Default(),
		parser:  syntax.NewParser(),
		logger:  slog.Default(),
		runner:  diagnostics.ExecRunner{},
		rulesFS: scripts.FS,
		docs:    make(map[string]*Document),
		help:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.db == nil {
		e.db = packages.New(packages.Prefixes(e.cfg.Packages.Prefixes, e.root), packages.WithLogger(e.logger))
	}
	if e.pkgconfig == nil {
		e.pkgconfig = packages.NewPkgConfig(e.cfg.Packages.PkgConfig)
	}
	if e.moduleDirs == nil {
		e.moduleDirs = e.cfg.Packages.Modules
	}

	e.resolver = resolve.New(e.db, e.pkgconfig, e.moduleDirs)
	e.files = index.NewFileCache()
	e.modules = index.NewModuleCache()
	e.graph = index.NewGraph()
	e.scanner = scan.New(e.resolver, e.files, e.modules, e.graph,
		scan.WithParser(e.parser),
		scan.WithReader(e.read),
		scan.WithComponents(e.cfg.Scan.Components),
		scan.WithLogger(e.logger),
	)
	e.rules = runtime.NewRuntime(
		runtime.WithRuntimeFS(e.rulesFS),
		runtime.WithScriptsDir(e.cfg.RulesDir(e.root)),
		runtime.WithParser(e.parser),
		runtime.WithReader(e.read),
		runtime.WithDefinitions(e.workspaceDefinitions),
		runtime.WithLogger(e.logger),
	)
	e.checker = diagnostics.New(e.resolver,
		diagnostics.WithRunner(e.runner),
		diagnostics.WithRules(e.rules),
		diagnostics.WithParser(e.parser),
		diagnostics.WithReader(e.read),
		diagnostics.WithLogger(e.logger),
	)
	return e
}

// Load returns an Engine for root configured from root/.cmakels.yaml, with
// the index database opened and migrated. Options are applied after the
// loaded configuration.
func Load(root string, opts ...Option) (*Engine, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("cmakels: load config: %w", err)
	}
	dbPath := cfg.DBPath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("cmakels: create index dir: %w", err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("cmakels: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("cmakels: migrate: %w", err)
	}
	return New(root, append([]Option{WithConfig(cfg), WithStore(s)}, opts...)...), nil
}

// Shutdown releases the Engine's database, if any.
func (e *Engine) Shutdown() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Root returns the workspace root.
func (e *Engine) Root() string { return e.root }

// Config returns the active configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Store returns the index database, or nil when none is configured.
func (e *Engine) Store() *Store { return e.store }

// Packages returns every package record, sorted by name.
func (e *Engine) Packages() []*PackageRecord { return e.db.Records() }

// buildCache returns the current build-cache snapshot. It is never nil.
func (e *Engine) buildCache() *buildcache.Cache {
	if e.watcher == nil {
		return buildcache.Empty()
	}
	return e.watcher.Current()
}

func (e *Engine) vars(path string) resolve.Vars {
	return resolve.Vars{
		CurrentFile: path,
		SourceDir:   e.root,
		Cache:       e.buildCache().Values(),
	}
}

// read serves open documents before falling back to disk.
func (e *Engine) read(path string) ([]byte, error) {
	if d, ok := e.Document(path); ok {
		return []byte(d.Text), nil
	}
	return os.ReadFile(path)
}

// workspaceDefinitions backs the definitions() host function of lint rules.
// The store answers when configured, otherwise the cached summaries do.
func (e *Engine) workspaceDefinitions(name string) []index.Definition {
	if e.store != nil {
		defs, err := e.store.DefinitionsByName(name)
		if err != nil {
			e.logger.Warn("stored definitions", "name", name, "err", err)
			return nil
		}
		return defs
	}
	var out []index.Definition
	for _, p := range e.files.Paths() {
		sum, ok := e.files.Get(p)
		if !ok {
			continue
		}
		out = append(out, matchName(sum.Definitions, name)...)
	}
	return out
}

// document returns the open document for path, or parses it from disk.
// Documents read from disk are not added to the open-document table.
func (e *Engine) document(ctx context.Context, path string) (*Document, error) {
	path = filepath.Clean(path)
	if d, ok := e.Document(path); ok {
		return d, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cmakels: read %s: %w", path, err)
	}
	tree, err := e.parser.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("cmakels: parse %s: %w", path, err)
	}
	return &Document{Path: path, Text: string(src), Tree: tree}, nil
}
