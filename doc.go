// Package cmakels provides language intelligence for CMake projects: cursor
// classification, go-to-definition, completion, hover, document links and
// diagnostics, resolved across include(), add_subdirectory() and
// find_package().
//
// # Engine
//
// An [Engine] is the process-wide context. It owns the open documents, the
// installed-package and pkg-config databases, the per-file summary cache,
// the insert-once cache of CMake's built-in modules and the include graph
// used for cross-file visibility:
//
//	e := cmakels.New("path/to/project")
//	defer e.Shutdown()
//
//	ctx := context.Background()
//	_, err := e.ScanWorkspace(ctx, e.Root())
//	doc, err := e.Open(ctx, path, text)
//	locs, err := e.GotoDefinition(ctx, path, cmakels.Point{Line: 3, Column: 8})
//
// [Load] builds an Engine from the project's .cmakels.yaml and opens its
// SQLite index.
//
// # Resolution
//
// Nothing is evaluated. Definitions are the set(), option(), function() and
// macro() calls of a file, merged with those of every file it includes and,
// optionally, the config files of the packages it finds. Summaries are
// computed on demand and memoized; [Engine.ScanWorkspace] warms the caches
// and records which list file added each subdirectory, so that
// [Engine.VisibleDefinitions] can walk upward to the definitions a parent
// makes visible.
//
// # Index
//
// With a store configured, [Engine.IndexWorkspace] persists every CMake file
// of the workspace to SQLite, skipping files whose content hash is
// unchanged. The index answers workspace-wide definition lookups and can be
// exported as SCIP.
//
// # Lint rules
//
// Diagnostics include user rules written in Risor. Built-in rules ship in
// the scripts package; a lint.rules directory in the configuration adds or
// overrides rules by file name. See the internal/runtime package for the
// globals exposed to rules.
package cmakels
