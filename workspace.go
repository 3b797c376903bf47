package cmakels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/cmakels/internal/store"
	"github.com/jward/cmakels/internal/syntax"
	"github.com/jward/cmakels/internal/workspace"
)

// ScanStats summarizes a workspace scan or index run.
type ScanStats struct {
	// Files is the number of files read.
	Files int
	// Indexed is the number of files committed to the store.
	Indexed int
	// Skipped is the number of files whose stored hash was current.
	Skipped int
	// Affected lists the committed files and every file that includes them,
	// transitively. It is empty without a store.
	Affected []string
}

// fileJob collects the results of the per-file workers of one run.
type fileJob struct {
	e     *Engine
	batch *store.BatchedStore

	mu      sync.Mutex
	seen    map[string]bool
	changed []string
	stats   ScanStats
	errs    []error
}

func (e *Engine) newFileJob() *fileJob {
	return &fileJob{e: e, batch: store.NewBatchedStore(), seen: make(map[string]bool)}
}

func (e *Engine) workers() int {
	if e.cfg.Scan.Workers > 0 {
		return e.cfg.Scan.Workers
	}
	return goruntime.NumCPU()
}

// claim marks path as handled by this run and reports whether it was new.
func (j *fileJob) claim(path string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.seen[path] {
		return false
	}
	j.seen[path] = true
	return true
}

func (j *fileJob) fail(err error) {
	j.mu.Lock()
	j.errs = append(j.errs, err)
	j.mu.Unlock()
}

// file reads and summarizes one workspace file, refreshing its cache entry,
// and buffers it for the store when its content changed.
func (j *fileJob) file(ctx context.Context, path string) (*syntax.Tree, error) {
	e := j.e
	src, err := e.read(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tree, err := e.parser.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	sum := e.scanner.Refresh(tree, path)

	j.mu.Lock()
	j.stats.Files++
	j.mu.Unlock()
	if e.store == nil {
		return tree, nil
	}

	hash := store.ContentHash(src)
	same, err := e.store.Unchanged(path, hash)
	if err != nil {
		return nil, err
	}
	if same {
		j.mu.Lock()
		j.stats.Skipped++
		j.mu.Unlock()
		return tree, nil
	}
	j.batch.Add(store.Entry{Path: path, Hash: hash, LineCount: len(syntax.Lines(src)), Summary: sum})
	j.mu.Lock()
	j.stats.Indexed++
	j.changed = append(j.changed, path)
	j.mu.Unlock()
	return tree, nil
}

// finish commits the buffered entries and computes the blast radius.
func (j *fileJob) finish(op string) (ScanStats, error) {
	e := j.e
	if e.store != nil {
		if err := e.store.CommitBatch(j.batch); err != nil {
			return j.stats, fmt.Errorf("cmakels: %s: %w", op, err)
		}
		if len(j.changed) > 0 {
			affected, err := e.store.BlastRadius(j.changed)
			if err != nil {
				return j.stats, fmt.Errorf("cmakels: %s: %w", op, err)
			}
			j.stats.Affected = affected
		}
	}
	if len(j.errs) > 0 {
		return j.stats, fmt.Errorf("cmakels: %s had %d error(s): %w", op, len(j.errs), j.errs[0])
	}
	return j.stats, nil
}

// ScanWorkspace walks the add_subdirectory tree breadth first from
// root/CMakeLists.txt. Each list file is summarized into the file cache, its
// includes are followed, and every child directory is recorded in the
// include graph under the list file that added it. With a store configured,
// changed files are persisted in one transaction at the end.
//
// Files are processed by up to scan.workers goroutines per level. A file
// that cannot be read is reported in the returned error after the rest of
// the tree has been scanned.
func (e *Engine) ScanWorkspace(ctx context.Context, root string) (ScanStats, error) {
	start := filepath.Join(filepath.Clean(root), workspace.ListFile)
	if _, err := os.Stat(start); err != nil {
		return ScanStats{}, fmt.Errorf("cmakels: scan workspace: %w", err)
	}

	job := e.newFileJob()
	job.claim(start)
	level := []string{start}
	for len(level) > 0 {
		var mu sync.Mutex
		var next []string

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers())
		for _, path := range level {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				children, err := job.listFile(gctx, path)
				if err != nil {
					job.fail(err)
					return nil
				}
				mu.Lock()
				next = append(next, children...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return job.stats, fmt.Errorf("cmakels: scan workspace: %w", err)
		}
		sort.Strings(next)
		level = next
	}

	stats, err := job.finish("scan workspace")
	e.logger.Info("workspace scanned", "root", root, "files", stats.Files, "indexed", stats.Indexed, "err", err)
	return stats, err
}

// listFile handles one CMakeLists.txt of the scan and returns the child
// list files not seen before.
func (j *fileJob) listFile(ctx context.Context, path string) ([]string, error) {
	e := j.e
	tree, err := j.file(ctx, path)
	if err != nil {
		return nil, err
	}

	// Included workspace files are persisted alongside the list file.
	sum, _ := e.files.Get(path)
	e.scanner.Scan(ctx, tree, path, e.scanOptions(nil), nil)
	if sum != nil {
		for _, inc := range sum.Includes {
			if inc.Module || !j.claim(inc.Path) {
				continue
			}
			if _, err := j.file(ctx, inc.Path); err != nil {
				e.logger.Debug("included file skipped", "path", inc.Path, "err", err)
			}
		}
	}

	var children []string
	for _, list := range e.subdirectories(tree, path) {
		if j.claim(list) {
			e.graph.SetParent(list, path)
			children = append(children, list)
		}
	}
	return children, nil
}

// subdirectories returns the child list files that add_subdirectory calls
// in tree resolve to.
func (e *Engine) subdirectories(tree *syntax.Tree, path string) []string {
	var out []string
	for _, cmd := range syntax.Commands(tree, tree.Root()) {
		name, _ := syntax.CommandName(tree, cmd)
		if !strings.EqualFold(name, "add_subdirectory") {
			continue
		}
		args := syntax.Arguments(tree, cmd)
		if len(args) == 0 {
			continue
		}
		if list, ok := e.subdirectoryTarget(path, syntax.ArgumentValue(tree, args[0])); ok {
			out = append(out, list)
		}
	}
	return out
}

// IndexWorkspace persists every CMake file under the workspace root to the
// store, skipping files whose content hash is unchanged, and removes stored
// files that no longer exist. It then scans the add_subdirectory tree so
// the include graph is current.
func (e *Engine) IndexWorkspace(ctx context.Context) (ScanStats, error) {
	if e.store == nil {
		return ScanStats{}, fmt.Errorf("cmakels: index: no store configured")
	}
	paths, err := workspace.Discover(e.root)
	if err != nil {
		return ScanStats{}, fmt.Errorf("cmakels: index: %w", err)
	}
	if err := e.pruneStore(paths); err != nil {
		return ScanStats{}, err
	}

	job := e.newFileJob()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for _, path := range paths {
		job.claim(path)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := job.file(gctx, path); err != nil {
				job.fail(err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return job.stats, fmt.Errorf("cmakels: index: %w", err)
	}
	stats, err := job.finish("index")
	if err != nil {
		return stats, err
	}

	if _, err := os.Stat(filepath.Join(e.root, workspace.ListFile)); err == nil {
		if _, err := e.ScanWorkspace(ctx, e.root); err != nil {
			e.logger.Warn("workspace scan incomplete", "root", e.root, "err", err)
		}
	}
	e.logger.Info("workspace indexed", "root", e.root, "files", stats.Files, "indexed", stats.Indexed, "skipped", stats.Skipped)
	return stats, nil
}

// pruneStore deletes stored files under the root that are not in paths.
func (e *Engine) pruneStore(paths []string) error {
	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("cmakels: index: %w", err)
	}
	for _, f := range files {
		rel, err := filepath.Rel(e.root, f.Path)
		if err != nil || strings.HasPrefix(rel, "..") || keep[f.Path] {
			continue
		}
		if err := e.store.DeleteFile(f.Path); err != nil {
			return fmt.Errorf("cmakels: index: %w", err)
		}
		e.files.Delete(f.Path)
		e.logger.Debug("removed stale file", "path", f.Path)
	}
	return nil
}
