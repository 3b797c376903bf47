package cmakels

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jward/cmakels/internal/scan"
	"github.com/jward/cmakels/internal/syntax"
)

// Document is an open file. It is replaced wholly on every change and never
// mutated.
type Document struct {
	Path string
	Text string
	Tree *syntax.Tree
}

// Open parses text as the content of path, registers it as an open document
// and refreshes the file's cached summary and include edges.
func (e *Engine) Open(ctx context.Context, path, text string) (*Document, error) {
	d, err := e.put(ctx, path, text)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("document opened", "path", d.Path)
	return d, nil
}

// Change replaces the text of an open document. A path that is not open is
// opened.
func (e *Engine) Change(ctx context.Context, path, text string) (*Document, error) {
	d, err := e.put(ctx, path, text)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("document changed", "path", d.Path)
	return d, nil
}

// Close drops an open document. Its cached summary stays until the file is
// next scanned.
func (e *Engine) Close(path string) {
	path = filepath.Clean(path)
	e.mu.Lock()
	delete(e.docs, path)
	e.mu.Unlock()
	e.logger.Debug("document closed", "path", path)
}

// Document returns the open document for path.
func (e *Engine) Document(path string) (*Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	d, ok := e.docs[filepath.Clean(path)]
	return d, ok
}

// Documents returns the paths of every open document, sorted.
func (e *Engine) Documents() []string {
	e.mu.RLock()
	out := make([]string, 0, len(e.docs))
	for p := range e.docs {
		out = append(out, p)
	}
	e.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (e *Engine) put(ctx context.Context, path, text string) (*Document, error) {
	path = filepath.Clean(path)
	tree, err := e.parser.Parse(ctx, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("cmakels: parse %s: %w", path, err)
	}
	d := &Document{Path: path, Text: text, Tree: tree}

	e.mu.Lock()
	e.docs[path] = d
	e.mu.Unlock()

	// The lock is released before resolving includes, which read back
	// through e.read.
	e.scanner.Refresh(tree, path)
	e.scanner.Scan(ctx, tree, path, scan.Options{}, nil)
	return d, nil
}
