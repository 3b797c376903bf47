package cmakels

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/cmakels/internal/workspace"
)

// TreeDir is one directory of the add_subdirectory tree.
type TreeDir struct {
	// Name is the directory relative to its parent, or the root's base name.
	Name string
	// ListFile is the directory's CMakeLists.txt.
	ListFile string
	Children []*TreeDir
}

// ProjectTree follows add_subdirectory calls from root/CMakeLists.txt and
// returns the resulting directory tree. A directory added twice appears
// once, under the first list file that added it.
func (e *Engine) ProjectTree(ctx context.Context, root string) (*TreeDir, error) {
	root = filepath.Clean(root)
	list := filepath.Join(root, workspace.ListFile)
	if _, err := e.read(list); err != nil {
		return nil, fmt.Errorf("cmakels: project tree: %w", err)
	}
	seen := map[string]bool{list: true}
	top := &TreeDir{Name: filepath.Base(root), ListFile: list}
	e.growTree(ctx, top, seen)
	return top, nil
}

func (e *Engine) growTree(ctx context.Context, dir *TreeDir, seen map[string]bool) {
	d, err := e.document(ctx, dir.ListFile)
	if err != nil {
		e.logger.Debug("project tree: unreadable list file", "path", dir.ListFile, "err", err)
		return
	}
	for _, child := range e.subdirectories(d.Tree, d.Path) {
		if seen[child] {
			continue
		}
		seen[child] = true
		name, err := filepath.Rel(filepath.Dir(dir.ListFile), filepath.Dir(child))
		if err != nil {
			name = filepath.Dir(child)
		}
		sub := &TreeDir{Name: filepath.ToSlash(name), ListFile: child}
		dir.Children = append(dir.Children, sub)
		e.growTree(ctx, sub, seen)
	}
}

// String renders the tree with box-drawing connectors, one directory per
// line.
func (t *TreeDir) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString("\n")
	t.render(&b, "")
	return b.String()
}

func (t *TreeDir) render(b *strings.Builder, prefix string) {
	for i, c := range t.Children {
		last := i == len(t.Children)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		b.WriteString(prefix + connector + c.Name + "\n")
		c.render(b, prefix+indent)
	}
}

// Walk visits t and its descendants in pre-order.
func (t *TreeDir) Walk(fn func(*TreeDir)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}
