package index

import (
	"sort"
	"sync"
)

// Graph records, for each file, the file that most recently included it or
// added it as a subdirectory. A file has at most one parent.
type Graph struct {
	mu     sync.RWMutex
	parent map[string]string
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{parent: make(map[string]string)}
}

// SetParent records parent as the parent of child. A later call for the
// same child overwrites the earlier one. Self edges are ignored.
func (g *Graph) SetParent(child, parent string) {
	if child == parent {
		return
	}
	g.mu.Lock()
	g.parent[child] = parent
	g.mu.Unlock()
}

// Parent returns the parent of child.
func (g *Graph) Parent(child string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.parent[child]
	return p, ok
}

// Children returns the files whose parent is parent, sorted.
func (g *Graph) Children(parent string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []string
	for c, p := range g.parent {
		if p == parent {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Ancestors returns the chain of parents above file, nearest first. The walk
// stops at a file with no parent or at a file already visited.
func (g *Graph) Ancestors(file string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := map[string]bool{file: true}
	var out []string
	for cur := file; ; {
		p, ok := g.parent[cur]
		if !ok || seen[p] {
			return out
		}
		seen[p] = true
		out = append(out, p)
		cur = p
	}
}

// Reset drops every edge.
func (g *Graph) Reset() {
	g.mu.Lock()
	g.parent = make(map[string]string)
	g.mu.Unlock()
}

// Len returns the number of recorded edges.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.parent)
}
