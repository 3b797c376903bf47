package index

import (
	"sort"

	"github.com/patrickmn/go-cache"
)

// FileCache holds summaries of workspace files. Every write replaces the
// previous summary, so the cache tracks the latest text seen for a path.
type FileCache struct {
	c *cache.Cache
}

// NewFileCache returns an empty FileCache. Entries never expire.
func NewFileCache() *FileCache {
	return &FileCache{c: cache.New(cache.NoExpiration, cache.NoExpiration)}
}

// Get returns the summary for path.
func (f *FileCache) Get(path string) (*Summary, bool) {
	v, ok := f.c.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*Summary), true
}

// Set stores s for path, replacing any earlier summary.
func (f *FileCache) Set(path string, s *Summary) {
	f.c.Set(path, s, cache.DefaultExpiration)
}

// Delete drops path.
func (f *FileCache) Delete(path string) {
	f.c.Delete(path)
}

// Paths returns every cached path, sorted.
func (f *FileCache) Paths() []string {
	items := f.c.Items()
	out := make([]string, 0, len(items))
	for k := range items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of cached files.
func (f *FileCache) Len() int { return f.c.ItemCount() }

// ModuleCache holds summaries of built-in modules and package files. These
// files do not change while the process runs, so entries are inserted once
// and never replaced.
type ModuleCache struct {
	c *cache.Cache
}

// NewModuleCache returns an empty ModuleCache.
func NewModuleCache() *ModuleCache {
	return &ModuleCache{c: cache.New(cache.NoExpiration, cache.NoExpiration)}
}

// Get returns the summary for path.
func (m *ModuleCache) Get(path string) (*Summary, bool) {
	v, ok := m.c.Get(path)
	if !ok {
		return nil, false
	}
	return v.(*Summary), true
}

// Add stores s for path unless an entry exists, and returns the entry now in
// the cache. Concurrent callers racing on a path all observe one summary.
func (m *ModuleCache) Add(path string, s *Summary) *Summary {
	if err := m.c.Add(path, s, cache.DefaultExpiration); err == nil {
		return s
	}
	if existing, ok := m.Get(path); ok {
		return existing
	}
	return s
}

// Len returns the number of cached modules.
func (m *ModuleCache) Len() int { return m.c.ItemCount() }
