package packages

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultPkgConfigGlobs are the locations searched for .pc files.
var DefaultPkgConfigGlobs = []string{
	"/usr/lib/pkgconfig/*.pc",
	"/usr/lib/*/pkgconfig/*.pc",
	"/usr/share/pkgconfig/*.pc",
}

// PkgConfigRecord is one pkg-config module.
type PkgConfigRecord struct {
	Name string
	Path string
}

// PkgConfig maps pkg-config module names to their .pc files.
type PkgConfig struct {
	globs []string

	once   sync.Once
	byName map[string]*PkgConfigRecord
	names  []string
}

// NewPkgConfig returns a pkg-config database searching globs in order.
func NewPkgConfig(globs []string) *PkgConfig {
	return &PkgConfig{globs: globs}
}

func (p *PkgConfig) init() {
	p.once.Do(func() {
		p.byName = make(map[string]*PkgConfigRecord)
		for _, g := range p.globs {
			matches, _ := filepath.Glob(g)
			sort.Strings(matches)
			for _, m := range matches {
				name, _, _ := strings.Cut(filepath.Base(m), ".")
				if name == "" {
					continue
				}
				if _, ok := p.byName[name]; ok {
					continue
				}
				p.byName[name] = &PkgConfigRecord{Name: name, Path: m}
				p.names = append(p.names, name)
			}
		}
		sort.Strings(p.names)
	})
}

// Lookup returns the module named name.
func (p *PkgConfig) Lookup(name string) (*PkgConfigRecord, bool) {
	p.init()
	rec, ok := p.byName[name]
	return rec, ok
}

// Names returns every module name in sorted order.
func (p *PkgConfig) Names() []string {
	p.init()
	return p.names
}
