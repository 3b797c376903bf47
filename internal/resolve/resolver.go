// Package resolve maps the textual arguments of include, add_subdirectory and
// find_package to files and installed packages. All lookups are read-only
// and report absence with ok=false.
package resolve

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jward/cmakels/internal/packages"
)

// DefaultModuleDirs are glob patterns for the directories holding CMake's
// built-in modules, searched in order.
var DefaultModuleDirs = []string{
	"/usr/share/cmake*/Modules",
	"/usr/local/share/cmake*/Modules",
}

// Target is the result of resolving an include argument.
type Target struct {
	Path string
	// Module is set when the argument named a built-in module rather than a
	// file relative to the including file.
	Module bool
	// Dir is set when Path exists and is a directory.
	Dir bool
}

// Resolver resolves include, subdirectory and package references.
type Resolver struct {
	moduleDirs []string
	packages   *packages.Database
	pkgconfig  *packages.PkgConfig

	modulesOnce sync.Once
	modules     []string
}

// New returns a Resolver. moduleDirs defaults to DefaultModuleDirs when nil.
// pc may be nil.
func New(db *packages.Database, pc *packages.PkgConfig, moduleDirs []string) *Resolver {
	if moduleDirs == nil {
		moduleDirs = DefaultModuleDirs
	}
	if pc == nil {
		pc = packages.NewPkgConfig(nil)
	}
	return &Resolver{moduleDirs: moduleDirs, packages: db, pkgconfig: pc}
}

// IsModule reports whether an include argument names a built-in module: it
// has no path separator and no .cmake extension.
func IsModule(text string) bool {
	return !strings.ContainsAny(text, `/\`) && !strings.HasSuffix(text, ".cmake")
}

// Include resolves the argument of include() as written in currentFile. When
// ok is false and the argument is a file reference, Path still holds the
// absolute candidate path.
func (r *Resolver) Include(text, currentFile string) (Target, bool) {
	if text == "" {
		return Target{}, false
	}
	if IsModule(text) {
		for _, dir := range r.moduleDirs {
			matches, _ := filepath.Glob(filepath.Join(dir, text+".cmake"))
			sort.Strings(matches)
			for _, m := range matches {
				if info, err := os.Stat(m); err == nil {
					return Target{Path: m, Module: true, Dir: info.IsDir()}, true
				}
			}
		}
		return Target{Module: true}, false
	}
	path := text
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(currentFile), text)
	}
	t := Target{Path: filepath.Clean(path)}
	info, err := os.Stat(t.Path)
	if err != nil {
		return t, false
	}
	t.Dir = info.IsDir()
	return t, true
}

// Subdirectory resolves the argument of add_subdirectory() to the child
// CMakeLists.txt. The candidate path is returned even when ok is false.
func (r *Resolver) Subdirectory(text, currentFile string) (string, bool) {
	dir := text
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(filepath.Dir(currentFile), text)
	}
	path := filepath.Join(dir, "CMakeLists.txt")
	info, err := os.Stat(path)
	return path, err == nil && info.Mode().IsRegular()
}

// FindPackage looks name up exactly, then lower-cased.
func (r *Resolver) FindPackage(name string) (*packages.Record, bool) {
	if r.packages == nil || name == "" {
		return nil, false
	}
	if rec, ok := r.packages.Lookup(name); ok {
		return rec, true
	}
	return r.packages.Lookup(strings.ToLower(name))
}

// FindPackageComponent resolves a find_package component: Name::comp first,
// then the concatenated form used by split packages such as Qt5Core.
func (r *Resolver) FindPackageComponent(name, comp string) (*packages.Record, bool) {
	if rec, ok := r.FindPackage(name + "::" + comp); ok {
		return rec, true
	}
	return r.FindPackage(name + comp)
}

// PkgConfig looks up a pkg-config module.
func (r *Resolver) PkgConfig(name string) (*packages.PkgConfigRecord, bool) {
	return r.pkgconfig.Lookup(name)
}

// Modules returns the names of every built-in module, sorted. The first
// directory providing a name wins.
func (r *Resolver) Modules() []string {
	r.modulesOnce.Do(func() {
		seen := make(map[string]bool)
		for _, dir := range r.moduleDirs {
			matches, _ := filepath.Glob(filepath.Join(dir, "*.cmake"))
			for _, m := range matches {
				name := strings.TrimSuffix(filepath.Base(m), ".cmake")
				if !seen[name] {
					seen[name] = true
					r.modules = append(r.modules, name)
				}
			}
		}
		sort.Strings(r.modules)
	})
	return r.modules
}
