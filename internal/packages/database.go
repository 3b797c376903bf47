// Package packages discovers installed CMake packages and pkg-config modules
// under a set of install prefixes. Both databases are built lazily on first
// use and never change afterwards.
package packages

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Kind says whether a package is a directory of config files or a single
// module file.
type Kind int

const (
	Directory Kind = iota
	File
)

func (k Kind) String() string {
	if k == File {
		return "file"
	}
	return "directory"
}

// Origin says where a package was found.
type Origin int

const (
	System Origin = iota
	Overlay
)

func (o Origin) String() string {
	if o == Overlay {
		return "overlay"
	}
	return "system"
}

// Record describes one installed package.
type Record struct {
	Name     string
	Kind     Kind
	Location string
	Version  *string
	// JumpTargets lists the package's cmake files, primary config file first.
	JumpTargets []string
	Origin      Origin
}

// ConfigFile returns the primary config file of the package, or "" when it
// has none.
func (r *Record) ConfigFile() string {
	if len(r.JumpTargets) == 0 {
		return ""
	}
	return r.JumpTargets[0]
}

// Prefix is an install prefix to search, such as /usr.
type Prefix struct {
	Path   string
	Origin Origin
}

// Database maps package names to records. The first prefix that provides a
// name wins.
type Database struct {
	prefixes []Prefix
	logger   *slog.Logger

	once   sync.Once
	byName map[string]*Record
	names  []string
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used while scanning prefixes.
func WithLogger(l *slog.Logger) Option {
	return func(d *Database) { d.logger = l }
}

// New returns a Database over prefixes, searched in order. Nothing touches
// the filesystem until the first lookup.
func New(prefixes []Prefix, opts ...Option) *Database {
	d := &Database{prefixes: prefixes, logger: slog.Default()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FromRecords returns an already built Database holding recs. Later records
// with a duplicate name are ignored.
func FromRecords(recs []Record) *Database {
	d := &Database{logger: slog.Default()}
	d.once.Do(func() {
		d.byName = make(map[string]*Record, len(recs))
		for i := range recs {
			d.add(&recs[i])
		}
		d.sortNames()
	})
	return d
}

// Prefixes returns the search prefixes for a workspace: the system paths in
// order, followed by every vcpkg triplet directory when root is a vcpkg
// project.
func Prefixes(system []string, root string) []Prefix {
	out := make([]Prefix, 0, len(system))
	for _, p := range system {
		out = append(out, Prefix{Path: p, Origin: System})
	}
	if root == "" || !IsVcpkgProject(root) {
		return out
	}
	triplets, _ := filepath.Glob(filepath.Join(root, "vcpkg_installed", "*"))
	sort.Strings(triplets)
	for _, t := range triplets {
		if filepath.Base(t) == "vcpkg" || !isDir(t) {
			continue
		}
		out = append(out, Prefix{Path: t, Origin: Overlay})
	}
	return out
}

// IsVcpkgProject reports whether root holds a vcpkg manifest.
func IsVcpkgProject(root string) bool {
	info, err := os.Stat(filepath.Join(root, "vcpkg.json"))
	return err == nil && info.Mode().IsRegular()
}

func (d *Database) init() {
	d.once.Do(func() {
		d.byName = make(map[string]*Record)
		for _, p := range d.prefixes {
			for _, rec := range scanPrefix(p, d.logger) {
				d.add(rec)
			}
		}
		d.sortNames()
		d.logger.Debug("package database built", "prefixes", len(d.prefixes), "packages", len(d.names))
	})
}

func (d *Database) add(rec *Record) {
	if _, ok := d.byName[rec.Name]; ok {
		return
	}
	d.byName[rec.Name] = rec
	d.names = append(d.names, rec.Name)
}

func (d *Database) sortNames() {
	sort.Strings(d.names)
}

// Lookup returns the record named exactly name.
func (d *Database) Lookup(name string) (*Record, bool) {
	d.init()
	rec, ok := d.byName[name]
	return rec, ok
}

// Names returns every package name in sorted order.
func (d *Database) Names() []string {
	d.init()
	return d.names
}

// Records returns every record ordered by name.
func (d *Database) Records() []*Record {
	d.init()
	out := make([]*Record, len(d.names))
	for i, n := range d.names {
		out[i] = d.byName[n]
	}
	return out
}

// Len returns the number of packages.
func (d *Database) Len() int {
	d.init()
	return len(d.names)
}
