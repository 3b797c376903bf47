// Package buildcache reads CMakeCache.txt from a build directory. The cache
// supplies values for placeholder substitution, completion of cached
// variables and the list of packages CMake failed to find.
package buildcache

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// FileName is the cache file CMake writes into a build directory.
const FileName = "CMakeCache.txt"

var notFoundLine = regexp.MustCompile(`^([\da-zA-Z]+)_DIR:PATH=([\da-zA-Z]+)_DIR-NOTFOUND$`)

// Entry is one KEY:TYPE=VALUE line.
type Entry struct {
	Name  string
	Type  string
	Value string
}

// Cache is a parsed CMakeCache.txt. A Cache is immutable.
type Cache struct {
	entries  []Entry
	byName   map[string]int
	notFound []string
}

// Empty returns a cache with no entries.
func Empty() *Cache {
	return &Cache{byName: map[string]int{}}
}

// Parse reads cache entries from r. Comment lines starting with # or // and
// lines without a KEY:TYPE=VALUE shape are skipped.
func Parse(r io.Reader) (*Cache, error) {
	c := Empty()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		if m := notFoundLine.FindStringSubmatch(line); m != nil {
			c.notFound = append(c.notFound, m[1])
		}
		e, ok := parseEntry(line)
		if !ok {
			continue
		}
		if i, dup := c.byName[e.Name]; dup {
			c.entries[i] = e
			continue
		}
		c.byName[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("buildcache: read: %w", err)
	}
	return c, nil
}

func parseEntry(line string) (Entry, bool) {
	var key, rest string
	if strings.HasPrefix(line, `"`) {
		end := strings.Index(line[1:], `"`)
		if end < 0 {
			return Entry{}, false
		}
		key, rest = line[1:end+1], line[end+2:]
		if !strings.HasPrefix(rest, ":") {
			return Entry{}, false
		}
		rest = rest[1:]
	} else {
		var ok bool
		key, rest, ok = strings.Cut(line, ":")
		if !ok {
			return Entry{}, false
		}
	}
	typ, value, ok := strings.Cut(rest, "=")
	if !ok || key == "" {
		return Entry{}, false
	}
	return Entry{Name: key, Type: typ, Value: value}, true
}

// Lookup returns the entry named name.
func (c *Cache) Lookup(name string) (Entry, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns the entries in file order.
func (c *Cache) Entries() []Entry { return c.entries }

// Values returns a name to value map of every entry.
func (c *Cache) Values() map[string]string {
	out := make(map[string]string, len(c.entries))
	for _, e := range c.entries {
		out[e.Name] = e.Value
	}
	return out
}

// NotFound returns the packages recorded as <Name>_DIR-NOTFOUND, in file
// order.
func (c *Cache) NotFound() []string { return c.notFound }
